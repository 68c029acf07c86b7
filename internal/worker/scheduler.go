package worker

import (
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/ftpledger/internal/queue"
)

// NewScheduler returns a scheduler that enqueues a sync:reconcile task on the
// cron spec, or nil when spec is empty.
func NewScheduler(opt asynq.RedisConnOpt, spec string, log *zap.Logger) (*asynq.Scheduler, error) {
	if spec == "" {
		return nil, nil
	}
	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				log.Error("scheduled reconcile not enqueued", zap.Error(err))
				return
			}
			log.Info("scheduled reconcile enqueued", zap.String("task_id", info.ID))
		},
	})
	id, err := scheduler.Register(spec, queue.NewReconcileTask())
	if err != nil {
		return nil, fmt.Errorf("register schedule %q: %w", spec, err)
	}
	log.Info("reconcile scheduled", zap.String("cron", spec), zap.String("entry_id", id))
	return scheduler, nil
}
