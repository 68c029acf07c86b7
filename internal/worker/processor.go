package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/ftpledger/internal/model"
	"github.com/dharsanguruparan/ftpledger/internal/queue"
	"github.com/dharsanguruparan/ftpledger/internal/reconcile"
)

// Reconciler is the part of reconcile.Service the worker drives.
type Reconciler interface {
	Ingest(ctx context.Context, obs model.CandidateFile) (*model.IngestResult, error)
	ReconcileActive(ctx context.Context, source reconcile.CandidateSource) (*model.SyncSummary, error)
}

// Processor is plugged into the asynq worker loop.
type Processor struct {
	svc    Reconciler
	source reconcile.CandidateSource
	log    *zap.Logger
}

// NewProcessor constructs a worker processor.
func NewProcessor(svc Reconciler, source reconcile.CandidateSource, log *zap.Logger) *Processor {
	return &Processor{svc: svc, source: source, log: log}
}

// Handler registers the ingest and reconcile handlers.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIngestFile, p.handleIngest)
	mux.HandleFunc(queue.TaskReconcile, p.handleReconcile)
	return mux
}

// handleIngest retries storage failures; bad payloads and unknown users are
// dropped since a retry cannot change their outcome.
func (p *Processor) handleIngest(ctx context.Context, task *asynq.Task) error {
	var obs model.CandidateFile
	if err := json.Unmarshal(task.Payload(), &obs); err != nil {
		return fmt.Errorf("%w: decode payload: %v: %w", reconcile.ErrInvalidInput, err, asynq.SkipRetry)
	}
	log := p.log.With(zap.String("username", obs.Username), zap.String("path", obs.Filepath))

	res, err := p.svc.Ingest(ctx, obs)
	if err != nil {
		if errors.Is(err, reconcile.ErrInvalidInput) || errors.Is(err, reconcile.ErrAccountNotFound) {
			log.Warn("ingest task dropped", zap.Error(err))
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		log.Error("ingest task failed", zap.Error(err))
		return err
	}
	log.Info("ingest task done", zap.String("status", string(res.Status)))
	return nil
}

// handleReconcile only fails when the accounts cannot be listed. Accounts
// that failed inside the batch are logged; the next run picks them up.
func (p *Processor) handleReconcile(ctx context.Context, _ *asynq.Task) error {
	summary, err := p.svc.ReconcileActive(ctx, p.source)
	if err != nil {
		p.log.Error("reconcile task failed", zap.Error(err))
		return err
	}
	fields := []zap.Field{
		zap.Int("users_processed", summary.UsersProcessed),
		zap.Int("new_files", summary.NewFiles()),
	}
	if err := reconcile.PartialFailure(summary); err != nil {
		p.log.Warn("reconcile task finished with failures", append(fields, zap.Error(err))...)
		return nil
	}
	p.log.Info("reconcile task done", fields...)
	return nil
}
