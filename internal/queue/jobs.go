package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/ftpledger/internal/config"
	"github.com/dharsanguruparan/ftpledger/internal/model"
)

const (
	// TaskIngestFile carries one pushed observation for the ingest path.
	TaskIngestFile = "file:ingest"
	// TaskReconcile runs batch reconciliation over every active account.
	TaskReconcile = "sync:reconcile"
)

const (
	ingestMaxRetry    = 5
	reconcileMaxRetry = 2
	reconcileTimeout  = 10 * time.Minute
)

// RedisOpt returns the asynq connection options for cfg.
func RedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// NewIngestTask serializes obs into a file:ingest task.
func NewIngestTask(obs model.CandidateFile) (*asynq.Task, error) {
	data, err := json.Marshal(obs)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(TaskIngestFile, data, asynq.MaxRetry(ingestMaxRetry)), nil
}

// NewReconcileTask builds a sync:reconcile task. It carries no payload: the
// worker always reconciles the accounts active when it runs.
func NewReconcileTask() *asynq.Task {
	return asynq.NewTask(TaskReconcile, nil, asynq.MaxRetry(reconcileMaxRetry), asynq.Timeout(reconcileTimeout))
}

// Client enqueues ingest and reconcile tasks.
type Client struct {
	client *asynq.Client
}

// NewClient connects an asynq client.
func NewClient(opt asynq.RedisConnOpt) *Client {
	return &Client{client: asynq.NewClient(opt)}
}

// EnqueueIngest queues obs for the worker and returns the task ID.
func (c *Client) EnqueueIngest(ctx context.Context, obs model.CandidateFile) (string, error) {
	task, err := NewIngestTask(obs)
	if err != nil {
		return "", err
	}
	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("enqueue ingest task: %w", err)
	}
	return info.ID, nil
}

// EnqueueReconcile queues a batch run and returns the task ID.
func (c *Client) EnqueueReconcile(ctx context.Context) (string, error) {
	info, err := c.client.EnqueueContext(ctx, NewReconcileTask())
	if err != nil {
		return "", fmt.Errorf("enqueue reconcile task: %w", err)
	}
	return info.ID, nil
}

// Close releases the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}
