package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Client enqueues publish tasks on Redis.
type Client struct {
	asynq *asynq.Client
}

func NewClient(c *asynq.Client) *Client {
	return &Client{asynq: c}
}

// EnqueuePublish queues one task per job. The task id is the job id, so a
// job can never be queued twice.
func (c *Client) EnqueuePublish(ctx context.Context, jobID string, maxAttempts int, delay time.Duration) error {
	task, err := NewPublishTask(jobID)
	if err != nil {
		return err
	}

	info, err := c.asynq.EnqueueContext(ctx, task, publishOptions(jobID, maxAttempts, delay)...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		slog.Warn("publish task already queued", "job_id", jobID)
		return nil
	}
	if err != nil {
		return err
	}

	slog.Info("task scheduled", "task_id", info.ID, "queue", info.Queue, "process_at", info.NextProcessAt)
	return nil
}

func publishOptions(jobID string, maxAttempts int, delay time.Duration) []asynq.Option {
	// asynq counts retries, not deliveries.
	retries := maxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return []asynq.Option{
		asynq.TaskID(jobID),
		asynq.MaxRetry(retries),
		asynq.ProcessIn(delay),
	}
}
