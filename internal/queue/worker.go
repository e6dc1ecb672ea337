package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/crosspost/internal/service"
)

type Worker struct {
	publisher service.PublishService
}

func NewWorker(publisher service.PublishService) *Worker {
	return &Worker{publisher: publisher}
}

func (w *Worker) HandlePublishTask(ctx context.Context, task *asynq.Task) error {
	payload, err := parsePublishPayload(task)
	if err != nil {
		// Nothing to record against; a malformed task never gets better.
		slog.Error(err.Error())
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		maxRetry = -1
	}
	return w.process(ctx, payload.JobID, retried, maxRetry)
}

// process runs one delivery. A negative maxRetry means the queue did not say
// how many retries remain, and the job's own attempt count decides.
func (w *Worker) process(ctx context.Context, jobID string, retried, maxRetry int) error {
	runErr := w.publisher.RunJob(ctx, jobID)
	if runErr == nil {
		return nil
	}

	exhausted := maxRetry >= 0 && retried >= maxRetry
	final, err := w.publisher.HandleFailure(ctx, jobID, runErr, exhausted)
	if err != nil {
		slog.Error("record job failure", "job_id", jobID, "error", err)
		return runErr
	}
	if final {
		return fmt.Errorf("job %s: %w: %w", jobID, runErr, asynq.SkipRetry)
	}
	return runErr
}

// NewServer builds the asynq server that runs publish tasks.
func NewServer(redis asynq.RedisConnOpt, concurrency int, backoff, backoffMax time.Duration) *asynq.Server {
	return asynq.NewServer(redis, asynq.Config{
		Concurrency:    concurrency,
		RetryDelayFunc: RetryDelay(backoff, backoffMax),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			id, _ := asynq.GetTaskID(ctx)
			if errors.Is(err, asynq.SkipRetry) {
				slog.Error("task failed permanently", "task_id", id, "type", task.Type(), "error", err)
				return
			}
			slog.Warn("task failed, will retry", "task_id", id, "type", task.Type(), "error", err)
		}),
	})
}

func NewServeMux(w *Worker) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypePublishPost, w.HandlePublishTask)
	return mux
}
