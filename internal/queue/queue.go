package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const TaskTypePublishPost = "publish:post"

// PublishPayload is all a task carries. Everything else is read from the
// jobs table when the task runs.
type PublishPayload struct {
	JobID string `json:"jobId"`
}

func NewPublishTask(jobID string) (*asynq.Task, error) {
	payload, err := json.Marshal(PublishPayload{JobID: jobID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePublishPost, payload), nil
}

func parsePublishPayload(task *asynq.Task) (PublishPayload, error) {
	var payload PublishPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("decode %s payload: %w", task.Type(), err)
	}
	if payload.JobID == "" {
		return payload, fmt.Errorf("%s payload has no jobId", task.Type())
	}
	return payload, nil
}

// RetryDelay returns an exponential backoff starting at base and capped at
// max. n is the number of retries already made.
func RetryDelay(base, max time.Duration) asynq.RetryDelayFunc {
	return func(n int, _ error, _ *asynq.Task) time.Duration {
		d := base
		for i := 0; i < n; i++ {
			d *= 2
			if d >= max {
				return max
			}
		}
		if d > max {
			return max
		}
		return d
	}
}
