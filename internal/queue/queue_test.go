package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/maheshrc27/crosspost/internal/service"
)

func TestRetryDelay(t *testing.T) {
	delay := RetryDelay(5*time.Second, time.Minute)

	tests := []struct {
		n    int
		want time.Duration
	}{
		{0, 5 * time.Second},
		{1, 10 * time.Second},
		{2, 20 * time.Second},
		{3, 40 * time.Second},
		{4, time.Minute},
		{30, time.Minute},
	}
	for _, tt := range tests {
		if got := delay(tt.n, errors.New("x"), nil); got != tt.want {
			t.Errorf("RetryDelay(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestPublishOptions(t *testing.T) {
	opts := publishOptions("job-1", 3, 90*time.Second)

	got := map[asynq.OptionType]any{}
	for _, o := range opts {
		got[o.Type()] = o.Value()
	}
	if got[asynq.TaskIDOpt] != "job-1" {
		t.Errorf("task id = %v", got[asynq.TaskIDOpt])
	}
	if got[asynq.MaxRetryOpt] != 2 {
		t.Errorf("max retry = %v, want 2", got[asynq.MaxRetryOpt])
	}
	if got[asynq.ProcessInOpt] != 90*time.Second {
		t.Errorf("process in = %v", got[asynq.ProcessInOpt])
	}

	for _, o := range publishOptions("job-2", 0, 0) {
		if o.Type() == asynq.MaxRetryOpt && o.Value() != 0 {
			t.Errorf("max retry = %v for zero attempts, want 0", o.Value())
		}
	}
}

func TestPublishPayload(t *testing.T) {
	task, err := NewPublishTask("job-1")
	if err != nil {
		t.Fatal(err)
	}
	if task.Type() != TaskTypePublishPost {
		t.Errorf("task type = %q", task.Type())
	}
	if string(task.Payload()) != `{"jobId":"job-1"}` {
		t.Errorf("payload = %s", task.Payload())
	}

	payload, err := parsePublishPayload(task)
	if err != nil || payload.JobID != "job-1" {
		t.Errorf("parsePublishPayload() = %+v, %v", payload, err)
	}

	for _, raw := range []string{"", "{}", "not json"} {
		if _, err := parsePublishPayload(asynq.NewTask(TaskTypePublishPost, []byte(raw))); err == nil {
			t.Errorf("parsePublishPayload(%q) succeeded", raw)
		}
	}
}

type failureCall struct {
	runErr    error
	exhausted bool
}

type fakePublisher struct {
	runErrs  []error
	runs     int
	failures []failureCall
	final    bool
	err      error
}

func (f *fakePublisher) RunJob(ctx context.Context, jobID string) error {
	f.runs++
	if len(f.runErrs) == 0 {
		return nil
	}
	err := f.runErrs[0]
	f.runErrs = f.runErrs[1:]
	return err
}

func (f *fakePublisher) HandleFailure(ctx context.Context, jobID string, runErr error, exhausted bool) (bool, error) {
	f.failures = append(f.failures, failureCall{runErr: runErr, exhausted: exhausted})
	return f.final || exhausted, f.err
}

var _ service.PublishService = (*fakePublisher)(nil)

func TestWorker_Success(t *testing.T) {
	p := &fakePublisher{}
	if err := NewWorker(p).process(context.Background(), "job-1", 0, 2); err != nil {
		t.Fatalf("process() error: %v", err)
	}
	if len(p.failures) != 0 {
		t.Errorf("failure recorded for a successful run")
	}
}

func TestWorker_RetryableFailure(t *testing.T) {
	boom := errors.New("boom")
	p := &fakePublisher{runErrs: []error{boom}}

	err := NewWorker(p).process(context.Background(), "job-1", 0, 2)
	if !errors.Is(err, boom) {
		t.Fatalf("process() error = %v, want boom", err)
	}
	if errors.Is(err, asynq.SkipRetry) {
		t.Errorf("retryable failure marked SkipRetry")
	}
	if len(p.failures) != 1 || p.failures[0].exhausted {
		t.Errorf("failures = %+v", p.failures)
	}
}

func TestWorker_LastDeliveryIsExhausted(t *testing.T) {
	p := &fakePublisher{runErrs: []error{errors.New("boom")}}

	err := NewWorker(p).process(context.Background(), "job-1", 2, 2)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("process() error = %v, want SkipRetry", err)
	}
	if !p.failures[0].exhausted {
		t.Errorf("last delivery not reported as exhausted")
	}
}

func TestWorker_FatalFailureSkipsRetry(t *testing.T) {
	p := &fakePublisher{runErrs: []error{service.ErrPostNotFound}, final: true}

	err := NewWorker(p).process(context.Background(), "job-1", 0, 5)
	if !errors.Is(err, asynq.SkipRetry) || !errors.Is(err, service.ErrPostNotFound) {
		t.Fatalf("process() error = %v", err)
	}
}

func TestWorker_UnknownRetryBudget(t *testing.T) {
	p := &fakePublisher{runErrs: []error{errors.New("boom")}}

	if err := NewWorker(p).process(context.Background(), "job-1", 0, -1); err == nil {
		t.Fatal("process() returned nil for a failed run")
	}
	if p.failures[0].exhausted {
		t.Errorf("exhausted without a retry budget")
	}
}

func TestWorker_FailureBookkeepingError(t *testing.T) {
	boom := errors.New("boom")
	p := &fakePublisher{runErrs: []error{boom}, final: true, err: errors.New("db down")}

	err := NewWorker(p).process(context.Background(), "job-1", 0, 2)
	if !errors.Is(err, boom) || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("process() error = %v, want retryable boom", err)
	}
}

func TestHandlePublishTask_MalformedPayload(t *testing.T) {
	p := &fakePublisher{}
	err := NewWorker(p).HandlePublishTask(context.Background(), asynq.NewTask(TaskTypePublishPost, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("HandlePublishTask() error = %v, want SkipRetry", err)
	}
	if p.runs != 0 {
		t.Errorf("job ran for a malformed payload")
	}
}

func TestHandlePublishTask_OutsideServer(t *testing.T) {
	p := &fakePublisher{}
	task, _ := NewPublishTask("job-1")
	if err := NewWorker(p).HandlePublishTask(context.Background(), task); err != nil {
		t.Fatal(err)
	}
	if p.runs != 1 {
		t.Errorf("runs = %d, want 1", p.runs)
	}
}
