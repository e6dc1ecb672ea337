package models

import "time"

type JobType string

const JobTypePublishPost JobType = "PUBLISH_POST"

type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSuccess || s == JobStatusFailed
}

// JobPayload is the snapshot taken when the job is enqueued.
type JobPayload struct {
	PostID    string     `json:"postId"`
	Platforms []Platform `json:"platforms"`
}

type Job struct {
	ID          string     `db:"id" json:"id"`
	UserID      int64      `db:"user_id" json:"user_id"`
	PostID      string     `db:"post_id" json:"post_id"`
	Type        JobType    `db:"type" json:"type"`
	Status      JobStatus  `db:"status" json:"status"`
	Payload     JobPayload `db:"payload" json:"payload"`
	Attempts    int        `db:"attempts" json:"attempts"`
	MaxAttempts int        `db:"max_attempts" json:"max_attempts"`
	ScheduledAt *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	LastError   string     `db:"last_error" json:"last_error,omitempty"`
	StartedAt   *time.Time `db:"started_at" json:"started_at,omitempty"`
	FinishedAt  *time.Time `db:"finished_at" json:"finished_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// JobLog is an append-only record of what happened during a job run.
type JobLog struct {
	ID        int64          `db:"id" json:"id"`
	JobID     string         `db:"job_id" json:"job_id"`
	Level     LogLevel       `db:"level" json:"level"`
	Message   string         `db:"message" json:"message"`
	Data      map[string]any `db:"data" json:"data,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}
