package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
)

type JobRepository interface {
	Create(ctx context.Context, tx *sql.Tx, job *models.Job) error
	GetByID(ctx context.Context, id string) (*models.Job, error)
	MarkRunning(ctx context.Context, id string) error
	MarkSucceeded(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, lastError string) error
	MarkPending(ctx context.Context, id, lastError string) error
}

type jobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Create(ctx context.Context, tx *sql.Tx, job *models.Job) error {
	payload, err := json.Marshal(job.Payload)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO jobs (id, user_id, post_id, type, status, payload, attempts, max_attempts, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	args := []any{job.ID, job.UserID, job.PostID, job.Type, job.Status, payload, job.Attempts, job.MaxAttempts, nullTime(job.ScheduledAt)}

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&job.CreatedAt, &job.UpdatedAt)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&job.CreatedAt, &job.UpdatedAt)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *jobRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	query := `
		SELECT id, user_id, post_id, type, status, payload, attempts, max_attempts,
			scheduled_at, last_error, started_at, finished_at, created_at, updated_at
		FROM jobs
		WHERE id = $1
	`

	var job models.Job
	var payload []byte
	var lastError sql.NullString
	var scheduledAt, startedAt, finishedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID,
		&job.UserID,
		&job.PostID,
		&job.Type,
		&job.Status,
		&payload,
		&job.Attempts,
		&job.MaxAttempts,
		&scheduledAt,
		&lastError,
		&startedAt,
		&finishedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	if err := json.Unmarshal(payload, &job.Payload); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	job.LastError = lastError.String
	job.ScheduledAt = timePtr(scheduledAt)
	job.StartedAt = timePtr(startedAt)
	job.FinishedAt = timePtr(finishedAt)
	return &job, nil
}

func (r *jobRepository) MarkRunning(ctx context.Context, id string) error {
	query := `
		UPDATE jobs
		SET status = $1,
			attempts = attempts + 1,
			started_at = $2,
			updated_at = $2
		WHERE id = $3
	`
	return r.exec(ctx, query, models.JobStatusRunning, time.Now(), id)
}

func (r *jobRepository) MarkSucceeded(ctx context.Context, id string) error {
	query := `
		UPDATE jobs
		SET status = $1,
			last_error = NULL,
			finished_at = COALESCE(finished_at, $2),
			updated_at = $2
		WHERE id = $3
	`
	return r.exec(ctx, query, models.JobStatusSuccess, time.Now(), id)
}

func (r *jobRepository) MarkFailed(ctx context.Context, id, lastError string) error {
	query := `
		UPDATE jobs
		SET status = $1,
			last_error = $2,
			finished_at = COALESCE(finished_at, $3),
			updated_at = $3
		WHERE id = $4
	`
	return r.exec(ctx, query, models.JobStatusFailed, lastError, time.Now(), id)
}

func (r *jobRepository) MarkPending(ctx context.Context, id, lastError string) error {
	query := `
		UPDATE jobs
		SET status = $1,
			last_error = $2,
			updated_at = $3
		WHERE id = $4
	`
	return r.exec(ctx, query, models.JobStatusPending, lastError, time.Now(), id)
}

func (r *jobRepository) exec(ctx context.Context, query string, args ...any) error {
	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
