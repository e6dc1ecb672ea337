package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/maheshrc27/crosspost/internal/models"
)

// JobLogRepository is append-only. There is no update or delete.
type JobLogRepository interface {
	Append(ctx context.Context, entry *models.JobLog) error
	ListByJobID(ctx context.Context, jobID string) ([]*models.JobLog, error)
}

type jobLogRepository struct {
	db *sql.DB
}

func NewJobLogRepository(db *sql.DB) JobLogRepository {
	return &jobLogRepository{db: db}
}

func (r *jobLogRepository) Append(ctx context.Context, entry *models.JobLog) error {
	var data any
	if len(entry.Data) > 0 {
		encoded, err := json.Marshal(entry.Data)
		if err != nil {
			return err
		}
		data = encoded
	}

	query := `
		INSERT INTO job_logs (job_id, level, message, data)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, entry.JobID, entry.Level, entry.Message, data).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *jobLogRepository) ListByJobID(ctx context.Context, jobID string) ([]*models.JobLog, error) {
	query := `SELECT id, job_id, level, message, data, created_at FROM job_logs WHERE job_id = $1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, jobID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var logs []*models.JobLog
	for rows.Next() {
		var entry models.JobLog
		var data []byte
		if err := rows.Scan(&entry.ID, &entry.JobID, &entry.Level, &entry.Message, &data, &entry.CreatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &entry.Data); err != nil {
				slog.Info(err.Error())
				return nil, err
			}
		}
		logs = append(logs, &entry)
	}
	return logs, rows.Err()
}
