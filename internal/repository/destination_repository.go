package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/maheshrc27/crosspost/internal/models"
)

// DestinationRepository persists post destinations. Every status write is a
// plain overwrite so replaying a run converges on the same final rows.
type DestinationRepository interface {
	Create(ctx context.Context, tx *sql.Tx, d *models.PostDestination) error
	ListByPostID(ctx context.Context, postID string) ([]*models.PostDestination, error)
	ListByPostIDAndPlatforms(ctx context.Context, postID string, platforms []models.Platform) ([]*models.PostDestination, error)
	MarkUploading(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status models.DestinationStatus) error
	MarkPublished(ctx context.Context, id, externalPostID, externalMediaID string) error
	MarkFailed(ctx context.Context, id, lastError string, at time.Time) error
}

type destinationRepository struct {
	db *sql.DB
}

func NewDestinationRepository(db *sql.DB) DestinationRepository {
	return &destinationRepository{db: db}
}

const destinationColumns = `id, post_id, platform, platform_title, platform_description, platform_visibility, status,
	attempts, external_post_id, external_media_id, last_error, last_error_at, created_at, updated_at`

func scanDestination(row scanner) (*models.PostDestination, error) {
	var d models.PostDestination
	var title, description, visibility, externalPostID, externalMediaID, lastError sql.NullString
	var lastErrorAt sql.NullTime

	err := row.Scan(&d.ID, &d.PostID, &d.Platform, &title, &description, &visibility, &d.Status,
		&d.Attempts, &externalPostID, &externalMediaID, &lastError, &lastErrorAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}

	d.PlatformTitle = title.String
	d.PlatformDescription = description.String
	d.PlatformVisibility = models.Visibility(visibility.String)
	d.ExternalPostID = externalPostID.String
	d.ExternalMediaID = externalMediaID.String
	d.LastError = lastError.String
	d.LastErrorAt = timePtr(lastErrorAt)
	return &d, nil
}

func (r *destinationRepository) Create(ctx context.Context, tx *sql.Tx, d *models.PostDestination) error {
	query := `
		INSERT INTO post_destinations (id, post_id, platform, platform_title, platform_description, platform_visibility, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	args := []any{
		d.ID,
		d.PostID,
		d.Platform,
		nullString(d.PlatformTitle),
		nullString(d.PlatformDescription),
		nullString(string(d.PlatformVisibility)),
		d.Status,
	}

	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&d.CreatedAt, &d.UpdatedAt)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&d.CreatedAt, &d.UpdatedAt)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *destinationRepository) list(ctx context.Context, query string, args ...any) ([]*models.PostDestination, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var destinations []*models.PostDestination
	for rows.Next() {
		d, err := scanDestination(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		destinations = append(destinations, d)
	}
	return destinations, rows.Err()
}

func (r *destinationRepository) ListByPostID(ctx context.Context, postID string) ([]*models.PostDestination, error) {
	query := "SELECT " + destinationColumns + " FROM post_destinations WHERE post_id = $1 ORDER BY created_at, platform"
	return r.list(ctx, query, postID)
}

func (r *destinationRepository) ListByPostIDAndPlatforms(ctx context.Context, postID string, platforms []models.Platform) ([]*models.PostDestination, error) {
	names := make([]string, 0, len(platforms))
	for _, p := range platforms {
		names = append(names, string(p))
	}

	query := "SELECT " + destinationColumns + " FROM post_destinations WHERE post_id = $1 AND platform = ANY($2) ORDER BY created_at, platform"
	return r.list(ctx, query, postID, pq.Array(names))
}

func (r *destinationRepository) MarkUploading(ctx context.Context, id string) error {
	query := `
		UPDATE post_destinations
		SET status = $1,
			attempts = attempts + 1,
			updated_at = $2
		WHERE id = $3
	`
	return r.exec(ctx, query, models.DestinationStatusUploading, time.Now(), id)
}

func (r *destinationRepository) UpdateStatus(ctx context.Context, id string, status models.DestinationStatus) error {
	query := `
		UPDATE post_destinations
		SET status = $1,
			updated_at = $2
		WHERE id = $3
	`
	return r.exec(ctx, query, status, time.Now(), id)
}

func (r *destinationRepository) MarkPublished(ctx context.Context, id, externalPostID, externalMediaID string) error {
	query := `
		UPDATE post_destinations
		SET status = $1,
			external_post_id = $2,
			external_media_id = $3,
			last_error = NULL,
			last_error_at = NULL,
			updated_at = $4
		WHERE id = $5
	`
	return r.exec(ctx, query, models.DestinationStatusPublished, externalPostID, nullString(externalMediaID), time.Now(), id)
}

func (r *destinationRepository) MarkFailed(ctx context.Context, id, lastError string, at time.Time) error {
	query := `
		UPDATE post_destinations
		SET status = $1,
			last_error = $2,
			last_error_at = $3,
			updated_at = $4
		WHERE id = $5
	`
	return r.exec(ctx, query, models.DestinationStatusFailed, lastError, at, time.Now(), id)
}

func (r *destinationRepository) exec(ctx context.Context, query string, args ...any) error {
	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
