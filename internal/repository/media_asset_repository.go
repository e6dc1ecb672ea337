package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/maheshrc27/crosspost/internal/models"
)

type MediaAssetRepository interface {
	Create(ctx context.Context, tx *sql.Tx, ma *models.MediaAsset) error
	GetByID(ctx context.Context, id string) (*models.MediaAsset, error)
	CheckByUserID(ctx context.Context, id string, userID int64) (bool, error)
}

type mediaAssetRepository struct {
	db *sql.DB
}

func NewMediaAssetRepository(db *sql.DB) MediaAssetRepository {
	return &mediaAssetRepository{db: db}
}

func (r *mediaAssetRepository) Create(ctx context.Context, tx *sql.Tx, ma *models.MediaAsset) error {
	query := `
		INSERT INTO media_assets (id, user_id, type, storage_key, url, mime_type, size_bytes, original_filename)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	args := []any{ma.ID, ma.UserID, ma.Type, ma.StorageKey, nullString(ma.URL), ma.MimeType, ma.SizeBytes, nullString(ma.OriginalFilename)}

	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&ma.CreatedAt)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&ma.CreatedAt)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *mediaAssetRepository) GetByID(ctx context.Context, id string) (*models.MediaAsset, error) {
	query := `
		SELECT id, user_id, type, storage_key, url, mime_type, size_bytes, original_filename, created_at
		FROM media_assets
		WHERE id = $1
	`

	var ma models.MediaAsset
	var url, filename sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&ma.ID,
		&ma.UserID,
		&ma.Type,
		&ma.StorageKey,
		&url,
		&ma.MimeType,
		&ma.SizeBytes,
		&filename,
		&ma.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	ma.URL = url.String
	ma.OriginalFilename = filename.String
	return &ma, nil
}

func (r *mediaAssetRepository) CheckByUserID(ctx context.Context, id string, userID int64) (bool, error) {
	query := "SELECT 1 FROM media_assets WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}
	return result == 1, nil
}
