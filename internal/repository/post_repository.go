package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) error
	CreateWithDestinations(ctx context.Context, post *models.Post, destinations []*models.PostDestination) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.Post, error)
	UpdateStatus(ctx context.Context, id string, status models.PostStatus) error
	// SetAggregateStatus is the last write of a job run.
	SetAggregateStatus(ctx context.Context, id string, status models.PostStatus, publishedAt *time.Time) error
}

type postRepository struct {
	db           *sql.DB
	destinations DestinationRepository
}

func NewPostRepository(db *sql.DB, destinations DestinationRepository) PostRepository {
	return &postRepository{db: db, destinations: destinations}
}

const postColumns = `id, user_id, media_asset_id, title, description, hashtags, visibility, scheduled_at, status, published_at, created_at, updated_at`

func scanPost(row scanner) (*models.Post, error) {
	var post models.Post
	var title, description, hashtags, visibility sql.NullString
	var scheduledAt, publishedAt sql.NullTime

	err := row.Scan(&post.ID, &post.UserID, &post.MediaAssetID, &title, &description, &hashtags, &visibility,
		&scheduledAt, &post.Status, &publishedAt, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}

	post.Title = title.String
	post.Description = description.String
	post.Hashtags = hashtags.String
	post.Visibility = models.Visibility(visibility.String)
	post.ScheduledAt = timePtr(scheduledAt)
	post.PublishedAt = timePtr(publishedAt)
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) error {
	query := `
		INSERT INTO posts (id, user_id, media_asset_id, title, description, hashtags, visibility, scheduled_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	args := []any{
		post.ID,
		post.UserID,
		post.MediaAssetID,
		nullString(post.Title),
		nullString(post.Description),
		nullString(post.Hashtags),
		nullString(string(post.Visibility)),
		nullTime(post.ScheduledAt),
		post.Status,
	}

	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&post.CreatedAt, &post.UpdatedAt)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&post.CreatedAt, &post.UpdatedAt)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) CreateWithDestinations(ctx context.Context, post *models.Post, destinations []*models.PostDestination) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	if err := r.Create(ctx, tx, post); err != nil {
		return err
	}

	for _, d := range destinations {
		d.PostID = post.ID
		if err := r.destinations.Create(ctx, tx, d); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	query := "SELECT " + postColumns + " FROM posts WHERE id = $1"
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *postRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.Post, error) {
	query := "SELECT " + postColumns + " FROM posts WHERE user_id = $1 ORDER BY created_at DESC"
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *postRepository) UpdateStatus(ctx context.Context, id string, status models.PostStatus) error {
	query := `
		UPDATE posts
		SET status = $1,
			updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) SetAggregateStatus(ctx context.Context, id string, status models.PostStatus, publishedAt *time.Time) error {
	query := `
		UPDATE posts
		SET status = $1,
			published_at = COALESCE($2, published_at),
			updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, status, nullTime(publishedAt), time.Now(), id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
