package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/transfer"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// JobEnqueuer hands a publish job to the queue.
type JobEnqueuer interface {
	EnqueuePublish(ctx context.Context, jobID string, maxAttempts int, delay time.Duration) error
}

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (*transfer.PostDetail, error)
	PublishPost(ctx context.Context, userID int64, postID string) (*transfer.PublishResponse, error)
	GetPost(ctx context.Context, userID int64, postID string) (*transfer.PostDetail, error)
	ListPosts(ctx context.Context, userID int64) ([]*models.Post, error)
	GetJob(ctx context.Context, userID int64, jobID string) (*transfer.JobDetail, error)
}

type postService struct {
	pr          repository.PostRepository
	dr          repository.DestinationRepository
	ma          repository.MediaAssetRepository
	jr          repository.JobRepository
	jl          repository.JobLogRepository
	queue       JobEnqueuer
	maxAttempts int
	now         func() time.Time
}

func NewPostService(
	pr repository.PostRepository,
	dr repository.DestinationRepository,
	ma repository.MediaAssetRepository,
	jr repository.JobRepository,
	jl repository.JobLogRepository,
	queue JobEnqueuer,
	maxAttempts int) PostService {
	return &postService{
		pr:          pr,
		dr:          dr,
		ma:          ma,
		jr:          jr,
		jl:          jl,
		queue:       queue,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (*transfer.PostDetail, error) {
	if pc == nil || pc.MediaAssetID == "" {
		return nil, fmt.Errorf("%w: mediaAssetId is required", ErrInvalidInput)
	}

	owned, err := s.ma.CheckByUserID(ctx, pc.MediaAssetID, userID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, ErrMediaNotFound
	}

	visibility, err := parseVisibility(pc.Visibility)
	if err != nil {
		return nil, err
	}

	var scheduledAt *time.Time
	if pc.ScheduledAt != "" {
		t, err := time.Parse(time.RFC3339, pc.ScheduledAt)
		if err != nil {
			return nil, fmt.Errorf("%w: scheduledAt must be RFC3339: %v", ErrInvalidInput, err)
		}
		scheduledAt = &t
	}

	postID, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		ID:           postID,
		UserID:       userID,
		MediaAssetID: pc.MediaAssetID,
		Title:        strings.TrimSpace(pc.Title),
		Description:  pc.Description,
		Hashtags:     pc.Hashtags,
		Visibility:   visibility,
		ScheduledAt:  scheduledAt,
		Status:       models.PostStatusDraft,
	}

	destinations, err := buildDestinations(pc)
	if err != nil {
		return nil, err
	}

	if err := s.pr.CreateWithDestinations(ctx, post, destinations); err != nil {
		return nil, fmt.Errorf("error creating post: %w", err)
	}

	slog.Info("post created", "user_id", userID, "post_id", post.ID, "destinations", len(destinations))
	return &transfer.PostDetail{Post: post, Destinations: destinations}, nil
}

func buildDestinations(pc *transfer.PostCreation) ([]*models.PostDestination, error) {
	seen := make(map[models.Platform]bool, len(pc.Platforms))
	destinations := make([]*models.PostDestination, 0, len(pc.Platforms))

	for _, raw := range pc.Platforms {
		platform := models.Platform(strings.ToUpper(strings.TrimSpace(raw)))
		if !platform.Valid() {
			return nil, fmt.Errorf("%w: unknown platform %q", ErrInvalidInput, raw)
		}
		if seen[platform] {
			return nil, fmt.Errorf("%w: platform %s listed twice", ErrInvalidInput, platform)
		}
		seen[platform] = true

		id, err := gonanoid.New()
		if err != nil {
			return nil, err
		}

		d := &models.PostDestination{
			ID:       id,
			Platform: platform,
			Status:   models.DestinationStatusQueued,
		}

		if o, ok := overrideFor(pc.Overrides, platform); ok {
			visibility, err := parseVisibility(o.Visibility)
			if err != nil {
				return nil, err
			}
			d.PlatformTitle = strings.TrimSpace(o.Title)
			d.PlatformDescription = o.Description
			d.PlatformVisibility = visibility
		}

		destinations = append(destinations, d)
	}

	for key := range pc.Overrides {
		if !seen[models.Platform(strings.ToUpper(key))] {
			return nil, fmt.Errorf("%w: override for %q has no matching platform", ErrInvalidInput, key)
		}
	}

	return destinations, nil
}

func overrideFor(overrides map[string]transfer.DestinationOverride, platform models.Platform) (transfer.DestinationOverride, bool) {
	for key, o := range overrides {
		if models.Platform(strings.ToUpper(key)) == platform {
			return o, true
		}
	}
	return transfer.DestinationOverride{}, false
}

func parseVisibility(raw string) (models.Visibility, error) {
	if raw == "" {
		return "", nil
	}
	v := models.Visibility(strings.ToUpper(raw))
	if !v.Valid() {
		return "", fmt.Errorf("%w: unknown visibility %q", ErrInvalidInput, raw)
	}
	return v, nil
}

func (s *postService) ownedPost(ctx context.Context, userID int64, postID string) (*models.Post, error) {
	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil || post.UserID != userID {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (s *postService) PublishPost(ctx context.Context, userID int64, postID string) (*transfer.PublishResponse, error) {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	destinations, err := s.dr.ListByPostID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	if len(destinations) == 0 {
		return nil, ErrNoDestinations
	}

	platforms := make([]models.Platform, 0, len(destinations))
	for _, d := range destinations {
		platforms = append(platforms, d.Platform)
	}

	jobID, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	job := &models.Job{
		ID:          jobID,
		UserID:      userID,
		PostID:      post.ID,
		Type:        models.JobTypePublishPost,
		Status:      models.JobStatusPending,
		Payload:     models.JobPayload{PostID: post.ID, Platforms: platforms},
		MaxAttempts: s.maxAttempts,
		ScheduledAt: post.ScheduledAt,
	}
	if err := s.jr.Create(ctx, nil, job); err != nil {
		return nil, err
	}

	if err := s.pr.UpdateStatus(ctx, post.ID, models.PostStatusQueued); err != nil {
		return nil, err
	}

	var delay time.Duration
	if post.ScheduledAt != nil {
		delay = post.ScheduledAt.Sub(s.now())
	}
	if delay < 0 {
		delay = 0
	}

	if err := s.queue.EnqueuePublish(ctx, job.ID, job.MaxAttempts, delay); err != nil {
		slog.Error("enqueue publish job", "job_id", job.ID, "post_id", post.ID, "error", err)
		if markErr := s.jr.MarkFailed(ctx, job.ID, errorText(err)); markErr != nil {
			slog.Error("mark job failed after enqueue error", "job_id", job.ID, "error", markErr)
		}
		if resetErr := s.pr.UpdateStatus(ctx, post.ID, post.Status); resetErr != nil {
			slog.Error("reset post status after enqueue error", "post_id", post.ID, "error", resetErr)
		}
		return nil, fmt.Errorf("failed to enqueue publish job: %w", err)
	}

	slog.Info("publish job queued", "job_id", job.ID, "post_id", post.ID, "delay", delay)
	return &transfer.PublishResponse{JobID: job.ID, PostID: post.ID, Status: job.Status}, nil
}

func (s *postService) GetPost(ctx context.Context, userID int64, postID string) (*transfer.PostDetail, error) {
	post, err := s.ownedPost(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	destinations, err := s.dr.ListByPostID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	return &transfer.PostDetail{Post: post, Destinations: destinations}, nil
}

func (s *postService) ListPosts(ctx context.Context, userID int64) ([]*models.Post, error) {
	return s.pr.ListByUserID(ctx, userID)
}

func (s *postService) GetJob(ctx context.Context, userID int64, jobID string) (*transfer.JobDetail, error) {
	job, err := s.jr.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil || job.UserID != userID {
		return nil, ErrJobNotFound
	}

	logs, err := s.jl.ListByJobID(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	return &transfer.JobDetail{Job: job, Logs: logs}, nil
}
