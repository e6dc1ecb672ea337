package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platforms"
	"github.com/maheshrc27/crosspost/internal/repository"
)

// PublishService runs publish jobs delivered by the queue.
type PublishService interface {
	// RunJob executes one delivery of a job. A returned error means the
	// delivery failed; IsFatal tells whether retrying can help.
	RunJob(ctx context.Context, jobID string) error
	// HandleFailure records a failed delivery and reports whether it was
	// the last one. exhausted is set when the queue will not redeliver.
	HandleFailure(ctx context.Context, jobID string, runErr error, exhausted bool) (final bool, err error)
}

type publishService struct {
	jobs         repository.JobRepository
	logs         repository.JobLogRepository
	posts        repository.PostRepository
	destinations repository.DestinationRepository
	media        repository.MediaAssetRepository
	adapters     *platforms.Registry
	now          func() time.Time
}

func NewPublishService(
	jobs repository.JobRepository,
	logs repository.JobLogRepository,
	posts repository.PostRepository,
	destinations repository.DestinationRepository,
	media repository.MediaAssetRepository,
	adapters *platforms.Registry) PublishService {
	return &publishService{
		jobs:         jobs,
		logs:         logs,
		posts:        posts,
		destinations: destinations,
		media:        media,
		adapters:     adapters,
		now:          time.Now,
	}
}

func (s *publishService) RunJob(ctx context.Context, jobID string) error {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	if job.Status.IsTerminal() {
		s.log(ctx, job.ID, models.LogLevelWarn, "Job already finished, skipping delivery", map[string]any{
			"status": job.Status,
		})
		return nil
	}

	post, err := s.posts.GetByID(ctx, job.PostID)
	if err != nil {
		return err
	}
	if post == nil {
		return fmt.Errorf("%w: %s", ErrPostNotFound, job.PostID)
	}

	asset, err := s.media.GetByID(ctx, post.MediaAssetID)
	if err != nil {
		return err
	}
	if asset == nil {
		return fmt.Errorf("%w: %s", ErrMediaNotFound, post.MediaAssetID)
	}

	var destinations []*models.PostDestination
	if len(job.Payload.Platforms) > 0 {
		destinations, err = s.destinations.ListByPostIDAndPlatforms(ctx, post.ID, job.Payload.Platforms)
	} else {
		destinations, err = s.destinations.ListByPostID(ctx, post.ID)
	}
	if err != nil {
		return err
	}
	if len(destinations) == 0 {
		return fmt.Errorf("%w: %s", ErrNoDestinations, post.ID)
	}

	if err := s.jobs.MarkRunning(ctx, job.ID); err != nil {
		return err
	}
	job.Attempts++

	platformsToRun := make([]string, 0, len(destinations))
	for _, d := range destinations {
		platformsToRun = append(platformsToRun, string(d.Platform))
	}
	s.log(ctx, job.ID, models.LogLevelInfo, "Starting publish job", map[string]any{
		"postId":       post.ID,
		"destinations": platformsToRun,
		"attempt":      job.Attempts,
		"maxAttempts":  job.MaxAttempts,
	})

	for _, d := range destinations {
		if err := s.publishDestination(ctx, job, post, asset, d); err != nil {
			return err
		}
	}

	status := aggregatePostStatus(destinations)
	var publishedAt *time.Time
	if status == models.PostStatusPublished {
		at := s.now()
		publishedAt = &at
	}
	if err := s.posts.SetAggregateStatus(ctx, post.ID, status, publishedAt); err != nil {
		return err
	}

	if status == models.PostStatusFailed {
		s.log(ctx, job.ID, models.LogLevelError, "Publish job failed for all destinations", map[string]any{
			"postStatus": status,
		})
		return ErrAllDestinationsFailed
	}

	if err := s.jobs.MarkSucceeded(ctx, job.ID); err != nil {
		return err
	}
	s.log(ctx, job.ID, models.LogLevelInfo, "Publish job completed", map[string]any{
		"postStatus": status,
	})
	return nil
}

// publishDestination runs one destination to a terminal state. Adapter
// failures end in FAILED and return nil; only persistence errors are
// returned, since they leave the run in an unknown state.
func (s *publishService) publishDestination(ctx context.Context, job *models.Job, post *models.Post, asset *models.MediaAsset, d *models.PostDestination) error {
	// A worker that crashed after this destination published gets the job redelivered.
	if d.Status == models.DestinationStatusPublished && d.ExternalPostID != "" {
		s.log(ctx, job.ID, models.LogLevelWarn, fmt.Sprintf("%s already published, not publishing again", d.Platform), map[string]any{
			"platform":       d.Platform,
			"externalPostId": d.ExternalPostID,
		})
		return nil
	}

	run := newDestinationRun(s.destinations, d, s.now)
	params := platforms.PublishParams{Post: post, Destination: d, MediaAsset: asset, UserID: post.UserID}

	fail := func(cause error) error {
		if err := run.fail(ctx, cause); err != nil {
			return err
		}
		s.log(ctx, job.ID, models.LogLevelError, fmt.Sprintf("Failed to publish %s", d.Platform), map[string]any{
			"platform": d.Platform,
			"error":    d.LastError,
			"attempts": d.Attempts,
		})
		return nil
	}

	if err := run.startUpload(ctx); err != nil {
		return err
	}
	s.log(ctx, job.ID, models.LogLevelInfo, fmt.Sprintf("Uploading to %s", d.Platform), map[string]any{
		"platform": d.Platform,
		"attempts": d.Attempts,
	})

	adapter, err := s.adapters.Get(d.Platform)
	if err != nil {
		return fail(err)
	}

	upload, err := adapter.Upload(ctx, params)
	if err != nil {
		return fail(err)
	}

	if err := run.startProcessing(ctx); err != nil {
		return err
	}
	s.log(ctx, job.ID, models.LogLevelInfo, fmt.Sprintf("Processing %s", d.Platform), map[string]any{
		"platform": d.Platform,
	})

	result, err := adapter.Finalize(ctx, params, upload)
	if err != nil {
		return fail(err)
	}

	if err := run.publish(ctx, result); err != nil {
		return err
	}
	s.log(ctx, job.ID, models.LogLevelInfo, fmt.Sprintf("Published to %s", d.Platform), map[string]any{
		"platform":       d.Platform,
		"externalPostId": result.ExternalPostID,
	})
	return nil
}

func (s *publishService) HandleFailure(ctx context.Context, jobID string, runErr error, exhausted bool) (bool, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return false, err
	}
	if job == nil {
		return true, nil
	}
	if job.Status.IsTerminal() {
		return true, nil
	}

	final := IsFatal(runErr) || exhausted || job.Attempts >= job.MaxAttempts
	msg := errorText(runErr)

	if final {
		err = s.jobs.MarkFailed(ctx, job.ID, msg)
	} else {
		err = s.jobs.MarkPending(ctx, job.ID, msg)
	}
	if err != nil {
		return final, err
	}

	s.log(ctx, job.ID, models.LogLevelError, "Publish job failed", map[string]any{
		"error":        msg,
		"attemptsMade": job.Attempts,
		"maxAttempts":  job.MaxAttempts,
		"final":        final,
	})
	return final, nil
}

// log appends a job log entry and mirrors it to slog. A failed write is
// reported but never fails the run.
func (s *publishService) log(ctx context.Context, jobID string, level models.LogLevel, message string, data map[string]any) {
	attrs := []any{"job_id", jobID}
	for k, v := range data {
		attrs = append(attrs, k, v)
	}

	switch level {
	case models.LogLevelError:
		slog.Error(message, attrs...)
	case models.LogLevelWarn:
		slog.Warn(message, attrs...)
	default:
		slog.Info(message, attrs...)
	}

	entry := &models.JobLog{JobID: jobID, Level: level, Message: message, Data: data}
	if err := s.logs.Append(ctx, entry); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("append job log", "job_id", jobID, "error", err)
	}
}
