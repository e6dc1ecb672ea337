package service

import (
	"context"
	"fmt"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platforms"
	"github.com/maheshrc27/crosspost/internal/repository"
)

// destinationRun drives one destination through a single job run. Every run
// starts at QUEUED no matter what an earlier run left behind, and each step
// is persisted before the next one begins.
type destinationRun struct {
	repo  repository.DestinationRepository
	d     *models.PostDestination
	state models.DestinationStatus
	now   func() time.Time
}

func newDestinationRun(repo repository.DestinationRepository, d *models.PostDestination, now func() time.Time) *destinationRun {
	return &destinationRun{repo: repo, d: d, state: models.DestinationStatusQueued, now: now}
}

func (r *destinationRun) transition(ctx context.Context, to models.DestinationStatus, persist func() error) error {
	if !models.CanTransition(r.state, to) {
		return fmt.Errorf("destination %s: illegal transition %s -> %s", r.d.ID, r.state, to)
	}
	if err := persist(); err != nil {
		return fmt.Errorf("persist destination %s %s: %w", r.d.ID, to, err)
	}
	r.state = to
	r.d.Status = to
	return nil
}

func (r *destinationRun) startUpload(ctx context.Context) error {
	return r.transition(ctx, models.DestinationStatusUploading, func() error {
		if err := r.repo.MarkUploading(ctx, r.d.ID); err != nil {
			return err
		}
		r.d.Attempts++
		return nil
	})
}

func (r *destinationRun) startProcessing(ctx context.Context) error {
	return r.transition(ctx, models.DestinationStatusProcessing, func() error {
		return r.repo.UpdateStatus(ctx, r.d.ID, models.DestinationStatusProcessing)
	})
}

func (r *destinationRun) publish(ctx context.Context, res *platforms.PublishResult) error {
	return r.transition(ctx, models.DestinationStatusPublished, func() error {
		if err := r.repo.MarkPublished(ctx, r.d.ID, res.ExternalPostID, res.ExternalMediaID); err != nil {
			return err
		}
		r.d.ExternalPostID = res.ExternalPostID
		r.d.ExternalMediaID = res.ExternalMediaID
		r.d.LastError = ""
		r.d.LastErrorAt = nil
		return nil
	})
}

func (r *destinationRun) fail(ctx context.Context, cause error) error {
	return r.transition(ctx, models.DestinationStatusFailed, func() error {
		at := r.now()
		msg := errorText(cause)
		if err := r.repo.MarkFailed(ctx, r.d.ID, msg, at); err != nil {
			return err
		}
		r.d.LastError = msg
		r.d.LastErrorAt = &at
		return nil
	})
}

// aggregatePostStatus derives a post's status from its destinations.
func aggregatePostStatus(destinations []*models.PostDestination) models.PostStatus {
	published := 0
	for _, d := range destinations {
		if d.Status == models.DestinationStatusPublished {
			published++
		}
	}

	switch {
	case published == len(destinations):
		return models.PostStatusPublished
	case published == 0:
		return models.PostStatusFailed
	default:
		return models.PostStatusPartiallyPublished
	}
}
