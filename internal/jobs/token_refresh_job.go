package job

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/service"
)

const refreshConcurrency = 10

// ExpiringAccounts is the part of the account store the refresh job reads.
type ExpiringAccounts interface {
	ListExpiring(ctx context.Context, before time.Time) ([]*models.ConnectedAccount, error)
}

// TokenRefreshJob refreshes access tokens shortly before they expire so a
// publish rarely has to refresh inline.
type TokenRefreshJob struct {
	accounts ExpiringAccounts
	tokens   service.TokenService
	window   time.Duration
	now      func() time.Time
}

func NewTokenRefreshJob(accounts ExpiringAccounts, tokens service.TokenService, window time.Duration) *TokenRefreshJob {
	return &TokenRefreshJob{
		accounts: accounts,
		tokens:   tokens,
		window:   window,
		now:      time.Now,
	}
}

// RefreshTokens is the cron entry point.
func (j *TokenRefreshJob) RefreshTokens() {
	refreshed, failed, err := j.Run(context.Background())
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if refreshed+failed > 0 {
		slog.Info("token refresh finished", "refreshed", refreshed, "failed", failed)
	}
}

func (j *TokenRefreshJob) Run(ctx context.Context) (int, int, error) {
	accounts, err := j.accounts.ListExpiring(ctx, j.now().Add(j.window))
	if err != nil {
		return 0, 0, err
	}

	var wg sync.WaitGroup
	var refreshed, failed atomic.Int64
	semaphore := make(chan struct{}, refreshConcurrency)

	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.ConnectedAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if _, err := j.tokens.ForceRefresh(ctx, acc.UserID, acc.Platform); err != nil {
				failed.Add(1)
				slog.Info("unable to refresh token", "user_id", acc.UserID, "platform", acc.Platform, "error", err)
				return
			}
			refreshed.Add(1)
		}(acc)
	}

	wg.Wait()
	return int(refreshed.Load()), int(failed.Load()), nil
}
