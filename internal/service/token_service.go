package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/pkg/utils"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTokenLifetime = time.Hour
	refreshTimeout       = 30 * time.Second
)

type RefreshedToken struct {
	AccessToken string
	// RefreshToken is empty when the provider did not issue a new one.
	RefreshToken string
	TokenType    string
	Scope        string
	Expiry       time.Time
}

// TokenRefresher exchanges a refresh token with the identity provider.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*RefreshedToken, error)
}

type TokenService interface {
	GetValidAccessToken(ctx context.Context, userID int64, platform models.Platform) (string, error)
	ForceRefresh(ctx context.Context, userID int64, platform models.Platform) (string, error)
}

type tokenService struct {
	accounts   repository.ConnectedAccountRepository
	cipher     *utils.Cipher
	refreshers map[models.Platform]TokenRefresher
	margin     time.Duration

	// group collapses concurrent refreshes of one account into a single
	// provider call.
	group singleflight.Group
	now   func() time.Time
}

func NewTokenService(
	accounts repository.ConnectedAccountRepository,
	cipher *utils.Cipher,
	margin time.Duration,
	refreshers map[models.Platform]TokenRefresher) TokenService {
	return &tokenService{
		accounts:   accounts,
		cipher:     cipher,
		refreshers: refreshers,
		margin:     margin,
		now:        time.Now,
	}
}

func (s *tokenService) GetValidAccessToken(ctx context.Context, userID int64, platform models.Platform) (string, error) {
	account, err := s.activeAccount(ctx, userID, platform)
	if err != nil {
		return "", err
	}

	if account.AccessToken == "" {
		return "", fmt.Errorf("%s: %w", platform, ErrMissingToken)
	}

	accessToken, err := s.cipher.Decrypt(account.AccessToken)
	if err != nil {
		slog.Error("decrypt access token", "user_id", userID, "platform", platform, "error", err)
		return "", fmt.Errorf("decrypt %s access token: %w", platform, err)
	}

	if !s.isStale(account) {
		return accessToken, nil
	}

	return s.refresh(ctx, account)
}

func (s *tokenService) ForceRefresh(ctx context.Context, userID int64, platform models.Platform) (string, error) {
	account, err := s.activeAccount(ctx, userID, platform)
	if err != nil {
		return "", err
	}
	return s.refresh(ctx, account)
}

func (s *tokenService) activeAccount(ctx context.Context, userID int64, platform models.Platform) (*models.ConnectedAccount, error) {
	account, err := s.accounts.GetByUserAndPlatform(ctx, userID, platform)
	if err != nil {
		return nil, err
	}
	if account == nil || !account.IsActive {
		return nil, fmt.Errorf("%s: %w", platform, ErrNotConnected)
	}
	return account, nil
}

// isStale treats a missing expiry as expired.
func (s *tokenService) isStale(account *models.ConnectedAccount) bool {
	if account.ExpiresAt == nil {
		return true
	}
	return !account.ExpiresAt.After(s.now().Add(s.margin))
}

func (s *tokenService) refresh(ctx context.Context, account *models.ConnectedAccount) (string, error) {
	key := fmt.Sprintf("%d:%s", account.UserID, account.Platform)
	// Callers joining the flight share its result, not the first caller's cancellation.
	ch := s.group.DoChan(key, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return s.doRefresh(flightCtx, account)
	})
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (s *tokenService) doRefresh(ctx context.Context, account *models.ConnectedAccount) (string, error) {
	if account.RefreshToken == "" {
		return "", fmt.Errorf("%s: %w", account.Platform, ErrUnrecoverable)
	}

	refresher, ok := s.refreshers[account.Platform]
	if !ok {
		return "", fmt.Errorf("%w: no token refresher for %s", ErrRefreshFailed, account.Platform)
	}

	refreshToken, err := s.cipher.Decrypt(account.RefreshToken)
	if err != nil {
		slog.Error("decrypt refresh token", "user_id", account.UserID, "platform", account.Platform, "error", err)
		return "", fmt.Errorf("decrypt %s refresh token: %w", account.Platform, err)
	}

	refreshed, err := refresher.Refresh(ctx, refreshToken)
	if err != nil {
		slog.Info("token refresh failed", "user_id", account.UserID, "platform", account.Platform, "error", err)
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	if refreshed.AccessToken == "" {
		return "", fmt.Errorf("%w: provider returned no access token", ErrRefreshFailed)
	}

	update := models.TokenUpdate{
		TokenType: refreshed.TokenType,
		Scope:     refreshed.Scope,
		ExpiresAt: refreshed.Expiry,
	}
	if update.ExpiresAt.IsZero() {
		update.ExpiresAt = s.now().Add(defaultTokenLifetime)
	}

	update.AccessToken, err = s.cipher.Encrypt(refreshed.AccessToken)
	if err != nil {
		return "", err
	}
	if refreshed.RefreshToken != "" {
		update.RefreshToken, err = s.cipher.Encrypt(refreshed.RefreshToken)
		if err != nil {
			return "", err
		}
	}

	if err := s.accounts.UpdateTokens(ctx, account.ID, update); err != nil {
		return "", err
	}

	slog.Info("token refreshed", "user_id", account.UserID, "platform", account.Platform, "expires_at", update.ExpiresAt)
	return refreshed.AccessToken, nil
}
