package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/transfer"
	"github.com/maheshrc27/crosspost/pkg/utils"
)

const googleRevokeURL = "https://oauth2.googleapis.com/revoke"

type PlatformService interface {
	List(ctx context.Context, userID int64) ([]transfer.Connection, error)
	Disconnect(ctx context.Context, userID int64, platform models.Platform) error
}

type platformService struct {
	accounts  repository.ConnectedAccountRepository
	cipher    *utils.Cipher
	client    *http.Client
	revokeURL string
}

func NewPlatformService(accounts repository.ConnectedAccountRepository, cipher *utils.Cipher, client *http.Client) PlatformService {
	if client == nil {
		client = http.DefaultClient
	}
	return &platformService{
		accounts:  accounts,
		cipher:    cipher,
		client:    client,
		revokeURL: googleRevokeURL,
	}
}

func (s *platformService) List(ctx context.Context, userID int64) ([]transfer.Connection, error) {
	accounts, err := s.accounts.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	connections := make([]transfer.Connection, 0, len(accounts))
	for _, a := range accounts {
		connections = append(connections, transfer.NewConnection(a))
	}
	return connections, nil
}

// Disconnect deactivates the account. Revoking the grant at the provider
// is attempted but its failure does not keep the account connected.
func (s *platformService) Disconnect(ctx context.Context, userID int64, platform models.Platform) error {
	account, err := s.accounts.GetByUserAndPlatform(ctx, userID, platform)
	if err != nil {
		return err
	}
	if account == nil || !account.IsActive {
		return fmt.Errorf("%s: %w", platform, ErrNotConnected)
	}

	if platform == models.PlatformYoutube {
		if err := s.revokeGoogle(ctx, account); err != nil {
			slog.Warn("revoke google access", "user_id", userID, "error", err)
		}
	}

	return s.accounts.Deactivate(ctx, userID, platform)
}

func (s *platformService) revokeGoogle(ctx context.Context, account *models.ConnectedAccount) error {
	// Revoking the refresh token also kills its access tokens.
	stored := account.RefreshToken
	if stored == "" {
		stored = account.AccessToken
	}
	if stored == "" {
		return nil
	}

	token, err := s.cipher.Decrypt(stored)
	if err != nil {
		return err
	}

	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to revoke token, status code: %d", resp.StatusCode)
	}
	return nil
}
