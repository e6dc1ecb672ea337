package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
)

var ErrUserNotFound = errors.New("user not found")

type UserService interface {
	GetProfile(ctx context.Context, userID int64) (*models.Profile, error)
}

type userService struct {
	users    repository.UserRepository
	accounts repository.ConnectedAccountRepository
}

func NewUserService(users repository.UserRepository, accounts repository.ConnectedAccountRepository) UserService {
	return &userService{users: users, accounts: accounts}
}

// GetProfile lists only active connections; a revoked or disconnected
// platform cannot be picked as a destination.
func (s *userService) GetProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	user, found, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	if !found {
		slog.Info("user not found", "user_id", userID)
		return nil, ErrUserNotFound
	}

	accounts, err := s.accounts.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load connections for user %d: %w", userID, err)
	}

	profile := &models.Profile{User: user, ConnectedPlatforms: []models.Platform{}}
	for _, a := range accounts {
		if a.IsActive {
			profile.ConnectedPlatforms = append(profile.ConnectedPlatforms, a.Platform)
		}
	}
	return profile, nil
}
