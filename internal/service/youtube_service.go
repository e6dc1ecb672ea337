package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/pkg/utils"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YoutubeService connects a user's YouTube channel through Google OAuth.
type YoutubeService interface {
	AuthURL(userID int64) (string, error)
	// Callback finishes the consent round trip and returns the user the
	// state was issued to.
	Callback(ctx context.Context, code, state string) (int64, error)
}

type youtubeService struct {
	oauth       *oauth2.Config
	stateSecret []byte
	cipher      *utils.Cipher
	accounts    repository.ConnectedAccountRepository
	// apiOpts are appended to youtube.NewService calls.
	apiOpts []option.ClientOption
}

func NewYoutubeService(
	oauth *oauth2.Config,
	stateSecret string,
	cipher *utils.Cipher,
	accounts repository.ConnectedAccountRepository,
	apiOpts ...option.ClientOption) YoutubeService {
	return &youtubeService{
		oauth:       oauth,
		stateSecret: []byte(stateSecret),
		cipher:      cipher,
		accounts:    accounts,
		apiOpts:     apiOpts,
	}
}

func (s *youtubeService) AuthURL(userID int64) (string, error) {
	state, err := utils.EncodeState(s.stateSecret, utils.OAuthState{
		UserID: strconv.FormatInt(userID, 10),
		Nonce:  uuid.NewString(),
	})
	if err != nil {
		return "", err
	}

	return s.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	), nil
}

func (s *youtubeService) Callback(ctx context.Context, code, state string) (int64, error) {
	if code == "" || state == "" {
		return 0, fmt.Errorf("%w: code or state is empty", ErrInvalidInput)
	}

	payload, err := utils.DecodeState(s.stateSecret, state)
	if err != nil {
		return 0, err
	}
	userID, err := strconv.ParseInt(payload.UserID, 10, 64)
	if err != nil {
		return 0, utils.ErrInvalidState
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return 0, fmt.Errorf("exchange code: %w", err)
	}
	if token.AccessToken == "" {
		return 0, errors.New("google returned no access token")
	}

	channelID, channelTitle, err := s.channelProfile(ctx, token)
	if err != nil {
		// The connection is still usable without profile details.
		slog.Warn("fetch youtube channel", "user_id", userID, "error", err)
	}

	account := &models.ConnectedAccount{
		UserID:           userID,
		Platform:         models.PlatformYoutube,
		TokenType:        token.TokenType,
		ExternalUserID:   channelID,
		ExternalUsername: channelTitle,
	}
	if scope, ok := token.Extra("scope").(string); ok {
		account.Scope = scope
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		account.ExpiresAt = &expiry
	}

	account.AccessToken, err = s.cipher.Encrypt(token.AccessToken)
	if err != nil {
		return 0, err
	}
	// Google only sends a refresh token on the first consent; Upsert keeps
	// the stored one when this is empty.
	if token.RefreshToken != "" {
		account.RefreshToken, err = s.cipher.Encrypt(token.RefreshToken)
		if err != nil {
			return 0, err
		}
	}

	if _, err := s.accounts.Upsert(ctx, account); err != nil {
		return 0, err
	}

	slog.Info("youtube connected", "user_id", userID, "channel_id", channelID)
	return userID, nil
}

func (s *youtubeService) channelProfile(ctx context.Context, token *oauth2.Token) (string, string, error) {
	opts := append([]option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(token)),
	}, s.apiOpts...)

	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return "", "", err
	}

	response, err := service.Channels.List([]string{"snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return "", "", err
	}
	if len(response.Items) == 0 {
		return "", "", nil
	}

	channel := response.Items[0]
	title := ""
	if channel.Snippet != nil {
		title = channel.Snippet.Title
	}
	return channel.Id, title, nil
}
