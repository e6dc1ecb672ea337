package service

import (
	"context"
	"fmt"

	config "github.com/maheshrc27/crosspost/configs"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var YoutubeScopes = []string{
	"https://www.googleapis.com/auth/youtube.upload",
	"https://www.googleapis.com/auth/youtube.readonly",
}

func NewGoogleOAuthConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURI,
		Scopes:       YoutubeScopes,
		Endpoint:     google.Endpoint,
	}
}

// GoogleRefresher refreshes Google-issued tokens.
type GoogleRefresher struct {
	oauth *oauth2.Config
}

func NewGoogleRefresher(oauth *oauth2.Config) *GoogleRefresher {
	return &GoogleRefresher{oauth: oauth}
}

func (r *GoogleRefresher) Refresh(ctx context.Context, refreshToken string) (*RefreshedToken, error) {
	// Without an access token the source goes straight to the token endpoint.
	tok, err := r.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("google token endpoint: %w", err)
	}

	refreshed := &RefreshedToken{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		Expiry:      tok.Expiry,
	}
	// The token source copies the old refresh token forward when Google
	// does not rotate it; only report a genuinely new one.
	if tok.RefreshToken != refreshToken {
		refreshed.RefreshToken = tok.RefreshToken
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		refreshed.Scope = scope
	}
	return refreshed, nil
}
