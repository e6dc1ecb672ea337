package transfer

import (
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
)

type GoogleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Connection is a connected account without token material.
type Connection struct {
	ID                  int64           `json:"id"`
	Platform            models.Platform `json:"platform"`
	ExternalUserID      string          `json:"externalUserId,omitempty"`
	ExternalUsername    string          `json:"externalUsername,omitempty"`
	ExternalPageID      string          `json:"externalPageId,omitempty"`
	ExternalIGAccountID string          `json:"externalIgAccountId,omitempty"`
	TokenType           string          `json:"tokenType,omitempty"`
	Scope               string          `json:"scope,omitempty"`
	ExpiresAt           *time.Time      `json:"expiresAt,omitempty"`
	IsActive            bool            `json:"isActive"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

func NewConnection(a *models.ConnectedAccount) Connection {
	return Connection{
		ID:                  a.ID,
		Platform:            a.Platform,
		ExternalUserID:      a.ExternalUserID,
		ExternalUsername:    a.ExternalUsername,
		ExternalPageID:      a.ExternalPageID,
		ExternalIGAccountID: a.ExternalIGAccountID,
		TokenType:           a.TokenType,
		Scope:               a.Scope,
		ExpiresAt:           a.ExpiresAt,
		IsActive:            a.IsActive,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
}
