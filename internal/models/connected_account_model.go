package models

import "time"

// ConnectedAccount holds one user's OAuth credentials for one platform.
// AccessToken and RefreshToken are encrypted envelopes.
type ConnectedAccount struct {
	ID                  int64      `db:"id" json:"id"`
	UserID              int64      `db:"user_id" json:"user_id"`
	Platform            Platform   `db:"platform" json:"platform"`
	AccessToken         string     `db:"access_token" json:"-"`
	RefreshToken        string     `db:"refresh_token" json:"-"`
	TokenType           string     `db:"token_type" json:"token_type,omitempty"`
	Scope               string     `db:"scope" json:"scope,omitempty"`
	ExpiresAt           *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	IsActive            bool       `db:"is_active" json:"is_active"`
	ExternalUserID      string     `db:"external_user_id" json:"external_user_id,omitempty"`
	ExternalUsername    string     `db:"external_username" json:"external_username,omitempty"`
	ExternalPageID      string     `db:"external_page_id" json:"external_page_id,omitempty"`
	ExternalIGAccountID string     `db:"external_ig_account_id" json:"external_ig_account_id,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// TokenUpdate carries the result of a refresh. Empty strings keep the stored
// value.
type TokenUpdate struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresAt    time.Time
}
