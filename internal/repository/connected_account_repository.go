package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
)

// ConnectedAccountRepository stores OAuth credentials. Token columns hold
// encrypted envelopes; this layer never sees plaintext.
type ConnectedAccountRepository interface {
	GetByUserAndPlatform(ctx context.Context, userID int64, platform models.Platform) (*models.ConnectedAccount, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.ConnectedAccount, error)
	ListExpiring(ctx context.Context, before time.Time) ([]*models.ConnectedAccount, error)
	Upsert(ctx context.Context, account *models.ConnectedAccount) (int64, error)
	UpdateTokens(ctx context.Context, id int64, update models.TokenUpdate) error
	Deactivate(ctx context.Context, userID int64, platform models.Platform) error
}

type connectedAccountRepository struct {
	db *sql.DB
}

func NewConnectedAccountRepository(db *sql.DB) ConnectedAccountRepository {
	return &connectedAccountRepository{db: db}
}

const connectedAccountColumns = `id, user_id, platform, access_token, refresh_token, token_type, scope, expires_at, is_active,
	external_user_id, external_username, external_page_id, external_ig_account_id, created_at, updated_at`

func scanConnectedAccount(row scanner) (*models.ConnectedAccount, error) {
	var a models.ConnectedAccount
	var accessToken, refreshToken, tokenType, scope sql.NullString
	var externalUserID, externalUsername, externalPageID, externalIGAccountID sql.NullString
	var expiresAt sql.NullTime

	err := row.Scan(&a.ID, &a.UserID, &a.Platform, &accessToken, &refreshToken, &tokenType, &scope, &expiresAt, &a.IsActive,
		&externalUserID, &externalUsername, &externalPageID, &externalIGAccountID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}

	a.AccessToken = accessToken.String
	a.RefreshToken = refreshToken.String
	a.TokenType = tokenType.String
	a.Scope = scope.String
	a.ExpiresAt = timePtr(expiresAt)
	a.ExternalUserID = externalUserID.String
	a.ExternalUsername = externalUsername.String
	a.ExternalPageID = externalPageID.String
	a.ExternalIGAccountID = externalIGAccountID.String
	return &a, nil
}

func (r *connectedAccountRepository) GetByUserAndPlatform(ctx context.Context, userID int64, platform models.Platform) (*models.ConnectedAccount, error) {
	query := "SELECT " + connectedAccountColumns + " FROM connected_accounts WHERE user_id = $1 AND platform = $2"
	account, err := scanConnectedAccount(r.db.QueryRowContext(ctx, query, userID, platform))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return account, nil
}

func (r *connectedAccountRepository) list(ctx context.Context, query string, args ...any) ([]*models.ConnectedAccount, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.ConnectedAccount
	for rows.Next() {
		account, err := scanConnectedAccount(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (r *connectedAccountRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.ConnectedAccount, error) {
	query := "SELECT " + connectedAccountColumns + " FROM connected_accounts WHERE user_id = $1 ORDER BY platform"
	return r.list(ctx, query, userID)
}

// ListExpiring returns active accounts that can be refreshed and expire
// before the given time.
func (r *connectedAccountRepository) ListExpiring(ctx context.Context, before time.Time) ([]*models.ConnectedAccount, error) {
	query := "SELECT " + connectedAccountColumns + ` FROM connected_accounts
		WHERE is_active = TRUE
			AND refresh_token IS NOT NULL
			AND (expires_at IS NULL OR expires_at <= $1)`
	return r.list(ctx, query, before)
}

// Upsert stores a freshly issued credential. A missing refresh token keeps
// the one already on file.
func (r *connectedAccountRepository) Upsert(ctx context.Context, a *models.ConnectedAccount) (int64, error) {
	query := `
		INSERT INTO connected_accounts (
			user_id,
			platform,
			access_token,
			refresh_token,
			token_type,
			scope,
			expires_at,
			is_active,
			external_user_id,
			external_username,
			external_page_id,
			external_ig_account_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $9, $10, $11)
		ON CONFLICT (user_id, platform) DO UPDATE
		SET access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(EXCLUDED.refresh_token, connected_accounts.refresh_token),
			token_type = EXCLUDED.token_type,
			scope = EXCLUDED.scope,
			expires_at = EXCLUDED.expires_at,
			is_active = TRUE,
			external_user_id = EXCLUDED.external_user_id,
			external_username = EXCLUDED.external_username,
			external_page_id = EXCLUDED.external_page_id,
			external_ig_account_id = EXCLUDED.external_ig_account_id,
			updated_at = NOW()
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		a.UserID,
		a.Platform,
		a.AccessToken,
		nullString(a.RefreshToken),
		nullString(a.TokenType),
		nullString(a.Scope),
		nullTime(a.ExpiresAt),
		nullString(a.ExternalUserID),
		nullString(a.ExternalUsername),
		nullString(a.ExternalPageID),
		nullString(a.ExternalIGAccountID),
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

// UpdateTokens persists a refresh result in one statement. Empty fields in
// update keep their stored values.
func (r *connectedAccountRepository) UpdateTokens(ctx context.Context, id int64, update models.TokenUpdate) error {
	query := `
		UPDATE connected_accounts
		SET access_token = $1,
			refresh_token = COALESCE($2, refresh_token),
			token_type = COALESCE($3, token_type),
			scope = COALESCE($4, scope),
			expires_at = $5,
			is_active = TRUE,
			updated_at = $6
		WHERE id = $7
	`
	_, err := r.db.ExecContext(ctx, query,
		update.AccessToken,
		nullString(update.RefreshToken),
		nullString(update.TokenType),
		nullString(update.Scope),
		update.ExpiresAt,
		time.Now(),
		id,
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *connectedAccountRepository) Deactivate(ctx context.Context, userID int64, platform models.Platform) error {
	query := `
		UPDATE connected_accounts
		SET is_active = FALSE,
			updated_at = $1
		WHERE user_id = $2 AND platform = $3
	`
	_, err := r.db.ExecContext(ctx, query, time.Now(), userID, platform)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
