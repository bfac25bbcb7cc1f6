package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ranchforce/agriwebb-sync/pkg/apperrors"
	"github.com/ranchforce/agriwebb-sync/pkg/crypto"
	"github.com/ranchforce/agriwebb-sync/pkg/models"
)

// TokenRepository persists AgriWebb OAuth credentials, one row per
// (user, organization). Tokens are sealed before they reach the database.
type TokenRepository interface {
	// Save inserts the token or replaces the existing row for its owner.
	Save(ctx context.Context, tok *models.AgriWebbToken) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AgriWebbToken, error)
	List(ctx context.Context) ([]*models.AgriWebbToken, error)
	// Update rewrites owner, credential pair and expiry in a single statement.
	Update(ctx context.Context, tok *models.AgriWebbToken) error
	MarkExpired(ctx context.Context, id uuid.UUID) error
}

type tokenRepository struct {
	sealer *crypto.TokenSealer
}

// NewTokenRepository creates a token repository that seals with sealer.
func NewTokenRepository(sealer *crypto.TokenSealer) TokenRepository {
	return &tokenRepository{sealer: sealer}
}

var _ TokenRepository = (*tokenRepository)(nil)

const tokenColumns = `id, user_id, organization, access_token, refresh_token, token_type,
	expires_in_seconds, expires_at, is_expired, created_at, updated_at`

func (r *tokenRepository) seal(tok *models.AgriWebbToken) (access, refresh string, err error) {
	owner := crypto.Owner(tok.UserID, tok.Organization)
	if access, err = r.sealer.Seal(tok.AccessToken, owner); err != nil {
		return "", "", fmt.Errorf("failed to seal access token: %w", err)
	}
	if refresh, err = r.sealer.Seal(tok.RefreshToken, owner); err != nil {
		return "", "", fmt.Errorf("failed to seal refresh token: %w", err)
	}
	return access, refresh, nil
}

func (r *tokenRepository) Save(ctx context.Context, tok *models.AgriWebbToken) error {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return err
	}

	access, refresh, err := r.seal(tok)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO agw_tokens (user_id, organization, access_token, refresh_token, token_type,
			expires_in_seconds, expires_at, is_expired, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT ON CONSTRAINT agw_tokens_user_org_key DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    refresh_token = EXCLUDED.refresh_token,
		    token_type = EXCLUDED.token_type,
		    expires_in_seconds = EXCLUDED.expires_in_seconds,
		    expires_at = EXCLUDED.expires_at,
		    is_expired = EXCLUDED.is_expired,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`

	err = scope.QueryRow(ctx, query,
		tok.UserID,
		tok.Organization,
		access,
		refresh,
		tok.TokenType,
		tok.ExpiresInSeconds,
		tok.ExpiresAt,
		tok.IsExpired,
		tok.CreatedAt,
		tok.UpdatedAt,
	).Scan(&tok.ID, &tok.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func (r *tokenRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AgriWebbToken, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	row := scope.QueryRow(ctx, `SELECT `+tokenColumns+` FROM agw_tokens WHERE id = $1`, id)
	return r.scanToken(row)
}

func (r *tokenRepository) List(ctx context.Context) ([]*models.AgriWebbToken, error) {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := scope.Query(ctx, `SELECT `+tokenColumns+` FROM agw_tokens ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*models.AgriWebbToken
	for rows.Next() {
		tok, err := r.scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tokens: %w", err)
	}
	return tokens, nil
}

func (r *tokenRepository) Update(ctx context.Context, tok *models.AgriWebbToken) error {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return err
	}

	access, refresh, err := r.seal(tok)
	if err != nil {
		return err
	}

	query := `
		UPDATE agw_tokens
		SET user_id = $2,
		    organization = $3,
		    access_token = $4,
		    refresh_token = $5,
		    token_type = $6,
		    expires_in_seconds = $7,
		    expires_at = $8,
		    is_expired = $9,
		    updated_at = $10
		WHERE id = $1`

	result, err := scope.Exec(ctx, query,
		tok.ID,
		tok.UserID,
		tok.Organization,
		access,
		refresh,
		tok.TokenType,
		tok.ExpiresInSeconds,
		tok.ExpiresAt,
		tok.IsExpired,
		tok.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("token for this user and organization already exists: %w", apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to update token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *tokenRepository) MarkExpired(ctx context.Context, id uuid.UUID) error {
	scope, err := scopeFrom(ctx)
	if err != nil {
		return err
	}

	result, err := scope.Exec(ctx,
		`UPDATE agw_tokens SET is_expired = true, updated_at = $2 WHERE id = $1`,
		id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark token expired: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *tokenRepository) scanToken(row pgx.Row) (*models.AgriWebbToken, error) {
	var tok models.AgriWebbToken
	var access, refresh string
	err := row.Scan(
		&tok.ID,
		&tok.UserID,
		&tok.Organization,
		&access,
		&refresh,
		&tok.TokenType,
		&tok.ExpiresInSeconds,
		&tok.ExpiresAt,
		&tok.IsExpired,
		&tok.CreatedAt,
		&tok.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan token: %w", err)
	}

	owner := crypto.Owner(tok.UserID, tok.Organization)
	if tok.AccessToken, err = r.sealer.Open(access, owner); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrTokenKeyMismatch, err)
	}
	if tok.RefreshToken, err = r.sealer.Open(refresh, owner); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrTokenKeyMismatch, err)
	}
	return &tok, nil
}
