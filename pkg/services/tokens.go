package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ranchforce/agriwebb-sync/pkg/agriwebb"
	"github.com/ranchforce/agriwebb-sync/pkg/apperrors"
	"github.com/ranchforce/agriwebb-sync/pkg/metrics"
	"github.com/ranchforce/agriwebb-sync/pkg/models"
	"github.com/ranchforce/agriwebb-sync/pkg/repositories"
)

// Database installs repository scopes on a context. *database.DB satisfies it.
type Database interface {
	WithPool(ctx context.Context) context.Context
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TokenProvider is the OAuth side of the AgriWebb client.
type TokenProvider interface {
	AuthorizationURL(state, organization string) string
	Exchange(ctx context.Context, code string) (*agriwebb.Grant, error)
	Refresh(ctx context.Context, refreshToken string) (*agriwebb.Grant, error)
}

var _ TokenProvider = (*agriwebb.Client)(nil)

// TokenService manages the lifecycle of stored AgriWebb credentials.
type TokenService interface {
	// Store persists a freshly granted token for the (user, organization) pair,
	// replacing any previous token of that owner.
	Store(ctx context.Context, userID, organization string, grant *agriwebb.Grant) (*models.AgriWebbToken, error)
	Get(ctx context.Context, id uuid.UUID) (*models.AgriWebbToken, error)
	List(ctx context.Context) ([]*models.AgriWebbToken, error)
	// Refresh replaces the credential pair and expiry in one update.
	Refresh(ctx context.Context, id uuid.UUID) (*models.AgriWebbToken, error)
	// EnsureFresh returns usable credentials, refreshing an expired token first.
	EnsureFresh(ctx context.Context, id uuid.UUID) (agriwebb.Credentials, error)
	SetOrganization(ctx context.Context, id uuid.UUID, organization string) (*models.AgriWebbToken, error)
}

type tokenService struct {
	db       Database
	repo     repositories.TokenRepository
	provider TokenProvider
	now      func() time.Time
	logger   *zap.Logger
}

// NewTokenService creates a token service.
func NewTokenService(db Database, repo repositories.TokenRepository, provider TokenProvider, logger *zap.Logger) TokenService {
	return &tokenService{
		db:       db,
		repo:     repo,
		provider: provider,
		now:      time.Now,
		logger:   logger.Named("tokens"),
	}
}

var _ TokenService = (*tokenService)(nil)

func (s *tokenService) Store(ctx context.Context, userID, organization string, grant *agriwebb.Grant) (*models.AgriWebbToken, error) {
	if grant == nil || grant.AccessToken == "" {
		return nil, fmt.Errorf("%w: grant has no access token", agriwebb.ErrAuthentication)
	}

	tok := models.NewAgriWebbToken(userID, organization,
		grant.AccessToken, grant.RefreshToken, grant.TokenType, grant.ExpiresIn, s.now())

	if err := s.repo.Save(s.db.WithPool(ctx), tok); err != nil {
		return nil, err
	}

	s.logger.Info("Stored AgriWebb token",
		zap.String("token_id", tok.ID.String()),
		zap.String("user_id", userID),
		zap.String("organization", organization),
		zap.Time("expires_at", tok.ExpiresAt))

	return tok, nil
}

func (s *tokenService) Get(ctx context.Context, id uuid.UUID) (*models.AgriWebbToken, error) {
	return s.repo.GetByID(s.db.WithPool(ctx), id)
}

func (s *tokenService) List(ctx context.Context) ([]*models.AgriWebbToken, error) {
	return s.repo.List(s.db.WithPool(ctx))
}

func (s *tokenService) Refresh(ctx context.Context, id uuid.UUID) (*models.AgriWebbToken, error) {
	ctx = s.db.WithPool(ctx)

	tok, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.refresh(ctx, tok)
}

func (s *tokenService) refresh(ctx context.Context, tok *models.AgriWebbToken) (*models.AgriWebbToken, error) {
	if tok.RefreshToken == "" {
		if err := s.repo.MarkExpired(ctx, tok.ID); err != nil {
			return nil, err
		}
		tok.IsExpired = true
		return nil, apperrors.ErrNoRefreshToken
	}

	grant, err := s.provider.Refresh(ctx, tok.RefreshToken)
	metrics.RecordTokenRefresh(err)
	if err != nil {
		return nil, err
	}

	tok.ApplyRefresh(grant.AccessToken, grant.RefreshToken, grant.TokenType, grant.ExpiresIn, s.now())
	if err := s.repo.Update(ctx, tok); err != nil {
		return nil, err
	}

	s.logger.Info("Refreshed AgriWebb token",
		zap.String("token_id", tok.ID.String()),
		zap.Time("expires_at", tok.ExpiresAt))

	return tok, nil
}

func (s *tokenService) EnsureFresh(ctx context.Context, id uuid.UUID) (agriwebb.Credentials, error) {
	ctx = s.db.WithPool(ctx)

	tok, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return agriwebb.Credentials{}, err
	}

	if tok.IsExpired || tok.CheckExpired(s.now()) {
		s.logger.Debug("Token expired, refreshing", zap.String("token_id", id.String()))
		if tok, err = s.refresh(ctx, tok); err != nil {
			return agriwebb.Credentials{}, err
		}
	}

	return agriwebb.Credentials{TokenType: tok.TokenType, AccessToken: tok.AccessToken}, nil
}

func (s *tokenService) SetOrganization(ctx context.Context, id uuid.UUID, organization string) (*models.AgriWebbToken, error) {
	ctx = s.db.WithPool(ctx)

	tok, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	tok.Organization = organization
	tok.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, tok); err != nil {
		return nil, err
	}
	return tok, nil
}
