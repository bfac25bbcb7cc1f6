// Package services contains the business logic of agriwebb-sync.
package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ranchforce/agriwebb-sync/pkg/apperrors"
	"github.com/ranchforce/agriwebb-sync/pkg/models"
)

// Common OAuth errors.
var (
	ErrAuthorizationDenied = errors.New("authorization denied by provider")
	ErrMissingCode         = errors.New("missing authorization code")
)

// Authorization is a consent redirect and the state it was issued with.
type Authorization struct {
	URL   string
	State string
}

// CallbackRequest carries the provider redirect parameters together with
// what the session remembered when the flow started.
type CallbackRequest struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string

	// ExpectedState is the state stored in the session by Authorize.
	ExpectedState string
	UserID        string
	Organization  string
}

// OAuthService runs the authorization code flow against AgriWebb.
type OAuthService interface {
	// Authorize issues a fresh state and the consent URL carrying it.
	Authorize(organization string) (*Authorization, error)
	// Complete validates the callback, exchanges the code and stores the token.
	Complete(ctx context.Context, req *CallbackRequest) (*models.AgriWebbToken, error)
}

type oauthService struct {
	provider TokenProvider
	tokens   TokenService
	logger   *zap.Logger
}

// NewOAuthService creates a new OAuth service.
func NewOAuthService(provider TokenProvider, tokens TokenService, logger *zap.Logger) OAuthService {
	return &oauthService{
		provider: provider,
		tokens:   tokens,
		logger:   logger.Named("oauth"),
	}
}

var _ OAuthService = (*oauthService)(nil)

func (s *oauthService) Authorize(organization string) (*Authorization, error) {
	state, err := newState()
	if err != nil {
		return nil, err
	}
	return &Authorization{
		URL:   s.provider.AuthorizationURL(state, organization),
		State: state,
	}, nil
}

func (s *oauthService) Complete(ctx context.Context, req *CallbackRequest) (*models.AgriWebbToken, error) {
	if req.ExpectedState == "" || subtle.ConstantTimeCompare([]byte(req.State), []byte(req.ExpectedState)) != 1 {
		s.logger.Warn("OAuth state mismatch")
		return nil, apperrors.ErrStateMismatch
	}

	if req.Error != "" {
		s.logger.Warn("Provider returned authorization error",
			zap.String("error", req.Error),
			zap.String("description", req.ErrorDescription))
		if req.ErrorDescription != "" {
			return nil, fmt.Errorf("%w: %s: %s", ErrAuthorizationDenied, req.Error, req.ErrorDescription)
		}
		return nil, fmt.Errorf("%w: %s", ErrAuthorizationDenied, req.Error)
	}

	if req.Code == "" {
		return nil, ErrMissingCode
	}

	grant, err := s.provider.Exchange(ctx, req.Code)
	if err != nil {
		return nil, err
	}

	return s.tokens.Store(ctx, req.UserID, req.Organization, grant)
}

func newState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate oauth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
