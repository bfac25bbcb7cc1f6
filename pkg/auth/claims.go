// Package auth authenticates API callers of agriwebb-sync.
// Callers present a JWT from a trusted issuer, verified against that issuer's JWKS.
package auth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
	// TokenKey is the context key for storing the raw JWT token string.
	TokenKey contextKey = "token"
)

// ErrNoClaims is returned when a request context carries no authenticated caller.
var ErrNoClaims = errors.New("authentication required: no claims in context")

// Claims is the caller's identity. The subject is the user that owns
// AgriWebb tokens; org optionally pins an AgriWebb organization.
type Claims struct {
	jwt.RegisteredClaims
	Email        string `json:"email,omitempty"`
	Organization string `json:"org,omitempty"`
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok && claims != nil
}

// GetToken retrieves the raw JWT token string from the request context.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

// WithClaims returns a context carrying the caller's claims and raw token.
func WithClaims(ctx context.Context, claims *Claims, token string) context.Context {
	ctx = context.WithValue(ctx, ClaimsKey, claims)
	return context.WithValue(ctx, TokenKey, token)
}
