package auth

import (
	"context"
	"fmt"
)

// GetUserIDFromContext returns the caller's subject, or "" when unauthenticated.
func GetUserIDFromContext(ctx context.Context) string {
	claims, ok := GetClaims(ctx)
	if !ok {
		return ""
	}
	return claims.Subject
}

// RequireUserIDFromContext is GetUserIDFromContext that fails when no user is present.
func RequireUserIDFromContext(ctx context.Context) (string, error) {
	if _, ok := GetClaims(ctx); !ok {
		return "", ErrNoClaims
	}
	userID := GetUserIDFromContext(ctx)
	if userID == "" {
		return "", fmt.Errorf("missing user ID in JWT claims")
	}
	return userID, nil
}

// GetOrganizationFromContext returns the org claim, or "" when absent.
func GetOrganizationFromContext(ctx context.Context) string {
	claims, ok := GetClaims(ctx)
	if !ok {
		return ""
	}
	return claims.Organization
}
