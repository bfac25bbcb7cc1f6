package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTokenType is used when the provider omits token_type.
const DefaultTokenType = "Bearer"

// AgriWebbToken is one OAuth2 credential set for a user/organization pair.
// AccessToken and RefreshToken hold plaintext in memory; the repository
// encrypts them at rest.
type AgriWebbToken struct {
	ID               uuid.UUID `json:"id"`
	UserID           string    `json:"user_id,omitempty"`
	Organization     string    `json:"organization,omitempty"`
	AccessToken      string    `json:"-"`
	RefreshToken     string    `json:"-"`
	TokenType        string    `json:"token_type"`
	ExpiresInSeconds int       `json:"expires_in_seconds"`
	ExpiresAt        time.Time `json:"expires_at"`
	IsExpired        bool      `json:"is_expired"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewAgriWebbToken builds a token and fixes its absolute expiry at now+expiresIn.
func NewAgriWebbToken(userID, organization, accessToken, refreshToken, tokenType string, expiresIn int, now time.Time) *AgriWebbToken {
	t := &AgriWebbToken{
		UserID:       userID,
		Organization: organization,
		CreatedAt:    now,
	}
	t.replaceCredentials(accessToken, refreshToken, tokenType, expiresIn, now)
	return t
}

// CheckExpired compares now against the stored absolute expiry.
func (t *AgriWebbToken) CheckExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// ApplyRefresh replaces the credential pair and expiry together and clears
// IsExpired. An empty refreshToken keeps the previous one, since providers
// may omit it on refresh.
func (t *AgriWebbToken) ApplyRefresh(accessToken, refreshToken, tokenType string, expiresIn int, now time.Time) {
	if refreshToken == "" {
		refreshToken = t.RefreshToken
	}
	t.replaceCredentials(accessToken, refreshToken, tokenType, expiresIn, now)
}

func (t *AgriWebbToken) replaceCredentials(accessToken, refreshToken, tokenType string, expiresIn int, now time.Time) {
	if tokenType == "" {
		tokenType = DefaultTokenType
	}
	if expiresIn < 0 {
		expiresIn = 0
	}
	t.AccessToken = accessToken
	t.RefreshToken = refreshToken
	t.TokenType = tokenType
	t.ExpiresInSeconds = expiresIn
	t.ExpiresAt = now.Add(time.Duration(expiresIn) * time.Second)
	t.IsExpired = false
	t.UpdatedAt = now
}
