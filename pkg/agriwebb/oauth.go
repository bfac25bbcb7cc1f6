package agriwebb

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/ranchforce/agriwebb-sync/pkg/logging"
	"github.com/ranchforce/agriwebb-sync/pkg/metrics"
)

// Grant is a token endpoint response reduced to what the token store keeps.
type Grant struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int
}

// AuthorizationURL returns the consent URL for state. organization, when
// set, is appended as an extra query parameter.
func (c *Client) AuthorizationURL(state, organization string) string {
	var opts []oauth2.AuthCodeOption
	if organization != "" {
		opts = append(opts, oauth2.SetAuthURLParam("organization", organization))
	}
	return c.oauth.AuthCodeURL(state, opts...)
}

// Exchange trades an authorization code for a token pair.
func (c *Client) Exchange(ctx context.Context, code string) (*Grant, error) {
	start := time.Now()
	tok, err := c.oauth.Exchange(c.withHTTPClient(ctx), code)
	metrics.RecordProviderRequest("token_exchange", time.Since(start), err)
	if err != nil {
		c.logger.Error("Authorization code exchange failed", zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("%w: code exchange: %w", ErrAuthentication, err)
	}
	return grantFromToken(tok, time.Now()), nil
}

// Refresh obtains a new token pair using refreshToken.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Grant, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: missing refresh token", ErrAuthentication)
	}

	start := time.Now()
	src := c.oauth.TokenSource(c.withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	metrics.RecordProviderRequest("token_refresh", time.Since(start), err)
	if err != nil {
		c.logger.Error("Token refresh failed", zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("%w: refresh: %w", ErrAuthentication, err)
	}
	return grantFromToken(tok, time.Now()), nil
}

func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// grantFromToken turns the absolute expiry oauth2 parsed from expires_in back
// into whole seconds. A token without an expiry is treated as already expired.
func grantFromToken(tok *oauth2.Token, now time.Time) *Grant {
	var expiresIn int
	if !tok.Expiry.IsZero() {
		expiresIn = int(math.Round(tok.Expiry.Sub(now).Seconds()))
	}
	if expiresIn < 0 {
		expiresIn = 0
	}
	return &Grant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresIn:    expiresIn,
	}
}
