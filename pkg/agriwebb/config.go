package agriwebb

import (
	"fmt"
	"time"

	"github.com/ranchforce/agriwebb-sync/pkg/validation"
)

// DefaultTimeout bounds every outbound call when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Config carries everything the client needs. It is passed explicitly and
// checked by NewClient before any request is made.
type Config struct {
	ClientID         string        `json:"client_id" validate:"required"`
	ClientSecret     string        `json:"client_secret" validate:"required"`
	RedirectURI      string        `json:"redirect_uri" validate:"required,http_url"`
	AuthorizationURL string        `json:"authorization_url" validate:"required,http_url"`
	TokenURL         string        `json:"token_url" validate:"required,http_url"`
	APIURL           string        `json:"api_url" validate:"required,http_url"`
	Scopes           []string      `json:"scopes"`
	Timeout          time.Duration `json:"timeout" validate:"gte=0"`
}

// Validate returns a *validation.Error naming every bad field.
func (c Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("invalid agriwebb client config: %w", err)
	}
	return nil
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}
