package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/ranchforce/agriwebb-sync/pkg/validation"
)

// DefaultPath is the config file read by Load.
const DefaultPath = "config.yaml"

// Config holds all configuration for agriwebb-sync.
// Values come from config.yaml when present, and environment variables always win.
// Secrets (client secret, keys, passwords) are only read from the environment.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080" validate:"required"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local" validate:"oneof=local dev test production"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`

	// Authentication of API callers
	Auth AuthConfig `yaml:"auth"`

	// CookieDomain is the domain for the OAuth session cookie.
	// If empty, it is derived from BaseURL.
	CookieDomain string `yaml:"cookie_domain" env:"COOKIE_DOMAIN" env-default:""`

	// SessionSecret signs the OAuth state cookie. Any passphrase works.
	SessionSecret string `yaml:"-" env:"SESSION_SECRET" validate:"required"`

	// TokenCredentialsKey encrypts stored AgriWebb tokens.
	// Generate with: openssl rand -base64 32
	TokenCredentialsKey string `yaml:"-" env:"TOKEN_CREDENTIALS_KEY" validate:"required"`

	Database DatabaseConfig `yaml:"database"`
	AgriWebb AgriWebbConfig `yaml:"agriwebb"`
	Sync     SyncConfig     `yaml:"sync"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// EnableVerification controls whether JWT signatures are checked.
	// Set to false for local development without an identity provider.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// JWKSEndpointsStr is a comma-separated list of issuer=jwks_url pairs.
	JWKSEndpointsStr string `yaml:"jwks_endpoints" env:"JWKS_ENDPOINTS" env-default:""`

	// Audience, when set, must appear in every caller token.
	Audience string `yaml:"audience" env:"AUTH_AUDIENCE" env-default:""`

	// JWKSEndpoints is parsed from JWKSEndpointsStr.
	JWKSEndpoints map[string]string `yaml:"-"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost" validate:"required"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432" validate:"min=1,max=65535"`
	User           string `yaml:"user" env:"PGUSER" env-default:"ranchforce" validate:"required"`
	Password       string `yaml:"-" env:"PGPASSWORD"`
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"agriwebb_sync" validate:"required"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// AgriWebbConfig holds the provider OAuth client and API endpoints.
type AgriWebbConfig struct {
	ClientID         string        `yaml:"client_id" env:"AGRIWEBB_CLIENT_ID" validate:"required"`
	ClientSecret     string        `yaml:"-" env:"AGRIWEBB_CLIENT_SECRET" validate:"required"`
	RedirectURI      string        `yaml:"redirect_uri" env:"AGRIWEBB_REDIRECT_URI" validate:"required,url"`
	AuthorizationURL string        `yaml:"authorization_url" env:"AGRIWEBB_AUTHORIZATION_URL" validate:"required,url"`
	TokenURL         string        `yaml:"token_url" env:"AGRIWEBB_TOKEN_URL" validate:"required,url"`
	APIURL           string        `yaml:"api_url" env:"AGRIWEBB_API_URL" validate:"required,url"`
	Scopes           string        `yaml:"scopes" env:"AGRIWEBB_SCOPES" env-default:""`
	RequestTimeout   time.Duration `yaml:"request_timeout" env:"AGRIWEBB_REQUEST_TIMEOUT" env-default:"30s"`
}

// ScopeList splits the comma-separated scopes.
func (c *AgriWebbConfig) ScopeList() []string {
	var scopes []string
	for _, s := range strings.Split(c.Scopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}

// SyncConfig holds background job settings.
type SyncConfig struct {
	// ExportDir receives raw page dumps written by export jobs.
	ExportDir string `yaml:"export_dir" env:"SYNC_EXPORT_DIR" env-default:"agriwebb/data" validate:"required"`
	// MigrationsOnStart applies pending schema migrations at boot.
	MigrationsOnStart bool `yaml:"migrations_on_start" env:"SYNC_MIGRATIONS_ON_START" env-default:"true"`
	// MaxConcurrentJobs caps running jobs. Zero means no limit.
	MaxConcurrentJobs int `yaml:"max_concurrent_jobs" env:"SYNC_MAX_CONCURRENT_JOBS" env-default:"4" validate:"min=0"`
	// TaskHistory is how many finished jobs stay queryable.
	TaskHistory int `yaml:"task_history" env:"SYNC_TASK_HISTORY" env-default:"500" validate:"min=1"`
	// DrainTimeout lets queued jobs finish on exit before they are cancelled.
	// Zero cancels them at once.
	DrainTimeout time.Duration `yaml:"drain_timeout" env:"SYNC_DRAIN_TIMEOUT" env-default:"0s"`
	// ShutdownTimeout bounds how long running jobs get to finish on exit.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SYNC_SHUTDOWN_TIMEOUT" env-default:"30s"`
}

// Load reads DefaultPath (if it exists) with environment overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	return LoadFrom(DefaultPath, version)
}

// LoadFrom is Load with an explicit config file path.
func LoadFrom(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := read(path, cfg); err != nil {
		return nil, err
	}

	cfg.Auth.JWKSEndpoints = parseJWKSEndpoints(cfg.Auth.JWKSEndpointsStr)

	if err := cfg.validateTLS(); err != nil {
		return nil, fmt.Errorf("invalid TLS configuration: %w", err)
	}

	if cfg.BaseURL == "" {
		scheme := "http"
		if cfg.TLSCertPath != "" {
			scheme = "https"
		}
		cfg.BaseURL = (&url.URL{
			Scheme: scheme,
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	if err := validation.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// read falls back to environment-only configuration when the file is absent,
// which is how containers are usually configured.
func read(path string, cfg *Config) error {
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return nil
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

// validateTLS ensures cert and key are provided together and exist.
func (c *Config) validateTLS() error {
	certSet := c.TLSCertPath != ""
	keySet := c.TLSKeyPath != ""

	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	if certSet {
		if _, err := os.Stat(c.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}

// parseJWKSEndpoints parses "issuer1=url1,issuer2=url2" into a map.
func parseJWKSEndpoints(value string) map[string]string {
	endpoints := make(map[string]string)
	if value == "" {
		return endpoints
	}

	for _, pair := range strings.Split(value, ",") {
		issuer, jwksURL, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		endpoints[strings.TrimSpace(issuer)] = strings.TrimSpace(jwksURL)
	}
	return endpoints
}

// ConnectionString returns a PostgreSQL URL for pgx and golang-migrate.
func (c *DatabaseConfig) ConnectionString() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", ResolveHostForDocker(c.Host), c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}

// IsLocal reports whether the service runs in local development mode.
func (c *Config) IsLocal() bool {
	return c.Env == "local"
}
