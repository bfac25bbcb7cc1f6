// Package agriwebb is a client for the AgriWebb GraphQL API and its OAuth2
// authorization server.
package agriwebb

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/ranchforce/agriwebb-sync/pkg/logging"
	"github.com/ranchforce/agriwebb-sync/pkg/metrics"
)

const defaultTokenType = "Bearer"

// Credentials authorize one API call.
type Credentials struct {
	TokenType   string
	AccessToken string
}

func (c Credentials) header() string {
	typ := c.TokenType
	if typ == "" {
		typ = defaultTokenType
	}
	return typ + " " + c.AccessToken
}

// Client talks to the AgriWebb API. One call per method; no retry and no
// pagination loop.
type Client struct {
	cfg        Config
	oauth      *oauth2.Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient validates cfg and builds a client. It fails on missing or
// malformed configuration before any request is attempted.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthorizationURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: &http.Client{Timeout: cfg.timeout()},
		logger:     logger.Named("agriwebb"),
	}, nil
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage     `json:"data"`
	Errors []GraphQLErrorEntry `json:"errors"`
}

// Execute posts {query, variables} and decodes the "data" member into out.
// Non-2xx responses become *HTTPError; a non-empty "errors" array becomes
// *GraphQLError.
func (c *Client) Execute(ctx context.Context, creds Credentials, query string, variables map[string]any, out any) error {
	if creds.AccessToken == "" {
		return fmt.Errorf("%w: missing access token", ErrAuthentication)
	}

	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", creds.header())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call agriwebb: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		redacted := logging.RedactBody(body)
		c.logger.Error("agriwebb returned error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", redacted))
		return &HTTPError{StatusCode: resp.StatusCode, Body: redacted}
	}

	var envelope graphQLResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return &GraphQLError{Errors: envelope.Errors}
	}
	if out == nil {
		return nil
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return fmt.Errorf("agriwebb response has no data")
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode data: %w", err)
	}
	return nil
}

// Animals fetches one page of animals.
func (c *Client) Animals(ctx context.Context, creds Credentials, q AnimalsQuery) (*AnimalsPage, error) {
	if q.FarmID == "" {
		return nil, fmt.Errorf("farm id is required")
	}

	start := time.Now()
	var data struct {
		Animals AnimalsPage `json:"animals"`
	}
	err := c.Execute(ctx, creds, AnimalsQueryText, q.Variables(), &data)
	metrics.RecordProviderRequest("animals", time.Since(start), err)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Fetched animals page",
		zap.String("farm_id", q.FarmID),
		zap.Int("count", len(data.Animals.Animals)),
		zap.Int("non_paged_count", data.Animals.NonPagedCount))

	return &data.Animals, nil
}

// Farms fetches farms with their nested map features and fields.
func (c *Client) Farms(ctx context.Context, creds Credentials, q FarmsQuery) ([]Farm, error) {
	start := time.Now()
	var data struct {
		Farms []Farm `json:"farms"`
	}
	err := c.Execute(ctx, creds, FarmsQueryText, q.Variables(), &data)
	metrics.RecordProviderRequest("farms", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return data.Farms, nil
}
