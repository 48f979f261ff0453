// Package identity exchanges the gateway's client credentials for an access
// token at a third-party OAuth2 identity provider.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"timetrack-gateway/internal/circuitbreaker"
	"timetrack-gateway/internal/common/errors"
	commonhttp "timetrack-gateway/internal/common/http"
	"timetrack-gateway/internal/common/logging"
)

const maxReplyBytes = 1 << 20

// Config describes the client-credentials grant
type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Audience     string
	Scopes       []string
}

// Validate checks the required grant parameters
func (c Config) Validate() error {
	if c.TokenURL == "" {
		return errors.ConfigError("identity token URL is required")
	}
	u, err := url.Parse(c.TokenURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.ConfigError(fmt.Sprintf("identity token URL %q must be an absolute http(s) URL", c.TokenURL))
	}
	if c.ClientID == "" {
		return errors.ConfigError("identity client ID is required")
	}
	if c.ClientSecret == "" {
		return errors.ConfigError("identity client secret is required")
	}
	return nil
}

// TokenReply is a successful token endpoint reply
type TokenReply struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   ExpiresIn `json:"expires_in"`
	Scope       string    `json:"scope,omitempty"`
	TokenType   string    `json:"token_type"`
}

// ExpiresIn is a lifetime in seconds. Some providers send it as a JSON
// string, so both forms are accepted.
type ExpiresIn int64

// UnmarshalJSON accepts a number or a numeric string
func (e *ExpiresIn) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(strings.Trim(string(bytes.TrimSpace(data)), `"`))
	if raw == "" || raw == "null" {
		*e = 0
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid expires_in %s: %w", data, err)
	}
	*e = ExpiresIn(n)
	return nil
}

// Seconds returns the lifetime as a plain integer
func (e ExpiresIn) Seconds() int64 {
	return int64(e)
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithCircuitBreaker routes every token request through breaker
func WithCircuitBreaker(breaker *circuitbreaker.GoBreakerAdapter) Option {
	return func(c *Client) {
		c.breaker = breaker
	}
}

// WithLogger sets the client logger
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client performs the client-credentials exchange
type Client struct {
	config     Config
	httpClient *http.Client
	breaker    *circuitbreaker.GoBreakerAdapter
	logger     logging.Logger
}

// NewClient creates a token client. Without options it uses a 30s HTTP client
// and a breaker built from circuitbreaker.OAuthConfig.
func NewClient(config Config, opts ...Option) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Client{config: config}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = logging.GetGlobalLogger()
	}
	c.logger = c.logger.WithFields(logging.Field{Key: "component", Value: "identity"})

	if c.httpClient == nil {
		c.httpClient = commonhttp.NewHTTPClient(commonhttp.WithTimeout(30 * time.Second))
	}
	if c.breaker == nil {
		c.breaker = circuitbreaker.NewGoBreaker("identity", circuitbreaker.OAuthConfig, c.logger)
	}

	return c, nil
}

// FetchToken requests a new access token. Errors are *StatusError for a
// non-2xx reply, a connection AppError for transport failures, and a
// validation AppError for an unusable reply body.
func (c *Client) FetchToken(ctx context.Context) (*TokenReply, error) {
	var reply *TokenReply

	err := c.breaker.Execute(ctx, func() error {
		var reqErr error
		reply, reqErr = c.requestToken(ctx)
		return reqErr
	})
	if err != nil {
		return nil, err
	}

	return reply, nil
}

func (c *Client) form() url.Values {
	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", c.config.ClientID)
	data.Set("client_secret", c.config.ClientSecret)
	if c.config.Audience != "" {
		data.Set("audience", c.config.Audience)
	}
	if len(c.config.Scopes) > 0 {
		data.Set("scope", strings.Join(c.config.Scopes, " "))
	}
	return data
}

func (c *Client) requestToken(ctx context.Context) (*TokenReply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TokenURL, strings.NewReader(c.form().Encode()))
	if err != nil {
		return nil, errors.InternalError("failed to create token request", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.ConnectionError("token request failed", err).
			WithContext("token_url", c.config.TokenURL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, errors.ConnectionError("failed to read token response", err)
	}

	c.logger.Debug("Token endpoint replied",
		logging.Field{Key: "status", Value: resp.StatusCode},
		logging.Field{Key: "duration", Value: time.Since(start)},
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var errResp struct {
			Error       string `json:"error"`
			Description string `json:"error_description"`
		}
		if json.Unmarshal(body, &errResp) == nil {
			statusErr.Code = errResp.Error
			statusErr.Description = errResp.Description
		}
		return nil, statusErr
	}

	var reply TokenReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, errors.ValidationError(fmt.Sprintf("failed to decode token response: %v", err))
	}
	if reply.AccessToken == "" {
		return nil, errors.ValidationError("token response has no access_token")
	}

	return &reply, nil
}
