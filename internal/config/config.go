// Package config provides configuration management for the timetrack gateway.
// It loads configuration from environment variables with sensible defaults
// and validates it so the gateway never starts half-configured.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: INFO)
//   - LOG_FORMAT: "console" or "json" (default: console)
//   - LOG_FILE: Log file path; stdout when empty
//   - METRICS_ENABLED: Expose /metrics (default: true)
//
// Backends:
//   - DASHBOARD_URL: Dashboard base URL (required)
//   - DOWNLOADS_URL: Downloads base URL (optional)
//   - GATEWAY_MACHINE_AUTH_BACKENDS: Comma list of backends that receive the machine token
//   - UPSTREAM_TIMEOUT: Backend response header timeout (default: 30s)
//
// Identity Provider:
//   - IDENTITY_TOKEN_URL: OAuth2 token endpoint (required)
//   - IDENTITY_CLIENT_ID / IDENTITY_CLIENT_SECRET: Client credentials (required)
//   - IDENTITY_AUDIENCE: Optional audience parameter
//   - IDENTITY_SCOPES: Space or comma separated scopes
//   - IDENTITY_HTTP_TIMEOUT: Token request timeout (default: 30s)
//   - CREDENTIALS_RETRY_INTERVAL: Delay before retrying a failed fetch (default: 10s)
//   - CREDENTIALS_FETCH_TIMEOUT: Upper bound on one fetch attempt (default: 15s)
//
// Security Configuration:
//   - JWT_SECRET: Session JWT secret (required, minimum 32 characters)
//   - JWT_ISSUER: Expected session issuer; any issuer when empty
//
// Rate Limiting:
//   - RATE_LIMIT_ENABLED: Enable per-IP rate limiting (default: true)
//   - RATE_LIMIT_DEFAULT: Requests per window (default: 100)
//   - RATE_LIMIT_WINDOW: Rate limiting window (default: 60s)
//   - GATEWAY_TRUSTED_PROXIES: Comma list of proxy IPs or CIDRs whose
//     X-Forwarded-For is believed; empty keys on the peer address only
//
// Redis Configuration (distributed rate limiting and token revocation):
//   - REDIS_ADDRESS: Redis server address; Redis is disabled when empty
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//   - REDIS_POOL_SIZE: Redis connection pool size (default: 10)
//
// Example usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"timetrack-gateway/internal/common/errors"
	"timetrack-gateway/internal/common/validation"
)

// Backend names accepted in GATEWAY_MACHINE_AUTH_BACKENDS
const (
	BackendDashboard = "dashboard"
	BackendDownloads = "downloads"
)

// Config holds all configuration values for the gateway. The env tag names
// the variable each field is read from and is used in validation messages.
type Config struct {
	// Application settings
	Port           int    `env:"PORT" validate:"min=1,max=65535"`
	LogLevel       string `env:"LOG_LEVEL" validate:"log_level"`
	LogFormat      string `env:"LOG_FORMAT" validate:"oneof=console json"`
	LogFile        string `env:"LOG_FILE"`
	MetricsEnabled bool   `env:"METRICS_ENABLED"`

	// Backends
	DashboardURL        string        `env:"DASHBOARD_URL" validate:"required,backend_url"`
	DownloadsURL        string        `env:"DOWNLOADS_URL" validate:"omitempty,backend_url"`
	MachineAuthBackends []string      `env:"GATEWAY_MACHINE_AUTH_BACKENDS" validate:"dive,oneof=dashboard downloads"`
	UpstreamTimeout     time.Duration `env:"UPSTREAM_TIMEOUT" validate:"gt=0"`

	// Identity provider and machine credentials
	IdentityTokenURL         string        `env:"IDENTITY_TOKEN_URL" validate:"required,http_url"`
	IdentityClientID         string        `env:"IDENTITY_CLIENT_ID" validate:"required"`
	IdentityClientSecret     string        `env:"IDENTITY_CLIENT_SECRET" validate:"required"`
	IdentityAudience         string        `env:"IDENTITY_AUDIENCE"`
	IdentityScopes           []string      `env:"IDENTITY_SCOPES"`
	IdentityHTTPTimeout      time.Duration `env:"IDENTITY_HTTP_TIMEOUT" validate:"gt=0"`
	CredentialsRetryInterval time.Duration `env:"CREDENTIALS_RETRY_INTERVAL" validate:"gt=0"`
	CredentialsFetchTimeout  time.Duration `env:"CREDENTIALS_FETCH_TIMEOUT" validate:"gt=0"`

	// Caller session authentication
	JWTSecret string `env:"JWT_SECRET" validate:"required,min=32"`
	JWTIssuer string `env:"JWT_ISSUER"`

	// Rate limiting configuration
	RateLimitEnabled bool          `env:"RATE_LIMIT_ENABLED"`
	RateLimitDefault int           `env:"RATE_LIMIT_DEFAULT" validate:"min=1"`
	RateLimitWindow  time.Duration `env:"RATE_LIMIT_WINDOW" validate:"gt=0"`
	TrustedProxies   []string      `env:"GATEWAY_TRUSTED_PROXIES" validate:"dive,cidr|ip"`

	// Redis configuration
	RedisAddress  string `env:"REDIS_ADDRESS" validate:"omitempty,hostname_port"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" validate:"min=0,max=15"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE" validate:"min=1"`

	// parseErrors collects values that could not be parsed during Load
	parseErrors []string
}

// Load creates a Config from environment variables, using defaults for
// anything unset. Unparseable numbers and durations fall back to their
// defaults and are reported by Validate.
func Load() *Config {
	c := &Config{}

	c.Port = c.getIntEnv("PORT", 8080)
	c.LogLevel = getEnv("LOG_LEVEL", "INFO")
	c.LogFormat = getEnv("LOG_FORMAT", "console")
	c.LogFile = getEnv("LOG_FILE", "")
	c.MetricsEnabled = getBoolEnv("METRICS_ENABLED", true)

	c.DashboardURL = getEnv("DASHBOARD_URL", "")
	c.DownloadsURL = getEnv("DOWNLOADS_URL", "")
	c.MachineAuthBackends = getListEnv("GATEWAY_MACHINE_AUTH_BACKENDS")
	c.UpstreamTimeout = c.getDurationEnv("UPSTREAM_TIMEOUT", 30*time.Second)

	c.IdentityTokenURL = getEnv("IDENTITY_TOKEN_URL", "")
	c.IdentityClientID = getEnv("IDENTITY_CLIENT_ID", "")
	c.IdentityClientSecret = getEnv("IDENTITY_CLIENT_SECRET", "")
	c.IdentityAudience = getEnv("IDENTITY_AUDIENCE", "")
	c.IdentityScopes = getListEnv("IDENTITY_SCOPES")
	c.IdentityHTTPTimeout = c.getDurationEnv("IDENTITY_HTTP_TIMEOUT", 30*time.Second)
	c.CredentialsRetryInterval = c.getDurationEnv("CREDENTIALS_RETRY_INTERVAL", 10*time.Second)
	c.CredentialsFetchTimeout = c.getDurationEnv("CREDENTIALS_FETCH_TIMEOUT", 15*time.Second)

	c.JWTSecret = getEnv("JWT_SECRET", "")
	c.JWTIssuer = getEnv("JWT_ISSUER", "")

	c.RateLimitEnabled = getBoolEnv("RATE_LIMIT_ENABLED", true)
	c.RateLimitDefault = c.getIntEnv("RATE_LIMIT_DEFAULT", 100)
	c.RateLimitWindow = c.getDurationEnv("RATE_LIMIT_WINDOW", 60*time.Second)
	c.TrustedProxies = getListEnv("GATEWAY_TRUSTED_PROXIES")

	c.RedisAddress = getEnv("REDIS_ADDRESS", "")
	c.RedisPassword = getEnv("REDIS_PASSWORD", "")
	c.RedisDB = c.getIntEnv("REDIS_DB", 0)
	c.RedisPoolSize = c.getIntEnv("REDIS_POOL_SIZE", 10)

	return c
}

// Validate checks every field and the rules that span fields. All problems
// are reported in one ConfigError.
func (c *Config) Validate() error {
	problems := append([]string(nil), c.parseErrors...)

	if result := validation.ValidateStructResult(c); !result.Valid {
		problems = append(problems, result.Messages()...)
	}

	if c.MachineAuthEnabled(BackendDownloads) && c.DownloadsURL == "" {
		problems = append(problems, "GATEWAY_MACHINE_AUTH_BACKENDS names downloads but DOWNLOADS_URL is not set")
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.ConfigError(fmt.Sprintf("invalid configuration: %s", strings.Join(problems, "; ")))
}

// MachineAuthEnabled reports whether backend should receive the machine token
func (c *Config) MachineAuthEnabled(backend string) bool {
	for _, b := range c.MachineAuthBackends {
		if b == backend {
			return true
		}
	}
	return false
}

// RedisEnabled reports whether a Redis address is configured
func (c *Config) RedisEnabled() bool {
	return c.RedisAddress != ""
}

// Addr is the listen address for the HTTP server
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// getEnv retrieves an environment variable value or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv accepts the forms strconv.ParseBool does and falls back to
// defaultValue for anything else.
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (c *Config) getIntEnv(key string, defaultValue int) int {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Sprintf("%s must be a whole number, got %q", key, value))
		return defaultValue
	}
	return parsed
}

func (c *Config) getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Sprintf("%s must be a valid duration (e.g. '60s', '1m'), got %q", key, value))
		return defaultValue
	}
	return parsed
}

// getListEnv splits on commas and whitespace, dropping empty entries
func getListEnv(key string) []string {
	return strings.FieldsFunc(os.Getenv(key), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}
