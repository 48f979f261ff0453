package ratelimit

import (
	"fmt"
	"time"

	"timetrack-gateway/internal/common/errors"
)

// Config represents rate limiter configuration
type Config struct {
	// MaxRequests per Window for each key
	MaxRequests int           `json:"max_requests" yaml:"max_requests"`
	Window      time.Duration `json:"window" yaml:"window"`
	Enabled     bool          `json:"enabled" yaml:"enabled"`

	// Backend type
	Type BackendType `json:"type" yaml:"type"`

	// Distributed backend settings
	KeyPrefix string `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`

	// Cleanup settings for local limiters
	MaxKeys       int           `json:"max_keys,omitempty" yaml:"max_keys,omitempty"`
	CleanupPeriod time.Duration `json:"cleanup_period,omitempty" yaml:"cleanup_period,omitempty"`
}

// BackendType defines the rate limiter backend
type BackendType string

const (
	BackendLocal       BackendType = "local"
	BackendDistributed BackendType = "distributed"
	BackendRedis       BackendType = "redis" // Alias for distributed
)

// Validate checks the configuration and fills in backend defaults
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.MaxRequests <= 0 {
		return errors.ConfigError(fmt.Sprintf("rate limit max requests must be positive, got %d", c.MaxRequests))
	}
	if c.Window <= 0 {
		return errors.ConfigError(fmt.Sprintf("rate limit window must be positive, got %s", c.Window))
	}

	if c.Type == "" {
		c.Type = BackendLocal
	}

	switch c.Type {
	case BackendLocal:
		if c.MaxKeys <= 0 {
			c.MaxKeys = 10000
		}
		if c.CleanupPeriod <= 0 {
			c.CleanupPeriod = 5 * time.Minute
		}
	case BackendDistributed, BackendRedis:
		if c.KeyPrefix == "" {
			c.KeyPrefix = "ratelimit:"
		}
	default:
		return errors.ConfigError(fmt.Sprintf("unsupported rate limiter backend type: %s", c.Type))
	}

	return nil
}

// DefaultConfig returns a default rate limiter configuration
func DefaultConfig() Config {
	return Config{
		MaxRequests:   100,
		Window:        time.Minute,
		Enabled:       true,
		Type:          BackendLocal,
		KeyPrefix:     "ratelimit:",
		MaxKeys:       10000,
		CleanupPeriod: 5 * time.Minute,
	}
}
