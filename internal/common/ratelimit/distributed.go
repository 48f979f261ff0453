package ratelimit

import (
	"context"
	"fmt"
	"time"

	"timetrack-gateway/internal/common/errors"
	"timetrack-gateway/internal/common/logging"
)

const redisCallTimeout = 2 * time.Second

// distributedLimiter implements Redis-backed distributed rate limiting
type distributedLimiter struct {
	config      Config
	redisClient RedisInterface
	logger      logging.Logger
}

// NewDistributedLimiter creates a new distributed rate limiter
func NewDistributedLimiter(config Config, redisClient RedisInterface, logger logging.Logger) (Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if redisClient == nil {
		return nil, errors.ConfigError("redis client is required for distributed rate limiter")
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &distributedLimiter{
		config:      config,
		redisClient: redisClient,
		logger:      logger.WithFields(logging.Field{Key: "component", Value: "ratelimit"}),
	}, nil
}

// TryAcquireForKey checks key's sliding window in Redis. A Redis failure
// lets the request through.
func (rl *distributedLimiter) TryAcquireForKey(key string) bool {
	if !rl.config.Enabled {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisCallTimeout)
	defer cancel()

	allowed, _, err := rl.redisClient.CheckRateLimit(ctx, rl.config.KeyPrefix+key, rl.config.MaxRequests, rl.config.Window)
	if err != nil {
		rl.logger.Warn("Rate limit check failed, allowing request",
			logging.Field{Key: "key", Value: key},
			logging.Field{Key: "error", Value: err.Error()},
		)
		return true
	}

	return allowed
}

// Stats returns rate limiter statistics
func (rl *distributedLimiter) Stats() map[string]interface{} {
	return map[string]interface{}{
		"type":         "distributed",
		"enabled":      rl.config.Enabled,
		"max_requests": rl.config.MaxRequests,
		"window":       rl.config.Window.String(),
		"backend":      "redis",
		"key_prefix":   rl.config.KeyPrefix,
	}
}

// Health checks if the distributed rate limiter is working
func (rl *distributedLimiter) Health() error {
	if err := rl.redisClient.Health(); err != nil {
		return fmt.Errorf("rate limit backend: %w", err)
	}
	return nil
}
