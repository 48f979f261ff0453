package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether a keyed request may proceed
type Limiter interface {
	// TryAcquireForKey consumes one unit of key's allowance without blocking
	TryAcquireForKey(key string) bool

	// Stats reports configuration and usage for monitoring
	Stats() map[string]interface{}

	// Health reports whether the backend can make decisions
	Health() error
}

// RedisInterface defines the minimal Redis interface needed for rate limiting
type RedisInterface interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
	Health() error
}
