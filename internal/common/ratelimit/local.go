package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// localLimiter keeps one token bucket per key in memory
type localLimiter struct {
	mu       sync.Mutex
	config   Config
	limit    rate.Limit
	limiters map[string]*limiterEntry

	lastCleanup time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewLocalLimiter creates a new local rate limiter using golang.org/x/time/rate
func NewLocalLimiter(config Config) (Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	rl := &localLimiter{
		config:      config,
		limiters:    make(map[string]*limiterEntry),
		lastCleanup: time.Now(),
	}
	if config.Enabled {
		rl.limit = rate.Every(config.Window / time.Duration(config.MaxRequests))
	}

	return rl, nil
}

// TryAcquireForKey attempts to acquire a token for a specific key
func (rl *localLimiter) TryAcquireForKey(key string) bool {
	if !rl.config.Enabled {
		return true
	}

	return rl.getLimiterForKey(key).Allow()
}

// getLimiterForKey gets or creates a rate limiter for a specific key
func (rl *localLimiter) getLimiterForKey(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastCleanup) > rl.config.CleanupPeriod {
		rl.cleanup(now)
	}

	entry, exists := rl.limiters[key]
	if !exists {
		entry = &limiterEntry{
			limiter:  rate.NewLimiter(rl.limit, rl.config.MaxRequests),
			lastUsed: now,
		}
		rl.limiters[key] = entry

		if len(rl.limiters) > rl.config.MaxKeys {
			rl.cleanup(now)
		}
	} else {
		entry.lastUsed = now
	}

	return entry.limiter
}

// cleanup drops limiters idle for longer than CleanupPeriod. An idle bucket
// has refilled completely, so forgetting it loses no state.
func (rl *localLimiter) cleanup(now time.Time) {
	cutoff := now.Add(-rl.config.CleanupPeriod)

	for key, entry := range rl.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}

	rl.lastCleanup = now
}

// Stats returns rate limiter statistics
func (rl *localLimiter) Stats() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]interface{}{
		"type":         "local",
		"enabled":      rl.config.Enabled,
		"max_requests": rl.config.MaxRequests,
		"window":       rl.config.Window.String(),
		"active_keys":  len(rl.limiters),
		"max_keys":     rl.config.MaxKeys,
		"last_cleanup": rl.lastCleanup.Format(time.RFC3339),
	}
}

// Health checks if the rate limiter is working properly
func (rl *localLimiter) Health() error {
	return nil
}
