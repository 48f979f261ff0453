package app

import (
	"timetrack-gateway/internal/common/logging"
	"timetrack-gateway/internal/common/ratelimit"
)

// initializeRateLimiter picks the Redis-backed limiter when Redis is
// connected so every gateway instance shares one allowance per caller.
// RateLimiter stays nil when limiting is disabled.
func (app *App) initializeRateLimiter() error {
	if !app.Config.RateLimitEnabled {
		app.Logger.Info("Rate Limiting: Disabled")
		return nil
	}

	trusted, err := ratelimit.ParseTrustedProxies(app.Config.TrustedProxies)
	if err != nil {
		return err
	}
	app.RateLimitKey = ratelimit.TrustedProxyKey(trusted)

	rateLimitConfig := ratelimit.DefaultConfig()
	rateLimitConfig.MaxRequests = app.Config.RateLimitDefault
	rateLimitConfig.Window = app.Config.RateLimitWindow
	rateLimitConfig.KeyPrefix = "gateway:"

	var limiter ratelimit.Limiter
	if app.RedisClient != nil {
		rateLimitConfig.Type = ratelimit.BackendDistributed
		limiter, err = ratelimit.New(rateLimitConfig, app.Logger, app.RedisClient)
	} else {
		limiter, err = ratelimit.New(rateLimitConfig, app.Logger)
	}
	if err != nil {
		return err
	}

	app.RateLimiter = limiter
	app.Logger.Info("Rate Limiting: Enabled",
		logging.Field{Key: "limit", Value: rateLimitConfig.MaxRequests},
		logging.Field{Key: "window", Value: rateLimitConfig.Window.String()},
		logging.Field{Key: "backend", Value: string(rateLimitConfig.Type)},
		logging.Field{Key: "trusted_proxies", Value: len(trusted)},
	)
	return nil
}
