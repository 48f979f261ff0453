package app

import (
	"net/http"

	"timetrack-gateway/internal/auth"
	"timetrack-gateway/internal/circuitbreaker"
	"timetrack-gateway/internal/common/logging"
	"timetrack-gateway/internal/common/ratelimit"
	"timetrack-gateway/internal/config"
	"timetrack-gateway/internal/credentials"
	"timetrack-gateway/internal/gateway"
	"timetrack-gateway/internal/identity"
	"timetrack-gateway/internal/redis"
	"timetrack-gateway/internal/routing"
)

// Version is stamped at build time with -ldflags "-X timetrack-gateway/internal/app.Version=..."
var Version = "dev"

// App holds all the application dependencies
type App struct {
	Config          *config.Config
	Logger          logging.Logger
	RedisClient     *redis.Client
	Auth            *auth.Authenticator
	Identity        *identity.Client
	IdentityBreaker *circuitbreaker.GoBreakerAdapter
	Credentials     *credentials.Service
	Router          *routing.Router
	Gateway         *gateway.Gateway
	RateLimiter     ratelimit.Limiter
	RateLimitKey    func(*http.Request) string
}

// New creates a new application instance with all dependencies. It waits
// for the first machine token fetch, bounded by CREDENTIALS_FETCH_TIMEOUT.
// A failed fetch leaves the service retrying and does not fail New.
func New(cfg *config.Config) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "app"}),
	}

	if err := app.initializeRedis(); err != nil {
		// Redis is optional, just log the error
		app.Logger.Warn("Redis initialization failed, continuing without Redis",
			logging.Field{Key: "error", Value: err.Error()})
	}

	if err := app.initializeAuth(); err != nil {
		app.Cleanup()
		return nil, err
	}

	if err := app.initializeCredentials(); err != nil {
		app.Cleanup()
		return nil, err
	}

	if err := app.initializeGateway(); err != nil {
		app.Cleanup()
		return nil, err
	}

	if err := app.initializeRateLimiter(); err != nil {
		app.Cleanup()
		return nil, err
	}

	return app, nil
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	if app.Credentials != nil {
		app.Credentials.Close()
	}
	if app.RedisClient != nil {
		if err := app.RedisClient.Close(); err != nil {
			app.Logger.Warn("Error closing Redis client", logging.Field{Key: "error", Value: err.Error()})
		}
	}
}
