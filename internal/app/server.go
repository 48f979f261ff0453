package app

import (
	"net/http"

	"github.com/gorilla/mux"
	"timetrack-gateway/internal/handlers"
	"timetrack-gateway/internal/server"
)

// Handler builds the complete HTTP handler: operational endpoints plus the
// gateway catch-all.
func (app *App) Handler() http.Handler {
	var redisHealth handlers.HealthChecker
	if app.RedisClient != nil {
		redisHealth = app.RedisClient
	}

	var creds handlers.CredentialStatus
	if app.Credentials != nil {
		creds = app.Credentials
	}

	var breaker handlers.BreakerStatus
	if app.IdentityBreaker != nil {
		breaker = app.IdentityBreaker
	}

	h := handlers.New(creds, redisHealth, breaker, Version, app.Logger)

	router := mux.NewRouter()
	SetupRoutes(router, h, app.Auth.Middleware, app.RateLimiter, app.RateLimitKey, app.Gateway, app.Config.MetricsEnabled)
	return router
}

// NewServer creates the HTTP server for the configured port
func (app *App) NewServer() *server.Server {
	return server.New(app.Handler(), app.Config.Addr())
}
