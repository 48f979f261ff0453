package app

import (
	"net/http"

	"github.com/gorilla/mux"
	"timetrack-gateway/internal/common/ratelimit"
	"timetrack-gateway/internal/handlers"
	"timetrack-gateway/internal/metrics"
	"timetrack-gateway/internal/middleware"
)

// SetupRoutes configures the operational endpoints and hands every other
// path to the gateway. Paths are not cleaned by the router: dot segments are
// resolved by the routing package.
func SetupRoutes(router *mux.Router, h *handlers.Handlers, authMiddleware func(http.Handler) http.Handler, rateLimiter ratelimit.Limiter, rateLimitKey func(*http.Request) string, gw http.Handler, metricsEnabled bool) {
	router.SkipClean(true)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware)

	// Health checks (no auth, no rate limiting)
	router.HandleFunc("/healthz", h.HealthCheck).Methods("GET", "HEAD")
	router.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET", "HEAD")

	if metricsEnabled {
		router.Handle("/metrics", metrics.Handler()).Methods("GET")
	}

	proxied := router.NewRoute().Subrouter()
	proxied.Use(authMiddleware)
	if rateLimiter != nil {
		proxied.Use(ratelimit.HTTPMiddleware(rateLimiter, rateLimitKey))
	}

	// Everything else goes to the backends. This must be the last route.
	proxied.PathPrefix("/").Handler(gw)
}
