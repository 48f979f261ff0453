// Package handlers serves the gateway's operational endpoints. Everything
// else is answered by the gateway package.
package handlers

import (
	"time"

	"timetrack-gateway/internal/circuitbreaker"
	"timetrack-gateway/internal/common/logging"
	"timetrack-gateway/internal/credentials"
)

// CredentialStatus exposes the machine credential state. *credentials.Service
// satisfies it.
type CredentialStatus interface {
	Ready() bool
	State() credentials.State
	Current() *credentials.CachedToken
}

// HealthChecker is a dependency that can report its own health
type HealthChecker interface {
	Health() error
}

// BreakerStatus reports circuit breaker statistics
type BreakerStatus interface {
	Stats() circuitbreaker.Stats
}

// Handlers holds the dependencies the health endpoints report on. Any of
// them may be nil when not configured.
type Handlers struct {
	credentials CredentialStatus
	redis       HealthChecker
	breaker     BreakerStatus
	version     string
	started     time.Time
	logger      logging.Logger
}

// New creates the operational handlers
func New(creds CredentialStatus, redis HealthChecker, breaker BreakerStatus, version string, logger logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Handlers{
		credentials: creds,
		redis:       redis,
		breaker:     breaker,
		version:     version,
		started:     time.Now(),
		logger:      logger.WithFields(logging.Field{Key: "component", Value: "handlers"}),
	}
}
