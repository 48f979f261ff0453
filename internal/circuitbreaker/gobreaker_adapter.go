// Package circuitbreaker provides circuit breaker functionality using Sony's gobreaker
package circuitbreaker

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"timetrack-gateway/internal/common/errors"
	"timetrack-gateway/internal/common/logging"
)

// Config holds the configuration for a circuit breaker
type Config struct {
	// MaxFailures is the number of consecutive failures that opens the circuit
	MaxFailures int
	// Timeout is how long the circuit stays open before transitioning to half-open
	Timeout time.Duration
	// MaxConcurrentRequests is the maximum number of requests allowed in half-open state
	MaxConcurrentRequests int
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		MaxFailures:           5,
		Timeout:               60 * time.Second,
		MaxConcurrentRequests: 1,
	}
}

// Validate checks if the configuration is valid
func (c Config) Validate() error {
	if c.MaxFailures <= 0 {
		return fmt.Errorf("MaxFailures must be positive, got %d", c.MaxFailures)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("Timeout must be positive, got %v", c.Timeout)
	}
	if c.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("MaxConcurrentRequests must be positive, got %d", c.MaxConcurrentRequests)
	}
	return nil
}

// WithTimeout returns a copy of c with the open-state timeout replaced
func (c Config) WithTimeout(timeout time.Duration) Config {
	c.Timeout = timeout
	return c
}

// State represents the current state of the circuit breaker
type State int

const (
	// StateClosed means the circuit breaker is closed and allowing requests through
	StateClosed State = iota
	// StateOpen means the circuit breaker is open and rejecting requests
	StateOpen
	// StateHalfOpen means the circuit breaker is testing if the service has recovered
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Stats returns statistics about the circuit breaker
type Stats struct {
	Name                string `json:"name"`
	State               string `json:"state"`
	Failures            int    `json:"failures"`
	Successes           int    `json:"successes"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
}

// OAuthConfig is for token requests against an identity provider. The open
// timeout is usually overridden with the credential retry interval so a
// recovered provider is probed on the next scheduled attempt.
var OAuthConfig = Config{
	MaxFailures:           5,
	Timeout:               60 * time.Second,
	MaxConcurrentRequests: 1,
}

// StateListener is notified on every state transition
type StateListener func(name string, from, to State)

// Option customizes a breaker at construction time
type Option func(*GoBreakerAdapter)

// WithStateListener registers a callback for state transitions
func WithStateListener(listener StateListener) Option {
	return func(g *GoBreakerAdapter) {
		g.listeners = append(g.listeners, listener)
	}
}

// GoBreakerAdapter wraps Sony's gobreaker
type GoBreakerAdapter struct {
	name      string
	breaker   *gobreaker.CircuitBreaker
	logger    logging.Logger
	listeners []StateListener
}

// NewGoBreaker creates a new circuit breaker using Sony's gobreaker implementation
func NewGoBreaker(name string, config Config, logger logging.Logger, opts ...Option) *GoBreakerAdapter {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	if err := config.Validate(); err != nil {
		logger.Warn("Invalid circuit breaker config, using defaults",
			logging.Field{Key: "error", Value: err.Error()},
			logging.Field{Key: "name", Value: name},
		)
		config = DefaultConfig()
	}

	g := &GoBreakerAdapter{
		name:   name,
		logger: logger,
	}
	for _, opt := range opts {
		opt(g)
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(config.MaxConcurrentRequests),
		Interval:    time.Minute,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(config.MaxFailures)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				logging.Field{Key: "breaker", Value: name},
				logging.Field{Key: "from", Value: from.String()},
				logging.Field{Key: "to", Value: to.String()},
			)
			for _, listener := range g.listeners {
				listener(name, convertState(from), convertState(to))
			}
		},
		IsSuccessful: isSuccessful,
	}

	g.breaker = gobreaker.NewCircuitBreaker(settings)
	return g
}

// isSuccessful decides whether err counts against the breaker. Client-side
// failures (rejected credentials, malformed replies) do not mean the remote
// is unhealthy.
func isSuccessful(err error) bool {
	if err == nil {
		return true
	}

	switch errors.GetType(err) {
	case errors.ErrTypeValidation, errors.ErrTypeAuth:
		return true
	}

	return stderrors.Is(err, context.Canceled)
}

// Execute runs the given function within the circuit breaker
func (g *GoBreakerAdapter) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})

	if stderrors.Is(err, gobreaker.ErrOpenState) {
		return errors.UnavailableError(fmt.Sprintf("circuit breaker '%s' is open", g.name))
	}
	if stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.UnavailableError(fmt.Sprintf("circuit breaker '%s' has too many requests", g.name))
	}

	return err
}

// Name returns the breaker name
func (g *GoBreakerAdapter) Name() string {
	return g.name
}

// State returns the current state of the circuit breaker
func (g *GoBreakerAdapter) State() State {
	return convertState(g.breaker.State())
}

// Stats returns current statistics
func (g *GoBreakerAdapter) Stats() Stats {
	counts := g.breaker.Counts()

	return Stats{
		Name:                g.name,
		State:               g.State().String(),
		Failures:            int(counts.TotalFailures),
		Successes:           int(counts.TotalSuccesses),
		ConsecutiveFailures: int(counts.ConsecutiveFailures),
	}
}

func convertState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}
