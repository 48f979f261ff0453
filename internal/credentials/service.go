// Package credentials keeps the gateway's machine-to-machine access token
// fresh. A Service fetches a token at construction, refreshes it at half its
// lifetime and retries at a fixed interval while the identity provider fails,
// always publishing the last good token.
package credentials

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"timetrack-gateway/internal/common/errors"
	"timetrack-gateway/internal/common/logging"
	"timetrack-gateway/internal/identity"
)

const (
	// DefaultRetryInterval is the fixed delay before retrying a failed fetch
	DefaultRetryInterval = 10 * time.Second
	// DefaultFetchTimeout bounds a single fetch attempt
	DefaultFetchTimeout = 15 * time.Second
)

// ErrNoToken is returned until the first fetch succeeds
var ErrNoToken = errors.UnavailableError("no machine token has been obtained yet")

// TokenFetcher performs one credential exchange
type TokenFetcher interface {
	FetchToken(ctx context.Context) (*identity.TokenReply, error)
}

// State is the refresh state of a Service
type State int32

const (
	StateInitializing State = iota
	StateFresh
	StateRetrying
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateFresh:
		return "fresh"
	case StateRetrying:
		return "retrying"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// CachedToken is an immutable snapshot of a successfully fetched token
type CachedToken struct {
	Value      string
	TokenType  string
	Scope      string
	ObtainedAt time.Time
	TTLSeconds int64
}

// ExpiresAt returns when the provider said the token stops being valid. A
// zero TTL yields ObtainedAt.
func (t *CachedToken) ExpiresAt() time.Time {
	return t.ObtainedAt.Add(lifetime(t.TTLSeconds))
}

// RefreshResult describes the outcome of one fetch attempt
type RefreshResult struct {
	Success  bool
	Err      error
	Token    *CachedToken
	Next     time.Duration
	Duration time.Duration
}

// Option configures a Service
type Option func(*Service)

// WithRetryInterval overrides DefaultRetryInterval
func WithRetryInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.retryInterval = interval
		}
	}
}

// WithFetchTimeout overrides DefaultFetchTimeout
func WithFetchTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.fetchTimeout = timeout
		}
	}
}

// WithRefreshListener registers a callback invoked after every fetch attempt
func WithRefreshListener(fn func(RefreshResult)) Option {
	return func(s *Service) {
		s.listeners = append(s.listeners, fn)
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service owns the current machine token. Token reads are lock-free and
// always observe a complete snapshot.
type Service struct {
	fetcher       TokenFetcher
	timer         Timer
	logger        logging.Logger
	retryInterval time.Duration
	fetchTimeout  time.Duration
	now           func() time.Time
	listeners     []func(RefreshResult)

	token               atomic.Pointer[CachedToken]
	state               atomic.Int32
	attempts            atomic.Int64
	consecutiveFailures atomic.Int64

	// armMu orders timer arming against Close
	armMu  sync.Mutex
	closed bool
}

// NewService builds a Service and performs the first fetch before returning.
// A failed first fetch does not fail construction: the service is left
// Retrying with a retry alarm armed.
func NewService(fetcher TokenFetcher, newTimer TimerFactory, logger logging.Logger, opts ...Option) (*Service, error) {
	if fetcher == nil {
		return nil, errors.ConfigError("credentials: token fetcher is required")
	}
	if newTimer == nil {
		return nil, errors.ConfigError("credentials: timer factory is required")
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	s := &Service{
		fetcher:       fetcher,
		timer:         newTimer(),
		logger:        logger.WithFields(logging.Field{Key: "component", Value: "credentials"}),
		retryInterval: DefaultRetryInterval,
		fetchTimeout:  DefaultFetchTimeout,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.state.Store(int32(StateInitializing))
	s.timer.OnElapsed(s.refresh)
	s.refresh()

	return s, nil
}

// Token returns the last successfully fetched access token, or ErrNoToken if
// no fetch has ever succeeded.
func (s *Service) Token() (string, error) {
	current := s.token.Load()
	if current == nil {
		return "", ErrNoToken
	}
	return current.Value, nil
}

// Current returns the published token snapshot, or nil
func (s *Service) Current() *CachedToken {
	return s.token.Load()
}

// AuthorizationHeader formats the current token as an Authorization value
func (s *Service) AuthorizationHeader() (string, error) {
	current := s.token.Load()
	if current == nil {
		return "", ErrNoToken
	}

	tokenType := current.TokenType
	if tokenType == "" || strings.EqualFold(tokenType, "bearer") {
		tokenType = "Bearer"
	}
	return tokenType + " " + current.Value, nil
}

// Ready reports whether a token has been obtained
func (s *Service) Ready() bool {
	return s.token.Load() != nil
}

// State returns the current refresh state
func (s *Service) State() State {
	return State(s.state.Load())
}

// RetryInterval returns the fixed retry interval in use
func (s *Service) RetryInterval() time.Duration {
	return s.retryInterval
}

// Close stops the refresh alarm. A fetch already in flight completes and may
// publish its token, but nothing is re-armed.
func (s *Service) Close() {
	s.armMu.Lock()
	defer s.armMu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.state.Store(int32(StateClosed))
	s.timer.Stop()
	s.logger.Info("Credential refresh stopped")
}

// refresh runs one fetch attempt and re-arms the timer from its outcome. It is
// only ever invoked by construction or by the single-shot timer, so at most
// one attempt is in flight.
func (s *Service) refresh() {
	attempt := s.attempts.Add(1)
	start := s.now()

	reply, err := s.fetch()
	elapsed := s.now().Sub(start)

	if err != nil {
		failures := s.consecutiveFailures.Add(1)
		s.logFailure(err, attempt, failures)

		next := s.retryInterval
		if !s.arm(StateRetrying, next) {
			return
		}
		s.notify(RefreshResult{Err: err, Token: s.token.Load(), Next: next, Duration: elapsed})
		return
	}

	token := &CachedToken{
		Value:      reply.AccessToken,
		TokenType:  reply.TokenType,
		Scope:      reply.Scope,
		ObtainedAt: start,
		TTLSeconds: reply.ExpiresIn.Seconds(),
	}
	s.token.Store(token)
	s.consecutiveFailures.Store(0)

	next := refreshDelay(token.TTLSeconds)
	if next <= 0 {
		s.logger.Warn("Token reply has no usable lifetime, refreshing at retry interval",
			logging.Field{Key: "expires_in", Value: token.TTLSeconds},
		)
		next = s.retryInterval
	}

	if !s.arm(StateFresh, next) {
		return
	}

	s.logger.Info("Machine token refreshed",
		logging.Field{Key: "attempt", Value: attempt},
		logging.Field{Key: "expires_in", Value: token.TTLSeconds},
		logging.Field{Key: "next_refresh", Value: next},
		logging.Field{Key: "scope", Value: token.Scope},
	)
	s.notify(RefreshResult{Success: true, Token: token, Next: next, Duration: elapsed})
}

// fetch calls the fetcher with a per-attempt timeout and turns panics and
// unusable replies into errors.
func (s *Service) fetch() (reply *identity.TokenReply, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.fetchTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			reply = nil
			err = errors.InternalError(fmt.Sprintf("token fetch panicked: %v", r), nil)
		}
	}()

	reply, err = s.fetcher.FetchToken(ctx)
	if err != nil {
		return nil, err
	}
	if reply == nil || reply.AccessToken == "" {
		return nil, errors.ValidationError("token reply has no access token")
	}
	return reply, nil
}

// arm moves to state and schedules the next attempt. It returns false once the
// service is closed.
func (s *Service) arm(state State, interval time.Duration) bool {
	s.armMu.Lock()
	defer s.armMu.Unlock()

	if s.closed {
		return false
	}
	s.state.Store(int32(state))
	s.timer.Start(interval)
	return true
}

func (s *Service) logFailure(err error, attempt, failures int64) {
	fields := []logging.Field{
		{Key: "attempt", Value: attempt},
		{Key: "consecutive_failures", Value: failures},
		{Key: "retry_in", Value: s.retryInterval},
		{Key: "has_token", Value: s.Ready()},
	}

	var statusErr *identity.StatusError
	if stderrors.As(err, &statusErr) {
		fields = append(fields, logging.Field{Key: "status", Value: statusErr.StatusCode})
	}

	if !s.Ready() {
		s.logger.Error("Machine token fetch failed, no token available", err, fields...)
		return
	}

	fields = append(fields, logging.Field{Key: "error", Value: err.Error()})
	s.logger.Warn("Machine token refresh failed, keeping previous token", fields...)
}

func (s *Service) notify(result RefreshResult) {
	for _, listener := range s.listeners {
		listener(result)
	}
}

// maxTTLSeconds is the longest lifetime a time.Duration can hold
const maxTTLSeconds = math.MaxInt64 / int64(time.Second)

// lifetime converts a TTL in seconds, saturating instead of overflowing
func lifetime(ttlSeconds int64) time.Duration {
	if ttlSeconds > maxTTLSeconds {
		ttlSeconds = maxTTLSeconds
	}
	return time.Duration(ttlSeconds) * time.Second
}

// refreshDelay is half of the token lifetime
func refreshDelay(ttlSeconds int64) time.Duration {
	return lifetime(ttlSeconds) / 2
}
