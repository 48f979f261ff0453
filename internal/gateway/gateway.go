// Package gateway is the HTTP entry point in front of the dashboard and
// downloads backends. Every request is routed by the routing package and then
// answered with a challenge, a redirect, or a reverse-proxied backend response.
package gateway

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"timetrack-gateway/internal/common/errors"
	"timetrack-gateway/internal/common/logging"
	"timetrack-gateway/internal/metrics"
	"timetrack-gateway/internal/routing"
)

// Router produces a routing decision for a request path
type Router interface {
	Route(rawPath string, authenticated bool) routing.Decision
}

// Authenticator reports whether a request carries a valid caller session
type Authenticator interface {
	Authenticated(r *http.Request) bool
}

// Option configures a Gateway
type Option func(*Gateway)

// WithTransport sets the RoundTripper used for backend. Backends that need
// the machine token get a credentials.Transport here.
func WithTransport(backend string, transport http.RoundTripper) Option {
	return func(g *Gateway) {
		g.transports[backend] = transport
	}
}

// WithDefaultTransport sets the RoundTripper for backends without their own
func WithDefaultTransport(transport http.RoundTripper) Option {
	return func(g *Gateway) {
		g.defaultTransport = transport
	}
}

// WithLogger sets the gateway logger
func WithLogger(logger logging.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithChallengeRealm sets the realm advertised in WWW-Authenticate
func WithChallengeRealm(realm string) Option {
	return func(g *Gateway) {
		g.realm = realm
	}
}

// Gateway implements http.Handler
type Gateway struct {
	router           Router
	auth             Authenticator
	transports       map[string]http.RoundTripper
	defaultTransport http.RoundTripper
	proxies          map[string]*httputil.ReverseProxy
	fallback         *httputil.ReverseProxy
	logger           logging.Logger
	realm            string
}

type targetKey struct{}

type forwardTarget struct {
	url     *url.URL
	backend string
}

// New builds a Gateway. auth may be nil, in which case every caller is
// treated as unauthenticated.
func New(router Router, auth Authenticator, opts ...Option) *Gateway {
	g := &Gateway{
		router:     router,
		auth:       auth,
		transports: make(map[string]http.RoundTripper),
		proxies:    make(map[string]*httputil.ReverseProxy),
		realm:      "timetrack",
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.logger == nil {
		g.logger = logging.GetGlobalLogger()
	}
	g.logger = g.logger.WithFields(logging.Field{Key: "component", Value: "gateway"})

	if g.defaultTransport == nil {
		g.defaultTransport = http.DefaultTransport
	}

	for backend, transport := range g.transports {
		g.proxies[backend] = g.newProxy(transport)
	}
	g.fallback = g.newProxy(g.defaultTransport)

	return g
}

func (g *Gateway) newProxy(transport http.RoundTripper) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite:      rewrite,
		Transport:    transport,
		ErrorHandler: g.handleProxyError,
	}
}

// rewrite points the outbound request at the routed backend URL. The inbound
// query string is never forwarded.
func rewrite(pr *httputil.ProxyRequest) {
	target, _ := pr.In.Context().Value(targetKey{}).(*forwardTarget)
	if target == nil {
		return
	}

	out := *target.url
	pr.Out.URL = &out
	pr.Out.Host = ""
	pr.SetXForwarded()
}

// ServeHTTP routes and forwards one request
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	authenticated := g.auth != nil && g.auth.Authenticated(r)
	decision := g.router.Route(r.URL.RequestURI(), authenticated)

	if decision.ShouldChallenge {
		w.Header().Set("WWW-Authenticate", `Bearer realm="`+g.realm+`"`)
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	if decision.RedirectTo != "" {
		http.Redirect(w, r, decision.RedirectTo, http.StatusFound)
		return
	}

	target, err := url.Parse(decision.BackendPath)
	if err != nil {
		g.logger.WithContext(r.Context()).Error("Routed to an unparseable backend URL", err,
			logging.Field{Key: "backend", Value: decision.Backend},
			logging.Field{Key: "backend_path", Value: decision.BackendPath},
		)
		http.Error(w, "Bad gateway", http.StatusBadGateway)
		return
	}

	metrics.RecordRoutedRequest(decision.Backend)

	ctx := context.WithValue(r.Context(), targetKey{}, &forwardTarget{url: target, backend: decision.Backend})
	start := time.Now()
	g.proxyFor(decision.Backend).ServeHTTP(w, r.WithContext(ctx))
	metrics.RecordUpstreamDuration(decision.Backend, time.Since(start))
}

func (g *Gateway) proxyFor(backend string) *httputil.ReverseProxy {
	if proxy, ok := g.proxies[backend]; ok {
		return proxy
	}
	return g.fallback
}

func (g *Gateway) handleProxyError(w http.ResponseWriter, r *http.Request, err error) {
	backend := ""
	if target, ok := r.Context().Value(targetKey{}).(*forwardTarget); ok {
		backend = target.backend
	}

	logger := g.logger.WithContext(r.Context()).WithFields(
		logging.Field{Key: "backend", Value: backend},
		logging.Field{Key: "path", Value: r.URL.Path},
	)

	if stderrors.Is(err, context.Canceled) {
		logger.Debug("Client went away before the backend answered")
		w.WriteHeader(499)
		return
	}

	metrics.RecordUpstreamError(backend)

	if errors.IsType(err, errors.ErrTypeUnavailable) {
		logger.Warn("Backend credentials unavailable", logging.Field{Key: "error", Value: err.Error()})
		w.Header().Set("Retry-After", "5")
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	}

	logger.Error("Proxy request failed", err)
	http.Error(w, "Bad gateway", http.StatusBadGateway)
}
