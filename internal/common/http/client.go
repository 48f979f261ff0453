// Package http builds the pooled HTTP clients and transports the gateway uses
// for identity-provider calls and for proxying to backends.
package http

import (
	"net"
	"net/http"
	"time"
)

// ClientConfig holds HTTP client configuration
type ClientConfig struct {
	Timeout               time.Duration
	DialTimeout           time.Duration
	ResponseHeaderTimeout time.Duration
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	IdleConnTimeout       time.Duration
	DisableKeepAlives     bool
	DisableCompression    bool
	Transport             http.RoundTripper
	CheckRedirect         func(req *http.Request, via []*http.Request) error
}

// DefaultClientConfig returns default HTTP client configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:             30 * time.Second,
		DialTimeout:         10 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
}

// ClientOption is a function that modifies ClientConfig
type ClientOption func(*ClientConfig)

// WithTimeout sets the overall client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}

// WithResponseHeaderTimeout bounds the wait for response headers on the transport
func WithResponseHeaderTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.ResponseHeaderTimeout = timeout
	}
}

// WithMaxIdleConnsPerHost sets the maximum number of idle connections per host
func WithMaxIdleConnsPerHost(max int) ClientOption {
	return func(c *ClientConfig) {
		c.MaxIdleConnsPerHost = max
	}
}

// WithoutCompression disables transparent compression. The proxy uses this so
// backend encodings are relayed untouched.
func WithoutCompression() ClientOption {
	return func(c *ClientConfig) {
		c.DisableCompression = true
	}
}

// WithTransport sets a custom transport
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *ClientConfig) {
		c.Transport = transport
	}
}

// WithCheckRedirect sets a custom redirect policy
func WithCheckRedirect(checkRedirect func(req *http.Request, via []*http.Request) error) ClientOption {
	return func(c *ClientConfig) {
		c.CheckRedirect = checkRedirect
	}
}

func buildConfig(opts []ClientOption) ClientConfig {
	cfg := DefaultClientConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewTransport creates a pooled *http.Transport from the given options.
// WithTransport is ignored here.
func NewTransport(opts ...ClientOption) *http.Transport {
	cfg := buildConfig(opts)
	return newTransport(cfg)
}

func newTransport(cfg ClientConfig) *http.Transport {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		DisableKeepAlives:     cfg.DisableKeepAlives,
		DisableCompression:    cfg.DisableCompression,
		TLSHandshakeTimeout:   10 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return transport
}

// NewHTTPClient creates a new HTTP client with the given options
func NewHTTPClient(opts ...ClientOption) *http.Client {
	cfg := buildConfig(opts)

	transport := cfg.Transport
	if transport == nil {
		transport = newTransport(cfg)
	}

	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}

	if cfg.CheckRedirect != nil {
		client.CheckRedirect = cfg.CheckRedirect
	}

	return client
}
