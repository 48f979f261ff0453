// Package metrics defines the gateway's Prometheus metrics
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gateway"

// Registry holds every gateway metric plus the Go and process collectors
var Registry = prometheus.NewRegistry()

var (
	routedRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routed_requests_total",
			Help:      "Requests forwarded, by backend.",
		},
		[]string{"backend"},
	)
	upstreamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Forwarded requests that failed before a backend response was received.",
		},
		[]string{"backend"},
	)
	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Time spent proxying a request to its backend.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend"},
	)
	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the rate limiter.",
		},
	)
	credentialRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "credentials",
			Name:      "refresh_total",
			Help:      "Machine token fetch attempts, by result.",
		},
		[]string{"result"},
	)
	credentialReady = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "credentials",
			Name:      "token_ready",
			Help:      "1 once a machine token has been obtained.",
		},
	)
	credentialExpiry = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "credentials",
			Name:      "token_expiry_timestamp_seconds",
			Help:      "Unix time at which the published machine token expires.",
		},
	)
	breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 open, 2 half-open.",
		},
		[]string{"breaker"},
	)
)

var registerMetrics sync.Once

// Register adds all metrics to Registry. Safe to call more than once.
func Register() {
	registerMetrics.Do(func() {
		Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			routedRequests,
			upstreamErrors,
			upstreamDuration,
			rateLimited,
			credentialRefreshes,
			credentialReady,
			credentialExpiry,
			breakerState,
		)
	})
}

// Handler serves Registry in the Prometheus exposition format
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// RecordRoutedRequest counts a request forwarded to backend
func RecordRoutedRequest(backend string) {
	routedRequests.WithLabelValues(backend).Inc()
}

// RecordUpstreamError counts a proxy failure for backend
func RecordUpstreamError(backend string) {
	upstreamErrors.WithLabelValues(backend).Inc()
}

// RecordUpstreamDuration observes how long proxying to backend took
func RecordUpstreamDuration(backend string, d time.Duration) {
	upstreamDuration.WithLabelValues(backend).Observe(d.Seconds())
}

// RecordRateLimited counts a rejected request
func RecordRateLimited() {
	rateLimited.Inc()
}

// RecordCredentialRefresh records one machine token fetch attempt. expiresAt
// is the published token's expiry and is ignored when zero.
func RecordCredentialRefresh(success, ready bool, expiresAt time.Time) {
	result := "failure"
	if success {
		result = "success"
	}
	credentialRefreshes.WithLabelValues(result).Inc()

	if ready {
		credentialReady.Set(1)
	} else {
		credentialReady.Set(0)
	}
	if !expiresAt.IsZero() {
		credentialExpiry.Set(float64(expiresAt.Unix()))
	}
}

// SetBreakerState publishes a breaker's state code
func SetBreakerState(breaker string, state int) {
	breakerState.WithLabelValues(breaker).Set(float64(state))
}
