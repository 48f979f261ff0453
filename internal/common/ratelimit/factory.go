package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"

	"timetrack-gateway/internal/common/errors"
	"timetrack-gateway/internal/common/logging"
	"timetrack-gateway/internal/metrics"
)

// New creates a new rate limiter based on the configuration
func New(config Config, logger logging.Logger, redisClient ...RedisInterface) (Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case BackendDistributed, BackendRedis:
		if len(redisClient) == 0 || redisClient[0] == nil {
			return nil, errors.ConfigError("redis client is required for distributed rate limiter")
		}
		return NewDistributedLimiter(config, redisClient[0], logger)
	default:
		return NewLocalLimiter(config)
	}
}

// HTTPMiddleware rejects requests over their key's allowance with 429.
// Requests whose key is empty are not limited.
func HTTPMiddleware(limiter Limiter, keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" || limiter.TryAcquireForKey(key) {
				next.ServeHTTP(w, r)
				return
			}

			metrics.RecordRateLimited()

			stats := limiter.Stats()
			if limit, ok := stats["max_requests"].(int); ok {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
				w.Header().Set("X-RateLimit-Remaining", "0")
			}
			w.Header().Set("Retry-After", "1")

			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
		})
	}
}

// IPKey keys on the connection's peer address. Forwarding headers are
// ignored because any caller can set them.
func IPKey(r *http.Request) string {
	return keyForIP(peerIP(r))
}

// TrustedProxyKey honours X-Forwarded-For and X-Real-IP only when the peer is
// inside one of trusted. The client is the rightmost X-Forwarded-For entry
// that is not itself a trusted proxy. With no trusted prefixes it is IPKey.
func TrustedProxyKey(trusted []netip.Prefix) func(*http.Request) string {
	if len(trusted) == 0 {
		return IPKey
	}

	isTrusted := func(ip string) bool {
		addr, err := netip.ParseAddr(ip)
		if err != nil {
			return false
		}
		addr = addr.Unmap()
		for _, prefix := range trusted {
			if prefix.Contains(addr) {
				return true
			}
		}
		return false
	}

	return func(r *http.Request) string {
		peer := peerIP(r)
		if !isTrusted(peer) {
			return keyForIP(peer)
		}

		entries := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
		for i := len(entries) - 1; i >= 0; i-- {
			ip := strings.TrimSpace(entries[i])
			if ip != "" && !isTrusted(ip) {
				return keyForIP(ip)
			}
		}

		if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
			return keyForIP(realIP)
		}
		return keyForIP(peer)
	}
}

// ParseTrustedProxies accepts CIDR prefixes and bare addresses
func ParseTrustedProxies(values []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(values))
	for _, value := range values {
		if prefix, err := netip.ParsePrefix(value); err == nil {
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(value)
		if err != nil {
			return nil, errors.ConfigError(fmt.Sprintf("invalid trusted proxy %q: must be an IP address or CIDR prefix", value))
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func peerIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func keyForIP(ip string) string {
	if ip == "" {
		return ""
	}
	return "ip:" + ip
}
