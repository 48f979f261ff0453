// Package ratelimit limits how many requests each caller may send through the
// gateway. It supports a local (in-memory) and a distributed (Redis-backed)
// backend behind one Limiter interface.
//
// # Basic Usage
//
//	limiter, err := ratelimit.New(ratelimit.Config{
//		MaxRequests: 100,
//		Window:      time.Minute,
//		Enabled:     true,
//	}, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if !limiter.TryAcquireForKey("ip:192.0.2.1") {
//		// caller has exceeded its allowance
//	}
//
// # HTTP Middleware
//
//	middleware := ratelimit.HTTPMiddleware(limiter, ratelimit.IPKey)
//	router.PathPrefix("/").Handler(middleware(gatewayHandler))
//
// IPKey keys on the peer address only. Behind a reverse proxy use
// TrustedProxyKey, which reads X-Forwarded-For only from listed proxies.
//
// # Backend Types
//
//   - BackendLocal: token bucket per key using golang.org/x/time/rate. The
//     bucket holds MaxRequests tokens and refills one token every
//     Window/MaxRequests.
//   - BackendDistributed: sliding window counter per key in Redis, shared by
//     every gateway instance. Redis errors let the request through.
//
// # Thread Safety
//
// All limiter implementations are safe for concurrent use.
package ratelimit
