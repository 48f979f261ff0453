// Package cache is a small in-process TTL cache backed by
// github.com/patrickmn/go-cache. Expired entries are swept on a fixed
// cleanup interval.
//
// Usage:
//
//	c := cache.NewLocalCache(5*time.Minute, 10*time.Minute)
//	c.Set(ctx, "key", "value", time.Hour)
//	val, found := c.Get(ctx, "key")
package cache
