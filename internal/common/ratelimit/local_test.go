package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"timetrack-gateway/internal/common/errors"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"disabled skips checks", Config{Enabled: false}, false},
		{"zero requests", Config{Enabled: true, Window: time.Second}, true},
		{"zero window", Config{Enabled: true, MaxRequests: 1}, true},
		{"unknown backend", Config{Enabled: true, MaxRequests: 1, Window: time.Second, Type: "memcached"}, true},
		{"redis alias", Config{Enabled: true, MaxRequests: 1, Window: time.Second, Type: BackendRedis}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfigValidateDefaults(t *testing.T) {
	local := Config{Enabled: true, MaxRequests: 5, Window: time.Second}
	require.NoError(t, local.Validate())
	assert.Equal(t, BackendLocal, local.Type)
	assert.Equal(t, 10000, local.MaxKeys)
	assert.Equal(t, 5*time.Minute, local.CleanupPeriod)

	distributed := Config{Enabled: true, MaxRequests: 5, Window: time.Second, Type: BackendDistributed}
	require.NoError(t, distributed.Validate())
	assert.Equal(t, "ratelimit:", distributed.KeyPrefix)
}

func TestLocalLimiterKeyBased(t *testing.T) {
	limiter, err := NewLocalLimiter(Config{
		MaxRequests: 3,
		Window:      time.Hour,
		Enabled:     true,
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.TryAcquireForKey("ip:1"), "key1 request %d", i)
		assert.True(t, limiter.TryAcquireForKey("ip:2"), "key2 request %d", i)
	}

	assert.False(t, limiter.TryAcquireForKey("ip:1"))
	assert.False(t, limiter.TryAcquireForKey("ip:2"))
	assert.True(t, limiter.TryAcquireForKey("ip:3"))
}

func TestLocalLimiterRefills(t *testing.T) {
	limiter, err := NewLocalLimiter(Config{
		MaxRequests: 2,
		Window:      100 * time.Millisecond,
		Enabled:     true,
	})
	require.NoError(t, err)

	assert.True(t, limiter.TryAcquireForKey("k"))
	assert.True(t, limiter.TryAcquireForKey("k"))
	assert.False(t, limiter.TryAcquireForKey("k"))

	time.Sleep(60 * time.Millisecond)
	assert.True(t, limiter.TryAcquireForKey("k"))
}

func TestLocalLimiterDisabled(t *testing.T) {
	limiter, err := NewLocalLimiter(Config{Enabled: false})
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		assert.True(t, limiter.TryAcquireForKey("k"))
	}
	assert.NoError(t, limiter.Health())
}

func TestLocalLimiterCleanup(t *testing.T) {
	limiter, err := NewLocalLimiter(Config{
		MaxRequests:   1,
		Window:        time.Minute,
		Enabled:       true,
		MaxKeys:       2,
		CleanupPeriod: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	limiter.TryAcquireForKey("a")
	limiter.TryAcquireForKey("b")
	time.Sleep(40 * time.Millisecond)
	limiter.TryAcquireForKey("c")

	assert.Equal(t, 1, limiter.Stats()["active_keys"])
	// "a" was forgotten, so it starts with a full bucket again
	assert.True(t, limiter.TryAcquireForKey("a"))
}

func TestLocalLimiterStats(t *testing.T) {
	limiter, err := NewLocalLimiter(Config{
		MaxRequests: 10,
		Window:      time.Second,
		Enabled:     true,
	})
	require.NoError(t, err)

	stats := limiter.Stats()
	assert.Equal(t, "local", stats["type"])
	assert.Equal(t, 10, stats["max_requests"])
	assert.Equal(t, "1s", stats["window"])
	assert.Equal(t, true, stats["enabled"])
}

func TestLocalLimiterConcurrent(t *testing.T) {
	limiter, err := NewLocalLimiter(Config{
		MaxRequests: 50,
		Window:      time.Hour,
		Enabled:     true,
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := map[string]int{}

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("ip:%d", i%2)
			if limiter.TryAcquireForKey(key) {
				mu.Lock()
				allowed[key]++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, allowed["ip:0"])
	assert.Equal(t, 50, allowed["ip:1"])
}
