package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewLocalCache(time.Minute, time.Minute)

	_, found := c.Get(ctx, "missing")
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "key", true, 0))
	val, found := c.Get(ctx, "key")
	require.True(t, found)
	assert.Equal(t, true, val)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete(ctx, "key"))
	_, found = c.Get(ctx, "key")
	assert.False(t, found)
}

func TestLocalCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewLocalCache(time.Minute, time.Minute)

	require.NoError(t, c.Set(ctx, "short", "v", 20*time.Millisecond))
	require.NoError(t, c.Set(ctx, "long", "v", time.Hour))

	time.Sleep(50 * time.Millisecond)

	_, found := c.Get(ctx, "short")
	assert.False(t, found)
	_, found = c.Get(ctx, "long")
	assert.True(t, found)
}
