package credentials

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"timetrack-gateway/internal/common/logging"
	"timetrack-gateway/internal/identity"
)

func TestClockTimer_FiresOnce(t *testing.T) {
	timer := NewClockTimer()

	var fired atomic.Int32
	timer.OnElapsed(func() { fired.Add(1) })

	timer.Start(20 * time.Millisecond)
	assert.True(t, timer.Enabled())
	assert.Equal(t, 20*time.Millisecond, timer.Interval())

	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, timer.Enabled())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestClockTimer_Stop(t *testing.T) {
	timer := NewClockTimer()

	var fired atomic.Int32
	timer.OnElapsed(func() { fired.Add(1) })

	timer.Start(30 * time.Millisecond)
	timer.Stop()
	assert.False(t, timer.Enabled())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestClockTimer_RestartReplacesPendingAlarm(t *testing.T) {
	timer := NewClockTimer()

	var fired atomic.Int32
	timer.OnElapsed(func() { fired.Add(1) })

	timer.Start(20 * time.Millisecond)
	timer.Start(time.Hour)

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
	assert.True(t, timer.Enabled())
	assert.Equal(t, time.Hour, timer.Interval())

	timer.Stop()
}

func TestClockTimer_CallbackCanRearm(t *testing.T) {
	timer := NewClockTimer()

	var fired atomic.Int32
	timer.OnElapsed(func() {
		if fired.Add(1) < 3 {
			timer.Start(5 * time.Millisecond)
		}
	})

	timer.Start(5 * time.Millisecond)

	assert.Eventually(t, func() bool { return fired.Load() == 3 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return !timer.Enabled() }, time.Second, 5*time.Millisecond)
}

func TestService_WithClockTimer(t *testing.T) {
	var calls atomic.Int32
	fetcher := fetcherFunc(func(ctx context.Context) (*identity.TokenReply, error) {
		if calls.Add(1) < 3 {
			return nil, &identity.StatusError{StatusCode: 503}
		}
		return reply("T", 3600), nil
	})

	svc, err := NewService(fetcher, NewClockTimer, logging.NewNopLogger(), WithRetryInterval(10*time.Millisecond))
	require.NoError(t, err)
	defer svc.Close()

	assert.False(t, svc.Ready())

	assert.Eventually(t, svc.Ready, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(3), calls.Load())

	token, err := svc.Token()
	require.NoError(t, err)
	assert.Equal(t, "T", token)
	assert.Equal(t, StateFresh, svc.State())
}
