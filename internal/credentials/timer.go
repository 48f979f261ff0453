package credentials

import (
	"sync"
	"time"
)

// Timer is a single-shot alarm. Start arms it with a new interval and
// enables it; when the interval elapses the timer disables itself and runs
// the OnElapsed callback. Stop disarms it without firing.
type Timer interface {
	Start(interval time.Duration)
	Stop()
	Interval() time.Duration
	Enabled() bool
	OnElapsed(fn func())
}

// TimerFactory builds the timer a Service drives
type TimerFactory func() Timer

// ClockTimer is a wall-clock Timer backed by time.AfterFunc. The callback
// runs on its own goroutine.
type ClockTimer struct {
	mu       sync.Mutex
	timer    *time.Timer
	interval time.Duration
	enabled  bool
	onFire   func()
	// generation invalidates callbacks from timers that were re-armed or stopped
	generation uint64
}

// NewClockTimer returns a disarmed ClockTimer. It satisfies TimerFactory.
func NewClockTimer() Timer {
	return &ClockTimer{}
}

// Start arms the timer, replacing any pending alarm
func (c *ClockTimer) Start(interval time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
	}

	c.generation++
	generation := c.generation
	c.interval = interval
	c.enabled = true
	c.timer = time.AfterFunc(interval, func() {
		c.fire(generation)
	})
}

func (c *ClockTimer) fire(generation uint64) {
	c.mu.Lock()
	if !c.enabled || generation != c.generation {
		c.mu.Unlock()
		return
	}
	c.enabled = false
	fn := c.onFire
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Stop disarms the timer
func (c *ClockTimer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.enabled = false
	c.generation++
	if c.timer != nil {
		c.timer.Stop()
	}
}

// Interval returns the interval of the most recent Start
func (c *ClockTimer) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// Enabled reports whether an alarm is pending
func (c *ClockTimer) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// OnElapsed registers the callback run when the alarm fires
func (c *ClockTimer) OnElapsed(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFire = fn
}
