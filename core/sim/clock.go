package sim

import (
	"sync"
	"time"
)

// Clock turns scheduler callbacks into elapsed simulation time.
type Clock interface {
	// Tick reports the time elapsed since the previous call. A non-positive
	// result means the tick must be skipped.
	Tick(now time.Time) time.Duration
}

// WallClock measures real elapsed time between ticks. The first tick only
// records the reference time.
type WallClock struct {
	mu   sync.Mutex
	last time.Time
}

func (c *WallClock) Tick(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last.IsZero() {
		c.last = now
		return 0
	}
	dt := now.Sub(c.last)
	if dt > 0 {
		c.last = now
	}
	return dt
}

// StepClock ignores wall time and advances by a fixed step.
type StepClock struct {
	Step time.Duration
}

func (c StepClock) Tick(time.Time) time.Duration { return c.Step }

// ManualClock advances only when told to. Tick consumes the pending amount.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	pending time.Duration
}

// NewManualClock starts a manual clock at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.pending += d
	c.mu.Unlock()
}

// Now returns the manual time. It can be passed to WithNow.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Tick(time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	dt := c.pending
	c.pending = 0
	return dt
}
