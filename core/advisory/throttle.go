package advisory

import (
	"sync"
	"time"
)

// Throttle admits at most one call per window. Calls inside the window are
// dropped, not queued.
type Throttle struct {
	mu     sync.Mutex
	window time.Duration
	last   time.Time
}

func NewThrottle(window time.Duration) *Throttle {
	return &Throttle{window: window}
}

// Allow reports whether a call may start at now and, if so, stamps it.
func (t *Throttle) Allow(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.last.IsZero() && now.Sub(t.last) < t.window {
		return false
	}
	t.last = now
	return true
}

// Last returns the time of the last admitted call.
func (t *Throttle) Last() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Window returns the throttle window.
func (t *Throttle) Window() time.Duration { return t.window }
