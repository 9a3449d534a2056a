// Package monitoring is the error-reporting seam of the simulator. Advisory
// failures and panics in background goroutines are routed here; the sentry
// implementation lives in infra/monitoring.
package monitoring

import (
	"sync/atomic"
	"time"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	// CapturePanic records a recovered panic value.
	CapturePanic(v any)
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) CapturePanic(any)                          {}
func (NopMonitor) Flush(time.Duration)                       {}

type holder struct{ m Monitor }

var current atomic.Pointer[holder]

func init() {
	current.Store(&holder{m: NopMonitor{}})
}

// Init sets the global monitor implementation. A nil monitor is ignored.
func Init(m Monitor) {
	if m != nil {
		current.Store(&holder{m: m})
	}
}

// Reset restores the no-op monitor.
func Reset() {
	current.Store(&holder{m: NopMonitor{}})
}

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	current.Load().m.CaptureException(err, tags)
}

// Recover captures panics in goroutines and lets them continue. It must be
// deferred directly.
func Recover() {
	if r := recover(); r != nil {
		current.Load().m.CapturePanic(r)
	}
}

// Flush flushes buffered events.
func Flush(d time.Duration) {
	current.Load().m.Flush(d)
}
