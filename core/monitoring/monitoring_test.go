package monitoring

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingMonitor struct {
	mu     sync.Mutex
	errs   []error
	tags   []map[string]string
	panics []any
}

func (r *recordingMonitor) CaptureException(err error, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
}

func (r *recordingMonitor) CapturePanic(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panics = append(r.panics, v)
}

func (r *recordingMonitor) Flush(time.Duration) {}

func TestCaptureException_RoutesToCurrent(t *testing.T) {
	rec := &recordingMonitor{}
	Init(rec)
	defer Reset()

	CaptureException(errors.New("boom"), map[string]string{"endpoint": "fatigue"})
	CaptureException(nil, nil)
	Init(nil)
	CaptureException(errors.New("again"), nil)

	assert.Len(t, rec.errs, 2)
	assert.Equal(t, "fatigue", rec.tags[0]["endpoint"])
}

func TestRecover_SwallowsPanic(t *testing.T) {
	rec := &recordingMonitor{}
	Init(rec)
	defer Reset()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer Recover()
		panic("tick")
	}()
	<-done
	assert.Equal(t, []any{"tick"}, rec.panics)
}
