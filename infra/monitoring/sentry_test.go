package monitoring

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evdash/config"
	coremon "github.com/kilianp07/evdash/core/monitoring"
)

func newTestMonitor(t *testing.T) (*sentryMonitor, func() []*sentry.Event) {
	t.Helper()
	var (
		mu     sync.Mutex
		events []*sentry.Event
	)
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(ev *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
			return nil
		},
	})
	require.NoError(t, err)
	hub := sentry.NewHub(client, sentry.NewScope())
	return &sentryMonitor{hub: hub}, func() []*sentry.Event {
		mu.Lock()
		defer mu.Unlock()
		return append([]*sentry.Event(nil), events...)
	}
}

func TestNewSentryMonitorWithoutDSN(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	require.NoError(t, err)
	assert.IsType(t, coremon.NopMonitor{}, m)
}

func TestCaptureExceptionTags(t *testing.T) {
	m, events := newTestMonitor(t)
	m.CaptureException(nil, nil)
	m.CaptureException(errors.New("advisory timeout"), map[string]string{"endpoint": "fatigue"})
	m.CaptureException(errors.New("plain"), nil)
	m.Flush(time.Second)

	got := events()
	require.Len(t, got, 2)
	assert.Equal(t, "fatigue", got[0].Tags["endpoint"])
	assert.Empty(t, got[1].Tags["endpoint"])
}

func TestCapturePanic(t *testing.T) {
	m, events := newTestMonitor(t)
	m.CapturePanic("tick exploded")
	m.Flush(time.Second)
	assert.Len(t, events(), 1)
}
