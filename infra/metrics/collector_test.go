package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/evdash/core/metrics"
	"github.com/kilianp07/evdash/core/model"
	"github.com/kilianp07/evdash/core/sim"
	"github.com/kilianp07/evdash/internal/eventbus"
)

type captureSink struct {
	coremetrics.NopSink
	mu       sync.Mutex
	states   []coremetrics.VehicleStateEvent
	sessions []coremetrics.ChargeSessionEvent
	calls    []coremetrics.AdvisoryCallEvent
	merges   []coremetrics.AdvisoryMergeEvent
	rejected []coremetrics.CommandRejectedEvent
}

func (c *captureSink) RecordVehicleState(ev coremetrics.VehicleStateEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states = append(c.states, ev)
	return nil
}

func (c *captureSink) RecordChargeSession(ev coremetrics.ChargeSessionEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions = append(c.sessions, ev)
	return nil
}

func (c *captureSink) RecordAdvisoryCall(ev coremetrics.AdvisoryCallEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, ev)
	return nil
}

func (c *captureSink) RecordAdvisoryMerge(ev coremetrics.AdvisoryMergeEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.merges = append(c.merges, ev)
	return nil
}

func (c *captureSink) RecordCommandRejected(ev coremetrics.CommandRejectedEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rejected = append(c.rejected, ev)
	return nil
}

func (c *captureSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions) + len(c.calls) + len(c.merges) + len(c.rejected)
}

func TestStartEventCollector(t *testing.T) {
	bus := eventbus.NewTyped[sim.Event]()
	sink := &captureSink{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartEventCollector(ctx, bus, sink)

	// Subscribe happens synchronously, so nothing published below is lost.
	bus.Publish(sim.ChargeSessionClosed{Log: model.ChargeLog{ID: "s1", EnergyAddedKWh: 1}})
	bus.Publish(sim.AdvisoryCall{Endpoint: "fatigue", Err: errors.New("boom"), Duration: time.Millisecond})
	bus.Publish(sim.AdvisoryApplied{Task: sim.TaskDriving})
	bus.Publish(sim.AdvisoryDiscarded{Task: sim.TaskFatigue, Reason: "generation changed"})
	bus.Publish(sim.Notice{Command: sim.CmdToggleCharging, Err: sim.ErrChargeWhileMoving})
	bus.Publish(sim.SOHSampled{})

	require.Eventually(t, func() bool { return sink.count() == 5 }, time.Second, 5*time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, "s1", sink.sessions[0].Log.ID)
	assert.False(t, sink.calls[0].Success)
	assert.Equal(t, "boom", sink.calls[0].Error)
	require.Len(t, sink.merges, 2)
	assert.True(t, sink.merges[0].Applied)
	assert.False(t, sink.merges[1].Applied)
	assert.Equal(t, "generation changed", sink.merges[1].Reason)
	assert.Equal(t, sim.CmdToggleCharging, sink.rejected[0].Command)
	assert.Equal(t, sim.ErrChargeWhileMoving.Error(), sink.rejected[0].Reason)
}

func TestCollectEventsSkipsMissingRecorders(t *testing.T) {
	events := make(chan sim.Event, 2)
	events <- sim.ChargeSessionClosed{}
	events <- sim.Notice{Command: "x"}
	close(events)
	CollectEvents(context.Background(), events, stateOnly{})
}

// stateOnly implements none of the optional recorders.
type stateOnly struct{}

func (stateOnly) RecordVehicleState(coremetrics.VehicleStateEvent) error { return nil }

type fixedSource struct{ snap model.Snapshot }

func (f fixedSource) Snapshot() model.Snapshot { return f.snap }

func TestRecordStates(t *testing.T) {
	sink := &captureSink{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RecordStates(ctx, fixedSource{model.Snapshot{BatterySOC: 61}}, sink, 5*time.Millisecond)
		close(done)
	}()
	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.states) >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, 61.0, sink.states[0].Snapshot.BatterySOC)
	assert.Equal(t, "engine", sink.states[0].Component)
}
