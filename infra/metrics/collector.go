package metrics

import (
	"context"
	"time"

	coremetrics "github.com/kilianp07/evdash/core/metrics"
	"github.com/kilianp07/evdash/core/model"
	"github.com/kilianp07/evdash/core/monitoring"
	"github.com/kilianp07/evdash/core/sim"
	"github.com/kilianp07/evdash/infra/logger"
	"github.com/kilianp07/evdash/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for events.
// It stops when the context is canceled or the bus is closed.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[sim.Event], sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		CollectEvents(ctx, sub, sink)
	}()
}

// CollectEvents records every event received on events until the channel
// closes or ctx is canceled. Recorders the sink lacks are skipped.
func CollectEvents(ctx context.Context, events <-chan sim.Event, sink coremetrics.MetricsSink) {
	defer monitoring.Recover()
	log := logger.New("metrics_collector")
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := record(sink, ev); err != nil {
				log.Warnf("record %s: %v", ev.EventName(), err)
			}
		}
	}
}

func record(sink coremetrics.MetricsSink, ev sim.Event) error {
	switch e := ev.(type) {
	case sim.ChargeSessionClosed:
		if r, ok := sink.(coremetrics.ChargeSessionRecorder); ok {
			return r.RecordChargeSession(coremetrics.ChargeSessionEvent{Log: e.Log, Clamped: e.Clamped, Time: e.Log.EndTime})
		}
	case sim.AdvisoryCall:
		if r, ok := sink.(coremetrics.AdvisoryCallRecorder); ok {
			errStr := ""
			if e.Err != nil {
				errStr = e.Err.Error()
			}
			return r.RecordAdvisoryCall(coremetrics.AdvisoryCallEvent{
				Endpoint: e.Endpoint,
				Success:  e.Err == nil,
				Error:    errStr,
				Latency:  e.Duration,
				Time:     e.Time,
			})
		}
	case sim.AdvisoryApplied:
		if r, ok := sink.(coremetrics.AdvisoryMergeRecorder); ok {
			return r.RecordAdvisoryMerge(coremetrics.AdvisoryMergeEvent{Task: e.Task, Applied: true, Time: time.Now()})
		}
	case sim.AdvisoryDiscarded:
		if r, ok := sink.(coremetrics.AdvisoryMergeRecorder); ok {
			return r.RecordAdvisoryMerge(coremetrics.AdvisoryMergeEvent{Task: e.Task, Reason: e.Reason, Time: time.Now()})
		}
	case sim.Notice:
		if r, ok := sink.(coremetrics.CommandRecorder); ok {
			return r.RecordCommandRejected(coremetrics.CommandRejectedEvent{Command: e.Command, Reason: e.Message(), Time: e.Time})
		}
	}
	return nil
}

// SnapshotSource provides the current simulation state.
type SnapshotSource interface {
	Snapshot() model.Snapshot
}

// RecordStates samples src every interval into sink until ctx is canceled.
func RecordStates(ctx context.Context, src SnapshotSource, sink coremetrics.MetricsSink, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	log := logger.New("metrics_state")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			ev := coremetrics.VehicleStateEvent{Snapshot: src.Snapshot(), Component: "engine", Time: t}
			if err := sink.RecordVehicleState(ev); err != nil {
				log.Warnf("record vehicle state: %v", err)
			}
		}
	}
}
