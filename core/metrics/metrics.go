package metrics

import (
	"time"

	"github.com/kilianp07/evdash/core/model"
)

// VehicleStateEvent is a periodic sample of the simulation state.
type VehicleStateEvent struct {
	Snapshot  model.Snapshot
	Component string
	Time      time.Time
}

// MetricsSink records vehicle state samples. It is the one method every
// sink implements; the other recorders are optional.
type MetricsSink interface {
	RecordVehicleState(ev VehicleStateEvent) error
}

// ChargeSessionEvent is a closed charging session.
type ChargeSessionEvent struct {
	Log     model.ChargeLog
	Clamped bool
	Time    time.Time
}

// ChargeSessionRecorder records closed charging sessions.
type ChargeSessionRecorder interface {
	RecordChargeSession(ev ChargeSessionEvent) error
}

// AdvisoryCallEvent is the outcome of one advisory endpoint call.
type AdvisoryCallEvent struct {
	Endpoint string
	Success  bool
	Error    string
	Latency  time.Duration
	Time     time.Time
}

// AdvisoryCallRecorder records advisory calls.
type AdvisoryCallRecorder interface {
	RecordAdvisoryCall(ev AdvisoryCallEvent) error
}

// AdvisoryMergeEvent reports whether an advisory result reached the snapshot.
type AdvisoryMergeEvent struct {
	Task    string
	Applied bool
	Reason  string
	Time    time.Time
}

// AdvisoryMergeRecorder records applied and discarded advisory results.
type AdvisoryMergeRecorder interface {
	RecordAdvisoryMerge(ev AdvisoryMergeEvent) error
}

// CommandRejectedEvent is a command refused by the engine.
type CommandRejectedEvent struct {
	Command string
	Reason  string
	Time    time.Time
}

// CommandRecorder records rejected commands.
type CommandRecorder interface {
	RecordCommandRejected(ev CommandRejectedEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordVehicleState(VehicleStateEvent) error       { return nil }
func (NopSink) RecordChargeSession(ChargeSessionEvent) error     { return nil }
func (NopSink) RecordAdvisoryCall(AdvisoryCallEvent) error       { return nil }
func (NopSink) RecordAdvisoryMerge(AdvisoryMergeEvent) error     { return nil }
func (NopSink) RecordCommandRejected(CommandRejectedEvent) error { return nil }
