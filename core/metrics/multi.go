package metrics

import "errors"

// MultiSink fans records out to several sinks. Optional recorders are only
// forwarded to sinks implementing them.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordVehicleState forwards the sample to all sinks and joins their errors.
func (m *MultiSink) RecordVehicleState(ev VehicleStateEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordVehicleState(ev))
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordChargeSession(ev ChargeSessionEvent) error {
	return forward(m.Sinks, func(r ChargeSessionRecorder) error { return r.RecordChargeSession(ev) })
}

func (m *MultiSink) RecordAdvisoryCall(ev AdvisoryCallEvent) error {
	return forward(m.Sinks, func(r AdvisoryCallRecorder) error { return r.RecordAdvisoryCall(ev) })
}

func (m *MultiSink) RecordAdvisoryMerge(ev AdvisoryMergeEvent) error {
	return forward(m.Sinks, func(r AdvisoryMergeRecorder) error { return r.RecordAdvisoryMerge(ev) })
}

func (m *MultiSink) RecordCommandRejected(ev CommandRejectedEvent) error {
	return forward(m.Sinks, func(r CommandRecorder) error { return r.RecordCommandRejected(ev) })
}

func forward[R any](sinks []MetricsSink, fn func(R) error) error {
	var errs []error
	for _, s := range sinks {
		if r, ok := s.(R); ok {
			errs = append(errs, fn(r))
		}
	}
	return errors.Join(errs...)
}

// Close releases every sink that holds resources.
func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
