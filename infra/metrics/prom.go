package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/evdash/core/metrics"
)

const namespace = "evdash"

// PromSink exposes the vehicle state and engine activity as Prometheus
// metrics.
type PromSink struct {
	speed       prometheus.Gauge
	soc         prometheus.Gauge
	soh         prometheus.Gauge
	rangeKm     prometheus.Gauge
	power       prometheus.Gauge
	batteryTemp prometheus.Gauge
	odometer    prometheus.Gauge
	cycles      prometheus.Gauge
	charging    prometheus.Gauge

	chargeSessions *prometheus.CounterVec
	chargeEnergy   prometheus.Counter
	advisoryCalls  *prometheus.CounterVec
	advisoryLat    *prometheus.HistogramVec
	advisoryMerges *prometheus.CounterVec
	rejected       *prometheus.CounterVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}
	s := &PromSink{
		speed:       gauge("speed_kmh", "Vehicle speed"),
		soc:         gauge("battery_soc_percent", "Battery state of charge"),
		soh:         gauge("pack_soh_percent", "Battery pack state of health"),
		rangeKm:     gauge("range_km", "Estimated remaining range"),
		power:       gauge("power_kw", "Battery power, positive when drawing"),
		batteryTemp: gauge("battery_temp_celsius", "Battery temperature"),
		odometer:    gauge("odometer_km", "Total distance driven"),
		cycles:      gauge("equivalent_full_cycles", "Equivalent full charge cycles"),
		charging:    gauge("charging", "1 while a charging session is open"),
		chargeSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charge_sessions_total",
			Help:      "Closed charging sessions",
		}, []string{"clamped"}),
		chargeEnergy: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charge_energy_kwh_total",
			Help:      "Energy added by charging sessions",
		}),
		advisoryCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advisory_calls_total",
			Help:      "Advisory endpoint calls by outcome",
		}, []string{"endpoint", "outcome"}),
		advisoryLat: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "advisory_latency_seconds",
			Help:      "Advisory endpoint call latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		advisoryMerges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advisory_merges_total",
			Help:      "Advisory results applied to or discarded from the state",
		}, []string{"task", "result"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_rejected_total",
			Help:      "Commands refused by the engine",
		}, []string{"command"}),
	}

	var err error
	for _, g := range []*prometheus.Gauge{&s.speed, &s.soc, &s.soh, &s.rangeKm, &s.power, &s.batteryTemp, &s.odometer, &s.cycles, &s.charging} {
		if *g, err = register(reg, *g); err != nil {
			return nil, err
		}
	}
	if s.chargeEnergy, err = register(reg, s.chargeEnergy); err != nil {
		return nil, err
	}
	for _, c := range []**prometheus.CounterVec{&s.chargeSessions, &s.advisoryCalls, &s.advisoryMerges, &s.rejected} {
		if *c, err = register(reg, *c); err != nil {
			return nil, err
		}
	}
	if s.advisoryLat, err = register(reg, s.advisoryLat); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, err
}

// RecordVehicleState sets the state gauges.
func (s *PromSink) RecordVehicleState(ev coremetrics.VehicleStateEvent) error {
	v := ev.Snapshot
	s.speed.Set(v.Speed)
	s.soc.Set(v.BatterySOC)
	s.soh.Set(v.PackSOH)
	s.rangeKm.Set(v.Range)
	s.power.Set(v.Power)
	s.batteryTemp.Set(v.BatteryTemp)
	s.odometer.Set(v.Odometer)
	s.cycles.Set(v.EquivalentFullCycles)
	if v.IsCharging {
		s.charging.Set(1)
	} else {
		s.charging.Set(0)
	}
	return nil
}

func (s *PromSink) RecordChargeSession(ev coremetrics.ChargeSessionEvent) error {
	s.chargeSessions.WithLabelValues(strconv.FormatBool(ev.Clamped)).Inc()
	s.chargeEnergy.Add(ev.Log.EnergyAddedKWh)
	return nil
}

func (s *PromSink) RecordAdvisoryCall(ev coremetrics.AdvisoryCallEvent) error {
	outcome := "success"
	if !ev.Success {
		outcome = "error"
	}
	s.advisoryCalls.WithLabelValues(ev.Endpoint, outcome).Inc()
	s.advisoryLat.WithLabelValues(ev.Endpoint).Observe(ev.Latency.Seconds())
	return nil
}

func (s *PromSink) RecordAdvisoryMerge(ev coremetrics.AdvisoryMergeEvent) error {
	result := "applied"
	if !ev.Applied {
		result = "discarded"
	}
	s.advisoryMerges.WithLabelValues(ev.Task, result).Inc()
	return nil
}

func (s *PromSink) RecordCommandRejected(ev coremetrics.CommandRejectedEvent) error {
	s.rejected.WithLabelValues(ev.Command).Inc()
	return nil
}
