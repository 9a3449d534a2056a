package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/evdash/core/metrics"
	"github.com/kilianp07/evdash/infra/logger"
)

// InfluxSink writes simulation telemetry to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// InfluxConfig is the decoded configuration of the "influx" sink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
	// Fallback returns a NopSink when the health check fails.
	Fallback bool `json:"fallback"`
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordVehicleState writes a snapshot of the vehicle.
func (s *InfluxSink) RecordVehicleState(ev coremetrics.VehicleStateEvent) error {
	v := ev.Snapshot
	p := write.NewPointWithMeasurement("vehicle_state")
	if ev.Component != "" {
		p.AddTag("component", ev.Component)
	}
	p = p.AddTag("drive_mode", v.DriveMode.String()).
		AddTag("profile", v.ActiveProfile).
		AddField("speed", round3(v.Speed)).
		AddField("soc", round3(v.BatterySOC)).
		AddField("soh", round3(v.PackSOH)).
		AddField("range_km", round3(v.Range)).
		AddField("power_kw", round3(v.Power)).
		AddField("wh_per_km", round3(v.RecentWhPerKm)).
		AddField("battery_temp", round3(v.BatteryTemp)).
		AddField("odometer", round3(v.Odometer)).
		AddField("charging", v.IsCharging).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordChargeSession writes a closed charging session.
func (s *InfluxSink) RecordChargeSession(ev coremetrics.ChargeSessionEvent) error {
	l := ev.Log
	p := write.NewPointWithMeasurement("charge_session").
		AddTag("session_id", l.ID).
		AddTag("clamped", strconv.FormatBool(ev.Clamped)).
		AddField("start_soc", round3(l.StartSOC)).
		AddField("end_soc", round3(l.EndSOC)).
		AddField("energy_added_kwh", round3(l.EnergyAddedKWh)).
		AddField("duration_s", round3(l.EndTime.Sub(l.StartTime).Seconds())).
		SetTime(l.EndTime)
	return s.write(p)
}

// RecordAdvisoryCall writes the outcome of one advisory endpoint call.
func (s *InfluxSink) RecordAdvisoryCall(ev coremetrics.AdvisoryCallEvent) error {
	p := write.NewPointWithMeasurement("advisory_call").
		AddTag("endpoint", ev.Endpoint).
		AddTag("success", strconv.FormatBool(ev.Success)).
		AddField("latency_ms", round3(ev.Latency.Seconds()*1000)).
		AddField("errors", ev.Error).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordCommandRejected writes a refused command.
func (s *InfluxSink) RecordCommandRejected(ev coremetrics.CommandRejectedEvent) error {
	p := write.NewPointWithMeasurement("command_rejected").
		AddTag("command", ev.Command).
		AddField("reason", ev.Reason).
		SetTime(ev.Time)
	return s.write(p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
