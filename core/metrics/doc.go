// Package metrics defines the sinks that record simulator telemetry:
// periodic vehicle state samples, closed charging sessions, advisory calls
// and rejected commands. Implementations (Prometheus, InfluxDB) live in
// infra/metrics and register themselves by name; NewMetricsSink returns a
// MultiSink automatically when several sinks are configured.
package metrics
