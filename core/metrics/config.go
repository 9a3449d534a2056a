package metrics

import (
	"fmt"

	"github.com/kilianp07/evdash/core/factory"
)

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
	// PrometheusAddr enables the /metrics endpoint when set, e.g. ":2112".
	PrometheusAddr string `json:"prometheus_addr" yaml:"prometheus_addr"`
	// TelemetryIntervalMS is the period of vehicle state samples.
	TelemetryIntervalMS int `json:"telemetry_interval_ms" yaml:"telemetry_interval_ms"`
}

func (c *Config) SetDefaults() {
	if c.TelemetryIntervalMS == 0 {
		c.TelemetryIntervalMS = 1000
	}
}

func (c Config) Validate() error {
	if c.TelemetryIntervalMS < 0 {
		return fmt.Errorf("telemetry_interval_ms must not be negative")
	}
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("sinks[%d]: type is required", i)
		}
	}
	return nil
}
