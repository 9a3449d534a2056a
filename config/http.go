package config

import (
	"fmt"
	"time"
)

// HTTPConfig configures the dashboard API.
type HTTPConfig struct {
	// Addr is the listen address. An empty address disables the API.
	Addr string `json:"addr"`
	// Token, when set, is required as "Bearer <token>" on every request.
	Token string `json:"token"`
	// StreamIntervalMS is the period of websocket snapshot frames.
	StreamIntervalMS int `json:"stream_interval_ms"`
}

func (c *HTTPConfig) SetDefaults() {
	if c.StreamIntervalMS == 0 {
		c.StreamIntervalMS = 100
	}
}

func (c HTTPConfig) Validate() error {
	if c.StreamIntervalMS < 0 {
		return fmt.Errorf("stream_interval_ms must not be negative")
	}
	return nil
}

// StreamInterval returns StreamIntervalMS as a duration.
func (c HTTPConfig) StreamInterval() time.Duration {
	return time.Duration(c.StreamIntervalMS) * time.Millisecond
}
