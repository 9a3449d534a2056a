package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/evdash/core/factory"
	"github.com/kilianp07/evdash/core/sim"
)

// AdvisoryConfig selects the advisory service and the task schedule.
type AdvisoryConfig struct {
	// Type is a registered advisory service: "mock" or "http".
	Type string         `json:"type"`
	Conf map[string]any `json:"conf"`

	DrivingIntervalSeconds int `json:"driving_interval_seconds"`
	FatigueIntervalSeconds int `json:"fatigue_interval_seconds"`
	CallTimeoutMS          int `json:"call_timeout_ms"`
	PollIntervalMS         int `json:"poll_interval_ms"`
}

func (c *AdvisoryConfig) SetDefaults() {
	def := sim.DefaultAdvisorConfig()
	if c.Type == "" {
		c.Type = "mock"
	}
	if c.DrivingIntervalSeconds == 0 {
		c.DrivingIntervalSeconds = int(def.DrivingInterval / time.Second)
	}
	if c.FatigueIntervalSeconds == 0 {
		c.FatigueIntervalSeconds = int(def.FatigueInterval / time.Second)
	}
	if c.CallTimeoutMS == 0 {
		c.CallTimeoutMS = int(def.CallTimeout / time.Millisecond)
	}
	if c.PollIntervalMS == 0 {
		c.PollIntervalMS = int(def.PollInterval / time.Millisecond)
	}
}

func (c AdvisoryConfig) Validate() error {
	if c.DrivingIntervalSeconds <= 0 || c.FatigueIntervalSeconds <= 0 {
		return fmt.Errorf("task intervals must be positive")
	}
	if c.CallTimeoutMS <= 0 || c.PollIntervalMS <= 0 {
		return fmt.Errorf("call_timeout_ms and poll_interval_ms must be positive")
	}
	return nil
}

// Module returns the factory configuration of the advisory service.
func (c AdvisoryConfig) Module() factory.ModuleConfig {
	return factory.ModuleConfig{Type: c.Type, Conf: c.Conf}
}

// Advisor converts the schedule into sim.AdvisorConfig.
func (c AdvisoryConfig) Advisor() sim.AdvisorConfig {
	return sim.AdvisorConfig{
		DrivingInterval: time.Duration(c.DrivingIntervalSeconds) * time.Second,
		FatigueInterval: time.Duration(c.FatigueIntervalSeconds) * time.Second,
		CallTimeout:     time.Duration(c.CallTimeoutMS) * time.Millisecond,
		PollInterval:    time.Duration(c.PollIntervalMS) * time.Millisecond,
	}
}
