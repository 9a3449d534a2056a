package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/evdash/core/model"
	"github.com/kilianp07/evdash/core/sim"
)

// SimulationConfig describes the vehicle and its state at start-up.
type SimulationConfig struct {
	FrameIntervalMS int     `json:"frame_interval_ms"`
	InitialSOC      float64 `json:"initial_soc"`
	// OutsideTempC is used until the first weather reading arrives.
	OutsideTempC float64       `json:"outside_temp_c"`
	Physics      model.Physics `json:"physics"`
	// Modes overrides the envelope of individual drive modes, keyed by name.
	Modes         map[string]model.ModeEnvelope `json:"modes"`
	Profiles      map[string]model.Profile      `json:"profiles"`
	ActiveProfile string                        `json:"active_profile"`
}

func (c *SimulationConfig) SetDefaults() {
	def := sim.DefaultInitialState()
	if c.FrameIntervalMS == 0 {
		c.FrameIntervalMS = int(sim.DefaultFrameInterval / time.Millisecond)
	}
	if c.InitialSOC == 0 {
		c.InitialSOC = def.SOC
	}
	if c.OutsideTempC == 0 {
		c.OutsideTempC = def.OutsideTemp
	}
	c.Physics.SetDefaults()
	if len(c.Profiles) == 0 {
		c.Profiles = def.Profiles
	}
	if c.ActiveProfile == "" {
		c.ActiveProfile = def.ActiveProfile
	}
}

func (c SimulationConfig) Validate() error {
	if c.FrameIntervalMS <= 0 {
		return fmt.Errorf("frame_interval_ms must be positive")
	}
	if c.InitialSOC < 0 || c.InitialSOC > 100 {
		return fmt.Errorf("initial_soc must be in [0,100]")
	}
	if err := c.Physics.Validate(); err != nil {
		return fmt.Errorf("physics: %w", err)
	}
	if _, err := c.modeTable(); err != nil {
		return err
	}
	if _, ok := c.Profiles[c.ActiveProfile]; !ok {
		return fmt.Errorf("active_profile %q is not a configured profile", c.ActiveProfile)
	}
	return nil
}

// Params returns the engine tables with the configured overrides applied.
func (c SimulationConfig) Params() (sim.Params, error) {
	modes, err := c.modeTable()
	if err != nil {
		return sim.Params{}, err
	}
	return sim.Params{Modes: modes, Physics: c.Physics}, nil
}

// Initial returns the start-up state.
func (c SimulationConfig) Initial() sim.InitialState {
	return sim.InitialState{
		SOC:           c.InitialSOC,
		OutsideTemp:   c.OutsideTempC,
		Profiles:      c.Profiles,
		ActiveProfile: c.ActiveProfile,
	}
}

// FrameInterval returns FrameIntervalMS as a duration.
func (c SimulationConfig) FrameInterval() time.Duration {
	return time.Duration(c.FrameIntervalMS) * time.Millisecond
}

func (c SimulationConfig) modeTable() (model.ModeTable, error) {
	modes := model.DefaultModes()
	for name, env := range c.Modes {
		m, err := model.ParseDriveMode(name)
		if err != nil {
			return nil, fmt.Errorf("modes: %w", err)
		}
		modes[m] = env
	}
	if err := modes.Validate(); err != nil {
		return nil, fmt.Errorf("modes: %w", err)
	}
	return modes, nil
}
