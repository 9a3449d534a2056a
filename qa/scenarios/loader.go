// Package scenarios replays scripted drives against the engine on a manual
// clock and checks the resulting state.
package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/evdash/core/model"
	"github.com/kilianp07/evdash/core/sim"
)

// Bounds is an inclusive range; a nil side is open.
type Bounds struct {
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`
}

func (b *Bounds) check(name string, v float64) error {
	if b == nil {
		return nil
	}
	if b.Min != nil && v < *b.Min {
		return fmt.Errorf("%s = %.4f, want >= %.4f", name, v, *b.Min)
	}
	if b.Max != nil && v > *b.Max {
		return fmt.Errorf("%s = %.4f, want <= %.4f", name, v, *b.Max)
	}
	return nil
}

// Expect lists assertions on the snapshot. Unset fields are not checked.
type Expect struct {
	Speed         *Bounds `yaml:"speed,omitempty"`
	SOC           *Bounds `yaml:"soc,omitempty"`
	SOH           *Bounds `yaml:"soh,omitempty"`
	Range         *Bounds `yaml:"range,omitempty"`
	Odometer      *Bounds `yaml:"odometer,omitempty"`
	TripA         *Bounds `yaml:"trip_a,omitempty"`
	TripB         *Bounds `yaml:"trip_b,omitempty"`
	IsCharging    *bool   `yaml:"is_charging,omitempty"`
	DriveMode     string  `yaml:"drive_mode,omitempty"`
	ActiveProfile string  `yaml:"active_profile,omitempty"`
	ChargingLogs  *int    `yaml:"charging_logs,omitempty"`
	SOHSamples    *int    `yaml:"soh_samples,omitempty"`
}

// Step is one scripted action. Pedal and Command are applied first, then the
// engine runs for ForSeconds, then Expect is checked.
type Step struct {
	Pedal      string       `yaml:"pedal,omitempty"`
	Command    *sim.Command `yaml:"command,omitempty"`
	ForSeconds float64      `yaml:"for_s,omitempty"`
	// ExpectError is a substring of the error the command must return.
	ExpectError string  `yaml:"expect_error,omitempty"`
	Expect      *Expect `yaml:"expect,omitempty"`
}

// Initial overrides the default start state.
type Initial struct {
	SOC         *float64 `yaml:"soc,omitempty"`
	OutsideTemp *float64 `yaml:"outside_temp_c,omitempty"`
}

type Scenario struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description,omitempty"`
	StepMS      int     `yaml:"step_ms"`
	Initial     Initial `yaml:"initial,omitempty"`
	Steps       []Step  `yaml:"steps"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &sc, nil
}

// Validate checks the script before it runs.
func (sc *Scenario) Validate() error {
	if sc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if sc.StepMS == 0 {
		sc.StepMS = int(sim.DefaultFrameInterval.Milliseconds())
	}
	if sc.StepMS < 0 {
		return fmt.Errorf("step_ms must be positive")
	}
	for i, st := range sc.Steps {
		if _, err := model.ParsePedal(st.Pedal); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
		if st.ForSeconds < 0 {
			return fmt.Errorf("step %d: for_s must not be negative", i)
		}
		if st.ExpectError != "" && st.Command == nil {
			return fmt.Errorf("step %d: expect_error without command", i)
		}
	}
	return nil
}
