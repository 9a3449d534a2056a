package model

import (
	"fmt"
	"strings"
)

// DriveMode selects the performance envelope of the vehicle.
type DriveMode int

const (
	ModeEco DriveMode = iota
	ModeCity
	ModeSports
)

// String returns a human-readable representation of the drive mode.
func (m DriveMode) String() string {
	switch m {
	case ModeEco:
		return "Eco"
	case ModeCity:
		return "City"
	case ModeSports:
		return "Sports"
	default:
		return "unknown"
	}
}

// Valid reports whether m is one of the known drive modes.
func (m DriveMode) Valid() bool {
	return m >= ModeEco && m <= ModeSports
}

// ParseDriveMode converts a case-insensitive mode name into a DriveMode.
func ParseDriveMode(s string) (DriveMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "eco":
		return ModeEco, nil
	case "city":
		return ModeCity, nil
	case "sports", "sport":
		return ModeSports, nil
	default:
		return ModeEco, fmt.Errorf("unknown drive mode %q", s)
	}
}

// MarshalText encodes the mode by name.
func (m DriveMode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid drive mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name.
func (m *DriveMode) UnmarshalText(b []byte) error {
	v, err := ParseDriveMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ModeEnvelope is the performance envelope of one drive mode. Rates are
// expressed in km/h per second so they integrate directly against speed.
type ModeEnvelope struct {
	MaxSpeed        float64 `json:"max_speed" yaml:"max_speed"`               // km/h
	AccelRate       float64 `json:"accel_rate" yaml:"accel_rate"`             // km/h/s
	BrakeRate       float64 `json:"brake_rate" yaml:"brake_rate"`             // km/h/s, positive
	RegenEfficiency float64 `json:"regen_efficiency" yaml:"regen_efficiency"` // [0,1]
}

// ModeTable maps every drive mode to its envelope.
type ModeTable map[DriveMode]ModeEnvelope

// DefaultModes returns the built-in envelopes.
func DefaultModes() ModeTable {
	return ModeTable{
		ModeEco:    {MaxSpeed: 45, AccelRate: 3, BrakeRate: 6, RegenEfficiency: 0.9},
		ModeCity:   {MaxSpeed: 80, AccelRate: 5, BrakeRate: 8, RegenEfficiency: 0.7},
		ModeSports: {MaxSpeed: 140, AccelRate: 9, BrakeRate: 10, RegenEfficiency: 0.5},
	}
}

// Envelope returns the envelope for m, falling back to the Eco envelope for
// modes missing from the table.
func (t ModeTable) Envelope(m DriveMode) ModeEnvelope {
	if e, ok := t[m]; ok {
		return e
	}
	if e, ok := t[ModeEco]; ok {
		return e
	}
	return DefaultModes()[ModeEco]
}

// Validate checks that every mode has a usable envelope.
func (t ModeTable) Validate() error {
	for _, m := range []DriveMode{ModeEco, ModeCity, ModeSports} {
		e, ok := t[m]
		if !ok {
			return fmt.Errorf("missing envelope for mode %s", m)
		}
		if e.MaxSpeed <= 0 || e.AccelRate <= 0 || e.BrakeRate <= 0 {
			return fmt.Errorf("mode %s: max_speed, accel_rate and brake_rate must be positive", m)
		}
		if e.RegenEfficiency < 0 || e.RegenEfficiency > 1 {
			return fmt.Errorf("mode %s: regen_efficiency must be in [0,1]", m)
		}
	}
	return nil
}
