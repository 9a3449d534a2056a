package sim

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kilianp07/evdash/core/model"
)

// Command names accepted by Execute.
const (
	CmdSetDriveMode   = "set_drive_mode"
	CmdToggleAC       = "toggle_ac"
	CmdSetACTemp      = "set_ac_temp"
	CmdToggleCharging = "toggle_charging"
	CmdResetTrip      = "reset_trip"
	CmdSetActiveTrip  = "set_active_trip"
	CmdSwitchProfile  = "switch_profile"
	CmdAddProfile     = "add_profile"
	CmdDeleteProfile  = "delete_profile"
	CmdSetPedal       = "set_pedal"
	CmdSetPassengers  = "set_passengers"
	CmdSetGoodsInBoot = "set_goods_in_boot"
)

// Command is the transport form of a command-surface call, as received over
// HTTP, MQTT or from a scenario file.
type Command struct {
	ID      string  `json:"id,omitempty" yaml:"id,omitempty"`
	Name    string  `json:"command" yaml:"command"`
	Arg     string  `json:"arg,omitempty" yaml:"arg,omitempty"`
	Value   float64 `json:"value,omitempty" yaml:"value,omitempty"`
	Enabled bool    `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// Execute dispatches c to the matching command method.
func (e *Engine) Execute(c Command) error {
	switch c.Name {
	case CmdSetDriveMode:
		m, err := model.ParseDriveMode(c.Arg)
		if err != nil {
			return e.reject(c.Name, fmt.Errorf("%w: %q", ErrUnknownMode, c.Arg))
		}
		return e.SetDriveMode(m)
	case CmdToggleAC:
		e.ToggleAC()
		return nil
	case CmdSetACTemp:
		return e.SetACTemp(c.Value)
	case CmdToggleCharging:
		return e.ToggleCharging()
	case CmdResetTrip:
		e.ResetTrip()
		return nil
	case CmdSetActiveTrip:
		t, err := model.ParseTrip(c.Arg)
		if err != nil {
			return e.reject(c.Name, fmt.Errorf("%w: %q", ErrUnknownTrip, c.Arg))
		}
		e.SetActiveTrip(t)
		return nil
	case CmdSwitchProfile:
		return e.SwitchProfile(c.Arg)
	case CmdAddProfile:
		return e.AddProfile(c.Arg)
	case CmdDeleteProfile:
		return e.DeleteProfile(c.Arg)
	case CmdSetPedal:
		p, err := model.ParsePedal(c.Arg)
		if err != nil {
			return e.reject(c.Name, fmt.Errorf("%w: %v", ErrInvalidArgument, err))
		}
		e.SetPedal(p)
		return nil
	case CmdSetPassengers:
		if math.IsNaN(c.Value) || c.Value < 0 || c.Value > MaxPassengers {
			return e.reject(c.Name, fmt.Errorf("%w: passengers %v", ErrInvalidArgument, c.Value))
		}
		return e.SetPassengers(int(c.Value))
	case CmdSetGoodsInBoot:
		e.SetGoodsInBoot(c.Enabled)
		return nil
	default:
		return e.reject(c.Name, fmt.Errorf("%w: %q", ErrUnknownCommand, c.Name))
	}
}

func (e *Engine) reject(command string, err error) error {
	return e.mutate(command, func(model.Snapshot) (Update, error) { return Update{}, err })
}

// SetDriveMode changes the mode and stores it in the active profile.
func (e *Engine) SetDriveMode(m model.DriveMode) error {
	return e.mutate(CmdSetDriveMode, func(s model.Snapshot) (Update, error) {
		if !m.Valid() {
			return Update{}, ErrUnknownMode
		}
		u := e.modeChange(s, m)
		if p, ok := s.Profiles[s.ActiveProfile]; ok {
			p.DriveMode = m
			u.SetProfiles = map[string]model.Profile{s.ActiveProfile: p}
		}
		return u, nil
	})
}

// modeChange selects m and clamps the speeds to its envelope so the
// snapshot never exceeds the top speed of its own mode.
func (e *Engine) modeChange(s model.Snapshot, m model.DriveMode) Update {
	top := e.params.Modes.Envelope(m).MaxSpeed
	return Update{
		DriveMode:    ptr(m),
		Speed:        ptr(math.Min(s.Speed, top)),
		DisplaySpeed: ptr(math.Min(s.DisplaySpeed, top)),
	}
}

// ToggleAC switches climate control on or off.
func (e *Engine) ToggleAC() {
	_ = e.mutate(CmdToggleAC, func(s model.Snapshot) (Update, error) {
		return Update{ACOn: ptr(!s.ACOn)}, nil
	})
}

// SetACTemp sets the cabin target, clamped to 18-28 °C.
func (e *Engine) SetACTemp(c float64) error {
	return e.mutate(CmdSetACTemp, func(s model.Snapshot) (Update, error) {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return Update{}, fmt.Errorf("%w: ac temperature %v", ErrInvalidArgument, c)
		}
		t := clamp(c, model.MinACTemp, model.MaxACTemp)
		u := Update{ACTemp: ptr(t)}
		if p, ok := s.Profiles[s.ActiveProfile]; ok {
			p.ACTemp = t
			u.SetProfiles = map[string]model.Profile{s.ActiveProfile: p}
		}
		return u, nil
	})
}

// ToggleCharging starts or ends a charging session. Starting while the
// vehicle moves returns ErrChargeWhileMoving.
func (e *Engine) ToggleCharging() error {
	var (
		closed  *model.ChargeLog
		clamped bool
	)
	now := e.now()
	err := e.mutate(CmdToggleCharging, func(s model.Snapshot) (Update, error) {
		if !s.IsCharging {
			return startCharging(s, now)
		}
		u, log, c := stopCharging(s, now)
		closed, clamped = &log, c
		return u, nil
	})
	if err != nil || closed == nil {
		if err == nil {
			e.log.Infof("charging started")
		}
		return err
	}
	if clamped {
		e.log.Warnf("charge session %s ended below its start SOC, energy added clamped to 0", closed.ID)
	}
	e.log.Infof("charge session %s closed: %.1f%% -> %.1f%%, %.2f kWh",
		closed.ID, closed.StartSOC, closed.EndSOC, closed.EnergyAddedKWh)
	e.events.Publish(ChargeSessionClosed{Log: *closed, Clamped: clamped})
	return nil
}

// ResetTrip zeroes the active trip counter.
func (e *Engine) ResetTrip() {
	_ = e.mutate(CmdResetTrip, func(s model.Snapshot) (Update, error) {
		if s.ActiveTrip == model.TripB {
			return Update{TripB: ptr(0.0)}, nil
		}
		return Update{TripA: ptr(0.0)}, nil
	})
}

// SetActiveTrip selects which trip counter accumulates distance.
func (e *Engine) SetActiveTrip(t model.Trip) {
	_ = e.mutate(CmdSetActiveTrip, func(model.Snapshot) (Update, error) {
		return Update{ActiveTrip: ptr(t)}, nil
	})
}

// SwitchProfile activates a stored profile and restores its settings.
// Advisory calls in flight are invalidated.
func (e *Engine) SwitchProfile(name string) error {
	return e.mutate(CmdSwitchProfile, func(s model.Snapshot) (Update, error) {
		p, ok := s.Profiles[name]
		if !ok {
			return Update{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
		}
		e.gen.Add(1)
		u := e.modeChange(s, p.DriveMode)
		u.ActiveProfile = ptr(name)
		u.ACTemp = ptr(p.ACTemp)
		return u, nil
	})
}

// AddProfile stores a new profile with the current settings.
func (e *Engine) AddProfile(name string) error {
	name = strings.TrimSpace(name)
	return e.mutate(CmdAddProfile, func(s model.Snapshot) (Update, error) {
		if name == "" {
			return Update{}, ErrEmptyProfileName
		}
		if _, ok := s.Profiles[name]; ok {
			return Update{}, fmt.Errorf("%w: %q", ErrProfileExists, name)
		}
		return Update{SetProfiles: map[string]model.Profile{
			name: {DriveMode: s.DriveMode, ACTemp: s.ACTemp},
		}}, nil
	})
}

// DeleteProfile removes a profile. The last profile cannot be removed. When
// the active profile is deleted the first remaining one, by name, takes over.
func (e *Engine) DeleteProfile(name string) error {
	return e.mutate(CmdDeleteProfile, func(s model.Snapshot) (Update, error) {
		if _, ok := s.Profiles[name]; !ok {
			return Update{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
		}
		if len(s.Profiles) <= 1 {
			return Update{}, ErrLastProfile
		}
		var u Update
		if s.ActiveProfile == name {
			rest := make([]string, 0, len(s.Profiles)-1)
			for k := range s.Profiles {
				if k != name {
					rest = append(rest, k)
				}
			}
			sort.Strings(rest)
			next := s.Profiles[rest[0]]
			u = e.modeChange(s, next.DriveMode)
			u.ActiveProfile = ptr(rest[0])
			u.ACTemp = ptr(next.ACTemp)
			e.gen.Add(1)
		}
		u.DeleteProfile = name
		return u, nil
	})
}

// SetPedal sets the driver input read by the next tick. It is ignored while
// charging.
func (e *Engine) SetPedal(p model.Pedal) {
	_ = e.mutate(CmdSetPedal, func(s model.Snapshot) (Update, error) {
		if s.IsCharging {
			return Update{}, nil
		}
		return Update{Pedal: ptr(p)}, nil
	})
}

// MaxPassengers bounds the occupant count accepted by SetPassengers.
const MaxPassengers = 9

// SetPassengers sets the number of occupants.
func (e *Engine) SetPassengers(n int) error {
	return e.mutate(CmdSetPassengers, func(model.Snapshot) (Update, error) {
		if n < 0 || n > MaxPassengers {
			return Update{}, fmt.Errorf("%w: passengers %d", ErrInvalidArgument, n)
		}
		return Update{Passengers: ptr(n)}, nil
	})
}

// SetGoodsInBoot records whether the boot is loaded.
func (e *Engine) SetGoodsInBoot(loaded bool) {
	_ = e.mutate(CmdSetGoodsInBoot, func(model.Snapshot) (Update, error) {
		return Update{GoodsInBoot: ptr(loaded)}, nil
	})
}
