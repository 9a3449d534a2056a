package sim

import (
	"sort"

	"github.com/kilianp07/evdash/core/model"
)

// DefaultProfileName is used when no profile is configured.
const DefaultProfileName = "Default"

// InitialState describes the vehicle at process start.
type InitialState struct {
	SOC           float64                  `json:"soc"`
	OutsideTemp   float64                  `json:"outside_temp_c"`
	Profiles      map[string]model.Profile `json:"profiles"`
	ActiveProfile string                   `json:"active_profile"`
}

// DefaultInitialState returns a parked car at 80 % with one profile.
func DefaultInitialState() InitialState {
	return InitialState{
		SOC:         80,
		OutsideTemp: 20,
		Profiles: map[string]model.Profile{
			DefaultProfileName: {DriveMode: model.ModeEco, ACTemp: 22},
		},
		ActiveProfile: DefaultProfileName,
	}
}

// NewSnapshot builds the first snapshot of a session.
func NewSnapshot(p Params, in InitialState) model.Snapshot {
	profiles := make(map[string]model.Profile, len(in.Profiles))
	for name, pr := range in.Profiles {
		if name == "" {
			continue
		}
		if !pr.DriveMode.Valid() {
			pr.DriveMode = model.ModeEco
		}
		pr.ACTemp = clamp(pr.ACTemp, model.MinACTemp, model.MaxACTemp)
		profiles[name] = pr
	}
	if len(profiles) == 0 {
		profiles[DefaultProfileName] = model.Profile{DriveMode: model.ModeEco, ACTemp: 22}
	}
	active := in.ActiveProfile
	if _, ok := profiles[active]; !ok {
		active = firstKey(profiles)
	}
	prof := profiles[active]

	s := model.Snapshot{
		ActiveTrip:             model.TripA,
		BatterySOC:             clamp(in.SOC, 0, 100),
		RecentWhPerKm:          DefaultWhPerKm,
		PackSOH:                model.MaxSOH,
		PackNominalCapacityKWh: p.Physics.NominalCapacityKWh,
		PackUsableFraction:     p.Physics.UsableFraction,
		BatteryTemp:            in.OutsideTemp,
		InsideTemp:             in.OutsideTemp,
		OutsideTemp:            in.OutsideTemp,
		DriveMode:              prof.DriveMode,
		ACTemp:                 prof.ACTemp,
		Passengers:             1,
		Profiles:               profiles,
		ActiveProfile:          active,
	}
	s.RegenLimitFactor = regenLimit(s.BatteryTemp, s.BatterySOC)
	s.Range = estimateRange(s, s.BatterySOC, s.RecentWhPerKm, s.PackNominalCapacityKWh)
	return s
}

// firstKey returns the smallest key of m.
func firstKey(m map[string]model.Profile) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}
