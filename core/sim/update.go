package sim

import (
	"math"
	"time"

	"github.com/kilianp07/evdash/core/model"
)

// Update is a partial snapshot. Nil fields are left untouched by Apply.
//
// Merge rules:
//   - scalar and pointer fields overwrite
//   - Push* fields prepend to their history and truncate
//   - AppendChargeLog appends to the session log and truncates
//   - Harsh*Delta fields accumulate (floored at 0)
//   - SetProfiles upserts, DeleteProfile removes
type Update struct {
	Speed        *float64
	DisplaySpeed *float64
	Acceleration *float64
	Power        *float64

	Odometer   *float64
	TripA      *float64
	TripB      *float64
	ActiveTrip *model.Trip

	BatterySOC    *float64
	Range         *float64
	RecentWhPerKm *float64

	PackSOH              *float64
	EquivalentFullCycles *float64

	BatteryTemp      *float64
	InsideTemp       *float64
	OutsideTemp      *float64
	RegenLimitFactor *float64

	DriveMode   *model.DriveMode
	ACOn        *bool
	ACTemp      *float64
	Passengers  *int
	GoodsInBoot *bool
	IsCharging  *bool
	Pedal       *model.Pedal

	PushSpeed        *float64
	PushAcceleration *float64
	PushPower        *float64
	PushDriveMode    *model.DriveMode
	PushSOHSample    *model.SOHSample

	AppendChargeLog *model.ChargeLog
	OpenCharge      *model.OpenCharge
	CloseCharge     bool

	SetProfiles   map[string]model.Profile
	DeleteProfile string
	ActiveProfile *string

	DrivingRecommendation       *model.DrivingRecommendation
	DrivingStyle                *string
	DrivingStyleRecommendations *[]string
	PredictedDynamicRange       *model.DynamicRange
	SOHForecast                 *[]model.SOHForecastPoint
	FatigueWarning              *string

	HarshBrakingDelta      int
	HarshAccelerationDelta int

	Wear       *model.WearAccumulator
	LastUpdate *time.Time
}

func ptr[T any](v T) *T { return &v }

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Apply merges u over s and returns the result. s is not modified.
func Apply(s model.Snapshot, u Update) model.Snapshot {
	n := s

	set(&n.Speed, u.Speed)
	set(&n.DisplaySpeed, u.DisplaySpeed)
	set(&n.Acceleration, u.Acceleration)
	set(&n.Power, u.Power)

	set(&n.Odometer, u.Odometer)
	set(&n.TripA, u.TripA)
	set(&n.TripB, u.TripB)
	set(&n.ActiveTrip, u.ActiveTrip)

	set(&n.BatterySOC, u.BatterySOC)
	n.BatterySOC = clamp(n.BatterySOC, 0, 100)
	set(&n.Range, u.Range)
	n.Range = math.Max(n.Range, 0)
	set(&n.RecentWhPerKm, u.RecentWhPerKm)

	if u.PackSOH != nil {
		n.PackSOH = math.Min(s.PackSOH, clamp(*u.PackSOH, model.MinSOH, model.MaxSOH))
	}
	if u.EquivalentFullCycles != nil && *u.EquivalentFullCycles > n.EquivalentFullCycles {
		n.EquivalentFullCycles = *u.EquivalentFullCycles
	}

	set(&n.BatteryTemp, u.BatteryTemp)
	set(&n.InsideTemp, u.InsideTemp)
	set(&n.OutsideTemp, u.OutsideTemp)
	set(&n.RegenLimitFactor, u.RegenLimitFactor)

	set(&n.DriveMode, u.DriveMode)
	set(&n.ACOn, u.ACOn)
	set(&n.ACTemp, u.ACTemp)
	set(&n.Passengers, u.Passengers)
	set(&n.GoodsInBoot, u.GoodsInBoot)
	set(&n.IsCharging, u.IsCharging)
	set(&n.Pedal, u.Pedal)

	if u.PushSpeed != nil {
		n.SpeedHistory = prepend(s.SpeedHistory, *u.PushSpeed, model.SpeedHistoryLen)
	}
	if u.PushAcceleration != nil {
		n.AccelerationHistory = prepend(s.AccelerationHistory, *u.PushAcceleration, model.AccelerationHistoryLen)
	}
	if u.PushPower != nil {
		n.PowerHistory = prepend(s.PowerHistory, *u.PushPower, model.PowerHistoryLen)
	}
	if u.PushDriveMode != nil {
		n.DriveModeHistory = prepend(s.DriveModeHistory, *u.PushDriveMode, model.DriveModeHistoryLen)
	}
	if u.PushSOHSample != nil {
		n.SOHHistory = prepend(s.SOHHistory, *u.PushSOHSample, model.SOHHistoryLen)
	}

	if u.AppendChargeLog != nil {
		n.ChargingLogs = appendBounded(s.ChargingLogs, *u.AppendChargeLog, model.ChargingLogLen)
	}
	if u.OpenCharge != nil {
		oc := *u.OpenCharge
		n.LastChargeLog = &oc
	}
	if u.CloseCharge {
		n.LastChargeLog = nil
	}

	if len(u.SetProfiles) > 0 || u.DeleteProfile != "" {
		profiles := make(map[string]model.Profile, len(s.Profiles)+len(u.SetProfiles))
		for k, v := range s.Profiles {
			profiles[k] = v
		}
		for k, v := range u.SetProfiles {
			profiles[k] = v
		}
		if u.DeleteProfile != "" {
			delete(profiles, u.DeleteProfile)
		}
		n.Profiles = profiles
	}
	set(&n.ActiveProfile, u.ActiveProfile)

	if u.DrivingRecommendation != nil {
		dr := *u.DrivingRecommendation
		n.DrivingRecommendation = &dr
	}
	set(&n.DrivingStyle, u.DrivingStyle)
	if u.DrivingStyleRecommendations != nil {
		n.DrivingStyleRecommendations = append([]string(nil), (*u.DrivingStyleRecommendations)...)
	}
	if u.PredictedDynamicRange != nil {
		pr := *u.PredictedDynamicRange
		n.PredictedDynamicRange = &pr
	}
	if u.SOHForecast != nil {
		n.SOHForecast = append([]model.SOHForecastPoint(nil), (*u.SOHForecast)...)
	}
	set(&n.FatigueWarning, u.FatigueWarning)

	n.HarshBrakingEvents = max(s.HarshBrakingEvents+u.HarshBrakingDelta, 0)
	n.HarshAccelerationEvents = max(s.HarshAccelerationEvents+u.HarshAccelerationDelta, 0)

	set(&n.Wear, u.Wear)
	set(&n.LastUpdate, u.LastUpdate)
	return n
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
