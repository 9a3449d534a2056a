package sim

import (
	"time"

	"github.com/kilianp07/evdash/core/model"
)

// Params are the static tables the tick reads.
type Params struct {
	Modes   model.ModeTable
	Physics model.Physics
}

// DefaultParams returns the reference vehicle tables.
func DefaultParams() Params {
	return Params{Modes: model.DefaultModes(), Physics: model.DefaultPhysics()}
}

// StepResult is the update produced by one tick plus what the engine needs
// to report about it.
type StepResult struct {
	Update Update
	Sample *model.SOHSample
}

// Step runs physics, energy, degradation and history for dt seconds.
// outsideTemp is nil when no weather reading is available yet.
func Step(prev model.Snapshot, dt float64, now time.Time, p Params, outsideTemp *float64) StepResult {
	env := p.Modes.Envelope(prev.DriveMode)

	if outsideTemp != nil {
		prev.OutsideTemp = *outsideTemp
	}

	k := holdStill()
	if !prev.IsCharging {
		k = Integrate(prev, dt, prev.Pedal, env)
	}
	e := ComputeEnergy(prev, dt, k, p.Physics, env)
	th := UpdateThermal(prev, dt, e.PowerKW, e.SOC)

	odometer := prev.Odometer + k.DistanceKm
	deg := Degrade(prev, e.SOCDelta, odometer, k.DistanceKm, th.BatteryTemp)

	brake, accel := harshEvents(prev.Acceleration, k.Acceleration, k.Speed)

	u := Update{
		Speed:        ptr(k.Speed),
		DisplaySpeed: ptr(prev.DisplaySpeed + (k.Speed-prev.DisplaySpeed)*displaySmoothing),
		Acceleration: ptr(k.Acceleration),
		Power:        ptr(e.PowerKW),

		Odometer: ptr(odometer),

		BatterySOC:    ptr(e.SOC),
		Range:         ptr(e.Range),
		RecentWhPerKm: ptr(e.WhPerKm),

		PackSOH:              ptr(deg.SOH),
		EquivalentFullCycles: ptr(deg.Cycles),
		Wear:                 ptr(deg.Wear),
		PushSOHSample:        deg.Sample,

		BatteryTemp:      ptr(th.BatteryTemp),
		InsideTemp:       ptr(th.InsideTemp),
		OutsideTemp:      ptr(prev.OutsideTemp),
		RegenLimitFactor: ptr(th.RegenLimitFactor),

		PushSpeed:        ptr(k.Speed),
		PushAcceleration: ptr(k.Acceleration),
		PushPower:        ptr(e.PowerKW),
		PushDriveMode:    ptr(prev.DriveMode),

		HarshBrakingDelta:      brake,
		HarshAccelerationDelta: accel,

		LastUpdate: ptr(now),
	}
	if prev.ActiveTrip == model.TripB {
		u.TripB = ptr(prev.TripB + k.DistanceKm)
	} else {
		u.TripA = ptr(prev.TripA + k.DistanceKm)
	}
	return StepResult{Update: u, Sample: deg.Sample}
}
