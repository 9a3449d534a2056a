package sim

import (
	"math"

	"github.com/kilianp07/evdash/core/model"
)

const (
	// efficiencySmoothing is the weight of the newest Wh/km reading.
	efficiencySmoothing = 0.05
	// regenThreshold is the deceleration in m/s² below which regen engages.
	regenThreshold = -0.1
	// regenMinSpeed is the speed in km/h under which regen is negligible.
	regenMinSpeed = 1.0
	// DefaultWhPerKm seeds the smoothed efficiency of a new vehicle.
	DefaultWhPerKm = 150.0

	minEnergyWh   = 0.01
	minDistanceKm = 0.0001
)

// Energy is the output of the energy and range model for one tick.
type Energy struct {
	PowerKW  float64
	EnergyWh float64 // positive = drawn from the pack
	SOC      float64
	SOCDelta float64 // signed change actually applied
	WhPerKm  float64
	Range    float64
}

// TractionPower returns the pack power in kW needed to hold the given
// kinematic state. Negative values are net regeneration.
func TractionPower(s model.Snapshot, k Kinematics, phys model.Physics, env model.ModeEnvelope) float64 {
	mass := phys.TotalMass(s.Passengers, s.GoodsInBoot)
	vms := k.Speed / 3.6
	ams := k.Acceleration / 3.6

	rolling := mass * model.Gravity * phys.RollingResistance
	drag := 0.5 * phys.AirDensity * phys.DragCoefficient * phys.FrontalAreaM2 * vms * vms
	inertial := mass * ams
	force := rolling + drag + inertial

	wheelKW := 0.0
	if force > 0 {
		wheelKW = force * vms / 1000
	}
	if ams < regenThreshold && k.Speed > regenMinSpeed {
		regen := math.Min(mass*math.Abs(ams)*vms/1000, phys.MaxRegenKW)
		wheelKW -= regen * env.RegenEfficiency * s.RegenLimitFactor
	}

	power := wheelKW / phys.DrivetrainEfficiency
	if s.ACOn {
		power += phys.ACDrawKW
	}
	return power
}

// ComputeEnergy converts the tick's power into SOC, efficiency and range.
func ComputeEnergy(s model.Snapshot, dt float64, k Kinematics, phys model.Physics, env model.ModeEnvelope) Energy {
	capacity := s.PackNominalCapacityKWh
	if capacity <= 0 {
		capacity = phys.NominalCapacityKWh
	}

	var power, socDelta float64
	switch {
	case s.IsCharging:
		power = -phys.ChargePowerKW
		socDelta = chargeSOCDelta(phys.ChargePowerKW, capacity, dt)
	case k.Speed > 0:
		power = TractionPower(s, k, phys, env)
		if !finite(power) {
			power = 0
		}
		socDelta = -(power * dt / 3600) / capacity * 100
	}

	soc := clamp(s.BatterySOC+socDelta, 0, 100)
	applied := soc - s.BatterySOC
	energyWh := power * 1000 * dt / 3600

	e := Energy{
		PowerKW:  power,
		EnergyWh: energyWh,
		SOC:      soc,
		SOCDelta: applied,
		WhPerKm:  smoothEfficiency(s.RecentWhPerKm, energyWh, k.DistanceKm, s.IsCharging),
	}
	e.Range = estimateRange(s, soc, e.WhPerKm, capacity)
	return e
}

func smoothEfficiency(prev, energyWh, distKm float64, charging bool) float64 {
	if !finite(prev) || prev <= 0 {
		prev = DefaultWhPerKm
	}
	inst := prev
	if !charging && energyWh > minEnergyWh && distKm > minDistanceKm {
		inst = energyWh / distKm
	}
	next := prev + (inst-prev)*efficiencySmoothing
	if !finite(next) {
		return prev
	}
	return next
}

func estimateRange(s model.Snapshot, soc, whPerKm, capacity float64) float64 {
	if whPerKm <= 0 || !finite(whPerKm) {
		return s.Range
	}
	usable := s.PackUsableFraction
	if usable <= 0 {
		usable = 1
	}
	r := (soc / 100) * usable * capacity / (whPerKm / 1000)
	if !finite(r) {
		return s.Range
	}
	return math.Max(r, 0)
}
