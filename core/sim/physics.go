package sim

import "github.com/kilianp07/evdash/core/model"

const (
	// inertiaFactor is the first-order lag applied to acceleration each tick.
	inertiaFactor = 0.1
	// coastDecay is applied to speed on ticks with no pedal input.
	coastDecay = 0.99
	// displaySmoothing pulls the displayed speed toward the real one.
	displaySmoothing = 0.2
	// stopSpeed is the speed in km/h below which a vehicle without throttle
	// is considered stopped.
	stopSpeed = 0.01
)

// Kinematics is the output of one integration step.
type Kinematics struct {
	Speed        float64 // km/h
	Acceleration float64 // km/h/s
	DistanceKm   float64
}

// Integrate advances speed and acceleration by dt seconds.
// dt must be positive; callers skip the tick otherwise.
func Integrate(prev model.Snapshot, dt float64, pedal model.Pedal, env model.ModeEnvelope) Kinematics {
	target := 0.0
	switch pedal {
	case model.PedalAccelerate:
		target = env.AccelRate
	case model.PedalBrake:
		target = -env.BrakeRate
	}

	a := prev.Acceleration + (target-prev.Acceleration)*inertiaFactor
	v := prev.Speed + a*dt
	if target == 0 {
		v *= coastDecay
	}
	v = clamp(v, 0, env.MaxSpeed)
	if target <= 0 && v < stopSpeed {
		v = 0
	}

	return Kinematics{
		Speed:        v,
		Acceleration: a,
		DistanceKm:   v * dt / 3600,
	}
}

// holdStill is the kinematic state of a vehicle parked on a charger.
func holdStill() Kinematics {
	return Kinematics{}
}
