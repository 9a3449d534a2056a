package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/evdash/core/model"
)

func TestIntegrate_SpeedStaysWithinEnvelope(t *testing.T) {
	modes := model.DefaultModes()
	pedals := []model.Pedal{model.PedalNeutral, model.PedalAccelerate, model.PedalBrake}
	for _, mode := range []model.DriveMode{model.ModeEco, model.ModeCity, model.ModeSports} {
		env := modes.Envelope(mode)
		for _, dt := range []float64{0.001, 0.016, 1, 10, 120} {
			for v := 0.0; v <= env.MaxSpeed; v += env.MaxSpeed / 7 {
				for _, a := range []float64{-20, -env.BrakeRate, 0, env.AccelRate, 20} {
					for _, p := range pedals {
						prev := model.Snapshot{Speed: v, Acceleration: a, DriveMode: mode}
						k := Integrate(prev, dt, p, env)
						if k.Speed < 0 || k.Speed > env.MaxSpeed {
							t.Fatalf("%s dt=%v v=%v a=%v pedal=%s: speed %v out of [0,%v]",
								mode, dt, v, a, p, k.Speed, env.MaxSpeed)
						}
						assert.GreaterOrEqual(t, k.DistanceKm, 0.0)
					}
				}
			}
		}
	}
}

func TestIntegrate_EcoAccelerationScenario(t *testing.T) {
	env := model.DefaultModes().Envelope(model.ModeEco)
	s := model.Snapshot{DriveMode: model.ModeEco}
	prev := 0.0
	for i := 0; i < 5; i++ {
		k := Integrate(s, 1, model.PedalAccelerate, env)
		if k.Speed <= prev {
			t.Fatalf("tick %d: speed %v did not increase from %v", i, k.Speed, prev)
		}
		assert.LessOrEqual(t, k.Speed, 45.0)
		prev = k.Speed
		s.Speed, s.Acceleration = k.Speed, k.Acceleration
	}
	// a: 0.3, 0.57, 0.813, 1.0317, 1.22853 -> v sums them
	assert.InDelta(t, 3.94323, s.Speed, 1e-4)
}

func TestIntegrate_InertiaAndCoast(t *testing.T) {
	env := model.DefaultModes().Envelope(model.ModeCity)
	k := Integrate(model.Snapshot{Speed: 50, Acceleration: 0}, 1, model.PedalAccelerate, env)
	assert.InDelta(t, 0.5, k.Acceleration, 1e-9, "acceleration lags the target")
	assert.InDelta(t, 50.5, k.Speed, 1e-9)

	k = Integrate(model.Snapshot{Speed: 50}, 1, model.PedalNeutral, env)
	assert.InDelta(t, 49.5, k.Speed, 1e-9, "coasting decays 1% per tick")
	assert.InDelta(t, 49.5/3600, k.DistanceKm, 1e-12)
}

func TestIntegrate_ClampsToNewModeImmediately(t *testing.T) {
	env := model.DefaultModes().Envelope(model.ModeEco)
	k := Integrate(model.Snapshot{Speed: 120, DriveMode: model.ModeEco}, 0.016, model.PedalAccelerate, env)
	assert.Equal(t, 45.0, k.Speed)
}

func TestIntegrate_SnapsToStop(t *testing.T) {
	env := model.DefaultModes().Envelope(model.ModeEco)
	k := Integrate(model.Snapshot{Speed: 0.005}, 0.016, model.PedalNeutral, env)
	assert.Equal(t, 0.0, k.Speed)

	k = Integrate(model.Snapshot{Speed: 0.005}, 0.016, model.PedalBrake, env)
	assert.Equal(t, 0.0, k.Speed)

	k = Integrate(model.Snapshot{}, 0.016, model.PedalAccelerate, env)
	assert.Greater(t, k.Speed, 0.0, "pulling away from rest is not snapped")
}
