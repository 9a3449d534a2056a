package model

import "fmt"

// Physics holds the physical constants of the simulated vehicle.
type Physics struct {
	MassKg               float64 `json:"mass_kg"`
	PassengerMassKg      float64 `json:"passenger_mass_kg"`
	BootLoadKg           float64 `json:"boot_load_kg"`
	DragCoefficient      float64 `json:"drag_coefficient"`
	FrontalAreaM2        float64 `json:"frontal_area_m2"`
	AirDensity           float64 `json:"air_density"`
	RollingResistance    float64 `json:"rolling_resistance"`
	DrivetrainEfficiency float64 `json:"drivetrain_efficiency"`
	MaxRegenKW           float64 `json:"max_regen_kw"`
	ChargePowerKW        float64 `json:"charge_power_kw"`
	ACDrawKW             float64 `json:"ac_draw_kw"`
	NominalCapacityKWh   float64 `json:"nominal_capacity_kwh"`
	UsableFraction       float64 `json:"usable_fraction"`
}

// Gravity in m/s².
const Gravity = 9.81

// DefaultPhysics returns the constants of the reference vehicle.
func DefaultPhysics() Physics {
	return Physics{
		MassKg:               1600,
		PassengerMassKg:      75,
		BootLoadKg:           50,
		DragCoefficient:      0.28,
		FrontalAreaM2:        2.3,
		AirDensity:           1.225,
		RollingResistance:    0.012,
		DrivetrainEfficiency: 0.9,
		MaxRegenKW:           60,
		ChargePowerKW:        11,
		ACDrawKW:             1.5,
		NominalCapacityKWh:   60,
		UsableFraction:       0.95,
	}
}

// SetDefaults fills zero fields from DefaultPhysics.
func (p *Physics) SetDefaults() {
	d := DefaultPhysics()
	fill := func(dst *float64, v float64) {
		if *dst == 0 {
			*dst = v
		}
	}
	fill(&p.MassKg, d.MassKg)
	fill(&p.PassengerMassKg, d.PassengerMassKg)
	fill(&p.BootLoadKg, d.BootLoadKg)
	fill(&p.DragCoefficient, d.DragCoefficient)
	fill(&p.FrontalAreaM2, d.FrontalAreaM2)
	fill(&p.AirDensity, d.AirDensity)
	fill(&p.RollingResistance, d.RollingResistance)
	fill(&p.DrivetrainEfficiency, d.DrivetrainEfficiency)
	fill(&p.MaxRegenKW, d.MaxRegenKW)
	fill(&p.ChargePowerKW, d.ChargePowerKW)
	fill(&p.ACDrawKW, d.ACDrawKW)
	fill(&p.NominalCapacityKWh, d.NominalCapacityKWh)
	fill(&p.UsableFraction, d.UsableFraction)
}

// Validate checks that the constants are physically meaningful.
func (p Physics) Validate() error {
	if p.MassKg <= 0 {
		return fmt.Errorf("mass_kg must be positive")
	}
	if p.NominalCapacityKWh <= 0 {
		return fmt.Errorf("nominal_capacity_kwh must be positive")
	}
	if p.DrivetrainEfficiency <= 0 || p.DrivetrainEfficiency > 1 {
		return fmt.Errorf("drivetrain_efficiency must be in (0,1]")
	}
	if p.UsableFraction <= 0 || p.UsableFraction > 1 {
		return fmt.Errorf("usable_fraction must be in (0,1]")
	}
	if p.ChargePowerKW < 0 || p.MaxRegenKW < 0 || p.ACDrawKW < 0 {
		return fmt.Errorf("charge_power_kw, max_regen_kw and ac_draw_kw must not be negative")
	}
	return nil
}

// TotalMass returns the vehicle mass including occupants and load.
func (p Physics) TotalMass(passengers int, goodsInBoot bool) float64 {
	m := p.MassKg + float64(passengers)*p.PassengerMassKg
	if goodsInBoot {
		m += p.BootLoadKg
	}
	return m
}
