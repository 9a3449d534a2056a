package sim

import (
	"math"

	"github.com/kilianp07/evdash/core/model"
)

const (
	batteryTau     = 120.0 // s
	cabinTau       = 60.0  // s
	batteryHeatPer = 0.15  // °C above ambient per kW of pack power

	coldRegenTemp  = 10.0 // °C, regen starts to be limited below
	frozenTemp     = -10.0
	coldRegenFloor = 0.3
	fullRegenSOC   = 95.0 // %, regen tapers to zero above
)

// Thermal is the temperature state after one tick.
type Thermal struct {
	BatteryTemp      float64
	InsideTemp       float64
	RegenLimitFactor float64
}

func relax(cur, target, dt, tau float64) float64 {
	return cur + (target-cur)*(1-math.Exp(-dt/tau))
}

// UpdateThermal relaxes pack and cabin temperatures toward their targets.
func UpdateThermal(s model.Snapshot, dt, powerKW, soc float64) Thermal {
	cabinTarget := s.OutsideTemp
	if s.ACOn {
		cabinTarget = s.ACTemp
	}
	bt := relax(s.BatteryTemp, s.OutsideTemp+batteryHeatPer*math.Abs(powerKW), dt, batteryTau)
	return Thermal{
		BatteryTemp:      bt,
		InsideTemp:       relax(s.InsideTemp, cabinTarget, dt, cabinTau),
		RegenLimitFactor: regenLimit(bt, soc),
	}
}

func regenLimit(batteryTemp, soc float64) float64 {
	f := 1.0
	if batteryTemp < coldRegenTemp {
		frac := clamp((batteryTemp-frozenTemp)/(coldRegenTemp-frozenTemp), 0, 1)
		f = coldRegenFloor + (1-coldRegenFloor)*frac
	}
	if soc > fullRegenSOC {
		f *= clamp((100-soc)/(100-fullRegenSOC), 0, 1)
	}
	return f
}

// harshEvents reports edges of the smoothed acceleration crossing the harsh
// thresholds, in km/h/s.
func harshEvents(prevAccel, accel, speed float64) (braking, accelerating int) {
	if speed <= regenMinSpeed {
		return 0, 0
	}
	if accel > harshAccelThreshold && prevAccel <= harshAccelThreshold {
		accelerating = 1
	}
	if accel < harshBrakeThreshold && prevAccel >= harshBrakeThreshold {
		braking = 1
	}
	return braking, accelerating
}

const (
	harshAccelThreshold = 7.0
	harshBrakeThreshold = -8.0
)
