package sim

import (
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/evdash/core/model"
)

// ChargeState is the state of the charging machine.
type ChargeState int

const (
	ChargeIdle ChargeState = iota
	ChargeActive
)

func (c ChargeState) String() string {
	if c == ChargeActive {
		return "charging"
	}
	return "idle"
}

// ChargeStateOf derives the machine state from a snapshot.
func ChargeStateOf(s model.Snapshot) ChargeState {
	if s.IsCharging {
		return ChargeActive
	}
	return ChargeIdle
}

// chargeSOCDelta is the SOC gain in percent for dt seconds on the charger.
func chargeSOCDelta(powerKW, capacityKWh, dt float64) float64 {
	if capacityKWh <= 0 {
		return 0
	}
	return powerKW * dt / 3600 / capacityKWh * 100
}

// startCharging opens a session. It fails if the vehicle is moving.
func startCharging(s model.Snapshot, now time.Time) (Update, error) {
	if s.Speed > 0 {
		return Update{}, ErrChargeWhileMoving
	}
	return Update{
		IsCharging:   ptr(true),
		Speed:        ptr(0.0),
		Acceleration: ptr(0.0),
		Pedal:        ptr(model.PedalNeutral),
		OpenCharge: &model.OpenCharge{
			ID:        uuid.NewString(),
			StartTime: now,
			StartSOC:  s.BatterySOC,
		},
	}, nil
}

// stopCharging closes the open session. clamped reports whether the energy
// added had to be floored at zero.
func stopCharging(s model.Snapshot, now time.Time) (u Update, closed model.ChargeLog, clamped bool) {
	u = Update{IsCharging: ptr(false), CloseCharge: true}
	open := s.LastChargeLog
	if open == nil {
		// No marker: record an empty session starting now.
		open = &model.OpenCharge{ID: uuid.NewString(), StartTime: now, StartSOC: s.BatterySOC}
	}
	capacity := s.PackNominalCapacityKWh
	added := (s.BatterySOC - open.StartSOC) / 100 * capacity
	if added < 0 {
		added = 0
		clamped = true
	}
	closed = model.ChargeLog{
		ID:             open.ID,
		StartTime:      open.StartTime,
		EndTime:        now,
		StartSOC:       open.StartSOC,
		EndSOC:         s.BatterySOC,
		EnergyAddedKWh: added,
	}
	u.AppendChargeLog = &closed
	return u, closed, clamped
}
