package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/evdash/core/model"
)

func TestApply_HistoriesPrependAndTruncate(t *testing.T) {
	s := model.Snapshot{PackSOH: 100}
	for i := 0; i < model.SpeedHistoryLen+25; i++ {
		s = Apply(s, Update{PushSpeed: ptr(float64(i)), PushDriveMode: ptr(model.ModeCity)})
	}
	assert.Len(t, s.SpeedHistory, model.SpeedHistoryLen)
	assert.Len(t, s.DriveModeHistory, model.DriveModeHistoryLen)
	assert.Equal(t, float64(model.SpeedHistoryLen+24), s.SpeedHistory[0])
	assert.Equal(t, 25.0, s.SpeedHistory[model.SpeedHistoryLen-1])
}

func TestApply_DoesNotAliasPrevious(t *testing.T) {
	prev := model.Snapshot{
		PackSOH:      100,
		SpeedHistory: []float64{1, 2},
		Profiles:     map[string]model.Profile{"a": {}, "b": {}},
	}
	next := Apply(prev, Update{PushSpeed: ptr(3.0), DeleteProfile: "a"})
	assert.Equal(t, []float64{1, 2}, prev.SpeedHistory)
	assert.Contains(t, prev.Profiles, "a")
	assert.Equal(t, []float64{3, 1, 2}, next.SpeedHistory)
	assert.NotContains(t, next.Profiles, "a")
}

func TestApply_FieldRules(t *testing.T) {
	s := model.Snapshot{PackSOH: 90, BatterySOC: 50, HarshBrakingEvents: 2, EquivalentFullCycles: 3}

	s = Apply(s, Update{
		PackSOH:              ptr(95.0),
		BatterySOC:           ptr(140.0),
		HarshBrakingDelta:    -5,
		EquivalentFullCycles: ptr(1.0),
	})
	assert.Equal(t, 90.0, s.PackSOH, "SOH never increases")
	assert.Equal(t, 100.0, s.BatterySOC)
	assert.Equal(t, 0, s.HarshBrakingEvents)
	assert.Equal(t, 3.0, s.EquivalentFullCycles)

	s = Apply(s, Update{PackSOH: ptr(10.0), Range: ptr(-4.0)})
	assert.Equal(t, model.MinSOH, s.PackSOH)
	assert.Equal(t, 0.0, s.Range)

	untouched := Apply(s, Update{})
	assert.Equal(t, s, untouched)
}

func TestApply_ChargeLogRing(t *testing.T) {
	s := model.Snapshot{PackSOH: 100}
	for i := 0; i < 15; i++ {
		s = Apply(s, Update{AppendChargeLog: &model.ChargeLog{ID: string(rune('a' + i))}})
	}
	assert.Len(t, s.ChargingLogs, model.ChargingLogLen)
	assert.Equal(t, "f", s.ChargingLogs[0].ID)
	assert.Equal(t, "o", s.ChargingLogs[9].ID)
}

func TestApply_OpenAndCloseSession(t *testing.T) {
	s := Apply(model.Snapshot{PackSOH: 100}, Update{OpenCharge: &model.OpenCharge{ID: "x"}, IsCharging: ptr(true)})
	assert.NotNil(t, s.LastChargeLog)
	s = Apply(s, Update{CloseCharge: true, IsCharging: ptr(false)})
	assert.Nil(t, s.LastChargeLog)
	assert.False(t, s.IsCharging)
}
