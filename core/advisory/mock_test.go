package advisory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evdash/core/factory"
)

func TestMockService_FailureInjection(t *testing.T) {
	m := NewMock(MockConfig{Fail: []string{EndpointRecommendation}})
	_, err := m.DrivingRecommendation(context.Background(), RecommendationRequest{BatterySOC: 50})
	require.Error(t, err)

	m.FailWith(EndpointRecommendation, nil)
	res, err := m.DrivingRecommendation(context.Background(), RecommendationRequest{BatterySOC: 50})
	require.NoError(t, err)
	assert.NoError(t, res.Validate())

	boom := errors.New("timeout")
	m.FailWith(EndpointFatigue, boom)
	_, err = m.Fatigue(context.Background(), FatigueRequest{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, m.Calls(EndpointRecommendation))
}

func TestMockService_CancelledContext(t *testing.T) {
	m := NewMock(MockConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.DrivingStyle(ctx, DrivingStyleRequest{EcoScore: 90})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockService_Heuristics(t *testing.T) {
	m := NewMock(MockConfig{})
	ctx := context.Background()

	style, err := m.DrivingStyle(ctx, DrivingStyleRequest{EcoScore: 30})
	require.NoError(t, err)
	assert.Equal(t, "Aggressive", style.DrivingStyle)

	rng, err := m.PredictRange(ctx, RangeRequest{BatteryCapacity: 60, CurrentBatteryLevel: 50})
	require.NoError(t, err)
	assert.InDelta(t, 200, rng.EstimatedRange, 1e-9)
	assert.NoError(t, rng.Validate())

	fc, err := m.ForecastSOH(ctx, SOHForecastRequest{HistoricalData: []SOHHistoryPoint{{Odometer: 1000, CycleCount: 10}}})
	require.NoError(t, err)
	assert.Len(t, fc, 5)
	assert.NoError(t, ValidateForecast(fc))

	_, err = m.ForecastSOH(ctx, SOHForecastRequest{})
	assert.Error(t, err)

	fat, err := m.Fatigue(ctx, FatigueRequest{HarshBrakingEvents: 2, HarshAccelerationEvents: 2})
	require.NoError(t, err)
	assert.True(t, fat.IsFatigued)
	assert.InDelta(t, 0.8, fat.Confidence, 1e-9)
}

func TestRegistry_Mock(t *testing.T) {
	svc, err := New(factory.ModuleConfig{Type: "mock", Conf: map[string]any{"fatigue_confidence": 0.95}})
	require.NoError(t, err)
	res, err := svc.Fatigue(context.Background(), FatigueRequest{HarshBrakingEvents: 5})
	require.NoError(t, err)
	assert.InDelta(t, 0.95, res.Confidence, 1e-9)

	_, err = New(factory.ModuleConfig{Type: "nope"})
	assert.Error(t, err)
}
