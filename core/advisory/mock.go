package advisory

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/kilianp07/evdash/core/factory"
)

func init() {
	_ = Registry.Register("mock", func(conf map[string]any) (Service, error) {
		var c MockConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewMock(c), nil
	})
}

// MockConfig tunes the mock service.
type MockConfig struct {
	// Fail lists endpoints that always return an error.
	Fail []string `json:"fail"`
	// FatigueConfidence is returned by Fatigue when the driver looks tired.
	FatigueConfidence float64 `json:"fatigue_confidence"`
}

// MockService answers with simple deterministic heuristics so the
// dashboard is usable without the real advisory service.
type MockService struct {
	mu    sync.Mutex
	fail  map[string]error
	conf  float64
	calls map[string]int
}

func NewMock(c MockConfig) *MockService {
	m := &MockService{fail: map[string]error{}, conf: c.FatigueConfidence, calls: map[string]int{}}
	if m.conf == 0 {
		m.conf = 0.8
	}
	for _, ep := range c.Fail {
		m.fail[ep] = fmt.Errorf("%s: mock failure", ep)
	}
	return m
}

// FailWith makes endpoint return err; a nil err clears the failure.
func (m *MockService) FailWith(endpoint string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, endpoint)
		return
	}
	m.fail[endpoint] = err
}

// Calls returns how many times endpoint was invoked.
func (m *MockService) Calls(endpoint string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[endpoint]
}

func (m *MockService) enter(ctx context.Context, endpoint string) error {
	m.mu.Lock()
	m.calls[endpoint]++
	err := m.fail[endpoint]
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return ctx.Err()
}

func (m *MockService) DrivingRecommendation(ctx context.Context, req RecommendationRequest) (RecommendationResponse, error) {
	if err := m.enter(ctx, EndpointRecommendation); err != nil {
		return RecommendationResponse{}, err
	}
	switch {
	case req.BatterySOC < 20:
		return RecommendationResponse{
			Recommendation: "Switch to Eco and plan a charging stop",
			Justification:  fmt.Sprintf("Battery at %.0f%% with %.0f km left", req.BatterySOC, req.PredictedRange),
		}, nil
	case req.ACUsage && math.Abs(req.OutsideTemperature-22) < 3:
		return RecommendationResponse{
			Recommendation: "Turn off climate control",
			Justification:  fmt.Sprintf("Outside temperature is a mild %.0f°C", req.OutsideTemperature),
		}, nil
	case req.DriveMode == "Sports":
		return RecommendationResponse{
			Recommendation: "Use City mode for daily trips",
			Justification:  "Sports mode trades range for response",
		}, nil
	default:
		return RecommendationResponse{
			Recommendation: "Keep a steady pace",
			Justification:  "Current settings are efficient",
		}, nil
	}
}

func (m *MockService) DrivingStyle(ctx context.Context, req DrivingStyleRequest) (DrivingStyleResponse, error) {
	if err := m.enter(ctx, EndpointDrivingStyle); err != nil {
		return DrivingStyleResponse{}, err
	}
	switch {
	case req.EcoScore >= 80:
		return DrivingStyleResponse{DrivingStyle: "Eco", Recommendations: []string{"Keep anticipating traffic"}}, nil
	case req.EcoScore >= 50:
		return DrivingStyleResponse{DrivingStyle: "Normal", Recommendations: []string{"Ease off the accelerator earlier"}}, nil
	default:
		return DrivingStyleResponse{DrivingStyle: "Aggressive", Recommendations: []string{
			"Accelerate more gently",
			"Brake earlier to recover more energy",
		}}, nil
	}
}

func (m *MockService) PredictRange(ctx context.Context, req RangeRequest) (RangeResponse, error) {
	if err := m.enter(ctx, EndpointDynamicRange); err != nil {
		return RangeResponse{}, err
	}
	whPerKm := 150.0
	if n := len(req.Historical); n > 0 {
		var speed, power float64
		for _, h := range req.Historical {
			speed += h.Speed
			power += h.Power
		}
		if speed > 0 && power > 0 {
			whPerKm = power / speed * 1000
		}
	}
	if req.Climate.ACUsage > 0 {
		whPerKm *= 1.1
	}
	est := req.CurrentBatteryLevel / 100 * req.BatteryCapacity / (whPerKm / 1000)
	conf := math.Min(1, 0.5+float64(len(req.Historical))/200)
	return RangeResponse{EstimatedRange: math.Max(est, 0), Confidence: conf}, nil
}

func (m *MockService) ForecastSOH(ctx context.Context, req SOHForecastRequest) ([]ForecastPoint, error) {
	if err := m.enter(ctx, EndpointSOHForecast); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	last := req.HistoricalData[0]
	soh := 100 - last.CycleCount*0.02
	out := make([]ForecastPoint, 0, 5)
	for i := 1; i <= 5; i++ {
		out = append(out, ForecastPoint{
			Odometer: last.Odometer + float64(i)*20000,
			SOH:      math.Max(70, soh-float64(i)*1.5),
		})
	}
	return out, nil
}

func (m *MockService) Fatigue(ctx context.Context, req FatigueRequest) (FatigueResponse, error) {
	if err := m.enter(ctx, EndpointFatigue); err != nil {
		return FatigueResponse{}, err
	}
	harsh := req.HarshBrakingEvents + req.HarshAccelerationEvents
	if harsh >= 3 {
		return FatigueResponse{
			IsFatigued: true,
			Confidence: m.conf,
			Reasoning:  fmt.Sprintf("%d harsh events in the recent window", harsh),
		}, nil
	}
	return FatigueResponse{IsFatigued: false, Confidence: 0.9, Reasoning: "Driving pattern is steady"}, nil
}
