package advisory

import (
	"errors"
	"fmt"
	"math"
)

// ErrMalformedResponse marks a response that decoded but violates its contract.
var ErrMalformedResponse = errors.New("malformed advisory response")

// Endpoint names, also used as metric labels.
const (
	EndpointRecommendation = "driving_recommendation"
	EndpointDrivingStyle   = "driving_style"
	EndpointDynamicRange   = "dynamic_range"
	EndpointSOHForecast    = "soh_forecast"
	EndpointFatigue        = "fatigue"
)

// Endpoints lists every endpoint in a stable order.
var Endpoints = []string{
	EndpointRecommendation,
	EndpointDrivingStyle,
	EndpointDynamicRange,
	EndpointSOHForecast,
	EndpointFatigue,
}

type RecommendationRequest struct {
	DrivingStyle       string  `json:"drivingStyle"`
	PredictedRange     float64 `json:"predictedRange"`
	BatterySOC         float64 `json:"batterySOC"`
	ACUsage            bool    `json:"acUsage"`
	DriveMode          string  `json:"driveMode"`
	OutsideTemperature float64 `json:"outsideTemperature"`
}

type RecommendationResponse struct {
	Recommendation string `json:"recommendation"`
	Justification  string `json:"justification"`
}

func (r RecommendationResponse) Validate() error {
	if r.Recommendation == "" {
		return fmt.Errorf("%w: empty recommendation", ErrMalformedResponse)
	}
	return nil
}

type DrivingStyleRequest struct {
	SpeedHistory        []float64 `json:"speedHistory"`
	AccelerationHistory []float64 `json:"accelerationHistory"`
	DriveModeHistory    []string  `json:"driveModeHistory"`
	EcoScore            float64   `json:"ecoScore"`
}

type DrivingStyleResponse struct {
	DrivingStyle    string   `json:"drivingStyle"`
	Recommendations []string `json:"recommendations"`
}

func (r DrivingStyleResponse) Validate() error {
	if r.DrivingStyle == "" {
		return fmt.Errorf("%w: empty driving style", ErrMalformedResponse)
	}
	return nil
}

type Climate struct {
	ACUsage     float64 `json:"acUsage"` // percent
	TempSetting float64 `json:"tempSetting"`
}

type Weather struct {
	Temp          float64 `json:"temp"`
	Precipitation string  `json:"precipitation"`
	WindSpeed     float64 `json:"windSpeed"`
}

type HistoricalPoint struct {
	Speed float64 `json:"speed"`
	Power float64 `json:"power"`
}

type RangeRequest struct {
	DrivingStyle        string            `json:"drivingStyle"`
	Climate             Climate           `json:"climate"`
	Weather             Weather           `json:"weather"`
	Historical          []HistoricalPoint `json:"historical"`
	BatteryCapacity     float64           `json:"batteryCapacity"`
	CurrentBatteryLevel float64           `json:"currentBatteryLevel"`
}

type RangeResponse struct {
	EstimatedRange float64 `json:"estimatedRange"`
	Confidence     float64 `json:"confidence"`
}

func (r RangeResponse) Validate() error {
	if math.IsNaN(r.EstimatedRange) || math.IsInf(r.EstimatedRange, 0) || r.EstimatedRange < 0 {
		return fmt.Errorf("%w: estimated range %v", ErrMalformedResponse, r.EstimatedRange)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v", ErrMalformedResponse, r.Confidence)
	}
	return nil
}

type SOHHistoryPoint struct {
	Odometer       float64 `json:"odometer"`
	CycleCount     float64 `json:"cycleCount"`
	AvgBatteryTemp float64 `json:"avgBatteryTemp"`
	EcoPercent     float64 `json:"ecoPercent"`
	CityPercent    float64 `json:"cityPercent"`
	SportsPercent  float64 `json:"sportsPercent"`
}

type SOHForecastRequest struct {
	HistoricalData []SOHHistoryPoint `json:"historicalData"`
}

// Validate enforces the "at least one entry" precondition.
func (r SOHForecastRequest) Validate() error {
	if len(r.HistoricalData) == 0 {
		return errors.New("soh forecast needs at least one historical entry")
	}
	return nil
}

type ForecastPoint struct {
	Odometer float64 `json:"odometer"`
	SOH      float64 `json:"soh"`
}

// ValidateForecast checks that points are ordered by odometer.
func ValidateForecast(points []ForecastPoint) error {
	for i := 1; i < len(points); i++ {
		if points[i].Odometer < points[i-1].Odometer {
			return fmt.Errorf("%w: forecast not ordered at %d", ErrMalformedResponse, i)
		}
	}
	return nil
}

type FatigueRequest struct {
	SpeedHistory            []float64 `json:"speedHistory"`
	AccelerationHistory     []float64 `json:"accelerationHistory"`
	HarshBrakingEvents      int       `json:"harshBrakingEvents"`
	HarshAccelerationEvents int       `json:"harshAccelerationEvents"`
}

type FatigueResponse struct {
	IsFatigued bool    `json:"isFatigued"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

func (r FatigueResponse) Validate() error {
	if r.Confidence < 0 || r.Confidence > 1 || math.IsNaN(r.Confidence) {
		return fmt.Errorf("%w: confidence %v", ErrMalformedResponse, r.Confidence)
	}
	return nil
}
