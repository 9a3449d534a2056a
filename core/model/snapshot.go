package model

import (
	"fmt"
	"strings"
	"time"
)

// Bounds of the rolling buffers held by a Snapshot.
const (
	SpeedHistoryLen        = 100
	AccelerationHistoryLen = 100
	PowerHistoryLen        = 100
	DriveModeHistoryLen    = 50
	SOHHistoryLen          = 20
	ChargingLogLen         = 10
)

// SOH limits in percent.
const (
	MinSOH = 70.0
	MaxSOH = 100.0
)

// AC temperature limits in °C.
const (
	MinACTemp = 18.0
	MaxACTemp = 28.0
)

// Pedal is the discrete driver input read on every tick.
type Pedal int

const (
	PedalNeutral Pedal = iota
	PedalAccelerate
	PedalBrake
)

func (p Pedal) String() string {
	switch p {
	case PedalAccelerate:
		return "accelerate"
	case PedalBrake:
		return "brake"
	default:
		return "neutral"
	}
}

// ParsePedal converts a pedal name into a Pedal.
func ParsePedal(s string) (Pedal, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "neutral":
		return PedalNeutral, nil
	case "accelerate", "accel":
		return PedalAccelerate, nil
	case "brake":
		return PedalBrake, nil
	default:
		return PedalNeutral, fmt.Errorf("unknown pedal %q", s)
	}
}

func (p Pedal) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Pedal) UnmarshalText(b []byte) error {
	v, err := ParsePedal(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Trip identifies one of the two trip counters.
type Trip int

const (
	TripA Trip = iota
	TripB
)

func (t Trip) String() string {
	if t == TripB {
		return "B"
	}
	return "A"
}

// ParseTrip converts "A" or "B" into a Trip.
func ParseTrip(s string) (Trip, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A":
		return TripA, nil
	case "B":
		return TripB, nil
	default:
		return TripA, fmt.Errorf("unknown trip %q", s)
	}
}

func (t Trip) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Trip) UnmarshalText(b []byte) error {
	v, err := ParseTrip(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Profile stores the per-driver settings restored on profile switch.
type Profile struct {
	DriveMode DriveMode `json:"drive_mode"`
	ACTemp    float64   `json:"ac_temp"`
}

// ChargeLog is a completed charging session.
type ChargeLog struct {
	ID             string    `json:"id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	StartSOC       float64   `json:"start_soc"`
	EndSOC         float64   `json:"end_soc"`
	EnergyAddedKWh float64   `json:"energy_added_kwh"`
}

// OpenCharge marks a charging session in progress.
type OpenCharge struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	StartSOC  float64   `json:"start_soc"`
}

// SOHSample is one point of battery health history. It is also the input of
// the SOH forecast advisory.
type SOHSample struct {
	Odometer       float64 `json:"odometer"`
	CycleCount     float64 `json:"cycle_count"`
	AvgBatteryTemp float64 `json:"avg_battery_temp"`
	SOH            float64 `json:"soh"`
	EcoPercent     float64 `json:"eco_percent"`
	CityPercent    float64 `json:"city_percent"`
	SportsPercent  float64 `json:"sports_percent"`
}

// DrivingRecommendation is the output of the driving recommendation advisory.
type DrivingRecommendation struct {
	Recommendation string `json:"recommendation"`
	Justification  string `json:"justification"`
}

// DynamicRange is the output of the range prediction advisory.
type DynamicRange struct {
	EstimatedRange float64 `json:"estimated_range"`
	Confidence     float64 `json:"confidence"`
}

// SOHForecastPoint is one point of the SOH forecast advisory.
type SOHForecastPoint struct {
	Odometer float64 `json:"odometer"`
	SOH      float64 `json:"soh"`
}

// WearAccumulator collects what happened since the last SOH sample.
type WearAccumulator struct {
	LastSampleOdometer float64 `json:"last_sample_odometer"`
	BatteryTempSum     float64 `json:"battery_temp_sum"`
	BatteryTempSamples int     `json:"battery_temp_samples"`
	EcoKm              float64 `json:"eco_km"`
	CityKm             float64 `json:"city_km"`
	SportsKm           float64 `json:"sports_km"`
}

// Snapshot is the complete simulation state. A Snapshot is never mutated in
// place once published; the engine replaces it with the result of merging an
// update over it.
type Snapshot struct {
	// Kinematics
	Speed        float64 `json:"speed"`         // km/h
	DisplaySpeed float64 `json:"display_speed"` // km/h, smoothed
	Acceleration float64 `json:"acceleration"`  // km/h/s, smoothed
	Power        float64 `json:"power"`         // kW, positive = draw

	// Odometry
	Odometer   float64 `json:"odometer"`
	TripA      float64 `json:"trip_a"`
	TripB      float64 `json:"trip_b"`
	ActiveTrip Trip    `json:"active_trip"`

	// Energy
	BatterySOC    float64 `json:"battery_soc"`
	Range         float64 `json:"range"`
	RecentWhPerKm float64 `json:"recent_wh_per_km"`

	// Battery health
	PackSOH                float64 `json:"pack_soh"`
	EquivalentFullCycles   float64 `json:"equivalent_full_cycles"`
	PackNominalCapacityKWh float64 `json:"pack_nominal_capacity_kwh"`
	PackUsableFraction     float64 `json:"pack_usable_fraction"`

	// Thermal and derived
	BatteryTemp      float64 `json:"battery_temp"`
	InsideTemp       float64 `json:"inside_temp"`
	OutsideTemp      float64 `json:"outside_temp"`
	RegenLimitFactor float64 `json:"regen_limit_factor"`

	// Control inputs
	DriveMode   DriveMode `json:"drive_mode"`
	ACOn        bool      `json:"ac_on"`
	ACTemp      float64   `json:"ac_temp"`
	Passengers  int       `json:"passengers"`
	GoodsInBoot bool      `json:"goods_in_boot"`
	IsCharging  bool      `json:"is_charging"`
	Pedal       Pedal     `json:"pedal"`

	// Bounded histories, most recent first.
	SpeedHistory        []float64   `json:"speed_history"`
	AccelerationHistory []float64   `json:"acceleration_history"`
	PowerHistory        []float64   `json:"power_history"`
	DriveModeHistory    []DriveMode `json:"drive_mode_history"`
	SOHHistory          []SOHSample `json:"soh_history"`

	// Charging sessions, oldest first.
	ChargingLogs  []ChargeLog `json:"charging_logs"`
	LastChargeLog *OpenCharge `json:"last_charge_log,omitempty"`

	Profiles      map[string]Profile `json:"profiles"`
	ActiveProfile string             `json:"active_profile"`

	// Advisory outputs
	DrivingRecommendation       *DrivingRecommendation `json:"driving_recommendation,omitempty"`
	DrivingStyle                string                 `json:"driving_style,omitempty"`
	DrivingStyleRecommendations []string               `json:"driving_style_recommendations,omitempty"`
	PredictedDynamicRange       *DynamicRange          `json:"predicted_dynamic_range,omitempty"`
	SOHForecast                 []SOHForecastPoint     `json:"soh_forecast,omitempty"`
	FatigueWarning              string                 `json:"fatigue_warning,omitempty"`

	HarshBrakingEvents      int `json:"harsh_braking_events"`
	HarshAccelerationEvents int `json:"harsh_acceleration_events"`

	Wear WearAccumulator `json:"wear"`

	LastUpdate time.Time `json:"last_update"`
}

// ActiveTripDistance returns the distance on the active trip counter.
func (s Snapshot) ActiveTripDistance() float64 {
	if s.ActiveTrip == TripB {
		return s.TripB
	}
	return s.TripA
}

// Clone returns a deep copy safe to hand out to other goroutines.
func (s Snapshot) Clone() Snapshot {
	c := s
	c.SpeedHistory = append([]float64(nil), s.SpeedHistory...)
	c.AccelerationHistory = append([]float64(nil), s.AccelerationHistory...)
	c.PowerHistory = append([]float64(nil), s.PowerHistory...)
	c.DriveModeHistory = append([]DriveMode(nil), s.DriveModeHistory...)
	c.SOHHistory = append([]SOHSample(nil), s.SOHHistory...)
	c.ChargingLogs = append([]ChargeLog(nil), s.ChargingLogs...)
	c.DrivingStyleRecommendations = append([]string(nil), s.DrivingStyleRecommendations...)
	c.SOHForecast = append([]SOHForecastPoint(nil), s.SOHForecast...)
	if s.LastChargeLog != nil {
		lc := *s.LastChargeLog
		c.LastChargeLog = &lc
	}
	if s.DrivingRecommendation != nil {
		dr := *s.DrivingRecommendation
		c.DrivingRecommendation = &dr
	}
	if s.PredictedDynamicRange != nil {
		pr := *s.PredictedDynamicRange
		c.PredictedDynamicRange = &pr
	}
	c.Profiles = make(map[string]Profile, len(s.Profiles))
	for k, v := range s.Profiles {
		c.Profiles[k] = v
	}
	return c
}
