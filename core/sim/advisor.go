package sim

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/evdash/core/advisory"
	"github.com/kilianp07/evdash/core/logger"
	"github.com/kilianp07/evdash/core/model"
	"github.com/kilianp07/evdash/core/monitoring"
)

// Advisory task names.
const (
	TaskDriving = "driving"
	TaskFatigue = "fatigue"
)

const (
	fatigueMinSpeed   = 10.0 // km/h
	fatigueSamples    = 60
	fatigueConfidence = 0.7
	fatigueMessage    = "Signs of fatigue detected. Consider taking a break."
)

// AdvisorConfig sets the throttle windows of the advisory tasks.
type AdvisorConfig struct {
	DrivingInterval time.Duration
	FatigueInterval time.Duration
	CallTimeout     time.Duration
	// PollInterval is how often the tasks check their throttle.
	PollInterval time.Duration
}

// DefaultAdvisorConfig returns the 10 s and 20 s windows.
func DefaultAdvisorConfig() AdvisorConfig {
	return AdvisorConfig{
		DrivingInterval: 10 * time.Second,
		FatigueInterval: 20 * time.Second,
		CallTimeout:     5 * time.Second,
		PollInterval:    time.Second,
	}
}

// Advisor runs the driving and fatigue advisory tasks against an Engine.
type Advisor struct {
	engine  *Engine
	svc     advisory.Service
	weather WeatherSource
	log     logger.Logger

	driving *advisory.Throttle
	fatigue *advisory.Throttle
	timeout time.Duration
	poll    time.Duration
}

// NewAdvisor creates the advisory tasks. w may be nil.
func NewAdvisor(e *Engine, svc advisory.Service, w WeatherSource, cfg AdvisorConfig, log logger.Logger) *Advisor {
	def := DefaultAdvisorConfig()
	if cfg.DrivingInterval <= 0 {
		cfg.DrivingInterval = def.DrivingInterval
	}
	if cfg.FatigueInterval <= 0 {
		cfg.FatigueInterval = def.FatigueInterval
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = def.CallTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	return &Advisor{
		engine:  e,
		svc:     svc,
		weather: w,
		log:     logger.OrNop(log),
		driving: advisory.NewThrottle(cfg.DrivingInterval),
		fatigue: advisory.NewThrottle(cfg.FatigueInterval),
		timeout: cfg.CallTimeout,
		poll:    cfg.PollInterval,
	}
}

// Run drives both tasks until ctx is cancelled.
func (a *Advisor) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.loop(ctx, a.DrivingCycle)
	}()
	go func() {
		defer wg.Done()
		a.loop(ctx, a.FatigueCycle)
	}()
	wg.Wait()
	return nil
}

func (a *Advisor) loop(ctx context.Context, cycle func(context.Context) bool) {
	ticker := time.NewTicker(a.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			func() {
				defer monitoring.Recover()
				cycle(ctx)
			}()
		}
	}
}

// DrivingCycle runs one driving-advisory cycle if its window allows. The
// four endpoints are called concurrently; whatever succeeded is merged as a
// single update. It reports whether a cycle ran.
func (a *Advisor) DrivingCycle(ctx context.Context) bool {
	s, gen := a.engine.SnapshotAt()
	if !usableSOC(s) {
		return false
	}
	if !a.driving.Allow(a.engine.Now()) {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var (
		rec    *advisory.RecommendationResponse
		style  *advisory.DrivingStyleResponse
		rng    *advisory.RangeResponse
		fc     []advisory.ForecastPoint
		fcDone bool
		g      errgroup.Group
	)
	g.Go(func() error {
		start := time.Now()
		res, err := a.svc.DrivingRecommendation(ctx, a.recommendationRequest(s))
		if a.observe(advisory.EndpointRecommendation, start, validated(res, err)) {
			rec = &res
		}
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		res, err := a.svc.DrivingStyle(ctx, drivingStyleRequest(s))
		if a.observe(advisory.EndpointDrivingStyle, start, validated(res, err)) {
			style = &res
		}
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		res, err := a.svc.PredictRange(ctx, a.rangeRequest(s))
		if a.observe(advisory.EndpointDynamicRange, start, validated(res, err)) {
			rng = &res
		}
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		res, err := a.svc.ForecastSOH(ctx, sohForecastRequest(s))
		if err == nil {
			err = advisory.ValidateForecast(res)
		}
		if a.observe(advisory.EndpointSOHForecast, start, err) {
			fc, fcDone = res, true
		}
		return nil
	})
	_ = g.Wait()

	var (
		u      Update
		fields []string
	)
	if rec != nil {
		u.DrivingRecommendation = &model.DrivingRecommendation{
			Recommendation: rec.Recommendation,
			Justification:  rec.Justification,
		}
		fields = append(fields, "driving_recommendation")
	}
	if style != nil {
		recs := append([]string(nil), style.Recommendations...)
		u.DrivingStyle = ptr(style.DrivingStyle)
		u.DrivingStyleRecommendations = &recs
		fields = append(fields, "driving_style", "driving_style_recommendations")
	}
	if rng != nil {
		u.PredictedDynamicRange = &model.DynamicRange{EstimatedRange: rng.EstimatedRange, Confidence: rng.Confidence}
		fields = append(fields, "predicted_dynamic_range")
	}
	if fcDone {
		points := make([]model.SOHForecastPoint, len(fc))
		for i, p := range fc {
			points[i] = model.SOHForecastPoint{Odometer: p.Odometer, SOH: p.SOH}
		}
		u.SOHForecast = &points
		fields = append(fields, "soh_forecast")
	}
	if len(fields) > 0 {
		a.engine.MergeAdvisory(gen, TaskDriving, u, fields)
	}
	return true
}

// FatigueCycle runs one fatigue check if its window allows. It reports
// whether a cycle ran.
func (a *Advisor) FatigueCycle(ctx context.Context) bool {
	if !a.fatigue.Allow(a.engine.Now()) {
		return false
	}
	s, gen := a.engine.SnapshotAt()

	if s.Speed < fatigueMinSpeed {
		if s.FatigueWarning != "" {
			a.engine.MergeAdvisory(gen, TaskFatigue, Update{FatigueWarning: ptr("")}, []string{"fatigue_warning"})
		}
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req := advisory.FatigueRequest{
		SpeedHistory:            latest(s.SpeedHistory, fatigueSamples),
		AccelerationHistory:     latest(s.AccelerationHistory, fatigueSamples),
		HarshBrakingEvents:      s.HarshBrakingEvents,
		HarshAccelerationEvents: s.HarshAccelerationEvents,
	}
	start := time.Now()
	res, err := a.svc.Fatigue(ctx, req)
	if !a.observe(advisory.EndpointFatigue, start, validated(res, err)) {
		return true
	}

	u := Update{FatigueWarning: ptr("")}
	if res.IsFatigued && res.Confidence > fatigueConfidence {
		msg := fatigueMessage
		if res.Reasoning != "" {
			msg += " " + res.Reasoning
		}
		u.FatigueWarning = ptr(msg)
		// Only the events that were reported are cleared.
		u.HarshBrakingDelta = -req.HarshBrakingEvents
		u.HarshAccelerationDelta = -req.HarshAccelerationEvents
	}
	a.engine.MergeAdvisory(gen, TaskFatigue, u, []string{"fatigue_warning"})
	return true
}

type validator interface{ Validate() error }

func validated(res validator, err error) error {
	if err != nil {
		return err
	}
	return res.Validate()
}

// observe logs and reports one endpoint call. It returns true on success.
func (a *Advisor) observe(endpoint string, start time.Time, err error) bool {
	d := time.Since(start)
	a.engine.events.Publish(AdvisoryCall{Endpoint: endpoint, Duration: d, Err: err, Time: start})
	if err == nil {
		return true
	}
	if errors.Is(err, context.Canceled) {
		a.log.Debugf("advisory %s cancelled", endpoint)
		return false
	}
	a.log.Errorf("advisory %s failed: %v", endpoint, err)
	monitoring.CaptureException(err, map[string]string{"component": "advisory", "endpoint": endpoint})
	return false
}

// usableSOC reports whether the snapshot carries a SOC the advisories can use.
func usableSOC(s model.Snapshot) bool {
	return finite(s.BatterySOC) && s.BatterySOC >= 0 && s.BatterySOC <= 100 && s.PackNominalCapacityKWh > 0
}

func (a *Advisor) recommendationRequest(s model.Snapshot) advisory.RecommendationRequest {
	predicted := s.Range
	if s.PredictedDynamicRange != nil {
		predicted = s.PredictedDynamicRange.EstimatedRange
	}
	return advisory.RecommendationRequest{
		DrivingStyle:       s.DrivingStyle,
		PredictedRange:     predicted,
		BatterySOC:         s.BatterySOC,
		ACUsage:            s.ACOn,
		DriveMode:          s.DriveMode.String(),
		OutsideTemperature: s.OutsideTemp,
	}
}

func drivingStyleRequest(s model.Snapshot) advisory.DrivingStyleRequest {
	modes := make([]string, len(s.DriveModeHistory))
	for i, m := range s.DriveModeHistory {
		modes[i] = m.String()
	}
	return advisory.DrivingStyleRequest{
		SpeedHistory:        latest(s.SpeedHistory, len(s.SpeedHistory)),
		AccelerationHistory: latest(s.AccelerationHistory, len(s.AccelerationHistory)),
		DriveModeHistory:    modes,
		EcoScore:            EcoScore(s.AccelerationHistory),
	}
}

func (a *Advisor) rangeRequest(s model.Snapshot) advisory.RangeRequest {
	w := advisory.Weather{Temp: s.OutsideTemp, Precipitation: "unknown"}
	if a.weather != nil {
		if c, ok := a.weather.Latest(); ok {
			w = advisory.Weather{Temp: c.TemperatureC, Precipitation: c.Precipitation, WindSpeed: c.WindSpeedKmh}
		}
	}
	acUsage := 0.0
	if s.ACOn {
		acUsage = 100
	}
	n := min(len(s.SpeedHistory), len(s.PowerHistory))
	hist := make([]advisory.HistoricalPoint, n)
	for i := 0; i < n; i++ {
		hist[i] = advisory.HistoricalPoint{Speed: s.SpeedHistory[i], Power: s.PowerHistory[i]}
	}
	return advisory.RangeRequest{
		DrivingStyle:        s.DrivingStyle,
		Climate:             advisory.Climate{ACUsage: acUsage, TempSetting: s.ACTemp},
		Weather:             w,
		Historical:          hist,
		BatteryCapacity:     s.PackNominalCapacityKWh * s.PackSOH / 100,
		CurrentBatteryLevel: s.BatterySOC,
	}
}

func sohForecastRequest(s model.Snapshot) advisory.SOHForecastRequest {
	samples := s.SOHHistory
	if len(samples) == 0 {
		samples = []model.SOHSample{currentSOHSample(s)}
	}
	data := make([]advisory.SOHHistoryPoint, len(samples))
	for i, h := range samples {
		data[i] = advisory.SOHHistoryPoint{
			Odometer:       h.Odometer,
			CycleCount:     h.CycleCount,
			AvgBatteryTemp: h.AvgBatteryTemp,
			EcoPercent:     h.EcoPercent,
			CityPercent:    h.CityPercent,
			SportsPercent:  h.SportsPercent,
		}
	}
	return advisory.SOHForecastRequest{HistoricalData: data}
}

// EcoScore rates smoothness of the acceleration history from 0 to 100.
func EcoScore(accel []float64) float64 {
	if len(accel) == 0 {
		return 100
	}
	abs := make([]float64, len(accel))
	for i, a := range accel {
		abs[i] = math.Abs(a)
	}
	score := 100 - 8*stat.Mean(abs, nil)
	if len(accel) > 1 {
		score -= 4 * stat.StdDev(accel, nil)
	}
	if !finite(score) {
		return 0
	}
	return clamp(score, 0, 100)
}
