package sim

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kilianp07/evdash/core/logger"
	"github.com/kilianp07/evdash/core/model"
	"github.com/kilianp07/evdash/core/monitoring"
	"github.com/kilianp07/evdash/core/weather"
)

// DefaultFrameInterval matches a 60 Hz display refresh.
const DefaultFrameInterval = 16 * time.Millisecond

// WeatherSource returns the latest weather reading without blocking.
type WeatherSource interface {
	Latest() (weather.Conditions, bool)
}

// Engine owns the live snapshot. Ticks, commands and advisory merges all
// go through it and are applied one at a time against the current state.
type Engine struct {
	mu     sync.Mutex
	snap   model.Snapshot
	params Params

	clock   Clock
	weather WeatherSource
	events  Publisher
	log     logger.Logger
	now     func() time.Time
	frame   time.Duration

	gen    atomic.Uint64
	closed atomic.Bool
}

// Option configures an Engine.
type Option func(*Engine)

func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

func WithWeather(w WeatherSource) Option { return func(e *Engine) { e.weather = w } }

func WithPublisher(p Publisher) Option { return func(e *Engine) { e.events = p } }

func WithLogger(l logger.Logger) Option { return func(e *Engine) { e.log = l } }

// WithNow sets the time source used to stamp commands such as charging.
func WithNow(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithFrameInterval(d time.Duration) Option { return func(e *Engine) { e.frame = d } }

// NewEngine creates an engine starting from initial.
func NewEngine(initial model.Snapshot, p Params, opts ...Option) *Engine {
	e := &Engine{
		snap:   initial.Clone(),
		params: p,
		clock:  &WallClock{},
		events: nopPublisher{},
		log:    logger.Nop{},
		now:    time.Now,
		frame:  DefaultFrameInterval,
	}
	for _, o := range opts {
		o(e)
	}
	e.log = logger.OrNop(e.log)
	if e.events == nil {
		e.events = nopPublisher{}
	}
	if e.frame <= 0 {
		e.frame = DefaultFrameInterval
	}
	return e
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() model.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap.Clone()
}

// SnapshotAt returns a copy of the current state together with the
// generation it belongs to, read under one lock.
func (e *Engine) SnapshotAt() (model.Snapshot, uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap.Clone(), e.gen.Load()
}

// Params returns the static tables of the engine.
func (e *Engine) Params() Params { return e.params }

// Now returns the engine's notion of the current time.
func (e *Engine) Now() time.Time { return e.now() }

// Generation changes whenever pending advisory results become stale.
func (e *Engine) Generation() uint64 { return e.gen.Load() }

// Closed reports whether Close was called.
func (e *Engine) Closed() bool { return e.closed.Load() }

// Tick advances the simulation to now. It returns false when the clock
// reports no elapsed time or the engine is closed.
func (e *Engine) Tick(now time.Time) bool {
	if e.closed.Load() {
		return false
	}
	var outside *float64
	if e.weather != nil {
		if c, ok := e.weather.Latest(); ok {
			outside = &c.TemperatureC
		}
	}

	res, ok := e.step(now, outside)
	if !ok {
		return false
	}
	if res.Sample != nil {
		e.log.Debugw("soh sample recorded", map[string]any{
			"odometer": res.Sample.Odometer,
			"soh":      res.Sample.SOH,
		})
		e.events.Publish(SOHSampled{Sample: *res.Sample})
	}
	return true
}

func (e *Engine) step(now time.Time, outside *float64) (StepResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed.Load() {
		return StepResult{}, false
	}
	dt := e.clock.Tick(now)
	if dt <= 0 {
		return StepResult{}, false
	}
	res := Step(e.snap, dt.Seconds(), now, e.params, outside)
	e.snap = Apply(e.snap, res.Update)
	return res, true
}

// mutate computes an update from the current snapshot and applies it. When
// fn fails nothing changes and a Notice is published.
func (e *Engine) mutate(command string, fn func(s model.Snapshot) (Update, error)) error {
	err := e.update(fn)
	if err != nil {
		e.log.Warnf("command %s rejected: %v", command, err)
		e.events.Publish(Notice{Command: command, Err: err, Time: e.now()})
	}
	return err
}

func (e *Engine) update(fn func(s model.Snapshot) (Update, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	u, err := fn(e.snap)
	if err != nil {
		return err
	}
	e.snap = Apply(e.snap, u)
	return nil
}

// MergeAdvisory applies an advisory result captured at generation gen. The
// result is dropped if the generation moved on or the engine is closed.
func (e *Engine) MergeAdvisory(gen uint64, task string, u Update, fields []string) bool {
	e.mu.Lock()
	stale := e.closed.Load() || gen != e.gen.Load()
	if !stale {
		e.snap = Apply(e.snap, u)
	}
	e.mu.Unlock()

	if stale {
		reason := "generation changed"
		if e.closed.Load() {
			reason = "engine closed"
		}
		e.log.Debugf("discarding %s advisory result: %s", task, reason)
		e.events.Publish(AdvisoryDiscarded{Task: task, Reason: reason})
		return false
	}
	e.events.Publish(AdvisoryApplied{Task: task, Fields: fields})
	return true
}

// Close stops ticking and invalidates in-flight advisory calls.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed.Swap(true) {
		return
	}
	e.gen.Add(1)
}

// Run ticks on every frame until ctx is cancelled, then closes the engine.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.frame)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			e.Close()
			return nil
		case t := <-ticker.C:
			e.safeTick(t)
		}
	}
}

func (e *Engine) safeTick(t time.Time) {
	defer monitoring.Recover()
	e.Tick(t)
}
