package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/evdash/api/dashboard"
	"github.com/kilianp07/evdash/config"
	"github.com/kilianp07/evdash/core/advisory"
	coremetrics "github.com/kilianp07/evdash/core/metrics"
	"github.com/kilianp07/evdash/core/monitoring"
	"github.com/kilianp07/evdash/core/sim"
	"github.com/kilianp07/evdash/core/weather"
	_ "github.com/kilianp07/evdash/infra/advisory"
	"github.com/kilianp07/evdash/infra/logger"
	"github.com/kilianp07/evdash/infra/metrics"
	inframon "github.com/kilianp07/evdash/infra/monitoring"
	"github.com/kilianp07/evdash/infra/mqtt"
	"github.com/kilianp07/evdash/internal/eventbus"
)

// Service wires the simulation engine to its advisory tasks and outer
// surfaces.
type Service struct {
	Engine  *sim.Engine
	Advisor *sim.Advisor

	cfg      *config.Config
	bus      *eventbus.TypedBus[sim.Event]
	sink     coremetrics.MetricsSink
	weather  *weather.Cache
	mqtt     *mqtt.Client
	commands starter
	log      logger.Logger
}

// starter is a component that only needs a one-off start, such as the MQTT
// command subscription.
type starter interface {
	Start() error
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.Configure(cfg.Logging); err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	logg := logger.New("service")

	if cfg.Sentry.Enabled() {
		mon, err := inframon.NewSentryMonitor(cfg.Sentry)
		if err != nil {
			return nil, fmt.Errorf("sentry: %w", err)
		}
		monitoring.Init(mon)
	}

	params, err := cfg.Simulation.Params()
	if err != nil {
		return nil, fmt.Errorf("simulation: %w", err)
	}

	bus := eventbus.NewTyped[sim.Event]()
	svc := &Service{cfg: cfg, bus: bus, log: logg}

	opts := []sim.Option{
		sim.WithPublisher(bus),
		sim.WithLogger(logger.New("engine")),
		sim.WithFrameInterval(cfg.Simulation.FrameInterval()),
	}
	var ws sim.WeatherSource
	if cfg.Weather.Enabled {
		svc.weather = weather.NewCache(cfg.Weather.Provider(), cfg.Weather.Refresh(), logger.New("weather"))
		ws = svc.weather
		opts = append(opts, sim.WithWeather(svc.weather))
	}
	svc.Engine = sim.NewEngine(sim.NewSnapshot(params, cfg.Simulation.Initial()), params, opts...)

	adv, err := advisory.New(cfg.Advisory.Module())
	if err != nil {
		return nil, fmt.Errorf("advisory: %w", err)
	}
	svc.Advisor = sim.NewAdvisor(svc.Engine, adv, ws, cfg.Advisory.Advisor(), logger.New("advisor"))

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	svc.sink = sink

	if cfg.MQTT.Enabled {
		client, err := mqtt.NewClient(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.mqtt = client
		svc.commands = mqtt.NewCommandListener(client, svc.Engine)
	}
	return svc, nil
}

// Run starts every component and blocks until ctx is cancelled or one of
// them fails.
func (s *Service) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.Engine.Run(ctx) })
	g.Go(func() error { return s.Advisor.Run(ctx) })
	if s.weather != nil {
		g.Go(func() error {
			s.weather.Run(ctx)
			return nil
		})
	}

	metrics.StartEventCollector(ctx, s.bus, s.sink)
	g.Go(func() error {
		interval := time.Duration(s.cfg.Metrics.TelemetryIntervalMS) * time.Millisecond
		metrics.RecordStates(ctx, s.Engine, s.sink, interval)
		return nil
	})
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		g.Go(func() error {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				return fmt.Errorf("prom server: %w", err)
			}
			return nil
		})
	}

	if s.commands != nil {
		// A failed start cancels ctx and stops everything started above.
		g.Go(func() error {
			if err := s.commands.Start(); err != nil {
				return fmt.Errorf("mqtt commands: %w", err)
			}
			return nil
		})
	}
	if s.mqtt != nil {
		pub := mqtt.NewStatePublisher(s.mqtt, s.Engine, s.cfg.MQTT.StateInterval())
		g.Go(func() error { return pub.Run(ctx) })
		notices := s.bus.Subscribe()
		g.Go(func() error {
			defer s.bus.Unsubscribe(notices)
			mqtt.ForwardNotices(ctx, s.mqtt, notices)
			return nil
		})
	}

	if addr := s.cfg.HTTP.Addr; addr != "" {
		router := dashboard.NewRouter(s.Engine, s.cfg.HTTP.Token, dashboard.StreamOptions{
			Interval: s.cfg.HTTP.StreamInterval(),
			Log:      logger.New("stream"),
		})
		g.Go(func() error {
			return dashboard.Serve(ctx, addr, router, logger.New("dashboard"))
		})
	}

	s.log.Infof("simulation running, frame interval %s", s.cfg.Simulation.FrameInterval())
	return g.Wait()
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.Engine.Close()
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	s.bus.Close()
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	monitoring.Flush(2 * time.Second)
	return logger.Close()
}
