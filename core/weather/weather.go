// Package weather holds the latest outdoor conditions. Readers never block:
// they get whatever the last refresh stored.
package weather

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/kilianp07/evdash/core/logger"
	"github.com/kilianp07/evdash/core/monitoring"
)

// Conditions is one weather reading.
type Conditions struct {
	TemperatureC  float64   `json:"temperature_c"`
	Precipitation string    `json:"precipitation"`
	WindSpeedKmh  float64   `json:"wind_speed_kmh"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Provider fetches current conditions. It may block.
type Provider interface {
	Current(ctx context.Context) (Conditions, error)
}

// Static always returns the same conditions.
type Static Conditions

func (s Static) Current(context.Context) (Conditions, error) {
	c := Conditions(s)
	c.UpdatedAt = time.Now()
	return c, nil
}

// Cache stores the most recent reading of a Provider.
type Cache struct {
	provider Provider
	interval time.Duration
	log      logger.Logger
	latest   atomic.Pointer[Conditions]
}

// NewCache creates a cache refreshed every interval by Run.
func NewCache(p Provider, interval time.Duration, log logger.Logger) *Cache {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Cache{provider: p, interval: interval, log: logger.OrNop(log)}
}

// Latest returns the last reading, if any.
func (c *Cache) Latest() (Conditions, bool) {
	p := c.latest.Load()
	if p == nil {
		return Conditions{}, false
	}
	return *p, true
}

// Set stores a reading directly.
func (c *Cache) Set(cond Conditions) {
	c.latest.Store(&cond)
}

// Refresh fetches one reading. A failed fetch keeps the previous value.
func (c *Cache) Refresh(ctx context.Context) error {
	cond, err := c.provider.Current(ctx)
	if err != nil {
		c.log.Warnf("weather refresh failed: %v", err)
		return err
	}
	c.Set(cond)
	return nil
}

// Run refreshes immediately and then on every interval until ctx is done.
func (c *Cache) Run(ctx context.Context) {
	defer monitoring.Recover()
	_ = c.Refresh(ctx)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.Refresh(ctx)
		}
	}
}
