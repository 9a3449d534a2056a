package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/evdash/core/weather"
)

// WeatherConfig sets the static conditions fed to the weather cache.
type WeatherConfig struct {
	Enabled        bool    `json:"enabled"`
	TemperatureC   float64 `json:"temperature_c"`
	Precipitation  string  `json:"precipitation"`
	WindSpeedKmh   float64 `json:"wind_speed_kmh"`
	RefreshSeconds int     `json:"refresh_seconds"`
}

func (c *WeatherConfig) SetDefaults() {
	if c.Precipitation == "" {
		c.Precipitation = "none"
	}
	if c.RefreshSeconds == 0 {
		c.RefreshSeconds = 600
	}
}

func (c WeatherConfig) Validate() error {
	if c.RefreshSeconds < 0 {
		return fmt.Errorf("refresh_seconds must not be negative")
	}
	if c.WindSpeedKmh < 0 {
		return fmt.Errorf("wind_speed_kmh must not be negative")
	}
	return nil
}

// Provider returns the configured conditions as a weather.Provider.
func (c WeatherConfig) Provider() weather.Provider {
	return weather.Static{
		TemperatureC:  c.TemperatureC,
		Precipitation: c.Precipitation,
		WindSpeedKmh:  c.WindSpeedKmh,
	}
}

// Refresh returns RefreshSeconds as a duration.
func (c WeatherConfig) Refresh() time.Duration {
	return time.Duration(c.RefreshSeconds) * time.Second
}
