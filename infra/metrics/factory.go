package metrics

import (
	"fmt"

	"github.com/kilianp07/evdash/core/factory"
	coremetrics "github.com/kilianp07/evdash/core/metrics"
)

// init registers built-in metrics sinks.
func init() {
	_ = coremetrics.RegisterMetricsSink("nop", func(map[string]any) (coremetrics.MetricsSink, error) {
		return coremetrics.NopSink{}, nil
	})

	_ = coremetrics.RegisterMetricsSink("prometheus", func(map[string]any) (coremetrics.MetricsSink, error) {
		return NewPromSink()
	})

	_ = coremetrics.RegisterMetricsSink("influx", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.URL == "" {
			return nil, fmt.Errorf("influx: url is required")
		}
		if c.Fallback {
			return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
		}
		return NewInfluxSink(c.URL, c.Token, c.Org, c.Bucket), nil
	})
}
