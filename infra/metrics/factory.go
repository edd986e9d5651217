package metrics

import (
	"errors"
	"os"

	"github.com/kilianp07/rescue/core/factory"
	coremetrics "github.com/kilianp07/rescue/core/metrics"
)

// influxConf is the "influx" sink configuration. Token falls back to the
// INFLUX_TOKEN environment variable. Strict turns a failed health check
// into an error instead of a silent NopSink.
type influxConf struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
	Strict bool   `json:"strict"`
}

func (c *influxConf) resolve() error {
	if c.Token == "" {
		c.Token = os.Getenv("INFLUX_TOKEN")
	}
	if c.URL == "" || c.Bucket == "" {
		return errors.New("influx sink needs url and bucket")
	}
	return nil
}

func newInflux(conf map[string]any) (coremetrics.MetricsSink, error) {
	var c influxConf
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	if err := c.resolve(); err != nil {
		return nil, err
	}
	sink := NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket)
	if _, nop := sink.(coremetrics.NopSink); nop && c.Strict {
		return nil, errors.New("influx sink unhealthy")
	}
	return sink, nil
}

func init() {
	_ = coremetrics.RegisterMetricsSink("nop", func(map[string]any) (coremetrics.MetricsSink, error) {
		return coremetrics.NopSink{}, nil
	})
	_ = coremetrics.RegisterMetricsSink("prometheus", func(map[string]any) (coremetrics.MetricsSink, error) {
		return NewPromSink()
	})
	_ = coremetrics.RegisterMetricsSink("influx", newInflux)
}
