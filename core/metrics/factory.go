package metrics

import (
	"fmt"

	"github.com/kilianp07/rescue/core/factory"
)

var sinks = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink makes a sink type available to Open.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinks.Register(name, f)
}

// SinkTypes lists the registered sink types.
func SinkTypes() []string { return sinks.Names() }

// Open builds the sinks listed in cfg. No sinks yields NopSink, one sink is
// returned as is and several are fanned out through a MultiSink.
func Open(cfg Config) (MetricsSink, error) {
	built := make([]MetricsSink, 0, len(cfg.Sinks))
	for i, mc := range cfg.Sinks {
		s, err := sinks.Create(mc)
		if err != nil {
			return nil, fmt.Errorf("sink %d (%s): %w", i, mc.Type, err)
		}
		built = append(built, s)
	}
	switch len(built) {
	case 0:
		return NopSink{}, nil
	case 1:
		return built[0], nil
	default:
		return NewMultiSink(built...), nil
	}
}
