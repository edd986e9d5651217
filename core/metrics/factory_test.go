package metrics_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/rescue/core/factory"
	metrics "github.com/kilianp07/rescue/core/metrics"
	_ "github.com/kilianp07/rescue/infra/metrics"
)

func TestSinkTypesRegistered(t *testing.T) {
	assert.Subset(t, metrics.SinkTypes(), []string{"nop", "prometheus", "influx"})
}

func TestOpen(t *testing.T) {
	cases := []struct {
		name  string
		sinks []factory.ModuleConfig
		want  string
	}{
		{name: "none", want: "metrics.NopSink"},
		{name: "single", sinks: []factory.ModuleConfig{{Type: "nop"}}, want: "metrics.NopSink"},
		{name: "fan_out", sinks: []factory.ModuleConfig{{Type: "nop"}, {Type: "nop"}}, want: "*metrics.MultiSink"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := metrics.Open(metrics.Config{Sinks: tc.sinks})
			require.NoError(t, err)
			assert.Equal(t, tc.want, fmt.Sprintf("%T", s))
			if m, ok := s.(*metrics.MultiSink); ok {
				assert.Len(t, m.Sinks, len(tc.sinks))
			}
		})
	}
}

func TestOpenUnknownType(t *testing.T) {
	_, err := metrics.Open(metrics.Config{Sinks: []factory.ModuleConfig{{Type: "nop"}, {Type: "statsd"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink 1 (statsd)")
}
