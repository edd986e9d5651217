// Package metrics defines the sinks that record dispatch activity. The
// matcher reports assignments and failures directly; Collect turns bus
// events into transition and signal records. Sinks like PromSink and
// InfluxSink live in infra/metrics and can be combined with NewMultiSink.
// Open returns a MultiSink automatically when several sinks are
// configured.
package metrics
