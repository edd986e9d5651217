// Package monitoring is the process-wide error reporting hook. Components
// report failures that have no caller to return them to, such as a failed
// reserve compensation or a dropped driver notification.
package monitoring

import (
	"sync"
	"time"
)

// Monitor receives reported errors.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Flush(timeout time.Duration)
}

// NopMonitor drops every report.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Flush(time.Duration)                       {}

var (
	mu      sync.RWMutex
	current Monitor = NopMonitor{}
)

// Init installs m as the process monitor. A nil m restores NopMonitor.
func Init(m Monitor) {
	if m == nil {
		m = NopMonitor{}
	}
	mu.Lock()
	current = m
	mu.Unlock()
}

func active() Monitor {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// CaptureException reports err with tags. Nil errors are ignored.
func CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	active().CaptureException(err, tags)
}

// Capture reports err for a component. kv holds alternating tag keys and
// values; a trailing key without value is dropped.
func Capture(component string, err error, kv ...string) {
	if err == nil {
		return
	}
	CaptureException(err, Tags(component, kv...))
}

// Tags builds a tag set with the component tag and the given pairs.
// Pairs with an empty value are skipped.
func Tags(component string, kv ...string) map[string]string {
	tags := make(map[string]string, 1+len(kv)/2)
	tags["component"] = component
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			tags[kv[i]] = kv[i+1]
		}
	}
	return tags
}

// Flush waits up to d for buffered reports to be delivered.
func Flush(d time.Duration) {
	active().Flush(d)
}
