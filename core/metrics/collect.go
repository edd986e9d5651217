package metrics

import (
	"context"

	"github.com/kilianp07/rescue/core/events"
)

// Collect records transition and signal events from sub until ctx is done or
// the subscription closes.
func Collect(ctx context.Context, sub *events.Subscription, sink MetricsSink) {
	if sub == nil || sink == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			record(sink, ev)
		}
	}
}

func record(sink MetricsSink, ev events.Event) {
	switch e := ev.(type) {
	case events.AlertTransitioned:
		if r, ok := sink.(TransitionRecorder); ok {
			_ = r.RecordTransition(TransitionEvent{
				AlertID: e.Alert.ID, Kind: e.Alert.Kind, From: e.From, To: e.To, Time: e.At,
			})
		}
	case events.SignalChanged:
		if r, ok := sink.(SignalRecorder); ok {
			_ = r.RecordSignal(SignalEvent{
				SignalID: e.Signal.ID, Color: e.Signal.Status, Overridden: e.Signal.IsOverridden, Reason: e.Reason, Time: e.At,
			})
		}
	}
}
