package missionlog

import (
	"context"

	"github.com/kilianp07/rescue/core/events"
	"github.com/kilianp07/rescue/core/logger"
)

// Run appends every event from sub to store until ctx is done or the
// subscription closes. Append failures are logged and skipped.
func Run(ctx context.Context, sub *events.Subscription, store Store, log logger.Logger) {
	log = logger.OrNop(log)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if err := store.Append(ctx, FromEvent(ev)); err != nil {
				log.Warnf("mission log append %s: %v", ev.EntityID(), err)
			}
		}
	}
}
