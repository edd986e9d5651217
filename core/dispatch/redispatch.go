package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/rescue/core/logger"
	"github.com/kilianp07/rescue/core/model"
)

// Dispatcher assigns a single alert.
type Dispatcher interface {
	Dispatch(ctx context.Context, alertID string) (Assignment, error)
}

// PendingLister lists alerts by status, oldest first.
type PendingLister interface {
	ListByStatus(ctx context.Context, status model.AlertStatus) ([]model.EmergencyAlert, error)
}

// Redispatcher retries pending alerts on a fixed period and whenever Kick is
// called, which the engine does when a vehicle becomes available.
type Redispatcher struct {
	matcher  Dispatcher
	alerts   PendingLister
	interval time.Duration
	kick     chan struct{}
	log      logger.Logger
}

// NewRedispatcher creates a Redispatcher. A non-positive interval disables
// the periodic sweep; kicks still trigger one.
func NewRedispatcher(matcher Dispatcher, alerts PendingLister, interval time.Duration, log logger.Logger) *Redispatcher {
	return &Redispatcher{
		matcher:  matcher,
		alerts:   alerts,
		interval: interval,
		kick:     make(chan struct{}, 1),
		log:      logger.OrNop(log),
	}
}

// Kick requests a sweep without blocking. Kicks arriving during a sweep
// coalesce into one.
func (r *Redispatcher) Kick() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Run sweeps until ctx is canceled.
func (r *Redispatcher) Run(ctx context.Context) {
	var tick <-chan time.Time
	if r.interval > 0 {
		t := time.NewTicker(r.interval)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
		case <-r.kick:
		}
		if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
			r.log.Warnf("redispatch sweep: %v", err)
		}
	}
}

// Sweep tries to dispatch every pending alert, oldest first, and returns how
// many were assigned. Once a kind runs out of vehicles the remaining alerts
// of that kind are skipped until the next sweep.
func (r *Redispatcher) Sweep(ctx context.Context) (int, error) {
	pending, err := r.alerts.ListByStatus(ctx, model.StatusPending)
	if err != nil {
		return 0, err
	}
	pendingAlerts.Set(float64(len(pending)))
	exhausted := map[model.AlertKind]bool{}
	assigned := 0
	for _, a := range pending {
		if err := ctx.Err(); err != nil {
			return assigned, err
		}
		if exhausted[a.Kind] {
			continue
		}
		_, err := r.matcher.Dispatch(ctx, a.ID)
		switch {
		case err == nil:
			assigned++
		case errors.Is(err, model.ErrNoVehicleAvailable):
			exhausted[a.Kind] = true
		case errors.Is(err, model.ErrInvalidTransition):
			// assigned or cancelled since the listing
		default:
			r.log.Warnf("redispatch %s: %v", a.ID, err)
		}
	}
	if assigned > 0 {
		r.log.Infof("redispatch assigned %d of %d pending alerts", assigned, len(pending))
	}
	return assigned, nil
}
