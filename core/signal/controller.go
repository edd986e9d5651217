// Package signal implements manual override of traffic signals. A signal is
// either under automatic control or overridden; while overridden only this
// controller changes its colour and automatic writes fail with
// model.ErrOverridden.
package signal

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/rescue/core/events"
	"github.com/kilianp07/rescue/core/logger"
	"github.com/kilianp07/rescue/core/model"
	"github.com/kilianp07/rescue/core/store"
	"github.com/kilianp07/rescue/internal/keylock"
)

const (
	ReasonOverride  = "override"
	ReasonRelease   = "release"
	ReasonAutomatic = "automatic"
)

// Publisher receives signal events.
type Publisher interface {
	Publish(events.Event)
}

// BatchResult reports a best-effort operation over every signal.
type BatchResult struct {
	Applied []string         `json:"applied"`
	Failed  map[string]error `json:"-"`
}

// OK reports whether every signal was updated.
func (r BatchResult) OK() bool { return len(r.Failed) == 0 }

// Controller owns signal override state.
type Controller struct {
	signals store.SignalStore
	pub     Publisher
	locks   *keylock.Locker
	log     logger.Logger
	now     func() time.Time
}

// New creates a Controller. pub may be nil.
func New(signals store.SignalStore, pub Publisher, log logger.Logger) *Controller {
	return &Controller{signals: signals, pub: pub, locks: keylock.New(), log: logger.OrNop(log), now: time.Now}
}

// Register adds or replaces a signal.
func (c *Controller) Register(ctx context.Context, s model.TrafficSignal) error {
	if s.ID == "" {
		return fmt.Errorf("register signal: empty id: %w", model.ErrInvalidInput)
	}
	if s.Status == "" {
		s.Status = model.SignalRed
	}
	if !s.Status.Valid() {
		return fmt.Errorf("register signal %s: colour %q: %w", s.ID, s.Status, model.ErrInvalidInput)
	}
	s.LastUpdated = c.now()
	return c.signals.Put(ctx, s.ID, s)
}

// Get returns a signal snapshot.
func (c *Controller) Get(ctx context.Context, id string) (model.TrafficSignal, error) {
	return c.signals.Get(ctx, id)
}

// List returns every signal ordered by id.
func (c *Controller) List(ctx context.Context) ([]model.TrafficSignal, error) {
	return c.signals.List(ctx, nil)
}

// SetOverride fixes the colour of a signal until ClearOverride. Any colour
// may follow any other.
func (c *Controller) SetOverride(ctx context.Context, id string, color model.SignalColor) (model.TrafficSignal, error) {
	if !color.Valid() {
		return model.TrafficSignal{}, fmt.Errorf("override %s: colour %q: %w", id, color, model.ErrInvalidInput)
	}
	return c.mutate(ctx, id, ReasonOverride, func(s *model.TrafficSignal) (bool, error) {
		s.IsOverridden = true
		s.Status = color
		return true, nil
	})
}

// ClearOverride returns the signal to automatic control without touching its
// colour. Clearing a signal that is not overridden is a no-op.
func (c *Controller) ClearOverride(ctx context.Context, id string) (model.TrafficSignal, error) {
	return c.mutate(ctx, id, ReasonRelease, func(s *model.TrafficSignal) (bool, error) {
		if !s.IsOverridden {
			return false, nil
		}
		s.IsOverridden = false
		return true, nil
	})
}

// ApplyAutomatic is the write path of the automatic controller.
func (c *Controller) ApplyAutomatic(ctx context.Context, id string, color model.SignalColor) (model.TrafficSignal, error) {
	if !color.Valid() {
		return model.TrafficSignal{}, fmt.Errorf("automatic %s: colour %q: %w", id, color, model.ErrInvalidInput)
	}
	return c.mutate(ctx, id, ReasonAutomatic, func(s *model.TrafficSignal) (bool, error) {
		if s.IsOverridden {
			return false, fmt.Errorf("automatic %s: %w", id, model.ErrOverridden)
		}
		if s.Status == color {
			return false, nil
		}
		s.Status = color
		return true, nil
	})
}

// AllStop overrides every signal to red. Each signal is independent; a
// failure does not stop the others.
func (c *Controller) AllStop(ctx context.Context) (BatchResult, error) {
	return c.batch(ctx, func(id string) error {
		_, err := c.SetOverride(ctx, id, model.SignalRed)
		return err
	})
}

// ClearAll releases every override.
func (c *Controller) ClearAll(ctx context.Context) (BatchResult, error) {
	return c.batch(ctx, func(id string) error {
		_, err := c.ClearOverride(ctx, id)
		return err
	})
}

func (c *Controller) batch(ctx context.Context, apply func(id string) error) (BatchResult, error) {
	list, err := c.signals.List(ctx, nil)
	if err != nil {
		return BatchResult{}, err
	}
	res := BatchResult{Failed: map[string]error{}}
	for _, s := range list {
		if err := apply(s.ID); err != nil {
			res.Failed[s.ID] = err
			c.log.Warnf("signal %s: %v", s.ID, err)
			continue
		}
		res.Applied = append(res.Applied, s.ID)
	}
	return res, nil
}

// mutate applies fn under the signal lock and publishes SignalChanged when fn
// reports a change.
func (c *Controller) mutate(ctx context.Context, id, reason string, fn func(*model.TrafficSignal) (bool, error)) (model.TrafficSignal, error) {
	unlock := c.locks.Lock(id)
	defer unlock()

	var (
		changed  bool
		previous model.SignalColor
	)
	now := c.now()
	s, err := c.signals.Update(ctx, id, func(s *model.TrafficSignal) error {
		previous = s.Status
		ok, err := fn(s)
		if err != nil {
			return err
		}
		changed = ok
		if ok {
			s.LastUpdated = now
		}
		return nil
	})
	if err != nil {
		return s, err
	}
	if changed {
		c.log.Debugw("signal changed", map[string]any{
			"signal_id": id, "reason": reason, "status": string(s.Status), "overridden": s.IsOverridden,
		})
		if c.pub != nil {
			c.pub.Publish(events.SignalChanged{Signal: s, Previous: previous, Reason: reason, At: now})
		}
	}
	return s, nil
}
