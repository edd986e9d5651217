package mirror

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/rescue/core/events"
	"github.com/kilianp07/rescue/core/logger"
	"github.com/kilianp07/rescue/core/model"
	coremon "github.com/kilianp07/rescue/core/monitoring"
)

const applyTimeout = 5 * time.Second

// Runner fans entity changes out to the mirrors.
type Runner struct {
	mirrors []Mirror
	logger  logger.Logger

	mu      sync.Mutex
	pending map[string]Entry
	wake    chan struct{}
}

// NewRunner builds a runner over mirrors.
func NewRunner(mirrors []Mirror, log logger.Logger) *Runner {
	return &Runner{
		mirrors: mirrors,
		logger:  logger.OrNop(log),
		pending: map[string]Entry{},
		wake:    make(chan struct{}, 1),
	}
}

// VehicleChanged queues a vehicle snapshot without blocking. Snapshots of
// the same vehicle not yet applied are replaced, so the mirror always ends on
// the latest one.
func (r *Runner) VehicleChanged(v model.Vehicle) {
	r.mu.Lock()
	r.pending[v.ID] = FromVehicle(v)
	r.mu.Unlock()
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// takePending returns the queued vehicle snapshots ordered by id.
func (r *Runner) takePending() []Entry {
	r.mu.Lock()
	batch := make([]Entry, 0, len(r.pending))
	for _, e := range r.pending {
		batch = append(batch, e)
	}
	r.pending = map[string]Entry{}
	r.mu.Unlock()
	sort.Slice(batch, func(i, j int) bool { return batch[i].ID < batch[j].ID })
	return batch
}

// Run consumes sub and queued vehicle changes until ctx is done or the
// subscription closes.
func (r *Runner) Run(ctx context.Context, sub *events.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub.C:
			if !ok {
				return
			}
			if entry, ok := FromEvent(e); ok {
				r.apply(ctx, entry)
			}
		case <-r.wake:
			for _, entry := range r.takePending() {
				r.apply(ctx, entry)
			}
		}
	}
}

func (r *Runner) apply(ctx context.Context, e Entry) {
	for _, m := range r.mirrors {
		actx, cancel := context.WithTimeout(ctx, applyTimeout)
		err := m.Apply(actx, e)
		cancel()
		if err != nil {
			r.logger.Errorf("mirror %s %s: %v", e.Collection, e.ID, err)
			coremon.Capture("mirror", err, "collection", e.Collection, "id", e.ID)
		}
	}
}

// Close closes every mirror.
func (r *Runner) Close() error {
	var errs []error
	for _, m := range r.mirrors {
		if err := m.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Config selects the mirrors to enable.
type Config struct {
	Redis *RedisConfig `json:"redis"`
	Kafka *KafkaConfig `json:"kafka"`
}

// Open connects every configured mirror.
func Open(ctx context.Context, cfg Config) ([]Mirror, error) {
	var out []Mirror
	if cfg.Redis != nil && cfg.Redis.Addr != "" {
		m, err := NewRedisMirror(ctx, *cfg.Redis)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if cfg.Kafka != nil && len(cfg.Kafka.Brokers) > 0 {
		m, err := NewKafkaMirror(*cfg.Kafka)
		if err != nil {
			for _, o := range out {
				_ = o.Close()
			}
			return nil, fmt.Errorf("kafka mirror: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}
