// Package app wires the engine components into a running service.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/rescue/config"
	"github.com/kilianp07/rescue/core/dispatch"
	"github.com/kilianp07/rescue/core/events"
	"github.com/kilianp07/rescue/core/hospital"
	"github.com/kilianp07/rescue/core/lifecycle"
	coremetrics "github.com/kilianp07/rescue/core/metrics"
	"github.com/kilianp07/rescue/core/missionlog"
	"github.com/kilianp07/rescue/core/model"
	coremon "github.com/kilianp07/rescue/core/monitoring"
	"github.com/kilianp07/rescue/core/registry"
	"github.com/kilianp07/rescue/core/signal"
	"github.com/kilianp07/rescue/core/store"
	"github.com/kilianp07/rescue/infra/logger"
	_ "github.com/kilianp07/rescue/infra/metrics"
	"github.com/kilianp07/rescue/infra/mirror"
	"github.com/kilianp07/rescue/internal/eventbus"
)

// Engine is the dispatch and assignment engine with its collaborators.
type Engine struct {
	cfg        *config.Config
	stores     store.Stores
	bus        *eventbus.TypedBus[events.Event]
	registry   *registry.Registry
	alerts     *lifecycle.Lifecycle
	matcher    *dispatch.Matcher
	redispatch *dispatch.Redispatcher
	signals    *signal.Controller
	hospitals  *hospital.Directory
	missions   missionlog.Store
	sink       coremetrics.MetricsSink
	mirror     *mirror.Runner
	ready      chan struct{}
	log        logger.Logger
}

// Option customizes an Engine.
type Option func(*options)

type options struct {
	lifecycle []lifecycle.Option
	mirrors   []mirror.Mirror
}

// WithLifecycleOptions forwards options to the alert lifecycle.
func WithLifecycleOptions(opts ...lifecycle.Option) Option {
	return func(o *options) { o.lifecycle = append(o.lifecycle, opts...) }
}

// WithMirrors adds mirrors on top of the configured ones.
func WithMirrors(ms ...mirror.Mirror) Option {
	return func(o *options) { o.mirrors = append(o.mirrors, ms...) }
}

// New builds an Engine from cfg and seeds the configured fleet, signals and
// hospitals.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Engine, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	cfg.SetDefaults()
	log := logger.New("engine")

	stores, err := store.Open(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	missions, err := missionlog.Open(cfg.MissionLog)
	if err != nil {
		_ = stores.Close()
		return nil, err
	}
	sink, err := coremetrics.Open(cfg.Metrics)
	if err != nil {
		_ = stores.Close()
		_ = missions.Close()
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	hospitals := make([]model.Hospital, 0, len(cfg.Hospitals))
	for _, h := range cfg.Hospitals {
		hospitals = append(hospitals, h.Hospital())
	}
	dir, err := hospital.New(hospitals)
	if err != nil {
		_ = stores.Close()
		_ = missions.Close()
		return nil, fmt.Errorf("hospitals: %w", err)
	}

	bus := events.NewBus(
		eventbus.WithBufferSize(cfg.Bus.BufferSize),
		eventbus.WithDropHook(func() { busDropped.Inc() }),
	)
	reg := registry.New(stores.Vehicles, logger.New("registry"))
	alerts := lifecycle.New(stores.Alerts, bus, logger.New("lifecycle"), o.lifecycle...)
	matcher := dispatch.NewMatcher(reg, alerts, sink, logger.New("dispatch"), cfg.Dispatch)
	e := &Engine{
		cfg:        cfg,
		stores:     stores,
		bus:        bus,
		registry:   reg,
		alerts:     alerts,
		matcher:    matcher,
		redispatch: dispatch.NewRedispatcher(matcher, alerts, cfg.Dispatch.RedispatchInterval(), logger.New("redispatch")),
		signals:    signal.New(stores.Signals, bus, logger.New("signals")),
		hospitals:  dir,
		missions:   missions,
		sink:       sink,
		ready:      make(chan struct{}),
		log:        log,
	}

	mirrors, err := mirror.Open(ctx, cfg.Mirror)
	if err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("mirror: %w", err)
	}
	mirrors = append(mirrors, o.mirrors...)
	if len(mirrors) > 0 {
		e.mirror = mirror.NewRunner(mirrors, logger.New("mirror"))
	}

	reg.OnChange(e.vehicleChanged)
	if err := e.seed(ctx); err != nil {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) vehicleChanged(v model.Vehicle) {
	if v.Status == model.VehicleAvailable {
		e.redispatch.Kick()
	}
	if e.mirror != nil {
		e.mirror.VehicleChanged(v)
	}
}

// seed registers the configured fleet and signals. Records that already
// exist in a persistent store are kept as they are.
func (e *Engine) seed(ctx context.Context) error {
	for _, s := range e.cfg.Fleet {
		v := s.Vehicle()
		if _, err := e.registry.Get(ctx, v.ID); err == nil {
			continue
		}
		if err := e.registry.Register(ctx, v); err != nil {
			return fmt.Errorf("seed vehicle %s: %w", v.ID, err)
		}
	}
	for _, s := range e.cfg.Signals {
		sig := s.Signal()
		if _, err := e.signals.Get(ctx, sig.ID); err == nil {
			continue
		}
		if err := e.signals.Register(ctx, sig); err != nil {
			return fmt.Errorf("seed signal %s: %w", sig.ID, err)
		}
	}
	e.log.Infof("seeded %d vehicles, %d signals, %d hospitals", len(e.cfg.Fleet), len(e.cfg.Signals), e.hospitals.Len())
	return nil
}

// Close releases the stores, the mission log and the mirrors.
func (e *Engine) Close() error {
	e.bus.Close()
	var errs []error
	if e.mirror != nil {
		errs = append(errs, e.mirror.Close())
	}
	errs = append(errs, e.missions.Close(), e.stores.Close())
	if c, ok := e.sink.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	coremon.Flush(2 * time.Second)
	return errors.Join(errs...)
}
