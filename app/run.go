package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	coremetrics "github.com/kilianp07/rescue/core/metrics"
	"github.com/kilianp07/rescue/core/missionlog"
	"github.com/kilianp07/rescue/core/model"
	"github.com/kilianp07/rescue/infra/logger"
	"github.com/kilianp07/rescue/infra/metrics"
	"github.com/kilianp07/rescue/infra/mqtt"
)

const fleetGaugeInterval = 15 * time.Second

// Run starts the background workers and blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	start := func(name string, fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
			e.log.Debugf("%s stopped", name)
		}()
	}

	var client *mqtt.PahoClient
	if e.cfg.MQTT.Enabled {
		c, err := mqtt.NewPahoClient(e.cfg.MQTT)
		if err != nil {
			return fmt.Errorf("mqtt client: %w", err)
		}
		client = c
		defer client.Disconnect()
		if err := mqtt.NewLocationFeed(client, e.registry, e.cfg.MQTT).Start(ctx); err != nil {
			return fmt.Errorf("mqtt feed: %w", err)
		}
	}

	// Subscriptions are opened before any worker runs so no event is missed.
	logSub := e.bus.Subscribe(nil)
	metricSub := e.bus.Subscribe(nil)
	start("mission log", func() { missionlog.Run(ctx, logSub, e.missions, logger.New("missionlog")) })
	start("metrics", func() { coremetrics.Collect(ctx, metricSub, e.sink) })
	if e.mirror != nil {
		mirrorSub := e.bus.Subscribe(nil)
		start("mirror", func() { e.mirror.Run(ctx, mirrorSub) })
	}

	if client != nil {
		relaySub := e.bus.Subscribe(nil)
		relay := mqtt.NewRelay(client, e.cfg.MQTT)
		start("mqtt relay", func() { relay.Run(ctx, relaySub) })
	}
	start("redispatch", func() { e.redispatch.Run(ctx) })
	start("fleet gauge", func() { e.recordFleet(ctx) })
	if addr := e.cfg.Metrics.PrometheusAddr; addr != "" {
		start("prometheus", func() {
			if err := metrics.StartPromServer(ctx, addr, e.ready); err != nil {
				e.log.Errorf("prom server: %v", err)
			}
		})
	}

	e.log.Infof("engine running")
	close(e.ready)
	<-ctx.Done()
	wg.Wait()
	return nil
}

// Ready is closed once Run has subscribed its workers.
func (e *Engine) Ready() <-chan struct{} { return e.ready }

func (e *Engine) recordFleet(ctx context.Context) {
	rec, ok := e.sink.(coremetrics.FleetSizeRecorder)
	if !ok {
		return
	}
	t := time.NewTicker(fleetGaugeInterval)
	defer t.Stop()
	for {
		vehicles, err := e.registry.List(ctx)
		if err == nil {
			counts := map[model.VehicleStatus]int{
				model.VehicleAvailable: 0,
				model.VehicleBusy:      0,
				model.VehicleOffline:   0,
			}
			for _, v := range vehicles {
				counts[v.Status]++
			}
			if err := rec.RecordFleetSize(counts); err != nil {
				e.log.Warnf("fleet size: %v", err)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
