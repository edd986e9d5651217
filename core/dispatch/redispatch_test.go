package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/kilianp07/rescue/core/logger"
	"github.com/kilianp07/rescue/core/model"
)

func TestSweepAssignsAfterRelease(t *testing.T) {
	f := newFixture(t, vehicle("amb-1", model.VehicleAmbulance, sf))
	ctx := context.Background()
	first, _ := f.life.Create(ctx, model.AlertAmbulance, sf, "u1", "")
	second, _ := f.life.Create(ctx, model.AlertAmbulance, sf, "u2", "")
	third, _ := f.life.Create(ctx, model.AlertAmbulance, sf, "u3", "")

	r := NewRedispatcher(f.m, f.life, 0, logger.NopLogger{})
	n, err := r.Sweep(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected one assignment, got %d (%v)", n, err)
	}
	got, _ := f.life.Get(ctx, first.ID)
	if got.Status != model.StatusAssigned {
		t.Fatalf("oldest alert should be served first, got %s", got.Status)
	}

	if _, err := f.reg.Release(ctx, "amb-1"); err != nil {
		t.Fatal(err)
	}
	if n, _ := r.Sweep(ctx); n != 1 {
		t.Fatalf("expected one assignment after release, got %d", n)
	}
	got, _ = f.life.Get(ctx, second.ID)
	if got.Status != model.StatusAssigned {
		t.Fatalf("second alert not assigned: %s", got.Status)
	}
	got, _ = f.life.Get(ctx, third.ID)
	if got.Status != model.StatusPending {
		t.Fatalf("third alert should still be pending: %s", got.Status)
	}
}

func TestRunOnKick(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a, _ := f.life.Create(ctx, model.AlertFire, sf, "u1", "")

	r := NewRedispatcher(f.m, f.life, time.Hour, logger.NopLogger{})
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	if err := f.reg.Register(ctx, vehicle("fire-1", model.VehicleFireEngine, sf)); err != nil {
		t.Fatal(err)
	}
	r.Kick()
	deadline := time.Now().Add(2 * time.Second)
	for {
		got, _ := f.life.Get(ctx, a.ID)
		if got.Status == model.StatusAssigned {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("alert not redispatched after kick")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done
}
