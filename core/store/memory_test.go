package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kilianp07/rescue/core/model"
)

// collectionSuite runs the same behaviour checks against any backend.
func collectionSuite(t *testing.T, newStores func(t *testing.T) Stores) {
	ctx := context.Background()

	t.Run("insert_get", func(t *testing.T) {
		s := newStores(t)
		a := model.EmergencyAlert{ID: "a1", Kind: model.AlertFire, Status: model.StatusPending, RequesterID: "u1"}
		if err := s.Alerts.Insert(ctx, a.ID, a); err != nil {
			t.Fatalf("insert: %v", err)
		}
		if err := s.Alerts.Insert(ctx, a.ID, a); !errors.Is(err, ErrExists) {
			t.Fatalf("expected ErrExists got %v", err)
		}
		got, err := s.Alerts.Get(ctx, "a1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.RequesterID != "u1" || got.Kind != model.AlertFire {
			t.Fatalf("unexpected alert %#v", got)
		}
		if _, err := s.Alerts.Get(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("expected ErrNotFound got %v", err)
		}
	})

	t.Run("update_rollback_on_error", func(t *testing.T) {
		s := newStores(t)
		v := model.Vehicle{ID: "v1", Kind: model.VehicleAmbulance, Status: model.VehicleAvailable}
		if err := s.Vehicles.Put(ctx, v.ID, v); err != nil {
			t.Fatalf("put: %v", err)
		}
		boom := fmt.Errorf("boom")
		_, err := s.Vehicles.Update(ctx, "v1", func(v *model.Vehicle) error {
			v.Status = model.VehicleBusy
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected callback error got %v", err)
		}
		got, _ := s.Vehicles.Get(ctx, "v1")
		if got.Status != model.VehicleAvailable {
			t.Fatalf("failed update must not persist, got %s", got.Status)
		}
		got, err = s.Vehicles.Update(ctx, "v1", func(v *model.Vehicle) error {
			v.Status = model.VehicleBusy
			v.CurrentAlertID = "a1"
			return nil
		})
		if err != nil || got.Status != model.VehicleBusy {
			t.Fatalf("update: %v %#v", err, got)
		}
		if _, err := s.Vehicles.Update(ctx, "nope", func(*model.Vehicle) error { return nil }); !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("expected ErrNotFound got %v", err)
		}
	})

	t.Run("list_sorted_filtered", func(t *testing.T) {
		s := newStores(t)
		for _, id := range []string{"TS-003", "TS-001", "TS-002"} {
			sig := model.TrafficSignal{ID: id, Status: model.SignalGreen, IsOverridden: id == "TS-002"}
			if err := s.Signals.Put(ctx, id, sig); err != nil {
				t.Fatalf("put: %v", err)
			}
		}
		all, err := s.Signals.List(ctx, nil)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(all) != 3 || all[0].ID != "TS-001" || all[2].ID != "TS-003" {
			t.Fatalf("unexpected order %#v", all)
		}
		over, _ := s.Signals.List(ctx, func(s model.TrafficSignal) bool { return s.IsOverridden })
		if len(over) != 1 || over[0].ID != "TS-002" {
			t.Fatalf("filter failed %#v", over)
		}
	})
}

func TestMemoryStores(t *testing.T) {
	collectionSuite(t, func(*testing.T) Stores { return NewMemoryStores() })
}

func TestMemoryDoesNotAlias(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStores()
	h := &model.Hospital{ID: "h1", Specialties: []string{"trauma"}}
	_ = s.Alerts.Put(ctx, "a1", model.EmergencyAlert{ID: "a1", HospitalDestination: h})
	h.Specialties[0] = "changed"
	got, _ := s.Alerts.Get(ctx, "a1")
	if got.HospitalDestination.Specialties[0] != "trauma" {
		t.Fatalf("store aliases caller memory")
	}
}
