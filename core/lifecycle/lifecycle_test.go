package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kilianp07/rescue/core/events"
	"github.com/kilianp07/rescue/core/logger"
	"github.com/kilianp07/rescue/core/model"
	"github.com/kilianp07/rescue/core/store"
)

type recorder struct {
	mu  sync.Mutex
	evs []events.Event
}

func (r *recorder) Publish(e events.Event) {
	r.mu.Lock()
	r.evs = append(r.evs, e)
	r.mu.Unlock()
}

func (r *recorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, len(r.evs))
	for i, e := range r.evs {
		out[i] = e.Type()
	}
	return out
}

var sf = model.Location{Lat: 37.7749, Lng: -122.4194}

func newLifecycle() (*Lifecycle, *recorder) {
	rec := &recorder{}
	return New(store.NewMemory(model.EmergencyAlert.Clone), rec, logger.NopLogger{}), rec
}

func assign(t *testing.T, l *Lifecycle, id, driver string) model.EmergencyAlert {
	t.Helper()
	a, err := l.Transition(context.Background(), id, model.MatcherActor, model.StatusAssigned,
		Payload{VehicleID: "v-" + driver, DriverID: driver})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	return a
}

func TestCreatePending(t *testing.T) {
	l, rec := newLifecycle()
	a, err := l.Create(context.Background(), model.AlertAmbulance, sf, "u1", "chest pain")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Status != model.StatusPending || a.ID == "" || a.AssignedVehicleID != "" {
		t.Fatalf("unexpected alert %+v", a)
	}
	if got := rec.types(); len(got) != 1 || got[0] != events.TypeAlertCreated {
		t.Fatalf("expected AlertCreated, got %v", got)
	}
	if _, err := l.Create(context.Background(), "police", sf, "u1", ""); !errors.Is(err, model.ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestAmbulanceFullMission(t *testing.T) {
	l, rec := newLifecycle()
	ctx := context.Background()
	a, _ := l.Create(ctx, model.AlertAmbulance, sf, "u1", "")
	assign(t, l, a.ID, "d1")
	driver := model.Actor{ID: "d1", Role: model.RoleAmbulanceDriver}
	for _, s := range Phases(model.AlertAmbulance)[2:] {
		got, err := l.Transition(ctx, a.ID, driver, s, Payload{})
		if err != nil {
			t.Fatalf("transition to %s: %v", s, err)
		}
		if got.Status != s {
			t.Fatalf("expected %s got %s", s, got.Status)
		}
	}
	want := []events.Type{
		events.TypeAlertCreated, events.TypeAlertAssigned,
		events.TypeAlertTransitioned, events.TypeAlertTransitioned, events.TypeAlertTransitioned,
		events.TypeAlertTransitioned, events.TypeAlertTransitioned,
	}
	got := rec.types()
	if len(got) != len(want) {
		t.Fatalf("expected %d events got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: expected %s got %s", i, want[i], got[i])
		}
	}
	if _, err := l.Transition(ctx, a.ID, driver, model.StatusCompleted, Payload{}); !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("completed must be terminal, got %v", err)
	}
}

func TestFireHasNoPickup(t *testing.T) {
	l, _ := newLifecycle()
	ctx := context.Background()
	a, _ := l.Create(ctx, model.AlertFire, sf, "u1", "")
	assign(t, l, a.ID, "f1")
	driver := model.Actor{ID: "f1", Role: model.RoleFireDriver}
	for _, s := range []model.AlertStatus{model.StatusEnRoute, model.StatusArrived} {
		if _, err := l.Transition(ctx, a.ID, driver, s, Payload{}); err != nil {
			t.Fatalf("transition %s: %v", s, err)
		}
	}
	if _, err := l.Transition(ctx, a.ID, driver, model.StatusPickup, Payload{}); !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	got, _ := l.Get(ctx, a.ID)
	if got.Status != model.StatusArrived {
		t.Fatalf("status changed to %s", got.Status)
	}
	if _, err := l.Transition(ctx, a.ID, driver, model.StatusCompleted, Payload{}); err != nil {
		t.Fatalf("arrived → completed: %v", err)
	}
}

func TestNoSkipNoReverse(t *testing.T) {
	l, _ := newLifecycle()
	ctx := context.Background()
	a, _ := l.Create(ctx, model.AlertAmbulance, sf, "u1", "")
	assign(t, l, a.ID, "d1")
	driver := model.Actor{ID: "d1", Role: model.RoleAmbulanceDriver}
	if _, err := l.Transition(ctx, a.ID, driver, model.StatusArrived, Payload{}); !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("skip allowed: %v", err)
	}
	if _, err := l.Transition(ctx, a.ID, driver, model.StatusEnRoute, Payload{}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Transition(ctx, a.ID, driver, model.StatusEnRoute, Payload{}); !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("repeat allowed: %v", err)
	}
	if _, err := l.Transition(ctx, a.ID, model.MatcherActor, model.StatusAssigned, Payload{VehicleID: "v", DriverID: "d"}); !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("reverse allowed: %v", err)
	}
}

func TestAuthorization(t *testing.T) {
	l, _ := newLifecycle()
	ctx := context.Background()
	a, _ := l.Create(ctx, model.AlertAmbulance, sf, "u1", "")

	cases := []struct {
		name   string
		actor  model.Actor
		target model.AlertStatus
	}{
		{"public_assign", model.Actor{ID: "u1", Role: model.RolePublic}, model.StatusAssigned},
		{"driver_assign", model.Actor{ID: "d1", Role: model.RoleAmbulanceDriver}, model.StatusAssigned},
		{"admin_assign", model.Actor{ID: "root", Role: model.RoleAdmin}, model.StatusAssigned},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := l.Transition(ctx, a.ID, c.actor, c.target, Payload{VehicleID: "v", DriverID: "d1"})
			if !errors.Is(err, model.ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
		})
	}

	assign(t, l, a.ID, "d1")
	denied := []model.Actor{
		{ID: "d2", Role: model.RoleAmbulanceDriver},
		{ID: "d1", Role: model.RoleFireDriver},
		{ID: "u1", Role: model.RolePublic},
	}
	for _, actor := range denied {
		if _, err := l.Transition(ctx, a.ID, actor, model.StatusEnRoute, Payload{}); !errors.Is(err, model.ErrUnauthorized) {
			t.Fatalf("%+v: expected ErrUnauthorized, got %v", actor, err)
		}
	}
	if _, err := l.Transition(ctx, a.ID, model.Actor{ID: "root", Role: model.RoleAdmin}, model.StatusEnRoute, Payload{}); err != nil {
		t.Fatalf("admin should advance: %v", err)
	}
}

func TestAssignRequiresVehicle(t *testing.T) {
	l, _ := newLifecycle()
	ctx := context.Background()
	a, _ := l.Create(ctx, model.AlertFire, sf, "u1", "")
	if _, err := l.Transition(ctx, a.ID, model.MatcherActor, model.StatusAssigned, Payload{}); !errors.Is(err, model.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	got, _ := l.Get(ctx, a.ID)
	if got.Status != model.StatusPending {
		t.Fatalf("alert moved to %s", got.Status)
	}
}

func TestConcurrentTransitionSingleWinner(t *testing.T) {
	l, _ := newLifecycle()
	ctx := context.Background()
	a, _ := l.Create(ctx, model.AlertAmbulance, sf, "u1", "")
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Transition(ctx, a.ID, model.MatcherActor, model.StatusAssigned, Payload{VehicleID: "v", DriverID: "d"})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one assignment, got %d", wins)
	}
}

func TestAttachHospital(t *testing.T) {
	l, rec := newLifecycle()
	ctx := context.Background()
	h := model.Hospital{ID: "h1", Name: "General"}
	a, _ := l.Create(ctx, model.AlertAmbulance, sf, "u1", "")
	driver := model.Actor{ID: "d1", Role: model.RoleAmbulanceDriver}
	if _, err := l.AttachHospital(ctx, a.ID, driver, h); !errors.Is(err, model.ErrInvalidPhase) {
		t.Fatalf("expected ErrInvalidPhase on pending, got %v", err)
	}
	assign(t, l, a.ID, "d1")
	for _, s := range []model.AlertStatus{model.StatusEnRoute, model.StatusArrived, model.StatusPickup} {
		if _, err := l.Transition(ctx, a.ID, driver, s, Payload{}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := l.AttachHospital(ctx, a.ID, driver, h)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if got.HospitalDestination == nil || got.HospitalDestination.ID != "h1" {
		t.Fatalf("hospital not attached: %+v", got)
	}
	if types := rec.types(); types[len(types)-1] != events.TypeHospitalAttached {
		t.Fatalf("expected HospitalAttached, got %v", types)
	}
	if _, err := l.AttachHospital(ctx, a.ID, model.Actor{ID: "d2", Role: model.RoleAmbulanceDriver}, h); !errors.Is(err, model.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	fire, _ := l.Create(ctx, model.AlertFire, sf, "u1", "")
	if _, err := l.AttachHospital(ctx, fire.ID, model.Actor{ID: "root", Role: model.RoleAdmin}, h); !errors.Is(err, model.ErrInvalidPhase) {
		t.Fatalf("fire alerts take no hospital, got %v", err)
	}
}

func TestTransportPayloadSetsHospital(t *testing.T) {
	l, _ := newLifecycle()
	ctx := context.Background()
	a, _ := l.Create(ctx, model.AlertAmbulance, sf, "u1", "")
	assign(t, l, a.ID, "d1")
	driver := model.Actor{ID: "d1", Role: model.RoleAmbulanceDriver}
	for _, s := range []model.AlertStatus{model.StatusEnRoute, model.StatusArrived, model.StatusPickup} {
		if _, err := l.Transition(ctx, a.ID, driver, s, Payload{}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := l.Transition(ctx, a.ID, driver, model.StatusTransport, Payload{Hospital: &model.Hospital{ID: "h2"}})
	if err != nil {
		t.Fatal(err)
	}
	if got.HospitalDestination == nil || got.HospitalDestination.ID != "h2" {
		t.Fatalf("expected destination h2, got %+v", got.HospitalDestination)
	}
}

func TestCancel(t *testing.T) {
	l, _ := newLifecycle()
	ctx := context.Background()
	requester := model.Actor{ID: "u1", Role: model.RolePublic}

	a, _ := l.Create(ctx, model.AlertAmbulance, sf, "u1", "")
	if _, err := l.Cancel(ctx, a.ID, model.Actor{ID: "u2", Role: model.RolePublic}); !errors.Is(err, model.ErrUnauthorized) {
		t.Fatalf("stranger cancelled: %v", err)
	}
	got, err := l.Cancel(ctx, a.ID, requester)
	if err != nil {
		t.Fatalf("cancel pending: %v", err)
	}
	if got.Status != model.StatusCancelled {
		t.Fatalf("expected cancelled got %s", got.Status)
	}
	if _, err := l.Transition(ctx, a.ID, model.MatcherActor, model.StatusAssigned, Payload{VehicleID: "v", DriverID: "d"}); !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("cancelled must be terminal, got %v", err)
	}

	b, _ := l.Create(ctx, model.AlertAmbulance, sf, "u1", "")
	assign(t, l, b.ID, "d1")
	got, err = l.Cancel(ctx, b.ID, model.Actor{ID: "root", Role: model.RoleAdmin})
	if err != nil {
		t.Fatalf("cancel assigned: %v", err)
	}
	if got.AssignedVehicleID != "v-d1" {
		t.Fatalf("assigned vehicle must be retained, got %q", got.AssignedVehicleID)
	}

	c, _ := l.Create(ctx, model.AlertAmbulance, sf, "u1", "")
	assign(t, l, c.ID, "d1")
	if _, err := l.Transition(ctx, c.ID, model.Actor{ID: "d1", Role: model.RoleAmbulanceDriver}, model.StatusEnRoute, Payload{}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Cancel(ctx, c.ID, requester); !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("en_route alert cancelled: %v", err)
	}
}

func TestListQueries(t *testing.T) {
	l, _ := newLifecycle()
	ctx := context.Background()
	a, _ := l.Create(ctx, model.AlertAmbulance, sf, "u1", "")
	_, _ = l.Create(ctx, model.AlertFire, sf, "u2", "")
	_, _ = l.Create(ctx, model.AlertFire, sf, "u1", "")
	assign(t, l, a.ID, "d1")

	mine, err := l.ListByRequester(ctx, "u1")
	if err != nil || len(mine) != 2 {
		t.Fatalf("expected 2 alerts for u1, got %d (%v)", len(mine), err)
	}
	pending, _ := l.ListByStatus(ctx, model.StatusPending)
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}
	if _, err := l.Get(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNext(t *testing.T) {
	if n, ok := Next(model.AlertFire, model.StatusArrived); !ok || n != model.StatusCompleted {
		t.Fatalf("fire arrived → %s", n)
	}
	if n, ok := Next(model.AlertAmbulance, model.StatusArrived); !ok || n != model.StatusPickup {
		t.Fatalf("ambulance arrived → %s", n)
	}
	if _, ok := Next(model.AlertAmbulance, model.StatusCompleted); ok {
		t.Fatalf("completed has no successor")
	}
}
