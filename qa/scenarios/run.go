package scenarios

import (
	"context"
	"errors"
	"testing"

	"github.com/kilianp07/rescue/app"
	"github.com/kilianp07/rescue/config"
	"github.com/kilianp07/rescue/core/model"
)

var admin = model.Actor{ID: "qa-admin", Role: model.RoleAdmin}

func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	ctx := context.Background()
	cfg := &config.Config{}
	drivers := map[string]model.Actor{}
	for _, v := range sc.Vehicles {
		cfg.Fleet = append(cfg.Fleet, v.Seed())
		role := model.RoleFireDriver
		if model.VehicleKind(v.Kind) == model.VehicleAmbulance {
			role = model.RoleAmbulanceDriver
		}
		drivers[v.ID] = model.Actor{ID: v.DriverID, Role: role}
	}
	e, err := app.New(ctx, cfg)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	defer func() { _ = e.Close() }()

	refs := map[string]string{}
	for i, st := range sc.Steps {
		switch {
		case st.Submit != nil:
			s := st.Submit
			requester := s.Requester
			if requester == "" {
				requester = "qa-public"
			}
			sub, err := e.SubmitAlert(ctx, model.Actor{ID: requester, Role: model.RolePublic},
				model.AlertKind(s.Kind), model.Location{Lat: s.Lat, Lng: s.Lng}, sc.Name)
			if err != nil {
				t.Fatalf("step %d submit %s: %v", i, s.Ref, err)
			}
			refs[s.Ref] = sub.Alert.ID
		case st.Duty != nil:
			if _, err := e.SetDuty(ctx, admin, st.Duty.Vehicle, st.Duty.Online); err != nil {
				t.Fatalf("step %d duty %s: %v", i, st.Duty.Vehicle, err)
			}
		case st.Move != nil:
			if _, err := e.UpdateLocation(ctx, admin, st.Move.Vehicle, model.Location{Lat: st.Move.Lat, Lng: st.Move.Lng}); err != nil {
				t.Fatalf("step %d move %s: %v", i, st.Move.Vehicle, err)
			}
		case st.Advance != nil:
			a, err := e.GetAlert(ctx, refs[st.Advance.Ref])
			if err != nil {
				t.Fatalf("step %d advance %s: %v", i, st.Advance.Ref, err)
			}
			actor := drivers[a.AssignedVehicleID]
			_, err = e.AdvanceMission(ctx, actor, a.ID, model.AlertStatus(st.Advance.To))
			want := parseError(st.Advance.Error)
			switch {
			case want == nil && err != nil:
				t.Fatalf("step %d advance %s to %s: %v", i, st.Advance.Ref, st.Advance.To, err)
			case want != nil && !errors.Is(err, want):
				t.Fatalf("step %d advance %s: expected %v, got %v", i, st.Advance.Ref, want, err)
			}
		case st.Cancel != "":
			if _, err := e.Cancel(ctx, admin, refs[st.Cancel]); err != nil {
				t.Fatalf("step %d cancel %s: %v", i, st.Cancel, err)
			}
		case st.Dispatch != "":
			if _, err := e.Dispatch(ctx, admin, refs[st.Dispatch]); err != nil && !errors.Is(err, model.ErrNoVehicleAvailable) {
				t.Fatalf("step %d dispatch %s: %v", i, st.Dispatch, err)
			}
		default:
			t.Fatalf("step %d is empty", i)
		}
	}

	for ref, vehicle := range sc.Expected.Assignments {
		a, err := e.GetAlert(ctx, refs[ref])
		if err != nil {
			t.Fatalf("alert %s: %v", ref, err)
		}
		if a.AssignedVehicleID != vehicle {
			t.Errorf("scenario %s: %s assigned to %q, expected %q", sc.Name, ref, a.AssignedVehicleID, vehicle)
		}
	}
	for ref, status := range sc.Expected.Statuses {
		a, err := e.GetAlert(ctx, refs[ref])
		if err != nil {
			t.Fatalf("alert %s: %v", ref, err)
		}
		if string(a.Status) != status {
			t.Errorf("scenario %s: %s is %s, expected %s", sc.Name, ref, a.Status, status)
		}
	}
	for id, status := range sc.Expected.Vehicles {
		v, err := e.Vehicle(ctx, id)
		if err != nil {
			t.Fatalf("vehicle %s: %v", id, err)
		}
		if string(v.Status) != status {
			t.Errorf("scenario %s: vehicle %s is %s, expected %s", sc.Name, id, v.Status, status)
		}
	}
}
