package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/rescue/config"
	"github.com/kilianp07/rescue/core/events"
	"github.com/kilianp07/rescue/core/missionlog"
	"github.com/kilianp07/rescue/core/model"
	"github.com/kilianp07/rescue/infra/mirror"
)

var (
	origin    = model.Location{Lat: 37.7749, Lng: -122.4194}
	admin     = model.Actor{ID: "ops", Role: model.RoleAdmin}
	requester = model.Actor{ID: "u1", Role: model.RolePublic}
)

// north returns the latitude d km north of origin.
func north(d float64) float64 { return origin.Lat + d/111.195 }

func testConfig() *config.Config {
	return &config.Config{
		Fleet: []config.VehicleSeed{
			{ID: "amb-near", Kind: "ambulance", DriverID: "d-near", Lat: north(0.5), Lng: origin.Lng},
			{ID: "amb-far", Kind: "ambulance", DriverID: "d-far", Lat: north(3), Lng: origin.Lng},
			{ID: "fe-1", Kind: "fire_engine", DriverID: "d-fire", Lat: north(1), Lng: origin.Lng, Offline: true},
		},
		Signals: []config.SignalSeed{{ID: "TS-001"}, {ID: "TS-002", Status: "green"}},
		Hospitals: []config.HospitalSeed{
			{ID: "sfgh", Name: "SF General", Lat: 37.7557, Lng: -122.4048, EmergencyCapacity: 10},
			{ID: "ucsf", Name: "UCSF Parnassus", Lat: 37.7631, Lng: -122.4576, EmergencyCapacity: 5},
		},
	}
}

func newEngine(t *testing.T, cfg *config.Config, opts ...Option) *Engine {
	t.Helper()
	e, err := New(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func runEngine(t *testing.T, e *Engine) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = e.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	select {
	case <-e.Ready():
	case <-time.After(2 * time.Second):
		t.Fatalf("engine not ready")
	}
}

func TestSubmitAssignsNearest(t *testing.T) {
	e := newEngine(t, testConfig())
	ctx := context.Background()
	sub := e.Subscribe(events.ForDriver("d-near"))

	res, err := e.SubmitAlert(ctx, requester, model.AlertAmbulance, origin, "cardiac arrest")
	require.NoError(t, err)
	require.NotNil(t, res.Assignment)
	assert.Equal(t, "amb-near", res.Assignment.Vehicle.ID)
	assert.InDelta(t, 0.5, res.Assignment.DistanceKm, 0.01)
	assert.Equal(t, model.StatusAssigned, res.Alert.Status)
	assert.Equal(t, "d-near", res.Alert.AssignedDriverID)

	select {
	case ev := <-sub.C:
		asg, ok := ev.(events.AlertAssigned)
		require.True(t, ok, "got %T", ev)
		assert.Equal(t, res.Alert.ID, asg.Alert.ID)
	case <-time.After(time.Second):
		t.Fatalf("driver not notified")
	}

	v, err := e.Vehicle(ctx, "amb-near")
	require.NoError(t, err)
	assert.Equal(t, model.VehicleBusy, v.Status)
	assert.Equal(t, res.Alert.ID, v.CurrentAlertID)
}

func TestSubmitWithoutVehicleStaysPending(t *testing.T) {
	e := newEngine(t, testConfig())
	res, err := e.SubmitAlert(context.Background(), requester, model.AlertFire, origin, "")
	require.NoError(t, err)
	assert.Nil(t, res.Assignment)
	assert.Equal(t, model.StatusPending, res.Alert.Status)
	assert.Empty(t, res.Alert.AssignedVehicleID)
}

func TestRedispatchWhenVehicleComesOnline(t *testing.T) {
	e := newEngine(t, testConfig())
	runEngine(t, e)
	ctx := context.Background()
	res, err := e.SubmitAlert(ctx, requester, model.AlertFire, origin, "kitchen fire")
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, res.Alert.Status)

	_, err = e.SetDuty(ctx, model.Actor{ID: "d-fire", Role: model.RoleFireDriver}, "fe-1", true)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		a, err := e.GetAlert(ctx, res.Alert.ID)
		return err == nil && a.Status == model.StatusAssigned && a.AssignedVehicleID == "fe-1"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAmbulanceMission(t *testing.T) {
	e := newEngine(t, testConfig())
	ctx := context.Background()
	res, err := e.SubmitAlert(ctx, requester, model.AlertAmbulance, origin, "")
	require.NoError(t, err)
	id := res.Alert.ID
	driver := model.Actor{ID: "d-near", Role: model.RoleAmbulanceDriver}
	other := model.Actor{ID: "d-far", Role: model.RoleAmbulanceDriver}

	_, err = e.AdvanceMission(ctx, other, id, model.StatusEnRoute)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	_, err = e.AdvanceMission(ctx, driver, id, model.StatusArrived)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)

	for _, st := range []model.AlertStatus{model.StatusEnRoute, model.StatusArrived, model.StatusPickup} {
		_, err = e.AdvanceMission(ctx, driver, id, st)
		require.NoError(t, err, st)
	}
	a, err := e.AdvanceMission(ctx, driver, id, model.StatusTransport)
	require.NoError(t, err)
	require.NotNil(t, a.HospitalDestination)
	assert.Equal(t, "sfgh", a.HospitalDestination.ID)

	a, err = e.AttachHospital(ctx, driver, id, "ucsf")
	require.NoError(t, err)
	assert.Equal(t, "ucsf", a.HospitalDestination.ID)
	_, err = e.AttachHospital(ctx, driver, id, "nowhere")
	assert.ErrorIs(t, err, model.ErrNotFound)

	a, err = e.AdvanceMission(ctx, driver, id, model.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, a.Status)
	assert.Equal(t, "amb-near", a.AssignedVehicleID)

	v, err := e.Vehicle(ctx, "amb-near")
	require.NoError(t, err)
	assert.Equal(t, model.VehicleAvailable, v.Status)
	assert.Empty(t, v.CurrentAlertID)
}

func TestCancelReleasesVehicle(t *testing.T) {
	e := newEngine(t, testConfig())
	ctx := context.Background()
	res, err := e.SubmitAlert(ctx, requester, model.AlertAmbulance, origin, "")
	require.NoError(t, err)

	_, err = e.Cancel(ctx, model.Actor{ID: "u2", Role: model.RolePublic}, res.Alert.ID)
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	a, err := e.AdvanceMission(ctx, requester, res.Alert.ID, model.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, a.Status)
	v, err := e.Vehicle(ctx, "amb-near")
	require.NoError(t, err)
	assert.Equal(t, model.VehicleAvailable, v.Status)

	_, err = e.Cancel(ctx, admin, res.Alert.ID)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestVehicleAuthorization(t *testing.T) {
	e := newEngine(t, testConfig())
	ctx := context.Background()
	loc := model.Location{Lat: 37.78, Lng: -122.41}
	_, err := e.UpdateLocation(ctx, model.Actor{ID: "d-far", Role: model.RoleAmbulanceDriver}, "amb-near", loc)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	_, err = e.UpdateLocation(ctx, model.Actor{ID: "d-near", Role: model.RoleFireDriver}, "amb-near", loc)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	v, err := e.UpdateLocation(ctx, model.Actor{ID: "d-near", Role: model.RoleAmbulanceDriver}, "amb-near", loc)
	require.NoError(t, err)
	assert.Equal(t, 37.78, v.Location.Lat)
	_, err = e.SetDuty(ctx, admin, "amb-far", false)
	require.NoError(t, err)
	_, err = e.SetDuty(ctx, admin, "ghost", false)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSignalOverride(t *testing.T) {
	e := newEngine(t, testConfig())
	ctx := context.Background()
	_, err := e.OverrideSignal(ctx, requester, "TS-002", model.SignalRed)
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	s, err := e.OverrideSignal(ctx, admin, "TS-002", model.SignalRed)
	require.NoError(t, err)
	assert.True(t, s.IsOverridden)
	_, err = e.ApplyAutomatic(ctx, "TS-002", model.SignalGreen)
	assert.ErrorIs(t, err, model.ErrOverridden)

	s, err = e.ClearOverride(ctx, admin, "TS-002")
	require.NoError(t, err)
	assert.False(t, s.IsOverridden)
	assert.Equal(t, model.SignalRed, s.Status)

	res, err := e.AllStop(ctx, admin)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Len(t, res.Applied, 2)
	res, err = e.ClearAll(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, res.Applied, 2)
}

func TestStats(t *testing.T) {
	e := newEngine(t, testConfig())
	ctx := context.Background()
	_, err := e.SubmitAlert(ctx, requester, model.AlertAmbulance, origin, "")
	require.NoError(t, err)
	_, err = e.SubmitAlert(ctx, requester, model.AlertFire, origin, "")
	require.NoError(t, err)
	_, err = e.OverrideSignal(ctx, admin, "TS-001", model.SignalGreen)
	require.NoError(t, err)

	st, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Alerts[model.StatusAssigned])
	assert.Equal(t, 1, st.Alerts[model.StatusPending])
	assert.Equal(t, 1, st.Vehicles[model.VehicleBusy])
	assert.Equal(t, 1, st.Vehicles[model.VehicleAvailable])
	assert.Equal(t, 1, st.Vehicles[model.VehicleOffline])
	assert.Equal(t, 2, st.Signals)
	assert.Equal(t, 1, st.OverriddenSignals)
	assert.Len(t, st.PendingOldest, 1)

	byReq, err := e.AlertsByRequester(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, byReq, 2)
}

func TestMissionLogRecordsEvents(t *testing.T) {
	e := newEngine(t, testConfig())
	runEngine(t, e)
	ctx := context.Background()
	res, err := e.SubmitAlert(ctx, requester, model.AlertAmbulance, origin, "")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		recs, err := e.Logs(ctx, missionlog.Query{AlertID: res.Alert.ID})
		return err == nil && len(recs) == 2
	}, 2*time.Second, 10*time.Millisecond)
	recs, err := e.Logs(ctx, missionlog.Query{AlertID: res.Alert.ID})
	require.NoError(t, err)
	assert.Equal(t, events.TypeAlertCreated, recs[0].Type)
	assert.Equal(t, events.TypeAlertAssigned, recs[1].Type)
}

type recordMirror struct {
	mu      sync.Mutex
	entries []mirror.Entry
}

func (r *recordMirror) Apply(_ context.Context, e mirror.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *recordMirror) Close() error { return nil }

func (r *recordMirror) collections() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]int{}
	for _, e := range r.entries {
		out[e.Collection]++
	}
	return out
}

func TestMirrorReceivesChanges(t *testing.T) {
	m := &recordMirror{}
	e := newEngine(t, testConfig(), WithMirrors(m))
	runEngine(t, e)
	ctx := context.Background()
	_, err := e.SubmitAlert(ctx, requester, model.AlertAmbulance, origin, "")
	require.NoError(t, err)
	_, err = e.OverrideSignal(ctx, admin, "TS-001", model.SignalGreen)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		c := m.collections()
		return c[mirror.CollectionAlerts] == 2 && c[mirror.CollectionVehicles] >= 1 && c[mirror.CollectionSignals] == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNewRejectsBadHospitals(t *testing.T) {
	cfg := testConfig()
	cfg.Hospitals = append(cfg.Hospitals, config.HospitalSeed{ID: "sfgh"})
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}
