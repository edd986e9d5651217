package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/rescue/core/events"
	"github.com/kilianp07/rescue/core/logger"
	"github.com/kilianp07/rescue/core/model"
)

type recordMirror struct {
	mu      sync.Mutex
	entries []Entry
	err     error
	closed  bool
}

func (r *recordMirror) Apply(_ context.Context, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return r.err
}

func (r *recordMirror) Close() error { r.closed = true; return nil }

func (r *recordMirror) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func TestFromEvent(t *testing.T) {
	alert := model.EmergencyAlert{ID: "a1", Status: model.StatusAssigned}
	e, ok := FromEvent(events.AlertAssigned{Alert: alert})
	require.True(t, ok)
	assert.Equal(t, CollectionAlerts, e.Collection)
	assert.Equal(t, "a1", e.ID)
	assert.Equal(t, string(events.TypeAlertAssigned), e.Type)

	e, ok = FromEvent(events.SignalChanged{Signal: model.TrafficSignal{ID: "TS-1"}})
	require.True(t, ok)
	assert.Equal(t, CollectionSignals, e.Collection)

	v := FromVehicle(model.Vehicle{ID: "amb-1"})
	assert.Equal(t, CollectionVehicles, v.Collection)
	assert.Equal(t, TypeVehicleChanged, v.Type)
}

func TestRunnerFansOut(t *testing.T) {
	good := &recordMirror{}
	bad := &recordMirror{err: errors.New("down")}
	r := NewRunner([]Mirror{bad, good}, logger.NopLogger{})
	bus := events.NewBus()
	sub := bus.Subscribe(nil)
	done := make(chan struct{})
	go func() {
		r.Run(context.Background(), sub)
		close(done)
	}()

	bus.Publish(events.AlertCreated{Alert: model.EmergencyAlert{ID: "a1"}})
	r.VehicleChanged(model.Vehicle{ID: "amb-1"})
	require.Eventually(t, func() bool { return good.len() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, bad.len())

	bus.Close()
	<-done
	require.NoError(t, r.Close())
	assert.True(t, good.closed)
}

func TestRunnerKeepsLatestVehicleSnapshot(t *testing.T) {
	rec := &recordMirror{}
	r := NewRunner([]Mirror{rec}, logger.NopLogger{})
	// Queued before Run starts, so nothing is applied in between.
	r.VehicleChanged(model.Vehicle{ID: "v1", Status: model.VehicleAvailable})
	r.VehicleChanged(model.Vehicle{ID: "v2", Status: model.VehicleAvailable})
	r.VehicleChanged(model.Vehicle{ID: "v1", Status: model.VehicleBusy, CurrentAlertID: "a1"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := events.NewBus()
	defer bus.Close()
	go r.Run(ctx, bus.Subscribe(nil))

	require.Eventually(t, func() bool { return rec.len() == 2 }, time.Second, 5*time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, "v1", rec.entries[0].ID)
	assert.Equal(t, model.VehicleBusy, rec.entries[0].Data.(model.Vehicle).Status)
	assert.Equal(t, "v2", rec.entries[1].ID)
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaMirror(t *testing.T) {
	w := &fakeWriter{}
	m := &KafkaMirror{writer: w}
	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	e := Entry{Collection: CollectionSignals, ID: "TS-002", Type: string(events.TypeSignalChanged), At: at,
		Data: model.TrafficSignal{ID: "TS-002", Status: model.SignalGreen, IsOverridden: true}}
	require.NoError(t, m.Apply(context.Background(), e))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "signals:TS-002", string(w.msgs[0].Key))
	assert.Equal(t, "type", w.msgs[0].Headers[0].Key)

	var got struct {
		ID   string              `json:"id"`
		Data model.TrafficSignal `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, "TS-002", got.ID)
	assert.True(t, got.Data.IsOverridden)

	w.err = errors.New("leader not available")
	assert.Error(t, m.Apply(context.Background(), e))
}

func TestKafkaMirrorRequiresBrokers(t *testing.T) {
	_, err := NewKafkaMirror(KafkaConfig{})
	assert.Error(t, err)
}

func TestOpenEmpty(t *testing.T) {
	ms, err := Open(context.Background(), Config{})
	require.NoError(t, err)
	assert.Empty(t, ms)
}
