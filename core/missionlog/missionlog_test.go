package missionlog

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/kilianp07/rescue/core/events"
	"github.com/kilianp07/rescue/core/model"
)

func sampleRecords(base time.Time) []Record {
	alert := model.EmergencyAlert{ID: "a1", RequesterID: "u1", Kind: model.AlertAmbulance, Status: model.StatusAssigned, AssignedVehicleID: "v1"}
	return []Record{
		FromEvent(events.AlertCreated{Alert: model.EmergencyAlert{ID: "a1", RequesterID: "u1"}, At: base}),
		FromEvent(events.AlertAssigned{Alert: alert, VehicleID: "v1", DriverID: "d1", At: base.Add(time.Second)}),
		FromEvent(events.SignalChanged{Signal: model.TrafficSignal{ID: "TS-002", Status: model.SignalRed}, Reason: "override", At: base.Add(2 * time.Second)}),
		FromEvent(events.AlertTransitioned{Alert: alert, From: model.StatusAssigned, To: model.StatusEnRoute, ActorID: "d1", At: base.Add(3 * time.Second)}),
	}
}

func storeSuite(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Unix(1700000000, 0).UTC()
	for _, r := range sampleRecords(base) {
		if err := s.Append(ctx, r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	cases := []struct {
		name string
		q    Query
		want int
	}{
		{"all", Query{}, 4},
		{"alert", Query{AlertID: "a1"}, 3},
		{"vehicle", Query{VehicleID: "v1"}, 2},
		{"signal", Query{SignalID: "TS-002"}, 1},
		{"type", Query{Type: events.TypeAlertAssigned}, 1},
		{"range", Query{Start: base.Add(time.Second), End: base.Add(2 * time.Second)}, 2},
		{"limit", Query{Limit: 2}, 2},
	}
	for _, c := range cases {
		got, err := s.Query(ctx, c.q)
		if err != nil {
			t.Fatalf("%s: query: %v", c.name, err)
		}
		if len(got) != c.want {
			t.Fatalf("%s: expected %d records got %d", c.name, c.want, len(got))
		}
	}
	got, _ := s.Query(ctx, Query{Limit: 1})
	if got[0].Type != events.TypeAlertTransitioned {
		t.Fatalf("limit should keep the most recent, got %s", got[0].Type)
	}
}

func TestMemoryStore(t *testing.T) {
	storeSuite(t, NewMemoryStore(0))
}

func TestMemoryStoreBounded(t *testing.T) {
	s := NewMemoryStore(3)
	for i := 0; i < 5; i++ {
		_ = s.Append(context.Background(), Record{Timestamp: time.Unix(int64(i), 0), Message: fmt.Sprint(i)})
	}
	got, _ := s.Query(context.Background(), Query{})
	if len(got) != 3 || got[0].Message != "2" {
		t.Fatalf("unexpected records %+v", got)
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore("file:missionlog_test.db?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = s.Close() }()
	storeSuite(t, s)
}

func TestRotatingJSONLStore_Query(t *testing.T) {
	s, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "log.jsonl"), 1, 2, 1)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = s.Close() }()
	storeSuite(t, s)
}

func TestRotatingJSONLStore_Rotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.jsonl")
	s, err := NewRotatingJSONLStore(path, 1, 5, 1)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = s.Close() }()
	long := make([]byte, 4096)
	for i := range long {
		long[i] = 'x'
	}
	const n = 400
	for i := 0; i < n; i++ {
		rec := Record{Timestamp: time.Unix(int64(i), 0), Message: string(long)}
		if err := s.Append(context.Background(), rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	files, _ := s.files()
	if len(files) < 2 {
		t.Fatalf("expected rotated files, got %v", files)
	}
	got, err := s.Query(context.Background(), Query{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != n {
		t.Fatalf("expected %d records across files, got %d", n, len(got))
	}
}

func TestRun(t *testing.T) {
	bus := events.NewBus()
	sub := bus.Subscribe(nil)
	s := NewMemoryStore(0)
	done := make(chan struct{})
	go func() {
		Run(context.Background(), sub, s, nil)
		close(done)
	}()
	for _, r := range []events.Event{
		events.AlertCreated{Alert: model.EmergencyAlert{ID: "a1"}, At: time.Now()},
		events.SignalChanged{Signal: model.TrafficSignal{ID: "TS-001"}, At: time.Now()},
	} {
		bus.Publish(r)
	}
	bus.Close()
	<-done
	got, _ := s.Query(context.Background(), Query{})
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
}

func TestOpen(t *testing.T) {
	s, err := Open(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("expected memory default, got %T", s)
	}
	if _, err := Open(Config{Backend: "kafka"}); err == nil {
		t.Fatalf("expected unknown backend error")
	}
	js, err := Open(Config{Backend: "jsonl", Path: filepath.Join(t.TempDir(), "m.jsonl")})
	if err != nil {
		t.Fatal(err)
	}
	_ = js.Close()
}
