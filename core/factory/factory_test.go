package factory

import (
	"testing"
	"time"
)

type widget struct {
	Name    string        `json:"name"`
	Size    int           `json:"size"`
	Timeout time.Duration `json:"timeout"`
}

func TestRegistryCreate(t *testing.T) {
	r := NewRegistry[widget]()
	if err := r.Register("w", func(conf map[string]any) (widget, error) {
		var w widget
		err := Decode(conf, &w)
		return w, err
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register("w", func(map[string]any) (widget, error) { return widget{}, nil }); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	w, err := r.Create(ModuleConfig{Type: "w", Conf: map[string]any{"name": "x", "size": "3", "timeout": "2s"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if w.Name != "x" || w.Size != 3 || w.Timeout != 2*time.Second {
		t.Fatalf("decode mismatch %#v", w)
	}
	if _, err := r.Create(ModuleConfig{Type: "missing"}); err == nil {
		t.Fatalf("expected unknown type error")
	}
}

func TestRegistryNilFactory(t *testing.T) {
	r := NewRegistry[int]()
	if err := r.Register("nil", nil); err == nil {
		t.Fatalf("expected error for nil factory")
	}
	if len(r.Names()) != 0 {
		t.Fatalf("nil factory must not be registered")
	}
}
