package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kilianp07/rescue/core/model"
)

// Memory is an in-process Collection guarded by a single RWMutex.
type Memory[T any] struct {
	mu    sync.RWMutex
	data  map[string]T
	clone func(T) T
}

// NewMemory creates an empty collection. clone, when non-nil, is applied to
// every value crossing the store boundary so callers never alias stored state.
func NewMemory[T any](clone func(T) T) *Memory[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &Memory[T]{data: map[string]T{}, clone: clone}
}

func (m *Memory[T]) Insert(_ context.Context, id string, v T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[id]; ok {
		return fmt.Errorf("insert %s: %w", id, ErrExists)
	}
	m.data[id] = m.clone(v)
	return nil
}

func (m *Memory[T]) Put(_ context.Context, id string, v T) error {
	m.mu.Lock()
	m.data[id] = m.clone(v)
	m.mu.Unlock()
	return nil
}

func (m *Memory[T]) Get(_ context.Context, id string) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("get %s: %w", id, model.ErrNotFound)
	}
	return m.clone(v), nil
}

func (m *Memory[T]) Update(_ context.Context, id string, fn func(*T) error) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.data[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("update %s: %w", id, model.ErrNotFound)
	}
	next := m.clone(cur)
	if err := fn(&next); err != nil {
		return m.clone(cur), err
	}
	m.data[id] = next
	return m.clone(next), nil
}

func (m *Memory[T]) List(_ context.Context, keep func(T) bool) ([]T, error) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.data))
	for id, v := range m.data {
		if keep == nil || keep(v) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	res := make([]T, 0, len(ids))
	for _, id := range ids {
		res = append(res, m.clone(m.data[id]))
	}
	m.mu.RUnlock()
	return res, nil
}

func (m *Memory[T]) Close() error { return nil }
