// Package eventbus implements an in-process publish/subscribe bus.
//
// Publishing never blocks: each subscriber owns a bounded buffer and, when it
// is full, the oldest queued event is discarded to make room. Publish calls are
// serialized so every subscriber observes events in the same order they were
// published. Subscribers only receive events published after they joined.
package eventbus

import (
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the per-subscriber queue length when none is configured.
const DefaultBufferSize = 64

// EventBus is the interface consumed by producers and subscribers.
type EventBus[T any] interface {
	Publish(T)
	Subscribe(filter func(T) bool) *Subscription[T]
	Unsubscribe(*Subscription[T])
	Close()
}

// Subscription is a live feed of events accepted by its filter.
type Subscription[T any] struct {
	// C delivers events. It is closed on Unsubscribe or when the bus closes.
	C       <-chan T
	ch      chan T
	filter  func(T) bool
	dropped atomic.Uint64
}

// Dropped returns how many events were discarded because the buffer was full.
func (s *Subscription[T]) Dropped() uint64 { return s.dropped.Load() }

// Option configures a TypedBus.
type Option func(*options)

type options struct {
	size   int
	onDrop func()
}

// WithBufferSize sets the per-subscriber buffer length.
func WithBufferSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.size = n
		}
	}
}

// WithDropHook registers fn to be called each time an event is discarded.
func WithDropHook(fn func()) Option {
	return func(o *options) { o.onDrop = fn }
}

// TypedBus is a type-safe EventBus for events of type T.
type TypedBus[T any] struct {
	mu     sync.Mutex
	subs   []*Subscription[T]
	closed bool
	opts   options
}

// NewTyped creates a new TypedBus.
func NewTyped[T any](opts ...Option) *TypedBus[T] {
	o := options{size: DefaultBufferSize}
	for _, opt := range opts {
		opt(&o)
	}
	return &TypedBus[T]{opts: o}
}

// Publish delivers e to every matching subscriber without blocking.
func (b *TypedBus[T]) Publish(e T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, s := range b.subs {
		if s.filter != nil && !s.filter(e) {
			continue
		}
		b.deliver(s, e)
	}
}

// deliver enqueues e, evicting the oldest entry while the buffer is full. The
// subscriber may drain concurrently, so eviction is itself non-blocking.
func (b *TypedBus[T]) deliver(s *Subscription[T], e T) {
	for {
		select {
		case s.ch <- e:
			return
		default:
		}
		select {
		case <-s.ch:
			s.dropped.Add(1)
			if b.opts.onDrop != nil {
				b.opts.onDrop()
			}
		default:
		}
	}
}

// Subscribe registers a subscriber. A nil filter accepts every event.
func (b *TypedBus[T]) Subscribe(filter func(T) bool) *Subscription[T] {
	ch := make(chan T, b.opts.size)
	s := &Subscription[T]{C: ch, ch: ch, filter: filter}
	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subs = append(b.subs, s)
	}
	b.mu.Unlock()
	return s
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *TypedBus[T]) Unsubscribe(sub *Subscription[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(s.ch)
			return
		}
	}
}

// Close closes the bus and all subscriber channels.
func (b *TypedBus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, s := range b.subs {
		close(s.ch)
	}
	b.subs = nil
}

// Len returns the number of active subscribers.
func (b *TypedBus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
