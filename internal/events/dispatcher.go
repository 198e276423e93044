// Package events provides the in-process subscription API: a dispatcher that
// fans typed domain events out to registered listeners.
package events

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/syntharb/syntharb/internal/domain"
)

// Listener receives every event emitted after registration. Listeners run
// synchronously on the emitting goroutine and must be fast; panics are
// caught and logged, never propagated to the emitting cycle.
type Listener func(domain.Event)

// Dispatcher is a concurrency-safe listener registry. The event set is the
// closed union in the domain package; consumers dispatch on concrete type.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[string]Listener
	logger    *slog.Logger
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		listeners: make(map[string]Listener),
		logger:    logger.With(slog.String("component", "event_dispatcher")),
	}
}

// Subscribe registers a listener under id, replacing any previous listener
// with the same id.
func (d *Dispatcher) Subscribe(id string, fn Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[id] = fn
}

// Unsubscribe removes the listener registered under id, if any.
func (d *Dispatcher) Unsubscribe(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.listeners, id)
}

// Subscribers returns the registered listener ids in sorted order.
func (d *Dispatcher) Subscribers() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]string, 0, len(d.listeners))
	for id := range d.listeners {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Emit delivers the event to every registered listener. A listener panic is
// isolated: it is logged and the remaining listeners still receive the event.
func (d *Dispatcher) Emit(ev domain.Event) {
	d.mu.RLock()
	ids := make([]string, 0, len(d.listeners))
	for id := range d.listeners {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	fns := make([]Listener, len(ids))
	for i, id := range ids {
		fns[i] = d.listeners[id]
	}
	d.mu.RUnlock()

	for i, fn := range fns {
		d.deliver(ids[i], fn, ev)
	}
}

func (d *Dispatcher) deliver(id string, fn Listener, ev domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("listener panicked",
				slog.String("listener", id),
				slog.String("event", string(ev.Kind())),
				slog.Any("panic", r),
			)
		}
	}()
	fn(ev)
}
