// Package eventbus delivers store change notifications to registered
// handlers in priority order.
package eventbus

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Bus dispatches events to registered handlers synchronously.
type Bus struct {
	handlers []Handler
	mu       sync.RWMutex
	log      zerolog.Logger
}

// New creates a new event bus. Handler errors go to log.
func New(log zerolog.Logger) *Bus {
	return &Bus{log: log}
}

// Register adds a handler to the bus. Handlers are sorted by priority on
// each Dispatch call, so registration order does not matter.
func (b *Bus) Register(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Unregister removes the handler with the given ID.
func (b *Bus) Unregister(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.handlers[:0]
	for _, h := range b.handlers {
		if h.ID() != id {
			kept = append(kept, h)
		}
	}
	b.handlers = kept
}

// Subscribe registers fn for the given event types at priority 100 and
// returns a func that removes it.
func (b *Bus) Subscribe(id string, fn func(ctx context.Context, event *Event) error, types ...EventType) func() {
	if len(types) == 0 {
		types = AllEventTypes
	}
	b.Register(&HandlerFunc{Name: id, Types: types, Order: 100, Fn: fn})
	return func() { b.Unregister(id) }
}

// Dispatch sends an event to all registered handlers that handle its type.
// Handlers are called sequentially in priority order (lowest first).
// Handler errors are logged but do not stop the chain.
func (b *Bus) Dispatch(ctx context.Context, event *Event) (*Result, error) {
	if event == nil {
		return nil, fmt.Errorf("eventbus: nil event")
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	b.mu.RLock()
	matching := b.matchingHandlers(event.Type)
	b.mu.RUnlock()

	result := &Result{}

	for _, h := range matching {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("eventbus: context cancelled: %w", err)
		}

		if err := h.Handle(ctx, event, result); err != nil {
			b.log.Warn().Err(err).Str("handler", h.ID()).Str("event", string(event.Type)).Msg("handler failed")
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", h.ID(), err))
			continue
		}
		result.Handled = append(result.Handled, h.ID())
	}

	return result, nil
}

// Publish dispatches event and drops the result. A nil bus is a no-op, so
// publishers need not check whether notifications are wired.
func (b *Bus) Publish(ctx context.Context, event *Event) {
	if b == nil {
		return
	}
	if _, err := b.Dispatch(ctx, event); err != nil {
		b.log.Debug().Err(err).Str("event", string(event.Type)).Msg("dispatch aborted")
	}
}

// Handlers returns all registered handlers (for introspection/status reporting).
func (b *Bus) Handlers() []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Handler, len(b.handlers))
	copy(out, b.handlers)
	return out
}

// matchingHandlers returns handlers that handle the given event type, sorted
// by priority (lowest first). Must be called with at least a read lock held.
func (b *Bus) matchingHandlers(eventType EventType) []Handler {
	var matched []Handler
	for _, h := range b.handlers {
		for _, t := range h.Handles() {
			if t == eventType {
				matched = append(matched, h)
				break
			}
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority() < matched[j].Priority()
	})
	return matched
}
