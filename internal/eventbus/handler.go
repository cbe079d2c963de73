package eventbus

import "context"

// Handler processes events on the bus. Handlers are called in priority order
// (lower priority value = called earlier) for matching event types.
type Handler interface {
	// ID returns a unique identifier for this handler.
	ID() string

	// Handles returns the event types this handler processes.
	Handles() []EventType

	// Priority determines call order. Lower values are called first.
	Priority() int

	// Handle processes a single event and may modify the aggregated result.
	// Returning an error logs a warning but does not stop the handler chain.
	Handle(ctx context.Context, event *Event, result *Result) error
}

// HandlerFunc adapts a function into a Handler.
type HandlerFunc struct {
	Name  string
	Types []EventType
	Order int
	Fn    func(ctx context.Context, event *Event) error
}

func (h *HandlerFunc) ID() string           { return h.Name }
func (h *HandlerFunc) Handles() []EventType { return h.Types }
func (h *HandlerFunc) Priority() int        { return h.Order }

func (h *HandlerFunc) Handle(ctx context.Context, event *Event, _ *Result) error {
	if h.Fn == nil {
		return nil
	}
	return h.Fn(ctx, event)
}
