package eventbus

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// LogHandler writes every event to a structured logger. Rollbacks and fetch
// failures are logged at warn, everything else at debug.
// Priority 10 (runs first).
type LogHandler struct {
	Log zerolog.Logger
}

func (h *LogHandler) ID() string           { return "log" }
func (h *LogHandler) Handles() []EventType { return AllEventTypes }
func (h *LogHandler) Priority() int        { return 10 }

func (h *LogHandler) Handle(_ context.Context, event *Event, _ *Result) error {
	e := h.Log.Debug()
	if event.Type == EventRolledBack || event.Type == EventFetchFailed {
		e = h.Log.Warn()
	}
	e = e.Str("event", string(event.Type))
	if event.Scope != "" {
		e = e.Str("scope", event.Scope)
	}
	if event.IssueID != "" {
		e = e.Str("issue", event.IssueID)
	}
	if event.Op != "" {
		e = e.Str("op", event.Op)
	}
	if len(event.Fields) > 0 {
		e = e.Strs("fields", event.Fields)
	}
	if event.Loading != "" {
		e = e.Str("loading", event.Loading)
	}
	if event.Error != "" {
		e = e.Str("error", event.Error)
	}
	e.Msg("inbox event")
	return nil
}

// Recorder keeps a copy of every event it sees.
// Priority 1000 (runs last).
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) ID() string           { return "recorder" }
func (r *Recorder) Handles() []EventType { return AllEventTypes }
func (r *Recorder) Priority() int        { return 1000 }

func (r *Recorder) Handle(_ context.Context, event *Event, _ *Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *event
	cp.Fields = append([]string(nil), event.Fields...)
	r.events = append(r.events, cp)
	return nil
}

// Events returns the recorded events in dispatch order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns the recorded events of one type.
func (r *Recorder) OfType(t EventType) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
