package eventbus

import "time"

// EventType identifies a store change flowing through the bus.
type EventType string

const (
	// Collection events.
	EventLoadingChanged EventType = "LoadingChanged"
	EventPageLoaded     EventType = "PageLoaded"
	EventFetchFailed    EventType = "FetchFailed"
	EventFiltersChanged EventType = "FiltersChanged"
	EventTabChanged     EventType = "TabChanged"

	// Record events.
	EventIssueUpserted EventType = "IssueUpserted"
	EventIssueCreated  EventType = "IssueCreated"
	EventIssueDeleted  EventType = "IssueDeleted"
	EventIssueUpdated  EventType = "IssueUpdated"
	EventRolledBack    EventType = "RolledBack"
)

// AllEventTypes lists every event the store publishes.
var AllEventTypes = []EventType{
	EventLoadingChanged,
	EventPageLoaded,
	EventFetchFailed,
	EventFiltersChanged,
	EventTabChanged,
	EventIssueUpserted,
	EventIssueCreated,
	EventIssueDeleted,
	EventIssueUpdated,
	EventRolledBack,
}

// Event is a single change notification.
type Event struct {
	Type    EventType `json:"type"`
	Scope   string    `json:"scope,omitempty"`
	IssueID string    `json:"issue_id,omitempty"`

	// Op names the operation that produced a record event
	// (set_status, link_duplicate, snooze, patch, delete, create).
	Op string `json:"op,omitempty"`

	// Fields lists the record fields touched by an update or restored by a rollback.
	Fields []string `json:"fields,omitempty"`

	// Loading is the new loading state for LoadingChanged.
	Loading string `json:"loading,omitempty"`

	// Count carries the number of records on PageLoaded.
	Count int `json:"count,omitempty"`

	// Error is the failure message for FetchFailed and RolledBack.
	Error string `json:"error,omitempty"`

	At time.Time `json:"at"`
}

// IsRecordEvent returns true if the event concerns a single issue.
func (t EventType) IsRecordEvent() bool {
	switch t {
	case EventIssueUpserted, EventIssueCreated, EventIssueDeleted,
		EventIssueUpdated, EventRolledBack:
		return true
	}
	return false
}

// Result aggregates what handlers did with one event.
type Result struct {
	Handled  []string `json:"handled,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}
