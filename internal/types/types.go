// Package types defines core data structures for the inbox sync layer.
package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Scope identifies the project an inbox belongs to.
type Scope struct {
	WorkspaceSlug string `json:"workspace_slug"`
	ProjectID     string `json:"project_id"`
}

// Validate checks that both halves of the scope are set.
func (s Scope) Validate() error {
	if strings.TrimSpace(s.WorkspaceSlug) == "" {
		return fmt.Errorf("workspace slug is required")
	}
	if strings.TrimSpace(s.ProjectID) == "" {
		return fmt.Errorf("project id is required")
	}
	return nil
}

func (s Scope) String() string {
	return s.WorkspaceSlug + "/" + s.ProjectID
}

// Status is the triage state of an inbox issue. The numeric values are the
// codes used on the wire.
type Status int

// Inbox status constants
const (
	StatusPending   Status = -2
	StatusRejected  Status = -1
	StatusSnoozed   Status = 0
	StatusAccepted  Status = 1
	StatusDuplicate Status = 2
)

// AllStatuses lists every status in wire-code order.
var AllStatuses = []Status{StatusPending, StatusRejected, StatusSnoozed, StatusAccepted, StatusDuplicate}

// IsValid checks if the status value is one of the five known codes
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusRejected, StatusSnoozed, StatusAccepted, StatusDuplicate:
		return true
	}
	return false
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRejected:
		return "rejected"
	case StatusSnoozed:
		return "snoozed"
	case StatusAccepted:
		return "accepted"
	case StatusDuplicate:
		return "duplicate"
	default:
		return "status(" + strconv.Itoa(int(s)) + ")"
	}
}

// Code returns the wire code as a string, the form used in query parameters.
func (s Status) Code() string {
	return strconv.Itoa(int(s))
}

// Tab returns the view partition the status belongs to.
func (s Status) Tab() Tab {
	return TabForStatus(s)
}

// ParseStatus accepts a status name ("accepted", "declined") or a wire code ("1").
func ParseStatus(raw string) (Status, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "pending", "new", "triage":
		return StatusPending, nil
	case "rejected", "declined", "decline":
		return StatusRejected, nil
	case "snoozed", "snooze":
		return StatusSnoozed, nil
	case "accepted", "accept":
		return StatusAccepted, nil
	case "duplicate", "duplicated", "dup":
		return StatusDuplicate, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid status: %q", raw)
	}
	s := Status(n)
	if !s.IsValid() {
		return 0, fmt.Errorf("invalid status code: %d", n)
	}
	return s, nil
}

// Tab is a view partition over inbox issues. It is derived from status and is
// never stored on a record.
type Tab string

// Tab constants
const (
	TabOpen   Tab = "open"
	TabClosed Tab = "closed"
)

// IsValid checks if the tab is open or closed
func (t Tab) IsValid() bool {
	return t == TabOpen || t == TabClosed
}

// ParseTab converts user input to a Tab.
func ParseTab(raw string) (Tab, error) {
	t := Tab(strings.ToLower(strings.TrimSpace(raw)))
	if !t.IsValid() {
		return "", fmt.Errorf("invalid tab: %q (valid: open, closed)", raw)
	}
	return t, nil
}

// TabForStatus maps a status to its partition: pending and snoozed issues are
// open, everything else is closed.
func TabForStatus(s Status) Tab {
	switch s {
	case StatusPending, StatusSnoozed:
		return TabOpen
	default:
		return TabClosed
	}
}

// Contains reports whether an issue with the given status is visible in the tab.
func (t Tab) Contains(s Status) bool {
	return TabForStatus(s) == t
}

// DefaultStatuses returns the status filter applied when switching to the tab.
// Snoozed issues belong to the open tab but are not part of its default filter.
func (t Tab) DefaultStatuses() []Status {
	if t == TabClosed {
		return []Status{StatusRejected, StatusAccepted, StatusDuplicate}
	}
	return []Status{StatusPending}
}
