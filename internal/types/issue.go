package types

import (
	"fmt"
	"strings"
	"time"
)

// MaxTitleLength is the longest issue name the remote accepts.
const MaxTitleLength = 255

// Priority values accepted by the remote for issue payloads and filters.
var Priorities = []string{"urgent", "high", "medium", "low", "none"}

// IsValidPriority reports whether p is a known priority.
func IsValidPriority(p string) bool {
	for _, known := range Priorities {
		if p == known {
			return true
		}
	}
	return false
}

// InboxIssue is the inbox record as the remote returns it.
type InboxIssue struct {
	ID                   string                `json:"id"`
	Status               Status                `json:"status"`
	SnoozedTill          *time.Time            `json:"snoozed_till,omitempty"`
	DuplicateTo          *string               `json:"duplicate_to,omitempty"`
	Source               string                `json:"source,omitempty"`
	Issue                IssuePayload          `json:"issue"`
	CreatedBy            *string               `json:"created_by,omitempty"`
	DuplicateIssueDetail *DuplicateIssueDetail `json:"duplicate_issue_detail,omitempty"`
}

// Clone returns a deep copy of the record.
func (i InboxIssue) Clone() InboxIssue {
	out := i
	out.Issue = i.Issue.Clone()
	if i.SnoozedTill != nil {
		out.SnoozedTill = ptr(*i.SnoozedTill)
	}
	if i.DuplicateTo != nil {
		out.DuplicateTo = ptr(*i.DuplicateTo)
	}
	if i.CreatedBy != nil {
		out.CreatedBy = ptr(*i.CreatedBy)
	}
	if i.DuplicateIssueDetail != nil {
		out.DuplicateIssueDetail = ptr(*i.DuplicateIssueDetail)
	}
	return out
}

// DuplicateIssueDetail is the server's summary of the issue an inbox issue
// was marked a duplicate of.
type DuplicateIssueDetail struct {
	ID         string `json:"id"`
	SequenceID int    `json:"sequence_id"`
	Name       string `json:"name"`
}

// IssuePayload is the subset of the full issue aggregate carried alongside an
// inbox record.
type IssuePayload struct {
	ID              string     `json:"id"`
	SequenceID      int        `json:"sequence_id,omitempty"`
	ProjectID       string     `json:"project_id,omitempty"`
	Name            string     `json:"name"`
	DescriptionHTML string     `json:"description_html,omitempty"`
	Priority        string     `json:"priority,omitempty"`
	StateID         string     `json:"state_id,omitempty"`
	AssigneeIDs     []string   `json:"assignee_ids,omitempty"`
	LabelIDs        []string   `json:"label_ids,omitempty"`
	StartDate       string     `json:"start_date,omitempty"`
	TargetDate      string     `json:"target_date,omitempty"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// Clone returns a deep copy of the payload.
func (p IssuePayload) Clone() IssuePayload {
	out := p
	out.AssigneeIDs = cloneStrings(p.AssigneeIDs)
	out.LabelIDs = cloneStrings(p.LabelIDs)
	if p.CreatedAt != nil {
		out.CreatedAt = ptr(*p.CreatedAt)
	}
	if p.UpdatedAt != nil {
		out.UpdatedAt = ptr(*p.UpdatedAt)
	}
	return out
}

// InboxIssueCreate is the body of a create call.
type InboxIssueCreate struct {
	Source string       `json:"source,omitempty"`
	Issue  IssuePayload `json:"issue"`
}

// Validate checks the create request before it is sent.
func (c InboxIssueCreate) Validate() error {
	name := strings.TrimSpace(c.Issue.Name)
	if name == "" {
		return fmt.Errorf("title is required")
	}
	if len(name) > MaxTitleLength {
		return fmt.Errorf("title must be %d characters or less (got %d)", MaxTitleLength, len(name))
	}
	if c.Issue.Priority != "" && !IsValidPriority(c.Issue.Priority) {
		return fmt.Errorf("invalid priority: %q", c.Issue.Priority)
	}
	return nil
}

// StatusUpdate is the status-bearing patch sent to the remote update
// operation. Nil fields are left untouched by the server.
type StatusUpdate struct {
	Status      *Status    `json:"status,omitempty"`
	SnoozedTill *time.Time `json:"snoozed_till,omitempty"`
	DuplicateTo *string    `json:"duplicate_to,omitempty"`
}

// Validate enforces that dependent fields only travel with their status.
func (u StatusUpdate) Validate() error {
	if u.Status == nil {
		return fmt.Errorf("status is required")
	}
	if !u.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", u.Status)
	}
	if u.SnoozedTill != nil && *u.Status != StatusSnoozed {
		return fmt.Errorf("snoozed_till requires status %s (got %s)", StatusSnoozed, u.Status)
	}
	if u.DuplicateTo != nil {
		if *u.Status != StatusDuplicate {
			return fmt.Errorf("duplicate_to requires status %s (got %s)", StatusDuplicate, u.Status)
		}
		if strings.TrimSpace(*u.DuplicateTo) == "" {
			return fmt.Errorf("duplicate_to cannot be empty")
		}
	}
	return nil
}

// IssuePatch is a partial update of an IssuePayload. Only non-nil fields are
// applied and sent.
type IssuePatch struct {
	Name            *string   `json:"name,omitempty"`
	DescriptionHTML *string   `json:"description_html,omitempty"`
	Priority        *string   `json:"priority,omitempty"`
	StateID         *string   `json:"state_id,omitempty"`
	AssigneeIDs     *[]string `json:"assignee_ids,omitempty"`
	LabelIDs        *[]string `json:"label_ids,omitempty"`
	StartDate       *string   `json:"start_date,omitempty"`
	TargetDate      *string   `json:"target_date,omitempty"`
}

// Fields returns the JSON names of the fields the patch touches.
func (p IssuePatch) Fields() []string {
	var fields []string
	if p.Name != nil {
		fields = append(fields, "name")
	}
	if p.DescriptionHTML != nil {
		fields = append(fields, "description_html")
	}
	if p.Priority != nil {
		fields = append(fields, "priority")
	}
	if p.StateID != nil {
		fields = append(fields, "state_id")
	}
	if p.AssigneeIDs != nil {
		fields = append(fields, "assignee_ids")
	}
	if p.LabelIDs != nil {
		fields = append(fields, "label_ids")
	}
	if p.StartDate != nil {
		fields = append(fields, "start_date")
	}
	if p.TargetDate != nil {
		fields = append(fields, "target_date")
	}
	return fields
}

// IsEmpty reports whether the patch touches nothing.
func (p IssuePatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Validate checks field values before the patch is dispatched.
func (p IssuePatch) Validate() error {
	if p.IsEmpty() {
		return fmt.Errorf("patch has no fields")
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return fmt.Errorf("title cannot be empty")
		}
		if len(name) > MaxTitleLength {
			return fmt.Errorf("title must be %d characters or less (got %d)", MaxTitleLength, len(name))
		}
	}
	if p.Priority != nil && !IsValidPriority(*p.Priority) {
		return fmt.Errorf("invalid priority: %q", *p.Priority)
	}
	for _, d := range []*string{p.StartDate, p.TargetDate} {
		if d == nil || *d == "" {
			continue
		}
		if _, err := time.Parse(DateLayout, *d); err != nil {
			return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", *d)
		}
	}
	return nil
}

// Capture returns a patch holding the current values of every field p
// touches. Applying the result restores the payload to its pre-patch state.
func (p IssuePatch) Capture(payload IssuePayload) IssuePatch {
	var prev IssuePatch
	if p.Name != nil {
		prev.Name = ptr(payload.Name)
	}
	if p.DescriptionHTML != nil {
		prev.DescriptionHTML = ptr(payload.DescriptionHTML)
	}
	if p.Priority != nil {
		prev.Priority = ptr(payload.Priority)
	}
	if p.StateID != nil {
		prev.StateID = ptr(payload.StateID)
	}
	if p.AssigneeIDs != nil {
		prev.AssigneeIDs = ptr(cloneStrings(payload.AssigneeIDs))
	}
	if p.LabelIDs != nil {
		prev.LabelIDs = ptr(cloneStrings(payload.LabelIDs))
	}
	if p.StartDate != nil {
		prev.StartDate = ptr(payload.StartDate)
	}
	if p.TargetDate != nil {
		prev.TargetDate = ptr(payload.TargetDate)
	}
	return prev
}

// ApplyTo merges the patch into payload field by field.
func (p IssuePatch) ApplyTo(payload *IssuePayload) {
	if p.Name != nil {
		payload.Name = *p.Name
	}
	if p.DescriptionHTML != nil {
		payload.DescriptionHTML = *p.DescriptionHTML
	}
	if p.Priority != nil {
		payload.Priority = *p.Priority
	}
	if p.StateID != nil {
		payload.StateID = *p.StateID
	}
	if p.AssigneeIDs != nil {
		payload.AssigneeIDs = cloneStrings(*p.AssigneeIDs)
	}
	if p.LabelIDs != nil {
		payload.LabelIDs = cloneStrings(*p.LabelIDs)
	}
	if p.StartDate != nil {
		payload.StartDate = *p.StartDate
	}
	if p.TargetDate != nil {
		payload.TargetDate = *p.TargetDate
	}
}

// DateLayout is the calendar-date format used by payload dates and date filters.
const DateLayout = "2006-01-02"

func ptr[T any](v T) *T {
	return &v
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
