package types

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestIssuePatchCaptureAndRestore(t *testing.T) {
	payload := IssuePayload{
		ID:          "i1",
		Name:        "Original",
		Priority:    "low",
		AssigneeIDs: []string{"u1"},
		LabelIDs:    []string{"l1"},
	}
	before := payload.Clone()

	patch := IssuePatch{
		Name:        strPtr("Renamed"),
		AssigneeIDs: &[]string{"u2", "u3"},
	}
	revert := patch.Capture(payload)
	patch.ApplyTo(&payload)

	if payload.Name != "Renamed" || !reflect.DeepEqual(payload.AssigneeIDs, []string{"u2", "u3"}) {
		t.Fatalf("patch not applied: %+v", payload)
	}
	if payload.Priority != "low" || !reflect.DeepEqual(payload.LabelIDs, []string{"l1"}) {
		t.Errorf("untouched fields changed: %+v", payload)
	}

	revert.ApplyTo(&payload)
	if !reflect.DeepEqual(payload, before) {
		t.Errorf("after revert = %+v, want %+v", payload, before)
	}
	if got := revert.Fields(); !reflect.DeepEqual(got, []string{"name", "assignee_ids"}) {
		t.Errorf("revert fields = %v", got)
	}
}

func TestIssuePatchValidate(t *testing.T) {
	tests := []struct {
		name    string
		patch   IssuePatch
		wantErr string
	}{
		{"empty", IssuePatch{}, "no fields"},
		{"blank title", IssuePatch{Name: strPtr("  ")}, "title cannot be empty"},
		{"long title", IssuePatch{Name: strPtr(strings.Repeat("x", 256))}, "255 characters"},
		{"bad priority", IssuePatch{Priority: strPtr("p0")}, "invalid priority"},
		{"bad date", IssuePatch{TargetDate: strPtr("next week")}, "invalid date"},
		{"ok", IssuePatch{Priority: strPtr("high"), StartDate: strPtr("2026-01-02")}, ""},
		{"clear date", IssuePatch{StartDate: strPtr("")}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patch.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestStatusUpdateValidate(t *testing.T) {
	snoozed := StatusSnoozed
	dup := StatusDuplicate
	accepted := StatusAccepted
	bad := Status(7)
	until := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		update  StatusUpdate
		wantErr bool
	}{
		{"missing status", StatusUpdate{}, true},
		{"unknown status", StatusUpdate{Status: &bad}, true},
		{"plain accept", StatusUpdate{Status: &accepted}, false},
		{"snooze", StatusUpdate{Status: &snoozed, SnoozedTill: &until}, false},
		{"snooze date without snoozed status", StatusUpdate{Status: &accepted, SnoozedTill: &until}, true},
		{"duplicate", StatusUpdate{Status: &dup, DuplicateTo: strPtr("issue-42")}, false},
		{"duplicate target without status", StatusUpdate{Status: &accepted, DuplicateTo: strPtr("issue-42")}, true},
		{"blank duplicate target", StatusUpdate{Status: &dup, DuplicateTo: strPtr("")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.update.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInboxIssueCreateValidate(t *testing.T) {
	if err := (InboxIssueCreate{Issue: IssuePayload{Name: "Bug"}}).Validate(); err != nil {
		t.Errorf("valid create: %v", err)
	}
	if err := (InboxIssueCreate{}).Validate(); err == nil {
		t.Error("missing title should fail")
	}
	if err := (InboxIssueCreate{Issue: IssuePayload{Name: "Bug", Priority: "p1"}}).Validate(); err == nil {
		t.Error("bad priority should fail")
	}
}
