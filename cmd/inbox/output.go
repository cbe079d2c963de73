package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/steveyegge/inbox/internal/inbox"
	"github.com/steveyegge/inbox/internal/types"
	"github.com/steveyegge/inbox/internal/ui"
)

// Output formats
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var validFormats = map[string]bool{formatTable: true, formatJSON: true, formatYAML: true}

// issueView is the printable form of one record.
type issueView struct {
	ID          string                      `json:"id" yaml:"id"`
	InboxID     string                      `json:"inbox_id" yaml:"inbox_id"`
	Sequence    int                         `json:"sequence_id,omitempty" yaml:"sequence_id,omitempty"`
	Name        string                      `json:"name" yaml:"name"`
	Status      string                      `json:"status" yaml:"status"`
	Priority    string                      `json:"priority,omitempty" yaml:"priority,omitempty"`
	Source      string                      `json:"source,omitempty" yaml:"source,omitempty"`
	SnoozedTill *time.Time                  `json:"snoozed_till,omitempty" yaml:"snoozed_till,omitempty"`
	DuplicateOf *types.DuplicateIssueDetail `json:"duplicate_of,omitempty" yaml:"duplicate_of,omitempty"`
	Labels      []string                    `json:"label_ids,omitempty" yaml:"label_ids,omitempty"`
	Assignees   []string                    `json:"assignee_ids,omitempty" yaml:"assignee_ids,omitempty"`
	Description string                      `json:"description_html,omitempty" yaml:"description_html,omitempty"`
	CreatedAt   *time.Time                  `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt   *time.Time                  `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

func viewOf(rec *inbox.Issue) issueView {
	snap := rec.Snapshot()
	v := issueView{
		ID:          snap.Issue.ID,
		InboxID:     snap.ID,
		Sequence:    snap.Issue.SequenceID,
		Name:        snap.Issue.Name,
		Status:      snap.Status.String(),
		Priority:    snap.Issue.Priority,
		Source:      snap.Source,
		SnoozedTill: snap.SnoozedTill,
		Labels:      snap.Issue.LabelIDs,
		Assignees:   snap.Issue.AssigneeIDs,
		Description: snap.Issue.DescriptionHTML,
		CreatedAt:   snap.Issue.CreatedAt,
		UpdatedAt:   snap.Issue.UpdatedAt,
	}
	switch {
	case snap.DuplicateIssueDetail != nil:
		v.DuplicateOf = snap.DuplicateIssueDetail
	case snap.DuplicateTo != nil && *snap.DuplicateTo != "":
		v.DuplicateOf = &types.DuplicateIssueDetail{ID: *snap.DuplicateTo}
	}
	return v
}

func viewsOf(recs []*inbox.Issue) []issueView {
	views := make([]issueView, 0, len(recs))
	for _, r := range recs {
		views = append(views, viewOf(r))
	}
	return views
}

// emit writes v as JSON or YAML. It reports false for table output so the
// caller renders its own table.
func (a *app) emit(v interface{}) (bool, error) {
	switch a.format {
	case formatJSON:
		return true, outputJSON(a.out, v)
	case formatYAML:
		return true, outputYAML(a.out, v)
	}
	return false, nil
}

// outputJSON writes pretty-printed JSON.
func outputJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("error encoding JSON: %w", err)
	}
	return nil
}

// outputJSONError writes an error object.
func outputJSONError(w io.Writer, err error) {
	_ = outputJSON(w, map[string]string{"error": err.Error()})
}

func outputYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("error encoding YAML: %w", err)
	}
	return enc.Close()
}

// renderTable formats records one per line.
func renderTable(views []issueView) string {
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
		ui.RenderHeader("ID"), ui.RenderHeader("STATUS"), ui.RenderHeader("PRIORITY"),
		ui.RenderHeader("CREATED"), ui.RenderHeader("TITLE"))
	for _, v := range views {
		status := v.Status
		if s, err := types.ParseStatus(v.Status); err == nil {
			status = ui.RenderStatus(s)
		}
		priority := v.Priority
		if priority == "" {
			priority = "none"
		}
		created := "-"
		if v.CreatedAt != nil {
			created = v.CreatedAt.Local().Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", v.ID, status, priority, created, ui.TruncateSimple(v.Name, 60))
	}
	_ = tw.Flush()
	return sb.String()
}

// renderDetail formats a single record.
func renderDetail(v issueView, width int) string {
	var sb strings.Builder
	title := v.Name
	if v.Sequence > 0 {
		title = fmt.Sprintf("#%d %s", v.Sequence, v.Name)
	}
	fmt.Fprintf(&sb, "%s\n", ui.RenderCategory(title))
	fmt.Fprintf(&sb, "%s\n", ui.RenderSeparator())

	status := v.Status
	if s, err := types.ParseStatus(v.Status); err == nil {
		status = ui.RenderStatus(s)
	}
	fmt.Fprintf(&sb, "ID:        %s (inbox %s)\n", v.ID, v.InboxID)
	fmt.Fprintf(&sb, "Status:    %s\n", status)
	if v.Priority != "" {
		fmt.Fprintf(&sb, "Priority:  %s\n", v.Priority)
	}
	if v.Source != "" {
		fmt.Fprintf(&sb, "Source:    %s\n", v.Source)
	}
	if v.SnoozedTill != nil {
		fmt.Fprintf(&sb, "Snoozed:   until %s\n", v.SnoozedTill.Local().Format("2006-01-02 15:04"))
	}
	if d := v.DuplicateOf; d != nil {
		if d.Name != "" {
			fmt.Fprintf(&sb, "Duplicate: of #%d %s (%s)\n", d.SequenceID, d.Name, d.ID)
		} else {
			fmt.Fprintf(&sb, "Duplicate: of %s\n", d.ID)
		}
	}
	if len(v.Labels) > 0 {
		fmt.Fprintf(&sb, "Labels:    %s\n", strings.Join(v.Labels, ", "))
	}
	if len(v.Assignees) > 0 {
		fmt.Fprintf(&sb, "Assignees: %s\n", strings.Join(v.Assignees, ", "))
	}
	if v.CreatedAt != nil {
		fmt.Fprintf(&sb, "Created:   %s\n", v.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	if desc := ui.StripHTML(v.Description); desc != "" {
		fmt.Fprintf(&sb, "\n%s\n", ui.WrapText(desc, width))
	}
	return sb.String()
}
