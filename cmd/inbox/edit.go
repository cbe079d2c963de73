package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/inbox/internal/inbox"
	"github.com/steveyegge/inbox/internal/timeparsing"
	"github.com/steveyegge/inbox/internal/types"
)

func newEditCmd(a *app) *cobra.Command {
	var (
		title       string
		description string
		priority    string
		assignees   []string
		labels      []string
		state       string
		startDate   string
		targetDate  string
	)
	cmd := &cobra.Command{
		Use:     "edit <issue-id>",
		Aliases: []string{"update"},
		GroupID: "issues",
		Short:   "Edit the fields of an inbox issue",
		Long: `Edit an inbox issue. Only the flags given are sent.

Dates accept YYYY-MM-DD, compact durations (+2w) or natural language
("next friday"). Pass an empty string to clear a date.`,
		Example: `  inbox edit issue-4 --title "Login fails on Safari 17"
  inbox edit issue-4 --priority urgent --label bug,auth
  inbox edit issue-4 --target-date +2w`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var p types.IssuePatch
			if flags.Changed("title") {
				t := strings.TrimSpace(title)
				p.Name = &t
			}
			if flags.Changed("description") {
				d := textToHTML(description)
				p.DescriptionHTML = &d
			}
			if flags.Changed("priority") {
				pr := strings.ToLower(strings.TrimSpace(priority))
				p.Priority = &pr
			}
			if flags.Changed("state") {
				p.StateID = &state
			}
			if flags.Changed("assignee") {
				p.AssigneeIDs = &assignees
			}
			if flags.Changed("label") {
				p.LabelIDs = &labels
			}
			if flags.Changed("start-date") {
				d, err := patchDate(startDate, a)
				if err != nil {
					return fmt.Errorf("--start-date: %w", err)
				}
				p.StartDate = &d
			}
			if flags.Changed("target-date") {
				d, err := patchDate(targetDate, a)
				if err != nil {
					return fmt.Errorf("--target-date: %w", err)
				}
				p.TargetDate = &d
			}
			if p.IsEmpty() {
				return fmt.Errorf("nothing to change (see 'inbox edit --help')")
			}
			if err := p.Validate(); err != nil {
				return err
			}
			return a.mutate(cmd.Context(), "edited", args[0], func(rec *inbox.Issue) bool {
				return rec.Patch(cmd.Context(), p)
			})
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&title, "title", "t", "", "New title")
	fs.StringVarP(&description, "description", "d", "", "New description (plain text)")
	fs.StringVarP(&priority, "priority", "p", "", "New priority: urgent, high, medium, low, none")
	fs.StringSliceVarP(&assignees, "assignee", "a", nil, "Replace assignee ids")
	fs.StringSliceVarP(&labels, "label", "l", nil, "Replace label ids")
	fs.StringVar(&state, "state", "", "Workflow state id")
	fs.StringVar(&startDate, "start-date", "", "Start date")
	fs.StringVar(&targetDate, "target-date", "", "Target date")
	return cmd
}

// patchDate normalizes a date flag to YYYY-MM-DD. Empty clears the date.
func patchDate(raw string, a *app) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	t, err := timeparsing.ParseRelativeTime(raw, a.now())
	if err != nil {
		return "", err
	}
	return t.Format(types.DateLayout), nil
}
