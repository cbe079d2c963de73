package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/inbox/internal/inbox"
	"github.com/steveyegge/inbox/internal/timeparsing"
	"github.com/steveyegge/inbox/internal/types"
	"github.com/steveyegge/inbox/internal/ui"
)

// mutate loads issueID, applies fn and reports the outcome. fn returns false
// when the change was rolled back.
func (a *app) mutate(ctx context.Context, op, issueID string, fn func(rec *inbox.Issue) bool) error {
	_, rec, err := a.loadIssue(ctx, issueID)
	if err != nil {
		return err
	}
	if !fn(rec) {
		return a.rolledBack(op, issueID)
	}
	if done, err := a.emit(viewOf(rec)); done {
		return err
	}
	a.printf("%s %s %s (%s)\n", ui.RenderPassIcon(), op, rec.ID(), ui.RenderStatus(rec.Status()))
	return nil
}

func newStatusCmd(a *app, use, short, verb string, status types.Status) *cobra.Command {
	return &cobra.Command{
		Use:     use + " <issue-id>",
		GroupID: "triage",
		Short:   short,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutate(cmd.Context(), verb, args[0], func(rec *inbox.Issue) bool {
				return rec.SetStatus(cmd.Context(), status)
			})
		},
	}
}

func newAcceptCmd(a *app) *cobra.Command {
	return newStatusCmd(a, "accept", "Accept an inbox issue into the project", "accepted", types.StatusAccepted)
}

func newDeclineCmd(a *app) *cobra.Command {
	cmd := newStatusCmd(a, "decline", "Decline an inbox issue", "declined", types.StatusRejected)
	cmd.Aliases = []string{"reject"}
	return cmd
}

func newSnoozeCmd(a *app) *cobra.Command {
	var until string
	cmd := &cobra.Command{
		Use:     "snooze <issue-id>",
		GroupID: "triage",
		Short:   "Hide an inbox issue until a later time",
		Long: `Snooze an inbox issue. --until accepts a compact duration (+1w, 3d),
a date (2025-02-01), an RFC3339 timestamp or natural language ("next monday").
The time must be in the future.`,
		Example: `  inbox snooze issue-4 --until +1w
  inbox snooze issue-4 --until "next monday 9am"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := timeparsing.ParseSnoozeTime(until, a.now())
			if err != nil {
				return err
			}
			return a.mutate(cmd.Context(), "snoozed", args[0], func(rec *inbox.Issue) bool {
				return rec.SnoozeUntil(cmd.Context(), t)
			})
		},
	}
	cmd.Flags().StringVar(&until, "until", "", "When the issue should reappear (required)")
	_ = cmd.MarkFlagRequired("until")
	return cmd
}

func newDuplicateCmd(a *app) *cobra.Command {
	var of string
	cmd := &cobra.Command{
		Use:     "duplicate <issue-id>",
		Aliases: []string{"dup"},
		GroupID: "triage",
		Short:   "Mark an inbox issue as a duplicate of an existing issue",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if of == args[0] {
				return fmt.Errorf("an issue cannot duplicate itself")
			}
			return a.mutate(cmd.Context(), "marked duplicate", args[0], func(rec *inbox.Issue) bool {
				return rec.LinkAsDuplicate(cmd.Context(), of)
			})
		},
	}
	cmd.Flags().StringVar(&of, "of", "", "Id of the issue this one duplicates (required)")
	_ = cmd.MarkFlagRequired("of")
	return cmd
}
