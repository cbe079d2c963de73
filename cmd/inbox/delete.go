package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/inbox/internal/ui"
)

// deleteResult is the JSON/YAML shape of `inbox delete`.
type deleteResult struct {
	Deleted string `json:"deleted" yaml:"deleted"`
	InboxID string `json:"inbox_id" yaml:"inbox_id"`
}

func newDeleteCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:     "delete <issue-id>",
		Aliases: []string{"rm"},
		GroupID: "issues",
		Short:   "Delete an inbox issue",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("refusing to delete %s without --force", args[0])
			}
			store, rec, err := a.loadIssue(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			inboxID := rec.InboxID()
			if !store.Delete(cmd.Context(), rec.ID()) {
				return a.rolledBack("delete", rec.ID())
			}
			if done, err := a.emit(deleteResult{Deleted: rec.ID(), InboxID: inboxID}); done {
				return err
			}
			a.printf("%s Deleted %s\n", ui.RenderPassIcon(), rec.ID())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Delete without further confirmation")
	return cmd
}
