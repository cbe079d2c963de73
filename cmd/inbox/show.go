package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/inbox/internal/inboxapi"
	"github.com/steveyegge/inbox/internal/ui"
)

// showResult is the JSON/YAML shape of `inbox show`.
type showResult struct {
	issueView  `yaml:",inline"`
	Reactions  []inboxapi.Reaction `json:"reactions,omitempty" yaml:"reactions,omitempty"`
	Activities []inboxapi.Activity `json:"activities,omitempty" yaml:"activities,omitempty"`
	Comments   []inboxapi.Comment  `json:"comments,omitempty" yaml:"comments,omitempty"`
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "show <issue-id>",
		GroupID: "issues",
		Short:   "Show one inbox issue with its reactions, history and comments",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, rec, err := a.loadIssue(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res := showResult{issueView: viewOf(rec)}
			if dc, ok := a.detail.(*inboxapi.DetailClient); ok {
				if d, found := dc.Detail(store.Scope(), rec.ID()); found {
					res.Reactions = d.Reactions
					res.Activities = d.Activities
					res.Comments = d.Comments
				}
			}
			if done, err := a.emit(res); done {
				return err
			}

			var sb strings.Builder
			sb.WriteString(renderDetail(res.issueView, min(ui.TerminalWidth(80), 100)))
			if len(res.Reactions) > 0 {
				counts := map[string]int{}
				var order []string
				for _, r := range res.Reactions {
					if counts[r.Reaction] == 0 {
						order = append(order, r.Reaction)
					}
					counts[r.Reaction]++
				}
				parts := make([]string, 0, len(order))
				for _, r := range order {
					parts = append(parts, fmt.Sprintf("%s %d", r, counts[r]))
				}
				fmt.Fprintf(&sb, "\nReactions: %s\n", strings.Join(parts, "  "))
			}
			if len(res.Activities) > 0 {
				fmt.Fprintf(&sb, "\n%s\n", ui.RenderCategory("History"))
				for _, act := range res.Activities {
					when := ""
					if act.CreatedAt != nil {
						when = act.CreatedAt.Local().Format("2006-01-02 15:04") + "  "
					}
					line := act.Verb
					if act.Field != "" {
						line = fmt.Sprintf("%s %s", act.Verb, act.Field)
						if act.NewValue != "" {
							line += " → " + act.NewValue
						}
					}
					fmt.Fprintf(&sb, "  %s%s\n", ui.RenderMuted(when), line)
				}
			}
			if len(res.Comments) > 0 {
				fmt.Fprintf(&sb, "\n%s\n", ui.RenderCategory(fmt.Sprintf("Comments (%d)", len(res.Comments))))
				for _, c := range res.Comments {
					fmt.Fprintf(&sb, "  %s\n", ui.TruncateSimple(ui.StripHTML(c.CommentHTML), 120))
				}
			}
			return ui.ToPager(sb.String(), ui.PagerOptions{NoPager: a.noPager, Out: a.out})
		},
	}
}
