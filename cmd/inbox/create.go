package main

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/steveyegge/inbox/internal/types"
	"github.com/steveyegge/inbox/internal/ui"
)

type createFlags struct {
	title       string
	description string
	priority    string
	labels      []string
	assignees   []string
	source      string
	interactive bool
}

func newCreateCmd(a *app) *cobra.Command {
	var f createFlags
	cmd := &cobra.Command{
		Use:     "create",
		Aliases: []string{"new"},
		GroupID: "issues",
		Short:   "Submit a new issue to the inbox",
		Long: `Submit a new issue to the project inbox. New issues start as pending.

Without --title on an interactive terminal a form is shown instead.`,
		Example: `  inbox create --title "Login fails on Safari" --priority high
  inbox create`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.interactive || (f.title == "" && ui.IsInputTerminal() && ui.IsTerminal()) {
				if err := runCreateForm(&f); err != nil {
					return err
				}
			}
			data := createPayload(f)
			if err := data.Validate(); err != nil {
				return err
			}

			store, err := a.newStore()
			if err != nil {
				return err
			}
			rec := store.Create(cmd.Context(), data)
			if rec == nil {
				return fmt.Errorf("failed to create inbox issue (see log for details)")
			}
			if done, err := a.emit(viewOf(rec)); done {
				return err
			}
			a.printf("%s Created inbox issue %s: %s\n", ui.RenderPassIcon(), rec.ID(), rec.Payload().Name)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&f.title, "title", "t", "", "Issue title")
	fs.StringVarP(&f.description, "description", "d", "", "Issue description (plain text)")
	fs.StringVarP(&f.priority, "priority", "p", "none", "Priority: urgent, high, medium, low, none")
	fs.StringSliceVarP(&f.labels, "label", "l", nil, "Label ids")
	fs.StringSliceVarP(&f.assignees, "assignee", "a", nil, "Assignee ids")
	fs.StringVar(&f.source, "source", "cli", "Source recorded on the inbox issue")
	fs.BoolVarP(&f.interactive, "interactive", "i", false, "Use the interactive form")
	return cmd
}

// textToHTML wraps plain text paragraphs in <p> tags.
func textToHTML(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var sb strings.Builder
	for _, para := range strings.Split(s, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		lines := strings.Split(para, "\n")
		for i, l := range lines {
			lines[i] = html.EscapeString(strings.TrimSpace(l))
		}
		sb.WriteString("<p>" + strings.Join(lines, "<br/>") + "</p>")
	}
	return sb.String()
}

func createPayload(f createFlags) types.InboxIssueCreate {
	return types.InboxIssueCreate{
		Source: f.source,
		Issue: types.IssuePayload{
			Name:            strings.TrimSpace(f.title),
			DescriptionHTML: textToHTML(f.description),
			Priority:        strings.ToLower(strings.TrimSpace(f.priority)),
			LabelIDs:        f.labels,
			AssigneeIDs:     f.assignees,
		},
	}
}

func runCreateForm(f *createFlags) error {
	labelsInput := strings.Join(f.labels, ", ")
	assigneesInput := strings.Join(f.assignees, ", ")

	priorityOptions := make([]huh.Option[string], 0, len(types.Priorities))
	for _, p := range types.Priorities {
		label := strings.ToUpper(p[:1]) + p[1:]
		if p == "none" {
			label += " (default)"
		}
		priorityOptions = append(priorityOptions, huh.NewOption(label, p))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Description("Brief summary of the issue (required)").
				Placeholder("e.g., Login fails on Safari").
				Value(&f.title).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("title is required")
					}
					if len(s) > types.MaxTitleLength {
						return fmt.Errorf("title must be %d characters or less", types.MaxTitleLength)
					}
					return nil
				}),

			huh.NewText().
				Title("Description").
				Description("What happened and what did you expect?").
				CharLimit(5000).
				Value(&f.description),

			huh.NewSelect[string]().
				Title("Priority").
				Options(priorityOptions...).
				Value(&f.priority),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Labels").
				Description("Comma-separated label ids (optional)").
				Value(&labelsInput),

			huh.NewInput().
				Title("Assignees").
				Description("Comma-separated member ids (optional)").
				Value(&assigneesInput),
		),
	).WithTheme(huh.ThemeDracula())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errors.New("create cancelled")
		}
		return fmt.Errorf("form error: %w", err)
	}

	f.labels = splitCSV(labelsInput)
	f.assignees = splitCSV(assigneesInput)
	return nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
