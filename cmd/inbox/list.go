package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/inbox/internal/config"
	"github.com/steveyegge/inbox/internal/inbox"
	"github.com/steveyegge/inbox/internal/types"
	"github.com/steveyegge/inbox/internal/ui"
)

type listFlags struct {
	tab       string
	status    []string
	priority  []string
	labels    []string
	assignees []string
	createdBy []string
	createdAt []string
	updatedAt []string
	orderBy   string
	direction string
	all       bool
}

// listResult is the JSON/YAML shape of `inbox list`.
type listResult struct {
	Tab            types.Tab           `json:"tab" yaml:"tab"`
	FiltersApplied int                 `json:"filters_applied" yaml:"filters_applied"`
	OrderBy        string              `json:"order_by" yaml:"order_by"`
	TotalResults   int                 `json:"total_results" yaml:"total_results"`
	HasMore        bool                `json:"has_more" yaml:"has_more"`
	Filters        map[string][]string `json:"filters,omitempty" yaml:"filters,omitempty"`
	Results        []issueView         `json:"results" yaml:"results"`
}

func newListCmd(a *app) *cobra.Command {
	var f listFlags
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		GroupID: "triage",
		Short:   "List inbox issues in the open or closed tab",
		Long: `List inbox issues.

The open tab shows pending issues by default (snoozed issues are open but only
listed when asked for with --status snoozed). The closed tab shows accepted,
declined and duplicate issues.

Date filters accept today, yesterday, last_7_days, last_30_days, compact
durations (-2w, +3d), natural language ("last monday") or an explicit range
"2025-01-01;after,2025-01-31;before".`,
		Example: `  inbox list
  inbox list --tab closed --priority urgent,high
  inbox list --status snoozed --created-at last_7_days --all
  inbox list --order-by updatedAt --direction asc --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, a, f)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&f.tab, "tab", "", "Tab: open or closed (default: config 'inbox.default-tab')")
	fs.StringSliceVarP(&f.status, "status", "s", nil, "Status filter (pending, snoozed, accepted, declined, duplicate)")
	fs.StringSliceVarP(&f.priority, "priority", "p", nil, "Priority filter (urgent, high, medium, low, none)")
	fs.StringSliceVarP(&f.labels, "label", "l", nil, "Label id filter")
	fs.StringSliceVarP(&f.assignees, "assignee", "a", nil, "Assignee id filter")
	fs.StringSliceVar(&f.createdBy, "created-by", nil, "Creator id filter")
	fs.StringSliceVar(&f.createdAt, "created-at", nil, "Created date filter")
	fs.StringSliceVar(&f.updatedAt, "updated-at", nil, "Updated date filter")
	fs.StringVar(&f.orderBy, "order-by", "", "Sort field: createdAt, updatedAt or sequenceId")
	fs.StringVar(&f.direction, "direction", "", "Sort direction: asc or desc")
	fs.BoolVar(&f.all, "all", false, "Fetch every page instead of only the first")
	return cmd
}

// resolveTab picks the tab from --tab, else from the requested statuses when
// they all fall in one partition, else from config.
func resolveTab(f listFlags) (types.Tab, bool, error) {
	if f.tab != "" {
		tab, err := types.ParseTab(f.tab)
		return tab, true, err
	}
	var tab types.Tab
	for _, raw := range f.status {
		s, err := types.ParseStatus(raw)
		if err != nil {
			return "", false, err
		}
		if tab != "" && s.Tab() != tab {
			return "", false, nil
		}
		tab = s.Tab()
	}
	return tab, tab != "", nil
}

func buildFilters(tab types.Tab, f listFlags) (types.Filters, error) {
	filters := types.NewTabFilters(tab)
	dims := []struct {
		key    types.FilterKey
		values []string
	}{
		{types.FilterStatus, f.status},
		{types.FilterPriority, f.priority},
		{types.FilterLabels, f.labels},
		{types.FilterAssignee, f.assignees},
		{types.FilterCreatedBy, f.createdBy},
		{types.FilterCreatedAt, f.createdAt},
		{types.FilterUpdatedAt, f.updatedAt},
	}
	for _, d := range dims {
		if len(d.values) == 0 {
			continue
		}
		if err := filters.Set(d.key, d.values); err != nil {
			return nil, err
		}
	}
	return filters, nil
}

func buildSorting(f listFlags) (types.Sorting, bool, error) {
	if f.orderBy == "" && f.direction == "" {
		return types.Sorting{}, false, nil
	}
	var s types.Sorting
	if f.orderBy != "" {
		field, err := types.ParseSortField(f.orderBy)
		if err != nil {
			return s, false, err
		}
		s.OrderBy = field
	}
	if f.direction != "" {
		dir, err := types.ParseSortDirection(f.direction)
		if err != nil {
			return s, false, err
		}
		s.Direction = dir
	}
	return s, true, nil
}

func runList(cmd *cobra.Command, a *app, f listFlags) error {
	ctx := cmd.Context()

	tab, explicit, err := resolveTab(f)
	if err != nil {
		return err
	}
	if !explicit {
		tab = config.GetDefaultTab()
	}
	filters, err := buildFilters(tab, f)
	if err != nil {
		return err
	}
	opts := []inbox.Option{inbox.WithTab(tab), inbox.WithFilters(filters)}
	sorting, sorted, err := buildSorting(f)
	if err != nil {
		return err
	}
	if sorted {
		opts = append(opts, inbox.WithSorting(sorting))
	}

	store, err := a.newStore(opts...)
	if err != nil {
		return err
	}

	if err := store.FetchFirstPage(ctx, inbox.LoadingIdle); err != nil {
		return err
	}
	if f.all {
		if err := store.FetchAll(ctx); err != nil {
			return err
		}
	}

	info, _ := store.Pagination()
	res := listResult{
		Tab:            store.Tab(),
		FiltersApplied: store.AppliedFiltersCount(),
		OrderBy:        store.Sorting().Token(),
		TotalResults:   info.TotalResults,
		HasMore:        info.NextPageResults && store.Len() < info.TotalResults,
		Filters:        map[string][]string{},
		Results:        viewsOf(store.Issues()),
	}
	for _, key := range store.Filters().Keys() {
		res.Filters[string(key)] = store.Filters().Get(key)
	}
	if done, err := a.emit(res); done {
		return err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s  %s\n", ui.RenderTab(types.TabOpen, res.Tab == types.TabOpen), ui.RenderTab(types.TabClosed, res.Tab == types.TabClosed))
	if len(res.Results) == 0 {
		sb.WriteString(ui.RenderMuted("No inbox issues match.") + "\n")
	} else {
		sb.WriteString(renderTable(res.Results))
	}
	footer := fmt.Sprintf("%d of %d shown, %d filter(s) applied, ordered by %s", len(res.Results), res.TotalResults, res.FiltersApplied, res.OrderBy)
	if res.HasMore {
		footer += " (more with --all)"
	}
	sb.WriteString(ui.RenderMuted(footer) + "\n")
	return ui.ToPager(sb.String(), ui.PagerOptions{NoPager: a.noPager, Out: a.out})
}
