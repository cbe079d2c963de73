package query

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/steveyegge/inbox/internal/timeparsing"
	"github.com/steveyegge/inbox/internal/types"
)

func fixedBuilder() *Builder {
	return NewBuilder(timeparsing.FixedResolver(time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)))
}

func TestBuildFreshPendingFilter(t *testing.T) {
	filters := types.NewTabFilters(types.TabOpen)
	got := fixedBuilder().Build(filters, types.DefaultSorting(), DefaultPageSize, InitialCursor(DefaultPageSize))

	want := Params{
		"status":   "-2",
		"order_by": "-createdAt",
		"per_page": "10",
		"cursor":   "10:0:0",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Build() = %v, want %v", got, want)
	}
}

func TestBuildJoinsValues(t *testing.T) {
	filters := types.Filters{
		types.FilterStatus:   {"-1", "1", "2"},
		types.FilterLabels:   {"l1", "l2"},
		types.FilterPriority: {"high"},
		types.FilterAssignee: {},
	}
	got := fixedBuilder().Build(filters, types.Sorting{OrderBy: types.SortUpdatedAt, Direction: types.SortAsc}, 25, "25:2:0")

	if got["status"] != "-1,1,2" {
		t.Errorf("status = %q", got["status"])
	}
	if got["labels"] != "l1,l2" {
		t.Errorf("labels = %q", got["labels"])
	}
	if _, ok := got["assignee"]; ok {
		t.Error("empty dimension should be omitted")
	}
	if got[KeyOrderBy] != "updatedAt" {
		t.Errorf("order_by = %q", got[KeyOrderBy])
	}
	if got[KeyPerPage] != "25" || got[KeyCursor] != "25:2:0" {
		t.Errorf("paging = %q / %q", got[KeyPerPage], got[KeyCursor])
	}
}

func TestBuildResolvesDates(t *testing.T) {
	filters := types.Filters{
		types.FilterCreatedAt: {"today", "yesterday"},
		types.FilterUpdatedAt: {"last_7_days"},
	}
	got := fixedBuilder().Build(filters, types.Sorting{}, 10, "10:0:0")

	if want := "2025-01-15;after,2025-01-15;before,2025-01-14;after,2025-01-14;before"; got["created_at"] != want {
		t.Errorf("created_at = %q, want %q", got["created_at"], want)
	}
	if want := "2025-01-08;after,2025-01-15;before"; got["updated_at"] != want {
		t.Errorf("updated_at = %q, want %q", got["updated_at"], want)
	}
	if got[KeyOrderBy] != "-createdAt" {
		t.Errorf("partial sorting should fall back, got %q", got[KeyOrderBy])
	}
}

type stubResolver map[string]string

func (s stubResolver) Resolve(v string) (string, error) {
	if r, ok := s[v]; ok {
		return r, nil
	}
	return "", fmt.Errorf("unknown %q", v)
}

func TestBuildUsesInjectedResolver(t *testing.T) {
	b := NewBuilder(stubResolver{"q1": "2025-01-01;after,2025-03-31;before"})
	got := b.Build(types.Filters{types.FilterCreatedAt: {"q1", "raw"}}, types.DefaultSorting(), 10, "10:0:0")
	if want := "2025-01-01;after,2025-03-31;before,raw"; got["created_at"] != want {
		t.Errorf("created_at = %q, want %q", got["created_at"], want)
	}
}

func TestBuildDeterministic(t *testing.T) {
	b := fixedBuilder()
	filters := types.Filters{types.FilterStatus: {"-2"}, types.FilterCreatedAt: {"last_30_days"}}
	first := b.Build(filters, types.DefaultSorting(), 10, "10:0:0")
	for i := 0; i < 5; i++ {
		if got := b.Build(filters, types.DefaultSorting(), 10, "10:0:0"); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: %v != %v", i, got, first)
		}
	}
	if len(filters[types.FilterCreatedAt]) != 1 || filters[types.FilterCreatedAt][0] != "last_30_days" {
		t.Error("Build mutated its input")
	}
}

func TestParseCursor(t *testing.T) {
	c, err := ParseCursor("10:2:0")
	if err != nil {
		t.Fatalf("ParseCursor: %v", err)
	}
	if c.PageSize != 10 || c.PageIndex != 2 || c.Offset != 0 {
		t.Errorf("got %+v", c)
	}
	if c.Start() != 20 {
		t.Errorf("Start() = %d, want 20", c.Start())
	}
	if got := c.Next().String(); got != "10:3:0" {
		t.Errorf("Next() = %q", got)
	}
	for _, bad := range []string{"", "10:0", "a:0:0", "0:0:0", "10:-1:0"} {
		if _, err := ParseCursor(bad); err == nil {
			t.Errorf("ParseCursor(%q) expected error", bad)
		}
	}
}

func TestInitialCursor(t *testing.T) {
	if got := InitialCursor(10); got != "10:0:0" {
		t.Errorf("InitialCursor(10) = %q", got)
	}
}

func TestParamsValues(t *testing.T) {
	p := Params{"cursor": "10:0:0", "per_page": "10", "order_by": "-createdAt"}
	if got := p.Encode(); got != "cursor=10%3A0%3A0&order_by=-createdAt&per_page=10" {
		t.Errorf("Encode() = %q", got)
	}
}
