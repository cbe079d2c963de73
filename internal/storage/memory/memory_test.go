package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/inbox/internal/inbox"
	"github.com/steveyegge/inbox/internal/query"
	"github.com/steveyegge/inbox/internal/types"
)

var scope = types.Scope{WorkspaceSlug: "acme", ProjectID: "proj"}

func at(day int) *time.Time {
	t := time.Date(2025, 1, day, 9, 0, 0, 0, time.UTC)
	return &t
}

func seeded(t *testing.T) *Service {
	t.Helper()
	svc := New()
	svc.Seed(
		types.InboxIssue{ID: "in1", Status: types.StatusPending, Issue: types.IssuePayload{ID: "i1", Name: "one", Priority: "high", LabelIDs: []string{"bug"}, CreatedAt: at(1), UpdatedAt: at(5)}},
		types.InboxIssue{ID: "in2", Status: types.StatusSnoozed, Issue: types.IssuePayload{ID: "i2", Name: "two", Priority: "low", CreatedAt: at(2), UpdatedAt: at(3)}},
		types.InboxIssue{ID: "in3", Status: types.StatusAccepted, Issue: types.IssuePayload{ID: "i3", Name: "three", AssigneeIDs: []string{"u1"}, CreatedAt: at(3), UpdatedAt: at(4)}},
		types.InboxIssue{ID: "in4", Status: types.StatusPending, Issue: types.IssuePayload{ID: "i4", Name: "four", LabelIDs: []string{"bug", "ui"}, CreatedAt: at(4), UpdatedAt: at(1)}},
	)
	return svc
}

func ids(page *types.InboxIssuePage) []string {
	var out []string
	for _, r := range page.Results {
		out = append(out, r.Issue.ID)
	}
	return out
}

func TestListSortsAndPages(t *testing.T) {
	svc := seeded(t)
	ctx := context.Background()

	page, err := svc.List(ctx, scope, query.Params{"order_by": "-createdAt", "per_page": "3", "cursor": "3:0:0"})
	require.NoError(t, err)
	assert.Equal(t, []string{"i4", "i3", "i2"}, ids(page))
	assert.Equal(t, 4, page.TotalResults)
	assert.True(t, page.NextPageResults)
	assert.Equal(t, "3:1:0", page.NextCursor)
	assert.Equal(t, 2, page.TotalPages)

	page, err = svc.List(ctx, scope, query.Params{"order_by": "-createdAt", "per_page": "3", "cursor": page.NextCursor})
	require.NoError(t, err)
	assert.Equal(t, []string{"i1"}, ids(page))
	assert.False(t, page.NextPageResults)
	assert.Equal(t, "3:0:0", page.PrevCursor)

	page, err = svc.List(ctx, scope, query.Params{"order_by": "updatedAt", "per_page": "10", "cursor": "10:0:0"})
	require.NoError(t, err)
	assert.Equal(t, []string{"i4", "i2", "i3", "i1"}, ids(page))
}

func TestListFilters(t *testing.T) {
	svc := seeded(t)
	ctx := context.Background()
	base := query.Params{"per_page": "10", "cursor": "10:0:0", "order_by": "sequenceId"}
	with := func(k, v string) query.Params {
		p := query.Params{}
		for key, val := range base {
			p[key] = val
		}
		p[k] = v
		return p
	}

	tests := []struct {
		name  string
		key   string
		value string
		want  []string
	}{
		{"open statuses", "status", "-2,0", []string{"i1", "i2", "i4"}},
		{"closed statuses", "status", "-1,1,2", []string{"i3"}},
		{"priority none", "priority", "none", []string{"i3", "i4"}},
		{"labels any", "labels", "ui", []string{"i4"}},
		{"assignee", "assignee", "u1", []string{"i3"}},
		{"created range", "created_at", "2025-01-02;after,2025-01-03;before", []string{"i2", "i3"}},
		{"updated single day", "updated_at", "2025-01-05;after,2025-01-05;before", []string{"i1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.List(ctx, scope, with(tt.key, tt.value))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(page))
			assert.Equal(t, len(tt.want), page.TotalResults)
		})
	}

	_, err := svc.List(ctx, scope, with("created_at", "yesterday"))
	assert.Error(t, err)
	_, err = svc.List(ctx, scope, with("cursor", "bogus"))
	assert.Error(t, err)
}

func TestUpdateFillsDuplicateDetail(t *testing.T) {
	svc := seeded(t)
	dup := types.StatusDuplicate
	target := "i3"

	got, err := svc.Update(context.Background(), scope, "i1", types.StatusUpdate{Status: &dup, DuplicateTo: &target})
	require.NoError(t, err)
	require.NotNil(t, got.DuplicateIssueDetail)
	assert.Equal(t, "three", got.DuplicateIssueDetail.Name)
	assert.Equal(t, 3, got.DuplicateIssueDetail.SequenceID)
	assert.Equal(t, types.StatusDuplicate, got.Status)
}

func TestCreateAssignsIDs(t *testing.T) {
	svc := seeded(t)
	svc.SetClock(func() time.Time { return *at(20) })

	got, err := svc.Create(context.Background(), scope, types.InboxIssueCreate{Issue: types.IssuePayload{Name: "new"}})
	require.NoError(t, err)
	assert.NotEmpty(t, got.Issue.ID)
	assert.Equal(t, types.StatusPending, got.Status)
	assert.Equal(t, "proj", got.Issue.ProjectID)
	assert.Equal(t, 5, svc.Len())

	_, err = svc.Create(context.Background(), scope, types.InboxIssueCreate{})
	assert.Error(t, err)
}

func TestFailureInjection(t *testing.T) {
	svc := seeded(t)
	ctx := context.Background()
	boom := errors.New("boom")

	svc.FailNext(OpDestroy, boom)
	assert.ErrorIs(t, svc.Destroy(ctx, scope, "i1"), boom)
	require.NoError(t, svc.Destroy(ctx, scope, "i1"))
	assert.ErrorIs(t, svc.Destroy(ctx, scope, "i1"), inbox.ErrNotFound)
	assert.Equal(t, 3, svc.Calls(OpDestroy))

	svc.Fail(OpComments, boom)
	assert.ErrorIs(t, svc.FetchComments(ctx, scope, "i2"), boom)
	assert.ErrorIs(t, svc.FetchComments(ctx, scope, "i2"), boom)
	svc.Fail(OpComments, nil)
	assert.NoError(t, svc.FetchComments(ctx, scope, "i2"))
}
