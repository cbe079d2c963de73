package inbox_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/steveyegge/inbox/internal/inbox"
	"github.com/steveyegge/inbox/internal/storage/memory"
	"github.com/steveyegge/inbox/internal/types"
)

// hookService runs hooks at the start of remote updates, while the
// optimistic change is applied but not yet confirmed.
type hookService struct {
	*memory.Service
	onUpdate      func()
	onUpdateIssue func()
}

func (p *hookService) Update(ctx context.Context, scope types.Scope, id string, u types.StatusUpdate) (*types.InboxIssue, error) {
	if p.onUpdate != nil {
		p.onUpdate()
	}
	return p.Service.Update(ctx, scope, id, u)
}

func (p *hookService) UpdateIssue(ctx context.Context, scope types.Scope, id string, patch types.IssuePatch) (*types.IssuePayload, error) {
	if p.onUpdateIssue != nil {
		p.onUpdateIssue()
	}
	return p.Service.UpdateIssue(ctx, scope, id, patch)
}

func strPtr(s string) *string { return &s }

func newRecord(t *testing.T, status types.Status) (*inbox.Issue, *hookService) {
	t.Helper()
	mem := memory.New()
	mem.Seed(
		types.InboxIssue{ID: "in-1", Status: status, Issue: types.IssuePayload{
			ID:          "issue-1",
			Name:        "Login broken",
			Priority:    "medium",
			AssigneeIDs: []string{"u1"},
			LabelIDs:    []string{"bug"},
		}},
		types.InboxIssue{ID: "in-42", Status: types.StatusAccepted, Issue: types.IssuePayload{ID: "issue-42", SequenceID: 42, Name: "Login fails on Safari"}},
	)
	svc := &hookService{Service: mem}
	data, ok := mem.Get("issue-1")
	require.True(t, ok)
	return inbox.NewIssue(scope, data, svc, mem), svc
}

func TestSetStatus(t *testing.T) {
	rec, svc := newRecord(t, types.StatusPending)
	var during types.Status
	svc.onUpdate = func() { during = rec.Status() }

	require.True(t, rec.SetStatus(context.Background(), types.StatusAccepted))
	assert.Equal(t, types.StatusAccepted, during, "change is visible before the remote answers")
	assert.Equal(t, types.StatusAccepted, rec.Status())
	stored, _ := svc.Get("issue-1")
	assert.Equal(t, types.StatusAccepted, stored.Status)
}

func TestSetStatusRollback(t *testing.T) {
	rec, svc := newRecord(t, types.StatusPending)
	svc.FailNext(memory.OpUpdate, errRemote)

	assert.False(t, rec.SetStatus(context.Background(), types.StatusAccepted))
	assert.Equal(t, types.StatusPending, rec.Status())
}

func TestSetStatusLeavesDependentFields(t *testing.T) {
	rec, _ := newRecord(t, types.StatusPending)
	ctx := context.Background()
	until := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	require.True(t, rec.SnoozeUntil(ctx, until))

	require.True(t, rec.SetStatus(ctx, types.StatusPending))
	require.NotNil(t, rec.SnoozedTill())
	assert.True(t, until.Equal(*rec.SnoozedTill()))
}

func TestMutationsWithoutBackingIDAreNoops(t *testing.T) {
	mem := memory.New()
	rec := inbox.NewIssue(scope, types.InboxIssue{ID: "draft", Status: types.StatusPending}, mem, mem)
	ctx := context.Background()

	assert.False(t, rec.SetStatus(ctx, types.StatusAccepted))
	assert.False(t, rec.LinkAsDuplicate(ctx, "issue-42"))
	assert.False(t, rec.SnoozeUntil(ctx, time.Now().Add(time.Hour)))
	assert.False(t, rec.Patch(ctx, types.IssuePatch{Name: strPtr("x")}))

	assert.Equal(t, types.StatusPending, rec.Status())
	assert.Empty(t, rec.DuplicateTo())
	assert.Nil(t, rec.SnoozedTill())
	assert.Equal(t, 0, mem.Calls(memory.OpUpdate))
	assert.Equal(t, 0, mem.Calls(memory.OpUpdateIssue))
}

func TestLinkAsDuplicate(t *testing.T) {
	for _, prior := range types.AllStatuses {
		t.Run(prior.String(), func(t *testing.T) {
			rec, svc := newRecord(t, prior)
			var duringStatus types.Status
			var duringDup string
			var duringDetail *types.DuplicateIssueDetail
			svc.onUpdate = func() {
				duringStatus = rec.Status()
				duringDup = rec.DuplicateTo()
				duringDetail = rec.DuplicateDetail()
			}

			require.True(t, rec.LinkAsDuplicate(context.Background(), "issue-42"))

			assert.Equal(t, types.StatusDuplicate, duringStatus)
			assert.Equal(t, "issue-42", duringDup)
			assert.Nil(t, duringDetail, "summary only arrives with the response")

			assert.Equal(t, types.StatusDuplicate, rec.Status())
			assert.Equal(t, "issue-42", rec.DuplicateTo())
			detail := rec.DuplicateDetail()
			require.NotNil(t, detail)
			assert.Equal(t, types.DuplicateIssueDetail{ID: "issue-42", SequenceID: 42, Name: "Login fails on Safari"}, *detail)
		})
	}
}

func TestLinkAsDuplicateRollback(t *testing.T) {
	rec, svc := newRecord(t, types.StatusPending)
	svc.FailNext(memory.OpUpdate, errRemote)

	assert.False(t, rec.LinkAsDuplicate(context.Background(), "issue-42"))
	assert.Equal(t, types.StatusPending, rec.Status())
	assert.Empty(t, rec.DuplicateTo())
	assert.Nil(t, rec.DuplicateDetail())
}

func TestSnoozeUntil(t *testing.T) {
	rec, svc := newRecord(t, types.StatusPending)
	until := time.Date(2030, 6, 1, 9, 0, 0, 0, time.UTC)

	require.True(t, rec.SnoozeUntil(context.Background(), until))
	assert.Equal(t, types.StatusSnoozed, rec.Status())
	assert.Equal(t, types.TabOpen, rec.Tab())
	require.NotNil(t, rec.SnoozedTill())
	assert.True(t, until.Equal(*rec.SnoozedTill()))

	stored, _ := svc.Get("issue-1")
	require.NotNil(t, stored.SnoozedTill)
	assert.True(t, until.Equal(*stored.SnoozedTill))
}

func TestSnoozeUntilRollback(t *testing.T) {
	rec, svc := newRecord(t, types.StatusRejected)
	svc.FailNext(memory.OpUpdate, errRemote)

	assert.False(t, rec.SnoozeUntil(context.Background(), time.Now().Add(24*time.Hour)))
	assert.Equal(t, types.StatusRejected, rec.Status())
	assert.Nil(t, rec.SnoozedTill())
}

func TestPatch(t *testing.T) {
	rec, svc := newRecord(t, types.StatusPending)
	var during types.IssuePayload
	svc.onUpdateIssue = func() { during = rec.Payload() }

	ok := rec.Patch(context.Background(), types.IssuePatch{
		Name:     strPtr("Login broken on Safari"),
		LabelIDs: &[]string{"bug", "safari"},
	})
	require.True(t, ok)

	assert.Equal(t, "Login broken on Safari", during.Name)
	got := rec.Payload()
	assert.Equal(t, "Login broken on Safari", got.Name)
	assert.Equal(t, []string{"bug", "safari"}, got.LabelIDs)
	assert.Equal(t, "medium", got.Priority, "untouched fields are kept")
	assert.Equal(t, []string{"u1"}, got.AssigneeIDs)
	assert.NotNil(t, got.UpdatedAt)
	assert.Equal(t, 1, svc.Calls(memory.OpActivities), "activity refreshed after success")
}

func TestPatchRollbackRestoresEveryTouchedField(t *testing.T) {
	rec, svc := newRecord(t, types.StatusPending)
	before := rec.Payload()
	svc.FailNext(memory.OpUpdateIssue, errRemote)

	ok := rec.Patch(context.Background(), types.IssuePatch{
		Name:        strPtr("changed"),
		Priority:    strPtr("urgent"),
		AssigneeIDs: &[]string{},
		TargetDate:  strPtr("2026-02-01"),
	})
	assert.False(t, ok)
	assert.Equal(t, before, rec.Payload())
	assert.Equal(t, 0, svc.Calls(memory.OpActivities), "no activity refresh after failure")
}

func TestPatchInvalidIsNotSent(t *testing.T) {
	rec, svc := newRecord(t, types.StatusPending)
	before := rec.Payload()

	assert.False(t, rec.Patch(context.Background(), types.IssuePatch{Priority: strPtr("p0")}))
	assert.False(t, rec.Patch(context.Background(), types.IssuePatch{}))
	assert.Equal(t, before, rec.Payload())
	assert.Equal(t, 0, svc.Calls(memory.OpUpdateIssue))
}

func TestPatchKeptWhenActivityRefreshFails(t *testing.T) {
	rec, svc := newRecord(t, types.StatusPending)
	svc.FailNext(memory.OpActivities, errRemote)

	assert.True(t, rec.Patch(context.Background(), types.IssuePatch{Name: strPtr("renamed")}))
	assert.Equal(t, "renamed", rec.Payload().Name)
}

func TestRollbackMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	mem := memory.New()
	mem.Seed(types.InboxIssue{Status: types.StatusPending, Issue: types.IssuePayload{ID: "issue-1", Name: "x"}})
	data, _ := mem.Get("issue-1")
	rec := inbox.NewIssue(scope, data, mem, mem, inbox.WithMeter(provider.Meter("test")))

	mem.Fail(memory.OpUpdate, errRemote)
	rec.SetStatus(context.Background(), types.StatusAccepted)
	rec.SnoozeUntil(context.Background(), time.Now().Add(time.Hour))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "inbox.rollbacks" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	assert.Equal(t, int64(2), total)
}
