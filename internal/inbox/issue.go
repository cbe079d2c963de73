package inbox

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/steveyegge/inbox/internal/eventbus"
	"github.com/steveyegge/inbox/internal/types"
)

// Mutation names used in logs, events and metrics.
const (
	OpSetStatus     = "set_status"
	OpLinkDuplicate = "link_duplicate"
	OpSnooze        = "snooze"
	OpPatch         = "patch"
	OpCreate        = "create"
	OpDelete        = "delete"
)

// recordDeps is shared by every Issue a Store owns.
type recordDeps struct {
	scope    types.Scope
	svc      Service
	activity ActivityFetcher
	log      zerolog.Logger
	bus      *eventbus.Bus
	metrics  *storeMetrics
}

func (d *recordDeps) publish(ctx context.Context, ev *eventbus.Event) {
	if d.bus == nil {
		return
	}
	ev.Scope = d.scope.String()
	d.bus.Publish(ctx, ev)
}

// Issue owns one inbox record. Mutations apply locally before the remote
// call and restore the touched fields if the call fails. They never return
// errors; the bool result reports whether the remote accepted the change.
type Issue struct {
	mu   sync.RWMutex
	data types.InboxIssue
	deps *recordDeps
}

// NewIssue wraps data in a standalone record bound to svc. Records owned by a
// Store are created by the store itself.
func NewIssue(scope types.Scope, data types.InboxIssue, svc Service, activity ActivityFetcher, opts ...Option) *Issue {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	deps := &recordDeps{
		scope:    scope,
		svc:      svc,
		activity: activity,
		log:      cfg.log,
		bus:      cfg.bus,
		metrics:  newStoreMetrics(cfg.meter, scope.String()),
	}
	return newIssue(data, deps)
}

func newIssue(data types.InboxIssue, deps *recordDeps) *Issue {
	return &Issue{data: data.Clone(), deps: deps}
}

// ID is the backing issue id, the key the store indexes records by.
func (i *Issue) ID() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.data.Issue.ID
}

// InboxID is the id of the inbox entry itself.
func (i *Issue) InboxID() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.data.ID
}

func (i *Issue) Status() types.Status {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.data.Status
}

// Tab is the partition the record is currently visible in.
func (i *Issue) Tab() types.Tab {
	return i.Status().Tab()
}

func (i *Issue) SnoozedTill() *time.Time {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.data.SnoozedTill == nil {
		return nil
	}
	t := *i.data.SnoozedTill
	return &t
}

func (i *Issue) DuplicateTo() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.data.DuplicateTo == nil {
		return ""
	}
	return *i.data.DuplicateTo
}

func (i *Issue) DuplicateDetail() *types.DuplicateIssueDetail {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.data.DuplicateIssueDetail == nil {
		return nil
	}
	d := *i.data.DuplicateIssueDetail
	return &d
}

// Payload returns a copy of the embedded issue payload.
func (i *Issue) Payload() types.IssuePayload {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.data.Issue.Clone()
}

// Snapshot returns a deep copy of the whole record.
func (i *Issue) Snapshot() types.InboxIssue {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.data.Clone()
}

// refresh overwrites the record with a server copy in place.
func (i *Issue) refresh(data types.InboxIssue) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.data = data.Clone()
}

// SetStatus moves the record to status. Dependent fields are left alone.
func (i *Issue) SetStatus(ctx context.Context, status types.Status) bool {
	if !status.IsValid() {
		i.deps.log.Debug().Int("status", int(status)).Msg("ignoring invalid status")
		return false
	}

	i.mu.Lock()
	id := i.data.Issue.ID
	if id == "" {
		i.mu.Unlock()
		return false
	}
	prev := i.data.Status
	i.data.Status = status
	i.mu.Unlock()
	i.updated(ctx, OpSetStatus, "status")

	_, err := i.deps.svc.Update(ctx, i.deps.scope, id, types.StatusUpdate{Status: &status})
	if err != nil {
		i.mu.Lock()
		i.data.Status = prev
		i.mu.Unlock()
		i.rolledBack(ctx, OpSetStatus, id, err, "status")
		return false
	}
	return true
}

// LinkAsDuplicate marks the record a duplicate of targetID. Status and the
// duplicate reference change together; on success the reference and its
// summary are taken from the response.
func (i *Issue) LinkAsDuplicate(ctx context.Context, targetID string) bool {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return false
	}

	i.mu.Lock()
	id := i.data.Issue.ID
	if id == "" {
		i.mu.Unlock()
		return false
	}
	prevStatus := i.data.Status
	prevDup := i.data.DuplicateTo
	status := types.StatusDuplicate
	i.data.Status = status
	i.data.DuplicateTo = &targetID
	i.mu.Unlock()
	i.updated(ctx, OpLinkDuplicate, "status", "duplicate_to")

	resp, err := i.deps.svc.Update(ctx, i.deps.scope, id, types.StatusUpdate{
		Status:      &status,
		DuplicateTo: &targetID,
	})
	if err != nil {
		i.mu.Lock()
		i.data.Status = prevStatus
		i.data.DuplicateTo = prevDup
		i.mu.Unlock()
		i.rolledBack(ctx, OpLinkDuplicate, id, err, "status", "duplicate_to")
		return false
	}

	if resp != nil {
		reconciled := resp.Clone()
		i.mu.Lock()
		i.data.DuplicateTo = reconciled.DuplicateTo
		i.data.DuplicateIssueDetail = reconciled.DuplicateIssueDetail
		i.mu.Unlock()
		i.updated(ctx, OpLinkDuplicate, "duplicate_to", "duplicate_issue_detail")
	}
	return true
}

// SnoozeUntil snoozes the record until t.
func (i *Issue) SnoozeUntil(ctx context.Context, t time.Time) bool {
	if t.IsZero() {
		return false
	}

	i.mu.Lock()
	id := i.data.Issue.ID
	if id == "" {
		i.mu.Unlock()
		return false
	}
	prevStatus := i.data.Status
	prevTill := i.data.SnoozedTill
	status := types.StatusSnoozed
	i.data.Status = status
	i.data.SnoozedTill = &t
	i.mu.Unlock()
	i.updated(ctx, OpSnooze, "status", "snoozed_till")

	_, err := i.deps.svc.Update(ctx, i.deps.scope, id, types.StatusUpdate{
		Status:      &status,
		SnoozedTill: &t,
	})
	if err != nil {
		i.mu.Lock()
		i.data.Status = prevStatus
		i.data.SnoozedTill = prevTill
		i.mu.Unlock()
		i.rolledBack(ctx, OpSnooze, id, err, "status", "snoozed_till")
		return false
	}
	return true
}

// Patch merges the set fields of p into the payload and sends them. On
// success the activity history is refreshed; a failed refresh is logged and
// does not undo the patch.
func (i *Issue) Patch(ctx context.Context, p types.IssuePatch) bool {
	if err := p.Validate(); err != nil {
		i.deps.log.Warn().Err(err).Str("issue", i.ID()).Msg("rejected invalid patch")
		return false
	}
	fields := p.Fields()

	i.mu.Lock()
	id := i.data.Issue.ID
	if id == "" {
		i.mu.Unlock()
		return false
	}
	revert := p.Capture(i.data.Issue)
	p.ApplyTo(&i.data.Issue)
	i.mu.Unlock()
	i.updated(ctx, OpPatch, fields...)

	resp, err := i.deps.svc.UpdateIssue(ctx, i.deps.scope, id, p)
	if err != nil {
		i.mu.Lock()
		revert.ApplyTo(&i.data.Issue)
		i.mu.Unlock()
		i.rolledBack(ctx, OpPatch, id, err, fields...)
		return false
	}

	if resp != nil && resp.UpdatedAt != nil {
		updatedAt := *resp.UpdatedAt
		i.mu.Lock()
		i.data.Issue.UpdatedAt = &updatedAt
		i.mu.Unlock()
	}

	if i.deps.activity != nil {
		if err := i.deps.activity.FetchActivities(ctx, i.deps.scope, id); err != nil {
			i.deps.log.Warn().Err(err).Str("issue", id).Msg("activity refresh failed after patch")
		}
	}
	return true
}

func (i *Issue) updated(ctx context.Context, op string, fields ...string) {
	i.deps.publish(ctx, &eventbus.Event{
		Type:    eventbus.EventIssueUpdated,
		IssueID: i.ID(),
		Op:      op,
		Fields:  fields,
	})
}

func (i *Issue) rolledBack(ctx context.Context, op, id string, err error, fields ...string) {
	i.deps.log.Warn().Err(err).
		Str("issue", id).
		Str("op", op).
		Strs("fields", fields).
		Msg("remote update failed, local change reverted")
	i.deps.metrics.rollback(ctx, op)
	i.deps.publish(ctx, &eventbus.Event{
		Type:    eventbus.EventRolledBack,
		IssueID: id,
		Op:      op,
		Fields:  fields,
		Error:   err.Error(),
	})
}
