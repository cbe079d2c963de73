// Package inbox keeps a local, filtered, sorted and paginated view of a
// project's inbox issues in step with the remote, applying edits
// optimistically and rolling them back when the remote refuses them.
package inbox

import (
	"context"

	"github.com/steveyegge/inbox/internal/query"
	"github.com/steveyegge/inbox/internal/types"
)

// Service is the remote source of truth for inbox issues.
type Service interface {
	List(ctx context.Context, scope types.Scope, params query.Params) (*types.InboxIssuePage, error)
	Retrieve(ctx context.Context, scope types.Scope, issueID string) (*types.InboxIssue, error)
	Create(ctx context.Context, scope types.Scope, data types.InboxIssueCreate) (*types.InboxIssue, error)

	// Update sends a status-bearing patch. The response is authoritative for
	// denormalized fields such as the duplicate summary.
	Update(ctx context.Context, scope types.Scope, issueID string, update types.StatusUpdate) (*types.InboxIssue, error)

	// UpdateIssue patches the embedded issue payload.
	UpdateIssue(ctx context.Context, scope types.Scope, issueID string, patch types.IssuePatch) (*types.IssuePayload, error)

	Destroy(ctx context.Context, scope types.Scope, issueID string) error
}

// ActivityFetcher refreshes an issue's activity history.
type ActivityFetcher interface {
	FetchActivities(ctx context.Context, scope types.Scope, issueID string) error
}

// IssueDetail refreshes the detail collections shown next to a single issue.
type IssueDetail interface {
	ActivityFetcher
	FetchReactions(ctx context.Context, scope types.Scope, issueID string) error
	FetchComments(ctx context.Context, scope types.Scope, issueID string) error
}
