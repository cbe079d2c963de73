package inboxapi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/steveyegge/inbox/internal/inbox"
	"github.com/steveyegge/inbox/internal/types"
)

// Reaction is an emoji reaction on an issue.
type Reaction struct {
	ID       string `json:"id"`
	Reaction string `json:"reaction"`
	ActorID  string `json:"actor_id,omitempty"`
}

// Activity is one entry of an issue's history.
type Activity struct {
	ID        string     `json:"id"`
	Verb      string     `json:"verb,omitempty"`
	Field     string     `json:"field,omitempty"`
	OldValue  string     `json:"old_value,omitempty"`
	NewValue  string     `json:"new_value,omitempty"`
	ActorID   string     `json:"actor_id,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Comment is a comment on an issue.
type Comment struct {
	ID          string     `json:"id"`
	CommentHTML string     `json:"comment_html"`
	ActorID     string     `json:"actor_id,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// Detail holds the last fetched detail collections of one issue.
type Detail struct {
	Reactions  []Reaction
	Activities []Activity
	Comments   []Comment
}

// DetailClient fetches the collections shown next to an issue and keeps the
// latest result per issue. Concurrent fetches of the same collection for the
// same issue share one request.
type DetailClient struct {
	api   *Client
	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]*Detail
}

// NewDetailClient wraps api.
func NewDetailClient(api *Client) *DetailClient {
	return &DetailClient{api: api, cache: make(map[string]*Detail)}
}

func (d *DetailClient) entry(key string) *Detail {
	e, ok := d.cache[key]
	if !ok {
		e = &Detail{}
		d.cache[key] = e
	}
	return e
}

// Detail returns a copy of what has been fetched for issueID.
func (d *DetailClient) Detail(scope types.Scope, issueID string) (Detail, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.cache[scope.String()+"/"+issueID]
	if !ok {
		return Detail{}, false
	}
	return Detail{
		Reactions:  append([]Reaction(nil), e.Reactions...),
		Activities: append([]Activity(nil), e.Activities...),
		Comments:   append([]Comment(nil), e.Comments...),
	}, true
}

// fetch runs one collection request through the singleflight group.
func fetch[T any](ctx context.Context, d *DetailClient, scope types.Scope, issueID, sub string, store func(*Detail, []T)) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	key := scope.String() + "/" + issueID
	_, err, _ := d.group.Do(key+"/"+sub, func() (interface{}, error) {
		var items []T
		if err := d.api.getJSON(ctx, issuePath(scope, issueID, sub), nil, &items); err != nil {
			return nil, fmt.Errorf("failed to fetch %s for %s: %w", sub, issueID, err)
		}
		d.mu.Lock()
		store(d.entry(key), items)
		d.mu.Unlock()
		return nil, nil
	})
	return err
}

// FetchReactions refreshes the reactions of issueID.
func (d *DetailClient) FetchReactions(ctx context.Context, scope types.Scope, issueID string) error {
	return fetch(ctx, d, scope, issueID, "reactions", func(e *Detail, items []Reaction) { e.Reactions = items })
}

// FetchActivities refreshes the history of issueID.
func (d *DetailClient) FetchActivities(ctx context.Context, scope types.Scope, issueID string) error {
	return fetch(ctx, d, scope, issueID, "history", func(e *Detail, items []Activity) { e.Activities = items })
}

// FetchComments refreshes the comments of issueID.
func (d *DetailClient) FetchComments(ctx context.Context, scope types.Scope, issueID string) error {
	return fetch(ctx, d, scope, issueID, "comments", func(e *Detail, items []Comment) { e.Comments = items })
}

var _ inbox.IssueDetail = (*DetailClient)(nil)
