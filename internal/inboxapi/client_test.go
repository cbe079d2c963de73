package inboxapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/inbox/internal/query"
	"github.com/steveyegge/inbox/internal/types"
)

var testScope = types.Scope{WorkspaceSlug: "acme", ProjectID: "p1"}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "secret").WithMaxElapsed(2 * time.Second)
}

func TestListSendsParamsAndAuth(t *testing.T) {
	var gotPath, gotKey string
	var gotQuery map[string][]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get(APIKeyHeader)
		gotQuery = r.URL.Query()
		_, _ = io.WriteString(w, `{"total_results":3,"next_cursor":"10:1:0","next_page_results":false,
			"results":[{"id":"i1","status":-2,"issue":{"id":"x1","name":"Bug"}}]}`)
	})

	page, err := c.List(context.Background(), testScope, query.Params{
		"status":   "-2",
		"order_by": "-createdAt",
		"per_page": "10",
		"cursor":   "10:0:0",
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/workspaces/acme/projects/p1/inbox-issues/", gotPath)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, []string{"-2"}, gotQuery["status"])
	assert.Equal(t, []string{"10:0:0"}, gotQuery["cursor"])
	assert.Equal(t, 3, page.TotalResults)
	require.Len(t, page.Results, 1)
	assert.Equal(t, types.StatusPending, page.Results[0].Status)
	assert.Equal(t, "x1", page.Results[0].Issue.ID)
}

func TestUpdateIssueWrapsPatch(t *testing.T) {
	var body map[string]map[string]interface{}
	var method string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = io.WriteString(w, `{"id":"i1","status":1,"issue":{"id":"x1","name":"New","priority":"high"}}`)
	})

	name := "New"
	payload, err := c.UpdateIssue(context.Background(), testScope, "i1", types.IssuePatch{Name: &name})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPatch, method)
	assert.Equal(t, map[string]interface{}{"name": "New"}, body["issue"])
	assert.Equal(t, "high", payload.Priority)
}

func TestUpdateSendsStatus(t *testing.T) {
	var body map[string]interface{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/workspaces/acme/projects/p1/inbox-issues/i1/", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = io.WriteString(w, `{"id":"i1","status":2,"duplicate_to":"x9",
			"duplicate_issue_detail":{"id":"x9","sequence_id":9,"name":"Orig"},"issue":{"id":"x1"}}`)
	})

	status := types.StatusDuplicate
	target := "x9"
	got, err := c.Update(context.Background(), testScope, "i1", types.StatusUpdate{Status: &status, DuplicateTo: &target})
	require.NoError(t, err)

	assert.Equal(t, float64(2), body["status"])
	assert.Equal(t, "x9", body["duplicate_to"])
	require.NotNil(t, got.DuplicateIssueDetail)
	assert.Equal(t, 9, got.DuplicateIssueDetail.SequenceID)
}

func TestNotFoundIsPermanent(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"error":"gone"}`, http.StatusNotFound)
	})

	_, err := c.Retrieve(context.Background(), testScope, "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.Destroy(context.Background(), testScope, "i1"))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRetryAfterHonoured(t *testing.T) {
	var calls int32
	var first, second time.Time
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			first = time.Now()
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		second = time.Now()
		_, _ = io.WriteString(w, `{"id":"i1","issue":{"id":"x1"}}`)
	})
	c = c.WithMaxElapsed(5 * time.Second)

	_, err := c.Retrieve(context.Background(), testScope, "i1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, second.Sub(first), time.Second)
}

func TestZeroMaxElapsedDisablesRetry(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	c = c.WithMaxElapsed(0)

	err := c.Destroy(context.Background(), testScope, "i1")
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.Retryable())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestInvalidScopeRejected(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "")
	_, err := c.List(context.Background(), types.Scope{}, nil)
	require.Error(t, err)
}

func TestRetryAfterParsing(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{"-1", 0},
		{"3600", maxRetryAfter},
		{"garbage", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := retryAfter(tt.in); got != tt.want {
				t.Errorf("retryAfter(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDetailClientCachesAndCollapses(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/workspaces/acme/projects/p1/issues/x1/reactions/":
			atomic.AddInt32(&calls, 1)
			<-release
			_, _ = io.WriteString(w, `[{"id":"r1","reaction":"+1"}]`)
		case "/api/workspaces/acme/projects/p1/issues/x1/history/":
			_, _ = io.WriteString(w, `[{"id":"a1","verb":"updated","field":"name"}]`)
		case "/api/workspaces/acme/projects/p1/issues/x1/comments/":
			_, _ = io.WriteString(w, `[{"id":"c1","comment_html":"<p>hi</p>"}]`)
		default:
			http.NotFound(w, r)
		}
	})
	d := NewDetailClient(c)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- d.FetchReactions(context.Background(), testScope, "x1")
		}()
	}
	// Let both callers reach the group before the server answers.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	require.NoError(t, d.FetchActivities(context.Background(), testScope, "x1"))
	require.NoError(t, d.FetchComments(context.Background(), testScope, "x1"))

	detail, ok := d.Detail(testScope, "x1")
	require.True(t, ok)
	assert.Len(t, detail.Reactions, 1)
	assert.Equal(t, "name", detail.Activities[0].Field)
	assert.Equal(t, "<p>hi</p>", detail.Comments[0].CommentHTML)

	_, ok = d.Detail(testScope, "other")
	assert.False(t, ok)
}

func TestDetailClientReportsFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	d := NewDetailClient(c)
	err := d.FetchComments(context.Background(), testScope, "x1")
	require.Error(t, err)
	_, ok := d.Detail(testScope, "x1")
	assert.False(t, ok)
}
