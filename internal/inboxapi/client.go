// Package inboxapi is the HTTP client for the workspace inbox REST API. It
// implements inbox.Service and, through DetailClient, inbox.IssueDetail.
package inboxapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/steveyegge/inbox/internal/inbox"
	"github.com/steveyegge/inbox/internal/query"
	"github.com/steveyegge/inbox/internal/telemetry"
	"github.com/steveyegge/inbox/internal/types"
)

// API configuration constants.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMaxElapsed = 30 * time.Second
	APIKeyHeader      = "X-API-Key"
	tracerName        = "github.com/steveyegge/inbox/inboxapi"
	maxResponseSize   = 50 * 1024 * 1024
	maxRetryAfter     = 60 * time.Second
)

// ErrNotFound is returned (wrapped in *APIError) for 404 responses.
var ErrNotFound = inbox.ErrNotFound

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Method     string
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, body)
}

// Is reports 404 responses as ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Retryable reports whether the status is worth another attempt.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client talks to the inbox REST API.
type Client struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client
	// MaxElapsed bounds the total time spent retrying one request.
	MaxElapsed time.Duration
	Log        zerolog.Logger

	tracer trace.Tracer
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL, token string) *Client {
	return &Client{
		Token:      token,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		MaxElapsed: DefaultMaxElapsed,
		Log:        zerolog.Nop(),
		tracer:     telemetry.Tracer(tracerName),
	}
}

func (c *Client) clone() *Client {
	cp := *c
	return &cp
}

// WithHTTPClient returns a new client with a custom HTTP client.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	cp := c.clone()
	cp.HTTPClient = httpClient
	return cp
}

// WithBaseURL returns a new client with a custom base URL (for testing).
func (c *Client) WithBaseURL(baseURL string) *Client {
	cp := c.clone()
	cp.BaseURL = strings.TrimRight(baseURL, "/")
	return cp
}

// WithMaxElapsed returns a new client with a different retry budget. Zero
// disables retries.
func (c *Client) WithMaxElapsed(d time.Duration) *Client {
	cp := c.clone()
	cp.MaxElapsed = d
	return cp
}

// WithLogger returns a new client that logs through log.
func (c *Client) WithLogger(log zerolog.Logger) *Client {
	cp := c.clone()
	cp.Log = log
	return cp
}

func projectPath(scope types.Scope) string {
	return "/api/workspaces/" + url.PathEscape(scope.WorkspaceSlug) +
		"/projects/" + url.PathEscape(scope.ProjectID)
}

func inboxPath(scope types.Scope, issueID string) string {
	p := projectPath(scope) + "/inbox-issues/"
	if issueID != "" {
		p += url.PathEscape(issueID) + "/"
	}
	return p
}

func issuePath(scope types.Scope, issueID, sub string) string {
	return projectPath(scope) + "/issues/" + url.PathEscape(issueID) + "/" + sub + "/"
}

// buildURL constructs a full API URL.
func (c *Client) buildURL(path string, params query.Params) string {
	u := c.BaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	if c.MaxElapsed <= 0 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	// BackOff implementations are stateful; always build a fresh one.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxElapsedTime = c.MaxElapsed
	return backoff.WithContext(bo, ctx)
}

// doRequest performs an HTTP request with authentication and retries
// transport errors, 429 and 5xx responses. Other 4xx responses fail at once.
func (c *Client) doRequest(ctx context.Context, method, urlStr string, body interface{}) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	ctx, span := c.tracer.Start(ctx, "inboxapi."+strings.ToLower(method),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", urlStr),
		),
	)
	defer span.End()

	var respBody []byte
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, urlStr, reqBody)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		if c.Token != "" {
			req.Header.Set(APIKeyHeader, c.Token)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			c.Log.Debug().Err(err).Int("attempt", attempt).Str("url", urlStr).Msg("request failed")
			return fmt.Errorf("request failed: %w", err)
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			respBody = data
			return nil
		}

		apiErr := &APIError{StatusCode: resp.StatusCode, Method: method, URL: urlStr, Body: string(data)}
		if !apiErr.Retryable() {
			return backoff.Permanent(apiErr)
		}
		c.Log.Debug().Int("status", resp.StatusCode).Int("attempt", attempt).Str("url", urlStr).Msg("retryable response")
		if wait := retryAfter(resp.Header.Get("Retry-After")); wait > 0 {
			select {
			case <-ctx.Done():
				return backoff.Permanent(ctx.Err())
			case <-time.After(wait):
			}
		}
		return apiErr
	}, c.newBackOff(ctx))

	span.SetAttributes(attribute.Int("inboxapi.attempts", attempt))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return respBody, nil
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date.
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	var d time.Duration
	if seconds, err := strconv.Atoi(v); err == nil {
		d = time.Duration(seconds) * time.Second
	} else if at, err := http.ParseTime(v); err == nil {
		d = time.Until(at)
	}
	if d < 0 {
		return 0
	}
	if d > maxRetryAfter {
		return maxRetryAfter
	}
	return d
}

func (c *Client) getJSON(ctx context.Context, path string, params query.Params, out interface{}) error {
	return c.sendJSON(ctx, http.MethodGet, c.buildURL(path, params), nil, out)
}

func (c *Client) sendJSON(ctx context.Context, method, urlStr string, body, out interface{}) error {
	data, err := c.doRequest(ctx, method, urlStr, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", method, err)
	}
	return nil
}

// List fetches one page of inbox issues.
func (c *Client) List(ctx context.Context, scope types.Scope, params query.Params) (*types.InboxIssuePage, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var page types.InboxIssuePage
	if err := c.getJSON(ctx, inboxPath(scope, ""), params, &page); err != nil {
		return nil, fmt.Errorf("failed to list inbox issues: %w", err)
	}
	return &page, nil
}

// Retrieve fetches a single inbox issue.
func (c *Client) Retrieve(ctx context.Context, scope types.Scope, issueID string) (*types.InboxIssue, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var issue types.InboxIssue
	if err := c.getJSON(ctx, inboxPath(scope, issueID), nil, &issue); err != nil {
		return nil, fmt.Errorf("failed to retrieve inbox issue %s: %w", issueID, err)
	}
	return &issue, nil
}

// Create submits a new inbox issue.
func (c *Client) Create(ctx context.Context, scope types.Scope, data types.InboxIssueCreate) (*types.InboxIssue, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var issue types.InboxIssue
	if err := c.sendJSON(ctx, http.MethodPost, c.buildURL(inboxPath(scope, ""), nil), data, &issue); err != nil {
		return nil, fmt.Errorf("failed to create inbox issue: %w", err)
	}
	return &issue, nil
}

// Update patches the inbox-level fields (status, snooze, duplicate link).
func (c *Client) Update(ctx context.Context, scope types.Scope, issueID string, update types.StatusUpdate) (*types.InboxIssue, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var issue types.InboxIssue
	if err := c.sendJSON(ctx, http.MethodPatch, c.buildURL(inboxPath(scope, issueID), nil), update, &issue); err != nil {
		return nil, fmt.Errorf("failed to update inbox issue %s: %w", issueID, err)
	}
	return &issue, nil
}

// UpdateIssue patches the embedded issue. The remote answers with the full
// inbox issue; only its payload is returned.
func (c *Client) UpdateIssue(ctx context.Context, scope types.Scope, issueID string, patch types.IssuePatch) (*types.IssuePayload, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	body := struct {
		Issue types.IssuePatch `json:"issue"`
	}{Issue: patch}
	var issue types.InboxIssue
	if err := c.sendJSON(ctx, http.MethodPatch, c.buildURL(inboxPath(scope, issueID), nil), body, &issue); err != nil {
		return nil, fmt.Errorf("failed to update issue %s: %w", issueID, err)
	}
	return &issue.Issue, nil
}

// Destroy deletes an inbox issue.
func (c *Client) Destroy(ctx context.Context, scope types.Scope, issueID string) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if _, err := c.doRequest(ctx, http.MethodDelete, c.buildURL(inboxPath(scope, issueID), nil), nil); err != nil {
		return fmt.Errorf("failed to delete inbox issue %s: %w", issueID, err)
	}
	return nil
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

var _ inbox.Service = (*Client)(nil)
