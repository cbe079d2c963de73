// Package memory implements the inbox remote service in process, with
// failure injection for exercising rollback paths.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/steveyegge/inbox/internal/inbox"
	"github.com/steveyegge/inbox/internal/query"
	"github.com/steveyegge/inbox/internal/timeparsing"
	"github.com/steveyegge/inbox/internal/types"
)

// Operation names accepted by Fail, FailNext and Calls.
const (
	OpList        = "list"
	OpRetrieve    = "retrieve"
	OpCreate      = "create"
	OpUpdate      = "update"
	OpUpdateIssue = "update_issue"
	OpDestroy     = "destroy"
	OpReactions   = "reactions"
	OpActivities  = "activities"
	OpComments    = "comments"
)

// Service is a goroutine-safe in-memory inbox for one or more scopes.
type Service struct {
	mu       sync.Mutex
	issues   map[string]*types.InboxIssue
	order    []string
	seq      int
	now      func() time.Time
	fail     map[string]error
	failNext map[string]error
	calls    map[string]int
	params   []query.Params

	// ListHook runs at the start of every List call, outside the lock.
	// Tests use it to hold a response back.
	ListHook func(ctx context.Context, params query.Params)
}

var (
	_ inbox.Service     = (*Service)(nil)
	_ inbox.IssueDetail = (*Service)(nil)
)

// New creates an empty service.
func New() *Service {
	return &Service{
		issues:   make(map[string]*types.InboxIssue),
		now:      time.Now,
		fail:     make(map[string]error),
		failNext: make(map[string]error),
		calls:    make(map[string]int),
	}
}

// SetClock pins the time used for created/updated stamps.
func (s *Service) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Seed stores issues as-is, in order. Issues without an id get one.
func (s *Service) Seed(issues ...types.InboxIssue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, in := range issues {
		issue := in.Clone()
		s.assignIDsLocked(&issue)
		if _, ok := s.issues[issue.Issue.ID]; !ok {
			s.order = append(s.order, issue.Issue.ID)
		}
		s.issues[issue.Issue.ID] = &issue
	}
}

// Fail makes every call of op return err until cleared with a nil err.
func (s *Service) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

// FailNext makes only the next call of op return err.
func (s *Service) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[op] = err
}

// Calls reports how many times op has been invoked.
func (s *Service) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// ListParams returns the params of every List call so far.
func (s *Service) ListParams() []query.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]query.Params, len(s.params))
	copy(out, s.params)
	return out
}

// Get returns a copy of the stored issue.
func (s *Service) Get(issueID string) (types.InboxIssue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	issue, ok := s.issues[issueID]
	if !ok {
		return types.InboxIssue{}, false
	}
	return issue.Clone(), true
}

// Len is the number of stored issues.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.issues)
}

// enter counts the call and returns any injected failure. Caller holds s.mu.
func (s *Service) enterLocked(op string) error {
	s.calls[op]++
	if err, ok := s.failNext[op]; ok {
		delete(s.failNext, op)
		return err
	}
	return s.fail[op]
}

func (s *Service) assignIDsLocked(issue *types.InboxIssue) {
	if issue.Issue.ID == "" {
		for {
			s.seq++
			id := "issue-" + strconv.Itoa(s.seq)
			if _, taken := s.issues[id]; !taken {
				issue.Issue.ID = id
				break
			}
		}
	}
	if issue.ID == "" {
		issue.ID = "inbox-" + issue.Issue.ID
	}
	if issue.Issue.SequenceID == 0 {
		issue.Issue.SequenceID = len(s.order) + 1
	}
}

func (s *Service) List(ctx context.Context, scope types.Scope, params query.Params) (*types.InboxIssuePage, error) {
	if hook := s.ListHook; hook != nil {
		hook(ctx, params)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = append(s.params, params)
	if err := s.enterLocked(OpList); err != nil {
		return nil, err
	}

	cursor, err := query.ParseCursor(params[query.KeyCursor])
	if err != nil {
		return nil, err
	}
	if n, err := strconv.Atoi(params[query.KeyPerPage]); err == nil && n > 0 {
		cursor.PageSize = n
	}
	sorting, err := types.ParseSortToken(params[query.KeyOrderBy])
	if err != nil {
		return nil, err
	}
	match, err := newMatcher(params)
	if err != nil {
		return nil, err
	}

	var hits []*types.InboxIssue
	for _, id := range s.order {
		if issue := s.issues[id]; match(issue) {
			hits = append(hits, issue)
		}
	}
	sortIssues(hits, sorting)

	total := len(hits)
	start := cursor.Start()
	if start > total {
		start = total
	}
	end := start + cursor.PageSize
	if end > total {
		end = total
	}

	page := &types.InboxIssuePage{
		PaginationInfo: types.PaginationInfo{
			TotalResults:    total,
			NextCursor:      cursor.Next().String(),
			NextPageResults: end < total,
			PrevPageResults: cursor.PageIndex > 0,
			Count:           end - start,
			TotalPages:      (total + cursor.PageSize - 1) / cursor.PageSize,
		},
	}
	if cursor.PageIndex > 0 {
		page.PrevCursor = query.Cursor{PageSize: cursor.PageSize, PageIndex: cursor.PageIndex - 1, Offset: cursor.Offset}.String()
	}
	for _, issue := range hits[start:end] {
		page.Results = append(page.Results, issue.Clone())
	}
	return page, nil
}

func (s *Service) Retrieve(ctx context.Context, scope types.Scope, issueID string) (*types.InboxIssue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enterLocked(OpRetrieve); err != nil {
		return nil, err
	}
	issue, ok := s.issues[issueID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", issueID, inbox.ErrNotFound)
	}
	out := issue.Clone()
	return &out, nil
}

func (s *Service) Create(ctx context.Context, scope types.Scope, data types.InboxIssueCreate) (*types.InboxIssue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enterLocked(OpCreate); err != nil {
		return nil, err
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	issue := types.InboxIssue{
		Status: types.StatusPending,
		Source: data.Source,
		Issue:  data.Issue.Clone(),
	}
	issue.Issue.ID = ""
	issue.Issue.ProjectID = scope.ProjectID
	issue.Issue.CreatedAt = &now
	issue.Issue.UpdatedAt = &now
	if issue.Source == "" {
		issue.Source = "in-app"
	}
	s.assignIDsLocked(&issue)
	s.issues[issue.Issue.ID] = &issue
	s.order = append(s.order, issue.Issue.ID)
	out := issue.Clone()
	return &out, nil
}

func (s *Service) Update(ctx context.Context, scope types.Scope, issueID string, update types.StatusUpdate) (*types.InboxIssue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enterLocked(OpUpdate); err != nil {
		return nil, err
	}
	if err := update.Validate(); err != nil {
		return nil, err
	}
	issue, ok := s.issues[issueID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", issueID, inbox.ErrNotFound)
	}

	issue.Status = *update.Status
	if update.SnoozedTill != nil {
		t := *update.SnoozedTill
		issue.SnoozedTill = &t
	}
	if update.DuplicateTo != nil {
		target := *update.DuplicateTo
		issue.DuplicateTo = &target
		detail := &types.DuplicateIssueDetail{ID: target}
		if dup, ok := s.issues[target]; ok {
			detail.SequenceID = dup.Issue.SequenceID
			detail.Name = dup.Issue.Name
		}
		issue.DuplicateIssueDetail = detail
	}
	now := s.now().UTC()
	issue.Issue.UpdatedAt = &now

	out := issue.Clone()
	return &out, nil
}

func (s *Service) UpdateIssue(ctx context.Context, scope types.Scope, issueID string, patch types.IssuePatch) (*types.IssuePayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enterLocked(OpUpdateIssue); err != nil {
		return nil, err
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	issue, ok := s.issues[issueID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", issueID, inbox.ErrNotFound)
	}
	patch.ApplyTo(&issue.Issue)
	now := s.now().UTC()
	issue.Issue.UpdatedAt = &now

	out := issue.Issue.Clone()
	return &out, nil
}

func (s *Service) Destroy(ctx context.Context, scope types.Scope, issueID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enterLocked(OpDestroy); err != nil {
		return err
	}
	if _, ok := s.issues[issueID]; !ok {
		return fmt.Errorf("%s: %w", issueID, inbox.ErrNotFound)
	}
	delete(s.issues, issueID)
	for i, id := range s.order {
		if id == issueID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Service) FetchReactions(ctx context.Context, scope types.Scope, issueID string) error {
	return s.detail(OpReactions, issueID)
}

func (s *Service) FetchActivities(ctx context.Context, scope types.Scope, issueID string) error {
	return s.detail(OpActivities, issueID)
}

func (s *Service) FetchComments(ctx context.Context, scope types.Scope, issueID string) error {
	return s.detail(OpComments, issueID)
}

func (s *Service) detail(op, issueID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enterLocked(op); err != nil {
		return err
	}
	if _, ok := s.issues[issueID]; !ok {
		return fmt.Errorf("%s %s: %w", op, issueID, inbox.ErrNotFound)
	}
	return nil
}

// newMatcher compiles the filter params into a predicate.
func newMatcher(params query.Params) (func(*types.InboxIssue) bool, error) {
	var preds []func(*types.InboxIssue) bool

	if raw := params[string(types.FilterStatus)]; raw != "" {
		want := make(map[types.Status]bool)
		for _, v := range strings.Split(raw, ",") {
			st, err := types.ParseStatus(v)
			if err != nil {
				return nil, err
			}
			want[st] = true
		}
		preds = append(preds, func(i *types.InboxIssue) bool { return want[i.Status] })
	}
	if raw := params[string(types.FilterPriority)]; raw != "" {
		want := set(raw)
		preds = append(preds, func(i *types.InboxIssue) bool {
			p := i.Issue.Priority
			if p == "" {
				p = "none"
			}
			return want[p]
		})
	}
	if raw := params[string(types.FilterLabels)]; raw != "" {
		want := set(raw)
		preds = append(preds, func(i *types.InboxIssue) bool { return anyIn(i.Issue.LabelIDs, want) })
	}
	if raw := params[string(types.FilterAssignee)]; raw != "" {
		want := set(raw)
		preds = append(preds, func(i *types.InboxIssue) bool { return anyIn(i.Issue.AssigneeIDs, want) })
	}
	if raw := params[string(types.FilterCreatedBy)]; raw != "" {
		want := set(raw)
		preds = append(preds, func(i *types.InboxIssue) bool { return i.CreatedBy != nil && want[*i.CreatedBy] })
	}
	for _, key := range []types.FilterKey{types.FilterCreatedAt, types.FilterUpdatedAt} {
		raw := params[string(key)]
		if raw == "" {
			continue
		}
		after, before, err := parseRange(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		created := key == types.FilterCreatedAt
		preds = append(preds, func(i *types.InboxIssue) bool {
			t := i.Issue.UpdatedAt
			if created {
				t = i.Issue.CreatedAt
			}
			if t == nil {
				return false
			}
			day := t.UTC().Format(timeparsing.DateLayout)
			return (after == "" || day >= after) && (before == "" || day <= before)
		})
	}

	return func(i *types.InboxIssue) bool {
		for _, p := range preds {
			if !p(i) {
				return false
			}
		}
		return true
	}, nil
}

// parseRange reads "YYYY-MM-DD;after,YYYY-MM-DD;before" lists and returns the
// tightest bounds. Dates compare as strings.
func parseRange(raw string) (after, before string, err error) {
	for _, part := range strings.Split(raw, ",") {
		date, bound, ok := strings.Cut(part, ";")
		if !ok {
			return "", "", fmt.Errorf("invalid range %q", part)
		}
		if _, err := time.Parse(timeparsing.DateLayout, date); err != nil {
			return "", "", fmt.Errorf("invalid date %q", date)
		}
		switch bound {
		case "after":
			if date > after {
				after = date
			}
		case "before":
			if before == "" || date < before {
				before = date
			}
		default:
			return "", "", fmt.Errorf("invalid bound %q", bound)
		}
	}
	return after, before, nil
}

func sortIssues(issues []*types.InboxIssue, sorting types.Sorting) {
	less := func(a, b *types.InboxIssue) bool {
		switch sorting.OrderBy {
		case types.SortSequenceID:
			return a.Issue.SequenceID < b.Issue.SequenceID
		case types.SortUpdatedAt:
			return timeOf(a.Issue.UpdatedAt).Before(timeOf(b.Issue.UpdatedAt))
		default:
			return timeOf(a.Issue.CreatedAt).Before(timeOf(b.Issue.CreatedAt))
		}
	}
	sort.SliceStable(issues, func(i, j int) bool {
		if sorting.Direction == types.SortDesc {
			return less(issues[j], issues[i])
		}
		return less(issues[i], issues[j])
	})
}

func timeOf(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func set(csv string) map[string]bool {
	out := make(map[string]bool)
	for _, v := range strings.Split(csv, ",") {
		out[strings.TrimSpace(v)] = true
	}
	return out
}

func anyIn(values []string, want map[string]bool) bool {
	for _, v := range values {
		if want[v] {
			return true
		}
	}
	return false
}
