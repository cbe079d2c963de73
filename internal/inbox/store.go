package inbox

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/steveyegge/inbox/internal/eventbus"
	"github.com/steveyegge/inbox/internal/query"
	"github.com/steveyegge/inbox/internal/types"
)

// Store owns the inbox records of one project together with the tab, filter,
// sort and pagination state that selects them.
//
// The mutex is held only for the synchronous part of each operation and is
// released across remote calls. Fetches are not serialized: when two
// first-page fetches overlap, both clear the record set and whichever
// response arrives last populates it.
type Store struct {
	deps     *recordDeps
	detail   IssueDetail
	builder  *query.Builder
	pageSize int
	log      zerolog.Logger

	mu         sync.Mutex
	tab        types.Tab
	filters    types.Filters
	sorting    types.Sorting
	loading    Loading
	err        *FetchError
	pagination *types.PaginationInfo
	records    map[string]*Issue
	order      []string
}

// NewStore creates an empty store for scope. detail may be nil, in which
// case single fetches skip detail reconciliation and patches skip the
// activity refresh.
func NewStore(scope types.Scope, svc Service, detail IssueDetail, opts ...Option) *Store {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.builder == nil {
		cfg.builder = query.NewBuilder(nil)
	}
	if cfg.filters == nil {
		cfg.filters = types.NewTabFilters(cfg.tab)
	}

	var activity ActivityFetcher
	if detail != nil {
		activity = detail
	}
	return &Store{
		deps: &recordDeps{
			scope:    scope,
			svc:      svc,
			activity: activity,
			log:      cfg.log,
			bus:      cfg.bus,
			metrics:  newStoreMetrics(cfg.meter, scope.String()),
		},
		detail:   detail,
		builder:  cfg.builder,
		pageSize: cfg.pageSize,
		log:      cfg.log,
		tab:      cfg.tab,
		filters:  cfg.filters,
		sorting:  cfg.sorting,
		records:  make(map[string]*Issue),
	}
}

// ── State accessors ──────────────────────────────────────────────────────────

func (s *Store) Scope() types.Scope { return s.deps.scope }

func (s *Store) PageSize() int { return s.pageSize }

func (s *Store) Tab() types.Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tab
}

// Filters returns a copy of the active filters.
func (s *Store) Filters() types.Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters.Clone()
}

func (s *Store) Sorting() types.Sorting {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sorting
}

func (s *Store) Loading() Loading {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the error of the last failed list fetch, nil once a later list
// fetch succeeds.
func (s *Store) Err() *FetchError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Pagination returns a copy of the pagination metadata. ok is false before
// the first successful list fetch and right after a reset.
func (s *Store) Pagination() (info types.PaginationInfo, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pagination == nil {
		return types.PaginationInfo{}, false
	}
	return *s.pagination, true
}

// AppliedFiltersCount is the number of selected values across all filters.
func (s *Store) AppliedFiltersCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters.AppliedCount()
}

// Issues returns the records visible in the active tab, in fetch order.
func (s *Store) Issues() []*Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Issue, 0, len(s.order))
	for _, id := range s.order {
		rec := s.records[id]
		if s.tab.Contains(rec.Status()) {
			out = append(out, rec)
		}
	}
	return out
}

// AllIssues returns every record regardless of tab, in fetch order.
func (s *Store) AllIssues() []*Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Issue, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out
}

// IssueByID returns the record for an issue id, nil if absent.
func (s *Store) IssueByID(issueID string) *Issue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[issueID]
}

// Len is the number of records held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// ── View state ───────────────────────────────────────────────────────────────

// SetTab switches partition. Filters are replaced by the tab's default status
// filter, sorting is reset, and the first page is refetched.
func (s *Store) SetTab(ctx context.Context, tab types.Tab) error {
	if !tab.IsValid() {
		return fmt.Errorf("invalid tab: %q", tab)
	}
	s.mu.Lock()
	s.tab = tab
	s.filters = types.NewTabFilters(tab)
	s.sorting = types.DefaultSorting()
	s.mu.Unlock()

	s.deps.publish(ctx, &eventbus.Event{Type: eventbus.EventTabChanged, Op: string(tab)})
	return s.FetchFirstPage(ctx, LoadingFilter)
}

// SetFilter replaces one filter dimension and refetches the first page.
// Empty values remove the constraint. Invalid values are rejected before any
// state changes.
func (s *Store) SetFilter(ctx context.Context, key types.FilterKey, values []string) error {
	s.mu.Lock()
	next := s.filters.Clone()
	if err := next.Set(key, values); err != nil {
		s.mu.Unlock()
		return err
	}
	s.filters = next
	s.mu.Unlock()

	s.deps.publish(ctx, &eventbus.Event{Type: eventbus.EventFiltersChanged, Fields: []string{string(key)}})
	return s.FetchFirstPage(ctx, LoadingFilter)
}

// SetSorting replaces the sort pair and refetches the first page. Either half
// may be empty, in which case the listing falls back to newest first.
func (s *Store) SetSorting(ctx context.Context, field types.SortField, dir types.SortDirection) error {
	if field != "" && !field.IsValid() {
		return fmt.Errorf("invalid sort field: %q", field)
	}
	if dir != "" && !dir.IsValid() {
		return fmt.Errorf("invalid sort direction: %q", dir)
	}
	s.mu.Lock()
	s.sorting = types.Sorting{OrderBy: field, Direction: dir}
	s.mu.Unlock()

	s.deps.publish(ctx, &eventbus.Event{Type: eventbus.EventFiltersChanged, Fields: []string{query.KeyOrderBy}})
	return s.FetchFirstPage(ctx, LoadingFilter)
}

// ── Fetching ─────────────────────────────────────────────────────────────────

// FetchFirstPage drops every record and the pagination metadata, then loads
// page one. tag names the loading state; LoadingIdle means InitLoading when
// the store is empty and leaves the state unchanged otherwise.
func (s *Store) FetchFirstPage(ctx context.Context, tag Loading) error {
	s.mu.Lock()
	switch {
	case tag != LoadingIdle:
		s.loading = tag
	case len(s.records) == 0:
		s.loading = LoadingInit
	}
	loading := s.loading
	dropped := s.resetLocked()
	params := s.builder.Build(s.filters.Clone(), s.sorting, s.pageSize, query.InitialCursor(s.pageSize))
	s.mu.Unlock()

	s.deps.metrics.recordDelta(ctx, -dropped)
	if loading.IsLoading() {
		s.deps.publish(ctx, &eventbus.Event{Type: eventbus.EventLoadingChanged, Loading: loading.String()})
	}

	page, err := s.deps.svc.List(ctx, s.deps.scope, params)
	s.deps.metrics.fetch(ctx, "first", err)
	if err != nil {
		return s.fetchFailed(ctx, KindInit, err)
	}
	return s.pageLoaded(ctx, page)
}

// FetchNextPage loads the page after the last one fetched. It does nothing
// when the store already holds at least the server's total. Records already
// present are left as they are.
func (s *Store) FetchNextPage(ctx context.Context) error {
	s.mu.Lock()
	if s.pagination != nil && len(s.records) >= s.pagination.TotalResults {
		s.pagination.NextPageResults = false
		s.mu.Unlock()
		return nil
	}
	s.loading = LoadingPagination
	cursor := query.InitialCursor(s.pageSize)
	if s.pagination != nil && s.pagination.NextCursor != "" {
		cursor = s.pagination.NextCursor
	}
	params := s.builder.Build(s.filters.Clone(), s.sorting, s.pageSize, cursor)
	s.mu.Unlock()

	s.deps.publish(ctx, &eventbus.Event{Type: eventbus.EventLoadingChanged, Loading: LoadingPagination.String()})

	page, err := s.deps.svc.List(ctx, s.deps.scope, params)
	s.deps.metrics.fetch(ctx, "next", err)
	if err != nil {
		return s.fetchFailed(ctx, KindPagination, err)
	}
	return s.pageLoaded(ctx, page)
}

// FetchAll pages until the server reports no further results or the store
// holds the server's total.
func (s *Store) FetchAll(ctx context.Context) error {
	for {
		info, ok := s.Pagination()
		if ok && (!info.NextPageResults || s.Len() >= info.TotalResults) {
			return nil
		}
		before := s.Len()
		if err := s.FetchNextPage(ctx); err != nil {
			return err
		}
		if s.Len() == before {
			return nil
		}
	}
}

func (s *Store) fetchFailed(ctx context.Context, kind ErrorKind, err error) error {
	fe := newFetchError(kind, err)
	s.mu.Lock()
	s.loading = LoadingIdle
	s.err = fe
	s.mu.Unlock()

	s.log.Error().Err(err).Str("scope", s.deps.scope.String()).Str("kind", string(kind)).Msg("inbox fetch failed")
	s.deps.publish(ctx, &eventbus.Event{Type: eventbus.EventFetchFailed, Op: string(kind), Error: err.Error()})
	return fe
}

func (s *Store) pageLoaded(ctx context.Context, page *types.InboxIssuePage) error {
	if page == nil {
		page = &types.InboxIssuePage{}
	}
	s.mu.Lock()
	added := 0
	for _, data := range page.Results {
		if _, ok := s.insertLocked(data); ok {
			added++
		}
	}
	info := page.PaginationInfo
	s.pagination = &info
	s.err = nil
	s.loading = LoadingIdle
	s.mu.Unlock()

	s.deps.metrics.recordDelta(ctx, added)
	s.deps.publish(ctx, &eventbus.Event{Type: eventbus.EventPageLoaded, Count: added})
	return nil
}

// FetchByID loads one issue and reconciles its reactions, activity and
// comments, then stores it, refreshing the existing record in place when the
// id is already present. Failures are logged and yield nil.
func (s *Store) FetchByID(ctx context.Context, issueID string) *Issue {
	if issueID == "" {
		return nil
	}
	s.mu.Lock()
	s.loading = LoadingIssue
	s.mu.Unlock()
	s.deps.publish(ctx, &eventbus.Event{Type: eventbus.EventLoadingChanged, Loading: LoadingIssue.String(), IssueID: issueID})

	data, err := s.fetchIssue(ctx, issueID)
	s.deps.metrics.fetch(ctx, "single", err)
	if err != nil {
		s.mu.Lock()
		s.loading = LoadingIdle
		s.mu.Unlock()
		s.log.Warn().Err(err).Str("issue", issueID).Msg("inbox issue fetch failed")
		return nil
	}

	s.mu.Lock()
	rec, inserted := s.upsertLocked(*data)
	s.loading = LoadingIdle
	s.mu.Unlock()

	if inserted {
		s.deps.metrics.recordDelta(ctx, 1)
	}
	s.deps.publish(ctx, &eventbus.Event{Type: eventbus.EventIssueUpserted, IssueID: rec.ID()})
	return rec
}

func (s *Store) fetchIssue(ctx context.Context, issueID string) (*types.InboxIssue, error) {
	data, err := s.deps.svc.Retrieve(ctx, s.deps.scope, issueID)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	if data == nil || data.Issue.ID == "" {
		return nil, fmt.Errorf("retrieve %s: empty response", issueID)
	}
	if s.detail != nil {
		id := data.Issue.ID
		if err := s.detail.FetchReactions(ctx, s.deps.scope, id); err != nil {
			return nil, fmt.Errorf("reactions: %w", err)
		}
		if err := s.detail.FetchActivities(ctx, s.deps.scope, id); err != nil {
			return nil, fmt.Errorf("activities: %w", err)
		}
		if err := s.detail.FetchComments(ctx, s.deps.scope, id); err != nil {
			return nil, fmt.Errorf("comments: %w", err)
		}
	}
	return data, nil
}

// ── Create / delete ──────────────────────────────────────────────────────────

// Create sends data to the remote and stores the result, bumping the total.
// Returns nil when validation or the remote call fails.
func (s *Store) Create(ctx context.Context, data types.InboxIssueCreate) *Issue {
	if err := data.Validate(); err != nil {
		s.log.Warn().Err(err).Msg("rejected invalid inbox issue")
		return nil
	}
	created, err := s.deps.svc.Create(ctx, s.deps.scope, data)
	if err != nil {
		s.log.Error().Err(err).Str("scope", s.deps.scope.String()).Msg("inbox issue create failed")
		return nil
	}
	if created == nil || created.Issue.ID == "" {
		s.log.Error().Str("scope", s.deps.scope.String()).Msg("inbox issue create returned no id")
		return nil
	}

	s.mu.Lock()
	rec, inserted := s.upsertLocked(*created)
	if s.pagination == nil {
		s.pagination = &types.PaginationInfo{}
	}
	s.pagination.TotalResults++
	s.mu.Unlock()

	if inserted {
		s.deps.metrics.recordDelta(ctx, 1)
	}
	s.deps.publish(ctx, &eventbus.Event{Type: eventbus.EventIssueCreated, IssueID: rec.ID(), Op: OpCreate})
	return rec
}

// Delete removes the record and decrements the total before calling the
// remote. If the remote fails the record returns to its old position but the
// total stays decremented. Unknown ids are ignored.
func (s *Store) Delete(ctx context.Context, issueID string) bool {
	s.mu.Lock()
	rec, ok := s.records[issueID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	pos := s.removeLocked(issueID)
	if s.pagination != nil {
		s.pagination.TotalResults--
	}
	s.mu.Unlock()
	s.deps.metrics.recordDelta(ctx, -1)
	s.deps.publish(ctx, &eventbus.Event{Type: eventbus.EventIssueDeleted, IssueID: issueID, Op: OpDelete})

	if err := s.deps.svc.Destroy(ctx, s.deps.scope, issueID); err != nil {
		s.mu.Lock()
		restored := false
		if _, present := s.records[issueID]; !present {
			s.records[issueID] = rec
			s.order = insertAt(s.order, pos, issueID)
			restored = true
		}
		s.mu.Unlock()

		if restored {
			s.deps.metrics.recordDelta(ctx, 1)
		}
		s.log.Warn().Err(err).Str("issue", issueID).Str("op", OpDelete).Msg("remote delete failed, record restored")
		s.deps.metrics.rollback(ctx, OpDelete)
		s.deps.publish(ctx, &eventbus.Event{Type: eventbus.EventRolledBack, IssueID: issueID, Op: OpDelete, Error: err.Error()})
		return false
	}
	return true
}

// ── Record set primitives (caller holds s.mu) ────────────────────────────────

// insertLocked adds data unless its id is already present.
func (s *Store) insertLocked(data types.InboxIssue) (*Issue, bool) {
	id := data.Issue.ID
	if id == "" {
		return nil, false
	}
	if rec, ok := s.records[id]; ok {
		return rec, false
	}
	rec := newIssue(data, s.deps)
	s.records[id] = rec
	s.order = append(s.order, id)
	return rec, true
}

// upsertLocked inserts data or refreshes the existing record in place.
func (s *Store) upsertLocked(data types.InboxIssue) (*Issue, bool) {
	if rec, ok := s.records[data.Issue.ID]; ok {
		rec.refresh(data)
		return rec, false
	}
	return s.insertLocked(data)
}

func (s *Store) removeLocked(id string) int {
	delete(s.records, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return i
		}
	}
	return len(s.order)
}

func (s *Store) resetLocked() int {
	n := len(s.records)
	s.records = make(map[string]*Issue)
	s.order = nil
	s.pagination = nil
	return n
}

func insertAt(order []string, pos int, id string) []string {
	if pos < 0 || pos > len(order) {
		pos = len(order)
	}
	order = append(order, "")
	copy(order[pos+1:], order[pos:])
	order[pos] = id
	return order
}
