package inbox

// Loading is the store's fetch state. At most one is active; a new fetch
// replaces whatever the previous one set.
type Loading string

// Loading states
const (
	LoadingIdle       Loading = ""
	LoadingInit       Loading = "init-loading"
	LoadingFilter     Loading = "filter-loading"
	LoadingPagination Loading = "pagination-loading"
	LoadingIssue      Loading = "issue-loading"
)

func (l Loading) String() string {
	if l == LoadingIdle {
		return "idle"
	}
	return string(l)
}

// IsLoading reports whether a fetch is in flight.
func (l Loading) IsLoading() bool {
	return l != LoadingIdle
}
