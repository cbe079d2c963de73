// Package query maps filter, sort and pagination state to the flat query
// parameters the remote list operation accepts.
package query

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/steveyegge/inbox/internal/timeparsing"
	"github.com/steveyegge/inbox/internal/types"
)

// Query parameter keys that are not filter dimensions.
const (
	KeyOrderBy = "order_by"
	KeyPerPage = "per_page"
	KeyCursor  = "cursor"
)

// DefaultPageSize is the page size used by list fetches.
const DefaultPageSize = 10

// Params is a flat query-parameter map.
type Params map[string]string

// Values converts the map to url.Values.
func (p Params) Values() url.Values {
	v := make(url.Values, len(p))
	for k, val := range p {
		v.Set(k, val)
	}
	return v
}

// Encode renders the params in key order.
func (p Params) Encode() string {
	return p.Values().Encode()
}

// Keys returns the parameter names sorted.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Builder builds list params. Date dimensions are resolved through Dates.
type Builder struct {
	Dates timeparsing.DateRangeResolver
}

// NewBuilder returns a builder that resolves date ranges with r. A nil r
// uses the wall clock.
func NewBuilder(r timeparsing.DateRangeResolver) *Builder {
	if r == nil {
		r = timeparsing.NewRangeResolver()
	}
	return &Builder{Dates: r}
}

// Build returns the params for one list call. Each non-empty filter dimension
// is comma-joined; created_at and updated_at values are resolved to range
// expressions first. order_by falls back to -createdAt unless both halves of
// sorting are set. per_page and cursor are always present.
//
// A date value the resolver rejects is passed through unchanged so the
// remote can report it.
func (b *Builder) Build(filters types.Filters, sorting types.Sorting, pageSize int, cursor string) Params {
	params := make(Params, len(filters)+3)
	for _, key := range filters.Keys() {
		values := filters[key]
		if key.IsDate() {
			resolved := make([]string, 0, len(values))
			for _, v := range values {
				resolved = append(resolved, b.resolveDate(v))
			}
			values = resolved
		}
		params[string(key)] = strings.Join(values, ",")
	}
	params[KeyOrderBy] = sorting.Token()
	params[KeyPerPage] = strconv.Itoa(pageSize)
	params[KeyCursor] = cursor
	return params
}

func (b *Builder) resolveDate(v string) string {
	if b == nil || b.Dates == nil {
		return v
	}
	resolved, err := b.Dates.Resolve(v)
	if err != nil {
		return v
	}
	return resolved
}

// Cursor is a decoded pagination cursor.
type Cursor struct {
	PageSize  int
	PageIndex int
	Offset    int
}

func (c Cursor) String() string {
	return fmt.Sprintf("%d:%d:%d", c.PageSize, c.PageIndex, c.Offset)
}

// Next returns the cursor of the following page.
func (c Cursor) Next() Cursor {
	return Cursor{PageSize: c.PageSize, PageIndex: c.PageIndex + 1, Offset: c.Offset}
}

// Start is the index of the first record the cursor addresses.
func (c Cursor) Start() int {
	return c.PageIndex*c.PageSize + c.Offset
}

// InitialCursor is the first-page cursor for a page size.
func InitialCursor(pageSize int) string {
	return Cursor{PageSize: pageSize}.String()
}

// ParseCursor decodes "<pageSize>:<pageIndex>:<offset>". Clients treat
// cursors as opaque; this is for servers and tests.
func ParseCursor(raw string) (Cursor, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return Cursor{}, fmt.Errorf("invalid cursor %q: want <pageSize>:<pageIndex>:<offset>", raw)
	}
	var nums [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return Cursor{}, fmt.Errorf("invalid cursor %q: bad field %q", raw, part)
		}
		nums[i] = n
	}
	if nums[0] == 0 {
		return Cursor{}, fmt.Errorf("invalid cursor %q: page size must be positive", raw)
	}
	return Cursor{PageSize: nums[0], PageIndex: nums[1], Offset: nums[2]}, nil
}
