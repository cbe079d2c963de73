package inbox

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"

	"github.com/steveyegge/inbox/internal/eventbus"
	"github.com/steveyegge/inbox/internal/query"
	"github.com/steveyegge/inbox/internal/types"
)

type config struct {
	pageSize int
	log      zerolog.Logger
	bus      *eventbus.Bus
	builder  *query.Builder
	tab      types.Tab
	filters  types.Filters
	sorting  types.Sorting
	meter    metric.Meter
}

func defaultConfig() config {
	return config{
		pageSize: query.DefaultPageSize,
		log:      zerolog.Nop(),
		tab:      types.TabOpen,
		sorting:  types.DefaultSorting(),
	}
}

// Option configures a Store or a standalone Issue.
type Option func(*config)

// WithPageSize sets per_page for list fetches. Non-positive values are ignored.
func WithPageSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) { c.log = l }
}

// WithBus publishes change notifications on b.
func WithBus(b *eventbus.Bus) Option {
	return func(c *config) { c.bus = b }
}

// WithQueryBuilder replaces the default builder, typically to pin the clock
// used to resolve date filters.
func WithQueryBuilder(b *query.Builder) Option {
	return func(c *config) { c.builder = b }
}

// WithTab starts the store on tab with that tab's default status filter.
func WithTab(t types.Tab) Option {
	return func(c *config) {
		if t.IsValid() {
			c.tab = t
			c.filters = nil
		}
	}
}

// WithFilters sets the initial filters. Apply after WithTab.
func WithFilters(f types.Filters) Option {
	return func(c *config) { c.filters = f.Clone() }
}

// WithSorting sets the initial sorting.
func WithSorting(s types.Sorting) Option {
	return func(c *config) { c.sorting = s }
}

// WithMeter records store metrics on m.
func WithMeter(m metric.Meter) Option {
	return func(c *config) { c.meter = m }
}
