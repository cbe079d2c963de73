package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/steveyegge/inbox/internal/types"
)

// Config keys.
const (
	KeyAPIURL             = "api.url"
	KeyAPIToken           = "api.token"
	KeyAPITimeout         = "api.timeout"
	KeyAPIMaxRetryElapsed = "api.max-retry-elapsed"
	KeyWorkspace          = "workspace"
	KeyProject            = "project"
	KeyPerPage            = "inbox.per-page"
	KeyDefaultTab         = "inbox.default-tab"
	KeyOrderBy            = "inbox.order-by"
	KeyDirection          = "inbox.direction"
	KeyLogLevel           = "log.level"
	KeyLogFile            = "log.file"
)

// DefaultPerPage is the list page size when none is configured.
const DefaultPerPage = 10

// MaxPerPage caps inbox.per-page.
const MaxPerPage = 100

// KnownKeys lists every key `inbox config set` accepts.
var KnownKeys = map[string]bool{
	KeyAPIURL:             true,
	KeyAPIToken:           true,
	KeyAPITimeout:         true,
	KeyAPIMaxRetryElapsed: true,
	KeyWorkspace:          true,
	KeyProject:            true,
	KeyPerPage:            true,
	KeyDefaultTab:         true,
	KeyOrderBy:            true,
	KeyDirection:          true,
	KeyLogLevel:           true,
	KeyLogFile:            true,
}

// IsKnownKey reports whether key is a recognised setting.
func IsKnownKey(key string) bool {
	return KnownKeys[key]
}

// SortedKeys returns KnownKeys in order.
func SortedKeys() []string {
	keys := make([]string, 0, len(KnownKeys))
	for k := range KnownKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func warnf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
}

// GetPerPage returns inbox.per-page, falling back to 10 when the value is
// not in 1..100.
func GetPerPage() int {
	n := GetInt(KeyPerPage)
	if n < 1 || n > MaxPerPage {
		warnf("invalid %s %d in config (valid: 1-%d), using default %d", KeyPerPage, n, MaxPerPage, DefaultPerPage)
		return DefaultPerPage
	}
	return n
}

// GetDefaultTab returns inbox.default-tab, falling back to open.
//
// Config key: inbox.default-tab
// Valid values: open, closed
func GetDefaultTab() types.Tab {
	value := GetString(KeyDefaultTab)
	if value == "" {
		return types.TabOpen
	}
	tab, err := types.ParseTab(value)
	if err != nil {
		warnf("invalid %s %q in config (valid: open, closed), using default 'open'", KeyDefaultTab, value)
		return types.TabOpen
	}
	return tab
}

// GetSorting returns the configured sort pair. An invalid half is dropped
// with a warning, which makes the list fall back to -createdAt.
func GetSorting() types.Sorting {
	var s types.Sorting
	if raw := strings.TrimSpace(GetString(KeyOrderBy)); raw != "" {
		field, err := types.ParseSortField(raw)
		if err != nil {
			warnf("invalid %s %q in config (valid: createdAt, updatedAt, sequenceId)", KeyOrderBy, raw)
		} else {
			s.OrderBy = field
		}
	}
	if raw := strings.TrimSpace(GetString(KeyDirection)); raw != "" {
		dir, err := types.ParseSortDirection(raw)
		if err != nil {
			warnf("invalid %s %q in config (valid: asc, desc)", KeyDirection, raw)
		} else {
			s.Direction = dir
		}
	}
	return s
}

func positiveDuration(key string, def time.Duration) time.Duration {
	d := GetDuration(key)
	if d <= 0 {
		if IsSet(key) {
			warnf("invalid %s %q in config, using default %s", key, GetString(key), def)
		}
		return def
	}
	return d
}

// GetAPITimeout returns the per-request HTTP timeout.
func GetAPITimeout() time.Duration {
	return positiveDuration(KeyAPITimeout, 30*time.Second)
}

// GetMaxRetryElapsed returns the retry budget for one request. Zero is
// allowed and disables retries.
func GetMaxRetryElapsed() time.Duration {
	d := GetDuration(KeyAPIMaxRetryElapsed)
	if d < 0 {
		warnf("invalid %s %s in config, using default 30s", KeyAPIMaxRetryElapsed, d)
		return 30 * time.Second
	}
	return d
}

// GetScope returns the configured workspace and project.
func GetScope() types.Scope {
	return types.Scope{
		WorkspaceSlug: GetString(KeyWorkspace),
		ProjectID:     GetString(KeyProject),
	}
}
