package types

import (
	"fmt"
	"sort"
	"strings"
)

// FilterKey names a filter dimension. The value doubles as the query
// parameter key sent to the remote.
type FilterKey string

// Filter dimensions
const (
	FilterStatus    FilterKey = "status"
	FilterPriority  FilterKey = "priority"
	FilterLabels    FilterKey = "labels"
	FilterAssignee  FilterKey = "assignee"
	FilterCreatedBy FilterKey = "created_by"
	FilterCreatedAt FilterKey = "created_at"
	FilterUpdatedAt FilterKey = "updated_at"
)

// FilterKeys lists every dimension in the order query parameters are emitted.
var FilterKeys = []FilterKey{
	FilterStatus,
	FilterPriority,
	FilterLabels,
	FilterAssignee,
	FilterCreatedBy,
	FilterCreatedAt,
	FilterUpdatedAt,
}

// IsValid checks if the key is a known dimension
func (k FilterKey) IsValid() bool {
	for _, known := range FilterKeys {
		if k == known {
			return true
		}
	}
	return false
}

// IsDate reports whether values of this dimension are date-range expressions.
func (k FilterKey) IsDate() bool {
	return k == FilterCreatedAt || k == FilterUpdatedAt
}

// ParseFilterKey accepts the query key or a dashed/camel-case spelling
// ("created-by", "createdAt").
func ParseFilterKey(raw string) (FilterKey, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	switch normalized {
	case "createdat":
		normalized = string(FilterCreatedAt)
	case "updatedat":
		normalized = string(FilterUpdatedAt)
	case "createdby":
		normalized = string(FilterCreatedBy)
	case "label":
		normalized = string(FilterLabels)
	case "assignees":
		normalized = string(FilterAssignee)
	}
	k := FilterKey(normalized)
	if !k.IsValid() {
		return "", fmt.Errorf("unknown filter %q", raw)
	}
	return k, nil
}

// Filters maps each constrained dimension to its accepted values. A dimension
// that is absent or empty places no constraint.
type Filters map[FilterKey][]string

// NewTabFilters returns the filter set a tab starts with.
func NewTabFilters(tab Tab) Filters {
	f := Filters{}
	f.SetStatuses(tab.DefaultStatuses()...)
	return f
}

// Set replaces the values of one dimension. Empty values remove the
// constraint. Status values are normalized to wire codes and priorities are
// validated.
func (f Filters) Set(key FilterKey, values []string) error {
	if !key.IsValid() {
		return fmt.Errorf("unknown filter %q", key)
	}
	cleaned := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		switch key {
		case FilterStatus:
			s, err := ParseStatus(v)
			if err != nil {
				return err
			}
			v = s.Code()
		case FilterPriority:
			v = strings.ToLower(v)
			if !IsValidPriority(v) {
				return fmt.Errorf("invalid priority: %q", v)
			}
		}
		if seen[v] {
			continue
		}
		seen[v] = true
		cleaned = append(cleaned, v)
	}
	if len(cleaned) == 0 {
		delete(f, key)
		return nil
	}
	f[key] = cleaned
	return nil
}

// SetStatuses replaces the status dimension.
func (f Filters) SetStatuses(statuses ...Status) {
	if len(statuses) == 0 {
		delete(f, FilterStatus)
		return
	}
	codes := make([]string, 0, len(statuses))
	for _, s := range statuses {
		codes = append(codes, s.Code())
	}
	f[FilterStatus] = codes
}

// Clear removes the constraint on one dimension.
func (f Filters) Clear(key FilterKey) {
	delete(f, key)
}

// Get returns the values of one dimension, nil when unconstrained.
func (f Filters) Get(key FilterKey) []string {
	return f[key]
}

// Statuses decodes the status dimension. Unparseable codes are skipped.
func (f Filters) Statuses() []Status {
	var out []Status
	for _, v := range f[FilterStatus] {
		if s, err := ParseStatus(v); err == nil {
			out = append(out, s)
		}
	}
	return out
}

// AppliedCount is the total number of selected values across all
// constrained dimensions.
func (f Filters) AppliedCount() int {
	n := 0
	for _, values := range f {
		n += len(values)
	}
	return n
}

// Clone returns a deep copy.
func (f Filters) Clone() Filters {
	out := make(Filters, len(f))
	for k, v := range f {
		out[k] = cloneStrings(v)
	}
	return out
}

// Keys returns the constrained dimensions in emission order.
func (f Filters) Keys() []FilterKey {
	keys := make([]FilterKey, 0, len(f))
	for k, v := range f {
		if len(v) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return keyIndex(keys[i]) < keyIndex(keys[j])
	})
	return keys
}

func keyIndex(k FilterKey) int {
	for i, known := range FilterKeys {
		if k == known {
			return i
		}
	}
	return len(FilterKeys)
}
