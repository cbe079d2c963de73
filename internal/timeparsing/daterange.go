package timeparsing

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-date format the remote expects in range filters.
const DateLayout = "2006-01-02"

// Symbolic past-duration values offered by date filters.
const (
	RangeToday      = "today"
	RangeYesterday  = "yesterday"
	RangeLast7Days  = "last_7_days"
	RangeLast30Days = "last_30_days"
)

// DateRangeResolver turns a symbolic date filter value into the remote's
// range expression "YYYY-MM-DD;after,YYYY-MM-DD;before".
type DateRangeResolver interface {
	Resolve(value string) (string, error)
}

// RangeResolver resolves values against the clock returned by Now.
type RangeResolver struct {
	Now func() time.Time
}

// NewRangeResolver returns a resolver bound to the wall clock.
func NewRangeResolver() *RangeResolver {
	return &RangeResolver{Now: time.Now}
}

// FixedResolver returns a resolver whose clock is pinned to now.
func FixedResolver(now time.Time) *RangeResolver {
	return &RangeResolver{Now: func() time.Time { return now }}
}

// Resolve accepts the four symbolic ranges, an already-resolved expression
// (anything containing ";"), a compact duration ("-2w" means from two weeks
// ago until today), or any single date ParseRelativeTime understands.
func (r *RangeResolver) Resolve(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("empty date filter")
	}
	if strings.Contains(value, ";") {
		return value, nil
	}
	now := time.Now()
	if r != nil && r.Now != nil {
		now = r.Now()
	}
	today := startOfDay(now)

	switch strings.ToLower(value) {
	case RangeToday:
		return Between(today, today), nil
	case RangeYesterday:
		y := today.AddDate(0, 0, -1)
		return Between(y, y), nil
	case RangeLast7Days:
		return Between(today.AddDate(0, 0, -7), today), nil
	case RangeLast30Days:
		return Between(today.AddDate(0, 0, -30), today), nil
	}

	if IsCompactDuration(value) {
		t, err := ParseCompactDuration(value, now)
		if err != nil {
			return "", err
		}
		day := startOfDay(t)
		if day.After(today) {
			return Between(today, day), nil
		}
		return Between(day, today), nil
	}

	t, err := ParseRelativeTime(value, now)
	if err != nil {
		return "", fmt.Errorf("invalid date filter %q: %w", value, err)
	}
	day := startOfDay(t)
	return Between(day, day), nil
}

// Between renders the inclusive range [from, to].
func Between(from, to time.Time) string {
	return from.Format(DateLayout) + ";after," + to.Format(DateLayout) + ";before"
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
