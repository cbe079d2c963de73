package timeparsing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday, January 15, 2025, 10:00 local.
var refNow = time.Date(2025, 1, 15, 10, 0, 0, 0, time.Local)

func TestParseNaturalLanguage(t *testing.T) {
	days := map[string]int{
		"tomorrow":    16,
		"yesterday":   14,
		"next monday": 20,
		"in 3 days":   18,
		"3 days ago":  12,
	}
	for in, day := range days {
		t.Run(in, func(t *testing.T) {
			got, err := ParseNaturalLanguage(in, refNow)
			require.NoError(t, err)
			assert.Equal(t, 2025, got.Year())
			assert.Equal(t, time.January, got.Month())
			assert.Equal(t, day, got.Day())
		})
	}

	for _, in := range []string{"", "not a date at all"} {
		_, err := ParseNaturalLanguage(in, refNow)
		assert.Error(t, err, "%q", in)
	}
}

func TestParseRelativeTime(t *testing.T) {
	tests := []struct {
		input string
		month time.Month
		day   int
		hour  int // -1 skips the check
	}{
		{"+1d", time.January, 16, 10},
		{"+6h", time.January, 15, 16},
		{"tomorrow", time.January, 16, -1},
		{"next monday", time.January, 20, -1},
		{"2025-02-01", time.February, 1, 0},
		{"2025-03-15T14:30:00Z", time.March, 15, 14},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRelativeTime(tt.input, refNow)
			require.NoError(t, err)
			assert.Equal(t, 2025, got.Year())
			assert.Equal(t, tt.month, got.Month())
			assert.Equal(t, tt.day, got.Day())
			if tt.hour >= 0 {
				assert.Equal(t, tt.hour, got.Hour())
			}
		})
	}

	_, err := ParseRelativeTime("not-a-date", refNow)
	assert.Error(t, err)
}

func TestParseRelativeTimeLayerOrder(t *testing.T) {
	// A compact duration keeps the time of day; natural language would not.
	got, err := ParseRelativeTime("+1d", refNow)
	require.NoError(t, err)
	assert.True(t, got.Equal(refNow.AddDate(0, 0, 1)))

	got, err = ParseRelativeTime("2025-01-20", refNow)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 20, 0, 0, 0, 0, time.Local), got)
}
