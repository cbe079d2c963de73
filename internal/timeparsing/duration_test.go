package timeparsing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCompactDuration(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		input string
		want  time.Time
	}{
		{"+6h", time.Date(2025, 6, 15, 18, 0, 0, 0, time.UTC)},
		{"-1d", time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC)},
		{"3d", time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)},
		{"+1w", time.Date(2025, 6, 22, 12, 0, 0, 0, time.UTC)},
		{"-2w", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		{"+1m", time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)},
		{"1y", time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)},
		{"+0d", now},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCompactDuration(tt.input, now)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}
}

func TestParseCompactDurationRejects(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	for _, in := range []string{"", "+", "6", "+6x", "++1d", "1.5d", "+1 d", "tomorrow"} {
		_, err := ParseCompactDuration(in, now)
		assert.Error(t, err, in)
		assert.False(t, IsCompactDuration(in), in)
	}
}

func TestParseCompactDurationCalendarEdges(t *testing.T) {
	// Jan 31 + 1 month normalizes into March.
	jan31 := time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC)
	got, err := ParseCompactDuration("+1m", jan31)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC), got)

	leap := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	got, err = ParseCompactDuration("+1y", leap)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestParseCompactDurationKeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, loc)
	got, err := ParseCompactDuration("+2d", now)
	require.NoError(t, err)
	assert.Equal(t, loc, got.Location())
}
