package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGapPercent(t *testing.T) {
	tests := []struct {
		name     string
		gap      float64
		previous float64
		expected float64
	}{
		{name: "positive gap", gap: 50, previous: 200, expected: 25},
		{name: "negative gap", gap: -50, previous: 200, expected: -25},
		{name: "zero previous yields zero not infinity", gap: 50, previous: 0, expected: 0},
		{name: "zero gap", gap: 0, previous: 200, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, GapPercent(tt.gap, tt.previous), 1e-9)
		})
	}
}

func TestWeekStart(t *testing.T) {
	// 2025-06-09 is a Monday.
	monday := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		day  time.Time
	}{
		{name: "monday anchors itself", day: monday},
		{name: "wednesday", day: monday.AddDate(0, 0, 2)},
		{name: "sunday belongs to preceding monday", day: monday.AddDate(0, 0, 6)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, monday, WeekStart(tt.day))
		})
	}
}

func TestWeekStartTruncatesTime(t *testing.T) {
	d := time.Date(2025, 6, 11, 17, 45, 12, 0, time.UTC)
	got := WeekStart(d)
	assert.Equal(t, time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC), got)
}
