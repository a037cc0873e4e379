package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(s string) time.Time {
	t, _ := time.Parse(DateLayout, s)
	return t
}

// TestEventWindow_Bounds tests the upcoming-event filter window
func TestEventWindow_Bounds(t *testing.T) {
	f := EventWindow(day("2025-05-01"), 12)

	tests := []struct {
		date string
		want bool
	}{
		{"2024-01-01", false},
		{"2025-04-30", false},
		{"2025-05-01", true},
		{"2025-06-01", true},
		{"2026-05-01", true},
		{"2026-05-02", false},
		{"2026-01-01", true},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Matches(EventRecord{ID: "e", Date: day(tt.date)}))
		})
	}
}

// TestEventWindow_PastNearLater tests a past, a near and a later event
func TestEventWindow_PastNearLater(t *testing.T) {
	f := EventWindow(day("2025-05-01"), 12)

	assert.Equal(t, day("2026-05-01"), f.DateTo)
	assert.False(t, f.Matches(EventRecord{ID: "past", Date: day("2024-01-01")}))
	assert.True(t, f.Matches(EventRecord{ID: "near", Date: day("2025-06-01")}))
	assert.True(t, f.Matches(EventRecord{ID: "later", Date: day("2026-01-01")}))
	assert.False(t, EventWindow(day("2025-05-01"), 6).Matches(EventRecord{ID: "later", Date: day("2026-01-01")}))
}

// TestSearchFilter_Platform tests platform type filtering
func TestSearchFilter_Platform(t *testing.T) {
	f := SearchFilter{Type: PlatformTypeOutdoor}

	assert.False(t, f.IsZero())
	assert.True(t, f.Matches(PlatformRecord{Type: PlatformTypeOutdoor}))
	assert.False(t, f.Matches(PlatformRecord{Type: PlatformTypeTech}))
	assert.True(t, SearchFilter{}.IsZero())
}

// TestSearchFilter_PlatformID tests event host filtering
func TestSearchFilter_PlatformID(t *testing.T) {
	f := SearchFilter{PlatformID: "afro"}

	assert.True(t, f.Matches(EventRecord{PlatformID: "afro"}))
	assert.False(t, f.Matches(EventRecord{PlatformID: "bwtt"}))
}
