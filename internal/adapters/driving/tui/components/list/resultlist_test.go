package list

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

func sampleResults() []domain.SearchResult {
	return []domain.SearchResult{
		{
			Record: domain.PlatformRecord{
				ID: "p1", Name: "Outdoor Afro", Type: domain.PlatformTypeOutdoor,
				FocusArea: "Hiking", Website: "https://outdoorafro.org",
			},
			CombinedScore: 0.95, Rank: 1,
		},
		{Record: domain.PlatformRecord{ID: "p2", Name: "Black Girls Code", Type: domain.PlatformTypeTech}, CombinedScore: 0.85, Rank: 2},
		{Record: domain.PlatformRecord{ID: "p3", Name: "Latinas in Tech", Type: domain.PlatformTypeTech}, CombinedScore: 0.75, Rank: 3},
	}
}

func manyResults(n int) []domain.SearchResult {
	out := make([]domain.SearchResult, n)
	for i := range out {
		out[i] = domain.SearchResult{
			Record: domain.PlatformRecord{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("Platform %02d", i+1), Type: domain.PlatformTypeTech},
			Rank:   i + 1,
		}
	}
	return out
}

func TestResultList_Empty(t *testing.T) {
	l := NewResultList(nil)

	assert.Nil(t, l.SelectedResult())
	assert.Contains(t, l.View(), "No matching platforms or events.")

	l.MoveDown()
	l.MoveUp()
	assert.Equal(t, 0, l.Selected())
}

func TestResultList_CursorClamps(t *testing.T) {
	l := NewResultList(nil)
	l.SetResults(sampleResults())

	l.MoveUp()
	assert.Equal(t, 0, l.Selected())

	l.MoveDown()
	l.MoveDown()
	l.MoveDown()
	assert.Equal(t, 2, l.Selected())

	got := l.SelectedResult()
	require.NotNil(t, got)
	assert.Equal(t, "p3", got.Record.RecordID())
}

func TestResultList_SetResultsResetsCursor(t *testing.T) {
	l := NewResultList(nil)
	l.SetResults(sampleResults())
	l.MoveDown()

	l.SetResults(sampleResults()[:1])

	assert.Equal(t, 0, l.Selected())
	assert.Len(t, l.Results(), 1)
}

func TestResultList_View(t *testing.T) {
	l := NewResultList(nil)
	l.SetDimensions(80, 20)
	l.SetResults(sampleResults())

	view := l.View()

	assert.Contains(t, view, "3 results")
	assert.NotContains(t, view, "showing")
	assert.Contains(t, view, "> [1] Outdoor Afro")
	assert.Contains(t, view, "  [2] Black Girls Code")
	assert.Contains(t, view, "0.95")
	assert.Contains(t, view, "https://outdoorafro.org")
	assert.Contains(t, view, "Outdoor/Travel - Hiking")
}

func TestResultList_View_ScrollsWithCursor(t *testing.T) {
	l := NewResultList(nil)
	l.SetDimensions(80, 8) // two rows visible
	l.SetResults(manyResults(5))

	assert.Contains(t, l.View(), "(showing 1-2)")

	l.MoveDown()
	l.MoveDown()
	view := l.View()
	assert.Contains(t, view, "(showing 2-3)")
	assert.Contains(t, view, "> [3] Platform 03")
	assert.NotContains(t, view, "Platform 01")

	l.MoveUp()
	l.MoveUp()
	assert.Contains(t, l.View(), "(showing 1-2)")
}

func TestResultList_View_UnnamedAndUnranked(t *testing.T) {
	l := NewResultList(nil)
	l.SetResults([]domain.SearchResult{{Record: domain.PlatformRecord{ID: "x"}}})

	view := l.View()
	assert.Contains(t, view, "[1] (unnamed record)")
}

func TestResultList_View_ClipsLongNames(t *testing.T) {
	l := NewResultList(nil)
	l.SetDimensions(30, 10)
	l.SetResults([]domain.SearchResult{{
		Record: domain.PlatformRecord{ID: "x", Name: strings.Repeat("Community ", 10)},
	}})

	assert.Contains(t, l.View(), "…")
}

func TestDetails(t *testing.T) {
	date := time.Date(2026, 11, 7, 0, 0, 0, 0, time.UTC)
	event := domain.SearchResult{Record: domain.EventRecord{ID: "e1", Title: "Fall Hike", Date: date, Location: "Oakland, CA"}}
	platform := domain.SearchResult{Record: domain.PlatformRecord{ID: "p1", Type: domain.PlatformTypeTech}}
	undated := domain.SearchResult{Record: domain.EventRecord{ID: "e2", Title: "Meetup"}}

	assert.Equal(t, "2026-11-07 - Oakland, CA", Details(&event))
	assert.Equal(t, "Tech", Details(&platform))
	assert.Empty(t, Details(&undated))
}
