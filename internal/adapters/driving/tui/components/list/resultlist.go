// Package list renders ranked retrieval results as a scrollable list.
package list

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/pocfinder/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

// rowHeight is the number of lines one result occupies, link line included.
const rowHeight = 3

// ResultList shows search results with a movable cursor. The window scrolls
// so the cursor stays visible.
type ResultList struct {
	styles  *styles.Styles
	results []domain.SearchResult
	cursor  int
	offset  int
	width   int
	height  int
}

// NewResultList creates an empty list. A nil s uses the default styles.
func NewResultList(s *styles.Styles) *ResultList {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &ResultList{styles: s, width: 80, height: 10}
}

// SetResults replaces the results and resets the cursor.
func (r *ResultList) SetResults(results []domain.SearchResult) {
	r.results = results
	r.cursor = 0
	r.offset = 0
}

// Results returns the current results.
func (r *ResultList) Results() []domain.SearchResult { return r.results }

// Selected returns the cursor position.
func (r *ResultList) Selected() int { return r.cursor }

// SelectedResult returns the result under the cursor, or nil for an empty list.
func (r *ResultList) SelectedResult() *domain.SearchResult {
	if r.cursor >= len(r.results) {
		return nil
	}
	return &r.results[r.cursor]
}

// MoveUp moves the cursor up one row.
func (r *ResultList) MoveUp() { r.move(-1) }

// MoveDown moves the cursor down one row.
func (r *ResultList) MoveDown() { r.move(1) }

func (r *ResultList) move(delta int) {
	if len(r.results) == 0 {
		return
	}
	r.cursor = min(max(r.cursor+delta, 0), len(r.results)-1)

	visible := r.visibleRows()
	switch {
	case r.cursor < r.offset:
		r.offset = r.cursor
	case r.cursor >= r.offset+visible:
		r.offset = r.cursor - visible + 1
	}
}

// SetDimensions sets the area available to the list.
func (r *ResultList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

func (r *ResultList) visibleRows() int {
	// Two lines go to the header.
	return max((r.height-2)/rowHeight, 1)
}

// View renders the header and the visible window of results.
func (r *ResultList) View() string {
	if len(r.results) == 0 {
		return r.styles.Muted.Render("No matching platforms or events.")
	}

	end := min(r.offset+r.visibleRows(), len(r.results))
	header := fmt.Sprintf("%d results", len(r.results))
	if r.offset > 0 || end < len(r.results) {
		header += fmt.Sprintf(" (showing %d-%d)", r.offset+1, end)
	}

	lines := []string{r.styles.Subtitle.Render(header), ""}
	for i := r.offset; i < end; i++ {
		lines = append(lines, r.renderRow(i))
	}
	return strings.Join(lines, "\n")
}

func (r *ResultList) renderRow(i int) string {
	res := r.results[i]
	name := "(unnamed record)"
	if res.Record != nil && res.Record.DisplayName() != "" {
		name = res.Record.DisplayName()
	}

	rank := res.Rank
	if rank == 0 {
		rank = i + 1
	}
	nameWidth := max(r.width-16, 10)
	head := fmt.Sprintf("[%d] %-*s %.2f", rank, nameWidth, clip(name, nameWidth), res.CombinedScore)

	var b strings.Builder
	if i == r.cursor {
		b.WriteString(r.styles.Selected.Render("> " + head))
	} else {
		b.WriteString(r.styles.Normal.Render("  " + head))
	}

	detailWidth := max(r.width-6, 20)
	if res.Record != nil && res.Record.Link() != "" {
		b.WriteString("\n" + r.styles.Subtitle.Render("      "+clip(res.Record.Link(), detailWidth)))
	}
	if d := Details(&res); d != "" {
		b.WriteString("\n" + r.styles.Muted.Render("      "+clip(d, detailWidth)))
	}
	return b.String()
}

// Details summarises a result on one line: type and focus area for a
// platform, date and location for an event.
func Details(result *domain.SearchResult) string {
	var parts []string
	if p, ok := result.Platform(); ok {
		parts = append(parts, string(p.Type), p.FocusArea)
	}
	if e, ok := result.Event(); ok {
		parts = append(parts, e.DateString(), e.Location)
	}

	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " - ")
}

func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
