package search

import (
	"strings"

	"github.com/custodia-labs/pocfinder/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

// Entries of the per-result action menu.
const (
	actionAsk    = "Ask about this"
	actionEvents = "Show upcoming events"
	actionCancel = "Cancel"
)

// actionMenu is the small overlay opened on a result. Only platforms offer
// the events action.
type actionMenu struct {
	actions  []string
	selected int
	result   domain.SearchResult
}

func newActionMenu(result domain.SearchResult) *actionMenu {
	actions := []string{actionAsk}
	if _, ok := result.Platform(); ok {
		actions = append(actions, actionEvents)
	}
	return &actionMenu{actions: append(actions, actionCancel), result: result}
}

func (m *actionMenu) move(delta int) {
	m.selected = min(max(m.selected+delta, 0), len(m.actions)-1)
}

func (m *actionMenu) current() string {
	return m.actions[m.selected]
}

func (m *actionMenu) view(s *styles.Styles) string {
	lines := make([]string, len(m.actions))
	for i, a := range m.actions {
		if i == m.selected {
			lines[i] = s.Selected.Render("> " + a)
		} else {
			lines[i] = s.Normal.Render("  " + a)
		}
	}
	return s.Border.Padding(0, 1).Render(strings.Join(lines, "\n"))
}
