// Package status provides the one-line status bar shown under every view.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/pocfinder/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/pocfinder/internal/adapters/driving/tui/styles"
)

// State is what the bar reports on its left side.
type State string

const (
	StateReady     State = "ready"
	StateThinking  State = "thinking"
	StateSearching State = "searching"
	StateResults   State = "results"
	StateDegraded  State = "degraded"
	StateError     State = "error"
)

// Bar shows the current state on the left and key hints on the right.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	hints   []key.Binding
	state   State
	message string
	results int
	width   int
}

// NewBar creates a status bar. Nil arguments fall back to the defaults.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{styles: s, keymap: km, state: StateReady, width: 80}
}

// View renders the bar at its configured width.
func (s *Bar) View() string {
	left, right := s.status(), s.keyHints()
	gap := max(s.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return s.styles.StatusBar.Width(s.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (s *Bar) status() string {
	switch s.state {
	case StateThinking:
		return s.styles.Muted.Render("Thinking...")
	case StateSearching:
		return s.styles.Muted.Render("Searching...")
	case StateDegraded:
		return s.styles.Notice.Render(orDefault(s.message, "Retrieval unavailable"))
	case StateError:
		if s.message == "" {
			return s.styles.Error.Render("Error")
		}
		return s.styles.Error.Render("Error: " + s.message)
	}

	switch {
	case s.results == 1:
		return s.styles.Normal.Render("1 platform")
	case s.results > 1:
		return s.styles.Normal.Render(fmt.Sprintf("%d platforms", s.results))
	}
	return s.styles.Muted.Render(orDefault(s.message, "Ready"))
}

func (s *Bar) keyHints() string {
	bindings := s.hints
	switch {
	case bindings != nil:
	case s.state == StateResults && s.results > 0:
		bindings = s.keymap.ResultsHelp()
	default:
		bindings = s.keymap.ShortHelp()
	}

	parts := make([]string, len(bindings))
	for i, b := range bindings {
		parts[i] = b.Help().Key + " " + b.Help().Desc
	}
	return s.styles.Help.Render(strings.Join(parts, " · "))
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// SetHints pins the hints shown on the right. Nil restores the
// state-dependent defaults.
func (s *Bar) SetHints(bindings []key.Binding) { s.hints = bindings }

// SetState sets the reported state.
func (s *Bar) SetState(state State) { s.state = state }

// State returns the reported state.
func (s *Bar) State() State { return s.state }

// SetMessage sets the text shown with the ready, degraded and error states.
func (s *Bar) SetMessage(message string) { s.message = message }

// Message returns the current message.
func (s *Bar) Message() string { return s.message }

// SetResultCount sets how many platforms the last search returned.
func (s *Bar) SetResultCount(count int) { s.results = count }

// SetWidth sets the rendered width.
func (s *Bar) SetWidth(width int) { s.width = width }

// Clear returns the bar to the ready state.
func (s *Bar) Clear() {
	s.state = StateReady
	s.message = ""
	s.results = 0
}
