// Package input provides text input components for the TUI.
package input

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/pocfinder/internal/adapters/driving/tui/styles"
)

// DefaultCharLimit matches the default retrieval query length cap.
const DefaultCharLimit = 1000

// Field wraps a bubbles textinput with a label and the TUI styling.
type Field struct {
	textinput textinput.Model
	styles    *styles.Styles
	label     string
	width     int
}

// NewField creates a focused input labelled label.
func NewField(s *styles.Styles, label, placeholder string) *Field {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Focus()
	ti.CharLimit = DefaultCharLimit
	ti.Width = 50

	return &Field{
		textinput: ti,
		styles:    s,
		label:     label,
		width:     50,
	}
}

// NewChatInput creates the message input for the chat view.
func NewChatInput(s *styles.Styles) *Field {
	return NewField(s, "You: ", "Ask about communities or upcoming events...")
}

// NewSearchInput creates the query input for the browse view.
func NewSearchInput(s *styles.Styles) *Field {
	return NewField(s, "Search: ", "Enter search query...")
}

// Init initialises the input.
func (f *Field) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input messages.
func (f *Field) Update(msg tea.Msg) (*Field, tea.Cmd) {
	var cmd tea.Cmd
	f.textinput, cmd = f.textinput.Update(msg)
	return f, cmd
}

// View renders the labelled input.
func (f *Field) View() string {
	label := f.styles.Title.Render(f.label)
	field := f.styles.InputField.Render(f.textinput.View())
	//nolint:misspell // lipgloss.Center is the correct constant from the library
	return lipgloss.JoinHorizontal(lipgloss.Center, label, field)
}

// Value returns the current input value.
func (f *Field) Value() string {
	return f.textinput.Value()
}

// SetValue sets the input value.
func (f *Field) SetValue(value string) {
	f.textinput.SetValue(value)
}

// Label returns the label shown before the input.
func (f *Field) Label() string {
	return f.label
}

// SetLabel replaces the label.
func (f *Field) SetLabel(label string) {
	f.label = label
}

// SetCharLimit caps the input length. Zero or less means no limit.
func (f *Field) SetCharLimit(n int) {
	if n < 0 {
		n = 0
	}
	f.textinput.CharLimit = n
}

// CharLimit returns the input length cap.
func (f *Field) CharLimit() int {
	return f.textinput.CharLimit
}

// Focus sets focus on the input.
func (f *Field) Focus() tea.Cmd {
	return f.textinput.Focus()
}

// Blur removes focus from the input.
func (f *Field) Blur() {
	f.textinput.Blur()
}

// Focused returns whether the input is focused.
func (f *Field) Focused() bool {
	return f.textinput.Focused()
}

// SetWidth sets the width of the input.
func (f *Field) SetWidth(width int) {
	f.width = width
	// Account for label and padding
	inputWidth := width - lipgloss.Width(f.label) - 6
	if inputWidth < 20 {
		inputWidth = 20
	}
	f.textinput.Width = inputWidth
}

// Width returns the current width.
func (f *Field) Width() int {
	return f.width
}

// Reset clears the input.
func (f *Field) Reset() {
	f.textinput.Reset()
}
