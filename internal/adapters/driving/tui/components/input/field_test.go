package input

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pocfinder/internal/adapters/driving/tui/styles"
)

func TestNewField(t *testing.T) {
	s := styles.DefaultStyles()
	field := NewField(s, "Ask: ", "type here")

	require.NotNil(t, field)
	assert.Equal(t, "", field.Value())
	assert.Equal(t, "Ask: ", field.Label())
	assert.True(t, field.Focused())
	assert.Equal(t, DefaultCharLimit, field.CharLimit())
}

func TestNewField_NilStyles(t *testing.T) {
	field := NewField(nil, "x", "")

	require.NotNil(t, field)
	assert.NotNil(t, field.styles)
}

func TestNewChatInput(t *testing.T) {
	field := NewChatInput(nil)

	assert.Contains(t, field.View(), "You")
}

func TestNewSearchInput(t *testing.T) {
	field := NewSearchInput(nil)

	assert.Contains(t, field.View(), "Search")
}

func TestField_Init(t *testing.T) {
	field := NewChatInput(nil)

	// Blink command should be returned
	assert.NotNil(t, field.Init())
}

func TestField_Update(t *testing.T) {
	field := NewChatInput(nil)

	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}}
	updated, _ := field.Update(msg)

	assert.Equal(t, field, updated)
	assert.Equal(t, "a", field.Value())
}

func TestField_Update_RespectsCharLimit(t *testing.T) {
	field := NewChatInput(nil)
	field.SetCharLimit(3)

	for _, r := range "hiking" {
		field.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	assert.Equal(t, "hik", field.Value())
}

func TestField_SetCharLimit_Negative(t *testing.T) {
	field := NewChatInput(nil)

	field.SetCharLimit(-1)

	assert.Equal(t, 0, field.CharLimit())
}

func TestField_SetValue(t *testing.T) {
	field := NewChatInput(nil)

	field.SetValue("hello world")

	assert.Equal(t, "hello world", field.Value())
}

func TestField_SetLabel(t *testing.T) {
	field := NewSearchInput(nil)

	field.SetLabel("Events: ")

	assert.Equal(t, "Events: ", field.Label())
	assert.Contains(t, field.View(), "Events")
}

func TestField_FocusBlur(t *testing.T) {
	field := NewChatInput(nil)

	field.Blur()
	assert.False(t, field.Focused())

	field.Focus()
	assert.True(t, field.Focused())
}

func TestField_SetWidth(t *testing.T) {
	field := NewChatInput(nil)

	field.SetWidth(100)

	assert.Equal(t, 100, field.Width())
}

func TestField_SetWidth_Minimum(t *testing.T) {
	field := NewChatInput(nil)

	field.SetWidth(5)

	assert.Equal(t, 5, field.Width())
	assert.Equal(t, 20, field.textinput.Width)
}

func TestField_Reset(t *testing.T) {
	field := NewChatInput(nil)
	field.SetValue("some text")

	field.Reset()

	assert.Equal(t, "", field.Value())
}
