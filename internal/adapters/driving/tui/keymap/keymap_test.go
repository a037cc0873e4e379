package keymap

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	"github.com/stretchr/testify/assert"
)

func TestDefaultKeyMap_Keys(t *testing.T) {
	km := DefaultKeyMap()

	tests := []struct {
		name    string
		binding key.Binding
		keys    []string
	}{
		{"quit", km.Quit, []string{"ctrl+c", "q"}},
		{"back", km.Back, []string{"esc"}},
		{"send", km.Send, []string{"enter"}},
		{"up", km.Up, []string{"up", "k"}},
		{"down", km.Down, []string{"down", "j"}},
		{"toggle", km.ToggleKind, []string{"tab"}},
		{"page down", km.ScrollDown, []string{"pgdown"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.keys, tt.binding.Keys())
			assert.NotEmpty(t, tt.binding.Help().Desc)
		})
	}
}

func TestKeyMap_HelpSets(t *testing.T) {
	km := DefaultKeyMap()

	assert.Equal(t, []key.Binding{km.Back, km.Quit}, km.ShortHelp())
	assert.Equal(t, km.Send, km.ChatHelp()[0])
	assert.Contains(t, km.SearchHelp(), km.ToggleKind)
	assert.Contains(t, km.ResultsHelp(), km.NewSearch)
	assert.NotContains(t, km.ChatHelp(), km.ToggleKind)
}

func TestMatches(t *testing.T) {
	km := DefaultKeyMap()

	assert.True(t, Matches("k", km.Up))
	assert.True(t, Matches("ctrl+c", km.Quit))
	assert.False(t, Matches("x", km.Quit))
	assert.False(t, Matches("K", km.Up), "matching is case sensitive")

	km.Up.SetEnabled(false)
	assert.False(t, Matches("k", km.Up))
}
