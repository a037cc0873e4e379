// Package keymap holds the key bindings shared by the TUI views.
package keymap

import (
	"slices"

	"github.com/charmbracelet/bubbles/key"
)

// KeyMap lists every binding a view may react to. Views decide which ones
// apply; the *Help methods choose what the status bar advertises.
type KeyMap struct {
	Quit       key.Binding
	Back       key.Binding
	Send       key.Binding
	Up         key.Binding
	Down       key.Binding
	Select     key.Binding
	NewSearch  key.Binding
	ToggleKind key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	Actions    key.Binding
}

func bind(help, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
}

// DefaultKeyMap returns the bindings used unless a caller overrides them.
// ctrl+c quits from anywhere; q only from the menu.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit:       bind("ctrl+c", "quit", "ctrl+c", "q"),
		Back:       bind("esc", "back", "esc"),
		Send:       bind("enter", "send", "enter"),
		Up:         bind("↑/k", "up", "up", "k"),
		Down:       bind("↓/j", "down", "down", "j"),
		Select:     bind("enter", "select", "enter"),
		NewSearch:  bind("n", "new search", "n"),
		ToggleKind: bind("tab", "platforms/events", "tab"),
		ScrollUp:   bind("pgup", "scroll up", "pgup"),
		ScrollDown: bind("pgdn", "scroll down", "pgdown"),
		Actions:    bind("enter", "actions", "enter"),
	}
}

// ShortHelp is shown when a view has nothing more specific.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Back, k.Quit}
}

// ChatHelp is shown under the chat transcript.
func (k *KeyMap) ChatHelp() []key.Binding {
	return []key.Binding{k.Send, k.ScrollUp, k.ScrollDown, k.Back}
}

// SearchHelp is shown while typing a browse query.
func (k *KeyMap) SearchHelp() []key.Binding {
	return []key.Binding{k.Send, k.ToggleKind, k.Back}
}

// ResultsHelp is shown while moving through browse results.
func (k *KeyMap) ResultsHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Actions, k.NewSearch, k.Back}
}

// Matches reports whether keyStr, as produced by tea.KeyMsg.String, is one
// of the binding's keys. Disabled bindings never match.
func Matches(keyStr string, binding key.Binding) bool {
	return binding.Enabled() && slices.Contains(binding.Keys(), keyStr)
}
