// Package menu is the TUI's start screen.
package menu

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/pocfinder/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/pocfinder/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/pocfinder/internal/adapters/driving/tui/styles"
)

const tagline = "Communities for People of Color in tech and the outdoors"

// Item is a menu entry. Choosing an item with Quit set exits.
type Item struct {
	Label string
	Hint  string
	View  messages.ViewType
	Quit  bool
}

// DefaultItems are the start screen entries, in display order.
func DefaultItems() []Item {
	return []Item{
		{Label: "Chat", Hint: "Ask about communities and events in plain language", View: messages.ViewChat},
		{Label: "Browse platforms and events", Hint: "Search the catalog directly, without an AI answer", View: messages.ViewSearch},
		{Label: "Help", Hint: "Keys and chat commands", View: messages.ViewHelp},
		{Label: "Quit", Quit: true},
	}
}

// View lists the items with a cursor; only the highlighted item shows its hint.
type View struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	items  []Item

	selected      int
	width, height int
	ready         bool
}

// NewView creates the start screen. Nil arguments use the defaults.
func NewView(s *styles.Styles, km *keymap.KeyMap) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{styles: s, keymap: km, items: DefaultItems(), width: 80, height: 24}
}

func (v *View) Init() tea.Cmd { return nil }

func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
	case tea.KeyMsg:
		k, km := msg.String(), v.keymap
		switch {
		case keymap.Matches(k, km.Up):
			v.selected = max(v.selected-1, 0)
		case keymap.Matches(k, km.Down):
			v.selected = min(v.selected+1, len(v.items)-1)
		case keymap.Matches(k, km.Select):
			return v, v.activate(v.items[v.selected])
		case keymap.Matches(k, km.Quit):
			return v, tea.Quit
		}
	}
	return v, nil
}

func (v *View) activate(item Item) tea.Cmd {
	if item.Quit {
		return tea.Quit
	}
	return func() tea.Msg { return messages.ViewChanged{View: item.View} }
}

func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	lines := []string{v.styles.Title.Render("pocfinder"), v.styles.Muted.Render(tagline), ""}
	for i, item := range v.items {
		if i != v.selected {
			lines = append(lines, "  "+v.styles.Normal.Render(item.Label))
			continue
		}
		lines = append(lines, "> "+v.styles.Subtitle.Render(item.Label))
		if item.Hint != "" {
			lines = append(lines, "    "+v.styles.Muted.Render(item.Hint))
		}
	}
	km := v.keymap
	lines = append(lines, "", v.styles.Help.Render(hints(km.Up, km.Down, km.Select, km.Quit)))
	return strings.Join(lines, "\n")
}

func hints(bindings ...key.Binding) string {
	parts := make([]string, len(bindings))
	for i, b := range bindings {
		parts[i] = "[" + b.Help().Key + "] " + b.Help().Desc
	}
	return strings.Join(parts, "  ")
}

// SetDimensions records the terminal size and marks the view ready.
func (v *View) SetDimensions(width, height int) {
	v.width, v.height = width, height
	v.ready = true
}

// Selected returns the cursor index.
func (v *View) Selected() int { return v.selected }

// Items returns the entries.
func (v *View) Items() []Item { return v.items }
