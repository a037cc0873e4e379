package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/pocfinder/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/pocfinder/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/pocfinder/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/pocfinder/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/pocfinder/internal/adapters/driving/tui/views/menu"
	"github.com/custodia-labs/pocfinder/internal/adapters/driving/tui/views/search"
	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

var _ tea.Model = (*App)(nil)

// App routes terminal events between the menu, chat, browse and help
// screens. It starts on the chat screen.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	menuView   *menu.View
	chatView   *chat.View
	searchView *search.View

	currentView   messages.ViewType
	err           error
	width, height int
	ready         bool
}

// NewApp validates ports and builds every screen up front.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	chatView := chat.NewView(s, km, ports.Chat, ports.Memory)
	chatView.SetProviders(ports.Providers)

	return &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		keymap:      km,
		menuView:    menu.NewView(s, km),
		chatView:    chatView,
		searchView:  search.NewView(s, km, ports.Catalog),
		currentView: messages.ViewChat,
	}, nil
}

// WithContext sets the context that bounds service calls and the program.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.chatView.WithContext(ctx)
	a.searchView.WithContext(ctx)
	return a
}

// SetMaxQueryLength caps the chat input.
func (a *App) SetMaxQueryLength(n int) {
	a.chatView.SetMaxQueryLength(n)
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(tea.SetWindowTitle("pocfinder"), a.chatView.Init())
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return a, tea.Quit
		}
		if a.currentView == messages.ViewHelp {
			if keymap.Matches(msg.String(), a.keymap.Back) {
				a.currentView = messages.ViewMenu
			}
			return a, nil
		}
		return a, a.forward(msg)

	case messages.ViewChanged:
		a.currentView = msg.View
		switch msg.View {
		case messages.ViewSearch:
			a.searchView.Reset()
			return a, a.searchView.Init()
		case messages.ViewChat:
			return a, a.chatView.Init()
		}
		return a, nil

	case messages.AskRequested:
		// Questions raised while browsing continue in the chat.
		a.currentView = messages.ViewChat
		return a, a.forward(msg)

	case messages.AnswerReceived:
		a.err = msg.Err
		var cmd tea.Cmd
		a.chatView, cmd = a.chatView.Update(msg)
		return a, cmd

	case messages.SearchCompleted:
		var cmd tea.Cmd
		a.searchView, cmd = a.searchView.Update(msg)
		a.err = a.searchView.Err()
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		if a.currentView != messages.ViewSearch {
			return a, nil
		}
		return a, a.forward(msg)
	}

	// Spinner ticks, cursor blinks and the like go to the active screen.
	return a, a.forward(msg)
}

// forward hands msg to the active screen.
func (a *App) forward(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewChat:
		a.chatView, cmd = a.chatView.Update(msg)
	case messages.ViewSearch:
		a.searchView, cmd = a.searchView.Update(msg)
		a.err = a.searchView.Err()
	}
	return cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}
	switch a.currentView {
	case messages.ViewChat:
		return a.chatView.View()
	case messages.ViewSearch:
		return a.searchView.View()
	case messages.ViewHelp:
		return a.helpView()
	default:
		return a.menuView.View()
	}
}

// helpView lists the bindings of each screen, then the chat commands.
func (a *App) helpView() string {
	km := a.keymap
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Keys") + "\n")
	section := func(title string, bindings ...key.Binding) {
		b.WriteString("\n" + a.styles.Subtitle.Render(title) + "\n")
		for _, k := range bindings {
			fmt.Fprintf(&b, "  %-10s %s\n", k.Help().Key, k.Help().Desc)
		}
	}
	section("Everywhere", km.Back, km.Quit)
	section("Menu", km.Up, km.Down, km.Select)
	section("Chat", km.ChatHelp()...)
	section("Browse", append(km.SearchHelp(), km.ResultsHelp()...)...)

	b.WriteString("\n" + a.styles.Subtitle.Render("Chat commands") + "\n")
	b.WriteString(domain.ChatHelp + "\n\n")
	b.WriteString(a.styles.Muted.Render("[esc] back to menu"))
	return b.String()
}

// Run starts the program in the alternate screen and blocks until it exits.
func (a *App) Run() error {
	_, err := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx)).Run()
	return err
}

// CurrentView returns the active screen.
func (a *App) CurrentView() messages.ViewType { return a.currentView }

// Err returns the last error reported by a screen or the chat service.
func (a *App) Err() error { return a.err }

// Ready reports whether a window size has been received.
func (a *App) Ready() bool { return a.ready }

// SetDimensions resizes every screen.
func (a *App) SetDimensions(width, height int) {
	a.width, a.height = width, height
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.chatView.SetDimensions(width, height)
	a.searchView.SetDimensions(width, height)
}
