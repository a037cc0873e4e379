// Package search is the browse screen: query the catalog directly, step
// through ranked platforms or events, and hand a result to the chat.
package search

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/pocfinder/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/pocfinder/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/pocfinder/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/pocfinder/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/pocfinder/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/pocfinder/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/pocfinder/internal/core/domain"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driving"
)

// ErrNoCatalogService is reported when a search runs without a catalog.
var ErrNoCatalogService = errors.New("catalog service is required")

// defaultLimit is how many records one browse query returns.
const defaultLimit = 10

// View is the browse screen. Keys go to the query field until a search
// completes, then to the result list, then to the action menu when open.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.Field
	list      *list.ResultList
	statusbar *status.Bar

	catalog driving.CatalogService
	ctx     context.Context

	kind       domain.RecordKind
	platformID string // set when listing one platform's events
	focusInput bool
	actionMenu *actionMenu

	width, height int
	ready         bool
	err           error
}

// NewView creates the browse screen. Nil styles or keymap use the defaults;
// a nil catalog makes every search fail with ErrNoCatalogService.
func NewView(s *styles.Styles, km *keymap.KeyMap, catalog driving.CatalogService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	v := &View{
		styles:     s,
		keymap:     km,
		input:      input.NewSearchInput(s),
		list:       list.NewResultList(s),
		statusbar:  status.NewBar(s, km),
		catalog:    catalog,
		ctx:        context.Background(),
		kind:       domain.RecordKindPlatform,
		focusInput: true,
		width:      80,
		height:     24,
	}
	v.syncMode()
	return v
}

// WithContext sets the context searches run under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init starts the cursor blinking.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles keys, search results and errors.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil
	case tea.KeyMsg:
		return v, v.handleKey(msg.String(), msg)
	case messages.SearchCompleted:
		v.handleSearchCompleted(msg)
		return v, nil
	case messages.ErrorOccurred:
		v.fail(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKey(k string, msg tea.KeyMsg) tea.Cmd {
	km := v.keymap
	switch {
	case v.actionMenu != nil:
		return v.handleMenuKey(k)

	case keymap.Matches(k, km.Back):
		return func() tea.Msg { return messages.ViewChanged{View: messages.ViewMenu} }

	case v.focusInput:
		switch {
		case keymap.Matches(k, km.ToggleKind):
			v.ToggleKind()
		case keymap.Matches(k, km.Send):
			return v.submit()
		default:
			v.input, _ = v.input.Update(msg)
		}

	case keymap.Matches(k, km.Up):
		v.list.MoveUp()
	case keymap.Matches(k, km.Down):
		v.list.MoveDown()
	case keymap.Matches(k, km.Actions):
		if r := v.list.SelectedResult(); r != nil {
			v.actionMenu = newActionMenu(*r)
		}
	case keymap.Matches(k, km.NewSearch):
		v.focusInput = true
		v.input.Focus()
		v.input.SetValue("")
		v.statusbar.Clear()
		v.syncMode()
	}
	return nil
}

func (v *View) handleMenuKey(k string) tea.Cmd {
	switch {
	case keymap.Matches(k, v.keymap.Up):
		v.actionMenu.move(-1)
	case keymap.Matches(k, v.keymap.Down):
		v.actionMenu.move(1)
	case keymap.Matches(k, v.keymap.Back):
		v.actionMenu = nil
	case keymap.Matches(k, v.keymap.Select):
		m := v.actionMenu
		v.actionMenu = nil
		return v.runAction(m.current(), m.result)
	}
	return nil
}

func (v *View) submit() tea.Cmd {
	query := v.input.Value()
	if query == "" {
		return nil
	}
	v.focusInput = false
	v.input.Blur()
	v.statusbar.SetState(status.StateSearching)
	return v.search(query)
}

func (v *View) runAction(action string, result domain.SearchResult) tea.Cmd {
	if result.Record == nil {
		return nil
	}
	name := result.Record.DisplayName()

	switch action {
	case actionAsk:
		return func() tea.Msg { return messages.AskRequested{Question: "Tell me about " + name} }
	case actionEvents:
		v.kind = domain.RecordKindEvent
		v.platformID = result.Record.RecordID()
		v.syncMode()
		v.statusbar.SetState(status.StateSearching)
		return v.search("upcoming events " + name)
	}
	return nil
}

// search captures the current mode so a later toggle cannot change a
// query already in flight.
func (v *View) search(query string) tea.Cmd {
	catalog, ctx, kind, platformID := v.catalog, v.ctx, v.kind, v.platformID
	return func() tea.Msg {
		if catalog == nil {
			return messages.ErrorOccurred{Err: ErrNoCatalogService}
		}
		var (
			results []domain.SearchResult
			err     error
		)
		if kind == domain.RecordKindEvent {
			results, err = catalog.SearchEvents(ctx, query, defaultLimit, platformID)
		} else {
			results, err = catalog.SearchPlatforms(ctx, query, defaultLimit, domain.SearchFilter{})
		}
		return messages.SearchCompleted{Kind: kind, Results: results, Err: err}
	}
}

func (v *View) handleSearchCompleted(msg messages.SearchCompleted) {
	if msg.Err != nil {
		v.fail(msg.Err)
		return
	}
	v.err = nil
	v.list.SetResults(msg.Results)
	v.statusbar.SetState(status.StateResults)
	v.statusbar.SetResultCount(len(msg.Results))
	v.focusInput = false
	v.input.Blur()
	v.syncMode()
}

func (v *View) fail(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(err.Error())
}

// ToggleKind switches between platform and event search and drops any
// platform restriction.
func (v *View) ToggleKind() {
	if v.kind == domain.RecordKindEvent {
		v.kind = domain.RecordKindPlatform
	} else {
		v.kind = domain.RecordKindEvent
	}
	v.platformID = ""
	v.syncMode()
}

// Kind returns the record kind being searched.
func (v *View) Kind() domain.RecordKind { return v.kind }

// PlatformID returns the platform events are restricted to, if any.
func (v *View) PlatformID() string { return v.platformID }

func (v *View) syncMode() {
	label := "Platforms: "
	if v.kind == domain.RecordKindEvent {
		label = "Events: "
	}
	v.input.SetLabel(label)

	if v.focusInput {
		v.statusbar.SetHints(v.keymap.SearchHelp())
	} else {
		v.statusbar.SetHints(nil)
	}
}

// View renders the header, query field, results, action menu and status bar.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	header := v.styles.Title.Render("Browse the catalog")
	if v.platformID != "" {
		header += "  " + v.styles.Muted.Render("events for "+v.platformID)
	}
	parts := []string{header, "", v.input.View(), ""}
	if v.err != nil {
		parts = append(parts, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}
	parts = append(parts, v.list.View())
	if v.actionMenu != nil {
		parts = append(parts, "", v.actionMenu.view(v.styles))
	}
	parts = append(parts, "", v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// SetDimensions sizes the screen; the list gets what the header, query
// field and status bar leave.
func (v *View) SetDimensions(width, height int) {
	v.width, v.height = width, height
	v.ready = true
	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-10)
	v.statusbar.SetWidth(width)
}

// Width returns the screen width.
func (v *View) Width() int { return v.width }

// Height returns the screen height.
func (v *View) Height() int { return v.height }

// Ready reports whether dimensions have been set.
func (v *View) Ready() bool { return v.ready }

// Query returns the text in the query field.
func (v *View) Query() string { return v.input.Value() }

// SetQuery replaces the text in the query field.
func (v *View) SetQuery(query string) { v.input.SetValue(query) }

// Results returns the listed results.
func (v *View) Results() []domain.SearchResult { return v.list.Results() }

// SelectedIndex returns the list cursor.
func (v *View) SelectedIndex() int { return v.list.Selected() }

// Err returns the last search error.
func (v *View) Err() error { return v.err }

// Reset returns to an empty platform query.
func (v *View) Reset() {
	v.focusInput = true
	v.input.Focus()
	v.input.SetValue("")
	v.list.SetResults(nil)
	v.actionMenu = nil
	v.err = nil
	v.kind = domain.RecordKindPlatform
	v.platformID = ""
	v.statusbar.Clear()
	v.syncMode()
}

// InputFocused reports whether keys go to the query field.
func (v *View) InputFocused() bool { return v.focusInput }
