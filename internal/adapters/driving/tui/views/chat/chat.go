// Package chat provides the conversation view for the TUI.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/pocfinder/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/pocfinder/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/pocfinder/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/pocfinder/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/pocfinder/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/pocfinder/internal/core/domain"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driving"
)

// ErrNoChatService indicates that no chat service was provided.
var ErrNoChatService = errors.New("chat service is required")

// entryKind tags a transcript line.
type entryKind int

const (
	entryUser entryKind = iota
	entryAssistant
	entryNotice
	entryError
)

type entry struct {
	kind   entryKind
	text   string
	answer domain.Answer
}

// View is the chat transcript, the message input and the status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.Field
	viewport  viewport.Model
	spinner   spinner.Model
	statusbar *status.Bar

	chat      driving.ChatService
	memory    driving.ConversationMemory
	providers []string
	ctx       context.Context

	entries []entry
	waiting bool
	width   int
	height  int
	ready   bool
	err     error
}

// NewView creates a chat view over one conversation window.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	chat driving.ChatService,
	memory driving.ConversationMemory,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Subtitle

	bar := status.NewBar(s, km)
	bar.SetHints(km.ChatHelp())

	v := &View{
		styles:    s,
		keymap:    km,
		input:     input.NewChatInput(s),
		viewport:  viewport.New(80, 16),
		spinner:   sp,
		statusbar: bar,
		chat:      chat,
		memory:    memory,
		ctx:       context.Background(),
		width:     80,
		height:    24,
	}
	v.refresh()
	return v
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// SetProviders names the provider chain shown in the header.
func (v *View) SetProviders(providers []string) {
	v.providers = providers
}

// SetMaxQueryLength caps the message input.
func (v *View) SetMaxQueryLength(n int) {
	v.input.SetCharLimit(n)
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return tea.Batch(v.input.Focus(), v.input.Init())
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.AskRequested:
		return v, v.submit(msg.Question)

	case messages.AnswerReceived:
		v.handleAnswer(msg)
		return v, nil

	case spinner.TickMsg:
		if !v.waiting {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyEsc:
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}

	case keymap.Matches(msg.String(), v.keymap.ScrollUp),
		keymap.Matches(msg.String(), v.keymap.ScrollDown):
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return v, cmd

	case msg.Type == tea.KeyEnter:
		line := strings.TrimSpace(v.input.Value())
		if line == "" || v.waiting {
			return v, nil
		}
		v.input.Reset()
		return v, v.submit(line)
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// submit runs a chat command or starts an Ask.
func (v *View) submit(line string) tea.Cmd {
	command, isCommand, ok := domain.ParseChatCommand(line)
	if isCommand {
		return v.runCommand(command, ok)
	}
	if v.waiting {
		return nil
	}

	v.entries = append(v.entries, entry{kind: entryUser, text: line})
	v.waiting = true
	v.err = nil
	v.statusbar.SetState(status.StateThinking)
	v.refresh()

	return tea.Batch(v.spinner.Tick, v.ask(line))
}

func (v *View) runCommand(command domain.ChatCommand, ok bool) tea.Cmd {
	if !ok {
		v.notice(fmt.Sprintf("Unknown command %s.\n%s", command, domain.ChatHelp))
		return nil
	}

	switch command {
	case domain.ChatCommandQuit:
		return tea.Quit
	case domain.ChatCommandReset:
		if v.memory != nil {
			v.memory.Clear()
		}
		v.entries = nil
		v.notice("Conversation cleared.")
		return func() tea.Msg { return messages.ConversationReset{} }
	case domain.ChatCommandUsage:
		if v.chat != nil {
			v.notice(v.chat.Usage().Summary(domain.HaikuPricing))
		}
	case domain.ChatCommandHelp:
		v.notice(domain.ChatHelp)
	}
	return nil
}

// ask calls the chat service off the update loop.
func (v *View) ask(question string) tea.Cmd {
	chat, memory, ctx := v.chat, v.memory, v.ctx
	return func() tea.Msg {
		if chat == nil {
			return messages.AnswerReceived{Question: question, Err: ErrNoChatService}
		}
		answer, err := chat.Ask(ctx, memory, question)
		return messages.AnswerReceived{Question: question, Answer: answer, Err: err}
	}
}

func (v *View) handleAnswer(msg messages.AnswerReceived) {
	v.waiting = false
	if msg.Err != nil {
		v.err = msg.Err
		v.entries = append(v.entries, entry{kind: entryError, text: describeError(msg.Err)})
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		v.refresh()
		return
	}

	v.entries = append(v.entries, entry{kind: entryAssistant, text: msg.Answer.Text, answer: msg.Answer})
	v.statusbar.SetState(status.StateReady)
	switch {
	case msg.Answer.Degraded:
		v.statusbar.SetState(status.StateDegraded)
		v.statusbar.SetMessage("Retrieval unavailable; answer not checked against the database")
	case msg.Answer.ProviderUsed != "":
		v.statusbar.SetMessage(fmt.Sprintf("%s | answered by %s", msg.Answer.Mode.Label(), msg.Answer.ProviderUsed))
	default:
		v.statusbar.SetMessage("")
	}
	v.refresh()
}

func (v *View) notice(text string) {
	v.entries = append(v.entries, entry{kind: entryNotice, text: text})
	v.refresh()
}

// describeError words core errors for the transcript.
func describeError(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		return "Please type a question first."
	case errors.Is(err, domain.ErrQueryTooLong):
		return "That question is too long. Please shorten it and try again."
	case errors.Is(err, domain.ErrAllProvidersExhausted):
		return "All AI providers are busy or unavailable right now. Please try again in a moment."
	case errors.Is(err, domain.ErrNoProviders):
		return "No AI provider is available. Add one with 'pocfinder settings provider'."
	case errors.Is(err, domain.ErrRetrievalUnavailable):
		return "The platform database is unavailable right now."
	case errors.Is(err, context.Canceled):
		return "Cancelled."
	default:
		return err.Error()
	}
}

// refresh re-renders the transcript into the viewport and scrolls to the end.
func (v *View) refresh() {
	v.viewport.SetContent(v.renderTranscript())
	v.viewport.GotoBottom()
}

func (v *View) renderTranscript() string {
	if len(v.entries) == 0 {
		return v.styles.Muted.Render(
			"Ask about communities for People of Color in tech and the outdoors,\n" +
				"or about their upcoming events. Type /help for commands.")
	}

	wrap := lipgloss.NewStyle().Width(max(v.width-2, 20))
	blocks := make([]string, 0, len(v.entries))
	for _, e := range v.entries {
		switch e.kind {
		case entryUser:
			blocks = append(blocks, v.styles.User.Render("You: ")+wrap.Render(e.text))
		case entryAssistant:
			block := v.styles.Assistant.Render("pocfinder: ") + wrap.Render(e.text) + v.renderSources(e.answer)
			if e.answer.Degraded {
				block += "\n" + v.styles.Notice.Render("(not checked against the platform database)")
			}
			blocks = append(blocks, block)
		case entryNotice:
			blocks = append(blocks, v.styles.Notice.Render(e.text))
		case entryError:
			blocks = append(blocks, v.styles.Error.Render(e.text))
		}
	}
	return strings.Join(blocks, "\n\n")
}

func (v *View) renderSources(answer domain.Answer) string {
	if len(answer.Sources) == 0 {
		return ""
	}
	lines := make([]string, 0, len(answer.Sources)+1)
	lines = append(lines, "", v.styles.Subtitle.Render("Sources:"))
	for i, src := range answer.Sources {
		line := fmt.Sprintf("  [%d] %s", i+1, src.Name)
		if src.URL != "" {
			line += " - " + src.URL
		}
		lines = append(lines, v.styles.Muted.Render(line))
	}
	return strings.Join(lines, "\n")
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	header := v.styles.Title.Render("pocfinder")
	if len(v.providers) > 0 {
		header += "  " + v.styles.Muted.Render(strings.Join(v.providers, " -> "))
	}

	prompt := v.input.View()
	if v.waiting {
		prompt = v.spinner.View() + v.styles.Muted.Render(" Thinking...")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		v.viewport.View(),
		"",
		prompt,
		v.statusbar.View(),
	)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)

	// header, blank, blank, prompt (3 lines with border), status
	v.viewport.Width = width
	v.viewport.Height = max(height-7, 3)
	v.refresh()
}

// Reset clears the transcript and the conversation memory.
func (v *View) Reset() {
	if v.memory != nil {
		v.memory.Clear()
	}
	v.entries = nil
	v.waiting = false
	v.err = nil
	v.input.Reset()
	v.statusbar.Clear()
	v.refresh()
}

// Waiting reports whether an answer is outstanding.
func (v *View) Waiting() bool {
	return v.waiting
}

// Transcript returns the rendered transcript.
func (v *View) Transcript() string {
	return v.renderTranscript()
}

// Err returns the last turn's error, if any.
func (v *View) Err() error {
	return v.err
}

// Input returns the current input value.
func (v *View) Input() string {
	return v.input.Value()
}
