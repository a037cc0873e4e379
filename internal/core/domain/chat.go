package domain

import "strings"

// Mode is the retrieval mode chosen for a turn.
type Mode string

// Retrieval modes.
const (
	// ModePlatform searches the platform collection. The default.
	ModePlatform Mode = "platform"

	// ModeEvent searches upcoming events.
	ModeEvent Mode = "event"
)

// String returns the string representation.
func (m Mode) String() string {
	return string(m)
}

// Label returns a capitalised name for display.
func (m Mode) Label() string {
	if m == ModeEvent {
		return "Event"
	}
	return "Platform"
}

// SourceRef identifies a record surfaced to the LLM for an answer.
type SourceRef struct {
	ID    string
	Kind  RecordKind
	Name  string
	URL   string
	Score float64
}

// NewSourceRef builds a SourceRef from a ranked result.
func NewSourceRef(r SearchResult) SourceRef {
	return SourceRef{
		ID:    r.Record.RecordID(),
		Kind:  r.Record.Kind(),
		Name:  r.Record.DisplayName(),
		URL:   r.Record.Link(),
		Score: r.CombinedScore,
	}
}

// Answer is the result of one chat turn.
type Answer struct {
	Text string

	// Sources are the records placed in the prompt, in order.
	Sources []SourceRef

	Mode Mode

	// Degraded is set when retrieval was unavailable and the answer is unverified.
	Degraded bool

	ProviderUsed string
	Usage        TokenUsage
}

// ChatCommand is an in-session command typed instead of a question.
type ChatCommand string

// Chat commands.
const (
	ChatCommandReset ChatCommand = "/reset"
	ChatCommandUsage ChatCommand = "/usage"
	ChatCommandHelp  ChatCommand = "/help"
	ChatCommandQuit  ChatCommand = "/quit"
)

// ParseChatCommand recognises a chat command. Input not starting with '/'
// is a question; ok is false for it and for unknown commands.
func ParseChatCommand(input string) (cmd ChatCommand, isCommand, ok bool) {
	input = strings.ToLower(strings.TrimSpace(input))
	if !strings.HasPrefix(input, "/") {
		return "", false, false
	}
	switch input {
	case "/reset", "/clear":
		return ChatCommandReset, true, true
	case "/usage", "/stats":
		return ChatCommandUsage, true, true
	case "/help", "/?":
		return ChatCommandHelp, true, true
	case "/quit", "/exit", "/q":
		return ChatCommandQuit, true, true
	default:
		return ChatCommand(input), true, false
	}
}

// ChatHelp lists the chat commands for display.
const ChatHelp = `Commands:
  /reset  forget the conversation so far
  /usage  show token usage and estimated cost
  /help   show this help
  /quit   leave the chat`
