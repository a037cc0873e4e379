// Package messages holds the tea.Msg values the TUI views exchange.
package messages

import "github.com/custodia-labs/pocfinder/internal/core/domain"

// ViewType names a top-level screen.
type ViewType int

const (
	ViewMenu ViewType = iota
	ViewChat
	ViewSearch
	ViewHelp
)

var viewNames = [...]string{ViewMenu: "menu", ViewChat: "chat", ViewSearch: "search", ViewHelp: "help"}

func (v ViewType) String() string {
	if v < 0 || int(v) >= len(viewNames) {
		return "unknown"
	}
	return viewNames[v]
}

// ViewChanged switches the active screen.
type ViewChanged struct{ View ViewType }

// AskRequested makes the chat screen send Question as if it had been typed.
type AskRequested struct{ Question string }

// AnswerReceived is the result of one chatbot turn.
type AnswerReceived struct {
	Question string
	Answer   domain.Answer
	Err      error
}

// SearchCompleted is the result of a direct catalog query.
type SearchCompleted struct {
	Kind    domain.RecordKind
	Results []domain.SearchResult
	Err     error
}

// ConversationReset follows a /clear.
type ConversationReset struct{}

// ErrorOccurred reports a failure outside the normal result messages.
type ErrorOccurred struct{ Err error }
