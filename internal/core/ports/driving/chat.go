package driving

import (
	"context"
	"iter"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

// ConversationMemory is the per-session turn window handed to the chatbot.
type ConversationMemory interface {
	// AppendPair atomically commits a user/assistant exchange.
	AppendPair(user, assistant string)

	// Turns returns a copy of the window, oldest first.
	Turns() []domain.ConversationTurn

	// Window yields the same turns lazily, oldest first.
	Window() iter.Seq[domain.ConversationTurn]

	// Len returns the number of committed turns.
	Len() int

	// Clear empties the window.
	Clear()
}

// ChatService answers one user message within a session.
type ChatService interface {
	// Ask runs route, retrieve, generate and remember for one turn.
	// Memory is only updated when the turn succeeds.
	Ask(ctx context.Context, memory ConversationMemory, message string) (domain.Answer, error)

	// Usage returns cumulative token usage across turns.
	Usage() domain.UsageStats
}

// SessionService isolates conversation memory per session.
type SessionService interface {
	// Session returns the memory for id, starting a new session when id is
	// empty or unknown. The returned id names the session for later calls.
	Session(id string) (string, ConversationMemory)

	// Reset clears a session's memory. Returns false if the session is unknown.
	Reset(id string) bool
}
