package domain

import "time"

// Role identifies the author of a conversation turn.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one message in a chat session.
type ConversationTurn struct {
	Role      Role
	Content   string
	Timestamp time.Time
}
