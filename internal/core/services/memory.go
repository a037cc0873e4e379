package services

import (
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driving"
)

// Ensure ConversationMemory implements the interface.
var _ driving.ConversationMemory = (*ConversationMemory)(nil)

// exchange is one committed user/assistant pair.
type exchange struct {
	user      domain.ConversationTurn
	assistant domain.ConversationTurn
}

// ConversationMemory is a fixed-capacity ring of user/assistant pairs.
// Pairs are committed atomically, so Window never yields a dangling question.
// One instance belongs to one session.
type ConversationMemory struct {
	mu      sync.Mutex
	ring    []exchange
	head    int // index of the oldest pair
	size    int
	pending *domain.ConversationTurn
	id      string
	now     func() time.Time
}

// NewConversationMemory creates a memory holding at most memoryTurns pairs.
func NewConversationMemory(memoryTurns int) *ConversationMemory {
	if memoryTurns < 1 {
		memoryTurns = 1
	}
	return &ConversationMemory{
		ring: make([]exchange, memoryTurns),
		now:  time.Now,
	}
}

// NewSessionMemory creates a memory bound to a session id.
func NewSessionMemory(sessionID string, memoryTurns int) *ConversationMemory {
	m := NewConversationMemory(memoryTurns)
	m.id = sessionID
	return m
}

// SessionID returns the owning session, empty for anonymous memories.
func (m *ConversationMemory) SessionID() string {
	return m.id
}

// Capacity returns the maximum number of pairs retained.
func (m *ConversationMemory) Capacity() int {
	return len(m.ring)
}

// Append adds one turn. A user turn is held until its assistant reply arrives;
// the pair is then committed together.
func (m *ConversationMemory) Append(turn domain.ConversationTurn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if turn.Timestamp.IsZero() {
		turn.Timestamp = m.now()
	}

	switch turn.Role {
	case domain.RoleUser:
		if m.pending != nil {
			return fmt.Errorf("%w: user turn already awaiting a reply", domain.ErrUnpairedTurn)
		}
		m.pending = &turn
		return nil
	case domain.RoleAssistant:
		if m.pending == nil {
			return fmt.Errorf("%w: assistant turn without a user turn", domain.ErrUnpairedTurn)
		}
		m.push(exchange{user: *m.pending, assistant: turn})
		m.pending = nil
		return nil
	default:
		return fmt.Errorf("%w: role %q", domain.ErrInvalidInput, turn.Role)
	}
}

// AppendPair commits a user message and its answer in one step.
// Any pending unanswered user turn is discarded.
func (m *ConversationMemory) AppendPair(user, assistant string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := m.now()
	m.pending = nil
	m.push(exchange{
		user:      domain.ConversationTurn{Role: domain.RoleUser, Content: user, Timestamp: ts},
		assistant: domain.ConversationTurn{Role: domain.RoleAssistant, Content: assistant, Timestamp: ts},
	})
}

// push writes a pair, evicting the oldest when full. Callers hold mu.
func (m *ConversationMemory) push(e exchange) {
	if m.size < len(m.ring) {
		m.ring[(m.head+m.size)%len(m.ring)] = e
		m.size++
		return
	}
	m.ring[m.head] = e
	m.head = (m.head + 1) % len(m.ring)
}

// Window yields committed turns oldest first. Each iteration takes a fresh
// snapshot, so the sequence can be restarted and never observes a partial append.
func (m *ConversationMemory) Window() iter.Seq[domain.ConversationTurn] {
	return func(yield func(domain.ConversationTurn) bool) {
		for _, t := range m.Turns() {
			if !yield(t) {
				return
			}
		}
	}
}

// Turns returns a copy of the committed turns, oldest first.
func (m *ConversationMemory) Turns() []domain.ConversationTurn {
	m.mu.Lock()
	defer m.mu.Unlock()

	turns := make([]domain.ConversationTurn, 0, m.size*2)
	for i := 0; i < m.size; i++ {
		e := m.ring[(m.head+i)%len(m.ring)]
		turns = append(turns, e.user, e.assistant)
	}
	return turns
}

// Len returns the number of committed turns (twice the number of pairs).
func (m *ConversationMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size * 2
}

// Clear removes all turns, including any pending user turn.
func (m *ConversationMemory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.ring)
	m.head = 0
	m.size = 0
	m.pending = nil
}
