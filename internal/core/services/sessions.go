package services

import (
	"sync"
	"time"

	"github.com/custodia-labs/pocfinder/internal/core/ports/driving"
)

// Ensure SessionManager implements the interface.
var _ driving.SessionService = (*SessionManager)(nil)

// session is one tracked conversation.
type session struct {
	memory   *ConversationMemory
	lastUsed time.Time
}

// DefaultMaxSessions is the live session cap when none is configured.
const DefaultMaxSessions = 1000

// SessionManager hands each session its own ConversationMemory.
// Memories are never shared between sessions.
type SessionManager struct {
	mu          sync.Mutex
	sessions    map[string]*session
	memoryTurns int
	maxSessions int
	newID       func() string
	now         func() time.Time
}

// NewSessionManager creates a manager. newID generates ids for new sessions.
func NewSessionManager(memoryTurns int, newID func() string) *SessionManager {
	return &SessionManager{
		sessions:    make(map[string]*session),
		memoryTurns: memoryTurns,
		maxSessions: DefaultMaxSessions,
		newID:       newID,
		now:         time.Now,
	}
}

// SetMaxSessions caps the number of live sessions. Values below 1 restore the default.
func (m *SessionManager) SetMaxSessions(n int) {
	if n < 1 {
		n = DefaultMaxSessions
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxSessions = n
	for len(m.sessions) > n {
		m.evictOldest()
	}
}

// Get returns the memory for id, creating the session if needed.
// An empty id starts a new session with a generated id.
func (m *SessionManager) Get(id string) (string, *ConversationMemory) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = m.newID()
	}
	s, ok := m.sessions[id]
	if !ok {
		if len(m.sessions) >= m.maxSessions {
			m.evictOldest()
		}
		s = &session{memory: NewSessionMemory(id, m.memoryTurns)}
		m.sessions[id] = s
	}
	s.lastUsed = m.now()
	return id, s.memory
}

// evictOldest drops the least recently used session. Caller holds mu.
func (m *SessionManager) evictOldest() {
	var oldest string
	var at time.Time
	for id, s := range m.sessions {
		if oldest == "" || s.lastUsed.Before(at) {
			oldest, at = id, s.lastUsed
		}
	}
	delete(m.sessions, oldest)
}

// Session implements driving.SessionService.
func (m *SessionManager) Session(id string) (string, driving.ConversationMemory) {
	return m.Get(id)
}

// Reset clears a session's memory. Returns false if the session is unknown.
func (m *SessionManager) Reset(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		s.memory.Clear()
	}
	return ok
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// EvictIdle drops sessions unused for longer than maxIdle and returns how many.
func (m *SessionManager) EvictIdle(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxIdle)
	n := 0
	for id, s := range m.sessions {
		if s.lastUsed.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}
