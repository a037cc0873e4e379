package mcp

import (
	"context"
	"fmt"
	"iter"
	"slices"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driving"
)

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	answer   domain.Answer
	err      error
	usage    domain.UsageStats
	messages []string
	memories []driving.ConversationMemory
}

func (m *mockChatService) Ask(_ context.Context, memory driving.ConversationMemory, message string) (domain.Answer, error) {
	m.messages = append(m.messages, message)
	m.memories = append(m.memories, memory)
	if m.err != nil {
		return domain.Answer{}, m.err
	}
	memory.AppendPair(message, m.answer.Text)
	return m.answer, nil
}

func (m *mockChatService) Usage() domain.UsageStats {
	return m.usage
}

// mockCatalogService is a mock implementation of driving.CatalogService.
type mockCatalogService struct {
	results    []domain.SearchResult
	err        error
	lastTopK   int
	lastFilter domain.SearchFilter
	lastID     string
}

func (m *mockCatalogService) SearchPlatforms(
	_ context.Context,
	_ string,
	topK int,
	filter domain.SearchFilter,
) ([]domain.SearchResult, error) {
	m.lastTopK = topK
	m.lastFilter = filter
	return m.results, m.err
}

func (m *mockCatalogService) SearchEvents(
	_ context.Context,
	_ string,
	topK int,
	platformID string,
) ([]domain.SearchResult, error) {
	m.lastTopK = topK
	m.lastID = platformID
	return m.results, m.err
}

// mockMemory is a mock implementation of driving.ConversationMemory.
type mockMemory struct {
	turns []domain.ConversationTurn
}

func (m *mockMemory) AppendPair(user, assistant string) {
	m.turns = append(m.turns,
		domain.ConversationTurn{Role: domain.RoleUser, Content: user},
		domain.ConversationTurn{Role: domain.RoleAssistant, Content: assistant},
	)
}

func (m *mockMemory) Turns() []domain.ConversationTurn {
	return append([]domain.ConversationTurn(nil), m.turns...)
}
func (m *mockMemory) Len() int { return len(m.turns) }
func (m *mockMemory) Clear()   { m.turns = nil }
func (m *mockMemory) Window() iter.Seq[domain.ConversationTurn] {
	return slices.Values(m.Turns())
}

// mockSessionService is a mock implementation of driving.SessionService.
type mockSessionService struct {
	sessions map[string]*mockMemory
	next     int
}

func newMockSessionService() *mockSessionService {
	return &mockSessionService{sessions: make(map[string]*mockMemory)}
}

func (m *mockSessionService) Session(id string) (string, driving.ConversationMemory) {
	if mem, ok := m.sessions[id]; ok && id != "" {
		return id, mem
	}
	m.next++
	id = fmt.Sprintf("session-%d", m.next)
	mem := &mockMemory{}
	m.sessions[id] = mem
	return id, mem
}

func (m *mockSessionService) Reset(id string) bool {
	mem, ok := m.sessions[id]
	if !ok {
		return false
	}
	mem.Clear()
	return true
}

// mockAnalyticsService is a mock implementation of driving.AnalyticsService.
type mockAnalyticsService struct {
	stats domain.QueryStats
	err   error
}

func (m *mockAnalyticsService) Stats(_ context.Context, _ int) (domain.QueryStats, error) {
	return m.stats, m.err
}

func newTestPorts() (*Ports, *mockChatService, *mockCatalogService, *mockSessionService) {
	chat := &mockChatService{}
	catalog := &mockCatalogService{}
	sessions := newMockSessionService()
	return &Ports{Chat: chat, Catalog: catalog, Sessions: sessions}, chat, catalog, sessions
}
