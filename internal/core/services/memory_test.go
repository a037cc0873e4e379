package services

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

func TestConversationMemory_EvictsOldestPairs(t *testing.T) {
	m := NewConversationMemory(5)

	for i := 1; i <= 6; i++ {
		m.AppendPair(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	turns := m.Turns()
	require.Len(t, turns, 10)
	assert.Equal(t, 10, m.Len())
	assert.Equal(t, "q2", turns[0].Content, "oldest pair evicted first")
	assert.Equal(t, "a6", turns[9].Content)
	for i, turn := range turns {
		if i%2 == 0 {
			assert.Equal(t, domain.RoleUser, turn.Role)
		} else {
			assert.Equal(t, domain.RoleAssistant, turn.Role)
		}
	}
}

func TestConversationMemory_AppendPairsTurns(t *testing.T) {
	m := NewConversationMemory(2)

	require.NoError(t, m.Append(domain.ConversationTurn{Role: domain.RoleUser, Content: "hi"}))
	assert.Zero(t, m.Len(), "an unanswered user turn is not committed")

	err := m.Append(domain.ConversationTurn{Role: domain.RoleUser, Content: "again"})
	assert.ErrorIs(t, err, domain.ErrUnpairedTurn)

	require.NoError(t, m.Append(domain.ConversationTurn{Role: domain.RoleAssistant, Content: "hello"}))
	assert.Equal(t, 2, m.Len())

	err = m.Append(domain.ConversationTurn{Role: domain.RoleAssistant, Content: "orphan"})
	assert.ErrorIs(t, err, domain.ErrUnpairedTurn)

	err = m.Append(domain.ConversationTurn{Role: "system", Content: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	turns := m.Turns()
	require.Len(t, turns, 2)
	assert.False(t, turns[0].Timestamp.IsZero())
}

func TestConversationMemory_WindowRestartable(t *testing.T) {
	m := NewConversationMemory(3)
	m.AppendPair("q1", "a1")
	m.AppendPair("q2", "a2")

	collect := func() []string {
		var out []string
		for turn := range m.Window() {
			out = append(out, turn.Content)
		}
		return out
	}

	first := collect()
	second := collect()
	assert.Equal(t, []string{"q1", "a1", "q2", "a2"}, first)
	assert.Equal(t, first, second)

	for turn := range m.Window() {
		assert.Equal(t, "q1", turn.Content)
		break
	}
}

func TestConversationMemory_Clear(t *testing.T) {
	m := NewSessionMemory("s1", 2)
	m.AppendPair("q", "a")
	require.NoError(t, m.Append(domain.ConversationTurn{Role: domain.RoleUser, Content: "pending"}))

	m.Clear()

	assert.Zero(t, m.Len())
	assert.Empty(t, m.Turns())
	assert.Equal(t, "s1", m.SessionID())
	require.NoError(t, m.Append(domain.ConversationTurn{Role: domain.RoleUser, Content: "fresh"}))
}

func TestConversationMemory_MinimumCapacity(t *testing.T) {
	m := NewConversationMemory(0)
	assert.Equal(t, 1, m.Capacity())

	m.AppendPair("q1", "a1")
	m.AppendPair("q2", "a2")
	assert.Equal(t, []domain.ConversationTurn{
		{Role: domain.RoleUser, Content: "q2", Timestamp: m.Turns()[0].Timestamp},
		{Role: domain.RoleAssistant, Content: "a2", Timestamp: m.Turns()[1].Timestamp},
	}, m.Turns())
}

func TestConversationMemory_ConcurrentAppend(t *testing.T) {
	m := NewConversationMemory(5)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.AppendPair(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
			_ = m.Turns()
		}(i)
	}
	wg.Wait()

	turns := m.Turns()
	require.Len(t, turns, 10)
	for i := 0; i < len(turns); i += 2 {
		assert.Equal(t, domain.RoleUser, turns[i].Role)
		assert.Equal(t, "a"+turns[i].Content[1:], turns[i+1].Content, "pairs stay intact")
	}
}
