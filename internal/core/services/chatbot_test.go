package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

type chatbotFixture struct {
	bot   *Chatbot
	gen   *fakeGenerator
	store *memStore
	log   *recordingLog
}

// newChatbotFixture indexes the test dataset and builds a chatbot whose
// clock is fixed at 2025-05-01.
func newChatbotFixture(t *testing.T, threshold float64, mutate func(*ChatbotConfig)) *chatbotFixture {
	t.Helper()
	settings := domain.DefaultAppSettings()
	store := newMemStore()
	embedder := newBagEmbedder()

	_, err := NewIndexService(embedder, store, settings.VectorStore).
		Build(context.Background(), testPlatforms(), testEvents())
	require.NoError(t, err)

	rs := settings.Retrieval
	rs.SimilarityThreshold = threshold
	retriever := NewHybridRetriever(embedder, store, rs)

	cfg := ChatbotConfigFromSettings(settings)
	if mutate != nil {
		mutate(&cfg)
	}
	gen := &fakeGenerator{text: "Here are some communities."}
	bot := NewChatbot(retriever, gen, testPrompts(), cfg)
	bot.SetClock(func() time.Time { return day("2025-05-01") })
	log := &recordingLog{}
	bot.SetQueryLog(log)

	return &chatbotFixture{bot: bot, gen: gen, store: store, log: log}
}

func sourceIDs(a domain.Answer) []string {
	ids := make([]string, len(a.Sources))
	for i, s := range a.Sources {
		ids[i] = s.ID
	}
	return ids
}

func TestChatbot_PlatformDiscovery(t *testing.T) {
	f := newChatbotFixture(t, 0, nil)
	memory := NewConversationMemory(5)

	answer, err := f.bot.Ask(context.Background(), memory, "Black women in tech")
	require.NoError(t, err)

	assert.Equal(t, domain.ModePlatform, answer.Mode)
	assert.Equal(t, "Here are some communities.", answer.Text)
	assert.Equal(t, "fake", answer.ProviderUsed)
	assert.False(t, answer.Degraded)
	require.NotEmpty(t, answer.Sources)
	assert.Equal(t, "bwtt", answer.Sources[0].ID)
	assert.NotContains(t, sourceIDs(answer), "outdoor-afro", "tech cue filters out outdoor platforms")
	assert.Contains(t, sourceIDs(answer), "bwtt-summit-2025", "top platform's upcoming event is included")

	reqs := f.gen.answerRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "platform system prompt", reqs[0].SystemPrompt)
	assert.Equal(t, "Black women in tech", reqs[0].UserMessage)
	require.Len(t, reqs[0].ContextBlocks, 1)
	assert.Equal(t, domain.CacheHintCacheable, reqs[0].ContextBlocks[0].Cache)
	assert.Contains(t, reqs[0].ContextBlocks[0].Text, "1. **Black Women Talk Tech**")

	turns := memory.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, "Black women in tech", turns[0].Content)
	assert.Equal(t, "Here are some communities.", turns[1].Content)
}

func TestChatbot_PlatformDiscoveryAmongOutdoorPlatforms(t *testing.T) {
	platforms := []domain.PlatformRecord{testPlatforms()[0]}
	for _, name := range []string{"Trail Runners", "Canoe Club", "Summit Seekers", "Campfire Circle", "Coastal Kayakers"} {
		platforms = append(platforms, domain.PlatformRecord{
			ID:          strings.ToLower(strings.ReplaceAll(name, " ", "-")),
			Name:        name,
			Type:        domain.PlatformTypeOutdoor,
			FocusArea:   "outdoor recreation",
			Description: name + " organises weekend trips outdoors.",
			Tags:        []string{"hiking", "camping"},
		})
	}

	settings := domain.DefaultAppSettings()
	store := newMemStore()
	embedder := newBagEmbedder()
	_, err := NewIndexService(embedder, store, settings.VectorStore).Build(context.Background(), platforms, nil)
	require.NoError(t, err)

	rs := settings.Retrieval
	rs.SimilarityThreshold = 0
	gen := &fakeGenerator{text: "Here are some communities."}
	bot := NewChatbot(NewHybridRetriever(embedder, store, rs), gen, testPrompts(), ChatbotConfigFromSettings(settings))

	ranked, err := bot.SearchPlatforms(context.Background(), "Black women in tech", len(platforms), domain.SearchFilter{})
	require.NoError(t, err)
	require.Len(t, ranked, len(platforms), "outdoor platforms compete when no type filter applies")
	assert.Equal(t, "bwtt", ranked[0].Record.RecordID())

	answer, err := bot.Ask(context.Background(), NewConversationMemory(5), "Black women in tech")
	require.NoError(t, err)
	assert.Equal(t, domain.ModePlatform, answer.Mode)
	require.NotEmpty(t, answer.Sources)
	assert.Equal(t, "bwtt", answer.Sources[0].ID)
}

func TestChatbot_EventWindow(t *testing.T) {
	f := newChatbotFixture(t, 0, nil)
	memory := NewConversationMemory(5)

	answer, err := f.bot.Ask(context.Background(), memory, "Any upcoming events for black women founders?")
	require.NoError(t, err)

	assert.Equal(t, domain.ModeEvent, answer.Mode)
	assert.Equal(t, []string{"bwtt-summit-2025"}, sourceIDs(answer),
		"past events and events beyond twelve months are excluded")

	reqs := f.gen.answerRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "event system prompt", reqs[0].SystemPrompt)
}

func TestChatbot_EventModeFallsBackToPlatforms(t *testing.T) {
	f := newChatbotFixture(t, 0, nil)
	f.bot.SetClock(func() time.Time { return day("2030-01-01") })

	answer, err := f.bot.Ask(context.Background(), NewConversationMemory(5), "Any hiking events coming up?")
	require.NoError(t, err)

	assert.Equal(t, domain.ModePlatform, answer.Mode)
	require.NotEmpty(t, answer.Sources)
	assert.Equal(t, "outdoor-afro", answer.Sources[0].ID)
}

func TestChatbot_ProvidersExhaustedLeavesMemoryUntouched(t *testing.T) {
	f := newChatbotFixture(t, 0, nil)
	f.gen.err = &domain.AllProvidersExhaustedError{Failures: []domain.ProviderFailure{
		{Provider: "anthropic", Attempts: 4, Err: errors.New("503")},
	}}
	memory := NewConversationMemory(5)
	memory.AppendPair("earlier", "reply")

	answer, err := f.bot.Ask(context.Background(), memory, "Black women in tech")

	assert.ErrorIs(t, err, domain.ErrAllProvidersExhausted)
	assert.Empty(t, answer.Text)
	assert.Equal(t, 2, memory.Len())
	require.Len(t, f.log.entries, 1)
	assert.Equal(t, "all_providers_exhausted", f.log.entries[0].ErrorType)
}

func TestChatbot_DegradesWhenRetrievalUnavailable(t *testing.T) {
	f := newChatbotFixture(t, 0, nil)
	f.store.searchErr = errors.New("connection refused")
	f.gen.text = "From general knowledge."
	memory := NewConversationMemory(5)

	answer, err := f.bot.Ask(context.Background(), memory, "Black women in tech")
	require.NoError(t, err)

	assert.True(t, answer.Degraded)
	assert.True(t, strings.HasPrefix(answer.Text, DegradedDisclaimer))
	assert.Contains(t, answer.Text, "From general knowledge.")
	assert.NotNil(t, answer.Sources)
	assert.Empty(t, answer.Sources)
	assert.Equal(t, 2, memory.Len())

	reqs := f.gen.answerRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "degraded system prompt", reqs[0].SystemPrompt)
	assert.Empty(t, reqs[0].ContextBlocks)

	require.Len(t, f.log.entries, 1)
	assert.True(t, f.log.entries[0].Degraded)
}

func TestChatbot_AbortsWhenRetrievalUnavailable(t *testing.T) {
	f := newChatbotFixture(t, 0, func(c *ChatbotConfig) {
		c.OnUnavailable = domain.RetrievalPolicyAbort
	})
	f.store.searchErr = errors.New("connection refused")
	memory := NewConversationMemory(5)

	_, err := f.bot.Ask(context.Background(), memory, "Black women in tech")

	assert.ErrorIs(t, err, domain.ErrRetrievalUnavailable)
	assert.Zero(t, memory.Len())
	assert.Empty(t, f.gen.requests)
}

func TestChatbot_NoResultsSkipsGeneration(t *testing.T) {
	f := newChatbotFixture(t, 0.999, nil)
	memory := NewConversationMemory(5)

	answer, err := f.bot.Ask(context.Background(), memory, "underwater basket weaving")
	require.NoError(t, err)

	assert.Contains(t, answer.Text, "couldn't find any platforms")
	assert.Empty(t, answer.Sources)
	assert.Empty(t, f.gen.requests)
	assert.Equal(t, 2, memory.Len())
}

func TestChatbot_CancelledTurnIsNotRemembered(t *testing.T) {
	f := newChatbotFixture(t, 0, nil)
	memory := NewConversationMemory(5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.bot.Ask(ctx, memory, "Black women in tech")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, memory.Len())
	require.Len(t, f.log.entries, 1)
	assert.Equal(t, "cancelled", f.log.entries[0].ErrorType)
}

func TestChatbot_InvalidQuery(t *testing.T) {
	f := newChatbotFixture(t, 0, nil)
	memory := NewConversationMemory(5)

	_, err := f.bot.Ask(context.Background(), memory, "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)

	_, err = f.bot.Ask(context.Background(), memory, strings.Repeat("x", 1001))
	assert.ErrorIs(t, err, domain.ErrQueryTooLong)

	assert.Zero(t, memory.Len())
	assert.Empty(t, f.gen.requests)
	require.Len(t, f.log.entries, 2)
	assert.Equal(t, "invalid_query", f.log.entries[0].ErrorType)
	assert.Equal(t, "query_too_long", f.log.entries[1].ErrorType)
}

func TestChatbot_ReformulatesFollowUps(t *testing.T) {
	f := newChatbotFixture(t, 0, nil)
	memory := NewConversationMemory(5)

	_, err := f.bot.Ask(context.Background(), memory, "Black women in tech")
	require.NoError(t, err)

	f.gen.rewrite = "Latinas in Tech"
	answer, err := f.bot.Ask(context.Background(), memory, "tell me more about them")
	require.NoError(t, err)

	require.NotEmpty(t, answer.Sources)
	assert.Equal(t, "latinas-in-tech", answer.Sources[0].ID)

	reqs := f.gen.answerRequests()
	require.Len(t, reqs, 2)
	last := reqs[1]
	assert.Equal(t, "tell me more about them", last.UserMessage, "the user's own words are answered")
	assert.Len(t, last.History, 2)
	assert.Equal(t, 4, memory.Len())
}

// windowOnlyMemory fails the test if history is read as a slice snapshot.
type windowOnlyMemory struct {
	*ConversationMemory
	t *testing.T
}

func (m windowOnlyMemory) Turns() []domain.ConversationTurn {
	m.t.Error("history must be read through Window")
	return m.ConversationMemory.Turns()
}

func TestChatbot_HistoryReadThroughWindow(t *testing.T) {
	f := newChatbotFixture(t, 0, nil)
	inner := NewConversationMemory(5)
	inner.AppendPair("hello", "hi there")
	memory := windowOnlyMemory{ConversationMemory: inner, t: t}

	_, err := f.bot.Ask(context.Background(), memory, "Black women in tech")
	require.NoError(t, err)

	reqs := f.gen.answerRequests()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].History, 2)
	assert.Equal(t, "hello", reqs[0].History[0].Content)
	assert.Equal(t, domain.RoleAssistant, reqs[0].History[1].Role)
	assert.Equal(t, 4, inner.Len())
}

func TestChatbot_AnalyticsKeepsNoRawQuery(t *testing.T) {
	f := newChatbotFixture(t, 0, nil)
	memory := NewSessionMemory("s-42", 5)

	_, err := f.bot.Ask(context.Background(), memory, "Black women in tech")
	require.NoError(t, err)

	require.Len(t, f.log.entries, 1)
	e := f.log.entries[0]
	assert.Equal(t, "s-42", e.SessionID)
	assert.Equal(t, domain.ModePlatform, e.Mode)
	assert.Equal(t, len("Black women in tech"), e.QueryLength)
	assert.Equal(t, []string{"black", "women", "tech"}, e.Keywords)
	assert.Contains(t, e.PlatformIDs, "bwtt")
	assert.Contains(t, e.EventIDs, "bwtt-summit-2025")
	assert.Equal(t, "fake", e.Provider)
	assert.Empty(t, e.ErrorType)
}

func TestChatbot_CatalogSearch(t *testing.T) {
	f := newChatbotFixture(t, 0, nil)

	platforms, err := f.bot.SearchPlatforms(context.Background(), "hiking", 1, domain.SearchFilter{})
	require.NoError(t, err)
	require.Len(t, platforms, 1)
	assert.Equal(t, "outdoor-afro", platforms[0].Record.RecordID())

	events, err := f.bot.SearchEvents(context.Background(), "summit", 0, "bwtt")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "bwtt-summit-2025", events[0].Record.RecordID())
}

// TestChatbot_EventWindowDates checks which of a past, a near and a later
// event survive the 12 month window starting 2025-05-01.
func TestChatbot_EventWindowDates(t *testing.T) {
	settings := domain.DefaultAppSettings()
	store := newMemStore()
	embedder := newBagEmbedder()
	events := []domain.EventRecord{
		{ID: "past", PlatformID: "bwtt", Title: "Tech Meetup", Date: day("2024-01-01")},
		{ID: "near", PlatformID: "bwtt", Title: "Tech Meetup", Date: day("2025-06-01")},
		{ID: "later", PlatformID: "bwtt", Title: "Tech Meetup", Date: day("2026-01-01")},
	}
	_, err := NewIndexService(embedder, store, settings.VectorStore).
		Build(context.Background(), testPlatforms(), events)
	require.NoError(t, err)

	rs := settings.Retrieval
	rs.SimilarityThreshold = 0
	cfg := ChatbotConfigFromSettings(settings)
	require.Equal(t, 12, cfg.EventExpiryMonths)
	bot := NewChatbot(NewHybridRetriever(embedder, store, rs), nil, nil, cfg)
	bot.SetClock(func() time.Time { return day("2025-05-01") })

	results, err := bot.SearchEvents(context.Background(), "tech meetup", 0, "")
	require.NoError(t, err)

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Record.RecordID()
	}
	assert.ElementsMatch(t, []string{"near", "later"}, ids, "2026-01-01 is eight months out")
}

func TestChatbot_CatalogOnly(t *testing.T) {
	settings := domain.DefaultAppSettings()
	store := newMemStore()
	embedder := newBagEmbedder()
	_, err := NewIndexService(embedder, store, settings.VectorStore).
		Build(context.Background(), testPlatforms(), nil)
	require.NoError(t, err)

	rs := settings.Retrieval
	rs.SimilarityThreshold = 0
	bot := NewChatbot(NewHybridRetriever(embedder, store, rs), nil, nil, ChatbotConfigFromSettings(settings))

	results, err := bot.SearchPlatforms(context.Background(), "hiking", 1, domain.SearchFilter{})
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, domain.UsageStats{}, bot.Usage())

	memory := NewConversationMemory(5)
	_, err = bot.Ask(context.Background(), memory, "hiking groups")
	assert.ErrorIs(t, err, domain.ErrNoProviders)
	assert.Equal(t, 0, memory.Len())
}
