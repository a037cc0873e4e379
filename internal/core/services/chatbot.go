package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driven"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driving"
	"github.com/custodia-labs/pocfinder/internal/logger"
)

// Ensure Chatbot implements the interfaces.
var (
	_ driving.ChatService    = (*Chatbot)(nil)
	_ driving.CatalogService = (*Chatbot)(nil)
)

// DegradedDisclaimer prefixes answers produced without retrieval.
const DegradedDisclaimer = "Note: I couldn't verify this with live data, so no sources were found. " +
	"Please double-check any platform details below."

// platformEventsPerTurn caps how many top platforms get an event lookup.
const platformEventsPerTurn = 2

// fallbackSystemPrompt is used when the prompt store cannot supply one.
const fallbackSystemPrompt = "You help people discover platforms and communities for People of Color " +
	"in tech and outdoor/travel spaces. Only use the provided context."

// Generator is the generation capability the chatbot needs from the provider chain.
type Generator interface {
	driven.TextGenerator
	Usage() domain.UsageStats
}

// ChatbotConfig holds the per-turn knobs of the chatbot.
type ChatbotConfig struct {
	TopK                  int
	MaxQueryLength        int
	EventExpiryMonths     int
	IncludePlatformEvents bool
	Reformulate           bool
	MaxTokens             int
	Temperature           float64
	OnUnavailable         domain.RetrievalPolicy
	PlatformsCollection   string
	EventsCollection      string
}

// ChatbotConfigFromSettings extracts the chatbot knobs from app settings.
func ChatbotConfigFromSettings(s domain.AppSettings) ChatbotConfig {
	return ChatbotConfig{
		TopK:                  s.Retrieval.TopK,
		MaxQueryLength:        s.Retrieval.MaxQueryLength,
		EventExpiryMonths:     s.Events.ExpiryMonths,
		IncludePlatformEvents: s.Events.IncludePlatformEvents,
		Reformulate:           s.Conversation.Reformulate,
		MaxTokens:             s.Generation.MaxTokens,
		Temperature:           s.Generation.Temperature,
		OnUnavailable:         s.Generation.OnUnavailable,
		PlatformsCollection:   s.VectorStore.PlatformsCollection,
		EventsCollection:      s.VectorStore.EventsCollection,
	}
}

// Chatbot composes retrieval, memory and the provider chain into one turn.
// It never mutates the vector store.
type Chatbot struct {
	retriever    driving.Retriever
	llm          Generator
	prompts      driven.PromptStore
	router       *Router
	reformulator *Reformulator
	analytics    driven.QueryLogStore
	telemetry    driven.Telemetry
	cfg          ChatbotConfig
	now          func() time.Time
}

// NewChatbot creates a chatbot. A nil llm gives a catalog-only chatbot whose
// Ask fails with ErrNoProviders.
func NewChatbot(retriever driving.Retriever, llm Generator, prompts driven.PromptStore, cfg ChatbotConfig) *Chatbot {
	defaults := domain.DefaultAppSettings()
	if cfg.TopK <= 0 {
		cfg.TopK = defaults.Retrieval.TopK
	}
	if cfg.EventExpiryMonths <= 0 {
		cfg.EventExpiryMonths = defaults.Events.ExpiryMonths
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaults.Generation.MaxTokens
	}
	if !cfg.OnUnavailable.IsValid() {
		cfg.OnUnavailable = defaults.Generation.OnUnavailable
	}
	if cfg.PlatformsCollection == "" {
		cfg.PlatformsCollection = defaults.VectorStore.PlatformsCollection
	}
	if cfg.EventsCollection == "" {
		cfg.EventsCollection = defaults.VectorStore.EventsCollection
	}

	c := &Chatbot{
		retriever: retriever,
		llm:       llm,
		prompts:   prompts,
		router:    NewRouter(),
		telemetry: driven.NopTelemetry{},
		cfg:       cfg,
		now:       time.Now,
	}
	if cfg.Reformulate && llm != nil {
		c.reformulator = NewReformulator(llm, prompts)
	}
	return c
}

// SetQueryLog sets the analytics sink. Nil disables analytics.
func (c *Chatbot) SetQueryLog(store driven.QueryLogStore) {
	c.analytics = store
}

// SetTelemetry sets the metrics sink.
func (c *Chatbot) SetTelemetry(t driven.Telemetry) {
	if t != nil {
		c.telemetry = t
	}
}

// SetClock overrides the time source used for the event window.
func (c *Chatbot) SetClock(now func() time.Time) {
	c.now = now
}

// Usage returns cumulative token usage across turns.
func (c *Chatbot) Usage() domain.UsageStats {
	if c.llm == nil {
		return domain.UsageStats{}
	}
	return c.llm.Usage()
}

// turn carries the state of one Ask through the pipeline.
type turn struct {
	message string
	query   string
	mode    domain.Mode
	history []domain.ConversationTurn
	results []domain.SearchResult
	entry   domain.QueryLogEntry
}

// Ask answers one message. Memory is updated only when a full answer is
// produced and the caller has not cancelled.
func (c *Chatbot) Ask(ctx context.Context, memory driving.ConversationMemory, message string) (domain.Answer, error) {
	start := time.Now()
	t := &turn{
		message: message,
		mode:    domain.ModePlatform,
		entry: domain.QueryLogEntry{
			SessionID:   sessionIDOf(memory),
			Timestamp:   c.now(),
			QueryLength: len([]rune(message)),
			Keywords:    ExtractKeywords(message),
		},
	}

	answer, err := c.ask(ctx, memory, t)

	outcome := "ok"
	switch {
	case err != nil:
		outcome = errorType(err)
		t.entry.ErrorType = outcome
	case answer.Degraded:
		outcome = "degraded"
	}
	t.entry.Mode = t.mode
	t.entry.ResponseLength = len([]rune(answer.Text))
	t.entry.Provider = answer.ProviderUsed
	t.entry.Degraded = answer.Degraded
	for _, s := range answer.Sources {
		if s.Kind == domain.RecordKindEvent {
			t.entry.EventIDs = append(t.entry.EventIDs, s.ID)
		} else {
			t.entry.PlatformIDs = append(t.entry.PlatformIDs, s.ID)
		}
	}
	c.recordAnalytics(t.entry)
	c.telemetry.ObserveTurn(t.mode, outcome, time.Since(start))

	return answer, err
}

func (c *Chatbot) ask(ctx context.Context, memory driving.ConversationMemory, t *turn) (domain.Answer, error) {
	logger.Section("Chat Turn")

	if c.llm == nil {
		return domain.Answer{}, domain.ErrNoProviders
	}

	query, err := validateQuery(t.message, c.cfg.MaxQueryLength)
	if err != nil {
		return domain.Answer{}, err
	}
	t.message = query
	t.query = query
	t.history = slices.Collect(memory.Window())
	t.mode = c.router.Route(query)

	if c.reformulator != nil {
		t.query = c.reformulator.Reformulate(ctx, query, t.history)
		if t.mode == domain.ModePlatform && t.query != query {
			t.mode = c.router.Route(t.query)
		}
	}
	logger.Debug("Mode: %s, retrieval query: %q", t.mode, t.query)

	if err := c.retrieve(ctx, t); err != nil {
		if !errors.Is(err, domain.ErrRetrievalUnavailable) || c.cfg.OnUnavailable == domain.RetrievalPolicyAbort {
			return domain.Answer{}, err
		}
		logger.Warn("Retrieval unavailable, answering without sources: %v", err)
		return c.degraded(ctx, memory, t)
	}

	if len(t.results) == 0 {
		text := noResultsMessage(t.mode, query)
		if ctx.Err() != nil {
			return domain.Answer{}, ctx.Err()
		}
		memory.AppendPair(query, text)
		return domain.Answer{Text: text, Mode: t.mode, Sources: []domain.SourceRef{}}, nil
	}

	if t.mode == domain.ModePlatform && c.cfg.IncludePlatformEvents {
		t.results = append(t.results, c.platformEvents(ctx, t.results)...)
	}

	req := domain.LLMRequest{
		SystemPrompt: c.systemPrompt(t.mode),
		ContextBlocks: []domain.ContextBlock{{
			Label: "records",
			Text:  FormatContext(t.results),
			Cache: domain.CacheHintCacheable,
		}},
		History:     t.history,
		UserMessage: query,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	resp, err := c.llm.Generate(ctx, req)
	if err != nil {
		return domain.Answer{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Answer{}, err
	}

	memory.AppendPair(query, resp.Text)

	sources := make([]domain.SourceRef, 0, len(t.results))
	for _, r := range t.results {
		sources = append(sources, domain.NewSourceRef(r))
	}
	return domain.Answer{
		Text:         resp.Text,
		Sources:      sources,
		Mode:         t.mode,
		ProviderUsed: resp.ProviderUsed,
		Usage:        resp.Usage,
	}, nil
}

// retrieve fills t.results for the routed mode. Event turns with no upcoming
// events fall back to platform search, and a platform type filter that
// matches nothing is dropped.
func (c *Chatbot) retrieve(ctx context.Context, t *turn) error {
	if t.mode == domain.ModeEvent {
		results, err := c.retriever.Search(ctx, c.cfg.EventsCollection, t.query, c.cfg.TopK, c.eventWindow())
		if err != nil && !errors.Is(err, domain.ErrRetrievalUnavailable) {
			return err
		}
		if len(results) > 0 {
			t.results = results
			return nil
		}
		logger.Debug("No upcoming events matched, falling back to platforms")
		t.mode = domain.ModePlatform
	}

	var filter domain.SearchFilter
	if typ, ok := c.router.PlatformType(t.query); ok {
		filter.Type = typ
	}
	results, err := c.retriever.Search(ctx, c.cfg.PlatformsCollection, t.query, c.cfg.TopK, filter)
	if err == nil && len(results) == 0 && !filter.IsZero() {
		logger.Debug("Type filter %s matched nothing, retrying unfiltered", filter.Type)
		results, err = c.retriever.Search(ctx, c.cfg.PlatformsCollection, t.query, c.cfg.TopK, domain.SearchFilter{})
	}
	if err != nil {
		return err
	}
	t.results = results
	return nil
}

// platformEvents looks up upcoming events hosted by the top platforms.
func (c *Chatbot) platformEvents(ctx context.Context, results []domain.SearchResult) []domain.SearchResult {
	var events []domain.SearchResult
	seen := make(map[string]struct{})
	for i, r := range results {
		if i == platformEventsPerTurn {
			break
		}
		p, ok := r.Platform()
		if !ok {
			continue
		}
		filter := c.eventWindow()
		filter.PlatformID = p.ID
		found, err := c.retriever.Search(ctx, c.cfg.EventsCollection, p.Name, platformEventsPerTurn, filter)
		if err != nil {
			logger.Warn("Event lookup for %s failed: %v", p.ID, err)
			continue
		}
		for _, e := range found {
			id := e.Record.RecordID()
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			events = append(events, e)
		}
	}
	return events
}

// degraded answers without retrieval and discloses it.
func (c *Chatbot) degraded(ctx context.Context, memory driving.ConversationMemory, t *turn) (domain.Answer, error) {
	req := domain.LLMRequest{
		SystemPrompt: c.loadPrompt(driven.PromptDegradedSystem),
		History:      t.history,
		UserMessage:  t.message,
		MaxTokens:    c.cfg.MaxTokens,
		Temperature:  c.cfg.Temperature,
	}
	resp, err := c.llm.Generate(ctx, req)
	if err != nil {
		return domain.Answer{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Answer{}, err
	}

	text := DegradedDisclaimer + "\n\n" + resp.Text
	memory.AppendPair(t.message, text)
	return domain.Answer{
		Text:         text,
		Sources:      []domain.SourceRef{},
		Mode:         t.mode,
		Degraded:     true,
		ProviderUsed: resp.ProviderUsed,
		Usage:        resp.Usage,
	}, nil
}

// SearchPlatforms searches the platform collection directly.
func (c *Chatbot) SearchPlatforms(
	ctx context.Context, query string, topK int, filter domain.SearchFilter,
) ([]domain.SearchResult, error) {
	topK = domain.ClampTopK(topK, c.cfg.TopK)
	return c.retriever.Search(ctx, c.cfg.PlatformsCollection, query, topK, filter)
}

// SearchEvents searches upcoming events, optionally for one platform.
func (c *Chatbot) SearchEvents(
	ctx context.Context, query string, topK int, platformID string,
) ([]domain.SearchResult, error) {
	topK = domain.ClampTopK(topK, c.cfg.TopK)
	filter := c.eventWindow()
	filter.PlatformID = platformID
	return c.retriever.Search(ctx, c.cfg.EventsCollection, query, topK, filter)
}

func (c *Chatbot) eventWindow() domain.SearchFilter {
	return domain.EventWindow(c.now(), c.cfg.EventExpiryMonths)
}

func (c *Chatbot) systemPrompt(mode domain.Mode) string {
	if mode == domain.ModeEvent {
		return c.loadPrompt(driven.PromptEventSystem)
	}
	return c.loadPrompt(driven.PromptPlatformSystem)
}

func (c *Chatbot) loadPrompt(name string) string {
	if c.prompts == nil {
		return fallbackSystemPrompt
	}
	p, err := c.prompts.Load(name)
	if err != nil || strings.TrimSpace(p) == "" {
		logger.Warn("Prompt %s unavailable, using fallback: %v", name, err)
		return fallbackSystemPrompt
	}
	return p
}

func (c *Chatbot) recordAnalytics(entry domain.QueryLogEntry) {
	if c.analytics == nil {
		return
	}
	// Detached from the request so cancelled turns are still counted.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.analytics.Record(ctx, entry); err != nil {
		logger.Warn("Failed to record analytics: %v", err)
	}
}

func noResultsMessage(mode domain.Mode, query string) string {
	if mode == domain.ModeEvent {
		return fmt.Sprintf("I couldn't find any upcoming events matching %q. "+
			"Try asking about a specific platform, or check back later as events are added regularly.", query)
	}
	return fmt.Sprintf("I couldn't find any platforms matching %q. "+
		"Try broadening your search, for example \"tech communities for Black women\" "+
		"or \"outdoor groups for Latinx hikers\".", query)
}

// sessionScoped is implemented by memories that belong to a named session.
type sessionScoped interface {
	SessionID() string
}

func sessionIDOf(memory driving.ConversationMemory) string {
	if s, ok := memory.(sessionScoped); ok {
		return s.SessionID()
	}
	return ""
}

// errorType maps an Ask error to a stable analytics label.
func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		return "invalid_query"
	case errors.Is(err, domain.ErrQueryTooLong):
		return "query_too_long"
	case errors.Is(err, domain.ErrRetrievalUnavailable):
		return "retrieval_unavailable"
	case errors.Is(err, domain.ErrAllProvidersExhausted):
		return "all_providers_exhausted"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "internal"
	}
}
