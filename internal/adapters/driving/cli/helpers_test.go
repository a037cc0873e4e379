package cli

import (
	"bytes"
	"context"
	"io"
	"iter"
	"slices"
	"strings"
	"testing"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driving"
)

// MockChatService implements driving.ChatService for testing.
type MockChatService struct {
	AskFunc func(ctx context.Context, memory driving.ConversationMemory, message string) (domain.Answer, error)
	usage   domain.UsageStats
	asked   []string
}

func (m *MockChatService) Ask(ctx context.Context, memory driving.ConversationMemory, message string) (domain.Answer, error) {
	m.asked = append(m.asked, message)
	if m.AskFunc != nil {
		return m.AskFunc(ctx, memory, message)
	}
	answer := domain.Answer{
		Text: "Outdoor Afro leads group hikes.",
		Mode: domain.ModePlatform,
		Sources: []domain.SourceRef{
			{ID: "outdoor-afro", Kind: domain.RecordKindPlatform, Name: "Outdoor Afro", URL: "https://outdoorafro.org", Score: 0.82},
		},
		ProviderUsed: "anthropic",
	}
	memory.AppendPair(message, answer.Text)
	return answer, nil
}

func (m *MockChatService) Usage() domain.UsageStats {
	return m.usage
}

// MockMemory implements driving.ConversationMemory for testing.
type MockMemory struct {
	turns []domain.ConversationTurn
}

func (m *MockMemory) AppendPair(user, assistant string) {
	m.turns = append(m.turns,
		domain.ConversationTurn{Role: domain.RoleUser, Content: user},
		domain.ConversationTurn{Role: domain.RoleAssistant, Content: assistant},
	)
}

func (m *MockMemory) Turns() []domain.ConversationTurn { return m.turns }
func (m *MockMemory) Len() int                         { return len(m.turns) }
func (m *MockMemory) Clear()                           { m.turns = nil }
func (m *MockMemory) Window() iter.Seq[domain.ConversationTurn] {
	return slices.Values(m.Turns())
}

// MockCatalogService implements driving.CatalogService for testing.
type MockCatalogService struct {
	Err        error
	lastQuery  string
	lastTopK   int
	lastFilter domain.SearchFilter
	lastID     string
	events     bool
}

func (m *MockCatalogService) SearchPlatforms(
	_ context.Context, query string, topK int, filter domain.SearchFilter,
) ([]domain.SearchResult, error) {
	m.lastQuery, m.lastTopK, m.lastFilter = query, topK, filter
	if m.Err != nil {
		return nil, m.Err
	}
	return []domain.SearchResult{
		{
			Record: domain.PlatformRecord{
				ID: "bgc", Name: "Black Girls Code", Type: domain.PlatformTypeTech,
				FocusArea: "Coding education", Website: "https://www.blackgirlscode.com",
			},
			VectorScore: 0.7, CombinedScore: 0.9, Rank: 1,
		},
	}, nil
}

func (m *MockCatalogService) SearchEvents(
	_ context.Context, query string, topK int, platformID string,
) ([]domain.SearchResult, error) {
	m.lastQuery, m.lastTopK, m.lastID, m.events = query, topK, platformID, true
	if m.Err != nil {
		return nil, m.Err
	}
	return []domain.SearchResult{}, nil
}

// MockSettingsService implements driving.SettingsService for testing.
type MockSettingsService struct {
	Settings    domain.AppSettings
	ValidateErr error
	added       []domain.ProviderSettings
	embedding   *domain.EmbeddingSettings
}

func (m *MockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.Settings
	return &s, nil
}

func (m *MockSettingsService) Validate(_ *domain.AppSettings) error { return m.ValidateErr }

func (m *MockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *MockSettingsService) AddProvider(p domain.ProviderSettings) error {
	m.added = append(m.added, p)
	return nil
}

func (m *MockSettingsService) SetEmbedding(e domain.EmbeddingSettings) error {
	m.embedding = &e
	return nil
}

// MockValidator implements driven.AIConfigValidator for testing.
type MockValidator struct {
	EmbeddingErr error
	ProviderErrs map[string]error
}

func (m *MockValidator) ValidateEmbedding(_ context.Context, _ *domain.EmbeddingSettings) error {
	return m.EmbeddingErr
}

func (m *MockValidator) ValidateProvider(_ context.Context, p domain.ProviderSettings) error {
	return m.ProviderErrs[p.Name]
}

// MockAnalyticsService implements driving.AnalyticsService for testing.
type MockAnalyticsService struct {
	Result    domain.QueryStats
	Err       error
	lastLimit int
}

func (m *MockAnalyticsService) Stats(_ context.Context, limit int) (domain.QueryStats, error) {
	m.lastLimit = limit
	return m.Result, m.Err
}

// MockIndexService implements driving.IndexService for testing.
type MockIndexService struct {
	platforms []domain.PlatformRecord
	events    []domain.EventRecord
}

func (m *MockIndexService) Build(
	_ context.Context, platforms []domain.PlatformRecord, events []domain.EventRecord,
) (driving.IndexStats, error) {
	m.platforms, m.events = platforms, events
	return driving.IndexStats{Platforms: len(platforms), Events: len(events)}, nil
}

// testServices returns a fully populated service set backed by mocks.
func testServices() *Services {
	return &Services{
		Settings:  &MockSettingsService{Settings: domain.DefaultAppSettings()},
		Validator: &MockValidator{},
		Analytics: &MockAnalyticsService{},
		Catalog:   &MockCatalogService{},
		Index:     &MockIndexService{},
		Chat:      &MockChatService{},
		NewMemory: func() driving.ConversationMemory { return &MockMemory{} },
		Providers: []string{"anthropic", "cerebras"},
	}
}

// setupTestServices installs a bootstrapper returning svc and records the
// levels requested. The returned func restores the previous state.
func setupTestServices(svc *Services, levels *[]Level) func() {
	previous := bootstrap
	SetBootstrapper(func(_ context.Context, _ string, level Level) (*Services, error) {
		if levels != nil {
			*levels = append(*levels, level)
		}
		return svc, nil
	})
	return func() {
		bootstrap = previous
		closeServices()
		resetFlags()
	}
}

// resetFlags restores command flags that persist between executions.
func resetFlags() {
	searchLimit, searchJSON, searchEvents, searchType, searchPlatform = 5, false, false, "", ""
	askJSON = false
	chatPlain = false
	statsTop, statsJSON = 10, false
	indexPlatformsPath, indexEventsPath = "", ""
	mcpPort = 0
	verbose = false
}

// execute runs the root command with args and returns its combined output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	var in io.Reader = strings.NewReader(stdin)
	rootCmd.SetIn(in)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}
