package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pocfinder/internal/adapters/driven/config/file"
	"github.com/custodia-labs/pocfinder/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

// newSettingsService builds a service over a TOML file with a fake environment.
func newSettingsService(t *testing.T, toml string, env map[string]string) *SettingsService {
	t.Helper()
	dir := t.TempDir()
	if toml != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0600))
	}
	store, err := file.NewConfigStore(dir)
	require.NoError(t, err)

	svc := NewSettingsService(store)
	svc.getenv = func(k string) string { return env[k] }
	return svc
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	svc := newSettingsService(t, "", nil)

	settings, err := svc.Get()
	require.NoError(t, err)

	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Retrieval, settings.Retrieval)
	assert.Equal(t, defaults.Conversation, settings.Conversation)
	assert.Equal(t, defaults.Events, settings.Events)
	assert.Equal(t, defaults.Generation, settings.Generation)
	assert.Equal(t, defaults.VectorStore.Backend, settings.VectorStore.Backend)
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, domain.AIProviderOllama.DefaultBaseURL(), settings.Embedding.BaseURL)
	assert.Empty(t, settings.Providers, "no keys, no providers")
	require.NoError(t, svc.Validate(settings))
}

func TestSettingsService_Get_ProvidersFromEnvironment(t *testing.T) {
	svc := newSettingsService(t, "", map[string]string{
		"ANTHROPIC_API_KEY": "sk-ant",
		"DEEPSEEK_API_KEY":  "sk-ds",
	})

	settings, err := svc.Get()
	require.NoError(t, err)

	require.Len(t, settings.Providers, 2)
	assert.Equal(t, domain.AIProviderAnthropic, settings.Providers[0].Kind)
	assert.Equal(t, "sk-ant", settings.Providers[0].APIKey)
	assert.Equal(t, domain.DefaultLLMModels()[domain.AIProviderAnthropic], settings.Providers[0].Model)
	assert.Equal(t, domain.AIProviderDeepSeek, settings.Providers[1].Kind, "priority order skips missing keys")
	assert.Equal(t, "https://api.deepseek.com", settings.Providers[1].BaseURL)
}

func TestSettingsService_Get_StoredValues(t *testing.T) {
	svc := newSettingsService(t, `
[retrieval]
top_k = 3
similarity_threshold = 0.4
over_fetch_factor = 4

[conversation]
memory_turns = 8
reformulate = false

[generation]
call_timeout = "10s"
retry_base_delay = "500ms"
on_retrieval_unavailable = "abort"

[embedding]
provider = "openai"
model = "text-embedding-3-small"

[vector_store]
backend = "qdrant"
host = "qdrant.internal"
port = 6334

[[providers]]
kind = "cerebras"
api_key_env = "CEREBRAS_TOKEN"
requests_per_second = 0.5

[[providers]]
name = "local"
kind = "ollama"
model = "llama3.1"
`, map[string]string{"CEREBRAS_TOKEN": "csk", "OPENAI_API_KEY": "sk-oa"})

	settings, err := svc.Get()
	require.NoError(t, err)

	assert.Equal(t, 3, settings.Retrieval.TopK)
	assert.InDelta(t, 0.4, settings.Retrieval.SimilarityThreshold, 1e-9)
	assert.Equal(t, 4, settings.Retrieval.OverFetchFactor)
	assert.Equal(t, 8, settings.Conversation.MemoryTurns)
	assert.False(t, settings.Conversation.Reformulate)
	assert.Equal(t, 10*time.Second, settings.Generation.CallTimeout)
	assert.Equal(t, 500*time.Millisecond, settings.Generation.RetryBaseDelay)
	assert.Equal(t, domain.RetrievalPolicyAbort, settings.Generation.OnUnavailable)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "sk-oa", settings.Embedding.APIKey)
	assert.Equal(t, domain.VectorBackendQdrant, settings.VectorStore.Backend)
	assert.Equal(t, "qdrant.internal", settings.VectorStore.Host)

	require.Len(t, settings.Providers, 2)
	assert.Equal(t, "cerebras", settings.Providers[0].Name)
	assert.Equal(t, "csk", settings.Providers[0].APIKey)
	assert.InDelta(t, 0.5, settings.Providers[0].RequestsPerSecond, 1e-9)
	assert.Equal(t, "https://api.cerebras.ai/v1", settings.Providers[0].BaseURL)
	assert.Equal(t, "local", settings.Providers[1].Name)
	assert.Equal(t, "llama3.1", settings.Providers[1].Model)
	assert.True(t, settings.Providers[1].IsConfigured())

	require.NoError(t, svc.Validate(settings))
}

func TestSettingsService_Get_InvalidValues(t *testing.T) {
	t.Run("bad duration", func(t *testing.T) {
		svc := newSettingsService(t, "[generation]\ncall_timeout = \"soon\"\n", nil)
		_, err := svc.Get()
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unknown provider kind", func(t *testing.T) {
		svc := newSettingsService(t, "[[providers]]\nkind = \"gemini\"\n", nil)
		_, err := svc.Get()
		assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	})
}

func TestSettingsService_Validate(t *testing.T) {
	svc := newSettingsService(t, "", nil)

	tests := []struct {
		name   string
		mutate func(*domain.AppSettings)
		want   error
	}{
		{"top_k", func(s *domain.AppSettings) { s.Retrieval.TopK = 0 }, domain.ErrInvalidInput},
		{"threshold", func(s *domain.AppSettings) { s.Retrieval.SimilarityThreshold = 1.5 }, domain.ErrInvalidInput},
		{"over fetch", func(s *domain.AppSettings) { s.Retrieval.OverFetchFactor = 1 }, domain.ErrInvalidInput},
		{"boost", func(s *domain.AppSettings) { s.Retrieval.ExactMatchBoost = 0.5 }, domain.ErrInvalidInput},
		{"memory", func(s *domain.AppSettings) { s.Conversation.MemoryTurns = 0 }, domain.ErrInvalidInput},
		{"sessions", func(s *domain.AppSettings) { s.Conversation.MaxSessions = 0 }, domain.ErrInvalidInput},
		{"policy", func(s *domain.AppSettings) { s.Generation.OnUnavailable = "ignore" }, domain.ErrInvalidInput},
		{"backend", func(s *domain.AppSettings) { s.VectorStore.Backend = "faiss" }, domain.ErrUnsupportedType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := svc.GetDefaults()
			tt.mutate(&settings)
			assert.ErrorIs(t, svc.Validate(&settings), tt.want)
		})
	}
}

func TestSettingsService_AddProvider(t *testing.T) {
	svc := newSettingsService(t, "", map[string]string{"ANTHROPIC_API_KEY": "sk-ant"})

	err := svc.AddProvider(domain.ProviderSettings{
		Name:  "local",
		Kind:  domain.AIProviderOllama,
		Model: "llama3.1",
	})
	require.NoError(t, err)

	settings, err := svc.Get()
	require.NoError(t, err)
	require.Len(t, settings.Providers, 2)
	assert.Equal(t, domain.AIProviderAnthropic, settings.Providers[0].Kind, "environment provider keeps its priority")
	assert.Equal(t, "sk-ant", settings.Providers[0].APIKey)
	assert.Equal(t, "local", settings.Providers[1].Name)
	assert.Equal(t, "llama3.1", settings.Providers[1].Model)
	assert.Equal(t, domain.AIProviderOllama.DefaultBaseURL(), settings.Providers[1].BaseURL)

	assert.ErrorIs(t, svc.AddProvider(domain.ProviderSettings{Kind: "gemini"}), domain.ErrUnsupportedType)
}

func TestSettingsService_SetEmbedding(t *testing.T) {
	svc := newSettingsService(t, "", nil)

	err := svc.SetEmbedding(domain.EmbeddingSettings{
		Provider:   domain.AIProviderOpenAI,
		Model:      "text-embedding-3-small",
		APIKey:     "sk-emb",
		Dimensions: 512,
	})
	require.NoError(t, err)

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", settings.Embedding.Model)
	assert.Equal(t, "sk-emb", settings.Embedding.APIKey)
	assert.Equal(t, 512, settings.Embedding.Dimensions)

	assert.ErrorIs(t, svc.SetEmbedding(domain.EmbeddingSettings{Provider: "bogus"}), domain.ErrUnsupportedType)
}

func TestSettingsService_InMemoryStore(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		"retrieval.top_k": 8,
		"providers": []map[string]any{
			{"kind": "cerebras", "api_key": "csk-1"},
		},
	})
	svc := NewSettingsService(store)
	svc.getenv = func(string) string { return "" }

	require.NoError(t, svc.AddProvider(domain.ProviderSettings{Kind: domain.AIProviderOllama, Model: "llama3.2"}))

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, 8, settings.Retrieval.TopK)
	require.Len(t, settings.Providers, 2)
	assert.Equal(t, domain.AIProviderCerebras, settings.Providers[0].Kind)
	assert.Equal(t, "csk-1", settings.Providers[0].APIKey)
	assert.Equal(t, "ollama", settings.Providers[1].Name)
	assert.Equal(t, "http://localhost:11434", settings.Providers[1].BaseURL)
}
