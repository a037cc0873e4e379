package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	embedcache "github.com/custodia-labs/pocfinder/internal/adapters/driven/embedding/cache"
	"github.com/custodia-labs/pocfinder/internal/adapters/driven/llm/ratelimit"
	chromemstore "github.com/custodia-labs/pocfinder/internal/adapters/driven/vectorstore/chromem"
	memorystore "github.com/custodia-labs/pocfinder/internal/adapters/driven/vectorstore/memory"
	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

// newOllamaServer fakes the Ollama endpoints used for pings and embeddings.
func newOllamaServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[]}`))
		case "/api/embed":
			var req struct {
				Input []string `json:"input"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			out := make([][]float32, len(req.Input))
			for i := range out {
				out[i] = make([]float32, dims)
				out[i][0] = 1
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": out})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

// newRejectingServer answers every request with 401.
func newRejectingServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestInitResult_Close(t *testing.T) {
	t.Run("close with nil services", func(t *testing.T) {
		result := &InitResult{}
		// Should not panic
		result.Close()
	})
}

func TestCreateProvider(t *testing.T) {
	tests := []struct {
		name     string
		settings domain.ProviderSettings
		wantErr  error
		wantName string
	}{
		{
			name:     "anthropic",
			settings: domain.ProviderSettings{Kind: domain.AIProviderAnthropic, APIKey: "sk-ant"},
			wantName: "anthropic",
		},
		{
			name:     "cerebras is openai compatible",
			settings: domain.ProviderSettings{Name: "fast", Kind: domain.AIProviderCerebras, APIKey: "csk"},
			wantName: "fast",
		},
		{
			name:     "deepseek",
			settings: domain.ProviderSettings{Kind: domain.AIProviderDeepSeek, APIKey: "dsk"},
			wantName: "deepseek",
		},
		{
			name:     "ollama needs no key",
			settings: domain.ProviderSettings{Kind: domain.AIProviderOllama},
			wantName: "ollama",
		},
		{
			name:     "missing key",
			settings: domain.ProviderSettings{Kind: domain.AIProviderAnthropic},
			wantErr:  domain.ErrInvalidInput,
		},
		{
			name:     "unknown kind",
			settings: domain.ProviderSettings{Kind: "gemini", APIKey: "x"},
			wantErr:  domain.ErrUnsupportedType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := CreateProvider(tt.settings, time.Second)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
			assert.Equal(t, domain.DefaultLLMModels()[tt.settings.Kind], p.ModelName())
			assert.NoError(t, p.Close())
		})
	}
}

func TestCreateProvider_RateLimited(t *testing.T) {
	p, err := CreateProvider(domain.ProviderSettings{
		Kind:              domain.AIProviderOllama,
		RequestsPerSecond: 2,
	}, time.Second)
	require.NoError(t, err)

	_, ok := p.(*ratelimit.Provider)
	assert.True(t, ok)
	assert.Equal(t, "ollama", p.Name())
}

func TestBuildProviderChain_DropsUnreachable(t *testing.T) {
	good := newOllamaServer(t, 4)
	bad := newRejectingServer(t)

	providers, warnings, err := BuildProviderChain(context.Background(), []domain.ProviderSettings{
		{Name: "claude", Kind: domain.AIProviderAnthropic, APIKey: "bad", BaseURL: bad.URL},
		{Name: "local", Kind: domain.AIProviderOllama, BaseURL: good.URL},
		{Name: "nokey", Kind: domain.AIProviderDeepSeek},
	}, time.Second)
	require.NoError(t, err)

	require.Len(t, providers, 1)
	assert.Equal(t, "local", providers[0].Name())
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "claude unreachable")
	assert.Contains(t, warnings[1], "nokey disabled")
}

func TestBuildProviderChain_NoneUsable(t *testing.T) {
	bad := newRejectingServer(t)

	_, warnings, err := BuildProviderChain(context.Background(), []domain.ProviderSettings{
		{Kind: domain.AIProviderAnthropic, APIKey: "bad", BaseURL: bad.URL},
	}, time.Second)
	assert.ErrorIs(t, err, domain.ErrNoProviders)
	assert.Len(t, warnings, 1)

	_, _, err = BuildProviderChain(context.Background(), nil, time.Second)
	assert.ErrorIs(t, err, domain.ErrNoProviders)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name        string
		settings    *domain.EmbeddingSettings
		wantErr     bool
		errContains string
	}{
		{
			name:        "nil settings",
			settings:    nil,
			wantErr:     true,
			errContains: "not configured",
		},
		{
			name: "ollama provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
				BaseURL:  "http://localhost:11434",
				Model:    "nomic-embed-text",
			},
		},
		{
			name: "openai provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
				APIKey:   "test-key",
				Model:    "text-embedding-3-small",
			},
		},
		{
			name:        "openai without key",
			settings:    &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI},
			wantErr:     true,
			errContains: "API key",
		},
		{
			name: "anthropic provider returns error",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderAnthropic,
				APIKey:   "test-key",
			},
			wantErr:     true,
			errContains: "anthropic does not support embeddings",
		},
		{
			name:        "unknown provider",
			settings:    &domain.EmbeddingSettings{Provider: "unknown"},
			wantErr:     true,
			errContains: "unsupported embedding provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, svc)
			assert.Equal(t, tt.settings.Model, svc.ModelName())
		})
	}
}

func TestCreateAndValidateEmbeddingService(t *testing.T) {
	server := newOllamaServer(t, 384)

	svc, err := CreateAndValidateEmbeddingService(context.Background(), &domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  server.URL,
		Model:    "all-minilm",
	})
	require.NoError(t, err)
	defer svc.Close()

	_, cached := svc.(*embedcache.EmbeddingService)
	assert.True(t, cached, "validated services are wrapped in the query cache")
	assert.Equal(t, 384, svc.Dimensions())

	bad := newRejectingServer(t)
	_, err = CreateAndValidateEmbeddingService(context.Background(), &domain.EmbeddingSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  bad.URL,
	})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestCreateVectorStore(t *testing.T) {
	store, err := CreateVectorStore(domain.VectorStoreSettings{Backend: domain.VectorBackendMemory}, 4)
	require.NoError(t, err)
	assert.IsType(t, &memorystore.VectorStore{}, store)

	store, err = CreateVectorStore(domain.VectorStoreSettings{
		Backend: domain.VectorBackendChromem,
		Path:    t.TempDir(),
	}, 4)
	require.NoError(t, err)
	assert.IsType(t, &chromemstore.VectorStore{}, store)
	assert.NoError(t, store.Close())

	_, err = CreateVectorStore(domain.VectorStoreSettings{Backend: "faiss"}, 4)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestInitialise(t *testing.T) {
	server := newOllamaServer(t, 8)
	settings := domain.DefaultAppSettings()
	settings.Embedding = domain.EmbeddingSettings{
		Provider:   domain.AIProviderOllama,
		BaseURL:    server.URL,
		Model:      "custom",
		Dimensions: 8,
	}
	settings.VectorStore.Backend = domain.VectorBackendMemory
	settings.Providers = []domain.ProviderSettings{{Kind: domain.AIProviderOllama, BaseURL: server.URL}}

	result, err := Initialise(context.Background(), &settings)
	require.NoError(t, err)
	defer result.Close()

	assert.Len(t, result.Providers, 1)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, 8, result.EmbeddingService.Dimensions())
	assert.NotNil(t, result.VectorStore)
}

func TestInitialise_NoProviders(t *testing.T) {
	server := newOllamaServer(t, 8)
	settings := domain.DefaultAppSettings()
	settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: server.URL, Dimensions: 8}
	settings.VectorStore.Backend = domain.VectorBackendMemory

	_, err := Initialise(context.Background(), &settings)
	assert.ErrorIs(t, err, domain.ErrNoProviders)
}

func TestConfigValidator(t *testing.T) {
	server := newOllamaServer(t, 4)
	bad := newRejectingServer(t)
	v := NewConfigValidator()
	ctx := context.Background()

	assert.NoError(t, v.ValidateProvider(ctx, domain.ProviderSettings{Kind: domain.AIProviderOllama, BaseURL: server.URL}))
	assert.ErrorIs(t, v.ValidateProvider(ctx, domain.ProviderSettings{
		Kind: domain.AIProviderAnthropic, APIKey: "bad", BaseURL: bad.URL,
	}), domain.ErrProviderFatal)

	assert.NoError(t, v.ValidateEmbedding(ctx, &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: server.URL}))
	assert.Error(t, v.ValidateEmbedding(ctx, &domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic}))
}
