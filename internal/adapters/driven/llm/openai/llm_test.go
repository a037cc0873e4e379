package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

func newTestProvider(t *testing.T, name string, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewProvider(LLMConfig{Name: name, APIKey: "sk-test", BaseURL: server.URL + "/", Model: "llama3.1-70b"})
	require.NoError(t, err)
	return p
}

func TestNewProvider_RequiresKey(t *testing.T) {
	_, err := NewProvider(LLMConfig{})
	assert.Error(t, err)

	p, err := NewProvider(LLMConfig{APIKey: "sk"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
	assert.Equal(t, DefaultLLMModel, p.ModelName())
}

func TestProvider_Generate(t *testing.T) {
	var got chatCompletionRequest
	p := newTestProvider(t, "cerebras", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"content": "Outdoor Afro runs hikes."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 12, "prompt_tokens_details": {"cached_tokens": 64}}
		}`))
	})

	resp, err := p.Generate(context.Background(), domain.LLMRequest{
		SystemPrompt:  "sys",
		ContextBlocks: []domain.ContextBlock{{Text: "1. Outdoor Afro", Cache: domain.CacheHintCacheable}},
		History:       []domain.ConversationTurn{{Role: domain.RoleUser, Content: "a"}, {Role: domain.RoleAssistant, Content: "b"}},
		UserMessage:   "hiking groups",
		MaxTokens:     200,
	})
	require.NoError(t, err)

	assert.Equal(t, "Outdoor Afro runs hikes.", resp.Text)
	assert.Equal(t, domain.TokenUsage{InputTokens: 120, OutputTokens: 12, CacheReadTokens: 64}, resp.Usage)

	assert.Equal(t, "llama3.1-70b", got.Model)
	assert.Equal(t, 200, got.MaxTokens)
	require.NotNil(t, got.Temperature)
	assert.Zero(t, *got.Temperature, "zero temperature is sent explicitly")
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "1. Outdoor Afro")
	assert.Equal(t, "hiking groups", got.Messages[3].Content)
}

func TestProvider_Generate_DeepSeekCacheHits(t *testing.T) {
	p := newTestProvider(t, "deepseek", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"content": "ok"}}],
			"usage": {"prompt_tokens": 50, "completion_tokens": 2, "prompt_cache_hit_tokens": 30}
		}`))
	})

	resp, err := p.Generate(context.Background(), domain.LLMRequest{UserMessage: "hi"})
	require.NoError(t, err)
	assert.Equal(t, 30, resp.Usage.CacheReadTokens)
}

func TestProvider_Generate_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		header    string
		body      string
		transient bool
		wantWait  time.Duration
	}{
		{"rate limited", http.StatusTooManyRequests, "7", `{"error":{"message":"quota"}}`, true, 7 * time.Second},
		{"server error", http.StatusBadGateway, "", `upstream`, true, 0},
		{"forbidden", http.StatusForbidden, "", `{"error":{"message":"no access"}}`, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, "deepseek", func(w http.ResponseWriter, _ *http.Request) {
				if tt.header != "" {
					w.Header().Set("Retry-After", tt.header)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := p.Generate(context.Background(), domain.LLMRequest{UserMessage: "hi"})
			var pe *domain.ProviderError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, "deepseek", pe.Provider)
			assert.Equal(t, tt.transient, pe.Retryable)
			assert.Equal(t, tt.wantWait, pe.RetryAfter)
		})
	}
}

func TestProvider_Generate_NoChoices(t *testing.T) {
	p := newTestProvider(t, "openai", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	})

	_, err := p.Generate(context.Background(), domain.LLMRequest{UserMessage: "hi"})
	assert.ErrorIs(t, err, domain.ErrProviderFatal)
}

func TestProvider_Ping(t *testing.T) {
	status := http.StatusOK
	p := newTestProvider(t, "openai", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.WriteHeader(status)
	})

	assert.NoError(t, p.Ping(context.Background()))

	status = http.StatusUnauthorized
	err := p.Ping(context.Background())
	assert.ErrorIs(t, err, domain.ErrProviderFatal)
}
