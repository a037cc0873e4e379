// Package openai generates answers with any OpenAI-compatible chat
// completions API (OpenAI, Cerebras, DeepSeek, Groq).
package openai

import (
	"cmp"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/custodia-labs/pocfinder/internal/adapters/driven/httpjson"
	"github.com/custodia-labs/pocfinder/internal/core/domain"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driven"
)

var _ driven.LLMProvider = (*Provider)(nil)

// Defaults applied by NewProvider.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig configures the provider. APIKey is required; BaseURL selects
// the vendor.
type LLMConfig struct {
	Name    string
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Provider calls /chat/completions.
type Provider struct {
	api   *httpjson.Client
	name  string
	model string
	now   func() time.Time
}

type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature *float64            `json:"temperature,omitempty"`
}

type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens        int `json:"prompt_tokens"`
		CompletionTokens    int `json:"completion_tokens"`
		PromptTokensDetails *struct {
			CachedTokens int `json:"cached_tokens"`
		} `json:"prompt_tokens_details,omitempty"`

		// PromptCacheHitTokens is DeepSeek's name for cached prompt tokens.
		PromptCacheHitTokens int `json:"prompt_cache_hit_tokens"`
	} `json:"usage"`
}

// NewProvider creates the provider.
func NewProvider(cfg LLMConfig) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	return &Provider{
		api: httpjson.New(
			cmp.Or(cfg.BaseURL, DefaultBaseURL),
			cmp.Or(cfg.Timeout, DefaultLLMTimeout),
			http.Header{"Authorization": {"Bearer " + cfg.APIKey}},
		),
		name:  cmp.Or(cfg.Name, string(domain.AIProviderOpenAI)),
		model: cmp.Or(cfg.Model, DefaultLLMModel),
		now:   time.Now,
	}, nil
}

// Name returns the configured provider name.
func (p *Provider) Name() string { return p.name }

// ModelName returns the generation model.
func (p *Provider) ModelName() string { return p.model }

// Generate performs one chat completion. These APIs cache prompt prefixes
// automatically, so cacheable blocks only need to come first.
func (p *Provider) Generate(ctx context.Context, req domain.LLMRequest) (domain.LLMResponse, error) {
	temperature := req.Temperature
	var resp chatCompletionResponse
	err := p.api.Do(ctx, http.MethodPost, "/chat/completions", chatCompletionRequest{
		Model:       p.model,
		Messages:    buildMessages(req),
		MaxTokens:   max(req.MaxTokens, 0),
		Temperature: &temperature,
	}, &resp)
	if err != nil {
		return domain.LLMResponse{}, httpjson.ProviderError(p.name, err, p.now())
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return domain.LLMResponse{}, &domain.ProviderError{Provider: p.name, Message: "no response choices returned"}
	}

	cached := resp.Usage.PromptCacheHitTokens
	if d := resp.Usage.PromptTokensDetails; d != nil {
		cached = max(cached, d.CachedTokens)
	}
	return domain.LLMResponse{
		Text: resp.Choices[0].Message.Content,
		Usage: domain.TokenUsage{
			InputTokens:     resp.Usage.PromptTokens,
			OutputTokens:    resp.Usage.CompletionTokens,
			CacheReadTokens: cached,
		},
	}, nil
}

// Ping lists models, which checks the key without spending tokens.
func (p *Provider) Ping(ctx context.Context) error {
	return httpjson.ProviderError(p.name, p.api.Do(ctx, http.MethodGet, "/models", nil, nil), p.now())
}

// Close drops idle connections.
func (p *Provider) Close() error { return p.api.Close() }

func buildMessages(req domain.LLMRequest) []chatCompletionMsg {
	msgs := make([]chatCompletionMsg, 0, len(req.History)+2)
	if system := req.SystemText(); system != "" {
		msgs = append(msgs, chatCompletionMsg{Role: "system", Content: system})
	}
	for _, turn := range req.History {
		msgs = append(msgs, chatCompletionMsg{Role: string(turn.Role), Content: turn.Content})
	}
	return append(msgs, chatCompletionMsg{Role: string(domain.RoleUser), Content: req.UserMessage})
}
