// Package ollama generates answers with a local Ollama server.
package ollama

import (
	"cmp"
	"context"
	"net/http"
	"time"

	"github.com/custodia-labs/pocfinder/internal/adapters/driven/httpjson"
	"github.com/custodia-labs/pocfinder/internal/core/domain"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driven"
)

var _ driven.LLMProvider = (*Provider)(nil)

// Defaults applied by NewProvider.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig configures the provider. Name defaults to "ollama".
type LLMConfig struct {
	Name    string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Provider calls Ollama's /api/chat endpoint without streaming.
type Provider struct {
	api   *httpjson.Client
	name  string
	model string
	now   func() time.Time
}

type options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *options      `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Message         chatMessage `json:"message"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}

// NewProvider creates the provider. Ollama needs no API key.
func NewProvider(cfg LLMConfig) *Provider {
	return &Provider{
		api: httpjson.New(
			cmp.Or(cfg.BaseURL, DefaultBaseURL),
			cmp.Or(cfg.Timeout, DefaultLLMTimeout),
			nil,
		),
		name:  cmp.Or(cfg.Name, string(domain.AIProviderOllama)),
		model: cmp.Or(cfg.Model, DefaultLLMModel),
		now:   time.Now,
	}
}

// Name returns the configured provider name.
func (p *Provider) Name() string { return p.name }

// ModelName returns the generation model.
func (p *Provider) ModelName() string { return p.model }

// Generate performs one chat call. Ollama has no prompt cache, so cache
// hints are ignored and every block is folded into the system message.
func (p *Provider) Generate(ctx context.Context, req domain.LLMRequest) (domain.LLMResponse, error) {
	msgs := make([]chatMessage, 0, len(req.History)+2)
	if system := req.SystemText(); system != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: system})
	}
	for _, turn := range req.History {
		msgs = append(msgs, chatMessage{Role: string(turn.Role), Content: turn.Content})
	}
	msgs = append(msgs, chatMessage{Role: string(domain.RoleUser), Content: req.UserMessage})

	var resp chatResponse
	err := p.api.Do(ctx, http.MethodPost, "/api/chat", chatRequest{
		Model:    p.model,
		Messages: msgs,
		Options:  &options{NumPredict: req.MaxTokens, Temperature: req.Temperature},
	}, &resp)
	if err != nil {
		return domain.LLMResponse{}, httpjson.ProviderError(p.name, err, p.now())
	}
	if resp.Message.Content == "" {
		return domain.LLMResponse{}, &domain.ProviderError{Provider: p.name, Message: "empty response"}
	}

	return domain.LLMResponse{
		Text:  resp.Message.Content,
		Usage: domain.TokenUsage{InputTokens: resp.PromptEvalCount, OutputTokens: resp.EvalCount},
	}, nil
}

// Ping lists local models, which checks the server without loading one.
func (p *Provider) Ping(ctx context.Context) error {
	return httpjson.ProviderError(p.name, p.api.Do(ctx, http.MethodGet, "/api/tags", nil, nil), p.now())
}

// Close drops idle connections.
func (p *Provider) Close() error { return p.api.Close() }
