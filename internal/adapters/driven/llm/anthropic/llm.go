// Package anthropic provides an LLM provider adapter using the Anthropic Messages API.
package anthropic

import (
	"cmp"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/pocfinder/internal/adapters/driven/httpjson"
	"github.com/custodia-labs/pocfinder/internal/core/domain"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.LLMProvider = (*Provider)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-3-5-haiku-20241022"
	DefaultTimeout = 120 * time.Second

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"

	defaultMaxTokens = 1024
)

// Config holds configuration for the Anthropic provider.
type Config struct {
	// Name labels the provider (default: anthropic).
	Name string

	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the LLM model to use (default: claude-3-5-haiku-20241022).
	Model string

	// Timeout is the HTTP client timeout (default: 120s).
	Timeout time.Duration
}

// Provider generates text using the Anthropic Messages API.
// Cacheable context blocks are sent as system blocks marked for prompt caching.
type Provider struct {
	api   *httpjson.Client
	name  string
	model string
	now   func() time.Time
}

// messagesRequest is the Anthropic /v1/messages request format.
type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	System      []systemBlock     `json:"system,omitempty"`
	Temperature *float64          `json:"temperature,omitempty"`
}

// systemBlock is one text block of structured system content.
type systemBlock struct {
	Type         string        `json:"type"`
	Text         string        `json:"text"`
	CacheControl *cacheControl `json:"cache_control,omitempty"`
}

type cacheControl struct {
	Type string `json:"type"`
}

// messagesMessage is the Anthropic message format.
type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the Anthropic /v1/messages response format.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens              int `json:"input_tokens"`
		OutputTokens             int `json:"output_tokens"`
		CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
		CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	} `json:"usage"`
}

// NewProvider creates a new Anthropic provider.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	return &Provider{
		api: httpjson.New(
			cmp.Or(cfg.BaseURL, DefaultBaseURL),
			cmp.Or(cfg.Timeout, DefaultTimeout),
			http.Header{
				"X-Api-Key":         {cfg.APIKey},
				"Anthropic-Version": {anthropicVersion},
			},
		),
		name:  cmp.Or(cfg.Name, string(domain.AIProviderAnthropic)),
		model: cmp.Or(cfg.Model, DefaultModel),
		now:   time.Now,
	}, nil
}

// Name returns the configured provider name.
func (p *Provider) Name() string {
	return p.name
}

// ModelName returns the model used for generation.
func (p *Provider) ModelName() string {
	return p.model
}

// Generate performs one Messages API call.
func (p *Provider) Generate(ctx context.Context, req domain.LLMRequest) (domain.LLMResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := req.Temperature

	body := messagesRequest{
		Model:       p.model,
		Messages:    buildMessages(req),
		MaxTokens:   maxTokens,
		System:      buildSystem(req),
		Temperature: &temperature,
	}

	msgResp, err := p.send(ctx, body)
	if err != nil {
		return domain.LLMResponse{}, err
	}

	var text strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return domain.LLMResponse{}, &domain.ProviderError{
			Provider: p.name,
			Message:  "no text content returned (stop_reason " + msgResp.StopReason + ")",
		}
	}

	return domain.LLMResponse{
		Text: text.String(),
		Usage: domain.TokenUsage{
			InputTokens:      msgResp.Usage.InputTokens,
			OutputTokens:     msgResp.Usage.OutputTokens,
			CacheReadTokens:  msgResp.Usage.CacheReadInputTokens,
			CacheWriteTokens: msgResp.Usage.CacheCreationInputTokens,
		},
	}, nil
}

// Ping validates the API key with a one-token request.
func (p *Provider) Ping(ctx context.Context) error {
	_, err := p.send(ctx, messagesRequest{
		Model:     p.model,
		Messages:  []messagesMessage{{Role: "user", Content: "ping"}},
		MaxTokens: 1,
	})
	return err
}

// Close drops idle connections.
func (p *Provider) Close() error { return p.api.Close() }

// send posts to /v1/messages and converts failures to *domain.ProviderError.
func (p *Provider) send(ctx context.Context, body messagesRequest) (*messagesResponse, error) {
	var resp messagesResponse
	if err := p.api.Do(ctx, http.MethodPost, "/v1/messages", body, &resp); err != nil {
		return nil, httpjson.ProviderError(p.name, err, p.now())
	}
	return &resp, nil
}

// buildSystem emits the system prompt, then cacheable blocks, then volatile
// blocks. The prompt and the last non-empty cacheable block are cache breakpoints.
func buildSystem(req domain.LLMRequest) []systemBlock {
	var blocks []systemBlock
	if s := strings.TrimSpace(req.SystemPrompt); s != "" {
		blocks = append(blocks, systemBlock{Type: "text", Text: s, CacheControl: ephemeral()})
	}

	start := len(blocks)
	for _, b := range req.CacheableBlocks() {
		if text := b.Render(); text != "" {
			blocks = append(blocks, systemBlock{Type: "text", Text: text})
		}
	}
	if n := len(blocks); n > start {
		blocks[n-1].CacheControl = ephemeral()
	}

	for _, b := range req.VolatileBlocks() {
		if text := b.Render(); text != "" {
			blocks = append(blocks, systemBlock{Type: "text", Text: text})
		}
	}
	return blocks
}

func ephemeral() *cacheControl {
	return &cacheControl{Type: "ephemeral"}
}

func buildMessages(req domain.LLMRequest) []messagesMessage {
	msgs := make([]messagesMessage, 0, len(req.History)+1)
	for _, turn := range req.History {
		msgs = append(msgs, messagesMessage{Role: string(turn.Role), Content: turn.Content})
	}
	return append(msgs, messagesMessage{Role: string(domain.RoleUser), Content: req.UserMessage})
}
