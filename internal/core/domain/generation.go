package domain

import (
	"fmt"
	"strings"
	"time"
)

// CacheHint tells caching-capable backends whether a block is a stable prefix.
type CacheHint int

// Cache hints.
const (
	// CacheHintVolatile blocks change every turn.
	CacheHintVolatile CacheHint = iota

	// CacheHintCacheable blocks change rarely and may be cached by the backend.
	CacheHintCacheable
)

// String returns the string representation.
func (h CacheHint) String() string {
	if h == CacheHintCacheable {
		return "cacheable"
	}
	return "volatile"
}

// ContextBlock is a labelled chunk of prompt context.
type ContextBlock struct {
	Label string
	Text  string
	Cache CacheHint
}

// LLMRequest is the uniform generation request shared by every backend.
type LLMRequest struct {
	SystemPrompt  string
	ContextBlocks []ContextBlock
	History       []ConversationTurn
	UserMessage   string
	MaxTokens     int
	Temperature   float64
}

// CacheableBlocks returns the blocks tagged cacheable, in order.
func (r LLMRequest) CacheableBlocks() []ContextBlock {
	return r.blocks(CacheHintCacheable)
}

// VolatileBlocks returns the blocks tagged volatile, in order.
func (r LLMRequest) VolatileBlocks() []ContextBlock {
	return r.blocks(CacheHintVolatile)
}

// SystemText flattens the system prompt and every context block into one string
// for backends without structured system content.
func (r LLMRequest) SystemText() string {
	parts := make([]string, 0, len(r.ContextBlocks)+1)
	if p := strings.TrimSpace(r.SystemPrompt); p != "" {
		parts = append(parts, p)
	}
	for _, b := range r.ContextBlocks {
		if t := b.Render(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Render formats the block as a titled context section. Empty blocks render as "".
func (b ContextBlock) Render() string {
	text := strings.TrimSpace(b.Text)
	if text == "" {
		return ""
	}
	return "Context:\n" + text
}

func (r LLMRequest) blocks(h CacheHint) []ContextBlock {
	var out []ContextBlock
	for _, b := range r.ContextBlocks {
		if b.Cache == h {
			out = append(out, b)
		}
	}
	return out
}

// TokenUsage is the token accounting reported by a backend.
type TokenUsage struct {
	InputTokens      int
	OutputTokens     int
	CacheReadTokens  int
	CacheWriteTokens int
}

// Add returns the sum of two usages.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:      u.InputTokens + o.InputTokens,
		OutputTokens:     u.OutputTokens + o.OutputTokens,
		CacheReadTokens:  u.CacheReadTokens + o.CacheReadTokens,
		CacheWriteTokens: u.CacheWriteTokens + o.CacheWriteTokens,
	}
}

// LLMResponse is the uniform generation response.
type LLMResponse struct {
	Text string

	// ProviderUsed is the name of the provider that answered.
	ProviderUsed string

	// ProviderIndex is the 1-based position of that provider in the chain.
	ProviderIndex int

	Usage   TokenUsage
	Latency time.Duration

	// Attempts counts every call made across the chain for this request.
	Attempts int
}

// Pricing is the per-million-token price used for cost estimates.
type Pricing struct {
	InputPerMillion     float64
	OutputPerMillion    float64
	CacheReadPerMillion float64
}

// HaikuPricing is the Claude Haiku price list in USD.
var HaikuPricing = Pricing{
	InputPerMillion:     1.00,
	OutputPerMillion:    5.00,
	CacheReadPerMillion: 0.10,
}

// UsageStats accumulates token usage across requests.
type UsageStats struct {
	Requests int
	Usage    TokenUsage
}

// EstimatedCost returns the USD cost of the accumulated usage.
func (s UsageStats) EstimatedCost(p Pricing) float64 {
	const million = 1_000_000.0
	return float64(s.Usage.InputTokens)/million*p.InputPerMillion +
		float64(s.Usage.OutputTokens)/million*p.OutputPerMillion +
		float64(s.Usage.CacheReadTokens)/million*p.CacheReadPerMillion
}

// CacheSavings returns the USD saved by cache reads versus full-price input.
func (s UsageStats) CacheSavings(p Pricing) float64 {
	const million = 1_000_000.0
	return float64(s.Usage.CacheReadTokens) / million * (p.InputPerMillion - p.CacheReadPerMillion)
}

// AttemptState is a state of the provider chain's per-request state machine.
type AttemptState string

// Attempt states. SUCCESS and FAILED are terminal.
const (
	AttemptPending    AttemptState = "PENDING"
	AttemptAttempting AttemptState = "ATTEMPTING"
	AttemptSuccess    AttemptState = "SUCCESS"
	AttemptRetry      AttemptState = "RETRY"
	AttemptAdvance    AttemptState = "ADVANCE"
	AttemptFailed     AttemptState = "FAILED"
)

// IsTerminal reports whether no further transitions follow.
func (s AttemptState) IsTerminal() bool {
	return s == AttemptSuccess || s == AttemptFailed
}

// ChainTransition records one state change of the provider chain.
type ChainTransition struct {
	State    AttemptState
	Provider string

	// ProviderIndex and Attempt are 1-based; zero for PENDING and FAILED.
	ProviderIndex int
	Attempt       int
	Err           error
}

// Summary renders the stats on one line with a cost estimate.
func (s UsageStats) Summary(p Pricing) string {
	return fmt.Sprintf("%d requests | %d input + %d output tokens | %d cached | est. $%.4f (saved $%.4f)",
		s.Requests, s.Usage.InputTokens, s.Usage.OutputTokens, s.Usage.CacheReadTokens,
		s.EstimatedCost(p), s.CacheSavings(p))
}
