// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

// LLMProvider wraps one text-generation backend behind the uniform request shape.
// Backends differ in wire format; the chain treats them as interchangeable.
//
// Implementations include:
//   - Anthropic (Claude, honours cacheable context blocks)
//   - OpenAI-compatible (OpenAI, Cerebras, DeepSeek)
//   - Ollama (local models)
type LLMProvider interface {
	// Name labels the provider in logs, errors and responses.
	Name() string

	// Generate performs a single completion call with no retries.
	// Failures are *domain.ProviderError so the chain can classify them.
	Generate(ctx context.Context, req domain.LLMRequest) (domain.LLMResponse, error)

	// ModelName returns the model used for generation.
	ModelName() string

	// Ping validates credentials and reachability with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// TextGenerator is the generation capability shared by the provider chain.
type TextGenerator interface {
	Generate(ctx context.Context, req domain.LLMRequest) (domain.LLMResponse, error)
}
