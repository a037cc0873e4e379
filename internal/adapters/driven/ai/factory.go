// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	embedcache "github.com/custodia-labs/pocfinder/internal/adapters/driven/embedding/cache"
	ollamaembed "github.com/custodia-labs/pocfinder/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/pocfinder/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/pocfinder/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/pocfinder/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/pocfinder/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/pocfinder/internal/adapters/driven/llm/ratelimit"
	chromemstore "github.com/custodia-labs/pocfinder/internal/adapters/driven/vectorstore/chromem"
	memorystore "github.com/custodia-labs/pocfinder/internal/adapters/driven/vectorstore/memory"
	qdrantstore "github.com/custodia-labs/pocfinder/internal/adapters/driven/vectorstore/qdrant"
	"github.com/custodia-labs/pocfinder/internal/core/domain"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driven"
	"github.com/custodia-labs/pocfinder/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	Providers        []driven.LLMProvider // Usable providers, highest priority first.
	VectorStore      driven.VectorStore
	Warnings         []string // Non-fatal issues, e.g. providers dropped at startup.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.VectorStore != nil {
		r.VectorStore.Close()
	}
	for _, p := range r.Providers {
		p.Close()
	}
}

// Initialise builds the embedder, the vector store and the provider chain members.
// Providers that fail their ping are dropped with a warning; none left is an error.
func Initialise(ctx context.Context, settings *domain.AppSettings) (*InitResult, error) {
	result := &InitResult{}

	embedder, err := CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
	if err != nil {
		return nil, err
	}
	result.EmbeddingService = embedder

	store, err := CreateVectorStore(settings.VectorStore, embedder.Dimensions())
	if err != nil {
		result.Close()
		return nil, fmt.Errorf("vector store: %w", err)
	}
	result.VectorStore = store

	providers, warnings, err := BuildProviderChain(ctx, settings.Providers, settings.Generation.CallTimeout)
	result.Warnings = warnings
	if err != nil {
		result.Close()
		return nil, err
	}
	result.Providers = providers

	return result, nil
}

// BuildProviderChain creates every configured provider in order and pings it.
// Failing providers are closed and reported in the returned warnings.
func BuildProviderChain(
	ctx context.Context, settings []domain.ProviderSettings, callTimeout time.Duration,
) ([]driven.LLMProvider, []string, error) {
	var (
		providers []driven.LLMProvider
		warnings  []string
	)

	for _, ps := range settings {
		p, err := CreateProvider(ps, callTimeout)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("provider %s disabled: %v", ps.DisplayName(), err))
			continue
		}
		if err := ping(ctx, p.Ping); err != nil {
			p.Close()
			warnings = append(warnings, fmt.Sprintf("provider %s unreachable: %v", ps.DisplayName(), err))
			continue
		}
		providers = append(providers, p)
	}

	for _, w := range warnings {
		logger.Warn("%s", w)
	}
	if len(providers) == 0 {
		if len(warnings) == 0 {
			return nil, nil, fmt.Errorf("%w: configure [[providers]] or set ANTHROPIC_API_KEY, CEREBRAS_API_KEY or DEEPSEEK_API_KEY",
				domain.ErrNoProviders)
		}
		return nil, warnings, fmt.Errorf("%w: %s", domain.ErrNoProviders, warnings[len(warnings)-1])
	}
	return providers, warnings, nil
}

// CreateProvider creates one LLM backend, rate limited when configured.
func CreateProvider(settings domain.ProviderSettings, timeout time.Duration) (driven.LLMProvider, error) {
	if !settings.IsConfigured() {
		if !settings.Kind.IsValid() {
			return nil, fmt.Errorf("%w: provider kind %q", domain.ErrUnsupportedType, settings.Kind)
		}
		return nil, fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, settings.Kind)
	}

	model := settings.Model
	if model == "" {
		model = domain.DefaultLLMModels()[settings.Kind]
	}
	baseURL := settings.BaseURL
	if baseURL == "" {
		baseURL = settings.Kind.DefaultBaseURL()
	}

	var (
		p   driven.LLMProvider
		err error
	)
	switch {
	case settings.Kind == domain.AIProviderAnthropic:
		p, err = anthropicllm.NewProvider(anthropicllm.Config{
			Name:    settings.DisplayName(),
			APIKey:  settings.APIKey,
			BaseURL: baseURL,
			Model:   model,
			Timeout: timeout,
		})
	case settings.Kind.IsOpenAICompatible():
		p, err = openaillm.NewProvider(openaillm.LLMConfig{
			Name:    settings.DisplayName(),
			APIKey:  settings.APIKey,
			BaseURL: baseURL,
			Model:   model,
			Timeout: timeout,
		})
	case settings.Kind == domain.AIProviderOllama:
		p = ollamallm.NewProvider(ollamallm.LLMConfig{
			Name:    settings.DisplayName(),
			BaseURL: baseURL,
			Model:   model,
			Timeout: timeout,
		})
	default:
		return nil, fmt.Errorf("%w: provider kind %q", domain.ErrUnsupportedType, settings.Kind)
	}
	if err != nil {
		return nil, err
	}

	return ratelimit.Wrap(p, ratelimit.Config{RequestsPerSecond: settings.RequestsPerSecond}), nil
}

// CreateAndValidateEmbeddingService creates the cached embedding service and validates connectivity.
func CreateAndValidateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	if err := ping(ctx, svc.Ping); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}

	return embedcache.New(svc, embedcache.DefaultTTL), nil
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, errors.New("embedding is not configured")
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderOpenAI:
		if settings.APIKey == "" {
			return nil, errors.New("openai embeddings require an API key")
		}
		return createOpenAIEmbedding(settings)

	case domain.AIProviderAnthropic, domain.AIProviderCerebras, domain.AIProviderDeepSeek:
		return nil, fmt.Errorf("%s does not support embeddings, use ollama or openai", settings.Provider)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", settings.Provider)
	}
}

// CreateVectorStore opens the configured vector store backend.
// The memory backend needs the embedding dimensions to reject mismatched vectors.
func CreateVectorStore(settings domain.VectorStoreSettings, dimensions int) (driven.VectorStore, error) {
	switch settings.Backend {
	case domain.VectorBackendMemory:
		return memorystore.NewVectorStore(dimensions), nil

	case domain.VectorBackendChromem, "":
		return chromemstore.NewVectorStore(chromemstore.Config{Path: settings.Path})

	case domain.VectorBackendQdrant:
		return qdrantstore.NewVectorStore(qdrantstore.Config{
			Host:   settings.Host,
			Port:   settings.Port,
			APIKey: settings.APIKey,
			UseTLS: settings.UseTLS,
		})

	default:
		return nil, fmt.Errorf("%w: vector store backend %q", domain.ErrUnsupportedType, settings.Backend)
	}
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: settings.Dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: settings.Dimensions,
	})
}

func ping(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return fn(ctx)
}
