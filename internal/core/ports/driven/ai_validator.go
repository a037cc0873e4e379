package driven

import (
	"context"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

// AIConfigValidator validates AI provider configurations.
// Implementations verify that configurations are valid by testing connectivity
// to the underlying AI services.
type AIConfigValidator interface {
	// ValidateEmbedding validates an embedding configuration by pinging the provider.
	ValidateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error

	// ValidateProvider validates one LLM provider by pinging it.
	ValidateProvider(ctx context.Context, settings domain.ProviderSettings) error
}
