package driving

import (
	"context"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

// Retriever provides hybrid search over one collection.
type Retriever interface {
	// Search returns at most topK results above the similarity threshold,
	// ranked by combined score.
	Search(ctx context.Context, collection, query string, topK int, filter domain.SearchFilter) ([]domain.SearchResult, error)
}

// CatalogService exposes direct platform and event lookups to external actors.
type CatalogService interface {
	// SearchPlatforms searches the platform collection.
	SearchPlatforms(ctx context.Context, query string, topK int, filter domain.SearchFilter) ([]domain.SearchResult, error)

	// SearchEvents searches upcoming events within the configured window.
	SearchEvents(ctx context.Context, query string, topK int, platformID string) ([]domain.SearchResult, error)
}
