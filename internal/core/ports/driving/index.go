package driving

import (
	"context"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

// IndexStats reports what an index build wrote.
type IndexStats struct {
	Platforms int
	Events    int
	Skipped   int
}

// IndexService builds the vector index from curated records.
type IndexService interface {
	// Build validates, embeds and upserts platforms and events.
	Build(ctx context.Context, platforms []domain.PlatformRecord, events []domain.EventRecord) (IndexStats, error)
}
