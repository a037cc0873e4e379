package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driven"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driving"
)

// Ensure AnalyticsService implements the interface.
var _ driving.AnalyticsService = (*AnalyticsService)(nil)

// defaultTopN is the length of the top keyword and platform lists.
const defaultTopN = 10

// AnalyticsService reports usage statistics from the query log.
type AnalyticsService struct {
	store driven.QueryLogStore
}

// NewAnalyticsService creates an analytics service. A nil store means
// analytics is disabled.
func NewAnalyticsService(store driven.QueryLogStore) *AnalyticsService {
	return &AnalyticsService{store: store}
}

// Stats summarises logged queries.
func (s *AnalyticsService) Stats(ctx context.Context, limit int) (domain.QueryStats, error) {
	if s.store == nil {
		return domain.QueryStats{}, fmt.Errorf("%w: analytics is disabled", domain.ErrNotFound)
	}
	if limit <= 0 {
		limit = defaultTopN
	}
	stats, err := s.store.Stats(ctx, limit)
	if err != nil {
		return domain.QueryStats{}, fmt.Errorf("query stats: %w", err)
	}
	return stats, nil
}
