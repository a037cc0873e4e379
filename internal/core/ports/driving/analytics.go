package driving

import (
	"context"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

// AnalyticsService reports on the query log.
type AnalyticsService interface {
	// Stats summarises logged queries; limit caps the top-N lists.
	Stats(ctx context.Context, limit int) (domain.QueryStats, error)
}
