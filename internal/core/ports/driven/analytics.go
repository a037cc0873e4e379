package driven

import (
	"context"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

// QueryLogStore persists privacy-preserving query analytics.
type QueryLogStore interface {
	// Record appends one entry.
	Record(ctx context.Context, entry domain.QueryLogEntry) error

	// Stats summarises the log; limit caps the top-N lists.
	Stats(ctx context.Context, limit int) (domain.QueryStats, error)

	// Close releases resources.
	Close() error
}
