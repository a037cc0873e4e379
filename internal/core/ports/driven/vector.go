package driven

import (
	"context"
	"strconv"
)

// VectorStore persists vectors with metadata in named collections
// and answers nearest-neighbour queries.
type VectorStore interface {
	// Upsert inserts or replaces points in a collection, creating it if needed.
	Upsert(ctx context.Context, collection string, points []VectorPoint) error

	// Search returns up to k hits ordered by descending similarity.
	// A missing collection yields no hits and no error.
	Search(ctx context.Context, collection string, vector []float32, k int, filter VectorFilter) ([]VectorHit, error)

	// Count returns the number of points in a collection.
	Count(ctx context.Context, collection string) (int, error)

	// Delete removes points by id.
	Delete(ctx context.Context, collection string, ids []string) error

	// Drop removes a whole collection. Dropping a missing collection is not an error.
	Drop(ctx context.Context, collection string) error

	// Close releases resources.
	Close() error
}

// VectorPoint is one stored vector.
type VectorPoint struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	ID string

	// Score is the cosine similarity clamped to [0,1].
	Score float64

	Metadata map[string]string
}

// VectorFilter restricts a search by metadata.
type VectorFilter struct {
	// Equals requires exact string equality per key.
	Equals map[string]string

	// Ranges bound numeric metadata values.
	Ranges []RangeCondition
}

// RangeCondition bounds a numeric metadata field. Nil bounds are open.
type RangeCondition struct {
	Field string
	Gte   *float64
	Lte   *float64
}

// IsZero reports whether the filter restricts nothing.
func (f VectorFilter) IsZero() bool {
	return len(f.Equals) == 0 && len(f.Ranges) == 0
}

// Matches evaluates the filter against metadata.
// Backends that cannot express range conditions natively use this to post-filter.
func (f VectorFilter) Matches(md map[string]string) bool {
	for k, v := range f.Equals {
		if md[k] != v {
			return false
		}
	}
	for _, r := range f.Ranges {
		n, err := strconv.ParseFloat(md[r.Field], 64)
		if err != nil {
			return false
		}
		if r.Gte != nil && n < *r.Gte {
			return false
		}
		if r.Lte != nil && n > *r.Lte {
			return false
		}
	}
	return true
}
