// Package memory provides an in-memory vector store using brute-force cosine search.
// Contents are lost on exit; the index is rebuilt from the dataset at startup.
package memory

import (
	"context"
	"maps"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is an in-memory implementation of driven.VectorStore.
type VectorStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]driven.VectorPoint
	dimensions  int
}

// NewVectorStore creates an empty store. Dimensions, when non-zero,
// rejects points and queries of any other length.
func NewVectorStore(dimensions int) *VectorStore {
	return &VectorStore{
		collections: make(map[string]map[string]driven.VectorPoint),
		dimensions:  dimensions,
	}
}

// Upsert inserts or replaces points, creating the collection if needed.
func (s *VectorStore) Upsert(_ context.Context, collection string, points []driven.VectorPoint) error {
	for _, p := range points {
		if err := s.checkDimensions(p.Vector); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collection]
	if !ok {
		c = make(map[string]driven.VectorPoint, len(points))
		s.collections[collection] = c
	}
	for _, p := range points {
		c[p.ID] = driven.VectorPoint{
			ID:       p.ID,
			Vector:   normalise(p.Vector),
			Metadata: maps.Clone(p.Metadata),
		}
	}
	return nil
}

// Search scans the collection and returns the k most similar points that match filter.
func (s *VectorStore) Search(
	ctx context.Context,
	collection string,
	vector []float32,
	k int,
	filter driven.VectorFilter,
) ([]driven.VectorHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	if err := s.checkDimensions(vector); err != nil {
		return nil, err
	}
	query := normalise(vector)

	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[collection]
	if !ok {
		return nil, nil
	}

	hits := make([]driven.VectorHit, 0, len(c))
	for _, p := range c {
		if !filter.Matches(p.Metadata) {
			continue
		}
		hits = append(hits, driven.VectorHit{
			ID:       p.ID,
			Score:    clamp01(dot(query, p.Vector)),
			Metadata: maps.Clone(p.Metadata),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of points in a collection.
func (s *VectorStore) Count(_ context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection]), nil
}

// Delete removes points by id.
func (s *VectorStore) Delete(_ context.Context, collection string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.collections[collection]
	for _, id := range ids {
		delete(c, id)
	}
	return nil
}

// Drop removes a whole collection.
func (s *VectorStore) Drop(_ context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, collection)
	return nil
}

// Close releases resources.
func (s *VectorStore) Close() error {
	return nil
}

func (s *VectorStore) checkDimensions(v []float32) error {
	if len(v) == 0 {
		return domain.ErrInvalidInput
	}
	if s.dimensions > 0 && len(v) != s.dimensions {
		return domain.ErrInvalidInput
	}
	return nil
}

// normalise returns a unit-length copy of v. Zero vectors are copied unchanged.
func normalise(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := range n {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}
