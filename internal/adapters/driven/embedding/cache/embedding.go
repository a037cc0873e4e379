// Package cache memoises embeddings so repeated queries skip the embedding backend.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/custodia-labs/pocfinder/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default expiry settings.
const (
	DefaultTTL      = time.Hour
	cleanupInterval = 10 * time.Minute
)

// EmbeddingService wraps an embedding backend with an in-process TTL cache
// keyed by the exact input text. Embeddings are deterministic, so a hit is
// indistinguishable from a fresh call.
type EmbeddingService struct {
	driven.EmbeddingService
	cache *gocache.Cache
}

// New wraps svc. A zero ttl uses DefaultTTL.
func New(svc driven.EmbeddingService, ttl time.Duration) *EmbeddingService {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &EmbeddingService{
		EmbeddingService: svc,
		cache:            gocache.New(ttl, cleanupInterval),
	}
}

// Embed returns the cached vector for text, embedding it on a miss.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := s.get(text); ok {
		return v, nil
	}
	v, err := s.EmbeddingService.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(text, v)
	return v, nil
}

// EmbedBatch embeds only the texts missing from the cache, preserving order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var positions []int
	for i, text := range texts {
		if v, ok := s.get(text); ok {
			out[i] = v
			continue
		}
		missing = append(missing, text)
		positions = append(positions, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	fresh, err := s.EmbeddingService.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, v := range fresh {
		out[positions[j]] = v
		s.cache.SetDefault(missing[j], v)
	}
	return out, nil
}

// Len returns the number of cached vectors, including expired ones not yet purged.
func (s *EmbeddingService) Len() int {
	return s.cache.ItemCount()
}

// Close flushes the cache and closes the wrapped service.
func (s *EmbeddingService) Close() error {
	s.cache.Flush()
	return s.EmbeddingService.Close()
}

func (s *EmbeddingService) get(text string) ([]float32, bool) {
	x, found := s.cache.Get(text)
	if !found {
		return nil, false
	}
	return x.([]float32), true
}
