// Package chromem provides an embedded, file-persisted vector store using chromem-go.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"os"
	"path/filepath"
	"strings"

	chromem "github.com/philippgille/chromem-go"

	"github.com/custodia-labs/pocfinder/internal/core/ports/driven"
	"github.com/custodia-labs/pocfinder/internal/logger"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// errNoEmbedder is returned if chromem ever tries to embed text itself.
// Every document and query arrives with a precomputed vector.
var errNoEmbedder = errors.New("chromem: documents must carry precomputed embeddings")

// Config holds configuration for the chromem store.
type Config struct {
	// Path is the persistence directory. Empty keeps the database in memory.
	// A leading ~ expands to the home directory.
	Path string

	// Compress enables gzip compression for stored data.
	Compress bool
}

// VectorStore implements driven.VectorStore on a chromem-go database.
// chromem filters by exact metadata equality only; range conditions are
// applied after the similarity query.
type VectorStore struct {
	db   *chromem.DB
	path string
}

// NewVectorStore opens or creates a chromem database.
func NewVectorStore(cfg Config) (*VectorStore, error) {
	if cfg.Path == "" {
		return &VectorStore{db: chromem.NewDB()}, nil
	}

	path, err := expandPath(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("expanding path: %w", err)
	}
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", path, err)
	}

	db, err := chromem.NewPersistentDB(path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("creating chromem DB: %w", err)
	}
	logger.Debug("Opened chromem store at %s (%d collections)", path, len(db.ListCollections()))

	return &VectorStore{db: db, path: path}, nil
}

// Path returns the persistence directory, empty for in-memory databases.
func (s *VectorStore) Path() string {
	return s.path
}

// Upsert adds points, replacing any with the same id.
func (s *VectorStore) Upsert(ctx context.Context, collection string, points []driven.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}

	c, err := s.db.GetOrCreateCollection(collection, nil, noEmbedding)
	if err != nil {
		return fmt.Errorf("getting/creating collection %s: %w", collection, err)
	}

	docs := make([]chromem.Document, len(points))
	for i, p := range points {
		if len(p.Vector) == 0 {
			return fmt.Errorf("point %q has no vector", p.ID)
		}
		docs[i] = chromem.Document{
			ID:        p.ID,
			Metadata:  maps.Clone(p.Metadata),
			Embedding: p.Vector,
		}
	}

	// Documents with an existing id overwrite it, in memory and on disk.
	if err := c.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("adding documents to %s: %w", collection, err)
	}
	return nil
}

// Search returns the k most similar points matching filter.
func (s *VectorStore) Search(
	ctx context.Context,
	collection string,
	vector []float32,
	k int,
	filter driven.VectorFilter,
) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	c := s.db.GetCollection(collection, noEmbedding)
	if c == nil {
		return nil, nil
	}

	// chromem requires nResults <= document count.
	count := c.Count()
	if count == 0 {
		return nil, nil
	}
	n := min(k, count)
	if len(filter.Ranges) > 0 {
		n = count
	}

	results, err := c.QueryEmbedding(ctx, vector, n, filter.Equals, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection %s: %w", collection, err)
	}

	hits := make([]driven.VectorHit, 0, min(k, len(results)))
	for _, r := range results {
		if !filter.Matches(r.Metadata) {
			continue
		}
		hits = append(hits, driven.VectorHit{
			ID:       r.ID,
			Score:    math.Max(0, math.Min(1, float64(r.Similarity))),
			Metadata: r.Metadata,
		})
		if len(hits) == k {
			break
		}
	}
	return hits, nil
}

// Count returns the number of points in a collection.
func (s *VectorStore) Count(_ context.Context, collection string) (int, error) {
	c := s.db.GetCollection(collection, noEmbedding)
	if c == nil {
		return 0, nil
	}
	return c.Count(), nil
}

// Delete removes points by id.
func (s *VectorStore) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	c := s.db.GetCollection(collection, noEmbedding)
	if c == nil {
		return nil
	}
	if err := c.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("deleting from %s: %w", collection, err)
	}
	return nil
}

// Drop removes a whole collection.
func (s *VectorStore) Drop(_ context.Context, collection string) error {
	if err := s.db.DeleteCollection(collection); err != nil {
		return fmt.Errorf("deleting collection %s: %w", collection, err)
	}
	return nil
}

// Close releases resources. chromem persists on every write.
func (s *VectorStore) Close() error {
	return nil
}

// noEmbedding is passed wherever chromem asks for an embedding function;
// a nil function would make it fall back to the OpenAI API.
func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbedder
}

// expandPath expands ~ to home directory.
func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
