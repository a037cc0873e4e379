package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driven"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driving"
	"github.com/custodia-labs/pocfinder/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// defaultEmbedBatch is the number of records embedded per request.
const defaultEmbedBatch = 32

// IndexService embeds curated records and writes them to the vector store.
// Each collection with records supplied is replaced wholesale.
type IndexService struct {
	embedder            driven.EmbeddingService
	store               driven.VectorStore
	platformsCollection string
	eventsCollection    string
	batchSize           int
}

// NewIndexService creates an index builder.
func NewIndexService(embedder driven.EmbeddingService, store driven.VectorStore, cfg domain.VectorStoreSettings) *IndexService {
	defaults := domain.DefaultAppSettings().VectorStore
	if cfg.PlatformsCollection == "" {
		cfg.PlatformsCollection = defaults.PlatformsCollection
	}
	if cfg.EventsCollection == "" {
		cfg.EventsCollection = defaults.EventsCollection
	}
	return &IndexService{
		embedder:            embedder,
		store:               store,
		platformsCollection: cfg.PlatformsCollection,
		eventsCollection:    cfg.EventsCollection,
		batchSize:           defaultEmbedBatch,
	}
}

// Build validates, embeds and upserts platforms and events.
// Invalid records are skipped and counted; empty inputs leave their collection untouched.
func (s *IndexService) Build(
	ctx context.Context, platforms []domain.PlatformRecord, events []domain.EventRecord,
) (driving.IndexStats, error) {
	logger.Section("Index Build")
	var stats driving.IndexStats

	if len(platforms) > 0 {
		records := make([]domain.Record, 0, len(platforms))
		for _, p := range platforms {
			if err := p.Validate(); err != nil {
				logger.Warn("Skipping platform: %v", err)
				stats.Skipped++
				continue
			}
			records = append(records, p)
		}
		n, err := s.replace(ctx, s.platformsCollection, records)
		if err != nil {
			return stats, fmt.Errorf("index platforms: %w", err)
		}
		stats.Platforms = n
	}

	if len(events) > 0 {
		records := make([]domain.Record, 0, len(events))
		for _, e := range events {
			if err := e.Validate(); err != nil {
				logger.Warn("Skipping event: %v", err)
				stats.Skipped++
				continue
			}
			records = append(records, e)
		}
		n, err := s.replace(ctx, s.eventsCollection, records)
		if err != nil {
			return stats, fmt.Errorf("index events: %w", err)
		}
		stats.Events = n
	}

	logger.Info("Indexed %d platforms, %d events (%d skipped)", stats.Platforms, stats.Events, stats.Skipped)
	return stats, nil
}

// replace drops the collection and writes records in embedding batches.
func (s *IndexService) replace(ctx context.Context, collection string, records []domain.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if err := s.store.Drop(ctx, collection); err != nil {
		return 0, fmt.Errorf("drop %s: %w", collection, err)
	}

	written := 0
	for start := 0; start < len(records); start += s.batchSize {
		end := min(start+s.batchSize, len(records))
		batch := records[start:end]

		texts := make([]string, len(batch))
		for i, r := range batch {
			texts[i] = r.EmbeddingText()
		}
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return written, fmt.Errorf("embed batch: %w", err)
		}
		if len(vectors) != len(batch) {
			return written, fmt.Errorf("embed batch: got %d vectors for %d texts", len(vectors), len(batch))
		}

		points := make([]driven.VectorPoint, len(batch))
		for i, r := range batch {
			if dims := s.embedder.Dimensions(); dims > 0 && len(vectors[i]) != dims {
				return written, fmt.Errorf("embed %s: got %d dimensions, want %d", r.RecordID(), len(vectors[i]), dims)
			}
			points[i] = driven.VectorPoint{
				ID:       r.RecordID(),
				Vector:   vectors[i],
				Metadata: domain.EncodeMetadata(r),
			}
		}
		if err := s.store.Upsert(ctx, collection, points); err != nil {
			return written, fmt.Errorf("upsert %s: %w", collection, err)
		}
		written += len(points)
		logger.Debug("Indexed %d/%d into %s", written, len(records), collection)
	}
	return written, nil
}
