// Package qdrant provides a VectorStore backed by a remote Qdrant server over gRPC.
package qdrant

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driven"
	"github.com/custodia-labs/pocfinder/internal/logger"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// Default configuration values.
const (
	DefaultHost           = "localhost"
	DefaultPort           = 6334
	DefaultMaxMessageSize = 50 * 1024 * 1024

	healthTimeout = 5 * time.Second

	// pointIDKey holds the caller's id; Qdrant point ids must be UUIDs or integers.
	pointIDKey = "_point_id"
)

// idNamespace derives stable point UUIDs from record ids.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://pocfinder/records"))

// numericFields are stored as numbers so range conditions apply.
var numericFields = map[string]bool{
	domain.MetaDateOrdinal: true,
}

// Config holds connection settings for Qdrant.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool

	// MaxMessageSize bounds gRPC messages (default: 50MB).
	MaxMessageSize int
}

// VectorStore implements driven.VectorStore on Qdrant.
// Collections are created lazily on first upsert with cosine distance.
type VectorStore struct {
	client *qdrant.Client

	// collections caches names known to exist.
	collections sync.Map
}

// NewVectorStore connects to Qdrant and verifies it is healthy.
func NewVectorStore(cfg Config) (*VectorStore, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}
	if !cfg.UseTLS && cfg.APIKey != "" {
		logger.Warn("Qdrant API key sent over plaintext gRPC; set vector_store.use_tls")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(cfg.MaxMessageSize),
				grpc.MaxCallSendMsgSize(cfg.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()
	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("qdrant health check: %w", err)
	}

	return &VectorStore{client: client}, nil
}

// Upsert writes points, creating the collection sized to the first vector.
func (s *VectorStore) Upsert(ctx context.Context, collection string, points []driven.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx, collection, len(points[0].Vector)); err != nil {
		return err
	}

	qpoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		qpoints[i] = &qdrant.PointStruct{
			Id:      PointID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: encodePayload(p.ID, p.Metadata),
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qpoints,
	})
	if err != nil {
		return fmt.Errorf("upserting into %s: %w", collection, err)
	}
	return nil
}

// Search returns the k nearest points matching filter.
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
	exists, err := s.exists(ctx, collection)
	if err != nil || !exists {
		return nil, err
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		Filter:         buildFilter(filter),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", collection, err)
	}

	hits := make([]driven.VectorHit, 0, len(results))
	for _, r := range results {
		id, md := decodePayload(r.GetPayload())
		hits = append(hits, driven.VectorHit{
			ID:       id,
			Score:    clamp01(float64(r.GetScore())),
			Metadata: md,
		})
	}
	return hits, nil
}

// Count returns the exact number of points in a collection.
func (s *VectorStore) Count(ctx context.Context, collection string) (int, error) {
	exists, err := s.exists(ctx, collection)
	if err != nil || !exists {
		return 0, err
	}
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", collection, err)
	}
	return int(n), nil
}

// Delete removes points by id.
func (s *VectorStore) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	exists, err := s.exists(ctx, collection)
	if err != nil || !exists {
		return err
	}

	pids := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pids[i] = PointID(id)
	}
	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(pids...),
	})
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", collection, err)
	}
	return nil
}

// Drop deletes a collection if it exists.
func (s *VectorStore) Drop(ctx context.Context, collection string) error {
	exists, err := s.exists(ctx, collection)
	if err != nil || !exists {
		return err
	}
	if err := s.client.DeleteCollection(ctx, collection); err != nil {
		return fmt.Errorf("deleting collection %s: %w", collection, err)
	}
	s.collections.Delete(collection)
	return nil
}

// Close closes the gRPC connection.
func (s *VectorStore) Close() error {
	return s.client.Close()
}

func (s *VectorStore) exists(ctx context.Context, collection string) (bool, error) {
	if _, ok := s.collections.Load(collection); ok {
		return true, nil
	}
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == grpccodes.NotFound {
			return false, nil
		}
		return false, fmt.Errorf("checking collection %s: %w", collection, err)
	}
	if exists {
		s.collections.Store(collection, true)
	}
	return exists, nil
}

func (s *VectorStore) ensureCollection(ctx context.Context, collection string, size int) error {
	exists, err := s.exists(ctx, collection)
	if err != nil || exists {
		return err
	}
	if size == 0 {
		return fmt.Errorf("creating collection %s: %w", collection, domain.ErrInvalidInput)
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(size),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", collection, err)
	}
	s.collections.Store(collection, true)
	logger.Info("Created qdrant collection %s (%d dimensions)", collection, size)
	return nil
}

// PointID maps a record id onto a deterministic UUIDv5 point id.
func PointID(id string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(idNamespace, []byte(id)).String())
}

func encodePayload(id string, md map[string]string) map[string]*qdrant.Value {
	payload := make(map[string]*qdrant.Value, len(md)+1)
	for k, v := range md {
		if numericFields[k] {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				payload[k] = qdrant.NewValueInt(n)
				continue
			}
		}
		payload[k] = qdrant.NewValueString(v)
	}
	payload[pointIDKey] = qdrant.NewValueString(id)
	return payload
}

func decodePayload(payload map[string]*qdrant.Value) (string, map[string]string) {
	md := make(map[string]string, len(payload))
	var id string
	for k, v := range payload {
		var s string
		switch kind := v.GetKind().(type) {
		case *qdrant.Value_StringValue:
			s = kind.StringValue
		case *qdrant.Value_IntegerValue:
			s = strconv.FormatInt(kind.IntegerValue, 10)
		case *qdrant.Value_DoubleValue:
			s = strconv.FormatFloat(kind.DoubleValue, 'f', -1, 64)
		case *qdrant.Value_BoolValue:
			s = strconv.FormatBool(kind.BoolValue)
		default:
			continue
		}
		if k == pointIDKey {
			id = s
			continue
		}
		md[k] = s
	}
	return id, md
}

func buildFilter(f driven.VectorFilter) *qdrant.Filter {
	if f.IsZero() {
		return nil
	}
	conditions := make([]*qdrant.Condition, 0, len(f.Equals)+len(f.Ranges))
	for k, v := range f.Equals {
		conditions = append(conditions, qdrant.NewMatch(k, v))
	}
	for _, r := range f.Ranges {
		conditions = append(conditions, qdrant.NewRange(r.Field, &qdrant.Range{Gte: r.Gte, Lte: r.Lte}))
	}
	return &qdrant.Filter{Must: conditions}
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
