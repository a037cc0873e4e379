// Package ollama embeds text with a local Ollama server.
package ollama

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/pocfinder/internal/adapters/driven/httpjson"
	"github.com/custodia-labs/pocfinder/internal/core/domain"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Defaults applied by NewEmbeddingService.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "all-minilm"
	DefaultTimeout    = 30 * time.Second
	DefaultDimensions = 384

	// maxBatch bounds the inputs sent in one /api/embed call.
	maxBatch = 64
)

// Config configures the service. Zero fields take the defaults above;
// Dimensions falls back to the known size of Model.
type Config struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	Dimensions int
}

// EmbeddingService calls Ollama's /api/embed endpoint.
type EmbeddingService struct {
	api        *httpjson.Client
	model      string
	dimensions int
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewEmbeddingService creates the service. Ollama needs no credentials.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	cfg.BaseURL = cmp.Or(cfg.BaseURL, DefaultBaseURL)
	cfg.Model = cmp.Or(cfg.Model, DefaultModel)
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = domain.EmbeddingDimensions()[cfg.Model]
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	return &EmbeddingService{
		api:        httpjson.New(cfg.BaseURL, cfg.Timeout, nil),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// Embed returns the vector for one text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := s.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in chunks of maxBatch, keeping input order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))
		chunk, err := s.embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed texts %d-%d: %w", start, end-1, err)
		}
		out = append(out, chunk...)
	}
	return out, nil
}

func (s *EmbeddingService) embed(ctx context.Context, texts []string) ([][]float32, error) {
	var resp embedResponse
	if err := s.api.Do(ctx, http.MethodPost, "/api/embed", embedRequest{Model: s.model, Input: texts}, &resp); err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama: got %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}
	for i, e := range resp.Embeddings {
		if len(e) != s.dimensions {
			return nil, fmt.Errorf("ollama: embedding %d has %d dimensions, want %d", i, len(e), s.dimensions)
		}
	}
	return resp.Embeddings, nil
}

// Dimensions returns the vector size.
func (s *EmbeddingService) Dimensions() int { return s.dimensions }

// ModelName returns the embedding model.
func (s *EmbeddingService) ModelName() string { return s.model }

// Ping lists local models, which checks the server without loading one.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if err := s.api.Do(ctx, http.MethodGet, "/api/tags", nil, nil); err != nil {
		return fmt.Errorf("ollama: %w", err)
	}
	return nil
}

// Close drops idle connections.
func (s *EmbeddingService) Close() error { return s.api.Close() }
