// Package openai embeds text with the OpenAI embeddings API.
package openai

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/pocfinder/internal/adapters/driven/httpjson"
	"github.com/custodia-labs/pocfinder/internal/core/domain"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Defaults applied by NewEmbeddingService.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second

	// maxBatch is the most inputs the API accepts per request.
	maxBatch = 2048

	fallbackDimensions = 1536
)

// Config configures the service. APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions shortens text-embedding-3-* vectors when set. For other
	// models it only has to match what the model returns.
	Dimensions int
}

// EmbeddingService calls the /embeddings endpoint.
type EmbeddingService struct {
	api        *httpjson.Client
	model      string
	dimensions int
	shorten    bool
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// NewEmbeddingService creates the service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	cfg.Model = cmp.Or(cfg.Model, DefaultModel)
	dims := cmp.Or(cfg.Dimensions, domain.EmbeddingDimensions()[cfg.Model], fallbackDimensions)

	return &EmbeddingService{
		api: httpjson.New(
			cmp.Or(cfg.BaseURL, DefaultBaseURL),
			cmp.Or(cfg.Timeout, DefaultTimeout),
			http.Header{"Authorization": {"Bearer " + cfg.APIKey}},
		),
		model:      cfg.Model,
		dimensions: dims,
		shorten:    cfg.Dimensions > 0 && strings.HasPrefix(cfg.Model, "text-embedding-3-"),
	}, nil
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

// embed sends one request. The API may return items out of order, so each
// is placed by its index.
func (s *EmbeddingService) embed(ctx context.Context, texts []string) ([][]float32, error) {
	req := embeddingRequest{Model: s.model, Input: texts}
	if s.shorten {
		req.Dimensions = s.dimensions
	}

	var resp embeddingResponse
	if err := s.api.Do(ctx, http.MethodPost, "/embeddings", req, &resp); err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("openai: embedding index %d out of range", d.Index)
		}
		if len(d.Embedding) != s.dimensions {
			return nil, fmt.Errorf("openai: embedding %d has %d dimensions, want %d", d.Index, len(d.Embedding), s.dimensions)
		}
		out[d.Index] = d.Embedding
	}
	for i, e := range out {
		if e == nil {
			return nil, fmt.Errorf("openai: no embedding returned for input %d", i)
		}
	}
	return out, nil
}

// Dimensions returns the vector size.
func (s *EmbeddingService) Dimensions() int { return s.dimensions }

// ModelName returns the embedding model.
func (s *EmbeddingService) ModelName() string { return s.model }

// Ping lists models, which checks the key without spending tokens.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if err := s.api.Do(ctx, http.MethodGet, "/models", nil, nil); err != nil {
		return fmt.Errorf("openai: %w", err)
	}
	return nil
}

// Close drops idle connections.
func (s *EmbeddingService) Close() error { return s.api.Close() }
