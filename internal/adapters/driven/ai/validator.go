package ai

import (
	"context"
	"time"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator validates AI provider configurations.
type ConfigValidator struct {
	timeout time.Duration
}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{timeout: pingTimeout}
}

// ValidateEmbedding creates the embedding service and pings it.
func (v *ConfigValidator) ValidateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	defer svc.Close()
	return ping(ctx, svc.Ping)
}

// ValidateProvider creates one LLM provider and pings it.
func (v *ConfigValidator) ValidateProvider(ctx context.Context, settings domain.ProviderSettings) error {
	p, err := CreateProvider(settings, v.timeout)
	if err != nil {
		return err
	}
	defer p.Close()
	return ping(ctx, p.Ping)
}
