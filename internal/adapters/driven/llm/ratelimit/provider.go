// Package ratelimit throttles calls to an LLM provider with a token bucket.
package ratelimit

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.LLMProvider = (*Provider)(nil)

// Config holds rate limiting configuration for one provider.
type Config struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size (default: 1).
	BurstSize int
}

// Provider wraps an LLMProvider and waits for a token before every call.
// A 429 carrying Retry-After also blocks later calls until the hint passes.
type Provider struct {
	driven.LLMProvider

	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	now     func() time.Time
}

// Wrap returns p unchanged when cfg disables throttling, otherwise a rate limited decorator.
func Wrap(p driven.LLMProvider, cfg Config) driven.LLMProvider {
	if cfg.RequestsPerSecond <= 0 {
		return p
	}
	return New(p, cfg)
}

// New creates a rate limited decorator.
func New(p driven.LLMProvider, cfg Config) *Provider {
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = int(math.Max(1, math.Ceil(cfg.RequestsPerSecond)))
	}
	return &Provider{
		LLMProvider: p,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		now:         time.Now,
	}
}

// Generate waits for the limiter, then delegates. A wait that cannot finish
// before the call deadline is reported as a retryable provider error.
func (p *Provider) Generate(ctx context.Context, req domain.LLMRequest) (domain.LLMResponse, error) {
	if err := p.Wait(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return domain.LLMResponse{}, err
		}
		return domain.LLMResponse{}, &domain.ProviderError{
			Provider:  p.Name(),
			Retryable: true,
			Message:   "throttled",
			Err:       err,
		}
	}

	resp, err := p.LLMProvider.Generate(ctx, req)
	var pe *domain.ProviderError
	if errors.As(err, &pe) && pe.StatusCode == 429 && pe.RetryAfter > 0 {
		p.recordRateLimit(pe.RetryAfter)
	}
	return resp, err
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any backoff period set by a rate limited response.
func (p *Provider) Wait(ctx context.Context) error {
	p.mu.Lock()
	retryAt := p.retryAt
	p.mu.Unlock()

	if wait := retryAt.Sub(p.now()); wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}

	return p.limiter.Wait(ctx)
}

func (p *Provider) recordRateLimit(after time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if at := p.now().Add(after); at.After(p.retryAt) {
		p.retryAt = at
	}
}
