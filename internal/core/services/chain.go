package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driven"
	"github.com/custodia-labs/pocfinder/internal/logger"
)

// Ensure ProviderChain can stand in for a single generator.
var _ driven.TextGenerator = (*ProviderChain)(nil)

// RetryPolicy controls per-provider retries.
type RetryPolicy struct {
	// MaxAttempts is the total number of calls made to one provider.
	MaxAttempts int

	// BaseDelay is the wait after the first failure; it doubles per retry.
	BaseDelay time.Duration

	// MaxDelay caps a single wait, including server Retry-After hints.
	MaxDelay time.Duration

	// CallTimeout bounds each call. Expiry counts as a transient failure.
	CallTimeout time.Duration
}

// DefaultRetryPolicy waits 1s, 2s, then 4s before giving up on a provider.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		CallTimeout: 30 * time.Second,
	}
}

// ProviderChain tries LLM providers in fixed priority order.
// Each provider is retried with exponential backoff on transient errors;
// non-retryable errors advance to the next provider immediately.
type ProviderChain struct {
	providers []driven.LLMProvider
	policy    RetryPolicy
	sleep     func(ctx context.Context, d time.Duration) error
	observer  func(domain.ChainTransition)
	telemetry driven.Telemetry

	mu    sync.Mutex
	stats domain.UsageStats
}

// NewProviderChain creates a chain over providers, highest priority first.
func NewProviderChain(providers []driven.LLMProvider, policy RetryPolicy) (*ProviderChain, error) {
	if len(providers) == 0 {
		return nil, domain.ErrNoProviders
	}
	defaults := DefaultRetryPolicy()
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = defaults.BaseDelay
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = defaults.MaxDelay
	}
	return &ProviderChain{
		providers: providers,
		policy:    policy,
		sleep:     sleepContext,
		telemetry: driven.NopTelemetry{},
	}, nil
}

// SetObserver registers a callback for every state transition.
func (c *ProviderChain) SetObserver(fn func(domain.ChainTransition)) {
	c.observer = fn
}

// SetTelemetry sets the metrics sink.
func (c *ProviderChain) SetTelemetry(t driven.Telemetry) {
	if t != nil {
		c.telemetry = t
	}
}

// Providers returns the provider names in priority order.
func (c *ProviderChain) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Usage returns cumulative token usage of successful generations.
func (c *ProviderChain) Usage() domain.UsageStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Generate returns the first successful response in priority order.
// When every provider fails it returns *domain.AllProvidersExhaustedError;
// caller cancellation is returned as the context error without advancing.
func (c *ProviderChain) Generate(ctx context.Context, req domain.LLMRequest) (domain.LLMResponse, error) {
	logger.Section("Generation")
	start := time.Now()
	c.transition(domain.ChainTransition{State: domain.AttemptPending})

	failures := make([]domain.ProviderFailure, 0, len(c.providers))
	total := 0

	for i, p := range c.providers {
		idx := i + 1
		attempts := 0
		var lastErr error
		delays := c.newBackOff()

		for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
			attempts = attempt
			total++
			c.transition(domain.ChainTransition{
				State: domain.AttemptAttempting, Provider: p.Name(), ProviderIndex: idx, Attempt: attempt,
			})

			resp, err := c.call(ctx, p, req)
			if err == nil {
				resp.ProviderUsed = p.Name()
				resp.ProviderIndex = idx
				resp.Attempts = total
				resp.Latency = time.Since(start)
				c.record(resp)
				c.transition(domain.ChainTransition{
					State: domain.AttemptSuccess, Provider: p.Name(), ProviderIndex: idx, Attempt: attempt,
				})
				logger.Info("Generated with %s (attempt %d, %s)", p.Name(), attempt, resp.Latency)
				return resp, nil
			}

			lastErr = err
			if ctx.Err() != nil {
				return c.abort(ctx.Err())
			}
			logger.Warn("Provider %s attempt %d failed: %v", p.Name(), attempt, err)

			if !isRetryable(err) || attempt == c.policy.MaxAttempts {
				break
			}

			c.transition(domain.ChainTransition{
				State: domain.AttemptRetry, Provider: p.Name(), ProviderIndex: idx, Attempt: attempt, Err: err,
			})
			if err := c.sleep(ctx, c.nextDelay(delays, err)); err != nil {
				return c.abort(err)
			}
		}

		failures = append(failures, domain.ProviderFailure{Provider: p.Name(), Attempts: attempts, Err: lastErr})
		if idx < len(c.providers) {
			c.transition(domain.ChainTransition{
				State: domain.AttemptAdvance, Provider: p.Name(), ProviderIndex: idx, Attempt: attempts, Err: lastErr,
			})
		}
	}

	exhausted := &domain.AllProvidersExhaustedError{Failures: failures}
	c.transition(domain.ChainTransition{State: domain.AttemptFailed, Err: exhausted})
	logger.Error("All %d providers failed", len(c.providers))
	return domain.LLMResponse{}, exhausted
}

// call runs one attempt under the per-call timeout.
func (c *ProviderChain) call(ctx context.Context, p driven.LLMProvider, req domain.LLMRequest) (domain.LLMResponse, error) {
	callCtx := ctx
	if c.policy.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.policy.CallTimeout)
		defer cancel()
	}

	resp, err := p.Generate(callCtx, req)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		err = &domain.ProviderError{
			Provider:  p.Name(),
			Retryable: true,
			Message:   fmt.Sprintf("timed out after %s", c.policy.CallTimeout),
			Err:       err,
		}
	}
	return resp, err
}

func (c *ProviderChain) abort(err error) (domain.LLMResponse, error) {
	c.transition(domain.ChainTransition{State: domain.AttemptFailed, Err: err})
	return domain.LLMResponse{}, fmt.Errorf("generate: %w", err)
}

// newBackOff starts a fresh BaseDelay, 2x BaseDelay, ... schedule capped at
// MaxDelay. Jitter is off so the waits are predictable.
func (c *ProviderChain) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.policy.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = c.policy.MaxDelay
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// nextDelay takes the next scheduled wait, raised to any Retry-After hint
// and capped at MaxDelay.
func (c *ProviderChain) nextDelay(b backoff.BackOff, err error) time.Duration {
	delay := b.NextBackOff()
	var pe *domain.ProviderError
	if errors.As(err, &pe) && pe.RetryAfter > delay {
		delay = pe.RetryAfter
	}
	if delay == backoff.Stop || delay > c.policy.MaxDelay {
		delay = c.policy.MaxDelay
	}
	return delay
}

func (c *ProviderChain) record(resp domain.LLMResponse) {
	c.mu.Lock()
	c.stats.Requests++
	c.stats.Usage = c.stats.Usage.Add(resp.Usage)
	c.mu.Unlock()
	c.telemetry.ObserveGeneration(resp.ProviderUsed, resp.Usage, resp.Latency)
}

func (c *ProviderChain) transition(t domain.ChainTransition) {
	logger.Debug("Chain %s provider=%s index=%d attempt=%d", t.State, t.Provider, t.ProviderIndex, t.Attempt)
	c.telemetry.ObserveTransition(t)
	if c.observer != nil {
		c.observer(t)
	}
}

// isRetryable reports transient failures: rate limits, server errors and timeouts.
func isRetryable(err error) bool {
	return errors.Is(err, domain.ErrProviderTransient) || errors.Is(err, context.DeadlineExceeded)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
