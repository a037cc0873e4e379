package driven

import (
	"time"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

// Telemetry receives pipeline observations for metrics export.
// Services fall back to a no-op implementation when none is set.
type Telemetry interface {
	// ObserveTransition records one provider chain state change.
	ObserveTransition(t domain.ChainTransition)

	// ObserveGeneration records a successful generation.
	ObserveGeneration(provider string, usage domain.TokenUsage, latency time.Duration)

	// ObserveRetrieval records one retriever search.
	ObserveRetrieval(collection string, results int, latency time.Duration, err error)

	// ObserveTurn records one chatbot turn. Outcome is "ok", "degraded" or an error type.
	ObserveTurn(mode domain.Mode, outcome string, latency time.Duration)
}

// NopTelemetry discards all observations.
type NopTelemetry struct{}

// ObserveTransition implements Telemetry.
func (NopTelemetry) ObserveTransition(domain.ChainTransition) {}

// ObserveGeneration implements Telemetry.
func (NopTelemetry) ObserveGeneration(string, domain.TokenUsage, time.Duration) {}

// ObserveRetrieval implements Telemetry.
func (NopTelemetry) ObserveRetrieval(string, int, time.Duration, error) {}

// ObserveTurn implements Telemetry.
func (NopTelemetry) ObserveTurn(domain.Mode, string, time.Duration) {}
