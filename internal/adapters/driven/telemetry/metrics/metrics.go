// Package metrics exports pipeline observations as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driven"
)

// Ensure Metrics implements the interface.
var _ driven.Telemetry = (*Metrics)(nil)

const namespace = "pocfinder"

// Metrics holds the Prometheus collectors for the chat pipeline.
//
// Metrics:
//   - pocfinder_chain_transitions_total{provider,state} - provider chain state changes
//   - pocfinder_generation_duration_seconds{provider} - successful generation latency
//   - pocfinder_tokens_total{provider,kind} - tokens by kind (input, output, cache_read, cache_write)
//   - pocfinder_retrieval_duration_seconds{collection,outcome} - retriever search latency
//   - pocfinder_retrieval_results{collection} - results returned per search
//   - pocfinder_turns_total{mode,outcome} - chatbot turns
//   - pocfinder_turn_duration_seconds{mode} - end-to-end turn latency
type Metrics struct {
	registry *prometheus.Registry

	ChainTransitions   *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	Tokens             *prometheus.CounterVec
	RetrievalDuration  *prometheus.HistogramVec
	RetrievalResults   *prometheus.HistogramVec
	Turns              *prometheus.CounterVec
	TurnDuration       *prometheus.HistogramVec
}

// New creates the collectors on a dedicated registry, so several instances
// (one per test) never collide on registration.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ChainTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chain_transitions_total",
				Help:      "Provider chain state transitions",
			},
			[]string{"provider", "state"},
		),

		GenerationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Latency of successful generations, including retries",
				Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
			},
			[]string{"provider"},
		),

		Tokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_total",
				Help:      "LLM tokens consumed",
			},
			[]string{"provider", "kind"},
		),

		RetrievalDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "retrieval_duration_seconds",
				Help:      "Latency of hybrid retrieval searches",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"collection", "outcome"},
		),

		RetrievalResults: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "retrieval_results",
				Help:      "Results returned per retrieval",
				Buckets:   []float64{0, 1, 2, 3, 5, 10, 20},
			},
			[]string{"collection"},
		),

		Turns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "turns_total",
				Help:      "Chat turns by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),

		TurnDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "turn_duration_seconds",
				Help:      "End-to-end latency of chat turns",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"mode"},
		),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveTransition implements driven.Telemetry.
func (m *Metrics) ObserveTransition(t domain.ChainTransition) {
	provider := t.Provider
	if provider == "" {
		provider = "chain"
	}
	m.ChainTransitions.WithLabelValues(provider, string(t.State)).Inc()
}

// ObserveGeneration implements driven.Telemetry.
func (m *Metrics) ObserveGeneration(provider string, usage domain.TokenUsage, latency time.Duration) {
	m.GenerationDuration.WithLabelValues(provider).Observe(latency.Seconds())
	m.Tokens.WithLabelValues(provider, "input").Add(float64(usage.InputTokens))
	m.Tokens.WithLabelValues(provider, "output").Add(float64(usage.OutputTokens))
	m.Tokens.WithLabelValues(provider, "cache_read").Add(float64(usage.CacheReadTokens))
	m.Tokens.WithLabelValues(provider, "cache_write").Add(float64(usage.CacheWriteTokens))
}

// ObserveRetrieval implements driven.Telemetry.
func (m *Metrics) ObserveRetrieval(collection string, results int, latency time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.RetrievalDuration.WithLabelValues(collection, outcome).Observe(latency.Seconds())
	if err == nil {
		m.RetrievalResults.WithLabelValues(collection).Observe(float64(results))
	}
}

// ObserveTurn implements driven.Telemetry.
func (m *Metrics) ObserveTurn(mode domain.Mode, outcome string, latency time.Duration) {
	m.Turns.WithLabelValues(string(mode), outcome).Inc()
	m.TurnDuration.WithLabelValues(string(mode)).Observe(latency.Seconds())
}
