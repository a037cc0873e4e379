package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider or backend type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config not found")

	// Query Errors.

	// ErrInvalidQuery indicates an empty or malformed user query.
	// User-facing, never retried.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrQueryTooLong indicates the query exceeds the configured length cap.
	// User-facing, never retried.
	ErrQueryTooLong = errors.New("query too long")

	// ErrRetrievalUnavailable indicates the vector store is empty or unreachable.
	// The chatbot either degrades to an LLM-only answer or surfaces an outage.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrInvalidRecord indicates a dataset record is missing required fields.
	ErrInvalidRecord = errors.New("invalid record")

	// Provider Errors.

	// ErrProviderTransient indicates a timeout, rate limit or server error.
	// Retried locally within a provider.
	ErrProviderTransient = errors.New("transient provider error")

	// ErrProviderFatal indicates an auth failure or malformed request.
	// The chain advances to the next provider without retrying.
	ErrProviderFatal = errors.New("non-retryable provider error")

	// ErrAllProvidersExhausted indicates every LLM backend failed for a turn.
	ErrAllProvidersExhausted = errors.New("all providers exhausted")

	// ErrNoProviders indicates no LLM provider is configured or reachable.
	ErrNoProviders = errors.New("no LLM providers available")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// Conversation Errors.

	// ErrUnpairedTurn indicates a turn that would break user/assistant pairing.
	ErrUnpairedTurn = errors.New("unpaired conversation turn")
)

// ProviderError describes a failed call to one LLM backend.
type ProviderError struct {
	// Provider is the configured provider name.
	Provider string

	// StatusCode is the HTTP status, zero for transport errors.
	StatusCode int

	// Retryable marks timeouts, rate limits and server errors.
	Retryable bool

	// RetryAfter is the server-suggested wait, zero when absent.
	RetryAfter time.Duration

	// Message is the backend's error text.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error implements error.
func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is matches ErrProviderTransient or ErrProviderFatal by retryability.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrProviderTransient:
		return e.Retryable
	case ErrProviderFatal:
		return !e.Retryable
	case ErrRateLimited:
		return e.StatusCode == 429
	}
	return false
}

// ClassifyStatus builds a ProviderError for a non-2xx HTTP status.
// 408, 409, 429 and 5xx are retryable; everything else is fatal.
func ClassifyStatus(provider string, status int, message string) *ProviderError {
	retryable := status == 408 || status == 409 || status == 429 || status >= 500
	return &ProviderError{
		Provider:   provider,
		StatusCode: status,
		Retryable:  retryable,
		Message:    message,
	}
}

// ParseRetryAfter reads a Retry-After header given in seconds or as an HTTP date.
// Unparseable or past values yield zero.
func ParseRetryAfter(header string, now time.Time) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}

// ProviderFailure is the final outcome of one provider inside the chain.
type ProviderFailure struct {
	// Provider is the provider name.
	Provider string

	// Attempts is how many calls were made before giving up.
	Attempts int

	// Err is the last error returned by the provider.
	Err error
}

// AllProvidersExhaustedError carries one failure per attempted provider.
type AllProvidersExhaustedError struct {
	Failures []ProviderFailure
}

// Error implements error.
func (e *AllProvidersExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s (%d attempts): %v", f.Provider, f.Attempts, f.Err))
	}
	return fmt.Sprintf("%s: %s", ErrAllProvidersExhausted.Error(), strings.Join(parts, "; "))
}

// Is reports whether target is ErrAllProvidersExhausted.
func (e *AllProvidersExhaustedError) Is(target error) bool {
	return target == ErrAllProvidersExhausted
}

// Unwrap returns the per-provider errors.
func (e *AllProvidersExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
