package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

var errNoProvidersConfigured = fmt.Errorf("check: %w", domain.ErrNoProviders)

// UserError carries a message fit for the terminal alongside the cause.
type UserError struct {
	Message string
	Err     error
}

// Error returns the user-facing message.
func (e *UserError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error.
func (e *UserError) Unwrap() error {
	return e.Err
}

// userError translates core errors into guidance. Errors with no better
// wording are returned unchanged.
func userError(err error) error {
	if err == nil {
		return nil
	}
	var ue *UserError
	if errors.As(err, &ue) {
		return err
	}

	msg := ""
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		msg = "Please type a question first."
	case errors.Is(err, domain.ErrQueryTooLong):
		msg = "That question is too long. Please shorten it and try again."
	case errors.Is(err, domain.ErrAllProvidersExhausted):
		msg = "All AI providers are busy or unavailable right now. Please try again in a moment."
	case errors.Is(err, domain.ErrNoProviders):
		msg = "No AI provider is available. Set ANTHROPIC_API_KEY, CEREBRAS_API_KEY or DEEPSEEK_API_KEY, " +
			"or add one with 'pocfinder settings provider'."
	case errors.Is(err, domain.ErrRetrievalUnavailable):
		msg = "The platform database is unavailable. Check the vector store, then run 'pocfinder index'."
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		msg = "The embedding service is unreachable. Is Ollama running? Check with 'pocfinder check'."
	case errors.Is(err, domain.ErrConfigNotFound):
		msg = "Configuration not found. Run 'pocfinder settings show' to see where it is expected."
	case errors.Is(err, context.Canceled):
		msg = "Cancelled."
	default:
		return err
	}
	return &UserError{Message: msg, Err: err}
}
