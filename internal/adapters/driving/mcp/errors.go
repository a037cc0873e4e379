// Package mcp provides an MCP (Model Context Protocol) server adapter for pocfinder.
// It lets AI assistants ask about community platforms and upcoming events.
package mcp

import (
	"errors"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

// Port validation errors.
var (
	ErrMissingChatService    = errors.New("mcp: chat service is required")
	ErrMissingCatalogService = errors.New("mcp: catalog service is required")
	ErrMissingSessionService = errors.New("mcp: session service is required")
	errProvidersUnavailable  = errors.New("all AI providers are unavailable right now, please try again in a moment")
	errRetrievalUnavailable  = errors.New("the platform database is unavailable right now, please try again later")
)

// toolError maps core errors onto messages safe to show an MCP client.
// Validation errors pass through; infrastructure detail is withheld.
func toolError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery), errors.Is(err, domain.ErrQueryTooLong):
		return err
	case errors.Is(err, domain.ErrAllProvidersExhausted):
		return errProvidersUnavailable
	case errors.Is(err, domain.ErrRetrievalUnavailable):
		return errRetrievalUnavailable
	default:
		return err
	}
}
