// Package tui provides the interactive terminal chat for pocfinder.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"errors"

	"github.com/custodia-labs/pocfinder/internal/core/ports/driving"
)

// Validation errors returned by Ports.Validate.
var (
	ErrInvalidPorts       = errors.New("tui: no ports given")
	ErrMissingChatService = errors.New("tui: chat service is required")
	ErrMissingMemory      = errors.New("tui: conversation memory is required")
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Chat answers questions.
	Chat driving.ChatService

	// Memory is the conversation window for this TUI session.
	Memory driving.ConversationMemory

	// Catalog backs the browse view. Optional; browsing reports an error
	// when it is nil.
	Catalog driving.CatalogService

	// Providers names the provider chain for the header, highest priority first.
	Providers []string
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(
	chat driving.ChatService,
	memory driving.ConversationMemory,
	catalog driving.CatalogService,
) *Ports {
	return &Ports{
		Chat:    chat,
		Memory:  memory,
		Catalog: catalog,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Chat == nil {
		return ErrMissingChatService
	}
	if p.Memory == nil {
		return ErrMissingMemory
	}
	return nil
}
