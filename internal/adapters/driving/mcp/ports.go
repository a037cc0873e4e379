package mcp

import (
	"github.com/custodia-labs/pocfinder/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Chat answers questions within a session.
	Chat driving.ChatService

	// Catalog provides direct platform and event search.
	Catalog driving.CatalogService

	// Sessions gives each MCP client conversation its own memory.
	Sessions driving.SessionService

	// Analytics reports on the query log. Optional.
	Analytics driving.AnalyticsService

	// Version is reported to clients during initialisation.
	Version string
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Chat == nil {
		return ErrMissingChatService
	}
	if p.Catalog == nil {
		return ErrMissingCatalogService
	}
	if p.Sessions == nil {
		return ErrMissingSessionService
	}
	return nil
}
