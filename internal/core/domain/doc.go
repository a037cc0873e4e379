// Package domain defines the core business entities for pocfinder.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - PlatformRecord: A curated community platform
//   - EventRecord: A dated event hosted by a platform
//   - SearchResult: A ranked retrieval hit
//   - ConversationTurn: One message in a chat session
//   - LLMRequest / LLMResponse: The uniform generation contract
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
