// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - EmbeddingService: Maps text to a fixed-dimension vector
//   - VectorStore: Named collections with similarity search
//   - LLMProvider: One text-generation backend in the fallback chain
//   - PromptStore: System prompt templates
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - QueryLogStore: Privacy-preserving analytics. Without it, queries are not logged.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
