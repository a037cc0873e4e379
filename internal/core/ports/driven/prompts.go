package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// Long-running modes call this when prompt files change on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptPlatformSystem is the system prompt for platform discovery turns.
	PromptPlatformSystem = "platform_system"

	// PromptEventSystem is the system prompt for event discovery turns.
	PromptEventSystem = "event_system"

	// PromptDegradedSystem is the system prompt used when retrieval is unavailable.
	PromptDegradedSystem = "degraded_system"

	// PromptReformulate rewrites a follow-up into a standalone query.
	// The template expects %s placeholders for history and the follow-up.
	PromptReformulate = "reformulate"
)
