package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderAnthropic is the Anthropic Messages API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderCerebras is Cerebras inference (OpenAI-compatible).
	AIProviderCerebras AIProvider = "cerebras"

	// AIProviderDeepSeek is the DeepSeek API (OpenAI-compatible).
	AIProviderDeepSeek AIProvider = "deepseek"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderAnthropic, AIProviderCerebras, AIProviderDeepSeek, AIProviderOpenAI, AIProviderOllama:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p != AIProviderOllama
}

// IsOpenAICompatible returns true if the provider speaks the chat completions API.
func (p AIProvider) IsOpenAICompatible() bool {
	return p == AIProviderOpenAI || p == AIProviderCerebras || p == AIProviderDeepSeek
}

// DefaultBaseURL returns the API endpoint used when none is configured.
func (p AIProvider) DefaultBaseURL() string {
	switch p {
	case AIProviderCerebras:
		return "https://api.cerebras.ai/v1"
	case AIProviderDeepSeek:
		return "https://api.deepseek.com"
	case AIProviderOpenAI:
		return "https://api.openai.com/v1"
	case AIProviderAnthropic:
		return "https://api.anthropic.com"
	case AIProviderOllama:
		return "http://localhost:11434"
	default:
		return ""
	}
}

// DefaultAPIKeyEnv returns the environment variable conventionally holding the key.
func (p AIProvider) DefaultAPIKeyEnv() string {
	switch p {
	case AIProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case AIProviderCerebras:
		return "CEREBRAS_API_KEY"
	case AIProviderDeepSeek:
		return "DEEPSEEK_API_KEY"
	case AIProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderAnthropic:
		return "Anthropic Claude (cloud, prompt caching)"
	case AIProviderCerebras:
		return "Cerebras (cloud, fast inference)"
	case AIProviderDeepSeek:
		return "DeepSeek (cloud)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderOllama:
		return "Ollama (local)"
	default:
		return unknownDescription
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderAnthropic: "claude-3-5-haiku-20241022",
		AIProviderCerebras:  "llama3.1-70b",
		AIProviderDeepSeek:  "deepseek-chat",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderOllama:    "llama3.2",
	}
}

// DefaultProviderOrder is the fallback priority used when none is configured:
// quality first, then speed, then last resort.
func DefaultProviderOrder() []AIProvider {
	return []AIProvider{AIProviderAnthropic, AIProviderCerebras, AIProviderDeepSeek}
}

// AllLLMProviders returns every provider that can join the chain.
func AllLLMProviders() []AIProvider {
	return []AIProvider{AIProviderAnthropic, AIProviderCerebras, AIProviderDeepSeek, AIProviderOpenAI, AIProviderOllama}
}

// AllEmbeddingProviders returns the providers that can embed text.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{AIProviderOllama, AIProviderOpenAI}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "all-minilm",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"all-minilm":             384,
		"nomic-embed-text":       768,
		"mxbai-embed-large":      1024,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
	}
}

// ProviderSettings configures one LLM backend in the fallback chain.
type ProviderSettings struct {
	// Name labels the provider in logs and responses. Defaults to Kind.
	Name string

	Kind    AIProvider
	Model   string
	BaseURL string
	APIKey  string

	// RequestsPerSecond throttles calls; zero disables throttling.
	RequestsPerSecond float64
}

// IsConfigured returns true if the provider can be constructed.
func (p ProviderSettings) IsConfigured() bool {
	if !p.Kind.IsValid() {
		return false
	}
	if p.Kind.RequiresAPIKey() && p.APIKey == "" {
		return false
	}
	return true
}

// DisplayName returns Name, falling back to Kind.
func (p ProviderSettings) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Kind.String()
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string

	// Dimensions overrides the known dimension for Model.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if e.Provider != AIProviderOllama && e.Provider != AIProviderOpenAI {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// MaxTopK bounds how many results one search may return.
const MaxTopK = 50

// ClampTopK returns n limited to [1, MaxTopK], with def standing in for n <= 0.
func ClampTopK(n, def int) int {
	if n <= 0 {
		n = def
	}
	return max(1, min(n, MaxTopK))
}

// RetrievalSettings tunes the hybrid retriever.
type RetrievalSettings struct {
	TopK                int
	SimilarityThreshold float64
	MaxQueryLength      int

	// OverFetchFactor multiplies TopK when querying the vector store. Minimum 2.
	OverFetchFactor int

	// ExactMatchBoost multiplies the vector score of an exact name match.
	ExactMatchBoost float64

	// PartialMatchBoost is the multiplier reached at full token overlap.
	PartialMatchBoost float64
}

// RetrievalPolicy decides what happens when the vector store is unavailable.
type RetrievalPolicy string

// Retrieval policies.
const (
	// RetrievalPolicyDegrade answers from the LLM alone with a disclaimer.
	RetrievalPolicyDegrade RetrievalPolicy = "degrade"

	// RetrievalPolicyAbort surfaces the outage to the user.
	RetrievalPolicyAbort RetrievalPolicy = "abort"
)

// IsValid returns true if the policy is recognised.
func (p RetrievalPolicy) IsValid() bool {
	return p == RetrievalPolicyDegrade || p == RetrievalPolicyAbort
}

// ConversationSettings tunes memory and follow-up handling.
type ConversationSettings struct {
	MemoryTurns int
	Reformulate bool

	// MaxSessions caps live MCP sessions; the least recently used is dropped first.
	MaxSessions int
}

// EventSettings tunes event retrieval.
type EventSettings struct {
	ExpiryMonths          int
	IncludePlatformEvents bool
}

// GenerationSettings tunes LLM calls and retries.
type GenerationSettings struct {
	MaxTokens      int
	Temperature    float64
	CallTimeout    time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	OnUnavailable  RetrievalPolicy
}

// VectorBackend identifies the vector store implementation.
type VectorBackend string

// Vector store backends.
const (
	VectorBackendMemory  VectorBackend = "memory"
	VectorBackendChromem VectorBackend = "chromem"
	VectorBackendQdrant  VectorBackend = "qdrant"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendMemory, VectorBackendChromem, VectorBackendQdrant:
		return true
	default:
		return false
	}
}

// VectorStoreSettings configures the vector store.
type VectorStoreSettings struct {
	Backend VectorBackend

	// Path is the chromem persistence directory.
	Path string

	// Host, Port, APIKey and UseTLS address a Qdrant server.
	Host   string
	Port   int
	APIKey string
	UseTLS bool

	PlatformsCollection string
	EventsCollection    string
}

// DatasetSettings locates the curated JSON datasets.
type DatasetSettings struct {
	PlatformsPath string
	EventsPath    string
}

// AnalyticsSettings configures the query log.
type AnalyticsSettings struct {
	Enabled bool
	Path    string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Retrieval    RetrievalSettings
	Conversation ConversationSettings
	Events       EventSettings
	Generation   GenerationSettings
	Providers    []ProviderSettings
	Embedding    EmbeddingSettings
	VectorStore  VectorStoreSettings
	Dataset      DatasetSettings
	Analytics    AnalyticsSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// Providers are left empty; they are derived from the environment at load time.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Retrieval: RetrievalSettings{
			TopK:                5,
			SimilarityThreshold: 0.3,
			MaxQueryLength:      1000,
			OverFetchFactor:     3,
			ExactMatchBoost:     1.5,
			PartialMatchBoost:   1.2,
		},
		Conversation: ConversationSettings{
			MemoryTurns: 5,
			Reformulate: true,
			MaxSessions: 1000,
		},
		Events: EventSettings{
			ExpiryMonths:          12,
			IncludePlatformEvents: true,
		},
		Generation: GenerationSettings{
			MaxTokens:      1000,
			Temperature:    0.7,
			CallTimeout:    30 * time.Second,
			RetryAttempts:  4,
			RetryBaseDelay: time.Second,
			OnUnavailable:  RetrievalPolicyDegrade,
		},
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    "all-minilm",
			BaseURL:  AIProviderOllama.DefaultBaseURL(),
		},
		VectorStore: VectorStoreSettings{
			Backend:             VectorBackendChromem,
			Host:                "localhost",
			Port:                6334,
			PlatformsCollection: "poc_platforms",
			EventsCollection:    "events",
		},
		Analytics: AnalyticsSettings{
			Enabled: true,
		},
	}
}
