package driving

import "github.com/custodia-labs/pocfinder/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Validate checks the settings for values the core cannot run with.
	Validate(settings *domain.AppSettings) error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// AddProvider appends a provider to the end of the fallback chain.
	AddProvider(p domain.ProviderSettings) error

	// SetEmbedding replaces the embedding provider settings.
	SetEmbedding(e domain.EmbeddingSettings) error
}
