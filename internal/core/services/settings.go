package services

import (
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driven"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyTopK             = "retrieval.top_k"
	keyThreshold        = "retrieval.similarity_threshold"
	keyMaxQueryLength   = "retrieval.max_query_length"
	keyOverFetch        = "retrieval.over_fetch_factor"
	keyExactBoost       = "retrieval.exact_match_boost"
	keyPartialBoost     = "retrieval.partial_match_boost"
	keyMemoryTurns      = "conversation.memory_turns"
	keyReformulate      = "conversation.reformulate"
	keyMaxSessions      = "conversation.max_sessions"
	keyExpiryMonths     = "events.expiry_months"
	keyPlatformEvents   = "events.include_platform_events"
	keyMaxTokens        = "generation.max_tokens"
	keyTemperature      = "generation.temperature"
	keyCallTimeout      = "generation.call_timeout"
	keyRetryAttempts    = "generation.retry_attempts"
	keyRetryBaseDelay   = "generation.retry_base_delay"
	keyOnUnavailable    = "generation.on_retrieval_unavailable"
	keyProviders        = "providers"
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyEmbedAPIKeyEnv   = "embedding.api_key_env"
	keyEmbedDimensions  = "embedding.dimensions"
	keyVectorBackend    = "vector_store.backend"
	keyVectorPath       = "vector_store.path"
	keyVectorHost       = "vector_store.host"
	keyVectorPort       = "vector_store.port"
	keyVectorAPIKey     = "vector_store.api_key"
	keyVectorTLS        = "vector_store.use_tls"
	keyPlatformsColl    = "vector_store.platforms_collection"
	keyEventsColl       = "vector_store.events_collection"
	keyDatasetPlatforms = "dataset.platforms"
	keyDatasetEvents    = "dataset.events"
	keyAnalyticsEnabled = "analytics.enabled"
	keyAnalyticsPath    = "analytics.path"
)

// SettingsService maps the config store onto domain settings.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings, filling gaps with defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Retrieval: domain.RetrievalSettings{
			TopK:                s.getInt(keyTopK, d.Retrieval.TopK),
			SimilarityThreshold: s.getFloat(keyThreshold, d.Retrieval.SimilarityThreshold),
			MaxQueryLength:      s.getInt(keyMaxQueryLength, d.Retrieval.MaxQueryLength),
			OverFetchFactor:     s.getInt(keyOverFetch, d.Retrieval.OverFetchFactor),
			ExactMatchBoost:     s.getFloat(keyExactBoost, d.Retrieval.ExactMatchBoost),
			PartialMatchBoost:   s.getFloat(keyPartialBoost, d.Retrieval.PartialMatchBoost),
		},
		Conversation: domain.ConversationSettings{
			MemoryTurns: s.getInt(keyMemoryTurns, d.Conversation.MemoryTurns),
			Reformulate: s.getBool(keyReformulate, d.Conversation.Reformulate),
			MaxSessions: s.getInt(keyMaxSessions, d.Conversation.MaxSessions),
		},
		Events: domain.EventSettings{
			ExpiryMonths:          s.getInt(keyExpiryMonths, d.Events.ExpiryMonths),
			IncludePlatformEvents: s.getBool(keyPlatformEvents, d.Events.IncludePlatformEvents),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:   domain.AIProvider(s.getString(keyEmbedProvider, d.Embedding.Provider.String())),
			Model:      s.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL),
			APIKey:     s.secret(keyEmbedAPIKey, keyEmbedAPIKeyEnv),
			Dimensions: s.configStore.GetInt(keyEmbedDimensions),
		},
		VectorStore: domain.VectorStoreSettings{
			Backend:             domain.VectorBackend(s.getString(keyVectorBackend, string(d.VectorStore.Backend))),
			Path:                s.configStore.GetString(keyVectorPath),
			Host:                s.getString(keyVectorHost, d.VectorStore.Host),
			Port:                s.getInt(keyVectorPort, d.VectorStore.Port),
			APIKey:              s.configStore.GetString(keyVectorAPIKey),
			UseTLS:              s.configStore.GetBool(keyVectorTLS),
			PlatformsCollection: s.getString(keyPlatformsColl, d.VectorStore.PlatformsCollection),
			EventsCollection:    s.getString(keyEventsColl, d.VectorStore.EventsCollection),
		},
		Dataset: domain.DatasetSettings{
			PlatformsPath: s.configStore.GetString(keyDatasetPlatforms),
			EventsPath:    s.configStore.GetString(keyDatasetEvents),
		},
		Analytics: domain.AnalyticsSettings{
			Enabled: s.getBool(keyAnalyticsEnabled, d.Analytics.Enabled),
			Path:    s.configStore.GetString(keyAnalyticsPath),
		},
	}
	if settings.Embedding.BaseURL == "" && settings.Embedding.Provider == domain.AIProviderOllama {
		settings.Embedding.BaseURL = domain.AIProviderOllama.DefaultBaseURL()
	}
	if settings.Embedding.Provider == domain.AIProviderOpenAI && settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.getenv(domain.AIProviderOpenAI.DefaultAPIKeyEnv())
	}

	gen, err := s.generation(d.Generation)
	if err != nil {
		return nil, err
	}
	settings.Generation = gen

	providers, err := s.providers()
	if err != nil {
		return nil, err
	}
	settings.Providers = providers

	return settings, nil
}

// Validate checks the settings for values the core cannot run with.
func (s *SettingsService) Validate(settings *domain.AppSettings) error {
	r := settings.Retrieval
	switch {
	case r.TopK < 1:
		return fmt.Errorf("%w: %s must be at least 1", domain.ErrInvalidInput, keyTopK)
	case r.SimilarityThreshold < 0 || r.SimilarityThreshold > 1:
		return fmt.Errorf("%w: %s must be within [0,1]", domain.ErrInvalidInput, keyThreshold)
	case r.MaxQueryLength < 1:
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, keyMaxQueryLength)
	case r.OverFetchFactor < minOverFetchFactor:
		return fmt.Errorf("%w: %s must be at least %d", domain.ErrInvalidInput, keyOverFetch, minOverFetchFactor)
	case r.ExactMatchBoost < 1 || r.PartialMatchBoost < 1:
		return fmt.Errorf("%w: keyword boosts must be at least 1", domain.ErrInvalidInput)
	case settings.Conversation.MemoryTurns < 1:
		return fmt.Errorf("%w: %s must be at least 1", domain.ErrInvalidInput, keyMemoryTurns)
	case settings.Conversation.MaxSessions < 1:
		return fmt.Errorf("%w: %s must be at least 1", domain.ErrInvalidInput, keyMaxSessions)
	case settings.Events.ExpiryMonths < 1:
		return fmt.Errorf("%w: %s must be at least 1", domain.ErrInvalidInput, keyExpiryMonths)
	case settings.Generation.RetryAttempts < 1:
		return fmt.Errorf("%w: %s must be at least 1", domain.ErrInvalidInput, keyRetryAttempts)
	case !settings.Generation.OnUnavailable.IsValid():
		return fmt.Errorf("%w: %s must be degrade or abort", domain.ErrInvalidInput, keyOnUnavailable)
	case !settings.VectorStore.Backend.IsValid():
		return fmt.Errorf("%w: unknown vector store backend %q", domain.ErrUnsupportedType, settings.VectorStore.Backend)
	}
	for _, p := range settings.Providers {
		if !p.Kind.IsValid() {
			return fmt.Errorf("%w: provider %q has unknown kind %q", domain.ErrUnsupportedType, p.DisplayName(), p.Kind)
		}
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// AddProvider appends a provider to the end of the fallback chain and persists it.
// Providers derived from the environment are written out first so the
// new entry does not silently replace them.
func (s *SettingsService) AddProvider(p domain.ProviderSettings) error {
	if !p.Kind.IsValid() {
		return fmt.Errorf("%w: provider kind %q", domain.ErrUnsupportedType, p.Kind)
	}

	tables := s.configStore.GetTables(keyProviders)
	if len(tables) == 0 {
		derived, err := s.providers()
		if err != nil {
			return err
		}
		for _, d := range derived {
			tables = append(tables, map[string]any{
				"name":        d.DisplayName(),
				"kind":        d.Kind.String(),
				"model":       d.Model,
				"api_key_env": d.Kind.DefaultAPIKeyEnv(),
			})
		}
	}

	entry := map[string]any{
		"name": p.DisplayName(),
		"kind": p.Kind.String(),
	}
	if p.Model != "" {
		entry["model"] = p.Model
	}
	if p.BaseURL != "" {
		entry["base_url"] = p.BaseURL
	}
	if p.APIKey != "" {
		entry["api_key"] = p.APIKey
	}
	if p.RequestsPerSecond > 0 {
		entry["requests_per_second"] = p.RequestsPerSecond
	}
	return s.configStore.Set(keyProviders, append(tables, entry))
}

// SetEmbedding persists the embedding provider settings.
func (s *SettingsService) SetEmbedding(e domain.EmbeddingSettings) error {
	if !e.Provider.IsValid() {
		return fmt.Errorf("%w: embedding provider %q", domain.ErrUnsupportedType, e.Provider)
	}
	values := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, e.Provider.String()},
		{keyEmbedModel, e.Model},
		{keyEmbedBaseURL, e.BaseURL},
		{keyEmbedAPIKey, e.APIKey},
		{keyEmbedDimensions, e.Dimensions},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("saving %s: %w", v.key, err)
		}
	}
	return nil
}

func (s *SettingsService) generation(d domain.GenerationSettings) (domain.GenerationSettings, error) {
	timeout, err := s.getDuration(keyCallTimeout, d.CallTimeout)
	if err != nil {
		return d, err
	}
	delay, err := s.getDuration(keyRetryBaseDelay, d.RetryBaseDelay)
	if err != nil {
		return d, err
	}
	return domain.GenerationSettings{
		MaxTokens:      s.getInt(keyMaxTokens, d.MaxTokens),
		Temperature:    s.getFloat(keyTemperature, d.Temperature),
		CallTimeout:    timeout,
		RetryAttempts:  s.getInt(keyRetryAttempts, d.RetryAttempts),
		RetryBaseDelay: delay,
		OnUnavailable:  domain.RetrievalPolicy(s.getString(keyOnUnavailable, string(d.OnUnavailable))),
	}, nil
}

// providers reads [[providers]] in order. Without any, it derives the
// default priority order from whichever API keys are in the environment.
func (s *SettingsService) providers() ([]domain.ProviderSettings, error) {
	tables := s.configStore.GetTables(keyProviders)
	models := domain.DefaultLLMModels()

	if len(tables) == 0 {
		var out []domain.ProviderSettings
		for _, kind := range domain.DefaultProviderOrder() {
			key := s.getenv(kind.DefaultAPIKeyEnv())
			if key == "" {
				continue
			}
			out = append(out, domain.ProviderSettings{
				Name:    kind.String(),
				Kind:    kind,
				Model:   models[kind],
				BaseURL: kind.DefaultBaseURL(),
				APIKey:  key,
			})
		}
		return out, nil
	}

	out := make([]domain.ProviderSettings, 0, len(tables))
	for i, t := range tables {
		kind := domain.AIProvider(tableString(t, "kind"))
		if !kind.IsValid() {
			return nil, fmt.Errorf("%w: providers[%d] kind %q", domain.ErrUnsupportedType, i, kind)
		}
		p := domain.ProviderSettings{
			Name:              tableString(t, "name"),
			Kind:              kind,
			Model:             tableString(t, "model"),
			BaseURL:           tableString(t, "base_url"),
			APIKey:            tableString(t, "api_key"),
			RequestsPerSecond: tableFloat(t, "requests_per_second"),
		}
		if p.Name == "" {
			p.Name = kind.String()
		}
		if p.Model == "" {
			p.Model = models[kind]
		}
		if p.BaseURL == "" {
			p.BaseURL = kind.DefaultBaseURL()
		}
		if p.APIKey == "" {
			env := tableString(t, "api_key_env")
			if env == "" {
				env = kind.DefaultAPIKeyEnv()
			}
			if env != "" {
				p.APIKey = s.getenv(env)
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *SettingsService) secret(key, envKey string) string {
	if v := s.configStore.GetString(key); v != "" {
		return v
	}
	if env := s.configStore.GetString(envKey); env != "" {
		return s.getenv(env)
	}
	return ""
}

func (s *SettingsService) getString(key, defaultVal string) string {
	if v := s.configStore.GetString(key); v != "" {
		return v
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := s.configStore.GetString(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, key, err)
	}
	return d, nil
}

func tableString(t map[string]any, key string) string {
	if v, ok := t[key].(string); ok {
		return v
	}
	return ""
}

func tableFloat(t map[string]any, key string) float64 {
	switch v := t[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}
