package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/custodia-labs/pocfinder/internal/adapters/driven/ai"
	"github.com/custodia-labs/pocfinder/internal/adapters/driven/config/file"
	"github.com/custodia-labs/pocfinder/internal/adapters/driven/dataset"
	"github.com/custodia-labs/pocfinder/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/pocfinder/internal/adapters/driven/telemetry/metrics"
	"github.com/custodia-labs/pocfinder/internal/adapters/driving/cli"
	"github.com/custodia-labs/pocfinder/internal/core/domain"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driven"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driving"
	"github.com/custodia-labs/pocfinder/internal/core/services"
	"github.com/custodia-labs/pocfinder/internal/logger"
)

// closers releases adapters in reverse order of creation.
type closers []func() error

func (c *closers) add(fn func() error) {
	*c = append(*c, fn)
}

func (c closers) close() {
	var result *multierror.Error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		logger.Warn("Shutdown: %v", err)
	}
}

// bootstrap is the composition root. Each level adds adapters on top of the
// previous one; everything opened is released by Services.Close.
func bootstrap(ctx context.Context, configPath string, level cli.Level) (svc *cli.Services, err error) {
	logger.Section("Bootstrap " + level.String())

	var cleanup closers
	defer func() {
		if err != nil {
			cleanup.close()
		}
	}()

	configStore, err := openConfigStore(configPath)
	if err != nil {
		return nil, err
	}
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings from %s: %w", configStore.Path(), err)
	}
	if err := settingsService.Validate(settings); err != nil && level > cli.LevelConfig {
		return nil, fmt.Errorf("invalid configuration in %s: %w", configStore.Path(), err)
	}

	svc = &cli.Services{
		Settings:       settingsService,
		Validator:      ai.NewConfigValidator(),
		MaxQueryLength: settings.Retrieval.MaxQueryLength,
		Close:          cleanup.close,
	}
	if level == cli.LevelConfig {
		return svc, nil
	}

	var queryLog driven.QueryLogStore
	if settings.Analytics.Enabled {
		store, err := sqlite.NewStore(settings.Analytics.Path)
		if err != nil {
			return nil, fmt.Errorf("opening query log: %w", err)
		}
		cleanup.add(store.Close)
		queryLog = store
		svc.Analytics = services.NewAnalyticsService(store)
	}
	if level == cli.LevelAnalytics {
		svc.Close = cleanup.close
		return svc, nil
	}

	if settings.VectorStore.Path == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, err
		}
		settings.VectorStore.Path = filepath.Join(dir, "vectors")
	}

	prompts, err := file.NewPromptStore("")
	if err != nil {
		return nil, fmt.Errorf("opening prompt store: %w", err)
	}
	telemetry := metrics.New()
	svc.Metrics = telemetry.Handler()
	svc.WatchPrompts = func(ctx context.Context) error {
		return prompts.Watch(ctx, nil)
	}

	embedder, store, providers, warnings, err := openAI(ctx, settings, level)
	if embedder != nil {
		cleanup.add(embedder.Close)
	}
	if store != nil {
		cleanup.add(store.Close)
	}
	for _, p := range providers {
		cleanup.add(p.Close)
	}
	if err != nil {
		return nil, err
	}
	svc.Warnings = warnings

	index := services.NewIndexService(embedder, store, settings.VectorStore)
	svc.Index = index
	if settings.VectorStore.Backend == domain.VectorBackendMemory {
		if err := indexDataset(ctx, index, settings.Dataset); err != nil {
			return nil, err
		}
	}

	retriever := services.NewHybridRetriever(embedder, store, settings.Retrieval)
	retriever.SetTelemetry(telemetry)

	var llm services.Generator
	if level >= cli.LevelChat {
		chain, err := services.NewProviderChain(providers, services.RetryPolicy{
			MaxAttempts: settings.Generation.RetryAttempts,
			BaseDelay:   settings.Generation.RetryBaseDelay,
			CallTimeout: settings.Generation.CallTimeout,
		})
		if err != nil {
			return nil, err
		}
		chain.SetTelemetry(telemetry)
		chain.SetObserver(logTransition)
		llm = chain
		svc.Providers = chain.Providers()
	}

	chatbot := services.NewChatbot(retriever, llm, prompts, services.ChatbotConfigFromSettings(*settings))
	chatbot.SetTelemetry(telemetry)
	if queryLog != nil {
		chatbot.SetQueryLog(queryLog)
	}
	svc.Catalog = chatbot

	if level >= cli.LevelChat {
		memoryTurns := settings.Conversation.MemoryTurns
		svc.Chat = chatbot
		sessions := services.NewSessionManager(memoryTurns, uuid.NewString)
		sessions.SetMaxSessions(settings.Conversation.MaxSessions)
		svc.Sessions = sessions
		svc.NewMemory = func() driving.ConversationMemory {
			return services.NewConversationMemory(memoryTurns)
		}
	}

	svc.Close = cleanup.close
	return svc, nil
}

// openConfigStore opens the config file at path, or the default location.
func openConfigStore(path string) (*file.ConfigStore, error) {
	if path != "" {
		return file.NewConfigStoreAt(path)
	}
	return file.NewConfigStore("")
}

// openAI builds the embedder and vector store, plus the reachable providers
// when the level needs generation.
func openAI(
	ctx context.Context, settings *domain.AppSettings, level cli.Level,
) (driven.EmbeddingService, driven.VectorStore, []driven.LLMProvider, []string, error) {
	if level >= cli.LevelChat {
		result, err := ai.Initialise(ctx, settings)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		return result.EmbeddingService, result.VectorStore, result.Providers, result.Warnings, nil
	}

	embedder, err := ai.CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	store, err := ai.CreateVectorStore(settings.VectorStore, embedder.Dimensions())
	if err != nil {
		return embedder, nil, nil, nil, fmt.Errorf("vector store: %w", err)
	}
	return embedder, store, nil, nil, nil
}

// indexDataset fills a non-persistent store from the configured dataset.
func indexDataset(ctx context.Context, index *services.IndexService, ds domain.DatasetSettings) error {
	if ds.PlatformsPath == "" {
		logger.Warn("Memory vector store with no dataset.platforms configured; searches will find nothing")
		return nil
	}

	platforms, err := dataset.LoadPlatforms(ds.PlatformsPath)
	if err != nil {
		if dataset.IsFatal(err) {
			return fmt.Errorf("loading platforms: %w", err)
		}
		logger.Warn("Skipped platforms: %v", err)
	}
	var events []domain.EventRecord
	if ds.EventsPath != "" {
		events, err = dataset.LoadEvents(ds.EventsPath)
		if err != nil {
			if dataset.IsFatal(err) {
				return fmt.Errorf("loading events: %w", err)
			}
			logger.Warn("Skipped events: %v", err)
		}
	}

	stats, err := index.Build(ctx, platforms, events)
	if err != nil {
		return fmt.Errorf("building index: %w", err)
	}
	logger.Info("Indexed %d platforms and %d events", stats.Platforms, stats.Events)
	return nil
}

func logTransition(t domain.ChainTransition) {
	if t.Err != nil {
		logger.Debug("Provider chain: %s %s attempt %d: %v", t.State, t.Provider, t.Attempt, t.Err)
		return
	}
	logger.Debug("Provider chain: %s %s attempt %d", t.State, t.Provider, t.Attempt)
}
