// Package cli provides the cobra command tree for pocfinder.
package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pocfinder/internal/core/ports/driven"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driving"
	"github.com/custodia-labs/pocfinder/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

var (
	configPath string
	verbose    bool
	logFile    string
)

var rootCmd = &cobra.Command{
	Use:   "pocfinder",
	Short: "Find communities for People of Color in tech and the outdoors",
	Long: `pocfinder answers questions about curated platforms and communities for
People of Color in tech and outdoor/travel spaces, and about their upcoming events.

Answers are grounded in a local vector index of the curated dataset and
generated by a chain of LLM providers that fall back to each other.

Get started:
  pocfinder index          # embed the dataset
  pocfinder chat           # start a conversation
  pocfinder ask "..."      # ask a single question`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
		if logFile != "" {
			logger.SetFile(logFile)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.pocfinder/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to a rotating file")
}

// Execute runs the root command and releases whatever the command bootstrapped.
func Execute(ctx context.Context) error {
	defer closeServices()
	return rootCmd.ExecuteContext(ctx)
}

// Services holds the ports the commands call into. Fields a level does
// not provide are left nil.
type Services struct {
	Settings  driving.SettingsService
	Validator driven.AIConfigValidator
	Analytics driving.AnalyticsService
	Catalog   driving.CatalogService
	Index     driving.IndexService
	Chat      driving.ChatService
	Sessions  driving.SessionService

	// NewMemory starts an unshared conversation window.
	NewMemory func() driving.ConversationMemory

	// Metrics serves Prometheus metrics. Optional.
	Metrics http.Handler

	// WatchPrompts reloads edited prompt files until ctx is done. Optional.
	WatchPrompts func(ctx context.Context) error

	// Providers names the provider chain, highest priority first.
	Providers []string

	// MaxQueryLength caps interactive input. Zero means no cap.
	MaxQueryLength int

	// Warnings are non-fatal startup issues to show the user.
	Warnings []string

	// Close releases adapters. Optional.
	Close func()
}

// Level says how much of the application a command needs.
// Each level includes everything below it.
type Level int

// Bootstrap levels.
const (
	// LevelConfig loads settings and the connectivity validator.
	LevelConfig Level = iota

	// LevelAnalytics adds the query log.
	LevelAnalytics

	// LevelIndex adds the vector index and catalog search.
	LevelIndex

	// LevelChat adds the provider chain and the chatbot.
	LevelChat
)

// String returns the string representation.
func (l Level) String() string {
	switch l {
	case LevelConfig:
		return "config"
	case LevelAnalytics:
		return "analytics"
	case LevelIndex:
		return "index"
	case LevelChat:
		return "chat"
	default:
		return "unknown"
	}
}

// Bootstrapper builds the services for a level from the config file at path.
// An empty path means the default location.
type Bootstrapper func(ctx context.Context, path string, level Level) (*Services, error)

var (
	bootstrap Bootstrapper
	active    *Services
)

// SetBootstrapper installs the composition root.
func SetBootstrapper(b Bootstrapper) {
	bootstrap = b
}

// services bootstraps the given level and reports startup warnings.
func services(cmd *cobra.Command, level Level) (*Services, error) {
	if bootstrap == nil {
		return nil, errors.New("services not configured")
	}
	closeServices()

	svc, err := bootstrap(cmd.Context(), configPath, level)
	if err != nil {
		return nil, userError(err)
	}
	active = svc
	for _, w := range svc.Warnings {
		logger.Warn("%s", w)
	}
	return svc, nil
}

func closeServices() {
	if active != nil && active.Close != nil {
		active.Close()
	}
	active = nil
}
