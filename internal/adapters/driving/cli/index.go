package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pocfinder/internal/adapters/driven/dataset"
	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

var (
	indexPlatformsPath string
	indexEventsPath    string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed the curated dataset into the vector index",
	Long: `Loads the platform and event JSON files, embeds every record and
replaces the matching collections in the vector store.

Records missing required fields, or repeating an id, are reported and
skipped; the rest are still indexed. A collection is only replaced when
its file is given.

Paths default to dataset.platforms and dataset.events in the config file.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexPlatformsPath, "platforms", "", "platforms JSON file")
	indexCmd.Flags().StringVar(&indexEventsPath, "events", "", "events JSON file")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	svc, err := services(cmd, LevelIndex)
	if err != nil {
		return err
	}
	if svc.Index == nil || svc.Settings == nil {
		return errors.New("index service not configured")
	}

	settings, err := svc.Settings.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	platformsPath := firstNonEmpty(indexPlatformsPath, settings.Dataset.PlatformsPath)
	eventsPath := firstNonEmpty(indexEventsPath, settings.Dataset.EventsPath)
	if platformsPath == "" && eventsPath == "" {
		return errors.New("no dataset given: pass --platforms/--events or set dataset.platforms in the config")
	}

	var (
		platforms []domain.PlatformRecord
		events    []domain.EventRecord
	)
	if platformsPath != "" {
		platforms, err = dataset.LoadPlatforms(platformsPath)
		if err := reportLoad(cmd, "platforms", err); err != nil {
			return err
		}
	}
	if eventsPath != "" {
		events, err = dataset.LoadEvents(eventsPath)
		if err := reportLoad(cmd, "events", err); err != nil {
			return err
		}
	}

	cmd.Printf("Indexing %d platforms and %d events...\n", len(platforms), len(events))
	stats, err := svc.Index.Build(cmd.Context(), platforms, events)
	if err != nil {
		return fmt.Errorf("index build failed: %w", userError(err))
	}

	cmd.Printf("Indexed %d platforms and %d events", stats.Platforms, stats.Events)
	if stats.Skipped > 0 {
		cmd.Printf(" (%d skipped)", stats.Skipped)
	}
	cmd.Println(".")
	return nil
}

// reportLoad prints rejected records and fails only when nothing could be read.
func reportLoad(cmd *cobra.Command, what string, err error) error {
	if err == nil {
		return nil
	}
	if dataset.IsFatal(err) {
		return fmt.Errorf("loading %s: %w", what, err)
	}
	cmd.PrintErrf("Warning: some %s were skipped:\n%v\n", what, err)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
