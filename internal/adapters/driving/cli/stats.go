package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

var (
	statsTop  int
	statsJSON bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show anonymous query statistics",
	Long: `Summarises the local query log: how many questions were asked, in which
mode, how often they failed, and the most frequent keywords and platforms.

The log never stores question text, only lengths, keywords and the ids of
the records that were shown.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().IntVarP(&statsTop, "top", "n", 10, "length of the top keyword and platform lists")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output statistics as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	svc, err := services(cmd, LevelAnalytics)
	if err != nil {
		return err
	}
	if svc.Analytics == nil {
		return errors.New("analytics are disabled (analytics.enabled = false)")
	}

	stats, err := svc.Analytics.Stats(cmd.Context(), statsTop)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errors.New("analytics are disabled (analytics.enabled = false)")
		}
		return fmt.Errorf("failed to read stats: %w", err)
	}

	if statsJSON {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal stats: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println("Query Statistics")
	cmd.Println("================")
	cmd.Printf("  Total queries:    %d\n", stats.TotalQueries)
	cmd.Printf("  Platform queries: %d\n", stats.ByMode[domain.ModePlatform])
	cmd.Printf("  Event queries:    %d\n", stats.ByMode[domain.ModeEvent])
	cmd.Printf("  Error rate:       %.1f%%\n", stats.ErrorRate()*100)
	cmd.Printf("  Degraded answers: %d\n", stats.Degraded)
	cmd.Printf("  Avg query length: %.1f characters\n", stats.AvgQueryLength)

	printCounts(cmd, "Top keywords", stats.TopKeywords)
	printCounts(cmd, "Top platforms", stats.TopPlatforms)
	return nil
}

func printCounts(cmd *cobra.Command, title string, counts []domain.KeywordCount) {
	if len(counts) == 0 {
		return
	}
	cmd.Println()
	cmd.Printf("%s:\n", title)
	for i, c := range counts {
		cmd.Printf("  %2d. %-24s %d\n", i+1, c.Value, c.Count)
	}
}
