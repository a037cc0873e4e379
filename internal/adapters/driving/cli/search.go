package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

var (
	searchLimit    int
	searchJSON     bool
	searchEvents   bool
	searchType     string
	searchPlatform string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search platforms or events",
	Long: `Runs hybrid search over the index without generating an answer.
Combines semantic (vector) similarity with keyword boosts for exact and
partial name matches.

Use --events to search upcoming events in the next twelve months.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().BoolVarP(&searchEvents, "events", "e", false, "search upcoming events instead of platforms")
	searchCmd.Flags().StringVarP(&searchType, "type", "t", "", "platform type: tech or outdoor")
	searchCmd.Flags().StringVar(&searchPlatform, "platform", "", "only events hosted by this platform id")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	svc, err := services(cmd, LevelIndex)
	if err != nil {
		return err
	}
	if svc.Catalog == nil {
		return errors.New("search service not configured")
	}

	var results []domain.SearchResult
	if searchEvents {
		results, err = svc.Catalog.SearchEvents(cmd.Context(), query, searchLimit, searchPlatform)
	} else {
		var filter domain.SearchFilter
		if searchType != "" {
			t, ok := domain.ParsePlatformType(searchType)
			if !ok {
				return fmt.Errorf("unknown platform type %q (use tech or outdoor)", searchType)
			}
			filter.Type = t
		}
		results, err = svc.Catalog.SearchPlatforms(cmd.Context(), query, searchLimit, filter)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", userError(err))
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

// searchResultJSON is the --json shape of one result.
type searchResultJSON struct {
	Rank          int           `json:"rank"`
	Kind          string        `json:"kind"`
	VectorScore   float64       `json:"vector_score"`
	KeywordScore  float64       `json:"keyword_score"`
	CombinedScore float64       `json:"combined_score"`
	Record        domain.Record `json:"record"`
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	out := make([]searchResultJSON, len(results))
	for i, r := range results {
		out[i] = searchResultJSON{
			Rank:          r.Rank,
			Kind:          string(r.Record.Kind()),
			VectorScore:   r.VectorScore,
			KeywordScore:  r.KeywordScore,
			CombinedScore: r.CombinedScore,
			Record:        r.Record,
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for _, r := range results {
		// Format: [N] Name (Score)
		cmd.Printf("  [%d] %s (%.2f)\n", r.Rank, r.Record.DisplayName(), r.CombinedScore)
		if p, ok := r.Platform(); ok {
			cmd.Printf("      %s", p.Type)
			if p.FocusArea != "" {
				cmd.Printf(" - %s", p.FocusArea)
			}
			cmd.Println()
		}
		if e, ok := r.Event(); ok {
			cmd.Printf("      %s", e.DateString())
			if e.Location != "" {
				cmd.Printf(" - %s", e.Location)
			}
			cmd.Println()
		}
		if link := r.Record.Link(); link != "" {
			cmd.Printf("      %s\n", link)
		}
		cmd.Println()
	}
	return nil
}
