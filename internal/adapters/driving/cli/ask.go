package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question",
	Long: `Ask one question and print the answer with its sources.

Questions about upcoming events, meetups or conferences search the event
index; everything else searches the platform directory.

Examples:
  pocfinder ask "tech communities for Black women"
  pocfinder ask "any hiking events this summer?"
  pocfinder ask -v "outdoor groups in Atlanta"   # also print token usage`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	svc, err := services(cmd, LevelChat)
	if err != nil {
		return err
	}

	answer, err := svc.Chat.Ask(cmd.Context(), svc.NewMemory(), strings.Join(args, " "))
	if err != nil {
		return userError(err)
	}

	if askJSON {
		err = outputAnswerJSON(cmd.OutOrStdout(), answer)
	} else {
		printAnswer(cmd.OutOrStdout(), answer)
	}
	if verbose {
		fmt.Fprintln(cmd.ErrOrStderr(), svc.Chat.Usage().Summary(domain.HaikuPricing))
	}
	return err
}

// answerJSON is the --json shape of an answer.
type answerJSON struct {
	Answer   string       `json:"answer"`
	Mode     string       `json:"mode"`
	Degraded bool         `json:"degraded"`
	Provider string       `json:"provider,omitempty"`
	Sources  []sourceJSON `json:"sources"`
}

type sourceJSON struct {
	ID    string  `json:"id"`
	Kind  string  `json:"kind"`
	Name  string  `json:"name"`
	URL   string  `json:"url,omitempty"`
	Score float64 `json:"score"`
}

func outputAnswerJSON(w io.Writer, answer domain.Answer) error {
	out := answerJSON{
		Answer:   answer.Text,
		Mode:     answer.Mode.String(),
		Degraded: answer.Degraded,
		Provider: answer.ProviderUsed,
		Sources:  make([]sourceJSON, len(answer.Sources)),
	}
	for i, s := range answer.Sources {
		out.Sources[i] = sourceJSON{ID: s.ID, Kind: string(s.Kind), Name: s.Name, URL: s.URL, Score: s.Score}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// printAnswer writes the answer text followed by a numbered source list.
func printAnswer(w io.Writer, answer domain.Answer) {
	fmt.Fprintln(w, strings.TrimSpace(answer.Text))
	if len(answer.Sources) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Sources:")
	for i, s := range answer.Sources {
		if s.URL != "" {
			fmt.Fprintf(w, "  [%d] %s - %s\n", i+1, s.Name, s.URL)
		} else {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, s.Name)
		}
	}
}
