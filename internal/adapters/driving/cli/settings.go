package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driving"
)

var errNoSettingsService = errors.New("settings service not configured")

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change settings",
	Long: `Show the effective settings, or add LLM providers and choose the
embedding model.

Settings are stored in ~/.pocfinder/config.toml. Provider API keys can also
come from the environment or a .env file.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	RunE:  runSettingsShow,
}

var settingsProviderCmd = &cobra.Command{
	Use:   "provider",
	Short: "Append an LLM provider to the fallback chain",
	Long: `Add an LLM provider interactively. The chain is tried in insertion
order; a provider is only used once every earlier one has failed.`,
	RunE: runSettingsProvider,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Choose the embedding provider and model",
	Long: `Choose how records and queries are embedded. A different model means
different vectors, so run 'pocfinder index' afterwards.`,
	RunE: runSettingsEmbedding,
}

// settingsInput feeds the interactive prompts.
var settingsInput io.Reader = os.Stdin

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsProviderCmd, settingsEmbeddingCmd)
	rootCmd.AddCommand(settingsCmd)
}

func settingsService(cmd *cobra.Command) (*Services, driving.SettingsService, error) {
	svc, err := services(cmd, LevelConfig)
	if err != nil {
		return nil, nil, err
	}
	if svc.Settings == nil {
		return nil, nil, errNoSettingsService
	}
	return svc, svc.Settings, nil
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	_, settingsSvc, err := settingsService(cmd)
	if err != nil {
		return err
	}
	s, err := settingsSvc.Get()
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}

	out := cmd.OutOrStdout()
	section := func(header string) { fmt.Fprintf(out, "\n%s\n", header) }
	field := func(indent int, label, format string, args ...any) {
		fmt.Fprintf(out, "%s%s: %s\n", strings.Repeat(" ", indent), label, fmt.Sprintf(format, args...))
	}

	fmt.Fprintln(out, "Current Settings")
	fmt.Fprintln(out, "================")

	section("[Providers] (fallback order)")
	if len(s.Providers) == 0 {
		fmt.Fprintln(out, "  (none - set ANTHROPIC_API_KEY, CEREBRAS_API_KEY or DEEPSEEK_API_KEY)")
	}
	for i, p := range s.Providers {
		fmt.Fprintf(out, "  %d. %s: %s (%s)\n", i+1, p.DisplayName(), p.Kind.Description(), p.Model)
		switch {
		case !p.Kind.RequiresAPIKey():
			field(5, "Base URL", "%s", p.BaseURL)
		case p.APIKey != "":
			field(5, "API Key", "%s", maskAPIKey(p.APIKey))
		default:
			field(5, "API Key", "(not set, %s)", p.Kind.DefaultAPIKeyEnv())
		}
		if p.RequestsPerSecond > 0 {
			field(5, "Rate limit", "%.1f req/s", p.RequestsPerSecond)
		}
	}

	e := s.Embedding
	section("[Embedding]")
	field(2, "Provider", "%s", e.Provider.Description())
	field(2, "Model", "%s", e.Model)
	switch {
	case !e.Provider.RequiresAPIKey():
		field(2, "Base URL", "%s", e.BaseURL)
	case e.APIKey != "":
		field(2, "API Key", "%s", maskAPIKey(e.APIKey))
	default:
		field(2, "API Key", "(not set)")
	}

	v := s.VectorStore
	section("[Vector Store]")
	field(2, "Backend", "%s", v.Backend)
	if v.Backend == domain.VectorBackendQdrant {
		field(2, "Address", "%s:%d", v.Host, v.Port)
	}
	field(2, "Collections", "%s, %s", v.PlatformsCollection, v.EventsCollection)

	section("[Retrieval]")
	field(2, "Top K", "%d", s.Retrieval.TopK)
	field(2, "Similarity threshold", "%.2f", s.Retrieval.SimilarityThreshold)
	field(2, "Memory turns", "%d", s.Conversation.MemoryTurns)
	field(2, "Event window", "%d months", s.Events.ExpiryMonths)
	fmt.Fprintln(out)

	if err := settingsSvc.Validate(s); err != nil {
		fmt.Fprintf(out, "Warning: %v\n", err)
		return nil
	}
	fmt.Fprintln(out, "Configuration is valid.")
	return nil
}

func runSettingsProvider(cmd *cobra.Command, _ []string) error {
	svc, settingsSvc, err := settingsService(cmd)
	if err != nil {
		return err
	}
	p := newPrompter(cmd)

	kind := choose(p, "Select LLM Provider", domain.AllLLMProviders())
	model := p.ask("Enter model name", domain.DefaultLLMModels()[kind])
	provider := domain.ProviderSettings{
		Name:    kind.String(),
		Kind:    kind,
		Model:   model,
		BaseURL: kind.DefaultBaseURL(),
	}
	if kind.RequiresAPIKey() {
		provider.APIKey = p.secret(fmt.Sprintf("Enter API key (empty to read %s): ", kind.DefaultAPIKeyEnv()))
	}

	// A key left to the environment is checked on first use instead.
	if svc.Validator != nil && (provider.APIKey != "" || !kind.RequiresAPIKey()) {
		if err := p.validate(func() error { return svc.Validator.ValidateProvider(cmd.Context(), provider) }); err != nil {
			return fmt.Errorf("provider validation failed: %w", err)
		}
	}

	if err := settingsSvc.AddProvider(provider); err != nil {
		return fmt.Errorf("add provider: %w", err)
	}
	cmd.Printf("Added %s (%s) to the provider chain.\n", kind.Description(), model)
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	svc, settingsSvc, err := settingsService(cmd)
	if err != nil {
		return err
	}
	p := newPrompter(cmd)

	kind := choose(p, "Select Embedding Provider", domain.AllEmbeddingProviders())
	model := p.ask("Enter model name", domain.DefaultEmbeddingModels()[kind])
	embedding := domain.EmbeddingSettings{
		Provider: kind,
		Model:    model,
		BaseURL:  kind.DefaultBaseURL(),
	}
	if kind.RequiresAPIKey() {
		embedding.APIKey = p.secret("Enter API key: ")
		if embedding.APIKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if svc.Validator != nil {
		if err := p.validate(func() error { return svc.Validator.ValidateEmbedding(cmd.Context(), &embedding) }); err != nil {
			return fmt.Errorf("embedding validation failed: %w", err)
		}
	}

	if err := settingsSvc.SetEmbedding(embedding); err != nil {
		return fmt.Errorf("set embedding provider: %w", err)
	}
	cmd.Printf("Embedding provider configured: %s (%s)\n", kind.Description(), model)
	cmd.Println("Run 'pocfinder index' to rebuild the index with the new model.")
	return nil
}

// prompter asks questions on the command's output and reads answers from
// settingsInput.
type prompter struct {
	cmd    *cobra.Command
	reader *bufio.Reader
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{cmd: cmd, reader: bufio.NewReader(settingsInput)}
}

func (p *prompter) line() string {
	s, _ := p.reader.ReadString('\n') //nolint:errcheck // EOF reads as an empty answer
	return strings.TrimSpace(s)
}

// ask returns the answer, or def when the answer is empty.
func (p *prompter) ask(question, def string) string {
	p.cmd.Printf("%s [%s]: ", question, def)
	if answer := p.line(); answer != "" {
		return answer
	}
	return def
}

// secret reads without echo when input is a terminal.
func (p *prompter) secret(question string) string {
	p.cmd.Print(question)
	defer p.cmd.Println()
	if f, ok := settingsInput.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if b, err := term.ReadPassword(int(f.Fd())); err == nil {
			return string(b)
		}
	}
	return p.line()
}

func (p *prompter) validate(check func() error) error {
	p.cmd.Print("Validating configuration... ")
	if err := check(); err != nil {
		p.cmd.Printf("FAILED: %v\n", err)
		return err
	}
	p.cmd.Println("OK")
	return nil
}

// choose lists options and returns the picked one, the first by default.
func choose[T interface{ Description() string }](p *prompter, title string, options []T) T {
	p.cmd.Println(title)
	for i, o := range options {
		p.cmd.Printf("  %d. %s\n", i+1, o.Description())
	}
	p.cmd.Print("\nEnter choice [1]: ")
	return options[parseChoice(p.line(), len(options), 1)-1]
}

// parseChoice returns the 1-based choice, or def when input is not in range.
func parseChoice(input string, n, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || v < 1 || v > n {
		return def
	}
	return v
}

// maskAPIKey keeps the first and last four characters of longer keys.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
