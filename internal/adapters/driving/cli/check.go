package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check connectivity to the embedding service and LLM providers",
	Long: `Pings the embedding service and every configured LLM provider, in
fallback order, and reports which ones are usable.

Exits with an error when the embedding service or every provider is down.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	svc, err := services(cmd, LevelConfig)
	if err != nil {
		return err
	}
	if svc.Settings == nil || svc.Validator == nil {
		return errors.New("validator not configured")
	}

	settings, err := svc.Settings.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if err := svc.Settings.Validate(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := cmd.Context()
	failed := false

	cmd.Printf("Embedding (%s, %s)... ", settings.Embedding.Provider, settings.Embedding.Model)
	if err := svc.Validator.ValidateEmbedding(ctx, &settings.Embedding); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		failed = true
	} else {
		cmd.Println("OK")
	}

	if len(settings.Providers) == 0 {
		cmd.Println("Providers: none configured")
		return userError(errNoProvidersConfigured)
	}

	usable := 0
	for i, p := range settings.Providers {
		cmd.Printf("Provider %d: %s (%s)... ", i+1, p.DisplayName(), p.Model)
		if err := svc.Validator.ValidateProvider(ctx, p); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			continue
		}
		cmd.Println("OK")
		usable++
	}
	cmd.Printf("\n%d of %d providers usable.\n", usable, len(settings.Providers))

	switch {
	case usable == 0:
		return userError(errNoProvidersConfigured)
	case failed:
		return errors.New("embedding service unavailable")
	}
	return nil
}
