package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/pocfinder/internal/adapters/driving/tui"
)

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the full-screen chat UI",
	Long: `Launch the full-screen terminal interface for pocfinder.

The TUI opens on a conversation and also lets you browse the platform and
event catalog directly.

Controls:
  Enter      - Send / Search / Select
  Tab        - Switch between platforms and events while browsing
  PgUp/PgDn  - Scroll the conversation
  Esc        - Back to the menu
  Ctrl+C     - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	svc, err := services(cmd, LevelChat)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	startPromptWatcher(ctx, svc)

	return runChatTUI(ctx, svc)
}

// runChatTUI runs the bubbletea app over a fresh conversation.
func runChatTUI(ctx context.Context, svc *Services) (err error) {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	app, err := newChatApp(ctx, svc)
	if err != nil {
		return err
	}

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// newChatApp builds the TUI model from the bootstrapped services.
func newChatApp(ctx context.Context, svc *Services) (*tui.App, error) {
	if svc.NewMemory == nil {
		return nil, errors.New("conversation memory not configured")
	}
	ports := tui.NewPorts(svc.Chat, svc.NewMemory(), svc.Catalog)
	ports.Providers = svc.Providers

	app, err := tui.NewApp(ports)
	if err != nil {
		return nil, fmt.Errorf("failed to create TUI: %w", err)
	}
	if svc.MaxQueryLength > 0 {
		app.SetMaxQueryLength(svc.MaxQueryLength)
	}
	return app.WithContext(ctx), nil
}
