package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driving"
	"github.com/custodia-labs/pocfinder/internal/logger"
)

var chatPlain bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Start a conversation that remembers the last few exchanges, so follow-up
questions like "what events do they have?" work.

On a terminal this opens the full-screen chat UI; with --plain, or when
input is piped, it reads one question per line.

` + domain.ChatHelp,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "use the line-based prompt instead of the full-screen UI")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	svc, err := services(cmd, LevelChat)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	startPromptWatcher(ctx, svc)

	if !chatPlain && isTerminal(cmd.InOrStdin()) && isTerminal(cmd.OutOrStdout()) {
		return runChatTUI(ctx, svc)
	}
	return runREPL(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), svc)
}

// runREPL runs the line-based chat loop until EOF or /quit.
func runREPL(ctx context.Context, in io.Reader, out io.Writer, svc *Services) error {
	memory := svc.NewMemory()

	fmt.Fprintln(out, "Ask about communities or upcoming events. Type /help for commands.")
	if len(svc.Providers) > 0 {
		fmt.Fprintf(out, "Providers: %s\n", strings.Join(svc.Providers, " -> "))
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if quit := handleLine(ctx, out, svc.Chat, memory, line); quit {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// handleLine runs one chat command or question. It returns true on /quit.
func handleLine(
	ctx context.Context,
	out io.Writer,
	chat driving.ChatService,
	memory driving.ConversationMemory,
	line string,
) bool {
	command, isCommand, ok := domain.ParseChatCommand(line)
	if isCommand {
		if !ok {
			fmt.Fprintf(out, "Unknown command %s.\n%s\n", command, domain.ChatHelp)
			return false
		}
		switch command {
		case domain.ChatCommandQuit:
			return true
		case domain.ChatCommandReset:
			memory.Clear()
			fmt.Fprintln(out, "Conversation cleared.")
		case domain.ChatCommandUsage:
			fmt.Fprintln(out, chat.Usage().Summary(domain.HaikuPricing))
		case domain.ChatCommandHelp:
			fmt.Fprintln(out, domain.ChatHelp)
		}
		return false
	}

	answer, err := chat.Ask(ctx, memory, line)
	if err != nil {
		logger.Debug("Turn failed: %v", err)
		fmt.Fprintln(out, userError(err).Error())
		return false
	}
	fmt.Fprintln(out)
	printAnswer(out, answer)
	return false
}

// startPromptWatcher reloads edited prompts in the background.
func startPromptWatcher(ctx context.Context, svc *Services) {
	if svc.WatchPrompts == nil {
		return
	}
	go func() {
		if err := svc.WatchPrompts(ctx); err != nil {
			logger.Warn("Prompt watcher stopped: %v", err)
		}
	}()
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
