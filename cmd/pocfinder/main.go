// Command pocfinder answers questions about communities for People of Color
// in tech and the outdoors.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/pocfinder/internal/adapters/driven/config/file"
	"github.com/custodia-labs/pocfinder/internal/adapters/driving/cli"
	"github.com/custodia-labs/pocfinder/internal/logger"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer func() { _ = logger.Sync() }()

	if err := file.LoadDotEnv(); err != nil {
		logger.Warn("Ignoring .env: %v", err)
	}

	cli.SetVersion(version)
	cli.SetBootstrapper(bootstrap)

	if err := cli.Execute(ctx); err != nil {
		var ue *cli.UserError
		if errors.As(err, &ue) {
			fmt.Fprintln(os.Stderr, ue.Message)
			logger.Debug("Cause: %v", ue.Err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}
