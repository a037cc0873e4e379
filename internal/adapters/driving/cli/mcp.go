package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pocfinder/internal/adapters/driving/mcp"
	"github.com/custodia-labs/pocfinder/internal/logger"
)

// sessionIdleTimeout bounds how long an unused MCP session keeps its memory.
const sessionIdleTimeout = 30 * time.Minute

type idleEvicter interface {
	EvictIdle(maxIdle time.Duration) int
}

var mcpPort int

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol integration",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the chatbot and catalog as MCP tools",
	Long: `Serve pocfinder's ask, search and session tools over the Model Context
Protocol.

Without --port the server speaks JSON-RPC on stdin/stdout, which is what
desktop assistants launch. With --port it listens for streamable HTTP and
also serves /healthz and, when metrics are enabled, /metrics.

  pocfinder mcp serve             # stdio
  pocfinder mcp serve --port 8080 # HTTP

Desktop assistant entry:
  {
    "mcpServers": {
      "pocfinder": {"command": "/path/to/pocfinder", "args": ["mcp", "serve"]}
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "serve HTTP on this port instead of stdio")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	svc, err := services(cmd, LevelChat)
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Chat:      svc.Chat,
		Catalog:   svc.Catalog,
		Sessions:  svc.Sessions,
		Analytics: svc.Analytics,
		Version:   version,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	startPromptWatcher(ctx, svc)
	if e, ok := svc.Sessions.(idleEvicter); ok {
		go evictIdleSessions(ctx, e, sessionIdleTimeout)
	}

	if mcpPort <= 0 {
		return server.Run(ctx)
	}

	var extra map[string]http.Handler
	if svc.Metrics != nil {
		extra = map[string]http.Handler{"/metrics": svc.Metrics}
	}
	addr := fmt.Sprintf(":%d", mcpPort)
	cmd.Printf("MCP server listening on http://localhost%s\n", addr)
	return server.RunHTTP(ctx, addr, extra)
}

// evictIdleSessions sweeps every half timeout until ctx is done.
func evictIdleSessions(ctx context.Context, e idleEvicter, maxIdle time.Duration) {
	ticker := time.NewTicker(maxIdle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := e.EvictIdle(maxIdle); n > 0 {
				logger.Debug("Evicted %d idle sessions", n)
			}
		}
	}
}
