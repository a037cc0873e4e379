package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const instructions = `pocfinder answers questions about communities and events for People of Color
in tech and the outdoors. Use "ask" for conversational answers grounded in the
platform database, passing the same session_id across turns to keep context.
Use "search_platforms" and "search_events" for ranked records without an LLM call.`

// shutdownGrace bounds how long in-flight HTTP requests may run after ctx ends.
const shutdownGrace = 5 * time.Second

// Server exposes the chatbot over the Model Context Protocol.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer validates ports and registers the tools and resources.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	version := ports.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		ports: ports,
		server: mcp.NewServer(
			&mcp.Implementation{Name: "pocfinder", Version: version},
			&mcp.ServerOptions{Instructions: instructions},
		),
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run serves over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the streamable HTTP handler with a /healthz probe and any
// extra handlers mounted beside it.
func (s *Server) Handler(extra map[string]http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok\n"))
	})
	for pattern, h := range extra {
		mux.Handle(pattern, h)
	}
	mux.Handle("/", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil))
	return mux
}

// RunHTTP serves Handler(extra) on addr until ctx is cancelled.
func (s *Server) RunHTTP(ctx context.Context, addr string, extra map[string]http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(extra),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		stopped <- srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-stopped
}
