package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

// defaultLimit is the result count when a tool call gives none.
const defaultLimit = 5

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Message   string `json:"message" jsonschema:"the question to ask about platforms or events"`
	SessionID string `json:"session_id,omitempty" jsonschema:"session to continue; omit to start a new conversation"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer    string         `json:"answer"`
	SessionID string         `json:"session_id"`
	Mode      string         `json:"mode"`
	Degraded  bool           `json:"degraded"`
	Provider  string         `json:"provider,omitempty"`
	Sources   []SourceOutput `json:"sources"`
}

// SourceOutput is one record an answer drew on.
type SourceOutput struct {
	ID    string  `json:"id"`
	Kind  string  `json:"kind"`
	Name  string  `json:"name"`
	URL   string  `json:"url,omitempty"`
	Score float64 `json:"score"`
}

// SearchPlatformsInput is the input schema for the search_platforms tool.
type SearchPlatformsInput struct {
	Query string `json:"query" jsonschema:"what kind of community to look for"`
	Type  string `json:"type,omitempty" jsonschema:"restrict to Tech or Outdoor/Travel"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 5, at most 50)"`
}

// SearchEventsInput is the input schema for the search_events tool.
type SearchEventsInput struct {
	Query      string `json:"query" jsonschema:"what kind of event to look for"`
	PlatformID string `json:"platform_id,omitempty" jsonschema:"restrict to events hosted by one platform"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 5, at most 50)"`
}

// SearchOutput is the output schema for the search tools.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	Rank          int               `json:"rank"`
	ID            string            `json:"id"`
	Kind          string            `json:"kind"`
	Name          string            `json:"name"`
	URL           string            `json:"url,omitempty"`
	VectorScore   float64           `json:"vector_score"`
	CombinedScore float64           `json:"combined_score"`
	Details       map[string]string `json:"details,omitempty"`
}

// ResetSessionInput is the input schema for the reset_session tool.
type ResetSessionInput struct {
	SessionID string `json:"session_id" jsonschema:"the session to forget"`
}

// ResetSessionOutput is the output schema for the reset_session tool.
type ResetSessionOutput struct {
	Reset bool `json:"reset"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "ask",
		Description: "Ask about communities for people of colour in tech and outdoor/travel spaces, " +
			"or their upcoming events. Pass the returned session_id to ask follow-up questions.",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_platforms",
		Description: "Search the curated platform directory without generating an answer",
	}, s.handleSearchPlatforms)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_events",
		Description: "Search upcoming events within the next year",
	}, s.handleSearchEvents)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reset_session",
		Description: "Forget the conversation history of a session",
	}, s.handleResetSession)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	id, memory := s.ports.Sessions.Session(input.SessionID)

	answer, err := s.ports.Chat.Ask(ctx, memory, input.Message)
	if err != nil {
		return nil, AskOutput{}, toolError(err)
	}

	output := AskOutput{
		Answer:    answer.Text,
		SessionID: id,
		Mode:      answer.Mode.String(),
		Degraded:  answer.Degraded,
		Provider:  answer.ProviderUsed,
		Sources:   make([]SourceOutput, len(answer.Sources)),
	}
	for i, src := range answer.Sources {
		output.Sources[i] = SourceOutput{
			ID:    src.ID,
			Kind:  string(src.Kind),
			Name:  src.Name,
			URL:   src.URL,
			Score: src.Score,
		}
	}
	return nil, output, nil
}

// handleSearchPlatforms handles the search_platforms tool invocation.
func (s *Server) handleSearchPlatforms(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchPlatformsInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	var filter domain.SearchFilter
	if input.Type != "" {
		t, ok := domain.ParsePlatformType(input.Type)
		if !ok {
			return nil, SearchOutput{}, domain.ErrInvalidInput
		}
		filter.Type = t
	}

	results, err := s.ports.Catalog.SearchPlatforms(ctx, input.Query, limitOrDefault(input.Limit), filter)
	if err != nil {
		return nil, SearchOutput{}, toolError(err)
	}
	return nil, searchOutput(results), nil
}

// handleSearchEvents handles the search_events tool invocation.
func (s *Server) handleSearchEvents(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchEventsInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	results, err := s.ports.Catalog.SearchEvents(ctx, input.Query, limitOrDefault(input.Limit), input.PlatformID)
	if err != nil {
		return nil, SearchOutput{}, toolError(err)
	}
	return nil, searchOutput(results), nil
}

// handleResetSession handles the reset_session tool invocation.
func (s *Server) handleResetSession(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ResetSessionInput,
) (*mcp.CallToolResult, ResetSessionOutput, error) {
	return nil, ResetSessionOutput{Reset: s.ports.Sessions.Reset(input.SessionID)}, nil
}

func searchOutput(results []domain.SearchResult) SearchOutput {
	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i, r := range results {
		output.Results[i] = SearchResultOutput{
			Rank:          r.Rank,
			ID:            r.Record.RecordID(),
			Kind:          string(r.Record.Kind()),
			Name:          r.Record.DisplayName(),
			URL:           r.Record.Link(),
			VectorScore:   r.VectorScore,
			CombinedScore: r.CombinedScore,
			Details:       details(r.Record),
		}
	}
	return output
}

// details returns the record fields not already in the result summary.
func details(rec domain.Record) map[string]string {
	switch r := rec.(type) {
	case domain.PlatformRecord:
		return nonEmpty(map[string]string{
			"type":        r.Type.String(),
			"focus_area":  r.FocusArea,
			"description": r.Description,
		})
	case domain.EventRecord:
		return nonEmpty(map[string]string{
			"platform_id": r.PlatformID,
			"date":        r.DateString(),
			"location":    r.Location,
			"description": r.Description,
		})
	default:
		return nil
	}
}

func nonEmpty(m map[string]string) map[string]string {
	for k, v := range m {
		if v == "" {
			delete(m, k)
		}
	}
	return m
}

func limitOrDefault(n int) int {
	return domain.ClampTopK(n, defaultLimit)
}
