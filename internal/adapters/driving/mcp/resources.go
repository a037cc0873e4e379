package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for pocfinder resources.
	uriScheme = "pocfinder://"

	// statsTopN is the length of the top lists in the stats resource.
	statsTopN = 10
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "usage",
		Name:        "usage",
		Description: "Cumulative LLM token usage and estimated cost for this server",
		MIMEType:    "application/json",
	}, s.handleUsageResource)

	if s.ports.Analytics != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "stats",
			Name:        "stats",
			Description: "Anonymous query statistics: totals, modes, top keywords and platforms",
			MIMEType:    "application/json",
		}, s.handleStatsResource)
	}
}

// usageInfo is the JSON shape of the usage resource.
type usageInfo struct {
	Requests         int     `json:"requests"`
	InputTokens      int     `json:"input_tokens"`
	OutputTokens     int     `json:"output_tokens"`
	CacheReadTokens  int     `json:"cache_read_tokens"`
	CacheWriteTokens int     `json:"cache_write_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

// handleUsageResource returns cumulative token usage.
func (s *Server) handleUsageResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	stats := s.ports.Chat.Usage()
	return jsonResource(req.Params.URI, usageInfo{
		Requests:         stats.Requests,
		InputTokens:      stats.Usage.InputTokens,
		OutputTokens:     stats.Usage.OutputTokens,
		CacheReadTokens:  stats.Usage.CacheReadTokens,
		CacheWriteTokens: stats.Usage.CacheWriteTokens,
		EstimatedCostUSD: stats.EstimatedCost(domain.HaikuPricing),
	})
}

// statsInfo is the JSON shape of the stats resource.
type statsInfo struct {
	TotalQueries   int            `json:"total_queries"`
	ByMode         map[string]int `json:"by_mode"`
	ErrorRate      float64        `json:"error_rate"`
	Degraded       int            `json:"degraded"`
	AvgQueryLength float64        `json:"avg_query_length"`
	TopKeywords    []countInfo    `json:"top_keywords"`
	TopPlatforms   []countInfo    `json:"top_platforms"`
}

type countInfo struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// handleStatsResource returns query log statistics.
func (s *Server) handleStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	stats, err := s.ports.Analytics.Stats(ctx, statsTopN)
	if err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}

	info := statsInfo{
		TotalQueries:   stats.TotalQueries,
		ByMode:         make(map[string]int, len(stats.ByMode)),
		ErrorRate:      stats.ErrorRate(),
		Degraded:       stats.Degraded,
		AvgQueryLength: stats.AvgQueryLength,
		TopKeywords:    counts(stats.TopKeywords),
		TopPlatforms:   counts(stats.TopPlatforms),
	}
	for mode, n := range stats.ByMode {
		info.ByMode[mode.String()] = n
	}
	return jsonResource(req.Params.URI, info)
}

func counts(in []domain.KeywordCount) []countInfo {
	out := make([]countInfo, len(in))
	for i, kc := range in {
		out[i] = countInfo{Value: kc.Value, Count: kc.Count}
	}
	return out
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
