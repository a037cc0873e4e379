package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
)

func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleUsageResource(t *testing.T) {
	ports, chat, _, _ := newTestPorts()
	chat.usage = domain.UsageStats{
		Requests: 3,
		Usage:    domain.TokenUsage{InputTokens: 1_000_000, OutputTokens: 200_000, CacheReadTokens: 500_000},
	}
	server, err := NewServer(ports)
	require.NoError(t, err)

	result, err := server.handleUsageResource(context.Background(), makeReadResourceRequest("pocfinder://usage"))
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, "application/json", result.Contents[0].MIMEType)

	var got usageInfo
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &got))
	assert.Equal(t, 3, got.Requests)
	assert.Equal(t, 1_000_000, got.InputTokens)
	assert.InDelta(t, 1.0+1.0+0.05, got.EstimatedCostUSD, 1e-9)
}

func TestServer_handleStatsResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns stats", func(t *testing.T) {
		ports, _, _, _ := newTestPorts()
		ports.Analytics = &mockAnalyticsService{stats: domain.QueryStats{
			TotalQueries: 4,
			ByMode:       map[domain.Mode]int{domain.ModePlatform: 3, domain.ModeEvent: 1},
			Errors:       1,
			TopKeywords:  []domain.KeywordCount{{Value: "tech", Count: 2}},
		}}
		server, err := NewServer(ports)
		require.NoError(t, err)

		result, err := server.handleStatsResource(ctx, makeReadResourceRequest("pocfinder://stats"))
		require.NoError(t, err)

		var got statsInfo
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &got))
		assert.Equal(t, 4, got.TotalQueries)
		assert.Equal(t, map[string]int{"platform": 3, "event": 1}, got.ByMode)
		assert.InDelta(t, 0.25, got.ErrorRate, 1e-9)
		assert.Equal(t, []countInfo{{Value: "tech", Count: 2}}, got.TopKeywords)
		assert.Empty(t, got.TopPlatforms)
	})

	t.Run("returns error on stats failure", func(t *testing.T) {
		ports, _, _, _ := newTestPorts()
		ports.Analytics = &mockAnalyticsService{err: errors.New("database locked")}
		server, err := NewServer(ports)
		require.NoError(t, err)

		_, err = server.handleStatsResource(ctx, makeReadResourceRequest("pocfinder://stats"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading stats")
	})
}
