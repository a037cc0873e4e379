package status

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/pocfinder/internal/adapters/driving/tui/keymap"
)

func TestBar_LeftSide(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		message string
		results int
		want    string
		absent  string
	}{
		{name: "ready", state: StateReady, want: "Ready"},
		{name: "ready with message", state: StateReady, message: "answered by groq", want: "answered by groq", absent: "Ready"},
		{name: "thinking", state: StateThinking, want: "Thinking..."},
		{name: "searching", state: StateSearching, want: "Searching..."},
		{name: "one result", state: StateResults, results: 1, want: "1 platform"},
		{name: "many results", state: StateResults, results: 7, want: "7 platforms"},
		{name: "no results", state: StateResults, want: "Ready"},
		{name: "degraded default", state: StateDegraded, want: "Retrieval unavailable"},
		{name: "degraded message", state: StateDegraded, message: "vector store down", want: "vector store down"},
		{name: "bare error", state: StateError, want: "Error"},
		{name: "error message", state: StateError, message: "connection refused", want: "Error: connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := NewBar(nil, nil)
			bar.SetWidth(160)
			bar.SetState(tt.state)
			bar.SetMessage(tt.message)
			bar.SetResultCount(tt.results)

			view := bar.View()
			assert.Contains(t, view, tt.want)
			if tt.absent != "" {
				assert.NotContains(t, view, tt.absent)
			}
		})
	}
}

func TestBar_KeyHints(t *testing.T) {
	km := keymap.DefaultKeyMap()
	bar := NewBar(nil, km)
	bar.SetWidth(160)

	assert.Contains(t, bar.View(), "quit", "short help by default")

	bar.SetState(StateResults)
	bar.SetResultCount(3)
	assert.Contains(t, bar.View(), "actions")

	bar.SetHints(km.ChatHelp())
	view := bar.View()
	assert.Contains(t, view, "send")
	assert.NotContains(t, view, "actions")

	bar.SetHints(nil)
	assert.Contains(t, bar.View(), "actions")
}

func TestBar_Clear(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetState(StateDegraded)
	bar.SetMessage("retrieval down")
	bar.SetResultCount(4)

	bar.Clear()

	assert.Equal(t, StateReady, bar.State())
	assert.Empty(t, bar.Message())
	assert.Contains(t, bar.View(), "Ready")
}

func TestBar_NarrowWidth(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(10)

	view := bar.View()
	assert.Contains(t, view, "Ready")
}
