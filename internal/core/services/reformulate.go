package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driven"
	"github.com/custodia-labs/pocfinder/internal/logger"
)

// Follow-up scoring: a query scoring at least reformulateThreshold needs context.
const (
	reformulateThreshold   = 2
	shortQueryWords        = 5
	historyTurnsForRewrite = 4
	historySnippetRunes    = 200
)

var (
	pronouns     = map[string]struct{}{"it": {}, "its": {}, "they": {}, "them": {}, "their": {}, "this": {}, "that": {}, "these": {}, "those": {}, "he": {}, "she": {}, "there": {}}
	comparatives = map[string]struct{}{"more": {}, "other": {}, "another": {}, "similar": {}, "different": {}, "else": {}, "better": {}}
	connectors   = []string{"what about", "how about", "and", "also", "but", "or", "any other", "what else"}
)

// Reformulator rewrites context-dependent follow-ups into standalone queries
// so retrieval does not depend on pronouns resolved only by the conversation.
type Reformulator struct {
	llm     driven.TextGenerator
	prompts driven.PromptStore
}

// NewReformulator creates a reformulator. The prompt store may be nil.
func NewReformulator(llm driven.TextGenerator, prompts driven.PromptStore) *Reformulator {
	return &Reformulator{llm: llm, prompts: prompts}
}

// DependencyScore scores how much query leans on earlier turns.
func DependencyScore(query string) int {
	lower := strings.ToLower(strings.TrimSpace(query))
	words := tokenise(lower)
	score := 0

	if len(words) < shortQueryWords {
		score++
	}
	if hasToken(words, pronouns) {
		score += 2
	}
	phrase := strings.Join(words, " ")
	for _, c := range connectors {
		if phrase == c || strings.HasPrefix(phrase, c+" ") {
			score += 2
			break
		}
	}
	if hasToken(words, comparatives) {
		score++
	}
	return score
}

// NeedsContext reports whether query should be rewritten given the history.
func NeedsContext(query string, hasHistory bool) bool {
	return hasHistory && DependencyScore(query) >= reformulateThreshold
}

// Reformulate returns a standalone rewrite of query, or query itself when no
// rewrite is needed or the rewrite fails.
func (r *Reformulator) Reformulate(ctx context.Context, query string, history []domain.ConversationTurn) string {
	if !NeedsContext(query, len(history) > 0) {
		return query
	}

	if len(history) > historyTurnsForRewrite {
		history = history[len(history)-historyTurnsForRewrite:]
	}
	var b strings.Builder
	for _, t := range history {
		role := "User"
		if t.Role == domain.RoleAssistant {
			role = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, truncateRunes(t.Content, historySnippetRunes))
	}

	tmpl := defaultReformulatePrompt
	if r.prompts != nil {
		if p, err := r.prompts.Load(driven.PromptReformulate); err == nil && p != "" {
			tmpl = p
		}
	}

	resp, err := r.llm.Generate(ctx, domain.LLMRequest{
		UserMessage: fmt.Sprintf(tmpl, strings.TrimSpace(b.String()), query),
		MaxTokens:   100,
		Temperature: 0,
	})
	if err != nil {
		logger.Warn("Query reformulation failed, using original: %v", err)
		return query
	}

	rewritten := strings.Trim(strings.TrimSpace(resp.Text), `"`)
	if rewritten == "" {
		return query
	}
	logger.Info("Reformulated %q -> %q", query, rewritten)
	return rewritten
}

const defaultReformulatePrompt = `Conversation history:
%s

Follow-up question: %s

Reformulate this as a clear, concise standalone question (10 words or less). Preserve the user's intent. Reply with the question only.`

func hasToken(words []string, set map[string]struct{}) bool {
	for _, w := range words {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
