package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driven"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driving"
	"github.com/custodia-labs/pocfinder/internal/logger"
)

// Ensure HybridRetriever implements the interface.
var _ driving.Retriever = (*HybridRetriever)(nil)

// minOverFetchFactor leaves room for keyword boosting to promote
// candidates from outside the raw vector top-k.
const minOverFetchFactor = 2

// fillerWords are dropped before keyword matching.
var fillerWords = map[string]struct{}{
	"tell": {}, "me": {}, "about": {}, "more": {}, "what": {}, "is": {}, "are": {},
	"the": {}, "a": {}, "an": {}, "find": {}, "show": {}, "looking": {}, "for": {},
	"any": {}, "some": {}, "and": {}, "of": {}, "in": {}, "on": {}, "to": {},
	"with": {}, "can": {}, "you": {}, "i": {}, "want": {}, "need": {}, "there": {},
	"do": {}, "does": {}, "know": {}, "please": {}, "who": {}, "which": {},
	"platform": {}, "platforms": {}, "community": {}, "communities": {},
}

// candidate is a decoded vector hit awaiting re-ranking.
type candidate struct {
	record     domain.Record
	vector     float64
	multiplier float64
	order      int // position in the raw vector ranking
}

// HybridRetriever merges vector similarity with keyword boosts.
type HybridRetriever struct {
	embedder  driven.EmbeddingService
	store     driven.VectorStore
	cfg       domain.RetrievalSettings
	telemetry driven.Telemetry
}

// NewHybridRetriever creates a retriever over the given store.
// The embedder is shared with the index builder and must outlive the retriever.
func NewHybridRetriever(
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	cfg domain.RetrievalSettings,
) *HybridRetriever {
	if cfg.OverFetchFactor < minOverFetchFactor {
		cfg.OverFetchFactor = minOverFetchFactor
	}
	if cfg.ExactMatchBoost < 1 {
		cfg.ExactMatchBoost = 1
	}
	if cfg.PartialMatchBoost < 1 {
		cfg.PartialMatchBoost = 1
	}
	if cfg.TopK <= 0 {
		cfg.TopK = domain.DefaultAppSettings().Retrieval.TopK
	}
	return &HybridRetriever{
		embedder:  embedder,
		store:     store,
		cfg:       cfg,
		telemetry: driven.NopTelemetry{},
	}
}

// SetTelemetry sets the metrics sink.
func (r *HybridRetriever) SetTelemetry(t driven.Telemetry) {
	if t != nil {
		r.telemetry = t
	}
}

// ValidateQuery trims the query and enforces the empty and length checks.
func (r *HybridRetriever) ValidateQuery(query string) (string, error) {
	return validateQuery(query, r.cfg.MaxQueryLength)
}

func validateQuery(query string, maxLen int) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("%w: query is empty", domain.ErrInvalidQuery)
	}
	if !utf8.ValidString(query) {
		return "", fmt.Errorf("%w: query is not valid UTF-8", domain.ErrInvalidQuery)
	}
	if maxLen > 0 {
		if n := utf8.RuneCountInString(query); n > maxLen {
			return "", fmt.Errorf("%w: %d characters (max %d)", domain.ErrQueryTooLong, n, maxLen)
		}
	}
	return query, nil
}

// Search returns at most topK results above the similarity threshold.
// An empty or unreachable store yields an empty slice and ErrRetrievalUnavailable.
func (r *HybridRetriever) Search(
	ctx context.Context, collection, query string, topK int, filter domain.SearchFilter,
) ([]domain.SearchResult, error) {
	start := time.Now()
	results, err := r.search(ctx, collection, query, topK, filter)
	r.telemetry.ObserveRetrieval(collection, len(results), time.Since(start), err)
	return results, err
}

func (r *HybridRetriever) search(
	ctx context.Context, collection, query string, topK int, filter domain.SearchFilter,
) ([]domain.SearchResult, error) {
	logger.Section("Hybrid Retrieval")

	query, err := r.ValidateQuery(query)
	if err != nil {
		return nil, err
	}
	topK = domain.ClampTopK(topK, r.cfg.TopK)
	fetch := topK * r.cfg.OverFetchFactor
	logger.Debug("Query: %q, collection: %s, top_k: %d, fetch: %d", query, collection, topK, fetch)

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		logger.Warn("Embedding failed: %v", err)
		return []domain.SearchResult{}, unavailable(ctx, "embed query", err)
	}

	hits, err := r.store.Search(ctx, collection, vec, fetch, vectorFilter(filter))
	if err != nil {
		logger.Warn("Vector search failed: %v", err)
		return []domain.SearchResult{}, unavailable(ctx, "vector search", err)
	}
	if len(hits) == 0 {
		count, cerr := r.store.Count(ctx, collection)
		if cerr != nil {
			return []domain.SearchResult{}, unavailable(ctx, "count collection", cerr)
		}
		if count == 0 {
			logger.Warn("Collection %s is empty", collection)
			return []domain.SearchResult{}, fmt.Errorf("%w: collection %s is empty",
				domain.ErrRetrievalUnavailable, collection)
		}
		logger.Debug("No candidates matched the filter")
		return []domain.SearchResult{}, nil
	}
	logger.Debug("Vector candidates: %d", len(hits))

	candidates := r.decode(hits, filter)
	terms := newQueryTerms(query)
	for i := range candidates {
		candidates[i].multiplier = r.keywordMultiplier(terms, candidates[i].record)
	}

	results := r.rank(candidates, topK)
	logger.Info("Retrieved %d results from %s", len(results), collection)
	return results, nil
}

// decode rebuilds records from hit metadata, dropping duplicates and
// anything the backend returned outside the filter.
func (r *HybridRetriever) decode(hits []driven.VectorHit, filter domain.SearchFilter) []candidate {
	seen := make(map[string]struct{}, len(hits))
	out := make([]candidate, 0, len(hits))
	for i, h := range hits {
		rec, err := domain.DecodeMetadata(h.ID, h.Metadata)
		if err != nil {
			logger.Warn("Skipping hit %s: %v", h.ID, err)
			continue
		}
		id := rec.RecordID()
		if _, dup := seen[id]; dup {
			continue
		}
		if !filter.Matches(rec) {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, candidate{
			record: rec,
			vector: clamp01(h.Score),
			order:  i,
		})
	}
	return out
}

// rank sorts by combined score, then vector score, then raw order,
// drops sub-threshold candidates and truncates to topK.
func (r *HybridRetriever) rank(candidates []candidate, topK int) []domain.SearchResult {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		ca, cb := a.vector*a.multiplier, b.vector*b.multiplier
		if ca != cb {
			return ca > cb
		}
		if a.vector != b.vector {
			return a.vector > b.vector
		}
		return a.order < b.order
	})

	results := make([]domain.SearchResult, 0, min(topK, len(candidates)))
	for _, c := range candidates {
		if len(results) == topK {
			break
		}
		if c.vector < r.cfg.SimilarityThreshold {
			logger.Debug("Dropping %s: similarity %.3f below threshold", c.record.RecordID(), c.vector)
			continue
		}
		results = append(results, domain.SearchResult{
			Record:        c.record,
			VectorScore:   c.vector,
			KeywordScore:  c.multiplier - 1,
			CombinedScore: c.vector * c.multiplier,
			Rank:          len(results) + 1,
		})
	}
	return results
}

// keywordMultiplier scales the vector score of exact and partial name matches.
func (r *HybridRetriever) keywordMultiplier(q queryTerms, rec domain.Record) float64 {
	name := normalisePhrase(rec.DisplayName())
	if name == "" {
		return 1
	}
	if q.phrase == name || q.significantPhrase == name || containsPhrase(q.phrase, name) {
		return r.cfg.ExactMatchBoost
	}
	if len(q.significant) == 0 {
		return 1
	}

	fields := tokenSet(tokenise(name))
	if p, ok := rec.(domain.PlatformRecord); ok {
		for _, tag := range p.Tags {
			for _, tok := range tokenise(tag) {
				fields[tok] = struct{}{}
			}
		}
	}
	matched := 0
	for _, tok := range q.significant {
		if _, ok := fields[tok]; ok {
			matched++
		}
	}
	if matched == 0 {
		return 1
	}
	overlap := float64(matched) / float64(len(q.significant))
	return 1 + (r.cfg.PartialMatchBoost-1)*overlap
}

// queryTerms is the pre-processed query used for keyword matching.
type queryTerms struct {
	phrase            string
	significantPhrase string
	significant       []string
}

func newQueryTerms(query string) queryTerms {
	tokens := tokenise(query)
	significant := significantTokens(tokens)
	return queryTerms{
		phrase:            strings.Join(tokens, " "),
		significantPhrase: strings.Join(significant, " "),
		significant:       significant,
	}
}

// significantTokens drops filler words and very short tokens, keeping order.
func significantTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if utf8.RuneCountInString(t) < 3 {
			continue
		}
		if _, filler := fillerWords[t]; filler {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// tokenise lower-cases s and splits it on anything that is not a letter or digit.
func tokenise(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func normalisePhrase(s string) string {
	return strings.Join(tokenise(s), " ")
}

func containsPhrase(haystack, needle string) bool {
	return strings.Contains(" "+haystack+" ", " "+needle+" ")
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// vectorFilter translates a domain filter into store metadata conditions.
func vectorFilter(f domain.SearchFilter) driven.VectorFilter {
	var vf driven.VectorFilter
	equals := map[string]string{}
	if f.Type != "" {
		equals[domain.MetaType] = f.Type.String()
	}
	if f.PlatformID != "" {
		equals[domain.MetaPlatformID] = f.PlatformID
	}
	if len(equals) > 0 {
		vf.Equals = equals
	}
	if !f.DateFrom.IsZero() || !f.DateTo.IsZero() {
		cond := driven.RangeCondition{Field: domain.MetaDateOrdinal}
		if !f.DateFrom.IsZero() {
			from := float64(domain.DayOrdinal(f.DateFrom))
			cond.Gte = &from
		}
		if !f.DateTo.IsZero() {
			to := float64(domain.DayOrdinal(f.DateTo))
			cond.Lte = &to
		}
		vf.Ranges = []driven.RangeCondition{cond}
	}
	return vf
}

// unavailable wraps a backend failure, preserving caller cancellation.
func unavailable(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrRetrievalUnavailable, op, err)
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
