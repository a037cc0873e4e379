package services

import (
	"context"
	"hash/fnv"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/pocfinder/internal/core/domain"
	"github.com/custodia-labs/pocfinder/internal/core/ports/driven"
)

// --- Mock implementations ---

// bagEmbedder is a deterministic bag-of-words embedder for testing.
type bagEmbedder struct {
	dims  int
	err   error
	calls int
}

func newBagEmbedder() *bagEmbedder {
	return &bagEmbedder{dims: 64}
}

func (e *bagEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(text), nil
}

func (e *bagEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *bagEmbedder) vector(text string) []float32 {
	v := make([]float32, e.dims)
	for _, tok := range tokenise(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		v[h.Sum32()%uint32(e.dims)]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	n := float32(math.Sqrt(norm))
	for i := range v {
		v[i] /= n
	}
	return v
}

func (e *bagEmbedder) Dimensions() int              { return e.dims }
func (e *bagEmbedder) ModelName() string            { return "bag-of-words" }
func (e *bagEmbedder) Ping(_ context.Context) error { return e.err }
func (e *bagEmbedder) Close() error                 { return nil }

// memStore is a brute-force vector store for testing.
type memStore struct {
	mu          sync.Mutex
	collections map[string]map[string]driven.VectorPoint
	searchErr   error
	drops       []string
	filters     []driven.VectorFilter
}

func newMemStore() *memStore {
	return &memStore{collections: map[string]map[string]driven.VectorPoint{}}
}

func (s *memStore) Upsert(_ context.Context, collection string, points []driven.VectorPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[collection]
	if !ok {
		c = map[string]driven.VectorPoint{}
		s.collections[collection] = c
	}
	for _, p := range points {
		c[p.ID] = p
	}
	return nil
}

func (s *memStore) Search(
	_ context.Context, collection string, vector []float32, k int, filter driven.VectorFilter,
) ([]driven.VectorHit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = append(s.filters, filter)
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	var hits []driven.VectorHit
	for _, p := range s.collections[collection] {
		if !filter.Matches(p.Metadata) {
			continue
		}
		hits = append(hits, driven.VectorHit{ID: p.ID, Score: cosine(vector, p.Vector), Metadata: p.Metadata})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *memStore) Count(_ context.Context, collection string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.searchErr != nil {
		return 0, s.searchErr
	}
	return len(s.collections[collection]), nil
}

func (s *memStore) Delete(_ context.Context, collection string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.collections[collection], id)
	}
	return nil
}

func (s *memStore) Drop(_ context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drops = append(s.drops, collection)
	delete(s.collections, collection)
	return nil
}

func (s *memStore) Close() error { return nil }

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		if i >= len(b) {
			break
		}
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// fixedStore returns canned hits regardless of the query vector.
type fixedStore struct {
	hits       []driven.VectorHit
	count      int
	err        error
	lastK      int
	lastFilter driven.VectorFilter
}

func (s *fixedStore) Upsert(_ context.Context, _ string, _ []driven.VectorPoint) error { return nil }

func (s *fixedStore) Search(
	_ context.Context, _ string, _ []float32, k int, filter driven.VectorFilter,
) ([]driven.VectorHit, error) {
	s.lastK = k
	s.lastFilter = filter
	if s.err != nil {
		return nil, s.err
	}
	if k < len(s.hits) {
		return s.hits[:k], nil
	}
	return s.hits, nil
}

func (s *fixedStore) Count(_ context.Context, _ string) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.count, nil
}

func (s *fixedStore) Delete(_ context.Context, _ string, _ []string) error { return nil }
func (s *fixedStore) Drop(_ context.Context, _ string) error               { return nil }
func (s *fixedStore) Close() error                                         { return nil }

// scriptedProvider returns queued errors before succeeding.
type scriptedProvider struct {
	name  string
	errs  []error
	text  string
	calls int
	block bool
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Generate(ctx context.Context, _ domain.LLMRequest) (domain.LLMResponse, error) {
	p.calls++
	if p.block {
		<-ctx.Done()
		return domain.LLMResponse{}, ctx.Err()
	}
	if p.calls <= len(p.errs) {
		return domain.LLMResponse{}, p.errs[p.calls-1]
	}
	if p.errs != nil && p.text == "" {
		return domain.LLMResponse{}, p.errs[len(p.errs)-1]
	}
	return domain.LLMResponse{
		Text:  p.text,
		Usage: domain.TokenUsage{InputTokens: 10, OutputTokens: 5},
	}, nil
}

func (p *scriptedProvider) ModelName() string            { return p.name + "-model" }
func (p *scriptedProvider) Ping(_ context.Context) error { return nil }
func (p *scriptedProvider) Close() error                 { return nil }

// fakeGenerator records requests and returns a fixed answer.
type fakeGenerator struct {
	mu       sync.Mutex
	text     string
	err      error
	requests []domain.LLMRequest
	usage    domain.UsageStats
	// rewrite answers reformulation calls, which carry no SystemPrompt.
	rewrite string
}

func (g *fakeGenerator) Generate(_ context.Context, req domain.LLMRequest) (domain.LLMResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if req.SystemPrompt == "" && g.rewrite != "" {
		return domain.LLMResponse{Text: g.rewrite, ProviderUsed: "fake"}, nil
	}
	if g.err != nil {
		return domain.LLMResponse{}, g.err
	}
	g.usage.Requests++
	return domain.LLMResponse{Text: g.text, ProviderUsed: "fake", ProviderIndex: 1}, nil
}

func (g *fakeGenerator) Usage() domain.UsageStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.usage
}

func (g *fakeGenerator) answerRequests() []domain.LLMRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []domain.LLMRequest
	for _, r := range g.requests {
		if r.SystemPrompt != "" {
			out = append(out, r)
		}
	}
	return out
}

// mapPrompts is an in-memory prompt store.
type mapPrompts map[string]string

func (p mapPrompts) Load(name string) (string, error) {
	if v, ok := p[name]; ok {
		return v, nil
	}
	return "", domain.ErrNotFound
}

func (p mapPrompts) Reload() {}

func testPrompts() mapPrompts {
	return mapPrompts{
		driven.PromptPlatformSystem: "platform system prompt",
		driven.PromptEventSystem:    "event system prompt",
		driven.PromptDegradedSystem: "degraded system prompt",
	}
}

// recordingLog captures analytics entries.
type recordingLog struct {
	mu      sync.Mutex
	entries []domain.QueryLogEntry
}

func (l *recordingLog) Record(_ context.Context, e domain.QueryLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	return nil
}

func (l *recordingLog) Stats(_ context.Context, _ int) (domain.QueryStats, error) {
	return domain.QueryStats{}, nil
}

func (l *recordingLog) Close() error { return nil }

// --- Fixtures ---

func day(s string) time.Time {
	t, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func testPlatforms() []domain.PlatformRecord {
	return []domain.PlatformRecord{
		{
			ID:          "bwtt",
			Name:        "Black Women Talk Tech",
			Type:        domain.PlatformTypeTech,
			FocusArea:   "Black women founders in technology",
			Description: "A collective of black women tech founders building the next billion dollar businesses.",
			Website:     "https://www.blackwomentalktech.com",
			Tags:        []string{"black women", "founders", "tech"},
		},
		{
			ID:          "latinas-in-tech",
			Name:        "Latinas in Tech",
			Type:        domain.PlatformTypeTech,
			FocusArea:   "Latina women in technology careers",
			Description: "Connecting and empowering Latina women working in tech.",
			Website:     "https://latinasintech.org",
			Tags:        []string{"latina", "careers"},
		},
		{
			ID:          "outdoor-afro",
			Name:        "Outdoor Afro",
			Type:        domain.PlatformTypeOutdoor,
			FocusArea:   "Black people in nature and outdoor recreation",
			Description: "Celebrating and inspiring Black connections and leadership in nature.",
			Website:     "https://outdoorafro.org",
			Tags:        []string{"hiking", "nature"},
		},
	}
}

func testEvents() []domain.EventRecord {
	return []domain.EventRecord{
		{
			ID:          "bwtt-summit-2025",
			PlatformID:  "bwtt",
			Title:       "Black Women Talk Tech Roadmap Summit",
			Date:        day("2025-06-01"),
			Location:    "New York",
			URL:         "https://www.blackwomentalktech.com",
			Description: "Annual conference for black women tech founders.",
		},
		{
			ID:          "bwtt-summit-2026",
			PlatformID:  "bwtt",
			Title:       "Black Women Talk Tech Roadmap Summit 2026",
			Date:        day("2026-06-01"),
			Location:    "New York",
			URL:         "https://www.blackwomentalktech.com/summit-2026",
			Description: "Annual conference for black women tech founders.",
		},
		{
			ID:          "afro-hike-2024",
			PlatformID:  "outdoor-afro",
			Title:       "Outdoor Afro Spring Hike",
			Date:        day("2024-04-01"),
			Location:    "Oakland",
			URL:         "https://outdoorafro.org/events/spring-hike",
			Description: "A community hike event.",
		},
	}
}

// platformHit builds a store hit for a platform with the given score.
func platformHit(p domain.PlatformRecord, score float64) driven.VectorHit {
	return driven.VectorHit{ID: p.ID, Score: score, Metadata: domain.EncodeMetadata(p)}
}
