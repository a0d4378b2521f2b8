package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ragtutor/internal/domain"
	"ragtutor/internal/port"
)

// fakeEmbedder produces a fixed-dimension vector derived from the
// text length, so identical texts embed identically.
type fakeEmbedder struct {
	dim   int
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, f.dim)
		for j := range v {
			v[j] = float32(len(t)%7) + float32(j)
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int    { return f.dim }
func (f *fakeEmbedder) ModelName() string { return "fake-embedder" }

// fakeIndex records ReplaceAll calls and serves canned search hits.
type fakeIndex struct {
	mu       sync.Mutex
	entries  map[string][]domain.IndexEntry
	hits     []domain.RetrievalHit
	searches int
	err      error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{entries: make(map[string][]domain.IndexEntry)}
}

func (f *fakeIndex) EnsureCollection(ctx context.Context, name string, dimension int) error {
	return f.err
}

func (f *fakeIndex) ReplaceAll(ctx context.Context, name string, dimension int, entries []domain.IndexEntry) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[name] = append([]domain.IndexEntry(nil), entries...)
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, name string, vector []float32, topK int, threshold float64) ([]domain.RetrievalHit, error) {
	f.searches++
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

// fakeGenerator returns a canned completion and records prompts.
type fakeGenerator struct {
	configured bool
	text       string
	inTokens   int
	outTokens  int
	err        error

	calls   int
	systems []string
	users   []string
}

func (f *fakeGenerator) Generate(ctx context.Context, system, user string, maxTokens int) (port.GenerateResult, error) {
	f.calls++
	f.systems = append(f.systems, system)
	f.users = append(f.users, user)
	if !f.configured {
		return port.GenerateResult{}, fmt.Errorf("%w: no key", domain.ErrNotConfigured)
	}
	if f.err != nil {
		return port.GenerateResult{}, f.err
	}
	return port.GenerateResult{Text: f.text, InputTokens: f.inTokens, OutputTokens: f.outTokens}, nil
}

func (f *fakeGenerator) Ping(ctx context.Context) error {
	if !f.configured {
		return domain.ErrNotConfigured
	}
	return nil
}

func (f *fakeGenerator) Configured() bool { return f.configured }
func (f *fakeGenerator) ModelName() string { return "fake-generator" }

// fakeDocStore is an in-memory port.DocumentStore.
type fakeDocStore struct {
	mu   sync.Mutex
	docs map[string]domain.Document
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{docs: make(map[string]domain.Document)}
}

func (f *fakeDocStore) PutDocument(ctx context.Context, doc domain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeDocStore) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return domain.Document{}, domain.ErrNotFound
	}
	return doc, nil
}

func (f *fakeDocStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Document, 0, len(f.docs))
	for _, d := range f.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// fakeCache is an in-memory port.TransformCache.
type fakeCache struct {
	mu      sync.Mutex
	entries map[domain.TransformKey]string
	gets    int
	puts    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[domain.TransformKey]string)}
}

func (f *fakeCache) Get(ctx context.Context, key domain.TransformKey) (domain.TransformEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	v, ok := f.entries[key]
	if !ok {
		return domain.TransformEntry{}, domain.ErrNotFound
	}
	return domain.TransformEntry{Key: key, Value: v}, nil
}

func (f *fakeCache) Put(ctx context.Context, key domain.TransformKey, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	f.entries[key] = value
	return nil
}

// fakeHistory records exchanges in memory.
type fakeHistory struct {
	mu      sync.Mutex
	records []domain.ChatRecord
	err     error
}

func (f *fakeHistory) SaveExchange(ctx context.Context, rec domain.ChatRecord) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	rec.ID = int64(len(f.records) + 1)
	f.records = append(f.records, rec)
	return rec.ID, nil
}

func (f *fakeHistory) RecentExchanges(ctx context.Context, limit int) ([]domain.ChatRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit <= 0 || limit > len(f.records) {
		limit = len(f.records)
	}
	out := make([]domain.ChatRecord, 0, limit)
	for i := len(f.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.records[i])
	}
	return out, nil
}
