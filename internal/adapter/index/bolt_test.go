package index

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"ragtutor/internal/domain"
)

func newTestIndex(t *testing.T) *BoltIndex {
	t.Helper()
	idx, err := NewBoltIndex(filepath.Join(t.TempDir(), "vectors.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func entry(id, docID, section string, vector []float32) domain.IndexEntry {
	return domain.IndexEntry{
		Passage: domain.Passage{
			ID:           id,
			DocumentID:   docID,
			SectionTitle: section,
			Text:         "Section: " + section + "\n\nsome text",
		},
		Vector: vector,
	}
}

func TestEnsureCollectionIdempotent(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.EnsureCollection(ctx, "textbook", 3); err != nil {
		t.Fatal(err)
	}
	if err := idx.EnsureCollection(ctx, "textbook", 3); err != nil {
		t.Fatalf("second ensure with same dimension: %v", err)
	}

	err := idx.EnsureCollection(ctx, "textbook", 5)
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSearchOrderingAndThreshold(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	entries := []domain.IndexEntry{
		entry("p1", "ch1", "A", []float32{1, 0, 0}),
		entry("p2", "ch1", "B", []float32{0.9, 0.1, 0}),
		entry("p3", "ch2", "C", []float32{0, 1, 0}),
		entry("p4", "ch2", "D", []float32{0, 0, 1}),
	}
	if err := idx.ReplaceAll(ctx, "textbook", 3, entries); err != nil {
		t.Fatal(err)
	}

	hits, err := idx.Search(ctx, "textbook", []float32{1, 0, 0}, 10, 0.5)
	if err != nil {
		t.Fatal(err)
	}

	if len(hits) != 2 {
		t.Fatalf("expected 2 hits above threshold, got %d", len(hits))
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Similarity > hits[i-1].Similarity {
			t.Error("hits not sorted by descending similarity")
		}
	}
	for _, h := range hits {
		if h.Similarity < 0.5 {
			t.Errorf("hit %s below threshold: %f", h.PassageID, h.Similarity)
		}
	}
	if hits[0].PassageID != "p1" {
		t.Errorf("expected p1 first, got %s", hits[0].PassageID)
	}

	// topK truncation.
	hits, err = idx.Search(ctx, "textbook", []float32{1, 0, 0}, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected topK=1 to truncate, got %d hits", len(hits))
	}
}

func TestSearchMissingCollection(t *testing.T) {
	idx := newTestIndex(t)

	hits, err := idx.Search(context.Background(), "nope", []float32{1, 0, 0}, 5, 0.7)
	if err != nil {
		t.Fatalf("search on missing collection should not error: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits, got %d", len(hits))
	}
}

func TestReplaceAllDropsStaleEntries(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	old := []domain.IndexEntry{entry("stale", "ch1", "Old", []float32{1, 0, 0})}
	if err := idx.ReplaceAll(ctx, "textbook", 3, old); err != nil {
		t.Fatal(err)
	}

	fresh := []domain.IndexEntry{entry("fresh", "ch1", "New", []float32{1, 0, 0})}
	if err := idx.ReplaceAll(ctx, "textbook", 3, fresh); err != nil {
		t.Fatal(err)
	}

	hits, err := idx.Search(ctx, "textbook", []float32{1, 0, 0}, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].PassageID != "fresh" {
		t.Fatalf("stale passage leaked into results: %+v", hits)
	}
}

func TestReplaceAllDimensionCheck(t *testing.T) {
	idx := newTestIndex(t)

	bad := []domain.IndexEntry{entry("p1", "ch1", "A", []float32{1, 0})}
	err := idx.ReplaceAll(context.Background(), "textbook", 3, bad)
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.db")
	ctx := context.Background()

	idx, err := NewBoltIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	entries := []domain.IndexEntry{entry("p1", "ch1", "A", []float32{0, 1, 0})}
	if err := idx.ReplaceAll(ctx, "textbook", 3, entries); err != nil {
		t.Fatal(err)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewBoltIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	hits, err := reopened.Search(ctx, "textbook", []float32{0, 1, 0}, 5, 0.9)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].DocumentID != "ch1" {
		t.Fatalf("expected persisted hit, got %+v", hits)
	}
}
