package port

import (
	"context"

	"ragtutor/internal/domain"
)

// VectorIndex stores passage embeddings and answers nearest-neighbor
// queries with cosine similarity.
type VectorIndex interface {
	// EnsureCollection creates the named collection if it does not
	// exist. A no-op when it already exists with the same dimension;
	// returns domain.ErrDimensionMismatch when the existing dimension
	// differs.
	EnsureCollection(ctx context.Context, name string, dimension int) error

	// ReplaceAll rebuilds the collection from scratch: the prior
	// collection is dropped and recreated before entries are uploaded,
	// so stale passages cannot leak into search results.
	ReplaceAll(ctx context.Context, name string, dimension int, entries []domain.IndexEntry) error

	// Search returns up to topK hits with similarity >= threshold,
	// ordered by descending similarity. An absent or empty collection
	// yields an empty slice, not an error.
	Search(ctx context.Context, name string, vector []float32, topK int, threshold float64) ([]domain.RetrievalHit, error)
}
