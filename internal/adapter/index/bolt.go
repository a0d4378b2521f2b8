// Package index provides vector index implementations: a local
// bbolt-backed index and a Qdrant REST client, both answering top-k
// cosine-similarity queries over named collections.
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.etcd.io/bbolt"

	"ragtutor/internal/domain"
)

var (
	bucketMeta    = []byte("collections")
	vectorsPrefix = "vectors:"
)

// BoltIndex persists vectors in BoltDB and searches an in-memory copy
// with brute-force cosine similarity. Suitable for a single-process
// deployment or local development; the Qdrant adapter covers the
// hosted case.
type BoltIndex struct {
	db *bbolt.DB

	mu          sync.RWMutex
	collections map[string]*collection
}

type collection struct {
	dimension int
	entries   map[string]storedEntry
}

type storedEntry struct {
	Vector       []float32 `json:"v"`
	DocumentID   string    `json:"doc"`
	SectionTitle string    `json:"section"`
	Text         string    `json:"text"`
}

type collectionMeta struct {
	Dimension int `json:"dimension"`
}

// NewBoltIndex opens (or creates) the index database at path and
// loads existing collections into memory.
func NewBoltIndex(path string) (*BoltIndex, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector db: %w", err)
	}

	idx := &BoltIndex{
		db:          db,
		collections: make(map[string]*collection),
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketMeta)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create meta bucket: %w", err)
	}

	if err := idx.load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load collections: %w", err)
	}

	return idx, nil
}

func (x *BoltIndex) Close() error {
	return x.db.Close()
}

func (x *BoltIndex) load() error {
	return x.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		return meta.ForEach(func(name, v []byte) error {
			var cm collectionMeta
			if err := json.Unmarshal(v, &cm); err != nil {
				return nil // skip corrupted entries
			}
			col := &collection{
				dimension: cm.Dimension,
				entries:   make(map[string]storedEntry),
			}
			b := tx.Bucket(vectorBucket(string(name)))
			if b != nil {
				b.ForEach(func(k, v []byte) error {
					var entry storedEntry
					if err := json.Unmarshal(v, &entry); err != nil {
						return nil
					}
					col.entries[string(k)] = entry
					return nil
				})
			}
			x.collections[string(name)] = col
			return nil
		})
	})
}

func (x *BoltIndex) EnsureCollection(_ context.Context, name string, dimension int) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.ensureLocked(name, dimension)
}

func (x *BoltIndex) ensureLocked(name string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", domain.ErrValidation)
	}
	if col, ok := x.collections[name]; ok {
		if col.dimension != dimension {
			return fmt.Errorf("%w: collection %q has dimension %d, requested %d",
				domain.ErrDimensionMismatch, name, col.dimension, dimension)
		}
		return nil
	}

	err := x.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(vectorBucket(name)); err != nil {
			return err
		}
		data, err := json.Marshal(collectionMeta{Dimension: dimension})
		if err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put([]byte(name), data)
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %q: %w", name, err)
	}

	x.collections[name] = &collection{
		dimension: dimension,
		entries:   make(map[string]storedEntry),
	}
	return nil
}

// ReplaceAll drops the collection and rebuilds it from entries. The
// rebuild happens in a single transaction, so a failure leaves the
// prior snapshot untouched rather than a partially-replaced index.
func (x *BoltIndex) ReplaceAll(_ context.Context, name string, dimension int, entries []domain.IndexEntry) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", domain.ErrValidation)
	}

	fresh := make(map[string]storedEntry, len(entries))
	for _, e := range entries {
		if len(e.Vector) != dimension {
			return fmt.Errorf("%w: entry %s has dimension %d, expected %d",
				domain.ErrDimensionMismatch, e.Passage.ID, len(e.Vector), dimension)
		}
		fresh[e.Passage.ID] = storedEntry{
			Vector:       e.Vector,
			DocumentID:   e.Passage.DocumentID,
			SectionTitle: e.Passage.SectionTitle,
			Text:         e.Passage.Text,
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	err := x.db.Update(func(tx *bbolt.Tx) error {
		bucket := vectorBucket(name)
		if tx.Bucket(bucket) != nil {
			if err := tx.DeleteBucket(bucket); err != nil {
				return err
			}
		}
		b, err := tx.CreateBucket(bucket)
		if err != nil {
			return err
		}
		for id, entry := range fresh {
			data, err := json.Marshal(entry)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(id), data); err != nil {
				return err
			}
		}
		data, err := json.Marshal(collectionMeta{Dimension: dimension})
		if err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put([]byte(name), data)
	})
	if err != nil {
		return fmt.Errorf("failed to rebuild collection %q: %w", name, err)
	}

	x.collections[name] = &collection{
		dimension: dimension,
		entries:   fresh,
	}
	return nil
}

// Search scores every stored vector against the query. An absent or
// empty collection yields no hits rather than an error, so retrieval
// degrades gracefully.
func (x *BoltIndex) Search(_ context.Context, name string, vector []float32, topK int, threshold float64) ([]domain.RetrievalHit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	col, ok := x.collections[name]
	if !ok || len(col.entries) == 0 {
		return nil, nil
	}
	if len(vector) != col.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, collection %q has %d",
			domain.ErrDimensionMismatch, len(vector), name, col.dimension)
	}

	hits := make([]domain.RetrievalHit, 0, len(col.entries))
	for id, entry := range col.entries {
		sim := cosineSimilarity(vector, entry.Vector)
		if sim < threshold {
			continue
		}
		hits = append(hits, domain.RetrievalHit{
			PassageID:    id,
			DocumentID:   entry.DocumentID,
			SectionTitle: entry.SectionTitle,
			Text:         entry.Text,
			Similarity:   sim,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}

	return hits, nil
}

func vectorBucket(name string) []byte {
	return []byte(vectorsPrefix + name)
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
