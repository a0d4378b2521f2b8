package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ragtutor/internal/domain"
)

// defaultUploadBatch bounds peak memory during bulk upload. A tuning
// parameter, not a correctness constraint.
const defaultUploadBatch = 32

// QdrantIndex is a minimal REST client to Qdrant. It assumes cosine
// distance for all collections.
type QdrantIndex struct {
	url       string
	apiKey    string
	batchSize int
	client    *http.Client
}

// QdrantConfig configures the Qdrant client.
type QdrantConfig struct {
	URL       string
	APIKey    string
	BatchSize int
	Timeout   time.Duration
}

func NewQdrantIndex(cfg QdrantConfig) *QdrantIndex {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultUploadBatch
	}
	return &QdrantIndex{
		url:       cfg.URL,
		apiKey:    cfg.APIKey,
		batchSize: batch,
		client:    &http.Client{Timeout: timeout},
	}
}

type collectionInfo struct {
	Result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

func (q *QdrantIndex) EnsureCollection(ctx context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", domain.ErrValidation)
	}

	existing, found, err := q.collectionDimension(ctx, name)
	if err != nil {
		return err
	}
	if found {
		if existing != dimension {
			return fmt.Errorf("%w: collection %q has dimension %d, requested %d",
				domain.ErrDimensionMismatch, name, existing, dimension)
		}
		return nil
	}

	return q.createCollection(ctx, name, dimension)
}

func (q *QdrantIndex) ReplaceAll(ctx context.Context, name string, dimension int, entries []domain.IndexEntry) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", domain.ErrValidation)
	}
	for _, e := range entries {
		if len(e.Vector) != dimension {
			return fmt.Errorf("%w: entry %s has dimension %d, expected %d",
				domain.ErrDimensionMismatch, e.Passage.ID, len(e.Vector), dimension)
		}
	}

	// Drop the prior collection so stale passages from removed or
	// edited documents cannot leak into search results.
	if err := q.deleteCollection(ctx, name); err != nil {
		return err
	}
	if err := q.createCollection(ctx, name, dimension); err != nil {
		return err
	}

	for i := 0; i < len(entries); i += q.batchSize {
		end := i + q.batchSize
		if end > len(entries) {
			end = len(entries)
		}
		if err := q.uploadBatch(ctx, name, entries[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (q *QdrantIndex) uploadBatch(ctx context.Context, name string, entries []domain.IndexEntry) error {
	points := make([]map[string]any, len(entries))
	for i, e := range entries {
		points[i] = map[string]any{
			"id":     e.Passage.ID,
			"vector": e.Vector,
			"payload": map[string]any{
				"document_id":   e.Passage.DocumentID,
				"section_title": e.Passage.SectionTitle,
				"text":          e.Passage.Text,
			},
		}
	}
	body := map[string]any{"points": points}
	return q.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", q.url, name), body)
}

func (q *QdrantIndex) Search(ctx context.Context, name string, vector []float32, topK int, threshold float64) ([]domain.RetrievalHit, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":          vector,
		"limit":           topK,
		"score_threshold": threshold,
		"with_payload":    true,
	}
	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}

	status, err := q.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", q.url, name), req, &resp)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		// Absent collection degrades to no hits.
		return nil, nil
	}

	hits := make([]domain.RetrievalHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hit := domain.RetrievalHit{Similarity: r.Score}
		if id, ok := r.ID.(string); ok {
			hit.PassageID = id
		}
		if v, ok := r.Payload["document_id"].(string); ok {
			hit.DocumentID = v
		}
		if v, ok := r.Payload["section_title"].(string); ok {
			hit.SectionTitle = v
		}
		if v, ok := r.Payload["text"].(string); ok {
			hit.Text = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Ping verifies the Qdrant endpoint is reachable.
func (q *QdrantIndex) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.url+"/collections", nil)
	if err != nil {
		return err
	}
	q.auth(req)
	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: qdrant unreachable: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: qdrant returned %s", domain.ErrUpstreamUnavailable, resp.Status)
	}
	return nil
}

func (q *QdrantIndex) collectionDimension(ctx context.Context, name string) (int, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/collections/%s", q.url, name), nil)
	if err != nil {
		return 0, false, err
	}
	q.auth(req)
	resp, err := q.client.Do(req)
	if err != nil {
		return 0, false, fmt.Errorf("%w: qdrant unreachable: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, false, nil
	}
	if resp.StatusCode >= 300 {
		return 0, false, fmt.Errorf("%w: qdrant GET collection failed: %s", domain.ErrUpstreamUnavailable, resp.Status)
	}

	var info collectionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return 0, false, fmt.Errorf("failed to decode collection info: %w", err)
	}
	return info.Result.Config.Params.Vectors.Size, true, nil
}

func (q *QdrantIndex) createCollection(ctx context.Context, name string, dimension int) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return q.putJSON(ctx, fmt.Sprintf("%s/collections/%s", q.url, name), body)
}

func (q *QdrantIndex) deleteCollection(ctx context.Context, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/collections/%s", q.url, name), nil)
	if err != nil {
		return err
	}
	q.auth(req)
	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: qdrant unreachable: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	// Deleting a missing collection is fine: the rebuild recreates it.
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("%w: qdrant DELETE collection failed: %s", domain.ErrUpstreamUnavailable, resp.Status)
	}
	return nil
}

func (q *QdrantIndex) auth(req *http.Request) {
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}
}

func (q *QdrantIndex) putJSON(ctx context.Context, url string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	q.auth(req)

	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: qdrant unreachable: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: qdrant PUT %s failed: %s: %s", domain.ErrUpstreamUnavailable, url, resp.Status, msg)
	}
	return nil
}

func (q *QdrantIndex) postJSON(ctx context.Context, url string, body, out any) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	q.auth(req)

	resp, err := q.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: qdrant unreachable: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, nil
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("%w: qdrant POST %s failed: %s: %s", domain.ErrUpstreamUnavailable, url, resp.Status, msg)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode qdrant response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
