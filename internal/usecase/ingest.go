package usecase

import (
	"context"
	"fmt"
	"strings"

	"ragtutor/internal/domain"
	"ragtutor/internal/logger"
	"ragtutor/internal/port"
)

// ProgressFunc reports ingestion progress. processed counts documents
// already chunked and embedded out of total.
type ProgressFunc func(processed, total int)

// IngestUseCase handles corpus ingestion: chunking, embedding and
// wholesale index rebuilds.
type IngestUseCase struct {
	chunker    port.Chunker
	embedder   port.Embedder
	index      port.VectorIndex
	docs       port.DocumentStore
	collection string
	progress   ProgressFunc
}

// NewIngestUseCase creates a new ingest use case.
func NewIngestUseCase(
	chunker port.Chunker,
	embedder port.Embedder,
	index port.VectorIndex,
	docs port.DocumentStore,
	collection string,
) *IngestUseCase {
	return &IngestUseCase{
		chunker:    chunker,
		embedder:   embedder,
		index:      index,
		docs:       docs,
		collection: collection,
	}
}

// SetProgress installs a progress callback invoked during rebuilds.
func (u *IngestUseCase) SetProgress(fn ProgressFunc) {
	u.progress = fn
}

// IngestResult contains the results of an ingestion operation.
type IngestResult struct {
	DocumentsIngested int
	PassagesIndexed   int
}

// Ingest stores a single document and rebuilds the index from every
// stored document. The index has no incremental update path, so a
// re-ingest of one document triggers a full rebuild.
func (u *IngestUseCase) Ingest(ctx context.Context, documentID, rawText string) (*IngestResult, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, fmt.Errorf("%w: document id is empty", domain.ErrValidation)
	}
	if strings.TrimSpace(rawText) == "" {
		return nil, fmt.Errorf("%w: document %q has no content", domain.ErrValidation, documentID)
	}

	if err := u.docs.PutDocument(ctx, domain.Document{ID: documentID, RawText: rawText}); err != nil {
		return nil, fmt.Errorf("failed to store document %q: %w", documentID, err)
	}

	indexed, err := u.rebuild(ctx)
	if err != nil {
		return nil, err
	}
	return &IngestResult{DocumentsIngested: 1, PassagesIndexed: indexed}, nil
}

// IngestCorpus stores every document and rebuilds the index once.
// Validation failures abort before anything is written.
func (u *IngestUseCase) IngestCorpus(ctx context.Context, docs []domain.Document) (*IngestResult, error) {
	for _, d := range docs {
		if strings.TrimSpace(d.ID) == "" {
			return nil, fmt.Errorf("%w: document id is empty", domain.ErrValidation)
		}
		if strings.TrimSpace(d.RawText) == "" {
			return nil, fmt.Errorf("%w: document %q has no content", domain.ErrValidation, d.ID)
		}
	}

	for _, d := range docs {
		if err := u.docs.PutDocument(ctx, d); err != nil {
			return nil, fmt.Errorf("failed to store document %q: %w", d.ID, err)
		}
	}

	indexed, err := u.rebuild(ctx)
	if err != nil {
		return nil, err
	}
	return &IngestResult{DocumentsIngested: len(docs), PassagesIndexed: indexed}, nil
}

// Rebuild re-chunks and re-embeds every stored document and replaces
// the collection contents. Exposed so the CLI can force a rebuild
// without ingesting anything new.
func (u *IngestUseCase) Rebuild(ctx context.Context) (*IngestResult, error) {
	indexed, err := u.rebuild(ctx)
	if err != nil {
		return nil, err
	}
	return &IngestResult{PassagesIndexed: indexed}, nil
}

func (u *IngestUseCase) rebuild(ctx context.Context) (int, error) {
	docs, err := u.docs.ListDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list documents: %w", err)
	}

	var passages []domain.Passage
	for i, d := range docs {
		chunks, err := u.chunker.Chunk(d.ID, d.RawText)
		if err != nil {
			return 0, fmt.Errorf("failed to chunk document %q: %w", d.ID, err)
		}
		passages = append(passages, chunks...)
		u.report(i+1, len(docs))
	}

	if len(passages) == 0 {
		logger.Warn("no passages produced, replacing with empty collection")
	}

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	vectors, err := u.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed passages: %w", err)
	}
	if len(vectors) != len(passages) {
		return 0, fmt.Errorf("%w: embedder returned %d vectors for %d passages",
			domain.ErrModelUnavailable, len(vectors), len(passages))
	}

	entries := make([]domain.IndexEntry, len(passages))
	for i, p := range passages {
		entries[i] = domain.IndexEntry{Passage: p, Vector: vectors[i]}
	}

	if err := u.index.ReplaceAll(ctx, u.collection, u.embedder.Dimension(), entries); err != nil {
		return 0, fmt.Errorf("failed to rebuild index: %w", err)
	}

	logger.Info("indexed %d passages from %d documents into %q", len(entries), len(docs), u.collection)
	return len(entries), nil
}

func (u *IngestUseCase) report(processed, total int) {
	if u.progress != nil {
		u.progress(processed, total)
	}
}
