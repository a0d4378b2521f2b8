package port

import (
	"context"

	"ragtutor/internal/domain"
)

// DocumentStore persists ingested documents.
type DocumentStore interface {
	PutDocument(ctx context.Context, doc domain.Document) error
	GetDocument(ctx context.Context, id string) (domain.Document, error)
	ListDocuments(ctx context.Context) ([]domain.Document, error)
}

// TransformCache is the content-addressed store for AI-adapted
// variants. Get misses return domain.ErrNotFound. Put is an
// unconditional upsert, atomic at the storage layer, last-write-wins.
type TransformCache interface {
	Get(ctx context.Context, key domain.TransformKey) (domain.TransformEntry, error)
	Put(ctx context.Context, key domain.TransformKey, value string) error
}

// ChatHistory records answered questions.
type ChatHistory interface {
	SaveExchange(ctx context.Context, rec domain.ChatRecord) (int64, error)
	RecentExchanges(ctx context.Context, limit int) ([]domain.ChatRecord, error)
}
