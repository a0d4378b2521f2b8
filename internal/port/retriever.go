package port

import (
	"context"

	"ragtutor/internal/domain"
)

// Retriever answers similarity queries over indexed passages.
type Retriever interface {
	Retrieve(ctx context.Context, question string, topK int, threshold float64) ([]domain.RetrievalHit, error)
}
