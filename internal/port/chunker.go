package port

import "ragtutor/internal/domain"

type Chunker interface {
	Chunk(documentID, rawText string) ([]domain.Passage, error)
}
