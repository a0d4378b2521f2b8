package domain

import "time"

// Document is a chapter of the textbook as ingested. Documents are
// replaced wholesale on re-ingestion, never patched in place.
type Document struct {
	ID      string
	RawText string
}

// Passage is a section-scoped slice of a document, the unit of retrieval.
type Passage struct {
	ID           string
	DocumentID   string
	SectionTitle string
	Text         string
	OrderIndex   int
}

// IndexEntry pairs a passage with its embedding for upload to the
// vector index.
type IndexEntry struct {
	Passage Passage
	Vector  []float32
}

// RetrievalHit is a query-scoped search result. Never persisted.
type RetrievalHit struct {
	PassageID    string
	DocumentID   string
	SectionTitle string
	Text         string
	Similarity   float64
}

// Source is a citation derived from a retrieval hit, returned alongside
// a generated answer.
type Source struct {
	DocumentID   string  `json:"document_id"`
	SectionTitle string  `json:"section_title"`
	Similarity   float64 `json:"similarity"`
}

// Answer is the result of the question-answering path.
type Answer struct {
	Text       string
	Sources    []Source
	TokensUsed int
}

// TransformKind identifies a content transformation.
type TransformKind string

const (
	TransformPersonalize TransformKind = "personalize"
	TransformTranslate   TransformKind = "translate"
)

// TransformKey addresses a cached transformation. At most one stored
// value exists per key at any time.
type TransformKey struct {
	DocumentID string
	Kind       TransformKind
	Parameter  string
}

// TransformEntry is a cached transformation result. Overwritten on
// regeneration, no history retained.
type TransformEntry struct {
	Key       TransformKey
	Value     string
	CreatedAt time.Time
}

// TransformResult is returned by the personalize/translate operations.
type TransformResult struct {
	Content    string
	Cached     bool
	TokensUsed int
}

// ChatRecord is a saved question/answer exchange.
type ChatRecord struct {
	ID        int64     `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Sources   []Source  `json:"sources"`
	CreatedAt time.Time `json:"created_at"`
}
