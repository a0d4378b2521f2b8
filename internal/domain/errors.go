package domain

import "errors"

// Sentinel errors for the failure taxonomy. Callers classify with
// errors.Is and decide whether to degrade or propagate.
var (
	// ErrNotConfigured means a required credential or endpoint is
	// missing. The question-answering path converts this into a
	// user-visible placeholder answer rather than failing.
	ErrNotConfigured = errors.New("not configured")

	// ErrUpstreamUnavailable means the vector store or generation
	// provider is unreachable or timed out. Surfaced to the caller,
	// never retried inside the core.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrModelUnavailable means the embedding model could not be
	// used. Fatal to any embedding-dependent operation.
	ErrModelUnavailable = errors.New("embedding model unavailable")

	// ErrNotFound is a cache or store miss. Normal control flow,
	// not a failure.
	ErrNotFound = errors.New("not found")

	// ErrValidation means malformed input was rejected at ingestion.
	ErrValidation = errors.New("invalid input")

	// ErrDimensionMismatch means a collection already exists with a
	// different vector dimension than requested.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
