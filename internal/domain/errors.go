package domain

import "errors"

var (
	// ErrCorpusUnavailable signals a corpus that is not loaded. Callers continue with the others.
	ErrCorpusUnavailable = errors.New("corpus unavailable")
	// ErrSnapshotMismatch signals records and vectors of different lengths.
	ErrSnapshotMismatch = errors.New("snapshot records and vectors mismatch")
	// ErrMalformedSnapshot signals an unreadable snapshot blob.
	ErrMalformedSnapshot = errors.New("malformed snapshot")
	// ErrDimensionMismatch signals a query vector of the wrong dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidDistance signals a negative or NaN distance from an index.
	ErrInvalidDistance = errors.New("invalid distance")
	// ErrInvalidQuery signals a rejected query request.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEntityExtraction signals an entity extractor failure.
	ErrEntityExtraction = errors.New("entity extraction failed")
)
