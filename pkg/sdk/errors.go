package oracle

import "github.com/nightcity/oracle/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidQuery      = domain.ErrInvalidQuery
	ErrCorpusUnavailable = domain.ErrCorpusUnavailable
	ErrSnapshotMismatch  = domain.ErrSnapshotMismatch
	ErrMalformedSnapshot = domain.ErrMalformedSnapshot
	ErrDimensionMismatch = domain.ErrDimensionMismatch
)
