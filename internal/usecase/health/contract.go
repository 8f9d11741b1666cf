package health

import (
	"context"

	"github.com/nightcity/oracle/internal/usecase/corpus"
)

// CachePinger checks embedding cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CorpusLister reports which configured corpora are loaded.
type CorpusLister interface {
	Statuses() []corpus.Status
}
