package retrieval

import (
	"context"

	"github.com/nightcity/oracle/internal/domain"
	"github.com/nightcity/oracle/internal/snapshot"
)

// CorpusReader resolves the live snapshot of a corpus.
type CorpusReader interface {
	Get(corpus domain.CorpusName) (*snapshot.Snapshot, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// EntityExtractor finds named entities in the query text.
type EntityExtractor interface {
	Extract(ctx context.Context, text string) (domain.EntitySet, error)
}
