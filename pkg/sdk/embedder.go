package oracle

import (
	"context"
	"fmt"

	"github.com/nightcity/oracle/internal/domain"
)

// Embedder converts the question to a vector in the space the corpora were built in.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// EntityExtractor finds named entities in a question. Mentions are compared
// case-insensitively with the entities stored on each document.
type EntityExtractor interface {
	Extract(ctx context.Context, text string) ([]string, error)
}

// embedderAdapter wraps the public Embedder to satisfy domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

type extractorAdapter struct {
	inner EntityExtractor
}

func (a *extractorAdapter) Extract(ctx context.Context, text string) (domain.EntitySet, error) {
	mentions, err := a.inner.Extract(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	return domain.NewEntitySet(mentions...), nil
}
