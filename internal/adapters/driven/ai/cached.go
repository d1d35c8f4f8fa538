package ai

import (
	"context"
	"log/slog"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*CachedEmbedding)(nil)

// CachedEmbedding serves repeated query embeddings from a cache.
// Cache failures are logged and never fail the query.
type CachedEmbedding struct {
	driven.EmbeddingService
	cache  driven.QueryEmbeddingCache
	logger *slog.Logger
}

func NewCachedEmbedding(inner driven.EmbeddingService, cache driven.QueryEmbeddingCache, logger *slog.Logger) *CachedEmbedding {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedEmbedding{EmbeddingService: inner, cache: cache, logger: logger}
}

func (c *CachedEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	model := c.Model()

	vec, err := c.cache.Get(ctx, model, query)
	if err != nil {
		c.logger.Warn("query embedding cache read failed", "error", err)
	} else if len(vec) == c.Dimensions() {
		return vec, nil
	}

	vec, err = c.EmbeddingService.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, model, query, vec); err != nil {
		c.logger.Warn("query embedding cache write failed", "error", err)
	}
	return vec, nil
}
