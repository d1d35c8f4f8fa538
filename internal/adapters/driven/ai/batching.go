package ai

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*BatchingEmbedding)(nil)

const (
	DefaultBatchSize   = 64
	DefaultConcurrency = 4
)

// BatchingEmbedding splits large Embed calls into fixed-size requests and
// runs a bounded number of them at once. Output order matches input order.
type BatchingEmbedding struct {
	driven.EmbeddingService
	batchSize   int
	concurrency int
}

func NewBatchingEmbedding(inner driven.EmbeddingService, batchSize, concurrency int) *BatchingEmbedding {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &BatchingEmbedding{EmbeddingService: inner, batchSize: batchSize, concurrency: concurrency}
}

func (b *BatchingEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) <= b.batchSize {
		return b.EmbeddingService.Embed(ctx, texts)
	}

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for start := 0; start < len(texts); start += b.batchSize {
		end := min(start+b.batchSize, len(texts))
		g.Go(func() error {
			vecs, err := b.EmbeddingService.Embed(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("batch %d-%d: %w", start, end, err)
			}
			if len(vecs) != end-start {
				return fmt.Errorf("batch %d-%d: got %d embeddings", start, end, len(vecs))
			}
			copy(out[start:end], vecs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
