package driven

import "context"

// EmbeddingService maps text to fixed-size vectors. Every vector it
// returns has exactly Dimensions() components.
type EmbeddingService interface {
	// Embed returns one vector per text, in input order. Empty or
	// whitespace-only texts fail with domain.ErrValidation before any
	// provider call.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a single question
	EmbedQuery(ctx context.Context, query string) ([]float32, error)

	Dimensions() int
	Model() string

	// HealthCheck embeds a probe string
	HealthCheck(ctx context.Context) error

	Close() error
}

// QueryEmbeddingCache remembers question vectors per model.
// A miss returns nil, nil.
type QueryEmbeddingCache interface {
	Get(ctx context.Context, model, query string) ([]float32, error)
	Set(ctx context.Context, model, query string, vector []float32) error
}
