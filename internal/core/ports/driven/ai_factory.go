package driven

import "github.com/custodia-labs/sercha-rag/internal/core/domain"

// ModelFactory builds the model clients named in configuration. Both
// methods return nil, nil when no provider is selected.
type ModelFactory interface {
	CreateEmbeddingService(settings *domain.EmbeddingSettings) (EmbeddingService, error)
	CreateLLMService(settings *domain.LLMSettings) (LLMService, error)
}
