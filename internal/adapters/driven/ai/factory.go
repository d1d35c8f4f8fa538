package ai

import (
	"fmt"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.ModelFactory = (*Factory)(nil)

const defaultOllamaBaseURL = "http://localhost:11434/v1"

// Factory maps configured providers onto the OpenAI-compatible clients.
// Ollama speaks the same protocol on its /v1 endpoint and needs no key.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

// endpoint checks provider-specific requirements and returns the base
// URL to use, empty meaning the client library default.
func endpoint(provider domain.AIProvider, apiKey, baseURL string) (string, error) {
	switch provider {
	case domain.AIProviderOpenAI:
		if apiKey == "" {
			return "", fmt.Errorf("%w: OpenAI API key is required", domain.ErrConfiguration)
		}
		return baseURL, nil
	case domain.AIProviderOllama:
		if baseURL == "" {
			return defaultOllamaBaseURL, nil
		}
		return baseURL, nil
	}
	return "", fmt.Errorf("%w: %s", domain.ErrInvalidProvider, provider)
}

// CreateEmbeddingService returns the provider client wrapped for batching
func (f *Factory) CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	baseURL, err := endpoint(settings.Provider, settings.APIKey, settings.BaseURL)
	if err != nil {
		return nil, err
	}
	client, err := NewOpenAIEmbedding(settings.APIKey, settings.Model, baseURL, settings.Dimensions)
	if err != nil {
		return nil, err
	}
	return NewBatchingEmbedding(client, settings.BatchSize, settings.Concurrency), nil
}

func (f *Factory) CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	resolved := *settings
	baseURL, err := endpoint(resolved.Provider, resolved.APIKey, resolved.BaseURL)
	if err != nil {
		return nil, err
	}
	resolved.BaseURL = baseURL
	return NewOpenAILLM(resolved)
}
