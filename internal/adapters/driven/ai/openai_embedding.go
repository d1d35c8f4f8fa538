package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*OpenAIEmbedding)(nil)

const (
	defaultOpenAIBaseURL        = "https://api.openai.com/v1"
	defaultOpenAIEmbeddingModel = "text-embedding-3-small"
)

// knownDimensions lists output sizes of common OpenAI and Ollama models
var knownDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"nomic-embed-text":       768,
	"all-minilm":             384,
	"mxbai-embed-large":      1024,
}

// OpenAIEmbedding embeds through any endpoint that speaks the OpenAI
// embeddings API, including Ollama's /v1.
type OpenAIEmbedding struct {
	client     *openai.Client
	model      string
	baseURL    string
	dimensions int
	// shorten asks text-embedding-3 models to truncate server side
	shorten bool
}

// NewOpenAIEmbedding creates a client. dimensions overrides the known
// size of model and is required for models missing from the table.
func NewOpenAIEmbedding(apiKey, model, baseURL string, dimensions int) (*OpenAIEmbedding, error) {
	if model == "" {
		model = defaultOpenAIEmbeddingModel
	}
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	known, isKnown := knownDimensions[model]
	shorten := false
	switch {
	case dimensions > 0:
		shorten = isKnown && dimensions != known && strings.HasPrefix(model, "text-embedding-3")
	case isKnown:
		dimensions = known
	default:
		return nil, fmt.Errorf("%w: embedding dimensions unknown for model %q", domain.ErrConfiguration, model)
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL

	return &OpenAIEmbedding{
		client:     openai.NewClientWithConfig(cfg),
		model:      model,
		baseURL:    baseURL,
		dimensions: dimensions,
		shorten:    shorten,
	}, nil
}

// Embed sends all texts in one request and returns vectors in input order
func (e *OpenAIEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("%w: text %d is empty", domain.ErrValidation, i)
		}
	}

	req := openai.EmbeddingRequestStrings{
		Input:          texts,
		Model:          openai.EmbeddingModel(e.model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.shorten {
		req.Dimensions = e.dimensions
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("embeddings failed with status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("embeddings failed: %w", err)
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(out) {
			out[d.Index] = d.Embedding
		}
	}
	for i, v := range out {
		switch {
		case v == nil:
			return nil, fmt.Errorf("no embedding returned for text %d", i)
		case len(v) != e.dimensions:
			return nil, fmt.Errorf("embedding %d has %d dimensions, want %d", i, len(v), e.dimensions)
		}
	}
	return out, nil
}

// EmbedQuery embeds a single question
func (e *OpenAIEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *OpenAIEmbedding) Dimensions() int { return e.dimensions }

func (e *OpenAIEmbedding) Model() string { return e.model }

// HealthCheck embeds a probe string
func (e *OpenAIEmbedding) HealthCheck(ctx context.Context) error {
	_, err := e.EmbedQuery(ctx, "health check")
	return err
}

func (e *OpenAIEmbedding) Close() error { return nil }
