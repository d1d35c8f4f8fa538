package driven

import "context"

// LLMService turns an assembled RAG prompt into answer text.
type LLMService interface {
	Generate(ctx context.Context, prompt string) (string, error)

	// Model names the generation model, e.g. "llama3.1"
	Model() string

	// Ping makes a minimal call so a dead endpoint is noticed at startup
	Ping(ctx context.Context) error

	Close() error
}
