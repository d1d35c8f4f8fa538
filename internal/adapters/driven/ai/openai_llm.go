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

// Ensure OpenAILLM implements LLMService
var _ driven.LLMService = (*OpenAILLM)(nil)

const defaultOpenAIChatModel = "gpt-4o-mini"

// OpenAILLM generates answers through an OpenAI-compatible chat endpoint
type OpenAILLM struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	topP        float32
}

// NewOpenAILLM creates a chat client from settings
func NewOpenAILLM(settings domain.LLMSettings) (*OpenAILLM, error) {
	model := settings.Model
	if model == "" {
		model = defaultOpenAIChatModel
	}

	cfg := openai.DefaultConfig(settings.APIKey)
	if settings.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(settings.BaseURL, "/")
	}

	return &OpenAILLM{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		maxTokens:   settings.MaxTokens,
		temperature: settings.Temperature,
		topP:        settings.TopP,
	}, nil
}

// Generate sends the prompt as a single user message
func (l *OpenAILLM) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: l.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   l.maxTokens,
		Temperature: l.temperature,
		TopP:        l.topP,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("chat completion failed with status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (l *OpenAILLM) Model() string {
	return l.model
}

// Ping lists models to verify the endpoint and credentials
func (l *OpenAILLM) Ping(ctx context.Context) error {
	if _, err := l.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (l *OpenAILLM) Close() error {
	return nil
}
