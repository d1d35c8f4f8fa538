package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.LLMService = (*MockLLMService)(nil)

// MockLLMService records prompts and returns a canned answer
type MockLLMService struct {
	mu      sync.Mutex
	prompts []string

	GenerateFn func(prompt string) (string, error)
	PingFn     func() error
}

func NewMockLLMService() *MockLLMService {
	return &MockLLMService{}
}

func (m *MockLLMService) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.GenerateFn != nil {
		return m.GenerateFn(prompt)
	}
	return "mock answer", nil
}

func (m *MockLLMService) Model() string {
	return "mock-llm-model"
}

func (m *MockLLMService) Ping(ctx context.Context) error {
	if m.PingFn != nil {
		return m.PingFn()
	}
	return nil
}

func (m *MockLLMService) Close() error {
	return nil
}

// Prompts returns every prompt passed to Generate
func (m *MockLLMService) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}
