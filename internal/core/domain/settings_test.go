package domain

import (
	"errors"
	"testing"
)

func TestAIProviderConstants(t *testing.T) {
	tests := []struct {
		provider AIProvider
		expected string
	}{
		{AIProviderNone, ""},
		{AIProviderOpenAI, "openai"},
		{AIProviderOllama, "ollama"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if string(tt.provider) != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, string(tt.provider))
			}
		})
	}
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings EmbeddingSettings
		expected bool
	}{
		{"no provider", EmbeddingSettings{}, false},
		{"model without provider", EmbeddingSettings{Model: "nomic-embed-text"}, false},
		{"ollama", EmbeddingSettings{Provider: AIProviderOllama, Model: "nomic-embed-text"}, true},
		{"openai", EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk-test"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.settings.IsConfigured(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestLLMSettings_IsConfigured(t *testing.T) {
	none := LLMSettings{Model: "llama3.1"}
	if none.IsConfigured() {
		t.Error("expected settings without provider to be unconfigured")
	}

	set := LLMSettings{Provider: AIProviderOllama, Model: "llama3.1"}
	if !set.IsConfigured() {
		t.Error("expected settings with provider to be configured")
	}
}

func TestChunkStrategyConstants(t *testing.T) {
	if ChunkStrategyWindow != "window" {
		t.Errorf("unexpected window strategy %q", ChunkStrategyWindow)
	}
	if ChunkStrategyParagraph != "paragraph" {
		t.Errorf("unexpected paragraph strategy %q", ChunkStrategyParagraph)
	}
}

func TestRetrievalSettings_ParagraphStrategyValid(t *testing.T) {
	s := DefaultRetrievalSettings()
	s.ChunkStrategy = ChunkStrategyParagraph
	if err := s.Validate(); err != nil {
		t.Errorf("expected paragraph strategy to validate, got %v", err)
	}
}

func TestRetrievalSettings_MinScoreBounds(t *testing.T) {
	tests := []struct {
		minScore float32
		valid    bool
	}{
		{0, true},
		{0.35, true},
		{1, true},
		{-0.2, false},
		{-1, false},
		{1.5, false},
	}

	for _, tt := range tests {
		s := DefaultRetrievalSettings()
		s.MinScore = tt.minScore
		err := s.Validate()
		if tt.valid && err != nil {
			t.Errorf("min_score %v: unexpected error %v", tt.minScore, err)
		}
		if !tt.valid && !errors.Is(err, ErrConfiguration) {
			t.Errorf("min_score %v: expected a configuration error, got %v", tt.minScore, err)
		}
	}
}
