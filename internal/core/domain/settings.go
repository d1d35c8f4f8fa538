package domain

import (
	"fmt"
	"time"
)

// AIProvider identifies the AI/embedding provider
type AIProvider string

const (
	AIProviderNone   AIProvider = ""
	AIProviderOpenAI AIProvider = "openai"
	AIProviderOllama AIProvider = "ollama" // OpenAI-compatible endpoints served by Ollama
)

// ChunkStrategy selects how documents are split into fragments
type ChunkStrategy string

const (
	ChunkStrategyWindow    ChunkStrategy = "window"    // sliding window with boundary refinement
	ChunkStrategyParagraph ChunkStrategy = "paragraph" // merge whole paragraphs
)

// EmbeddingSettings configures the embedding provider
type EmbeddingSettings struct {
	Provider    AIProvider `json:"provider" yaml:"provider"`
	APIKey      string     `json:"-" yaml:"api_key"`
	Model       string     `json:"model" yaml:"model"`
	BaseURL     string     `json:"base_url,omitempty" yaml:"base_url"`
	Dimensions  int        `json:"dimensions,omitempty" yaml:"dimensions"` // required for models without a known size
	BatchSize   int        `json:"batch_size" yaml:"batch_size"`
	Concurrency int        `json:"concurrency" yaml:"concurrency"`
}

// IsConfigured returns true if a provider is selected
func (s *EmbeddingSettings) IsConfigured() bool {
	return s.Provider != AIProviderNone
}

// LLMSettings configures the generation provider
type LLMSettings struct {
	Provider    AIProvider `json:"provider" yaml:"provider"`
	APIKey      string     `json:"-" yaml:"api_key"`
	Model       string     `json:"model" yaml:"model"`
	BaseURL     string     `json:"base_url,omitempty" yaml:"base_url"`
	MaxTokens   int        `json:"max_tokens" yaml:"max_tokens"`
	Temperature float32    `json:"temperature" yaml:"temperature"`
	TopP        float32    `json:"top_p" yaml:"top_p"`
}

// IsConfigured returns true if a provider is selected
func (s *LLMSettings) IsConfigured() bool {
	return s.Provider != AIProviderNone
}

// RetrievalSettings tunes chunking, ranking and response shaping
type RetrievalSettings struct {
	ChunkSize        int           `json:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap     int           `json:"chunk_overlap" yaml:"chunk_overlap"`
	ChunkStrategy    ChunkStrategy `json:"chunk_strategy" yaml:"chunk_strategy"`
	TopK             int           `json:"top_k_default" yaml:"top_k"`
	MaxTopK          int           `json:"max_top_k" yaml:"max_top_k"`
	MinScore         float32       `json:"min_score" yaml:"min_score"`
	MinContentLength int           `json:"min_content_length" yaml:"min_content_length"`
	PreviewLength    int           `json:"preview_length" yaml:"preview_length"`
	ScorePrecision   int           `json:"score_precision" yaml:"score_precision"`
	ProviderTimeout  time.Duration `json:"provider_timeout" yaml:"provider_timeout" swaggertype:"integer"`
}

// DefaultRetrievalSettings returns the defaults used when nothing is configured
func DefaultRetrievalSettings() RetrievalSettings {
	return RetrievalSettings{
		ChunkSize:        500,
		ChunkOverlap:     50,
		ChunkStrategy:    ChunkStrategyWindow,
		TopK:             5,
		MaxTopK:          20,
		MinScore:         0,
		MinContentLength: 100,
		PreviewLength:    500,
		ScorePrecision:   4,
		ProviderTimeout:  60 * time.Second,
	}
}

// Validate checks the settings for values no component can work with
func (s RetrievalSettings) Validate() error {
	if s.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrConfiguration, s.ChunkSize)
	}
	if s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize {
		return fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", ErrConfiguration, s.ChunkSize, s.ChunkOverlap)
	}
	switch s.ChunkStrategy {
	case ChunkStrategyWindow, ChunkStrategyParagraph:
	default:
		return fmt.Errorf("%w: unknown chunk strategy %q", ErrConfiguration, s.ChunkStrategy)
	}
	if s.TopK <= 0 || s.MaxTopK < s.TopK {
		return fmt.Errorf("%w: top_k must be in [1, max_top_k], got %d/%d", ErrConfiguration, s.TopK, s.MaxTopK)
	}
	// 0 disables the threshold, so a negative one could never apply
	if s.MinScore < 0 || s.MinScore > 1 {
		return fmt.Errorf("%w: min_score must be in [0, 1], got %v", ErrConfiguration, s.MinScore)
	}
	return nil
}

// ClampTopK applies the default and the upper bound to a requested result count
func (s RetrievalSettings) ClampTopK(k int) int {
	if k <= 0 {
		return s.TopK
	}
	if s.MaxTopK > 0 && k > s.MaxTopK {
		return s.MaxTopK
	}
	return k
}
