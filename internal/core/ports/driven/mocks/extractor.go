package mocks

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// MockExtractor returns the raw bytes as text unless ExtractFn is set
type MockExtractor struct {
	ExtractFn func(raw []byte, filename string) (string, error)
}

func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

func (m *MockExtractor) Extract(ctx context.Context, raw []byte, filename string) (string, error) {
	if m.ExtractFn != nil {
		return m.ExtractFn(raw, filename)
	}
	return string(raw), nil
}

func (m *MockExtractor) SupportedTypes() []string {
	return []string{"text/plain", "application/pdf"}
}

func (m *MockExtractor) Extensions() []string {
	return []string{".txt", ".pdf"}
}

func (m *MockExtractor) Priority() int {
	return 50
}

// MockExtractorRegistry hands out a single extractor for every supported upload
type MockExtractorRegistry struct {
	GetFn     func(contentType, filename string) driven.TextExtractor
	extractor driven.TextExtractor
}

func NewMockExtractorRegistry(extractor driven.TextExtractor) *MockExtractorRegistry {
	if extractor == nil {
		extractor = NewMockExtractor()
	}
	return &MockExtractorRegistry{extractor: extractor}
}

func (m *MockExtractorRegistry) Get(contentType, filename string) driven.TextExtractor {
	if m.GetFn != nil {
		return m.GetFn(contentType, filename)
	}
	return m.extractor
}

func (m *MockExtractorRegistry) Register(extractor driven.TextExtractor) {
	m.extractor = extractor
}

func (m *MockExtractorRegistry) Supports(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range m.extractor.Extensions() {
		if e == ext {
			return true
		}
	}
	return false
}

func (m *MockExtractorRegistry) Extensions() []string {
	return m.extractor.Extensions()
}
