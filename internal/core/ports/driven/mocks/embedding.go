package mocks

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*MockEmbeddingService)(nil)

// MockEmbeddingService embeds text by hashing its lowercased words into
// buckets and normalising the counts. Texts sharing words score higher
// under cosine similarity, which is enough for ranking tests.
type MockEmbeddingService struct {
	mu       sync.Mutex
	dims     int
	calls    int
	failNext bool
}

func NewMockEmbeddingService() *MockEmbeddingService {
	return &MockEmbeddingService{dims: 384}
}

func (m *MockEmbeddingService) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(); err != nil {
		return nil, err
	}

	out := make([][]float32, 0, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: text %d is empty", domain.ErrValidation, i)
		}
		out = append(out, bagOfWords(text, m.dims))
	}
	return out, nil
}

func (m *MockEmbeddingService) EmbedQuery(_ context.Context, query string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrValidation)
	}
	return bagOfWords(query, m.dims), nil
}

// begin counts the call and consumes a pending failure
func (m *MockEmbeddingService) begin() error {
	m.calls++
	if m.failNext {
		m.failNext = false
		return context.DeadlineExceeded
	}
	return nil
}

func (m *MockEmbeddingService) Dimensions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dims
}

func (m *MockEmbeddingService) Model() string                     { return "mock-bag-of-words" }
func (m *MockEmbeddingService) HealthCheck(context.Context) error { return nil }
func (m *MockEmbeddingService) Close() error                      { return nil }

// SetFailNext makes the next Embed or EmbedQuery call time out
func (m *MockEmbeddingService) SetFailNext(fail bool) {
	m.mu.Lock()
	m.failNext = fail
	m.mu.Unlock()
}

func (m *MockEmbeddingService) SetDimensions(n int) {
	m.mu.Lock()
	m.dims = n
	m.mu.Unlock()
}

// Calls counts Embed and EmbedQuery invocations, failed ones included
func (m *MockEmbeddingService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func bagOfWords(text string, dims int) []float32 {
	vec := make([]float32, dims)
	if dims == 0 {
		return vec
	}

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(dims)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm == 0 {
		// punctuation only; any fixed unit vector will do
		vec[0] = 1
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
