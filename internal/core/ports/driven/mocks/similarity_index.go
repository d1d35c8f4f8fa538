package mocks

import (
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.SimilarityIndex = (*MockSimilarityIndex)(nil)

// MockSimilarityIndex scores by raw dot product over unnormalised vectors.
// It is only meant to exercise orchestration, not ranking.
type MockSimilarityIndex struct {
	mu        sync.Mutex
	dimension int
	vectors   [][]float32
	metadata  []domain.EntryMetadata
	saves     int

	AddFn    func(vectors [][]float32, metadata []domain.EntryMetadata) error
	SearchFn func(query []float32, opts domain.SearchOptions) ([]domain.SearchResult, error)
	SaveFn   func() error
}

func NewMockSimilarityIndex(dimension int) *MockSimilarityIndex {
	return &MockSimilarityIndex{dimension: dimension}
}

func (m *MockSimilarityIndex) Add(vectors [][]float32, metadata []domain.EntryMetadata) (int, error) {
	if m.AddFn != nil {
		if err := m.AddFn(vectors, metadata); err != nil {
			return 0, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(vectors) != len(metadata) {
		return len(m.vectors), domain.ErrValidation
	}
	for _, v := range vectors {
		if len(v) != m.dimension {
			return len(m.vectors), domain.ErrValidation
		}
	}
	m.vectors = append(m.vectors, vectors...)
	m.metadata = append(m.metadata, metadata...)
	return len(m.vectors), nil
}

func (m *MockSimilarityIndex) Search(query []float32, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	if m.SearchFn != nil {
		return m.SearchFn(query, opts)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	results := make([]domain.SearchResult, 0, len(m.vectors))
	for id, v := range m.vectors {
		var dot float32
		for i := range v {
			dot += v[i] * query[i]
		}
		results = append(results, domain.SearchResult{SimilarityScore: dot, VectorID: id, Metadata: m.metadata[id]})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].SimilarityScore > results[j].SimilarityScore
	})
	if opts.TopK < len(results) {
		results = results[:opts.TopK]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

func (m *MockSimilarityIndex) DeleteByDocument(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keptV [][]float32
	var keptM []domain.EntryMetadata
	for i, md := range m.metadata {
		if md.SourceDocument != name {
			keptV = append(keptV, m.vectors[i])
			keptM = append(keptM, md)
		}
	}
	removed := len(m.metadata) - len(keptM)
	m.vectors, m.metadata = keptV, keptM
	return removed
}

func (m *MockSimilarityIndex) Save() error {
	m.mu.Lock()
	m.saves++
	m.mu.Unlock()
	if m.SaveFn != nil {
		return m.SaveFn()
	}
	return nil
}

func (m *MockSimilarityIndex) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors, m.metadata = nil, nil
}

func (m *MockSimilarityIndex) DocumentCount() int {
	return len(m.ListDocuments())
}

func (m *MockSimilarityIndex) TotalVectorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.vectors)
}

func (m *MockSimilarityIndex) ListDocuments() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var names []string
	for _, md := range m.metadata {
		if !seen[md.SourceDocument] {
			seen[md.SourceDocument] = true
			names = append(names, md.SourceDocument)
		}
	}
	sort.Strings(names)
	return names
}

func (m *MockSimilarityIndex) FragmentCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, md := range m.metadata {
		if md.SourceDocument == name {
			n++
		}
	}
	return n
}

func (m *MockSimilarityIndex) Dimension() int {
	return m.dimension
}

func (m *MockSimilarityIndex) Origin() driven.IndexOrigin {
	return driven.IndexOriginCreated
}

// Saves returns how many times Save was called
func (m *MockSimilarityIndex) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
