package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.DocumentCatalog = (*MockDocumentCatalog)(nil)

// MockDocumentCatalog keeps records in memory
type MockDocumentCatalog struct {
	mu      sync.RWMutex
	records map[string]*domain.DocumentRecord

	SaveFn func(rec *domain.DocumentRecord) error
}

func NewMockDocumentCatalog() *MockDocumentCatalog {
	return &MockDocumentCatalog{records: make(map[string]*domain.DocumentRecord)}
}

func (m *MockDocumentCatalog) Save(ctx context.Context, rec *domain.DocumentRecord) error {
	if m.SaveFn != nil {
		if err := m.SaveFn(rec); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.records[rec.Name] = &cp
	return nil
}

func (m *MockDocumentCatalog) Get(ctx context.Context, name string) (*domain.DocumentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *MockDocumentCatalog) List(ctx context.Context) ([]*domain.DocumentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.DocumentRecord, 0, len(m.records))
	for _, rec := range m.records {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MockDocumentCatalog) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, name)
	return nil
}
