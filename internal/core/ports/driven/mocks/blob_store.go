package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.DocumentBlobStore = (*MockBlobStore)(nil)

// MockBlobStore keeps blobs in memory
type MockBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte

	PutFn func(name string, raw []byte) error
}

func NewMockBlobStore() *MockBlobStore {
	return &MockBlobStore{blobs: make(map[string][]byte)}
}

func (m *MockBlobStore) Put(ctx context.Context, name string, raw []byte) error {
	if m.PutFn != nil {
		if err := m.PutFn(name, raw); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[name] = append([]byte(nil), raw...)
	return nil
}

func (m *MockBlobStore) Get(ctx context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.blobs[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return raw, nil
}

func (m *MockBlobStore) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, name)
	return nil
}

func (m *MockBlobStore) Exists(ctx context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[name]
	return ok, nil
}
