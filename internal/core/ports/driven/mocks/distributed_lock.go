package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.DistributedLock = (*MockDistributedLock)(nil)

// MockDistributedLock records lock traffic. Locks never expire on their
// own; tests that need contention call Hold.
type MockDistributedLock struct {
	mu   sync.Mutex
	held map[string]bool
	log  []string

	AcquireFn func(name string, ttl time.Duration) (bool, error)
	PingFn    func() error
}

func NewMockDistributedLock() *MockDistributedLock {
	return &MockDistributedLock{held: make(map[string]bool)}
}

func (m *MockDistributedLock) Acquire(_ context.Context, name string, ttl time.Duration) (bool, error) {
	if m.AcquireFn != nil {
		return m.AcquireFn(name, ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[name] {
		m.log = append(m.log, "busy "+name)
		return false, nil
	}
	m.held[name] = true
	m.log = append(m.log, "acquire "+name)
	return true, nil
}

func (m *MockDistributedLock) Release(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, name)
	m.log = append(m.log, "release "+name)
	return nil
}

func (m *MockDistributedLock) Extend(_ context.Context, name string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.held[name] {
		return driven.ErrLockNotHeld
	}
	m.log = append(m.log, "extend "+name)
	return nil
}

func (m *MockDistributedLock) Ping(context.Context) error {
	if m.PingFn != nil {
		return m.PingFn()
	}
	return nil
}

func (m *MockDistributedLock) IsHeld(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held[name]
}

// Hold takes name on behalf of another process
func (m *MockDistributedLock) Hold(name string, _ time.Duration) {
	m.mu.Lock()
	m.held[name] = true
	m.mu.Unlock()
}

// Log returns the calls seen so far, such as "acquire ingest:a.txt"
func (m *MockDistributedLock) Log() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.log...)
}
