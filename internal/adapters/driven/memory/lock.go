// Package memory holds process-local adapters used when no Redis is configured.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

// Lock implements DistributedLock inside one process. Expiry is checked
// lazily on each call. All holders share one owner, so it only guards
// against concurrent callers, not against the same caller twice.
type Lock struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewLock creates an empty in-process lock table.
func NewLock() *Lock {
	return &Lock{expires: make(map[string]time.Time), now: time.Now}
}

func (l *Lock) held(name string) bool {
	exp, ok := l.expires[name]
	if !ok {
		return false
	}
	if !l.now().Before(exp) {
		delete(l.expires, name)
		return false
	}
	return true
}

func (l *Lock) Acquire(_ context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held(name) {
		return false, nil
	}
	l.expires[name] = l.now().Add(ttl)
	return true, nil
}

func (l *Lock) Release(_ context.Context, name string) error {
	l.mu.Lock()
	delete(l.expires, name)
	l.mu.Unlock()
	return nil
}

func (l *Lock) Extend(_ context.Context, name string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held(name) {
		return fmt.Errorf("extend lock %q: %w", name, driven.ErrLockNotHeld)
	}
	l.expires[name] = l.now().Add(ttl)
	return nil
}

func (l *Lock) Ping(context.Context) error {
	return nil
}
