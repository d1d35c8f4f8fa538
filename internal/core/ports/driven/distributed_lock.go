package driven

import (
	"context"
	"errors"
	"time"
)

// ErrLockNotHeld is returned by Extend when the lock expired or belongs
// to another owner.
var ErrLockNotHeld = errors.New("lock not held")

// DistributedLock serialises work on a name, such as ingesting one
// document, across goroutines and processes. Locks are not reentrant.
type DistributedLock interface {
	// Acquire reports false, without error, while another owner holds name
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release is a no-op for locks this owner does not hold
	Release(ctx context.Context, name string) error

	Extend(ctx context.Context, name string, ttl time.Duration) error
	Ping(ctx context.Context) error
}
