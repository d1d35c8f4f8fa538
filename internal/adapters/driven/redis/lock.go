package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.DistributedLock = (*Lock)(nil)

const lockPrefix = "sercha-rag:lock:"

// Lock is a DistributedLock on plain Redis keys. Each key stores the
// owner token of the process that set it and expires on its own, so a
// crashed API process cannot wedge ingestion of a document name.
type Lock struct {
	client *redis.Client
	owner  string
}

// NewLock creates a lock whose owner token is unique to this instance
func NewLock(client *redis.Client) *Lock {
	host, _ := os.Hostname()
	return &Lock{
		client: client,
		owner:  fmt.Sprintf("%s/%d/%s", host, os.Getpid(), domain.GenerateID()),
	}
}

// Acquire sets the key only if it is absent
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	err := l.client.SetArgs(ctx, lockPrefix+name, l.owner, redis.SetArgs{Mode: "NX", TTL: ttl}).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
}

// ownedScript applies ARGV[2] ("del" or "pexpire") to KEYS[1] only while
// it still holds the owner token ARGV[1].
var ownedScript = redis.NewScript(`
if redis.call("get", KEYS[1]) ~= ARGV[1] then
	return 0
end
if ARGV[2] == "del" then
	return redis.call("del", KEYS[1])
end
return redis.call("pexpire", KEYS[1], ARGV[3])
`)

// Release leaves keys held by other owners alone
func (l *Lock) Release(ctx context.Context, name string) error {
	if err := ownedScript.Run(ctx, l.client, []string{lockPrefix + name}, l.owner, "del").Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// Extend resets the TTL of a key this instance still owns
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	n, err := ownedScript.Run(ctx, l.client, []string{lockPrefix + name}, l.owner, "pexpire", ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("extend lock %s: %w", name, driven.ErrLockNotHeld)
	}
	return nil
}

func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// OwnerID is the token written into held keys
func (l *Lock) OwnerID() string {
	return l.owner
}
