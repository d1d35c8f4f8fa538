package redis

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.QueryEmbeddingCache = (*EmbeddingCache)(nil)

const embeddingCachePrefix = "sercha-rag:qemb:"

// EmbeddingCache stores query vectors as little-endian float32 bytes
// under a BLAKE2b digest of model and query text.
type EmbeddingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewEmbeddingCache creates a cache whose entries expire after ttl.
// A zero ttl keeps entries until evicted.
func NewEmbeddingCache(client *redis.Client, ttl time.Duration) *EmbeddingCache {
	return &EmbeddingCache{client: client, ttl: ttl}
}

func embeddingKey(model, query string) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(query))
	return embeddingCachePrefix + hex.EncodeToString(h.Sum(nil))
}

// Get returns nil, nil on a miss.
func (c *EmbeddingCache) Get(ctx context.Context, model, query string) ([]float32, error) {
	raw, err := c.client.Get(ctx, embeddingKey(model, query)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached embedding: %w", err)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("cached embedding has %d bytes", len(raw))
	}

	vec := make([]float32, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return vec, nil
}

func (c *EmbeddingCache) Set(ctx context.Context, model, query string, vector []float32) error {
	raw := make([]byte, len(vector)*4)
	for i, f := range vector {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(f))
	}
	if err := c.client.Set(ctx, embeddingKey(model, query), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached embedding: %w", err)
	}
	return nil
}
