package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingCache_RoundTrip(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewEmbeddingCache(client, time.Hour)
	ctx := context.Background()

	vec := []float32{0.25, -1.5, 3.125, 0}
	require.NoError(t, cache.Set(ctx, "model-a", "what is article 16?", vec))

	got, err := cache.Get(ctx, "model-a", "what is article 16?")
	require.NoError(t, err)
	assert.Equal(t, vec, got)
}

func TestEmbeddingCache_MissAndModelIsolation(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewEmbeddingCache(client, time.Hour)
	ctx := context.Background()

	got, err := cache.Get(ctx, "model-a", "never stored")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, cache.Set(ctx, "model-a", "q", []float32{1}))
	got, err = cache.Get(ctx, "model-b", "q")
	require.NoError(t, err)
	assert.Nil(t, got, "entries are keyed by model")
}

func TestEmbeddingCache_Expires(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewEmbeddingCache(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "m", "q", []float32{1, 2}))
	mr.FastForward(2 * time.Minute)

	got, err := cache.Get(ctx, "m", "q")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEmbeddingCache_CorruptValue(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewEmbeddingCache(client, 0)

	require.NoError(t, mr.Set(embeddingKey("m", "q"), "abc"))
	_, err := cache.Get(context.Background(), "m", "q")
	assert.Error(t, err)
}
