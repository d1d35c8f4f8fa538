package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestQueue_EnqueueDequeueAck(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()

	task := domain.NewIngestTask("a.txt", "text/plain")
	require.NoError(t, q.Enqueue(ctx, task))

	got, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, domain.TaskStatusProcessing, got.Status)
	assert.Equal(t, domain.TaskStatusPending, task.Status, "caller's task is not mutated")

	stats, _ := q.Stats(ctx)
	assert.Equal(t, int64(0), stats.PendingCount)
	assert.Equal(t, int64(1), stats.ProcessingCount)

	require.NoError(t, q.Ack(ctx, task.ID, &domain.IngestResult{TotalChunks: 3}))
	stored, err := q.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, stored.Status)
	assert.Equal(t, 3, stored.Result.TotalChunks)

	stats, _ = q.Stats(ctx)
	assert.Equal(t, int64(1), stats.CompletedCount)
	assert.Equal(t, int64(0), stats.ProcessingCount)
}

func TestQueue_DequeueWakesOnEnqueue(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()
	task := domain.NewIngestTask("late.txt", "text/plain")

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = q.Enqueue(ctx, task)
	}()

	got, err := q.DequeueWithTimeout(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, task.ID, got.ID)
}

func TestQueue_DequeueHonoursContext(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	got, err := q.DequeueWithTimeout(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestQueue_NackRetriesAfterBackoff(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()
	now := time.Now()
	q.now = func() time.Time { return now }

	task := domain.NewIngestTask("a.txt", "text/plain")
	require.NoError(t, q.Enqueue(ctx, task))
	_, _ = q.DequeueWithTimeout(ctx, 1)

	require.NoError(t, q.Nack(ctx, task.ID, "timeout"))

	shortCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	got, err := q.DequeueWithTimeout(shortCtx, 0)
	require.NoError(t, err)
	assert.Nil(t, got, "retry is not due yet")

	now = now.Add(time.Minute)
	got, err = q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.Attempts)
	assert.Equal(t, "timeout", got.Error)
}

func TestQueue_NackExhaustedFails(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()

	task := domain.NewIngestTask("a.txt", "text/plain")
	task.MaxAttempts = 1
	require.NoError(t, q.Enqueue(ctx, task))
	_, _ = q.DequeueWithTimeout(ctx, 1)

	require.NoError(t, q.Nack(ctx, task.ID, "boom"))
	stored, _ := q.GetTask(ctx, task.ID)
	assert.Equal(t, domain.TaskStatusFailed, stored.Status)

	stats, _ := q.Stats(ctx)
	assert.Equal(t, int64(1), stats.FailedCount)
	assert.Equal(t, int64(0), stats.PendingCount)
}

func TestQueue_UnknownTask(t *testing.T) {
	q := NewQueue()
	ctx := context.Background()

	_, err := q.GetTask(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, q.Ack(ctx, "nope", nil), domain.ErrNotFound)
	assert.ErrorIs(t, q.Nack(ctx, "nope", "x"), domain.ErrNotFound)
	assert.ErrorIs(t, q.Fail(ctx, "nope", "x"), domain.ErrNotFound)
}

func TestQueue_CloseReleasesWaiters(t *testing.T) {
	q := NewQueue()
	done := make(chan struct{})

	go func() {
		got, _ := q.DequeueWithTimeout(context.Background(), 0)
		assert.Nil(t, got)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dequeue did not return after close")
	}
	assert.Error(t, q.Enqueue(context.Background(), domain.NewIngestTask("x", "")))
}
