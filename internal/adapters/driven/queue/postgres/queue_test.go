package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalog "github.com/custodia-labs/sercha-rag/internal/adapters/driven/postgres"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := catalog.Connect(ctx, catalog.DefaultConfig(url))
	require.NoError(t, err)
	require.NoError(t, db.InitSchema(ctx))
	_, err = db.ExecContext(ctx, "TRUNCATE ingest_tasks")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	q := NewQueue(db.DB)
	q.pollInterval = 10 * time.Millisecond
	return q
}

func TestQueue_EnqueueDequeueAck(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	task := domain.NewIngestTask("constitution.pdf", "application/pdf")
	require.NoError(t, q.Enqueue(ctx, task))

	got, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, domain.TaskStatusProcessing, got.Status)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, task.BlobKey(), got.BlobKey())

	again, err := q.DequeueWithTimeout(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, again, "claimed task must not be handed out twice")

	result := &domain.IngestResult{DocumentName: "constitution.pdf", TotalChunks: 12}
	require.NoError(t, q.Ack(ctx, task.ID, result))

	stored, err := q.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, stored.Status)
	require.NotNil(t, stored.Result)
	assert.Equal(t, 12, stored.Result.TotalChunks)
	assert.NotNil(t, stored.CompletedAt)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.CompletedCount)
	assert.Equal(t, int64(0), stats.PendingCount)
}

func TestQueue_NackSchedulesRetryThenFails(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	task := domain.NewIngestTask("a.txt", "text/plain")
	task.MaxAttempts = 1
	require.NoError(t, q.Enqueue(ctx, task))

	_, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, q.Nack(ctx, task.ID, "embedding timeout"))

	stored, err := q.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, stored.Status)
	assert.Equal(t, "embedding timeout", stored.Error)
}

func TestQueue_NackRetryIsDelayed(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	task := domain.NewIngestTask("a.txt", "text/plain")
	require.NoError(t, q.Enqueue(ctx, task))
	_, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, q.Nack(ctx, task.ID, "provider unavailable"))

	stored, err := q.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, stored.Status)
	assert.True(t, stored.ScheduledFor.After(time.Now()))

	got, err := q.DequeueWithTimeout(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestQueue_Fail(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	task := domain.NewIngestTask("empty.txt", "text/plain")
	require.NoError(t, q.Enqueue(ctx, task))
	require.NoError(t, q.Fail(ctx, task.ID, "insufficient content"))

	stored, err := q.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, stored.Status)
}

func TestQueue_UnknownTask(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	_, err := q.GetTask(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, q.Ack(ctx, "missing", nil), domain.ErrNotFound)
	assert.ErrorIs(t, q.Fail(ctx, "missing", "x"), domain.ErrNotFound)
}
