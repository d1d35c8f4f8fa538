package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// TaskQueue carries asynchronous ingest jobs from the API to workers.
// Backends: Redis lists, a PostgreSQL table, or process memory.
//
// A claimed task belongs to one worker until it is acked, nacked or
// failed. Unknown task IDs yield domain.ErrNotFound.
type TaskQueue interface {
	Enqueue(ctx context.Context, task *domain.Task) error

	// DequeueWithTimeout claims the next ready task, blocking for up to
	// timeout seconds. It returns nil, nil when nothing became ready.
	DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error)

	// Ack completes the task and keeps result for status polling.
	Ack(ctx context.Context, taskID string, result *domain.IngestResult) error

	// Nack reschedules the task with backoff, or fails it when its
	// attempts are used up.
	Nack(ctx context.Context, taskID string, reason string) error

	// Fail ends the task without further attempts.
	Fail(ctx context.Context, taskID string, reason string) error

	GetTask(ctx context.Context, taskID string) (*domain.Task, error)

	Stats(ctx context.Context) (*QueueStats, error)
	Ping(ctx context.Context) error
	Close() error
}

// QueueStats counts tasks by status
type QueueStats struct {
	PendingCount    int64 `json:"pending_count"`
	ProcessingCount int64 `json:"processing_count"`
	CompletedCount  int64 `json:"completed_count"`
	FailedCount     int64 `json:"failed_count"`
}
