// Package postgres is a TaskQueue backed by the ingest_tasks table. It is
// used when a database is configured but Redis is not.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Queue implements TaskQueue
var _ driven.TaskQueue = (*Queue)(nil)

// DefaultPollInterval is how often an empty queue is re-checked while a
// dequeue is waiting.
const DefaultPollInterval = 500 * time.Millisecond

// Queue implements TaskQueue using SELECT ... FOR UPDATE SKIP LOCKED so
// that concurrent workers never claim the same row.
type Queue struct {
	db           *sql.DB
	pollInterval time.Duration
}

// NewQueue creates a queue over an open pool. The ingest_tasks table is
// created by the catalog schema (postgres.DB.InitSchema).
func NewQueue(db *sql.DB) *Queue {
	return &Queue{db: db, pollInterval: DefaultPollInterval}
}

const taskColumns = `id, type, payload, status, attempts, max_attempts, error,
	result, created_at, updated_at, started_at, completed_at, scheduled_for`

// Enqueue adds a task to the queue
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	payload, err := json.Marshal(task.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	_, err = q.db.ExecContext(ctx, `
		INSERT INTO ingest_tasks (
			id, type, payload, status, attempts, max_attempts, error,
			created_at, updated_at, scheduled_for
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		task.ID,
		task.Type,
		payload,
		task.Status,
		task.Attempts,
		task.MaxAttempts,
		task.Error,
		task.CreatedAt,
		task.UpdatedAt,
		task.ScheduledFor,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// DequeueWithTimeout claims the oldest ready task, polling until timeout
// seconds have passed. Returns nil, nil when nothing became ready.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	deadline := time.Now().Add(time.Duration(timeout) * time.Second)
	for {
		task, err := q.claim(ctx)
		if err != nil || task != nil {
			return task, err
		}

		if !time.Now().Before(deadline) {
			return nil, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(q.pollInterval):
		}
	}
}

func (q *Queue) claim(ctx context.Context) (*domain.Task, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx, `
		SELECT `+taskColumns+`
		FROM ingest_tasks
		WHERE status = $1
		  AND scheduled_for <= NOW()
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`,
		domain.TaskStatusPending,
	)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select task: %w", err)
	}

	task.MarkProcessing()
	_, err = tx.ExecContext(ctx, `
		UPDATE ingest_tasks
		SET status = $1, started_at = $2, updated_at = $2, attempts = $3
		WHERE id = $4`,
		task.Status,
		*task.StartedAt,
		task.Attempts,
		task.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update task status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return task, nil
}

// Ack stores the ingest result and marks the task completed
func (q *Queue) Ack(ctx context.Context, taskID string, result *domain.IngestResult) error {
	var encoded []byte
	if result != nil {
		var err error
		if encoded, err = json.Marshal(result); err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
	}

	now := time.Now()
	res, err := q.db.ExecContext(ctx, `
		UPDATE ingest_tasks
		SET status = $1, result = $2, completed_at = $3, updated_at = $3, error = ''
		WHERE id = $4`,
		domain.TaskStatusCompleted,
		encoded,
		now,
		taskID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return requireRow(res)
}

// Nack schedules a retry with backoff, or fails the task once its
// attempts are used up.
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	if task.CanRetry() {
		task.Retry(reason)
	} else {
		task.MarkFailed(reason)
	}
	return q.updateState(ctx, task)
}

// Fail marks the task failed without retrying
func (q *Queue) Fail(ctx context.Context, taskID string, reason string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	task.MarkFailed(reason)
	return q.updateState(ctx, task)
}

func (q *Queue) updateState(ctx context.Context, task *domain.Task) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE ingest_tasks
		SET status = $1, error = $2, updated_at = $3, scheduled_for = $4
		WHERE id = $5`,
		task.Status,
		task.Error,
		task.UpdatedAt,
		task.ScheduledFor,
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return requireRow(res)
}

// GetTask retrieves a task by ID
func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM ingest_tasks WHERE id = $1`, taskID)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// Stats counts tasks per status
func (q *Queue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM ingest_tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	stats := &driven.QueueStats{}
	for rows.Next() {
		var status domain.TaskStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		switch status {
		case domain.TaskStatusPending:
			stats.PendingCount = count
		case domain.TaskStatusProcessing:
			stats.ProcessingCount = count
		case domain.TaskStatusCompleted:
			stats.CompletedCount = count
		case domain.TaskStatusFailed:
			stats.FailedCount = count
		}
	}
	return stats, rows.Err()
}

// Ping checks database connectivity
func (q *Queue) Ping(ctx context.Context) error {
	return q.db.PingContext(ctx)
}

// Close is a no-op; the pool belongs to the caller
func (q *Queue) Close() error {
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var payload, result []byte
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&task.ID,
		&task.Type,
		&payload,
		&task.Status,
		&task.Attempts,
		&task.MaxAttempts,
		&task.Error,
		&result,
		&task.CreatedAt,
		&task.UpdatedAt,
		&startedAt,
		&completedAt,
		&task.ScheduledFor,
	)
	if err != nil {
		return nil, err
	}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &task.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	if len(result) > 0 {
		task.Result = &domain.IngestResult{}
		if err := json.Unmarshal(result, task.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
	}
	if startedAt.Valid {
		task.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}
	return &task, nil
}

func requireRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
