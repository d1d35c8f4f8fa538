// Package redis implements the ingest task queue on Redis lists.
//
// Pending task IDs live in a list that workers pop with BRPOPLPUSH into a
// processing list, so a task that was taken but never acknowledged can be
// found again. Retries wait in a sorted set scored by their due time.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

const (
	pendingList    = "sercha-rag:tasks:pending"
	processingList = "sercha-rag:tasks:processing"
	scheduledSet   = "sercha-rag:tasks:scheduled"
	completedCount = "sercha-rag:tasks:completed"
	failedCount    = "sercha-rag:tasks:failed"

	taskKeyPrefix = "sercha-rag:task:"

	// taskTTL bounds how long task records stay queryable
	taskTTL = 24 * time.Hour

	// claimTimeout is how long a task may sit in processing before it is
	// considered abandoned by a crashed worker
	claimTimeout = 10 * time.Minute
)

// Verify interface compliance
var _ driven.TaskQueue = (*Queue)(nil)

// Queue implements TaskQueue on Redis lists.
type Queue struct {
	client *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewQueue creates a Redis-backed task queue. The client is shared and
// is not closed by Close.
func NewQueue(client *redis.Client, logger *slog.Logger) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{client: client, logger: logger, now: time.Now}, nil
}

func taskKey(id string) string {
	return taskKeyPrefix + id
}

func (q *Queue) store(ctx context.Context, pipe redis.Pipeliner, task *domain.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	pipe.Set(ctx, taskKey(task.ID), data, taskTTL)
	return nil
}

// Enqueue stores the task and makes it visible to workers, or schedules
// it when ScheduledFor lies in the future.
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("task is required")
	}

	pipe := q.client.TxPipeline()
	if err := q.store(ctx, pipe, task); err != nil {
		return err
	}
	if task.ScheduledFor.After(q.now()) {
		pipe.ZAdd(ctx, scheduledSet, redis.Z{Score: float64(task.ScheduledFor.Unix()), Member: task.ID})
	} else {
		pipe.LPush(ctx, pendingList, task.ID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}

// DequeueWithTimeout blocks up to timeout seconds for the next task.
// A zero timeout blocks until ctx is done.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	if err := q.promoteScheduled(ctx); err != nil {
		q.logger.Warn("promote scheduled tasks", "error", err)
	}
	if err := q.reclaimAbandoned(ctx); err != nil {
		q.logger.Warn("reclaim abandoned tasks", "error", err)
	}

	id, err := q.client.BRPopLPush(ctx, pendingList, processingList, time.Duration(timeout)*time.Second).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("pop task: %w", err)
	}

	task, err := q.GetTask(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		// record expired; drop the dangling id
		q.client.LRem(ctx, processingList, 1, id)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	task.MarkProcessing()
	pipe := q.client.TxPipeline()
	if err := q.store(ctx, pipe, task); err != nil {
		return nil, err
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("mark task processing: %w", err)
	}
	return task, nil
}

// Ack attaches the result and completes the task.
func (q *Queue) Ack(ctx context.Context, taskID string, result *domain.IngestResult) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	task.MarkCompleted(result)

	pipe := q.client.TxPipeline()
	if err := q.store(ctx, pipe, task); err != nil {
		return err
	}
	pipe.LRem(ctx, processingList, 1, taskID)
	pipe.Incr(ctx, completedCount)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ack task: %w", err)
	}
	return nil
}

// Nack schedules a retry with backoff, or fails the task once its
// attempts are used up.
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if !task.CanRetry() {
		return q.Fail(ctx, taskID, reason)
	}
	task.Retry(reason)

	pipe := q.client.TxPipeline()
	if err := q.store(ctx, pipe, task); err != nil {
		return err
	}
	pipe.LRem(ctx, processingList, 1, taskID)
	pipe.ZAdd(ctx, scheduledSet, redis.Z{Score: float64(task.ScheduledFor.Unix()), Member: task.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("nack task: %w", err)
	}
	return nil
}

// Fail marks the task failed without retrying.
func (q *Queue) Fail(ctx context.Context, taskID string, reason string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	task.MarkFailed(reason)

	pipe := q.client.TxPipeline()
	if err := q.store(ctx, pipe, task); err != nil {
		return err
	}
	pipe.LRem(ctx, processingList, 1, taskID)
	pipe.Incr(ctx, failedCount)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("fail task: %w", err)
	}
	return nil
}

// GetTask returns domain.ErrNotFound for unknown or expired IDs.
func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	data, err := q.client.Get(ctx, taskKey(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: task %s", domain.ErrNotFound, taskID)
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	var task domain.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	return &task, nil
}

// Stats counts pending (including scheduled retries) and processing tasks
// from the lists, and completed/failed tasks from running counters.
func (q *Queue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	pipe := q.client.Pipeline()
	pending := pipe.LLen(ctx, pendingList)
	scheduled := pipe.ZCard(ctx, scheduledSet)
	processing := pipe.LLen(ctx, processingList)
	completed := pipe.Get(ctx, completedCount)
	failed := pipe.Get(ctx, failedCount)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("queue stats: %w", err)
	}

	return &driven.QueueStats{
		PendingCount:    pending.Val() + scheduled.Val(),
		ProcessingCount: processing.Val(),
		CompletedCount:  counterValue(completed),
		FailedCount:     counterValue(failed),
	}, nil
}

func counterValue(cmd *redis.StringCmd) int64 {
	n, err := strconv.ParseInt(cmd.Val(), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close is a no-op; the Redis client is owned by the caller.
func (q *Queue) Close() error {
	return nil
}

// promoteScheduled moves due retries onto the pending list.
func (q *Queue) promoteScheduled(ctx context.Context) error {
	due, err := q.client.ZRangeByScore(ctx, scheduledSet, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(q.now().Unix(), 10),
	}).Result()
	if err != nil || len(due) == 0 {
		return err
	}

	for _, id := range due {
		// ZRem doubles as a claim so concurrent workers promote each id once
		removed, err := q.client.ZRem(ctx, scheduledSet, id).Result()
		if err != nil {
			return err
		}
		if removed == 1 {
			if err := q.client.LPush(ctx, pendingList, id).Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

// reclaimAbandoned requeues tasks that have been processing for longer
// than claimTimeout.
func (q *Queue) reclaimAbandoned(ctx context.Context) error {
	ids, err := q.client.LRange(ctx, processingList, 0, -1).Result()
	if err != nil {
		return err
	}

	cutoff := q.now().Add(-claimTimeout)
	for _, id := range ids {
		task, err := q.GetTask(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			q.client.LRem(ctx, processingList, 1, id)
			continue
		}
		if err != nil || task.StartedAt == nil || task.StartedAt.After(cutoff) {
			continue
		}

		removed, err := q.client.LRem(ctx, processingList, 1, id).Result()
		if err != nil || removed == 0 {
			continue
		}
		q.logger.Warn("requeueing abandoned task", "task_id", id, "document", task.DocumentName())
		task.Status = domain.TaskStatusPending
		pipe := q.client.TxPipeline()
		if err := q.store(ctx, pipe, task); err != nil {
			return err
		}
		pipe.LPush(ctx, pendingList, id)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
