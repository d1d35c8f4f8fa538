// Package memory implements the ingest task queue inside the process,
// for single-binary deployments without Redis.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TaskQueue = (*Queue)(nil)

// Queue is a FIFO task queue guarded by a mutex. Waiting dequeuers are
// woken through a buffered notify channel.
type Queue struct {
	mu      sync.Mutex
	pending []string
	tasks   map[string]*domain.Task
	stats   driven.QueueStats
	notify  chan struct{}
	closed  bool
	now     func() time.Time
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		tasks:  make(map[string]*domain.Task),
		notify: make(chan struct{}, 1),
		now:    time.Now,
	}
}

// wake must be called with mu held.
func (q *Queue) wake() {
	if q.closed {
		return
	}
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *Queue) Enqueue(_ context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("task is required")
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return errors.New("queue closed")
	}

	cp := *task
	q.tasks[cp.ID] = &cp
	q.pending = append(q.pending, cp.ID)
	q.wake()
	return nil
}

// next pops the first pending task that is due and reports how long until
// the earliest scheduled one otherwise.
func (q *Queue) next() (*domain.Task, time.Duration) {
	now := q.now()
	wait := time.Duration(-1)
	for i, id := range q.pending {
		task := q.tasks[id]
		if task.ReadyAt(now) {
			q.pending = append(q.pending[:i:i], q.pending[i+1:]...)
			task.MarkProcessing()
			cp := *task
			return &cp, 0
		}
		if d := task.ScheduledFor.Sub(now); wait < 0 || d < wait {
			wait = d
		}
	}
	return nil, wait
}

// DequeueWithTimeout waits up to timeout seconds for a due task. A zero
// timeout waits until ctx is done.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(time.Duration(timeout) * time.Second)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, nil
		}
		task, wait := q.next()
		q.mu.Unlock()
		if task != nil {
			return task, nil
		}

		var retry *time.Timer
		var retryC <-chan time.Time
		if wait >= 0 {
			retry = time.NewTimer(wait)
			retryC = retry.C
		}

		done := false
		select {
		case <-ctx.Done():
			done = true
		case <-deadline:
			done = true
		case <-q.notify:
		case <-retryC:
		}
		if retry != nil {
			retry.Stop()
		}
		if done {
			return nil, nil
		}
	}
}

func (q *Queue) lookup(id string) (*domain.Task, error) {
	task, ok := q.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: task %s", domain.ErrNotFound, id)
	}
	return task, nil
}

func (q *Queue) Ack(_ context.Context, taskID string, result *domain.IngestResult) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, err := q.lookup(taskID)
	if err != nil {
		return err
	}
	task.MarkCompleted(result)
	q.stats.CompletedCount++
	return nil
}

func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	q.mu.Lock()
	task, err := q.lookup(taskID)
	if err != nil {
		q.mu.Unlock()
		return err
	}
	if !task.CanRetry() {
		q.mu.Unlock()
		return q.Fail(ctx, taskID, reason)
	}
	task.Retry(reason)
	q.pending = append(q.pending, taskID)
	q.wake()
	q.mu.Unlock()
	return nil
}

func (q *Queue) Fail(_ context.Context, taskID string, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, err := q.lookup(taskID)
	if err != nil {
		return err
	}
	task.MarkFailed(reason)
	q.stats.FailedCount++
	return nil
}

func (q *Queue) GetTask(_ context.Context, taskID string) (*domain.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, err := q.lookup(taskID)
	if err != nil {
		return nil, err
	}
	cp := *task
	return &cp, nil
}

func (q *Queue) Stats(context.Context) (*driven.QueueStats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := q.stats
	stats.PendingCount = int64(len(q.pending))
	for _, task := range q.tasks {
		if task.Status == domain.TaskStatusProcessing {
			stats.ProcessingCount++
		}
	}
	return &stats, nil
}

func (q *Queue) Ping(context.Context) error {
	return nil
}

// Close makes blocked and future dequeues return nil.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.notify)
	}
	return nil
}
