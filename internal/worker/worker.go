// Package worker drains the ingest task queue in the background.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// DefaultTaskTimeout bounds a single ingest attempt
const DefaultTaskTimeout = 15 * time.Minute

const maxDequeueBackoff = 30 * time.Second

type taskHandler func(ctx context.Context, task *domain.Task) (*domain.IngestResult, error)

// Worker pulls tasks off the queue with a fixed number of goroutines and
// settles each one as acked, retried, or failed.
type Worker struct {
	queue     driven.TaskQueue
	retrieval driving.RetrievalService
	blobs     driven.DocumentBlobStore
	logger    *slog.Logger
	handlers  map[domain.TaskType]taskHandler

	concurrency    int
	dequeueTimeout int // seconds
	taskTimeout    time.Duration

	completed atomic.Int64
	retried   atomic.Int64
	failed    atomic.Int64

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WorkerConfig wires a Worker
type WorkerConfig struct {
	TaskQueue      driven.TaskQueue
	Retrieval      driving.RetrievalService
	Blobs          driven.DocumentBlobStore // staged uploads, keyed by Task.BlobKey
	Logger         *slog.Logger
	Concurrency    int           // goroutines, default 1
	DequeueTimeout int           // seconds per blocking dequeue, default 5
	TaskTimeout    time.Duration // per attempt, default DefaultTaskTimeout
}

// NewWorker creates a stopped worker
func NewWorker(cfg WorkerConfig) *Worker {
	w := &Worker{
		queue:          cfg.TaskQueue,
		retrieval:      cfg.Retrieval,
		blobs:          cfg.Blobs,
		logger:         cfg.Logger,
		concurrency:    cfg.Concurrency,
		dequeueTimeout: cfg.DequeueTimeout,
		taskTimeout:    cfg.TaskTimeout,
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	if w.concurrency <= 0 {
		w.concurrency = 1
	}
	if w.dequeueTimeout <= 0 {
		w.dequeueTimeout = 5
	}
	if w.taskTimeout <= 0 {
		w.taskTimeout = DefaultTaskTimeout
	}

	w.handlers = map[domain.TaskType]taskHandler{
		domain.TaskTypeIngestDocument: w.handleIngest,
	}
	return w
}

// Start launches the goroutines and returns. They exit on Stop or when
// ctx is cancelled. Starting a running worker does nothing.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	w.logger.Info("worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
		"task_timeout", w.taskTimeout,
	)

	var wg sync.WaitGroup
	wg.Add(w.concurrency)
	for i := range w.concurrency {
		go func() {
			defer wg.Done()
			w.run(ctx, w.logger.With("worker_id", i))
		}()
	}

	go func(done chan struct{}) {
		wg.Wait()
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(done)
	}(w.doneCh)

	return nil
}

// Stop asks the goroutines to exit and waits for in-flight tasks
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	done := w.doneCh
	w.mu.Unlock()

	<-done
	w.logger.Info("worker stopped",
		"completed", w.completed.Load(),
		"retried", w.retried.Load(),
		"failed", w.failed.Load(),
	)
}

// Wait blocks until every goroutine has exited
func (w *Worker) Wait() {
	w.mu.RLock()
	done := w.doneCh
	w.mu.RUnlock()
	if done != nil {
		<-done
	}
}

func (w *Worker) stopping(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-w.stopCh:
		return true
	default:
		return false
	}
}

func (w *Worker) run(ctx context.Context, logger *slog.Logger) {
	backoff := time.Second
	for !w.stopping(ctx) {
		task, err := w.queue.DequeueWithTimeout(ctx, w.dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("dequeue failed", "error", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
			case <-w.stopCh:
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxDequeueBackoff)
			continue
		}
		backoff = time.Second

		if task != nil {
			w.processTask(ctx, task, logger)
		}
	}
}

// processTask runs one attempt and settles it. Documents that can never
// be indexed, missing uploads and unknown task types fail at once. Other
// errors go back to the queue until attempts run out.
func (w *Worker) processTask(ctx context.Context, task *domain.Task, logger *slog.Logger) {
	logger = logger.With("task_id", task.ID, "document", task.DocumentName(), "attempt", task.Attempts)
	logger.Info("processing task")

	start := time.Now()
	result, err := w.dispatch(ctx, task)
	took := time.Since(start)

	// settle even when shutdown cancelled the attempt
	settleCtx := context.WithoutCancel(ctx)

	switch {
	case err == nil:
		w.completed.Add(1)
		logger.Info("task completed", "duration", took, "chunks", result.TotalChunks)
		if qerr := w.queue.Ack(settleCtx, task.ID, result); qerr != nil {
			logger.Error("ack failed", "error", qerr)
		}
		w.discardUpload(settleCtx, task, logger)

	case domain.IsPermanent(err) || errors.Is(err, domain.ErrNotFound):
		w.failed.Add(1)
		logger.Warn("task rejected", "duration", took, "error", err)
		if qerr := w.queue.Fail(settleCtx, task.ID, err.Error()); qerr != nil {
			logger.Error("fail failed", "error", qerr)
		}
		w.discardUpload(settleCtx, task, logger)

	default:
		logger.Error("task attempt failed", "duration", took, "error", err, "will_retry", task.CanRetry())
		if qerr := w.queue.Nack(settleCtx, task.ID, err.Error()); qerr != nil {
			logger.Error("nack failed", "error", qerr)
		}
		if task.CanRetry() {
			w.retried.Add(1)
		} else {
			w.failed.Add(1)
			w.discardUpload(settleCtx, task, logger)
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, task *domain.Task) (*domain.IngestResult, error) {
	handle, ok := w.handlers[task.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unknown task type %q", domain.ErrInvalidInput, task.Type)
	}

	ctx, cancel := context.WithTimeout(ctx, w.taskTimeout)
	defer cancel()
	return handle(ctx, task)
}

func (w *Worker) handleIngest(ctx context.Context, task *domain.Task) (*domain.IngestResult, error) {
	name, key := task.DocumentName(), task.BlobKey()
	if name == "" || key == "" {
		return nil, fmt.Errorf("%w: ingest task without document payload", domain.ErrInvalidInput)
	}

	raw, err := w.blobs.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load staged upload %s: %w", key, err)
	}
	return w.retrieval.Ingest(ctx, raw, name, task.ContentType())
}

func (w *Worker) discardUpload(ctx context.Context, task *domain.Task, logger *slog.Logger) {
	if key := task.BlobKey(); key != "" {
		if err := w.blobs.Delete(ctx, key); err != nil {
			logger.Warn("staged upload not removed", "key", key, "error", err)
		}
	}
}

// Health is the worker's view of itself and its queue
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Completed   int64  `json:"completed"`
	Retried     int64  `json:"retried"`
	Failed      int64  `json:"failed"`
	Error       string `json:"error,omitempty"`
}

// Health pings the queue and reports task counters since start
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	h := Health{Running: w.running}
	w.mu.RUnlock()

	h.Completed = w.completed.Load()
	h.Retried = w.retried.Load()
	h.Failed = w.failed.Load()

	if err := w.queue.Ping(ctx); err != nil {
		h.Error = err.Error()
	} else {
		h.QueueHealth = true
	}
	return h
}
