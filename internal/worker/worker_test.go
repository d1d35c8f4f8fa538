package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

var _ driving.RetrievalService = (*fakeRetrieval)(nil)

// fakeRetrieval records ingest calls and fails with err when set
type fakeRetrieval struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeRetrieval) Ingest(_ context.Context, raw []byte, name, _ string) (*domain.IngestResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.IngestResult{DocumentName: name, TotalChunks: len(raw) / 10}, nil
}

func (f *fakeRetrieval) ingested() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRetrieval) Answer(context.Context, string, int) (*domain.Answer, error) {
	return nil, errors.New("not used")
}

func (f *fakeRetrieval) Search(context.Context, string, int) (*domain.SearchResponse, error) {
	return nil, errors.New("not used")
}

func (f *fakeRetrieval) RemoveDocument(context.Context, string) (int, error) {
	return 0, errors.New("not used")
}

func (f *fakeRetrieval) GetDocument(context.Context, string) (*domain.DocumentRecord, error) {
	return nil, errors.New("not used")
}

func (f *fakeRetrieval) Stats(context.Context) (*domain.IndexStats, error) {
	return nil, errors.New("not used")
}

// idleQueue slows down empty dequeues so Start loops do not spin
type idleQueue struct {
	*mocks.MockTaskQueue
	pingErr error
}

func (q *idleQueue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	task, err := q.MockTaskQueue.DequeueWithTimeout(ctx, timeout)
	if task == nil && err == nil {
		time.Sleep(5 * time.Millisecond)
	}
	return task, err
}

func (q *idleQueue) Ping(ctx context.Context) error {
	return q.pingErr
}

type fixture struct {
	queue     *idleQueue
	blobs     *mocks.MockBlobStore
	retrieval *fakeRetrieval
	worker    *Worker
}

func newFixture() *fixture {
	f := &fixture{
		queue:     &idleQueue{MockTaskQueue: mocks.NewMockTaskQueue()},
		blobs:     mocks.NewMockBlobStore(),
		retrieval: &fakeRetrieval{},
	}
	f.worker = NewWorker(WorkerConfig{
		TaskQueue: f.queue,
		Retrieval: f.retrieval,
		Blobs:     f.blobs,
		Logger:    slog.Default(),
	})
	return f
}

// stage uploads raw for name and enqueues the matching task
func (f *fixture) stage(t *testing.T, name string, raw []byte) *domain.Task {
	t.Helper()
	ctx := context.Background()
	task := domain.NewIngestTask(name, "text/plain")
	if err := f.blobs.Put(ctx, task.BlobKey(), raw); err != nil {
		t.Fatalf("stage blob: %v", err)
	}
	if err := f.queue.Enqueue(ctx, task); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return task
}

// runOne dequeues and processes a single task
func (f *fixture) runOne(t *testing.T) *domain.Task {
	t.Helper()
	ctx := context.Background()
	task, err := f.queue.DequeueWithTimeout(ctx, 1)
	if err != nil || task == nil {
		t.Fatalf("expected a task, got %v / %v", task, err)
	}
	f.worker.processTask(ctx, task, slog.Default())
	return task
}

func (f *fixture) staged(t *testing.T, key string) bool {
	t.Helper()
	ok, _ := f.blobs.Exists(context.Background(), key)
	return ok
}

func TestNewWorker_Defaults(t *testing.T) {
	w := NewWorker(WorkerConfig{TaskQueue: mocks.NewMockTaskQueue()})

	if w.concurrency != 1 {
		t.Errorf("expected default concurrency 1, got %d", w.concurrency)
	}
	if w.dequeueTimeout != 5 {
		t.Errorf("expected default timeout 5, got %d", w.dequeueTimeout)
	}
	if w.logger == nil {
		t.Error("expected default logger")
	}
	if w.taskTimeout != DefaultTaskTimeout {
		t.Errorf("expected default task timeout, got %v", w.taskTimeout)
	}
}

func TestNewWorker_Config(t *testing.T) {
	w := NewWorker(WorkerConfig{
		TaskQueue:      mocks.NewMockTaskQueue(),
		Concurrency:    4,
		DequeueTimeout: 10,
	})

	if w.concurrency != 4 || w.dequeueTimeout != 10 {
		t.Errorf("unexpected config: %d/%d", w.concurrency, w.dequeueTimeout)
	}
}

func TestWorker_ProcessTask_Success(t *testing.T) {
	f := newFixture()
	task := f.stage(t, "constitution.txt", make([]byte, 100))

	f.runOne(t)

	if got := f.retrieval.ingested(); len(got) != 1 || got[0] != "constitution.txt" {
		t.Errorf("expected one ingest of constitution.txt, got %v", got)
	}
	if len(f.queue.Acked) != 1 || f.queue.Acked[0] != task.ID {
		t.Errorf("expected task acked, got %v", f.queue.Acked)
	}
	stored, _ := f.queue.GetTask(context.Background(), task.ID)
	if stored.Result == nil || stored.Result.TotalChunks != 10 {
		t.Errorf("expected ingest result on task, got %+v", stored.Result)
	}
	if f.staged(t, task.BlobKey()) {
		t.Error("expected staged upload removed after success")
	}
}

func TestWorker_ProcessTask_PermanentFailure(t *testing.T) {
	f := newFixture()
	f.retrieval.err = fmt.Errorf("%w: 12 characters", domain.ErrInsufficientContent)
	task := f.stage(t, "blank.txt", []byte("too short..."))

	f.runOne(t)

	if len(f.queue.Failed) != 1 || len(f.queue.Nacked) != 0 {
		t.Errorf("expected immediate failure, got failed=%v nacked=%v", f.queue.Failed, f.queue.Nacked)
	}
	stored, _ := f.queue.GetTask(context.Background(), task.ID)
	if stored.Status != domain.TaskStatusFailed {
		t.Errorf("expected failed status, got %s", stored.Status)
	}
	if f.staged(t, task.BlobKey()) {
		t.Error("expected staged upload removed after permanent failure")
	}
}

func TestWorker_ProcessTask_TransientFailureRetries(t *testing.T) {
	f := newFixture()
	f.retrieval.err = fmt.Errorf("%w: connection reset", domain.ErrExternalProvider)
	task := f.stage(t, "act.txt", make([]byte, 50))

	f.runOne(t)

	if len(f.queue.Nacked) != 1 || len(f.queue.Failed) != 0 {
		t.Errorf("expected nack, got nacked=%v failed=%v", f.queue.Nacked, f.queue.Failed)
	}
	if !f.staged(t, task.BlobKey()) {
		t.Error("expected staged upload kept for the retry")
	}

	// succeeds on the next attempt
	f.retrieval.err = nil
	f.runOne(t)

	if len(f.queue.Acked) != 1 {
		t.Errorf("expected ack after retry, got %v", f.queue.Acked)
	}
	if f.staged(t, task.BlobKey()) {
		t.Error("expected staged upload removed after success")
	}
}

func TestWorker_ProcessTask_ExhaustedRetriesDropUpload(t *testing.T) {
	f := newFixture()
	f.retrieval.err = errors.New("disk full")
	task := f.stage(t, "act.txt", make([]byte, 50))

	for i := 0; i < task.MaxAttempts; i++ {
		f.runOne(t)
	}

	stored, _ := f.queue.GetTask(context.Background(), task.ID)
	if stored.Status != domain.TaskStatusFailed {
		t.Errorf("expected failed after %d attempts, got %s", task.MaxAttempts, stored.Status)
	}
	if f.staged(t, task.BlobKey()) {
		t.Error("expected staged upload removed once retries are exhausted")
	}
}

func TestWorker_ProcessTask_MissingUploadFails(t *testing.T) {
	f := newFixture()
	task := domain.NewIngestTask("gone.txt", "text/plain")
	_ = f.queue.Enqueue(context.Background(), task)

	f.runOne(t)

	if len(f.retrieval.ingested()) != 0 {
		t.Error("expected no ingest without a staged upload")
	}
	if len(f.queue.Failed) != 1 {
		t.Errorf("expected task failed, got %v", f.queue.Failed)
	}
}

func TestWorker_ProcessTask_UnknownType(t *testing.T) {
	f := newFixture()
	task := domain.NewTask("reindex_everything", nil)
	_ = f.queue.Enqueue(context.Background(), task)

	f.runOne(t)

	if len(f.queue.Failed) != 1 {
		t.Errorf("expected unknown task type to fail, got failed=%v nacked=%v", f.queue.Failed, f.queue.Nacked)
	}
}

// blockingRetrieval waits for its context, like a provider that hangs
type blockingRetrieval struct {
	fakeRetrieval
}

func (b *blockingRetrieval) Ingest(ctx context.Context, _ []byte, _, _ string) (*domain.IngestResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestWorker_ProcessTask_TimeoutRetries(t *testing.T) {
	f := newFixture()
	f.worker = NewWorker(WorkerConfig{
		TaskQueue:   f.queue,
		Retrieval:   &blockingRetrieval{},
		Blobs:       f.blobs,
		TaskTimeout: 20 * time.Millisecond,
	})
	task := f.stage(t, "slow.pdf", make([]byte, 10))

	f.runOne(t)

	if len(f.queue.Nacked) != 1 {
		t.Errorf("expected timed out attempt to be retried, got nacked=%v", f.queue.Nacked)
	}
	if !f.staged(t, task.BlobKey()) {
		t.Error("expected staged upload kept for the retry")
	}
}

func TestWorker_HealthCounters(t *testing.T) {
	f := newFixture()
	f.stage(t, "a.txt", make([]byte, 20))
	f.runOne(t)

	f.retrieval.err = fmt.Errorf("%w: empty", domain.ErrEmptyChunking)
	f.stage(t, "b.txt", make([]byte, 20))
	f.runOne(t)

	f.retrieval.err = errors.New("timeout")
	f.stage(t, "c.txt", make([]byte, 20))
	f.runOne(t)

	h := f.worker.Health(context.Background())
	if h.Completed != 1 || h.Failed != 1 || h.Retried != 1 {
		t.Errorf("unexpected counters: %+v", h)
	}
}

func TestWorker_StartStop(t *testing.T) {
	f := newFixture()
	f.worker.concurrency = 2
	f.stage(t, "a.txt", make([]byte, 30))
	f.stage(t, "b.txt", make([]byte, 30))

	if err := f.worker.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	// second start is a no-op
	if err := f.worker.Start(context.Background()); err != nil {
		t.Fatalf("second start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(f.retrieval.ingested()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	f.worker.Stop()
	f.worker.Stop()

	if got := f.retrieval.ingested(); len(got) != 2 {
		t.Errorf("expected both documents ingested, got %v", got)
	}
	if f.worker.Health(context.Background()).Running {
		t.Error("expected worker not running after stop")
	}
}

func TestWorker_ContextCancellation(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())

	if err := f.worker.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	cancel()

	done := make(chan struct{})
	go func() {
		f.worker.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected worker to exit after context cancellation")
	}
}

func TestWorker_Health(t *testing.T) {
	f := newFixture()

	health := f.worker.Health(context.Background())
	if health.Running || !health.QueueHealth || health.Error != "" {
		t.Errorf("unexpected health: %+v", health)
	}

	f.queue.pingErr = errors.New("connection refused")
	health = f.worker.Health(context.Background())
	if health.QueueHealth || health.Error != "connection refused" {
		t.Errorf("expected queue error surfaced, got %+v", health)
	}
}
