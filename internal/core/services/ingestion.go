package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ensure ingestionService implements IngestionService
var _ driving.IngestionService = (*ingestionService)(nil)

// ingestionService stages uploads and hands them to the worker queue
type ingestionService struct {
	blobs  driven.DocumentBlobStore
	queue  driven.TaskQueue
	logger *slog.Logger
}

// NewIngestionService creates a new IngestionService
func NewIngestionService(blobs driven.DocumentBlobStore, queue driven.TaskQueue, logger *slog.Logger) driving.IngestionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ingestionService{blobs: blobs, queue: queue, logger: logger}
}

// Submit stages raw under the task's blob key and enqueues the task
func (s *ingestionService) Submit(ctx context.Context, raw []byte, name, contentType string) (*domain.Task, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: document name is required", domain.ErrInvalidInput)
	}

	task := domain.NewIngestTask(name, contentType)
	if err := s.blobs.Put(ctx, task.BlobKey(), raw); err != nil {
		return nil, persistenceError("stage upload", err)
	}

	if err := s.queue.Enqueue(ctx, task); err != nil {
		if derr := s.blobs.Delete(ctx, task.BlobKey()); derr != nil {
			s.logger.Warn("remove staged upload", "task_id", task.ID, "error", derr)
		}
		return nil, fmt.Errorf("enqueue ingest task: %w", err)
	}

	s.logger.Info("ingest queued", "task_id", task.ID, "document", name, "bytes", len(raw))
	return task, nil
}

// GetTask returns the task or domain.ErrNotFound
func (s *ingestionService) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: task id is required", domain.ErrInvalidInput)
	}
	return s.queue.GetTask(ctx, id)
}
