package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// IngestionService queues documents for background indexing
type IngestionService interface {
	// Submit stages the raw bytes and enqueues an ingest task
	Submit(ctx context.Context, raw []byte, name, contentType string) (*domain.Task, error)

	// GetTask returns the current state of an ingest task
	GetTask(ctx context.Context, id string) (*domain.Task, error)
}
