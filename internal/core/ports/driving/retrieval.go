package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// RetrievalService ingests documents and answers questions over them
type RetrievalService interface {
	// Ingest extracts, chunks, embeds and indexes raw document bytes.
	// Re-ingesting an existing name replaces its earlier fragments.
	Ingest(ctx context.Context, raw []byte, name, contentType string) (*domain.IngestResult, error)

	// Answer retrieves the most similar fragments and generates an answer.
	// topK <= 0 uses the configured default.
	Answer(ctx context.Context, question string, topK int) (*domain.Answer, error)

	// Search retrieves the most similar fragments without generating
	Search(ctx context.Context, question string, topK int) (*domain.SearchResponse, error)

	// RemoveDocument deletes a document's fragments and returns how many were removed
	RemoveDocument(ctx context.Context, name string) (int, error)

	// GetDocument returns the catalog record for an indexed document
	GetDocument(ctx context.Context, name string) (*domain.DocumentRecord, error)

	// Stats summarises the index and its providers
	Stats(ctx context.Context) (*domain.IndexStats, error)
}
