package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// DocumentCatalog records metadata about ingested documents.
type DocumentCatalog interface {
	// Save creates or replaces the record for rec.Name
	Save(ctx context.Context, rec *domain.DocumentRecord) error

	// Get returns the record or domain.ErrNotFound
	Get(ctx context.Context, name string) (*domain.DocumentRecord, error)

	// List returns every record ordered by name
	List(ctx context.Context) ([]*domain.DocumentRecord, error)

	// Delete removes the record. Missing records are not an error.
	Delete(ctx context.Context, name string) error
}
