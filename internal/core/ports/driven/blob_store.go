package driven

import "context"

// DocumentBlobStore keeps the raw bytes of uploaded documents.
type DocumentBlobStore interface {
	// Put stores raw under name, replacing any earlier content.
	Put(ctx context.Context, name string, raw []byte) error

	// Get returns the stored bytes or domain.ErrNotFound.
	Get(ctx context.Context, name string) ([]byte, error)

	// Delete removes name. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// Exists reports whether name is stored.
	Exists(ctx context.Context, name string) (bool, error)
}
