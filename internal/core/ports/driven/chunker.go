package driven

import "github.com/custodia-labs/sercha-rag/internal/core/domain"

// Chunker splits cleaned document text into ordered fragments.
// Empty or whitespace-only text yields an empty slice.
type Chunker interface {
	Chunk(text, documentName string) []domain.Fragment
}
