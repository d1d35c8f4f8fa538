package driven

import "github.com/custodia-labs/sercha-rag/internal/core/domain"

// IndexOrigin reports how an index came into existence at startup
type IndexOrigin string

const (
	IndexOriginLoaded  IndexOrigin = "loaded"
	IndexOriginCreated IndexOrigin = "created"
)

// SimilarityIndex is an exact cosine-similarity store of fragment vectors.
// All methods are safe for concurrent use; implementations serialise them.
type SimilarityIndex interface {
	// Add appends vectors with their aligned metadata and returns the new
	// vector count. A count mismatch or any vector of the wrong dimension
	// fails with domain.ErrValidation and leaves the index untouched.
	Add(vectors [][]float32, metadata []domain.EntryMetadata) (int, error)

	// Search returns up to opts.TopK results ordered by descending score,
	// ties broken by ascending vector id. An empty index yields no results.
	Search(query []float32, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// DeleteByDocument removes every entry of the named document and
	// returns how many were removed. Removal rebuilds the store from the
	// retained entries, which costs O(n) in the total vector count.
	DeleteByDocument(name string) int

	// Save persists the index. It is not transactional across files;
	// a torn save is detected at load and degrades to an empty index.
	Save() error

	// Clear drops every entry in memory without persisting.
	Clear()

	DocumentCount() int
	TotalVectorCount() int
	ListDocuments() []string
	FragmentCount(name string) int
	Dimension() int
	Origin() IndexOrigin
}
