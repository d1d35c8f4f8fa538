// Package index provides an exact, brute-force cosine similarity index
// persisted to a local directory.
package index

import (
	"container/heap"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SimilarityIndex = (*FlatIndex)(nil)

// FlatIndex stores L2-normalised vectors back to back in one arena, so
// the inner product of two stored rows is their cosine similarity.
// metadata[i] always describes row i. A single mutex serialises every
// operation, including Search and Save.
type FlatIndex struct {
	mu        sync.Mutex
	dir       string
	dimension int
	data      []float32
	metadata  []domain.EntryMetadata
	origin    driven.IndexOrigin
	logger    *slog.Logger
}

// New creates an empty index that saves into dir.
func New(dir string, dimension int, logger *slog.Logger) (*FlatIndex, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: embedding dimension must be positive, got %d", domain.ErrConfiguration, dimension)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FlatIndex{
		dir:       dir,
		dimension: dimension,
		metadata:  []domain.EntryMetadata{},
		origin:    driven.IndexOriginCreated,
		logger:    logger,
	}, nil
}

// Add appends vectors and their metadata. The whole batch is validated
// before anything is stored.
func (x *FlatIndex) Add(vectors [][]float32, metadata []domain.EntryMetadata) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if len(vectors) != len(metadata) {
		return x.count(), fmt.Errorf("%w: %d vectors but %d metadata entries", domain.ErrValidation, len(vectors), len(metadata))
	}
	for i, v := range vectors {
		if len(v) != x.dimension {
			return x.count(), fmt.Errorf("%w: vector %d has dimension %d, index has %d", domain.ErrValidation, i, len(v), x.dimension)
		}
	}

	grown := make([]float32, len(x.data), len(x.data)+len(vectors)*x.dimension)
	copy(grown, x.data)
	for _, v := range vectors {
		grown = append(grown, normalize(v)...)
	}
	x.data = grown
	x.metadata = append(x.metadata, metadata...)

	return x.count(), nil
}

// Search ranks every stored vector against query. Scores that are not
// comparable (NaN) never appear in the result.
func (x *FlatIndex) Search(query []float32, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	n := x.count()
	if n == 0 || opts.TopK <= 0 {
		return []domain.SearchResult{}, nil
	}
	if len(query) != x.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d", domain.ErrValidation, len(query), x.dimension)
	}

	q := normalize(query)
	k := min(opts.TopK, n)

	h := make(scoreHeap, 0, k)
	for id := 0; id < n; id++ {
		score := dot(q, x.row(id))
		if math.IsNaN(float64(score)) {
			continue
		}
		cand := scored{id: id, score: score}
		if h.Len() < k {
			heap.Push(&h, cand)
		} else if cand.beats(h[0]) {
			h[0] = cand
			heap.Fix(&h, 0)
		}
	}

	ranked := make([]scored, h.Len())
	for i := len(ranked) - 1; i >= 0; i-- {
		ranked[i] = heap.Pop(&h).(scored)
	}

	results := make([]domain.SearchResult, 0, len(ranked))
	for _, s := range ranked {
		if opts.MinScore > 0 && s.score < opts.MinScore {
			break
		}
		results = append(results, domain.SearchResult{
			Rank:            len(results) + 1,
			SimilarityScore: s.score,
			VectorID:        s.id,
			Metadata:        x.metadata[s.id],
		})
	}
	return results, nil
}

// DeleteByDocument rebuilds the arena from the entries of every other
// document, keeping their relative order and renumbering ids densely.
func (x *FlatIndex) DeleteByDocument(name string) int {
	x.mu.Lock()
	defer x.mu.Unlock()

	removed := 0
	for _, m := range x.metadata {
		if m.SourceDocument == name {
			removed++
		}
	}
	if removed == 0 {
		return 0
	}

	keep := len(x.metadata) - removed
	data := make([]float32, 0, keep*x.dimension)
	metadata := make([]domain.EntryMetadata, 0, keep)
	for id, m := range x.metadata {
		if m.SourceDocument == name {
			continue
		}
		data = append(data, x.row(id)...)
		metadata = append(metadata, m)
	}
	x.data, x.metadata = data, metadata

	x.logger.Info("removed document from index", "document", name, "vectors", removed, "remaining", keep)
	return removed
}

// Clear drops every entry in memory. The saved files are untouched.
func (x *FlatIndex) Clear() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.data = nil
	x.metadata = []domain.EntryMetadata{}
}

func (x *FlatIndex) DocumentCount() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.documentNames())
}

func (x *FlatIndex) TotalVectorCount() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.count()
}

// ListDocuments returns the distinct document names in sorted order.
func (x *FlatIndex) ListDocuments() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	names := x.documentNames()
	sort.Strings(names)
	return names
}

// FragmentCount returns how many vectors belong to the named document.
func (x *FlatIndex) FragmentCount(name string) int {
	x.mu.Lock()
	defer x.mu.Unlock()
	n := 0
	for _, m := range x.metadata {
		if m.SourceDocument == name {
			n++
		}
	}
	return n
}

func (x *FlatIndex) Dimension() int {
	return x.dimension
}

func (x *FlatIndex) Origin() driven.IndexOrigin {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.origin
}

// Dir returns the directory the index saves into.
func (x *FlatIndex) Dir() string {
	return x.dir
}

func (x *FlatIndex) count() int {
	return len(x.metadata)
}

func (x *FlatIndex) row(id int) []float32 {
	return x.data[id*x.dimension : (id+1)*x.dimension]
}

func (x *FlatIndex) documentNames() []string {
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, m := range x.metadata {
		if _, ok := seen[m.SourceDocument]; !ok {
			seen[m.SourceDocument] = struct{}{}
			names = append(names, m.SourceDocument)
		}
	}
	return names
}

// normalize returns a unit-length copy of v. A zero vector stays zero.
func normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, f := range v {
		out[i] = float32(float64(f) * inv)
	}
	return out
}

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
