// Package extractors turns uploaded files into plain text.
package extractors

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry selects extractors by MIME type first and file extension second.
// When several match, the highest priority wins.
type Registry struct {
	mu         sync.RWMutex
	extractors []driven.TextExtractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make([]driven.TextExtractor, 0),
	}
}

// DefaultRegistry creates a registry with every built-in extractor.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&PDFExtractor{})
	r.Register(&PlaintextExtractor{})
	r.Register(&MarkdownExtractor{})
	r.Register(&HTMLExtractor{})
	return r
}

func (r *Registry) Register(extractor driven.TextExtractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors = append(r.extractors, extractor)
}

// Get returns the best extractor for contentType, or for filename's
// extension when the content type is missing, generic, or unknown.
func (r *Registry) Get(contentType, filename string) driven.TextExtractor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if best := r.best(func(e driven.TextExtractor) bool {
		return matchesMIMEType(e.SupportedTypes(), contentType)
	}); best != nil {
		return best
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return nil
	}
	return r.best(func(e driven.TextExtractor) bool {
		return hasExtension(e.Extensions(), ext)
	})
}

// Supports reports whether filename carries a registered extension.
func (r *Registry) Supports(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.extractors {
		if hasExtension(e.Extensions(), ext) {
			return true
		}
	}
	return false
}

// Extensions returns every registered extension, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := make(map[string]struct{})
	for _, e := range r.extractors {
		for _, ext := range e.Extensions() {
			set[ext] = struct{}{}
		}
	}
	exts := make([]string, 0, len(set))
	for ext := range set {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func (r *Registry) best(match func(driven.TextExtractor) bool) driven.TextExtractor {
	var best driven.TextExtractor
	for _, e := range r.extractors {
		if match(e) && (best == nil || e.Priority() > best.Priority()) {
			best = e
		}
	}
	return best
}

// genericTypes say nothing about the format, so the extension decides.
var genericTypes = map[string]bool{
	"":                         true,
	"application/octet-stream": true,
	"binary/octet-stream":      true,
}

// matchesMIMEType checks if any of the supported types match the given MIME type.
// Supports wildcard matching (e.g., "text/*" matches "text/plain").
func matchesMIMEType(supportedTypes []string, mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(mimeType, ";"); idx != -1 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	if genericTypes[mimeType] {
		return false
	}

	for _, supported := range supportedTypes {
		supported = strings.ToLower(strings.TrimSpace(supported))
		if supported == mimeType {
			return true
		}
		if strings.HasSuffix(supported, "/*") && strings.HasPrefix(mimeType, supported[:len(supported)-1]) {
			return true
		}
	}
	return false
}

func hasExtension(exts []string, ext string) bool {
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}
