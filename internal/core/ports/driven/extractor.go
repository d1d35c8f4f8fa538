package driven

import "context"

// TextExtractor turns raw uploaded bytes into plain text.
// Unreadable input may yield an empty string rather than an error;
// the caller decides whether that is enough content.
type TextExtractor interface {
	// Extract returns the text content of raw. filename is a hint only.
	Extract(ctx context.Context, raw []byte, filename string) (string, error)

	// SupportedTypes returns MIME types this extractor handles.
	// Can include wildcards like "text/*".
	SupportedTypes() []string

	// Extensions returns the lower-case file extensions (with dot) used
	// when no MIME type matches.
	Extensions() []string

	// Priority returns the extractor priority (higher = more specific).
	Priority() int
}

// ExtractorRegistry picks an extractor for an upload.
type ExtractorRegistry interface {
	// Get returns the best extractor for the MIME type, falling back to
	// the filename's extension. Returns nil when nothing matches.
	Get(contentType, filename string) TextExtractor

	// Register adds an extractor.
	Register(extractor TextExtractor)

	// Supports reports whether filename has a registered extension.
	Supports(filename string) bool

	// Extensions lists every registered extension, sorted.
	Extensions() []string
}
