package chunking

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// DefaultMinTrailingSize drops a final merged fragment shorter than this.
const DefaultMinTrailingSize = 100

const paragraphSeparator = "\n\n"

var _ driven.Chunker = (*ParagraphChunker)(nil)

// ParagraphChunker merges whole paragraphs up to the size limit.
// Paragraphs are never split, so a single long paragraph becomes one
// oversized fragment.
type ParagraphChunker struct {
	size        int
	minTrailing int
	logger      *slog.Logger
}

func NewParagraphChunker(size, minTrailing int, logger *slog.Logger) (*ParagraphChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrConfiguration, size)
	}
	if minTrailing < 0 {
		minTrailing = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ParagraphChunker{size: size, minTrailing: minTrailing, logger: logger}, nil
}

type paragraphSpan struct {
	start, end int // rune offsets in the cleaned text
}

func (c *ParagraphChunker) Chunk(text, documentName string) []domain.Fragment {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	cleaned := Clean(text)
	runes := []rune(cleaned)
	spans := splitParagraphs(cleaned)

	var fragments []domain.Fragment
	emit := func(group []paragraphSpan) {
		start, end := group[0].start, group[len(group)-1].end
		fragments = append(fragments, domain.Fragment{
			Text:           string(runes[start:end]),
			SequenceIndex:  len(fragments),
			StartOffset:    start,
			EndOffset:      end,
			SourceDocument: documentName,
		})
	}

	var current []paragraphSpan
	currentSize := 0
	for _, p := range spans {
		paraSize := p.end - p.start
		if len(current) > 0 && currentSize+paraSize > c.size {
			emit(current)
			current = nil
			currentSize = 0
		}
		current = append(current, p)
		currentSize += paraSize + len(paragraphSeparator)
	}

	if len(current) > 0 {
		start, end := current[0].start, current[len(current)-1].end
		if end-start >= c.minTrailing {
			emit(current)
		} else {
			c.logger.Debug("dropped short trailing fragment", "document", documentName, "size", end-start)
		}
	}

	c.logger.Debug("chunked document by paragraph", "document", documentName, "chunks", len(fragments))
	return fragments
}

// splitParagraphs returns the rune spans of the non-blank paragraphs,
// with surrounding whitespace excluded from each span.
func splitParagraphs(cleaned string) []paragraphSpan {
	var spans []paragraphSpan
	offset := 0
	for _, part := range strings.Split(cleaned, paragraphSeparator) {
		partRunes := []rune(part)
		lead := len(partRunes) - len([]rune(strings.TrimLeftFunc(part, unicode.IsSpace)))
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			start := offset + lead
			spans = append(spans, paragraphSpan{start: start, end: start + len([]rune(trimmed))})
		}
		offset += len(partRunes) + len(paragraphSeparator)
	}
	return spans
}
