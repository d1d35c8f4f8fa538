// Package chunking splits document text into overlapping fragments
// sized for embedding.
package chunking

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// boundaryWindow is the trailing share of a window searched for a cut point.
const boundaryWindow = 0.2

var sentenceEnd = regexp.MustCompile(`[.!?]\s`)

// Verify interface compliance
var _ driven.Chunker = (*WindowChunker)(nil)

// WindowChunker produces fixed-size overlapping windows, pulling each cut
// back to the nearest sentence end or line break near the window's tail.
type WindowChunker struct {
	size    int
	overlap int
	logger  *slog.Logger
}

// New returns the chunker selected by settings.ChunkStrategy.
func New(settings domain.RetrievalSettings, logger *slog.Logger) (driven.Chunker, error) {
	switch settings.ChunkStrategy {
	case domain.ChunkStrategyParagraph:
		return NewParagraphChunker(settings.ChunkSize, DefaultMinTrailingSize, logger)
	case domain.ChunkStrategyWindow, "":
		return NewWindowChunker(settings.ChunkSize, settings.ChunkOverlap, logger)
	default:
		return nil, fmt.Errorf("%w: unknown chunk strategy %q", domain.ErrConfiguration, settings.ChunkStrategy)
	}
}

// NewWindowChunker validates 0 <= overlap < size.
func NewWindowChunker(size, overlap int, logger *slog.Logger) (*WindowChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrConfiguration, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: chunk overlap %d must be less than chunk size %d", domain.ErrConfiguration, overlap, size)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WindowChunker{size: size, overlap: overlap, logger: logger}, nil
}

// Chunk splits text into fragments numbered from zero.
// Offsets are rune positions of the window in the cleaned text; the
// fragment text is the window with surrounding whitespace trimmed.
func (c *WindowChunker) Chunk(text, documentName string) []domain.Fragment {
	if strings.TrimSpace(text) == "" {
		c.logger.Warn("empty text provided for chunking", "document", documentName)
		return nil
	}

	runes := []rune(Clean(text))
	n := len(runes)

	var fragments []domain.Fragment
	start := 0
	for start < n {
		end := start + c.size
		if end < n {
			end = c.refineEnd(runes, end)
		} else {
			end = n
		}

		chunkText := strings.TrimSpace(string(runes[start:end]))
		if chunkText != "" {
			fragments = append(fragments, domain.Fragment{
				Text:           chunkText,
				SequenceIndex:  len(fragments),
				StartOffset:    start,
				EndOffset:      end,
				SourceDocument: documentName,
			})
		}

		next := end - c.overlap
		if next <= start {
			next = start + 1
		}
		start = next

		if start >= n-c.overlap {
			break
		}
	}

	c.logger.Debug("chunked document",
		"document", documentName,
		"chunks", len(fragments),
		"avg_size", averageSize(fragments))
	return fragments
}

// refineEnd looks for a cut point in the last fifth of the window ending
// at end. A sentence end wins over a newline; the cut lands just after it.
func (c *WindowChunker) refineEnd(runes []rune, end int) int {
	searchStart := end - int(float64(c.size)*boundaryWindow)
	tail := string(runes[searchStart:end])

	if locs := sentenceEnd.FindAllStringIndex(tail, -1); len(locs) > 0 {
		last := locs[len(locs)-1][0]
		return searchStart + runeCount(tail[:last]) + 1
	}
	if nl := strings.LastIndexByte(tail, '\n'); nl != -1 {
		return searchStart + runeCount(tail[:nl]) + 1
	}
	return end
}

func runeCount(s string) int {
	return len([]rune(s))
}

func averageSize(fragments []domain.Fragment) int {
	if len(fragments) == 0 {
		return 0
	}
	total := 0
	for _, f := range fragments {
		total += f.CharCount()
	}
	return total / len(fragments)
}
