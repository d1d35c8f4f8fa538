package extractors

import (
	"context"
	"strings"
	"unicode/utf8"
)

// PlaintextExtractor handles plain text content.
type PlaintextExtractor struct{}

func (e *PlaintextExtractor) Extract(ctx context.Context, raw []byte, filename string) (string, error) {
	return normalizeLineEndings(decodeUTF8(raw)), nil
}

func (e *PlaintextExtractor) SupportedTypes() []string {
	return []string{"text/plain"}
}

func (e *PlaintextExtractor) Extensions() []string {
	return []string{".txt", ".text"}
}

func (e *PlaintextExtractor) Priority() int {
	return 10
}

// MarkdownExtractor handles Markdown content. Markup is left in place;
// it embeds well enough and keeps headings visible in previews.
type MarkdownExtractor struct{}

func (e *MarkdownExtractor) Extract(ctx context.Context, raw []byte, filename string) (string, error) {
	return normalizeLineEndings(decodeUTF8(raw)), nil
}

func (e *MarkdownExtractor) SupportedTypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

func (e *MarkdownExtractor) Extensions() []string {
	return []string{".md", ".markdown"}
}

func (e *MarkdownExtractor) Priority() int {
	return 50
}

func normalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// decodeUTF8 replaces invalid byte sequences instead of failing.
func decodeUTF8(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	return strings.ToValidUTF8(string(raw), "�")
}
