package extractors

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// PDFExtractor reads the text layer of PDF documents page by page.
// Scanned pages without a text layer contribute nothing.
type PDFExtractor struct{}

func (e *PDFExtractor) Extract(ctx context.Context, raw []byte, filename string) (text string, err error) {
	// the parser panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: parse pdf %s: %v", domain.ErrValidation, filename, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("%w: open pdf %s: %v", domain.ErrValidation, filename, err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: read page %d of %s: %v", domain.ErrValidation, i, filename, err)
		}
		if strings.TrimSpace(pageText) != "" {
			pages = append(pages, pageText)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}

func (e *PDFExtractor) SupportedTypes() []string {
	return []string{"application/pdf", "application/x-pdf"}
}

func (e *PDFExtractor) Extensions() []string {
	return []string{".pdf"}
}

func (e *PDFExtractor) Priority() int {
	return 50
}
