package extractors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

type wildcardExtractor struct{ PlaintextExtractor }

func (e *wildcardExtractor) SupportedTypes() []string { return []string{"text/*"} }
func (e *wildcardExtractor) Extensions() []string     { return nil }
func (e *wildcardExtractor) Priority() int            { return 1 }

func typeName(v any) string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", v)
}

func TestPlaintextExtractor(t *testing.T) {
	e := &PlaintextExtractor{}
	got, err := e.Extract(context.Background(), []byte("line one\r\nline two\rline three"), "a.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "line one\nline two\nline three" {
		t.Errorf("unexpected text %q", got)
	}
}

func TestPlaintextExtractor_InvalidUTF8(t *testing.T) {
	e := &PlaintextExtractor{}
	got, err := e.Extract(context.Background(), []byte{'o', 'k', 0xff, '!'}, "a.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok�!" {
		t.Errorf("expected replacement character, got %q", got)
	}
}

func TestHTMLExtractor(t *testing.T) {
	e := &HTMLExtractor{}
	page := `<html><head><title>T</title><style>p{color:red}</style></head>` +
		`<body><h1>Heading</h1><p>First &amp; second.</p><script>alert(1)</script><p>Third</p></body></html>`

	got, err := e.Extract(context.Background(), []byte(page), "page.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Heading\n\nFirst & second.\n\nThird"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestPDFExtractor_RejectsGarbage(t *testing.T) {
	e := &PDFExtractor{}
	for _, raw := range [][]byte{
		[]byte("not a pdf at all"),
		[]byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"),
		nil,
	} {
		_, err := e.Extract(context.Background(), raw, "bad.pdf")
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("expected ErrValidation for %q, got %v", raw, err)
		}
	}
}
