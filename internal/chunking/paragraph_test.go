package chunking

import (
	"strings"
	"testing"
)

func TestParagraphChunker_MergesUpToSize(t *testing.T) {
	c, err := NewParagraphChunker(500, DefaultMinTrailingSize, nil)
	if err != nil {
		t.Fatal(err)
	}
	p1 := strings.Repeat("a", 300)
	p2 := strings.Repeat("b", 150)
	p3 := strings.Repeat("c", 300)
	text := p1 + "\n\n" + p2 + "\n\n" + p3

	got := c.Chunk(text, "doc")
	if len(got) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(got))
	}
	if got[0].Text != p1+"\n\n"+p2 {
		t.Errorf("expected first two paragraphs merged")
	}
	if got[0].StartOffset != 0 || got[0].EndOffset != 452 {
		t.Errorf("unexpected offsets [%d,%d)", got[0].StartOffset, got[0].EndOffset)
	}
	if got[1].Text != p3 || got[1].StartOffset != 454 || got[1].EndOffset != 754 {
		t.Errorf("unexpected trailing fragment %+v", got[1])
	}
}

func TestParagraphChunker_OffsetsMatchText(t *testing.T) {
	c, _ := NewParagraphChunker(120, 0, nil)
	text := "First paragraph here.\n\nSecond one, a little longer than the first.\n\n\n\nThird after extra blank lines.\n\nFourth."
	cleaned := []rune(Clean(text))

	for _, f := range c.Chunk(text, "doc") {
		if string(cleaned[f.StartOffset:f.EndOffset]) != f.Text {
			t.Errorf("fragment %d text does not match its offsets", f.SequenceIndex)
		}
	}
}

func TestParagraphChunker_DropsShortTrailing(t *testing.T) {
	c, _ := NewParagraphChunker(500, DefaultMinTrailingSize, nil)
	text := strings.Repeat("a", 450) + "\n\n" + strings.Repeat("b", 50)

	got := c.Chunk(text, "doc")
	if len(got) != 1 {
		t.Fatalf("expected trailing short paragraph to be dropped, got %d fragments", len(got))
	}
}

func TestParagraphChunker_NeverSplitsParagraph(t *testing.T) {
	c, _ := NewParagraphChunker(100, 0, nil)
	long := strings.Repeat("z", 250)

	got := c.Chunk(long, "doc")
	if len(got) != 1 || got[0].Text != long {
		t.Fatalf("expected one oversized fragment, got %d", len(got))
	}
}

func TestParagraphChunker_Empty(t *testing.T) {
	c, _ := NewParagraphChunker(100, 0, nil)
	if got := c.Chunk("  \n\n ", "doc"); len(got) != 0 {
		t.Errorf("expected no fragments, got %d", len(got))
	}
}
