package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFragment_CharCount(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected int
	}{
		{"empty", "", 0},
		{"ascii", "Article 21", 10},
		{"devanagari", "नेपाल", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Fragment{Text: tt.text}
			if got := f.CharCount(); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestIngestResult_JSONFields(t *testing.T) {
	data, err := json.Marshal(IngestResult{DocumentName: "a.pdf", TotalChunks: 3, ProcessingTime: 1.25})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	for _, field := range []string{`"document_name":"a.pdf"`, `"total_chunks":3`, `"processing_time":1.25`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("expected %s in %s", field, data)
		}
	}
}
