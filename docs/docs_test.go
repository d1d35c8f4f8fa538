package docs

import (
	"encoding/json"
	"testing"

	"github.com/swaggo/swag"
)

func TestReadDoc(t *testing.T) {
	doc, err := swag.ReadDoc()
	if err != nil {
		t.Fatalf("expected registered docs, got %v", err)
	}

	var parsed struct {
		BasePath string                    `json:"basePath"`
		Paths    map[string]map[string]any `json:"paths"`
	}
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		t.Fatalf("expected valid JSON, got %v", err)
	}
	if parsed.BasePath != "/api/v1" {
		t.Errorf("expected base path /api/v1, got %q", parsed.BasePath)
	}
	for _, path := range []string{"/ask", "/search", "/documents", "/documents/{name}", "/tasks/{id}", "/stats"} {
		if _, ok := parsed.Paths[path]; !ok {
			t.Errorf("expected path %s documented", path)
		}
	}
}
