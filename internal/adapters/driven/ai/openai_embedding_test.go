package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestNewOpenAIEmbedding_Defaults(t *testing.T) {
	emb, err := NewOpenAIEmbedding("sk-test", "", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emb.model != "text-embedding-3-small" {
		t.Errorf("expected default model text-embedding-3-small, got %s", emb.model)
	}
	if emb.baseURL != "https://api.openai.com/v1" {
		t.Errorf("expected default base URL, got %s", emb.baseURL)
	}
}

func TestNewOpenAIEmbedding_Dimensions(t *testing.T) {
	testCases := []struct {
		model      string
		override   int
		dimensions int
	}{
		{"text-embedding-3-small", 0, 1536},
		{"text-embedding-3-large", 0, 3072},
		{"all-minilm", 0, 384},
		{"custom-model", 512, 512},
		{"text-embedding-3-large", 256, 256},
	}

	for _, tc := range testCases {
		t.Run(tc.model, func(t *testing.T) {
			emb, err := NewOpenAIEmbedding("sk-test", tc.model, "", tc.override)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if emb.Dimensions() != tc.dimensions {
				t.Errorf("expected %d dimensions, got %d", tc.dimensions, emb.Dimensions())
			}
		})
	}
}

func TestNewOpenAIEmbedding_UnknownModelNeedsDimensions(t *testing.T) {
	_, err := NewOpenAIEmbedding("sk-test", "custom-model", "", 0)
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

// wireRequest is the part of the embeddings request body the tests inspect
type wireRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions"`
}

func TestOpenAIEmbedding_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("expected /embeddings, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}

		var req wireRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Input) != 2 {
			t.Errorf("expected 2 inputs, got %d", len(req.Input))
		}

		// reversed order, client must reorder by index
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float32{0, 1, 0}},
				{"index": 0, "embedding": []float32{1, 0, 0}},
			},
			"model": req.Model,
		})
	}))
	defer server.Close()

	emb, err := NewOpenAIEmbedding("sk-test", "custom-model", server.URL+"/", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	vecs, err := emb.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("embeddings not ordered by index: %v", vecs)
	}
}

func TestOpenAIEmbedding_EmptyInput(t *testing.T) {
	emb, _ := NewOpenAIEmbedding("sk-test", "", "http://unused.invalid", 0)

	_, err := emb.Embed(context.Background(), []string{"ok", "   "})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	_, err = emb.EmbedQuery(context.Background(), "")
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestOpenAIEmbedding_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid API key","type":"invalid_request_error","code":"invalid_api_key"}}`))
	}))
	defer server.Close()

	emb, _ := NewOpenAIEmbedding("bad-key", "", server.URL, 0)
	if _, err := emb.Embed(context.Background(), []string{"text"}); err == nil {
		t.Error("expected error for API error response")
	}
}

func TestOpenAIEmbedding_WrongDimension(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1,2]}]}`))
	}))
	defer server.Close()

	emb, _ := NewOpenAIEmbedding("sk-test", "custom-model", server.URL, 3)
	if _, err := emb.EmbedQuery(context.Background(), "text"); err == nil {
		t.Error("expected error for wrong dimension")
	}
}

func TestOpenAIEmbedding_RequestsShortenedVectors(t *testing.T) {
	var got wireRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		vec := make([]float32, 256)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"index": 0, "embedding": vec}},
		})
	}))
	defer server.Close()

	emb, err := NewOpenAIEmbedding("sk-test", "text-embedding-3-large", server.URL, 256)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := emb.EmbedQuery(context.Background(), "Article 17"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Dimensions != 256 || got.Model != "text-embedding-3-large" {
		t.Errorf("expected shortened request, got %+v", got)
	}
}

func TestOpenAIEmbedding_OllamaModelSendsNoDimensions(t *testing.T) {
	var got wireRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"index": 0, "embedding": make([]float32, 768)}},
		})
	}))
	defer server.Close()

	emb, _ := NewOpenAIEmbedding("", "nomic-embed-text", server.URL+"/v1", 0)
	if _, err := emb.EmbedQuery(context.Background(), "fundamental rights"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Dimensions != 0 {
		t.Errorf("expected no dimensions field, got %d", got.Dimensions)
	}
}
