package domain

import (
	"math"
	"time"
)

// EntryMetadata describes one indexed vector. The JSON layout is the
// on-disk sidecar format, one object per vector in vector order.
type EntryMetadata struct {
	Text           string `json:"text"`
	SourceDocument string `json:"document_name"`
	SequenceIndex  int    `json:"chunk_index"`
	CharCount      int    `json:"char_count"`
}

// MetadataFromFragment builds the index metadata for a fragment
func MetadataFromFragment(f Fragment) EntryMetadata {
	return EntryMetadata{
		Text:           f.Text,
		SourceDocument: f.SourceDocument,
		SequenceIndex:  f.SequenceIndex,
		CharCount:      f.CharCount(),
	}
}

// IndexedEntry is a vector together with its position and metadata
type IndexedEntry struct {
	VectorID int           `json:"vector_id"`
	Vector   []float32     `json:"vector"`
	Metadata EntryMetadata `json:"metadata"`
}

// SearchOptions configures a similarity search
type SearchOptions struct {
	TopK int `json:"top_k"`

	// MinScore drops results scoring below it. Zero disables the threshold.
	MinScore float32 `json:"min_score,omitempty"`
}

// SearchResult is one ranked hit from the similarity index
type SearchResult struct {
	Rank            int           `json:"rank"` // 1-based
	SimilarityScore float32       `json:"similarity_score"`
	VectorID        int           `json:"vector_id"`
	Metadata        EntryMetadata `json:"metadata"`
}

// SourcePreview is a search hit as returned to API callers
type SourcePreview struct {
	Text            string  `json:"text"`
	DocumentName    string  `json:"document_name"`
	ChunkIndex      int     `json:"chunk_index"`
	SimilarityScore float64 `json:"similarity_score"`
}

// Answer is the response to a question
type Answer struct {
	Answer         string          `json:"answer"`
	Sources        []SourcePreview `json:"sources"`
	Question       string          `json:"question"`
	ProcessingTime float64         `json:"processing_time"` // seconds
	Generated      bool            `json:"generated"`       // false for fallback answers
}

// SearchResponse is the response of the search-only variant
type SearchResponse struct {
	Query          string          `json:"query"`
	Results        []SourcePreview `json:"results"`
	TotalResults   int             `json:"total_results"`
	ProcessingTime float64         `json:"processing_time"`
}

// IndexStats summarises the similarity index and the providers behind it
type IndexStats struct {
	TotalDocuments     int               `json:"total_documents"`
	TotalChunks        int               `json:"total_chunks"`
	Documents          []string          `json:"documents"`
	EmbeddingDimension int               `json:"embedding_dimension"`
	EmbeddingModel     string            `json:"embedding_model"`
	LLMConfigured      bool              `json:"llm_loaded"`
	LLMModel           string            `json:"llm_model,omitempty"`
	Settings           RetrievalSettings `json:"config"`
}

// PreviewText truncates text to at most maxRunes characters, appending an
// ellipsis marker when anything was cut. maxRunes <= 0 disables truncation.
func PreviewText(text string, maxRunes int) string {
	if maxRunes <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes]) + "..."
}

// RoundTo rounds v to the given number of decimal places
func RoundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Seconds converts a duration to seconds rounded to two places
func Seconds(d time.Duration) float64 {
	return RoundTo(d.Seconds(), 2)
}
