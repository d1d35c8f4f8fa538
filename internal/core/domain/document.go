package domain

import "time"

// Fragment is a bounded contiguous slice of a document's cleaned text.
// Offsets are rune offsets into the cleaned text, end exclusive.
type Fragment struct {
	Text           string `json:"text"`
	SequenceIndex  int    `json:"sequence_index"`
	StartOffset    int    `json:"start_offset"`
	EndOffset      int    `json:"end_offset"`
	SourceDocument string `json:"source_document"`
}

// CharCount returns the fragment length in characters.
func (f Fragment) CharCount() int {
	return len([]rune(f.Text))
}

// DocumentRecord is the catalog entry kept for each ingested document.
type DocumentRecord struct {
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Checksum    string    `json:"checksum"` // hex BLAKE2b-256 of the raw bytes
	ChunkCount  int       `json:"chunk_count"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// IngestResult is returned after a document has been indexed
type IngestResult struct {
	DocumentName   string  `json:"document_name"`
	TotalChunks    int     `json:"total_chunks"`
	ProcessingTime float64 `json:"processing_time"` // seconds
	Replaced       bool    `json:"replaced"`        // an earlier version was removed first
}
