package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/runtime"
)

// Ensure retrievalService implements RetrievalService
var _ driving.RetrievalService = (*retrievalService)(nil)

const (
	// NoResultsAnswer is returned when the index has nothing relevant
	NoResultsAnswer = "I couldn't find any relevant information in the indexed documents. " +
		"Please make sure documents have been uploaded and try rephrasing your question."

	apologyFormat = "I apologize, but I encountered an error generating the response: %v"

	// DefaultIngestLockTTL bounds how long one ingest may hold a document name
	DefaultIngestLockTTL = 10 * time.Minute
)

var errNoGenerator = errors.New("no generation model is configured")

// RetrievalDeps are the collaborators of the retrieval service.
// Catalog is optional.
type RetrievalDeps struct {
	Index      driven.SimilarityIndex
	Chunker    driven.Chunker
	Extractors driven.ExtractorRegistry
	Models     *runtime.Services
	Blobs      driven.DocumentBlobStore
	Catalog    driven.DocumentCatalog
	Lock       driven.DistributedLock
}

// RetrievalConfig tunes the retrieval service
type RetrievalConfig struct {
	Settings domain.RetrievalSettings
	LockTTL  time.Duration
	Selector TemplateSelector
	Logger   *slog.Logger
}

// retrievalService implements the RetrievalService interface
type retrievalService struct {
	RetrievalDeps

	settings domain.RetrievalSettings
	lockTTL  time.Duration
	prompts  *PromptBuilder
	logger   *slog.Logger
}

// NewRetrievalService wires the ingest and query pipelines
func NewRetrievalService(deps RetrievalDeps, cfg RetrievalConfig) driving.RetrievalService {
	if cfg.Settings.ChunkSize == 0 {
		cfg.Settings = domain.DefaultRetrievalSettings()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultIngestLockTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &retrievalService{
		RetrievalDeps: deps,
		settings:      cfg.Settings,
		lockTTL:       cfg.LockTTL,
		prompts:       NewPromptBuilder(cfg.Selector),
		logger:        cfg.Logger,
	}
}

func ingestLockName(name string) string {
	return "ingest:" + name
}

// withProviderTimeout bounds one provider call
func (s *retrievalService) withProviderTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.settings.ProviderTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.settings.ProviderTimeout)
}

func persistenceError(op string, err error) error {
	if errors.Is(err, domain.ErrPersistence) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrPersistence, op, err)
}

func checksum(raw []byte) string {
	sum := blake2b.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// lockDocument takes the per-document lock and returns its release func
func (s *retrievalService) lockDocument(ctx context.Context, name string) (func(), error) {
	lockName := ingestLockName(name)
	ok, err := s.Lock.Acquire(ctx, lockName, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire document lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrIngestInProgress, name)
	}
	return func() {
		if err := s.Lock.Release(context.WithoutCancel(ctx), lockName); err != nil {
			s.logger.Warn("release document lock", "document", name, "error", err)
		}
	}, nil
}

// Ingest extracts, chunks, embeds and indexes one document
func (s *retrievalService) Ingest(ctx context.Context, raw []byte, name, contentType string) (*domain.IngestResult, error) {
	start := time.Now()
	if name == "" {
		return nil, fmt.Errorf("%w: document name is required", domain.ErrInvalidInput)
	}

	unlock, err := s.lockDocument(ctx, name)
	if err != nil {
		return nil, err
	}
	defer unlock()

	text, err := s.extract(ctx, raw, name, contentType)
	if err != nil {
		return nil, err
	}
	if n := len([]rune(strings.TrimSpace(text))); n < s.settings.MinContentLength {
		return nil, fmt.Errorf("%w: %s yielded %d characters; it may be scanned or image-based",
			domain.ErrInsufficientContent, name, n)
	}

	fragments := s.Chunker.Chunk(text, name)
	if len(fragments) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyChunking, name)
	}

	vectors, err := s.embedFragments(ctx, fragments)
	if err != nil {
		return nil, err
	}

	metadata := make([]domain.EntryMetadata, len(fragments))
	for i, f := range fragments {
		metadata[i] = domain.MetadataFromFragment(f)
	}

	// checked before the previous version is dropped
	dim := s.Index.Dimension()
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, index expects %d",
				domain.ErrValidation, i, len(v), dim)
		}
	}

	// the store also vets the name, so a rejection leaves the index as it was
	if err := s.Blobs.Put(ctx, name, raw); err != nil {
		return nil, persistenceError("store document", err)
	}

	removed := s.Index.DeleteByDocument(name)
	if _, err := s.Index.Add(vectors, metadata); err != nil {
		return nil, fmt.Errorf("index %s: %w", name, err)
	}
	if err := s.Index.Save(); err != nil {
		return nil, persistenceError("save index", err)
	}

	if s.Catalog != nil {
		rec := &domain.DocumentRecord{
			Name:        name,
			ContentType: contentType,
			SizeBytes:   int64(len(raw)),
			Checksum:    checksum(raw),
			ChunkCount:  len(fragments),
			IngestedAt:  time.Now().UTC(),
		}
		if err := s.Catalog.Save(ctx, rec); err != nil {
			s.logger.Warn("catalog update failed", "document", name, "error", err)
		}
	}

	result := &domain.IngestResult{
		DocumentName:   name,
		TotalChunks:    len(fragments),
		ProcessingTime: domain.Seconds(time.Since(start)),
		Replaced:       removed > 0,
	}
	s.logger.Info("document indexed",
		"document", name,
		"chunks", result.TotalChunks,
		"replaced_chunks", removed,
		"seconds", result.ProcessingTime,
	)
	return result, nil
}

func (s *retrievalService) extract(ctx context.Context, raw []byte, name, contentType string) (string, error) {
	extractor := s.Extractors.Get(contentType, name)
	if extractor == nil {
		return "", fmt.Errorf("%w: unsupported document type %q", domain.ErrInvalidInput, name)
	}

	ectx, cancel := s.withProviderTimeout(ctx)
	defer cancel()

	text, err := extractor.Extract(ectx, raw, name)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidInput):
		// the upload itself is bad
		return "", fmt.Errorf("extract %s: %w", name, err)
	default:
		return "", fmt.Errorf("%w: extract %s: %w", domain.ErrExternalProvider, name, err)
	}
	return text, nil
}

func (s *retrievalService) embedFragments(ctx context.Context, fragments []domain.Fragment) ([][]float32, error) {
	texts := make([]string, len(fragments))
	for i, f := range fragments {
		texts[i] = f.Text
	}

	ectx, cancel := s.withProviderTimeout(ctx)
	defer cancel()

	vectors, err := s.Models.EmbeddingService().Embed(ectx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: embed fragments: %w", domain.ErrExternalProvider, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: embedded %d of %d fragments", domain.ErrExternalProvider, len(vectors), len(texts))
	}
	return vectors, nil
}

// retrieve embeds the question and searches the index
func (s *retrievalService) retrieve(ctx context.Context, question string, topK int) ([]domain.SearchResult, error) {
	ectx, cancel := s.withProviderTimeout(ctx)
	vector, err := s.Models.EmbeddingService().EmbedQuery(ectx, question)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: embed question: %w", domain.ErrExternalProvider, err)
	}

	return s.Index.Search(vector, domain.SearchOptions{
		TopK:     s.settings.ClampTopK(topK),
		MinScore: s.settings.MinScore,
	})
}

func (s *retrievalService) previews(results []domain.SearchResult) []domain.SourcePreview {
	out := make([]domain.SourcePreview, len(results))
	for i, r := range results {
		out[i] = domain.SourcePreview{
			Text:            domain.PreviewText(r.Metadata.Text, s.settings.PreviewLength),
			DocumentName:    r.Metadata.SourceDocument,
			ChunkIndex:      r.Metadata.SequenceIndex,
			SimilarityScore: domain.RoundTo(float64(r.SimilarityScore), s.settings.ScorePrecision),
		}
	}
	return out
}

func normalizeQuestion(question string) (string, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return "", fmt.Errorf("%w: question is empty", domain.ErrValidation)
	}
	return q, nil
}

// Answer retrieves context and generates an answer. Generation failures
// are reported in the answer text, not as errors.
func (s *retrievalService) Answer(ctx context.Context, question string, topK int) (*domain.Answer, error) {
	start := time.Now()
	q, err := normalizeQuestion(question)
	if err != nil {
		return nil, err
	}

	results, err := s.retrieve(ctx, q, topK)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &domain.Answer{
			Answer:         NoResultsAnswer,
			Sources:        []domain.SourcePreview{},
			Question:       question,
			ProcessingTime: domain.Seconds(time.Since(start)),
		}, nil
	}

	text, err := s.generate(ctx, s.prompts.Build(q, results))
	generated := err == nil
	if err != nil {
		s.logger.Error("answer generation failed", "error", err, "sources", len(results))
		text = fmt.Sprintf(apologyFormat, err)
	}

	return &domain.Answer{
		Answer:         text,
		Sources:        s.previews(results),
		Question:       question,
		ProcessingTime: domain.Seconds(time.Since(start)),
		Generated:      generated,
	}, nil
}

func (s *retrievalService) generate(ctx context.Context, prompt string) (string, error) {
	llm := s.Models.LLMService()
	if llm == nil {
		return "", errNoGenerator
	}

	gctx, cancel := s.withProviderTimeout(ctx)
	defer cancel()

	text, err := llm.Generate(gctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Search is Answer without generation
func (s *retrievalService) Search(ctx context.Context, question string, topK int) (*domain.SearchResponse, error) {
	start := time.Now()
	q, err := normalizeQuestion(question)
	if err != nil {
		return nil, err
	}

	results, err := s.retrieve(ctx, q, topK)
	if err != nil {
		return nil, err
	}

	return &domain.SearchResponse{
		Query:          question,
		Results:        s.previews(results),
		TotalResults:   len(results),
		ProcessingTime: domain.Seconds(time.Since(start)),
	}, nil
}

// RemoveDocument drops a document from the index, blob store and catalog
func (s *retrievalService) RemoveDocument(ctx context.Context, name string) (int, error) {
	unlock, err := s.lockDocument(ctx, name)
	if err != nil {
		return 0, err
	}
	defer unlock()

	removed := s.Index.DeleteByDocument(name)
	if removed == 0 {
		return 0, fmt.Errorf("%w: document %s", domain.ErrNotFound, name)
	}
	if err := s.Index.Save(); err != nil {
		return 0, persistenceError("save index", err)
	}

	if err := s.Blobs.Delete(ctx, name); err != nil {
		s.logger.Warn("delete stored document", "document", name, "error", err)
	}
	if s.Catalog != nil {
		if err := s.Catalog.Delete(ctx, name); err != nil {
			s.logger.Warn("delete catalog record", "document", name, "error", err)
		}
	}

	s.logger.Info("document removed", "document", name, "chunks", removed)
	return removed, nil
}

// GetDocument prefers the catalog and falls back to what the index and
// blob store know about the document.
func (s *retrievalService) GetDocument(ctx context.Context, name string) (*domain.DocumentRecord, error) {
	if s.Catalog != nil {
		rec, err := s.Catalog.Get(ctx, name)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	chunks := s.Index.FragmentCount(name)
	if chunks == 0 {
		return nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, name)
	}

	rec := &domain.DocumentRecord{Name: name, ChunkCount: chunks}
	if raw, err := s.Blobs.Get(ctx, name); err == nil {
		rec.SizeBytes = int64(len(raw))
		rec.Checksum = checksum(raw)
	}
	return rec, nil
}

// Stats summarises the index and the configured providers
func (s *retrievalService) Stats(_ context.Context) (*domain.IndexStats, error) {
	docs := s.Index.ListDocuments()
	if docs == nil {
		docs = []string{}
	}

	stats := &domain.IndexStats{
		TotalDocuments:     len(docs),
		TotalChunks:        s.Index.TotalVectorCount(),
		Documents:          docs,
		EmbeddingDimension: s.Index.Dimension(),
		EmbeddingModel:     s.Models.EmbeddingService().Model(),
		Settings:           s.settings,
	}
	if llm := s.Models.LLMService(); llm != nil {
		stats.LLMConfigured = true
		stats.LLMModel = llm.Model()
	}
	return stats, nil
}
