package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/swaggo/swag"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Request limits
const (
	minQuestionLength = 3
	maxQuestionLength = 1000

	// multipart framing allowance on top of the file size limit
	multipartOverhead = 1 << 20

	taskPollSeconds = "2"
)

var pdfMagic = []byte("%PDF")

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// HealthResponse reports liveness and index state
// @Description Health and index status
type HealthResponse struct {
	Status         string    `json:"status" example:"healthy"`
	Timestamp      time.Time `json:"timestamp"`
	Version        string    `json:"version" example:"1.0.0"`
	IndexLoaded    bool      `json:"index_loaded"`
	TotalDocuments int       `json:"total_documents" example:"3"`
}

// ReadyResponse reports the state of each backing service
type ReadyResponse struct {
	Status string            `json:"status" example:"ready"`
	Checks map[string]string `json:"checks,omitempty"`
}

// UploadResponse is returned after a synchronous upload
// @Description Result of indexing an uploaded document
type UploadResponse struct {
	Success        bool    `json:"success" example:"true"`
	Message        string  `json:"message" example:"Successfully processed constitution.pdf"`
	DocumentName   string  `json:"document_name" example:"constitution.pdf"`
	TotalChunks    int     `json:"total_chunks" example:"412"`
	ProcessingTime float64 `json:"processing_time" example:"12.34"`
	Replaced       bool    `json:"replaced"`
}

// DeleteResponse is returned after a document is removed
type DeleteResponse struct {
	Success       bool   `json:"success" example:"true"`
	Message       string `json:"message" example:"Deleted 412 chunks for constitution.pdf"`
	DeletedChunks int    `json:"deleted_chunks" example:"412"`
}

// AskRequest is the body of POST /ask
type AskRequest struct {
	Question string `json:"question" example:"What are the fundamental rights of citizens?"`
	TopK     *int   `json:"top_k,omitempty" example:"5"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns service status together with the index size
// @Tags         Health
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   s.version,
	}
	if stats, err := s.retrieval.Stats(r.Context()); err == nil {
		resp.IndexLoaded = true
		resp.TotalDocuments = stats.TotalDocuments
	} else {
		slog.Warn("health: stats unavailable", "error", err)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings the configured Redis and PostgreSQL backends
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{Status: "ready"}
	status := http.StatusOK

	if len(s.readiness) > 0 {
		resp.Checks = make(map[string]string, len(s.readiness))
	}
	for name, p := range s.readiness {
		if err := p.Ping(r.Context()); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "not ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusNotFound, "api docs not registered")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, doc)
}

// Auth endpoints

// handleIssueToken godoc
// @Summary      Issue access token
// @Description  Exchange client credentials for a JWT bearer token
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      domain.TokenRequest  true  "Client credentials"
// @Success      200      {object}  domain.TokenResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Invalid credentials"
// @Router       /auth/token [post]
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	var req domain.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.authService.IssueToken(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Document endpoints

// handleUploadDocument godoc
// @Summary      Upload a document
// @Description  Extract, chunk, embed and index an uploaded document. Re-uploading a name replaces it.
// @Description  With async=true the document is queued and a task is returned.
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file   formData  file    true   "Document to index"
// @Param        async  query     bool    false  "Queue instead of indexing inline"
// @Success      200    {object}  UploadResponse
// @Success      202    {object}  domain.Task
// @Failure      400    {object}  ErrorResponse  "Invalid file"
// @Failure      403    {object}  ErrorResponse  "Client lacks the ingest scope"
// @Failure      409    {object}  ErrorResponse  "Document is already being ingested"
// @Failure      413    {object}  ErrorResponse  "File too large"
// @Failure      422    {object}  ErrorResponse  "No indexable text"
// @Failure      502    {object}  ErrorResponse  "Extraction or embedding failed"
// @Router       /documents [post]
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+multipartOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, s.tooLargeMessage())
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if header.Filename == "" || name == "." || name == string(filepath.Separator) {
		writeError(w, http.StatusBadRequest, "no filename provided")
		return
	}
	if !s.extractors.Supports(name) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf(
			"unsupported file type; supported: %s", strings.Join(s.extractors.Extensions(), ", ")))
		return
	}

	raw, err := io.ReadAll(io.LimitReader(file, s.maxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	if int64(len(raw)) > s.maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, s.tooLargeMessage())
		return
	}
	if strings.EqualFold(filepath.Ext(name), ".pdf") && !bytes.HasPrefix(raw, pdfMagic) {
		writeError(w, http.StatusBadRequest, "invalid PDF file: the file does not appear to be a valid PDF")
		return
	}

	contentType := header.Header.Get("Content-Type")
	slog.Info("processing upload", "document", name, "bytes", len(raw))

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		task, err := s.ingestion.Submit(r.Context(), raw, name, contentType)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, task)
		return
	}

	result, err := s.retrieval.Ingest(r.Context(), raw, name, contentType)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Success:        true,
		Message:        fmt.Sprintf("Successfully processed %s", result.DocumentName),
		DocumentName:   result.DocumentName,
		TotalChunks:    result.TotalChunks,
		ProcessingTime: result.ProcessingTime,
		Replaced:       result.Replaced,
	})
}

func (s *Server) tooLargeMessage() string {
	return fmt.Sprintf("file too large; maximum size is %dMB", s.maxUploadBytes>>20)
}

// handleGetDocument godoc
// @Summary      Get document
// @Description  Returns the catalog record of an indexed document
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        name  path      string  true  "Document name"
// @Success      200   {object}  domain.DocumentRecord
// @Failure      404   {object}  ErrorResponse  "Document not found"
// @Router       /documents/{name} [get]
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	record, err := s.retrieval.GetDocument(r.Context(), r.PathValue("name"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// handleDeleteDocument godoc
// @Summary      Delete document
// @Description  Removes a document and all of its chunks from the index
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        name  path      string  true  "Document name"
// @Success      200   {object}  DeleteResponse
// @Failure      403   {object}  ErrorResponse  "Client lacks the ingest scope"
// @Failure      404   {object}  ErrorResponse  "Document not found"
// @Failure      409   {object}  ErrorResponse  "Document is being ingested"
// @Router       /documents/{name} [delete]
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	deleted, err := s.retrieval.RemoveDocument(r.Context(), name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("document not found: %s", name))
			return
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DeleteResponse{
		Success:       true,
		Message:       fmt.Sprintf("Deleted %d chunks for %s", deleted, name),
		DeletedChunks: deleted,
	})
}

// handleGetTask godoc
// @Summary      Get ingest task
// @Description  Returns the state of an asynchronous ingest. Unsettled tasks carry a Retry-After hint.
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task ID"
// @Success      200  {object}  domain.Task
// @Failure      404  {object}  ErrorResponse  "Task not found"
// @Router       /tasks/{id} [get]
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.ingestion.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !task.Settled() {
		w.Header().Set("Retry-After", taskPollSeconds)
	}
	writeJSON(w, http.StatusOK, task)
}

// Question endpoints

// handleAsk godoc
// @Summary      Ask a question
// @Description  Retrieves the most relevant chunks and generates an answer grounded in them
// @Tags         Questions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      AskRequest  true  "Question"
// @Success      200      {object}  domain.Answer
// @Failure      400      {object}  ErrorResponse  "Invalid request"
// @Failure      502      {object}  ErrorResponse  "Embedding failed"
// @Router       /ask [post]
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// 0 lets the service apply its configured default
	topK := 0
	if req.TopK != nil {
		topK = *req.TopK
		if msg := s.validateTopK(topK); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
	}
	if msg := validateQuestion(req.Question); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	slog.Info("received question", "question", domain.PreviewText(req.Question, 100), "top_k", topK)

	answer, err := s.retrieval.Answer(r.Context(), req.Question, topK)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// handleSearch godoc
// @Summary      Search documents
// @Description  Returns the most relevant chunks without generating an answer
// @Tags         Questions
// @Produce      json
// @Security     BearerAuth
// @Param        question  query     string  true   "Search query"
// @Param        top_k     query     int     false  "Number of results (1 to MAX_TOP_K, default TOP_K)"
// @Success      200       {object}  domain.SearchResponse
// @Failure      400       {object}  ErrorResponse  "Invalid request"
// @Router       /search [get]
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	question := q.Get("question")

	topK := 0
	if raw := q.Get("top_k"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "top_k must be an integer")
			return
		}
		if msg := s.validateTopK(n); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		topK = n
	}
	if msg := validateQuestion(question); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	resp, err := s.retrieval.Search(r.Context(), question, topK)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleStats godoc
// @Summary      Index statistics
// @Description  Returns index size, indexed documents, model names and the retrieval configuration
// @Tags         Questions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.IndexStats
// @Router       /stats [get]
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.retrieval.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// validateQuestion returns a client-facing message, or "" when the
// question is acceptable.
func validateQuestion(question string) string {
	n := utf8.RuneCountInString(strings.TrimSpace(question))
	switch {
	case n < minQuestionLength:
		return fmt.Sprintf("question must be at least %d characters", minQuestionLength)
	case n > maxQuestionLength:
		return fmt.Sprintf("question must be at most %d characters", maxQuestionLength)
	}
	return ""
}

// validateTopK checks an explicit top_k against the configured bound
func (s *Server) validateTopK(topK int) string {
	if topK < 1 || topK > s.maxTopK {
		return fmt.Sprintf("top_k must be between 1 and %d", s.maxTopK)
	}
	return ""
}

// Helper functions

// writeServiceError maps domain errors to HTTP statuses
func writeServiceError(w http.ResponseWriter, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrInsufficientContent), errors.Is(err, domain.ErrEmptyChunking):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrExternalProvider):
		status = http.StatusBadGateway
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrIngestInProgress):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, domain.ErrTokenExpired):
		status = http.StatusUnauthorized
	default:
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "status", status, "error", err)
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
