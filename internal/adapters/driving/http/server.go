package http

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	maxUploadBytes int64
	maxTopK        int
	allowedOrigins []string

	// Services
	retrieval   driving.RetrievalService
	ingestion   driving.IngestionService
	authService driving.AuthService // nil disables authentication
	extractors  driven.ExtractorRegistry

	// Infrastructure checked by /ready, keyed by name
	readiness map[string]Pinger
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	MaxUploadBytes int64
	AllowedOrigins []string
	MaxTopK        int // upper bound for top_k; omitted top_k uses the service default
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8000,
		Version:        "dev",
		MaxUploadBytes: 50 << 20,
		AllowedOrigins: []string{"*"},
		MaxTopK:        domain.DefaultRetrievalSettings().MaxTopK,
	}
}

// Services bundles what the handlers call into
type Services struct {
	Retrieval  driving.RetrievalService
	Ingestion  driving.IngestionService
	Auth       driving.AuthService // optional
	Extractors driven.ExtractorRegistry
	Readiness  map[string]Pinger // optional, e.g. "redis", "postgres"
	Logger     *slog.Logger      // defaults to slog.Default()
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, svc Services) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultConfig().MaxUploadBytes
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = DefaultConfig().MaxTopK
	}

	logger := svc.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:         http.NewServeMux(),
		version:        cfg.Version,
		logger:         logger,
		maxUploadBytes: cfg.MaxUploadBytes,
		maxTopK:        cfg.MaxTopK,
		allowedOrigins: cfg.AllowedOrigins,
		retrieval:      svc.Retrieval,
		ingestion:      svc.Ingestion,
		authService:    svc.Auth,
		extractors:     svc.Extractors,
		readiness:      svc.Readiness,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute, // generation on CPU-bound models is slow
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// Handler returns the router wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	return Chain(s.router,
		Recover(s.logger),
		WithRequestID,
		LogRequests(s.logger),
		CORS(s.allowedOrigins),
	)
}

// protect requires a token granting scope when authentication is enabled
func (s *Server) protect(scope string, h http.HandlerFunc) http.Handler {
	if s.authService == nil {
		return h
	}
	return RequireToken(s.authService, scope)(h)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.HandleFunc("GET /api/docs/doc.json", s.handleDocs)

	if s.authService != nil {
		s.router.HandleFunc("POST /api/v1/auth/token", s.handleIssueToken)
	}

	// Documents
	s.router.Handle("POST /api/v1/documents", s.protect(domain.ScopeIngest, s.handleUploadDocument))
	s.router.Handle("GET /api/v1/documents/{name}", s.protect(domain.ScopeQuery, s.handleGetDocument))
	s.router.Handle("DELETE /api/v1/documents/{name}", s.protect(domain.ScopeIngest, s.handleDeleteDocument))
	s.router.Handle("GET /api/v1/tasks/{id}", s.protect(domain.ScopeIngest, s.handleGetTask))

	// Questions
	s.router.Handle("POST /api/v1/ask", s.protect(domain.ScopeQuery, s.handleAsk))
	s.router.Handle("GET /api/v1/search", s.protect(domain.ScopeQuery, s.handleSearch))
	s.router.Handle("GET /api/v1/stats", s.protect(domain.ScopeQuery, s.handleStats))
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
