package main

// @title           Sercha RAG API
// @version         1.0
// @description     Retrieval-augmented question answering over uploaded legal documents.

// @contact.name   Sercha OSS
// @contact.url    https://github.com/custodia-labs/sercha-rag/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8000
// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"

	_ "github.com/custodia-labs/sercha-rag/docs"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/auth"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/blob"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/index"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/memory"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/postgres"
	memoryqueue "github.com/custodia-labs/sercha-rag/internal/adapters/driven/queue/memory"
	pgqueue "github.com/custodia-labs/sercha-rag/internal/adapters/driven/queue/postgres"
	redisqueue "github.com/custodia-labs/sercha-rag/internal/adapters/driven/queue/redis"
	redisadapter "github.com/custodia-labs/sercha-rag/internal/adapters/driven/redis"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/http"
	"github.com/custodia-labs/sercha-rag/internal/chunking"
	"github.com/custodia-labs/sercha-rag/internal/config"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/extractors"
	"github.com/custodia-labs/sercha-rag/internal/runtime"
	"github.com/custodia-labs/sercha-rag/internal/worker"
)

var version = "dev"

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Command line arg overrides RUN_MODE
	if len(os.Args) > 1 {
		cfg.RunMode = os.Args[1]
		if err := cfg.Validate(); err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}
	}

	setupLogger(cfg.Log)
	log.Printf("sercha-rag %s starting in %s mode", version, cfg.RunMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	readiness := make(map[string]http.Pinger)

	// ===== Initialize Redis (optional) =====
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		log.Println("Connecting to Redis...")
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("Redis connected")
	}

	// ===== Initialize PostgreSQL (optional) =====
	var db *postgres.DB
	if cfg.DatabaseURL != "" {
		log.Println("Connecting to PostgreSQL...")
		db, err = postgres.Connect(ctx, postgres.DefaultConfig(cfg.DatabaseURL))
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.InitSchema(ctx); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
		readiness["postgres"] = db
		log.Println("PostgreSQL connected and schema initialized")
	}

	// ===== Model handles =====
	models := setupModels(ctx, cfg, redisClient)
	defer models.Close()

	// ===== Similarity index =====
	dimension := models.EmbeddingService().Dimensions()
	idx, err := index.LoadOrCreate(cfg.IndexDir(), dimension, slog.Default())
	if err != nil {
		log.Fatalf("Failed to open index: %v", err)
	}
	log.Printf("Index ready: %d vectors from %d documents (dimension=%d)",
		idx.TotalVectorCount(), idx.DocumentCount(), dimension)

	chunker, err := chunking.New(cfg.Retrieval, slog.Default())
	if err != nil {
		log.Fatalf("Failed to create chunker: %v", err)
	}

	blobs, err := blob.NewFileStore(cfg.DocumentsDir())
	if err != nil {
		log.Fatalf("Failed to open document store: %v", err)
	}

	// ===== Document catalog (PostgreSQL if available) =====
	var catalog driven.DocumentCatalog
	if db != nil {
		catalog = postgres.NewDocumentCatalog(db)
		log.Println("Using PostgreSQL document catalog")
	}

	// ===== Ingest lock (Redis, then PostgreSQL advisory locks, then in-process) =====
	var lock driven.DistributedLock
	switch {
	case redisClient != nil:
		redisLock := redisadapter.NewLock(redisClient)
		readiness["redis"] = redisLock
		lock = redisLock
		log.Println("Using Redis distributed lock")
	case db != nil:
		lock = postgres.NewAdvisoryLock(db)
		log.Println("Using PostgreSQL advisory lock")
	default:
		lock = memory.NewLock()
		log.Println("Using in-process lock")
	}

	// ===== Task queue (Redis, then PostgreSQL, otherwise in-process) =====
	var taskQueue driven.TaskQueue
	switch {
	case redisClient != nil:
		taskQueue, err = redisqueue.NewQueue(redisClient, slog.Default())
		if err != nil {
			log.Fatalf("Failed to create task queue: %v", err)
		}
		log.Println("Using Redis task queue")
	case db != nil:
		taskQueue = pgqueue.NewQueue(db.DB)
		log.Println("Using PostgreSQL task queue")
	default:
		taskQueue = memoryqueue.NewQueue()
		log.Println("Using in-process task queue")
	}
	defer taskQueue.Close()

	var selector services.TemplateSelector = services.DefaultTemplateSelector{}
	if cfg.PromptSelector == "procedure" {
		selector = services.NewProcedureSelector()
	}

	extractorRegistry := extractors.DefaultRegistry()

	// Services (core business logic)
	retrievalService := services.NewRetrievalService(services.RetrievalDeps{
		Index:      idx,
		Chunker:    chunker,
		Extractors: extractorRegistry,
		Models:     models,
		Blobs:      blobs,
		Catalog:    catalog,
		Lock:       lock,
	}, services.RetrievalConfig{
		Settings: cfg.Retrieval,
		Selector: selector,
		Logger:   slog.Default(),
	})
	ingestionService := services.NewIngestionService(blobs, taskQueue, slog.Default())

	var authService driving.AuthService
	if cfg.Auth.Enabled() {
		clients := make([]services.ClientCredential, 0, len(cfg.Auth.Clients))
		for _, c := range cfg.Auth.Clients {
			clients = append(clients, services.ClientCredential{ID: c.ID, SecretHash: c.SecretHash, Scope: c.Scope})
		}
		authService = services.NewAuthService(auth.NewAdapter(cfg.Auth.JWTSecret), clients, cfg.Auth.TokenTTL)
		log.Printf("Authentication enabled for %d client(s)", len(clients))
	}

	apiServices := http.Services{
		Retrieval:  retrievalService,
		Ingestion:  ingestionService,
		Auth:       authService,
		Extractors: extractorRegistry,
		Readiness:  readiness,
	}

	// The worker shares this process's index; config.Validate refuses
	// the split modes.
	done := make(chan struct{})
	go func() {
		defer close(done)
		runWorkerMode(ctx, cfg, taskQueue, retrievalService, blobs)
	}()
	runAPI(ctx, cfg, apiServices)
	stop()
	<-done
}

// setupModels builds the embedding and generation handles once. A missing
// or unreachable generation model only disables answer generation.
func setupModels(ctx context.Context, cfg config.Config, redisClient *redis.Client) *runtime.Services {
	factory := ai.NewFactory()

	embedding, err := factory.CreateEmbeddingService(&cfg.Embedding)
	if err != nil {
		log.Fatalf("Failed to create embedding service: %v", err)
	}
	log.Printf("Embedding model: %s (%s, dimension=%d)", embedding.Model(), cfg.Embedding.Provider, embedding.Dimensions())

	if redisClient != nil && cfg.QueryCacheEnabled {
		cache := redisadapter.NewEmbeddingCache(redisClient, cfg.QueryCacheTTL)
		embedding = ai.NewCachedEmbedding(embedding, cache, slog.Default())
		log.Printf("Query embedding cache enabled (ttl=%s)", cfg.QueryCacheTTL)
	}

	models := runtime.NewServices(embedding, nil)

	llm, err := factory.CreateLLMService(&cfg.LLM)
	switch {
	case err != nil:
		log.Fatalf("Failed to create LLM service: %v", err)
	case llm == nil:
		log.Println("No generation model configured; answers fall back to retrieved sources")
	default:
		if err := models.ValidateAndSetLLM(ctx, llm); err != nil {
			log.Printf("Warning: generation model %s unavailable: %v (generation disabled)", llm.Model(), err)
		} else {
			log.Printf("Generation model: %s", llm.Model())
		}
	}

	return models
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func runAPI(ctx context.Context, cfg config.Config, svc http.Services) {
	server := http.NewServer(http.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        version,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxTopK:        cfg.Retrieval.MaxTopK,
	}, svc)

	log.Printf("API server starting on %s:%d", cfg.Server.Host, cfg.Server.Port)
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// runWorkerMode processes queued ingest tasks until ctx is cancelled
func runWorkerMode(
	ctx context.Context,
	cfg config.Config,
	taskQueue driven.TaskQueue,
	retrieval driving.RetrievalService,
	blobs driven.DocumentBlobStore,
) {
	log.Println("Starting ingest worker...")

	w := worker.NewWorker(worker.WorkerConfig{
		TaskQueue:      taskQueue,
		Retrieval:      retrieval,
		Blobs:          blobs,
		Logger:         slog.Default(),
		Concurrency:    cfg.Worker.Concurrency,
		DequeueTimeout: cfg.Worker.DequeueTimeout,
		TaskTimeout:    cfg.Worker.TaskTimeout,
	})

	if err := w.Start(ctx); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}
	log.Println("Worker started, processing ingest_document tasks...")

	<-ctx.Done()

	log.Println("Stopping worker...")
	w.Stop()
	log.Println("Worker stopped")
}
