// Package config loads process configuration from .env, an optional YAML
// file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Run modes. The vector index lives in process memory and owns its
// directory, so api and worker are recognised but refused: a split
// deployment would run two indexes over the same files.
const (
	ModeAPI    = "api"
	ModeWorker = "worker"
	ModeAll    = "all"
)

// Config is the full process configuration. It is built once by Load
// and passed by value.
type Config struct {
	RunMode string `yaml:"run_mode"`
	DataDir string `yaml:"data_dir"`

	Server    ServerConfig             `yaml:"server"`
	Log       LogConfig                `yaml:"log"`
	Embedding domain.EmbeddingSettings `yaml:"embedding"`
	LLM       domain.LLMSettings       `yaml:"llm"`
	Retrieval domain.RetrievalSettings `yaml:"retrieval"`
	Worker    WorkerConfig             `yaml:"worker"`
	Auth      AuthConfig               `yaml:"auth"`

	// Optional backends. Empty disables them.
	RedisURL    string `yaml:"redis_url"`
	DatabaseURL string `yaml:"database_url"`

	// Query embeddings are cached in Redis when enabled and Redis is configured
	QueryCacheEnabled bool          `yaml:"query_cache_enabled"`
	QueryCacheTTL     time.Duration `yaml:"query_cache_ttl"`

	// PromptSelector is "default" or "procedure"
	PromptSelector string `yaml:"prompt_selector"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// WorkerConfig sizes the ingest worker pool
type WorkerConfig struct {
	Concurrency    int           `yaml:"concurrency"`
	DequeueTimeout int           `yaml:"dequeue_timeout"` // seconds
	TaskTimeout    time.Duration `yaml:"task_timeout"`
}

// AuthConfig enables bearer-token authentication when JWTSecret is set
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	Clients   []AuthClient  `yaml:"clients"`
}

// AuthClient is one API client allowed to request tokens
type AuthClient struct {
	ID         string `yaml:"id"`
	SecretHash string `yaml:"secret_hash"` // bcrypt
	Scope      string `yaml:"scope"` // "query", "ingest" or both; empty grants all
}

// Enabled reports whether requests must carry a token
func (a AuthConfig) Enabled() bool {
	return a.JWTSecret != ""
}

// Default returns the configuration used when nothing overrides it
func Default() Config {
	return Config{
		RunMode: ModeAll,
		DataDir: "./data",
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			MaxUploadBytes: 50 << 20,
			AllowedOrigins: []string{"*"},
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Embedding: domain.EmbeddingSettings{
			Provider:    domain.AIProviderOllama,
			Model:       "nomic-embed-text",
			Dimensions:  768,
			BatchSize:   64,
			Concurrency: 4,
		},
		LLM: domain.LLMSettings{
			Provider:    domain.AIProviderOllama,
			Model:       "llama3.1",
			MaxTokens:   512,
			Temperature: 0.7,
			TopP:        0.9,
		},
		Retrieval:         domain.DefaultRetrievalSettings(),
		Worker:            WorkerConfig{Concurrency: 2, DequeueTimeout: 5, TaskTimeout: 15 * time.Minute},
		Auth:              AuthConfig{TokenTTL: time.Hour},
		QueryCacheEnabled: true,
		QueryCacheTTL:     24 * time.Hour,
		PromptSelector:    "default",
	}
}

// Load builds the configuration. path names an optional YAML file; when
// empty, CONFIG_FILE is consulted. Environment variables win over the file.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("%w: load .env: %w", domain.ErrConfiguration, err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", domain.ErrConfiguration, path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w: parse %s: %w", domain.ErrConfiguration, path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.RunMode = getEnv("RUN_MODE", c.RunMode)
	c.DataDir = getEnv("DATA_DIR", c.DataDir)

	c.Server.Host = getEnv("HOST", c.Server.Host)
	c.Server.Port = getEnvInt("PORT", c.Server.Port)
	if mb := getEnvInt("MAX_UPLOAD_MB", 0); mb > 0 {
		c.Server.MaxUploadBytes = int64(mb) << 20
	}
	if origins := getEnv("CORS_ORIGINS", ""); origins != "" {
		c.Server.AllowedOrigins = splitList(origins)
	}

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	c.Embedding.Provider = domain.AIProvider(getEnv("EMBEDDING_PROVIDER", string(c.Embedding.Provider)))
	c.Embedding.APIKey = getEnv("EMBEDDING_API_KEY", getEnv("OPENAI_API_KEY", c.Embedding.APIKey))
	c.Embedding.Model = getEnv("EMBEDDING_MODEL", c.Embedding.Model)
	c.Embedding.BaseURL = getEnv("EMBEDDING_BASE_URL", c.Embedding.BaseURL)
	c.Embedding.Dimensions = getEnvInt("EMBEDDING_DIMENSIONS", c.Embedding.Dimensions)
	c.Embedding.BatchSize = getEnvInt("EMBEDDING_BATCH_SIZE", c.Embedding.BatchSize)
	c.Embedding.Concurrency = getEnvInt("EMBEDDING_CONCURRENCY", c.Embedding.Concurrency)

	c.LLM.Provider = domain.AIProvider(getEnv("LLM_PROVIDER", string(c.LLM.Provider)))
	c.LLM.APIKey = getEnv("LLM_API_KEY", getEnv("OPENAI_API_KEY", c.LLM.APIKey))
	c.LLM.Model = getEnv("LLM_MODEL", c.LLM.Model)
	c.LLM.BaseURL = getEnv("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.MaxTokens = getEnvInt("LLM_MAX_TOKENS", c.LLM.MaxTokens)
	c.LLM.Temperature = float32(getEnvFloat("LLM_TEMPERATURE", float64(c.LLM.Temperature)))
	c.LLM.TopP = float32(getEnvFloat("LLM_TOP_P", float64(c.LLM.TopP)))

	r := &c.Retrieval
	r.ChunkSize = getEnvInt("CHUNK_SIZE", r.ChunkSize)
	r.ChunkOverlap = getEnvInt("CHUNK_OVERLAP", r.ChunkOverlap)
	r.ChunkStrategy = domain.ChunkStrategy(getEnv("CHUNK_STRATEGY", string(r.ChunkStrategy)))
	r.TopK = getEnvInt("TOP_K", r.TopK)
	r.MaxTopK = getEnvInt("MAX_TOP_K", r.MaxTopK)
	r.MinScore = float32(getEnvFloat("MIN_SCORE", float64(r.MinScore)))
	r.MinContentLength = getEnvInt("MIN_CONTENT_LENGTH", r.MinContentLength)
	r.PreviewLength = getEnvInt("PREVIEW_LENGTH", r.PreviewLength)
	r.ProviderTimeout = getEnvDuration("PROVIDER_TIMEOUT", r.ProviderTimeout)

	c.Worker.Concurrency = getEnvInt("WORKER_CONCURRENCY", c.Worker.Concurrency)
	c.Worker.DequeueTimeout = getEnvInt("WORKER_DEQUEUE_TIMEOUT", c.Worker.DequeueTimeout)
	c.Worker.TaskTimeout = getEnvDuration("WORKER_TASK_TIMEOUT", c.Worker.TaskTimeout)

	c.Auth.JWTSecret = getEnv("AUTH_JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.TokenTTL = getEnvDuration("AUTH_TOKEN_TTL", c.Auth.TokenTTL)
	if id := getEnv("AUTH_CLIENT_ID", ""); id != "" {
		c.Auth.Clients = append(c.Auth.Clients, AuthClient{
			ID:         id,
			SecretHash: getEnv("AUTH_CLIENT_SECRET_HASH", ""),
			Scope:      getEnv("AUTH_CLIENT_SCOPE", ""),
		})
	}

	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.QueryCacheEnabled = getEnvBool("QUERY_CACHE_ENABLED", c.QueryCacheEnabled)
	c.QueryCacheTTL = getEnvDuration("QUERY_CACHE_TTL", c.QueryCacheTTL)
	c.PromptSelector = getEnv("PROMPT_SELECTOR", c.PromptSelector)
}

// Validate rejects values no component can start with
func (c Config) Validate() error {
	switch c.RunMode {
	case ModeAll:
	case ModeAPI, ModeWorker:
		return fmt.Errorf("%w: run mode %q would open a second index over %s; only %q is supported",
			domain.ErrConfiguration, c.RunMode, c.IndexDir(), ModeAll)
	default:
		return fmt.Errorf("%w: unknown run mode %q (use: %s)", domain.ErrConfiguration, c.RunMode, ModeAll)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir is required", domain.ErrConfiguration)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: invalid port %d", domain.ErrConfiguration, c.Server.Port)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("%w: max_upload_bytes must be positive", domain.ErrConfiguration)
	}
	if !c.Embedding.IsConfigured() {
		return fmt.Errorf("%w: an embedding provider is required", domain.ErrConfiguration)
	}
	if err := c.Retrieval.Validate(); err != nil {
		return err
	}
	switch c.PromptSelector {
	case "default", "procedure":
	default:
		return fmt.Errorf("%w: unknown prompt selector %q", domain.ErrConfiguration, c.PromptSelector)
	}
	if c.Auth.Enabled() {
		if len(c.Auth.Clients) == 0 {
			return fmt.Errorf("%w: auth is enabled but no clients are configured", domain.ErrConfiguration)
		}
		for _, cl := range c.Auth.Clients {
			if cl.ID == "" || cl.SecretHash == "" {
				return fmt.Errorf("%w: auth client needs an id and a secret hash", domain.ErrConfiguration)
			}
			for _, scope := range strings.Fields(cl.Scope) {
				switch scope {
				case domain.ScopeQuery, domain.ScopeIngest, domain.ScopeAll:
				default:
					return fmt.Errorf("%w: auth client %s has unknown scope %q", domain.ErrConfiguration, cl.ID, scope)
				}
			}
		}
	}
	return nil
}

// IndexDir is where the similarity index is persisted
func (c Config) IndexDir() string {
	return filepath.Join(c.DataDir, "index")
}

// DocumentsDir is where raw uploads are kept
func (c Config) DocumentsDir() string {
	return filepath.Join(c.DataDir, "documents")
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
