package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// isolate runs the test from an empty directory so no stray .env is picked up
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("CONFIG_FILE", "")
	return dir
}

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ModeAll, cfg.RunMode)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, int64(50<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, 500, cfg.Retrieval.ChunkSize)
	assert.Equal(t, 50, cfg.Retrieval.ChunkOverlap)
	assert.False(t, cfg.Auth.Enabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "9090")
	t.Setenv("CHUNK_SIZE", "800")
	t.Setenv("CHUNK_OVERLAP", "100")
	t.Setenv("MIN_SCORE", "0.25")
	t.Setenv("PROVIDER_TIMEOUT", "90")
	t.Setenv("MAX_UPLOAD_MB", "10")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("QUERY_CACHE_ENABLED", "false")
	t.Setenv("WORKER_TASK_TIMEOUT", "5m")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 800, cfg.Retrieval.ChunkSize)
	assert.Equal(t, 100, cfg.Retrieval.ChunkOverlap)
	assert.InDelta(t, 0.25, cfg.Retrieval.MinScore, 1e-6)
	assert.Equal(t, 90*time.Second, cfg.Retrieval.ProviderTimeout)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.QueryCacheEnabled)
	assert.Equal(t, 5*time.Minute, cfg.Worker.TaskTimeout)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "sercha.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /var/lib/sercha
redis_url: redis://localhost:6379/0
embedding:
  provider: openai
  api_key: sk-file
  model: text-embedding-3-small
retrieval:
  chunk_size: 400
  chunk_overlap: 40
  chunk_strategy: paragraph
  top_k: 4
  max_top_k: 10
  provider_timeout: 30s
auth:
  jwt_secret: file-secret
  clients:
    - id: ingest-bot
      secret_hash: $2a$10$abcdefghijklmnopqrstuv
      scope: query ingest
`), 0o600))
	t.Setenv("TOP_K", "6")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/sercha", cfg.DataDir)
	assert.Equal(t, filepath.Join("/var/lib/sercha", "index"), cfg.IndexDir())
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, domain.AIProviderOpenAI, cfg.Embedding.Provider)
	assert.Equal(t, "sk-file", cfg.Embedding.APIKey)
	assert.Equal(t, 400, cfg.Retrieval.ChunkSize)
	assert.Equal(t, domain.ChunkStrategyParagraph, cfg.Retrieval.ChunkStrategy)
	assert.Equal(t, 30*time.Second, cfg.Retrieval.ProviderTimeout)
	assert.Equal(t, 6, cfg.Retrieval.TopK, "env wins over the file")
	assert.True(t, cfg.Auth.Enabled())
	require.Len(t, cfg.Auth.Clients, 1)
	assert.Equal(t, "ingest-bot", cfg.Auth.Clients[0].ID)
	// unset fields keep their defaults
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LLM_MODEL=mistral\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("LLM_MODEL") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "mistral", cfg.LLM.Model)
}

func TestLoad_MissingFile(t *testing.T) {
	isolate(t)
	_, err := Load("/nonexistent/sercha.yaml")
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestLoad_AuthClientFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("AUTH_CLIENT_ID", "web")
	t.Setenv("AUTH_CLIENT_SECRET_HASH", "$2a$10$hash")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Len(t, cfg.Auth.Clients, 1)
	assert.Equal(t, "web", cfg.Auth.Clients[0].ID)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown mode", func(c *Config) { c.RunMode = "batch" }},
		{"api only", func(c *Config) { c.RunMode = ModeAPI }},
		{"worker only", func(c *Config) { c.RunMode = ModeWorker }},
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"no embedding provider", func(c *Config) { c.Embedding.Provider = domain.AIProviderNone }},
		{"overlap not below size", func(c *Config) { c.Retrieval.ChunkOverlap = c.Retrieval.ChunkSize }},
		{"unknown strategy", func(c *Config) { c.Retrieval.ChunkStrategy = "sentences" }},
		{"negative min score", func(c *Config) { c.Retrieval.MinScore = -0.5 }},
		{"unknown selector", func(c *Config) { c.PromptSelector = "clever" }},
		{"auth without clients", func(c *Config) { c.Auth.JWTSecret = "s" }},
		{"auth client without hash", func(c *Config) {
			c.Auth.JWTSecret = "s"
			c.Auth.Clients = []AuthClient{{ID: "web"}}
		}},
		{"auth client with unknown scope", func(c *Config) {
			c.Auth.JWTSecret = "s"
			c.Auth.Clients = []AuthClient{{ID: "web", SecretHash: "h", Scope: "query admin"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), domain.ErrConfiguration)
		})
	}
}

func TestLoad_SplitRunModeRefused(t *testing.T) {
	isolate(t)
	for _, mode := range []string{ModeAPI, ModeWorker} {
		t.Setenv("RUN_MODE", mode)
		_, err := Load("")
		require.ErrorIs(t, err, domain.ErrConfiguration, mode)
		assert.Contains(t, err.Error(), "second index")
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("X_DURATION", "2m")
	assert.Equal(t, 2*time.Minute, getEnvDuration("X_DURATION", time.Second))

	t.Setenv("X_DURATION", "45")
	assert.Equal(t, 45*time.Second, getEnvDuration("X_DURATION", time.Second))

	t.Setenv("X_DURATION", "soon")
	assert.Equal(t, time.Second, getEnvDuration("X_DURATION", time.Second))
}
