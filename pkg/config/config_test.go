package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/copilot/internal/models"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"OLLAMA_BASE_URL", "OPENAI_API_KEY", "DATABASE_URL", "PORT", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
product: "Acme"

llm:
  base_url: "http://localhost:11434"
  model: "llama3"
  max_tokens: 800
  temperature: 0.5
  timeout: 45s

database:
  url: "postgres://localhost:5432/test"
  tickets_table: "test_tickets"
  docs_table: "test_docs"
  vector_dim: 768

scraper:
  base_url: "https://docs.acme.dev"
  max_depth: 5
  rate_limit: 1.5
  ignore_patterns:
    - "/test/"
  allowed_extensions:
    - ".html"
    - "/"

processor:
  max_chunk_chars: 500

ingest:
  concurrency: 8

server:
  addr: ":9000"
  allowed_origins: ["https://support.acme.dev"]

log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(configPath, []byte(configData), 0644))

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "Acme", config.Product)
	assert.Equal(t, "ollama", config.LLM.Provider)
	assert.Equal(t, "llama3", config.LLM.Model)
	assert.Equal(t, 800, config.LLM.MaxTokens)
	assert.Equal(t, 0.5, *config.LLM.Temperature)
	assert.Equal(t, 45*time.Second, config.LLM.Timeout)
	assert.Equal(t, "postgres://localhost:5432/test", config.Database.URL)
	assert.Equal(t, "test_tickets", config.Database.TicketsTable)
	assert.Equal(t, 5, config.Scraper.MaxDepth)
	assert.Equal(t, []string{"/test/"}, config.Scraper.IgnorePatterns)
	assert.Equal(t, 500, config.Processor.MaxChunkChars)
	assert.Equal(t, 8, config.Ingest.Concurrency)
	assert.Equal(t, []string{"https://support.acme.dev"}, config.Server.AllowedOrigins)
	assert.Equal(t, "json", config.Log.Format)

	// unset values fall back to defaults
	assert.Equal(t, 20, config.Processor.MinSentenceLength)
	assert.Equal(t, "nomic-embed-text:latest", config.Embedding.Model)
	assert.Equal(t, "http://localhost:11434", config.Embedding.BaseURL)
	assert.Equal(t, 5, config.Database.SearchLimit)

	assert.Empty(t, config.Validate())
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [unterminated"), 0644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	clearEnv(t)
	config := getDefaultConfig()

	assert.Equal(t, "Atlan", config.Product)
	assert.Equal(t, "mistral", config.LLM.Model)
	assert.Equal(t, "http://localhost:11434", config.LLM.BaseURL)
	assert.Equal(t, 768, config.Database.VectorDim)
	assert.Equal(t, "tickets", config.Database.TicketsTable)
	assert.Equal(t, "documents", config.Database.DocsTable)
	assert.Equal(t, 1000, config.Processor.MaxChunkChars)
	assert.Equal(t, 100, config.Processor.MinContentLength)
	assert.Equal(t, 4, config.Ingest.Concurrency)
	assert.Equal(t, ":8000", config.Server.Addr)
	assert.Empty(t, config.Database.URL)

	assert.Empty(t, config.Validate())
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434")
	t.Setenv("DATABASE_URL", "postgres://db:5432/copilot")
	t.Setenv("PORT", "8080")
	t.Setenv("LOG_LEVEL", "warn")

	config := getDefaultConfig()
	assert.Equal(t, "http://ollama:11434", config.LLM.BaseURL)
	assert.Equal(t, "http://ollama:11434", config.Embedding.BaseURL)
	assert.Equal(t, "postgres://db:5432/copilot", config.Database.URL)
	assert.Equal(t, ":8080", config.Server.Addr)
	assert.Equal(t, "warn", config.Log.Level)
}

func TestEnvOverrides_OpenAIKeySelectsProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	config := getDefaultConfig()
	assert.Equal(t, "openai", config.LLM.Provider)
	assert.Equal(t, "gpt-3.5-turbo", config.LLM.Model)
	assert.Equal(t, "text-embedding-3-large", config.Embedding.Model)
	assert.Equal(t, "sk-test", config.Embedding.APIKey)
	assert.Equal(t, 3072, config.Database.VectorDim)
	assert.Empty(t, config.LLM.BaseURL)
	assert.Empty(t, config.Validate())
}

func TestEnvOverrides_OpenAIWithDatabase(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DATABASE_URL", "postgresql://db:5432/copilot")

	config := getDefaultConfig()
	assert.Equal(t, "openai", config.Embedding.Provider)
	assert.Equal(t, 3072, config.Database.VectorDim)
	assert.Equal(t, "postgresql://db:5432/copilot", config.Database.URL)
	assert.Empty(t, config.Validate())
}

func TestLoadConfig_ZeroTemperature(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  temperature: 0\n"), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, config.LLM.Temperature)
	assert.Equal(t, 0.0, *config.LLM.Temperature)
	assert.Empty(t, config.Validate())

	require.NotNil(t, getDefaultConfig().LLM.Temperature)
	assert.Equal(t, 0.3, *getDefaultConfig().LLM.Temperature)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		fields []string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:   "bad llm",
			mutate: func(c *Config) { c.LLM.MaxTokens = 5000; c.LLM.Temperature = models.Ptr(3.0) },
			fields: []string{"llm.max_tokens", "llm.temperature"},
		},
		{
			name:   "unknown provider",
			mutate: func(c *Config) { c.LLM.Provider = "bard" },
			fields: []string{"llm.provider"},
		},
		{
			name:   "openai without key",
			mutate: func(c *Config) { c.LLM.Provider = "openai"; c.LLM.APIKey = "" },
			fields: []string{"llm.api_key"},
		},
		{
			name:   "bad database",
			mutate: func(c *Config) { c.Database.URL = "mysql://x"; c.Database.DocsTable = "docs;drop" },
			fields: []string{"database.url", "database.docs_table"},
		},
		{
			name:   "vector too wide",
			mutate: func(c *Config) { c.Database.VectorDim = 20000 },
			fields: []string{"database.vector_dim"},
		},
		{
			name:   "same tables",
			mutate: func(c *Config) { c.Database.DocsTable = c.Database.TicketsTable },
			fields: []string{"database.docs_table"},
		},
		{
			name:   "bad processor",
			mutate: func(c *Config) { c.Processor.MaxChunkChars = 10 },
			fields: []string{"processor.min_sentence_length"},
		},
		{
			name:   "bad scraper",
			mutate: func(c *Config) { c.Scraper.RateLimit = -1; c.Scraper.AllowedExtensions = []string{"html"} },
			fields: []string{"scraper.rate_limit", "scraper.allowed_extensions"},
		},
		{
			name:   "bad ingest and log",
			mutate: func(c *Config) { c.Ingest.Concurrency = 0; c.Log.Format = "xml" },
			fields: []string{"ingest.concurrency", "log.format"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			config := getDefaultConfig()
			tt.mutate(config)

			var got []string
			for _, e := range config.Validate() {
				got = append(got, e.Field)
				assert.NotEmpty(t, e.Error())
			}
			assert.ElementsMatch(t, tt.fields, got)
		})
	}
}
