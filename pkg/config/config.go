package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature *float64      `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"`
	BaseURL   string        `yaml:"base_url"`
	Model     string        `yaml:"model"`
	APIKey    string        `yaml:"api_key"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"`
}

type DatabaseConfig struct {
	URL          string        `yaml:"url"`
	TicketsTable string        `yaml:"tickets_table"`
	DocsTable    string        `yaml:"docs_table"`
	VectorDim    int           `yaml:"vector_dim"`
	SearchLimit  int           `yaml:"search_limit"`
	Timeout      time.Duration `yaml:"timeout"`
}

type ProcessorConfig struct {
	MaxChunkChars     int `yaml:"max_chunk_chars"`
	MinSentenceLength int `yaml:"min_sentence_length"`
	MinContentLength  int `yaml:"min_content_length"`
}

type ScraperConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Seeds             []string      `yaml:"seeds"`
	MaxDepth          int           `yaml:"max_depth"`
	MaxPages          int           `yaml:"max_pages"`
	RateLimit         float64       `yaml:"rate_limit"`
	IgnorePatterns    []string      `yaml:"ignore_patterns"`
	AllowedExtensions []string      `yaml:"allowed_extensions"`
	Timeout           time.Duration `yaml:"timeout"`
}

type TicketsConfig struct {
	SeedFile   string `yaml:"seed_file"`
	SQLitePath string `yaml:"sqlite_path"`
}

type IngestConfig struct {
	Concurrency int `yaml:"concurrency"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Product   string          `yaml:"product"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Database  DatabaseConfig  `yaml:"database"`
	Processor ProcessorConfig `yaml:"processor"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Tickets   TicketsConfig   `yaml:"tickets"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// SearchPaths are tried in order when no config path is given.
func SearchPaths() []string {
	return []string{
		"config.yaml",
		"config.yml",
		filepath.Join(os.Getenv("HOME"), ".config/copilot/config.yaml"),
		"/etc/copilot/config.yaml",
	}
}

func LoadConfig(path string) (*Config, error) {
	if path == "" {
		for _, loc := range SearchPaths() {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "error reading config file", goerr.V("path", path))
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(err, "error parsing config file", goerr.V("path", path))
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() *Config {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config
}

func applyDefaults(config *Config) {
	if config.Product == "" {
		config.Product = "Atlan"
	}

	if config.LLM.Provider == "" {
		config.LLM.Provider = "ollama"
	}
	if config.LLM.Model == "" {
		if config.LLM.Provider == "openai" {
			config.LLM.Model = "gpt-3.5-turbo"
		} else {
			config.LLM.Model = "mistral"
		}
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 1000
	}
	// an explicit 0 is kept
	if config.LLM.Temperature == nil {
		t := 0.3
		config.LLM.Temperature = &t
	}
	if config.LLM.BaseURL == "" && config.LLM.Provider == "ollama" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.Timeout == 0 {
		config.LLM.Timeout = 30 * time.Second
	}

	if config.Embedding.Provider == "" {
		config.Embedding.Provider = config.LLM.Provider
	}
	if config.Embedding.Model == "" {
		if config.Embedding.Provider == "openai" {
			config.Embedding.Model = "text-embedding-3-large"
		} else {
			config.Embedding.Model = "nomic-embed-text:latest"
		}
	}
	if config.Embedding.BaseURL == "" && config.Embedding.Provider == config.LLM.Provider {
		config.Embedding.BaseURL = config.LLM.BaseURL
	}
	if config.Embedding.APIKey == "" {
		config.Embedding.APIKey = config.LLM.APIKey
	}
	if config.Embedding.Timeout == 0 {
		config.Embedding.Timeout = 30 * time.Second
	}

	if config.Database.TicketsTable == "" {
		config.Database.TicketsTable = "tickets"
	}
	if config.Database.DocsTable == "" {
		config.Database.DocsTable = "documents"
	}
	if config.Database.VectorDim == 0 {
		if config.Embedding.Provider == "openai" {
			config.Database.VectorDim = 3072
		} else {
			config.Database.VectorDim = 768
		}
	}
	if config.Database.SearchLimit == 0 {
		config.Database.SearchLimit = 5
	}
	if config.Database.Timeout == 0 {
		config.Database.Timeout = 10 * time.Second
	}

	if config.Processor.MaxChunkChars == 0 {
		config.Processor.MaxChunkChars = 1000
	}
	if config.Processor.MinSentenceLength == 0 {
		config.Processor.MinSentenceLength = 20
	}
	if config.Processor.MinContentLength == 0 {
		config.Processor.MinContentLength = 100
	}

	if config.Scraper.BaseURL == "" {
		config.Scraper.BaseURL = "https://docs.atlan.com"
	}
	if config.Scraper.MaxDepth == 0 {
		config.Scraper.MaxDepth = 2
	}
	if config.Scraper.MaxPages == 0 {
		config.Scraper.MaxPages = 200
	}
	if config.Scraper.RateLimit == 0 {
		config.Scraper.RateLimit = 1.0
	}
	if len(config.Scraper.AllowedExtensions) == 0 {
		config.Scraper.AllowedExtensions = []string{".html", ".htm", "/", ""}
	}
	if config.Scraper.Timeout == 0 {
		config.Scraper.Timeout = 10 * time.Second
	}

	if config.Tickets.SeedFile == "" {
		config.Tickets.SeedFile = "data/sample_tickets.json"
	}
	if config.Tickets.SQLitePath == "" {
		config.Tickets.SQLitePath = "data/intake.db"
	}

	if config.Ingest.Concurrency == 0 {
		config.Ingest.Concurrency = 4
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8000"
	}
	if len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = []string{"http://localhost:3000"}
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "console"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.LLM.APIKey = key
		if config.LLM.Provider == "" {
			config.LLM.Provider = "openai"
		}
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if port := os.Getenv("PORT"); port != "" {
		if _, err := strconv.Atoi(port); err == nil {
			config.Server.Addr = ":" + port
		}
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
}
