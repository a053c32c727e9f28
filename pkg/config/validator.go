package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError
	add := func(field, message string) {
		errors = append(errors, ValidationError{Field: field, Message: message})
	}

	// LLM
	switch c.LLM.Provider {
	case "ollama":
		if c.LLM.BaseURL == "" {
			add("llm.base_url", "Ollama base URL is required")
		}
	case "openai":
		if c.LLM.APIKey == "" {
			add("llm.api_key", "OpenAI API key is required (set OPENAI_API_KEY)")
		}
	default:
		add("llm.provider", fmt.Sprintf("unsupported provider: %s", c.LLM.Provider))
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		add("llm.max_tokens", "max_tokens must be between 1 and 4096")
	}

	if c.LLM.Temperature == nil || *c.LLM.Temperature < 0 || *c.LLM.Temperature > 2 {
		add("llm.temperature", "temperature must be between 0 and 2")
	}

	if c.LLM.BaseURL != "" {
		if u, err := url.Parse(c.LLM.BaseURL); err != nil || u.Scheme == "" {
			add("llm.base_url", "invalid LLM base URL")
		}
	}

	if c.LLM.Timeout <= 0 {
		add("llm.timeout", "timeout must be positive")
	}

	// Embedding
	if c.Embedding.Provider != "ollama" && c.Embedding.Provider != "openai" {
		add("embedding.provider", fmt.Sprintf("unsupported provider: %s", c.Embedding.Provider))
	}
	if c.Embedding.Model == "" {
		add("embedding.model", "embedding model is required")
	}
	if c.Embedding.RateLimit < 0 {
		add("embedding.rate_limit", "rate_limit must not be negative")
	}

	// Database
	if c.Database.URL != "" {
		if u, err := url.Parse(c.Database.URL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			add("database.url", "invalid database URL")
		}
	}

	for field, table := range map[string]string{
		"database.tickets_table": c.Database.TicketsTable,
		"database.docs_table":    c.Database.DocsTable,
	} {
		if !tableNamePattern.MatchString(table) {
			add(field, fmt.Sprintf("invalid table name: %s", table))
		}
	}
	if c.Database.TicketsTable == c.Database.DocsTable {
		add("database.docs_table", "tickets and documents must use different tables")
	}

	if c.Database.VectorDim < 1 || c.Database.VectorDim > 16000 {
		add("database.vector_dim", "vector_dim must be between 1 and 16000")
	}

	if c.Database.SearchLimit < 1 {
		add("database.search_limit", "search_limit must be positive")
	}

	// Processor
	if c.Processor.MaxChunkChars < 1 {
		add("processor.max_chunk_chars", "max_chunk_chars must be positive")
	}

	if c.Processor.MinSentenceLength < 0 || c.Processor.MinSentenceLength >= c.Processor.MaxChunkChars {
		add("processor.min_sentence_length", "min_sentence_length must be non-negative and less than max_chunk_chars")
	}

	// Scraper
	if u, err := url.Parse(c.Scraper.BaseURL); err != nil || u.Host == "" {
		add("scraper.base_url", "scraper base URL must be absolute")
	}

	if c.Scraper.MaxDepth < 1 {
		add("scraper.max_depth", "max_depth must be positive")
	}

	if c.Scraper.RateLimit <= 0 {
		add("scraper.rate_limit", "rate_limit must be positive")
	}

	for _, ext := range c.Scraper.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") && ext != "" && ext != "/" {
			add("scraper.allowed_extensions", fmt.Sprintf("invalid extension format: %s", ext))
		}
	}

	// Ingest and server
	if c.Ingest.Concurrency < 1 || c.Ingest.Concurrency > 64 {
		add("ingest.concurrency", "concurrency must be between 1 and 64")
	}

	if c.Server.Addr == "" {
		add("server.addr", "listen address is required")
	}

	switch strings.ToLower(c.Log.Format) {
	case "console", "json":
	default:
		add("log.format", fmt.Sprintf("unsupported log format: %s", c.Log.Format))
	}

	return errors
}
