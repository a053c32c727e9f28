package llm

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// EmbeddingClient is satisfied by the langchaingo provider clients.
type EmbeddingClient interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

type EmbedderConfig struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	// RateLimit caps embedding requests per second; zero disables limiting.
	RateLimit float64
}

// Embedder is the embedding service client.
type Embedder struct {
	config  EmbedderConfig
	client  EmbeddingClient
	limiter *rate.Limiter
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	config = embedderDefaults(config)

	var (
		client EmbeddingClient
		err    error
	)
	switch config.Provider {
	case ProviderOllama:
		client, err = ollama.New(ollama.WithModel(config.Model), ollama.WithServerURL(config.BaseURL))
	case ProviderOpenAI:
		opts := []openai.Option{openai.WithEmbeddingModel(config.Model), openai.WithToken(config.APIKey)}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		client, err = openai.New(opts...)
	default:
		return nil, goerr.New("unknown embedding provider", goerr.V("provider", config.Provider))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize embedder", goerr.V("provider", config.Provider), goerr.V("model", config.Model))
	}

	return NewEmbedder(client, config), nil
}

// NewEmbedder wraps an existing embedding client.
func NewEmbedder(client EmbeddingClient, config EmbedderConfig) *Embedder {
	config = embedderDefaults(config)
	e := &Embedder{
		config: config,
		client: client,
	}
	if config.RateLimit > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), 1)
	}
	return e
}

func embedderDefaults(config EmbedderConfig) EmbedderConfig {
	if config.Provider == "" {
		config.Provider = ProviderOllama
	}
	if config.Model == "" {
		if config.Provider == ProviderOpenAI {
			config.Model = "text-embedding-3-large"
		} else {
			config.Model = "nomic-embed-text:latest"
		}
	}
	if config.BaseURL == "" && config.Provider == ProviderOllama {
		config.BaseURL = "http://localhost:11434"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return config
}

// Embed returns the vector for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, goerr.Wrap(err, "embedding rate limiter")
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	embeddings, err := e.client.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create embedding", goerr.V("model", e.config.Model))
	}

	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, goerr.New("embedding service returned no vector", goerr.V("model", e.config.Model))
	}
	return embeddings[0], nil
}
