package llm

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/xhad/copilot/internal/models"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Provider    string
	Model       string
	Temperature float64
	MaxTokens   int
	BaseURL     string
	APIKey      string
	// Timeout bounds every completion call.
	Timeout        time.Duration
	SystemTemplate string
}

// ChatEngine is the completion service client used by the classifier, the
// answer synthesizer and the follow-up generator.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	config = chatDefaults(config)
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, goerr.New("temperature must be between 0 and 2", goerr.V("temperature", config.Temperature))
	}
	if config.MaxTokens < 0 {
		return nil, goerr.New("max tokens cannot be negative", goerr.V("max_tokens", config.MaxTokens))
	}

	var (
		model llms.Model
		err   error
	)
	switch config.Provider {
	case ProviderOllama:
		model, err = ollama.New(ollama.WithModel(config.Model), ollama.WithServerURL(config.BaseURL))
	case ProviderOpenAI:
		opts := []openai.Option{openai.WithModel(config.Model), openai.WithToken(config.APIKey)}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		model, err = openai.New(opts...)
	default:
		return nil, goerr.New("unknown llm provider", goerr.V("provider", config.Provider))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize LLM", goerr.V("provider", config.Provider), goerr.V("model", config.Model))
	}

	return New(model, config), nil
}

// New wraps an existing langchaingo model.
func New(model llms.Model, config ChatConfig) *ChatEngine {
	return &ChatEngine{
		config: chatDefaults(config),
		llm:    model,
	}
}

func chatDefaults(config ChatConfig) ChatConfig {
	if config.Provider == "" {
		config.Provider = ProviderOllama
	}
	if config.Model == "" {
		if config.Provider == ProviderOpenAI {
			config.Model = "gpt-3.5-turbo"
		} else {
			config.Model = "mistral"
		}
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 1000
	}
	if config.BaseURL == "" && config.Provider == ProviderOllama {
		config.BaseURL = "http://localhost:11434"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return config
}

// Complete sends one request and returns the generated text. A blank answer
// is reported as an error so callers take their fallback path.
func (ce *ChatEngine) Complete(ctx context.Context, req models.CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, ce.config.Timeout)
	defer cancel()

	system := req.System
	if system == "" {
		system = ce.config.SystemTemplate
	}

	var content []llms.MessageContent
	if system != "" {
		content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	content = append(content, llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt))

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = ce.config.MaxTokens
	}
	temperature := ce.config.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	response, err := ce.llm.GenerateContent(ctx, content,
		llms.WithMaxTokens(maxTokens),
		llms.WithTemperature(temperature),
	)
	if err != nil {
		return "", goerr.Wrap(err, "chat error", goerr.V("model", ce.config.Model))
	}
	if response == nil || len(response.Choices) == 0 || response.Choices[0] == nil {
		return "", goerr.New("no response from LLM", goerr.V("model", ce.config.Model))
	}

	text := strings.TrimSpace(response.Choices[0].Content)
	if text == "" {
		return "", goerr.New("empty response from LLM", goerr.V("model", ce.config.Model))
	}
	return text, nil
}
