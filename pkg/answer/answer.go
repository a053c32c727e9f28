// Package answer writes user-facing answers: grounded syntheses over
// retrieved context and the fixed messages used when synthesis is skipped.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xhad/copilot/internal/models"
	"github.com/xhad/copilot/internal/types"
	"github.com/xhad/copilot/pkg/logging"
)

const (
	ApologyMessage        = "I apologize, but I encountered an error while generating a response. Please try again or contact support for assistance."
	RetrievalErrorMessage = "I encountered an error while processing your request. Please try again or contact support."
)

const groundedPrompt = `You are an expert %[1]s customer support assistant. Based ONLY on the following context from %[1]s documentation, provide a comprehensive answer to the user's question.

IMPORTANT:
- Use ONLY the information provided in the context below
- Do not use any external knowledge or training data
- If the context doesn't contain enough information, say so clearly
- Be specific and actionable in your response
- Format the answer in markdown: use headings and lists for structure and fenced code blocks for any code from the context

User Query: %[2]s

Context from %[1]s Documentation:
%[3]s

Please provide a helpful and accurate response based on the context above.`

type Config struct {
	Product     string
	MaxTokens   int
	// Temperature defaults when nil.
	Temperature *float64
	Logger      *slog.Logger
}

type Synthesizer struct {
	llm    types.Completer
	config Config
}

func New(llm types.Completer, config Config) *Synthesizer {
	if config.Product == "" {
		config.Product = "Atlan"
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 1000
	}
	if config.Temperature == nil {
		config.Temperature = models.Ptr(0.3)
	}
	config.Logger = logging.OrDefault(config.Logger)
	return &Synthesizer{llm: llm, config: config}
}

// Synthesize answers query from the supplied context only. A failed call
// yields ApologyMessage, never an error.
func (s *Synthesizer) Synthesize(ctx context.Context, query, contextText string) string {
	text, err := s.llm.Complete(ctx, models.CompletionRequest{
		Prompt:      fmt.Sprintf(groundedPrompt, s.config.Product, query, contextText),
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
	})
	if err != nil {
		s.config.Logger.Warn("answer synthesis failed", "error", err)
		return ApologyMessage
	}
	return text
}

func (s *Synthesizer) Product() string {
	return s.config.Product
}

// RoutingMessage is returned for topics answered by a human team.
func RoutingMessage(topic models.Topic) string {
	return fmt.Sprintf("Thank you for your %s inquiry. I'll route this to the appropriate team for assistance. "+
		"Our specialists will review your request and provide detailed guidance.", strings.ToLower(string(topic)))
}

func NoResultsMessage(product string) string {
	return fmt.Sprintf("I couldn't find relevant information in the %s documentation for your query. "+
		"Please try rephrasing your question or contact support for assistance.", product)
}

func RejectionMessage(product string) string {
	return fmt.Sprintf("I'm sorry, but I can only help with %[1]s-related questions. "+
		"Please ask me about %[1]s's features, setup, troubleshooting, or any other %[1]s-specific topics.", product)
}
