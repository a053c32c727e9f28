// Package followup suggests next questions after a knowledge-base answer.
package followup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xhad/copilot/internal/models"
	"github.com/xhad/copilot/internal/types"
	"github.com/xhad/copilot/pkg/logging"
	"github.com/xhad/copilot/pkg/taxonomy"
)

const (
	MaxSuggestions = 3
	answerPreview  = 200
)

const prompt = `Based on this user query and the provided answer, generate 3 relevant follow-up questions that a user might naturally ask next.

User Query: "%s"
Topic: %s
Answer: "%s..." (truncated for context)

The follow-up questions should:
1. Be specific to the user's query and context
2. Show natural progression from their original question
3. Be actionable and helpful
4. Cover different aspects of the topic they're asking about

Respond with exactly 3 follow-up questions, one per line, without numbering or bullets.`

type Config struct {
	Taxonomy    *taxonomy.Taxonomy
	MaxTokens   int
	// Temperature defaults when nil.
	Temperature *float64
	Logger      *slog.Logger
}

type Generator struct {
	llm    types.Completer
	config Config
}

func New(llm types.Completer, config Config) *Generator {
	if config.Taxonomy == nil {
		config.Taxonomy = taxonomy.Default("")
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 200
	}
	if config.Temperature == nil {
		config.Temperature = models.Ptr(0.7)
	}
	config.Logger = logging.OrDefault(config.Logger)
	return &Generator{llm: llm, config: config}
}

// Suggest returns at most three questions and is never empty.
func (g *Generator) Suggest(ctx context.Context, topic models.Topic, query, answer string) []string {
	text, err := g.llm.Complete(ctx, models.CompletionRequest{
		Prompt:      fmt.Sprintf(prompt, query, topic, preview(answer)),
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	})
	if err != nil {
		g.config.Logger.Warn("follow-up generation failed, using fallback", "error", err, "topic", topic)
		return g.config.Taxonomy.Followups(topic)
	}

	questions := Parse(text)
	if len(questions) == 0 {
		g.config.Logger.Warn("follow-up output had no questions, using fallback", "topic", topic)
		return g.config.Taxonomy.Followups(topic)
	}
	return questions
}

// Parse splits model output into at most three questions. Lead-in lines
// ending in ":" are not questions and are skipped.
func Parse(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		q := stripMarker(strings.TrimSpace(line))
		if q == "" || strings.HasSuffix(q, ":") {
			continue
		}
		out = append(out, q)
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out
}

// stripMarker drops a leading "-", "*", "•" or "1." / "2)" list marker.
func stripMarker(line string) string {
	for _, m := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, m) {
			return strings.TrimSpace(line[len(m):])
		}
	}
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return strings.TrimSpace(line[i+1:])
	}
	return line
}

func preview(answer string) string {
	r := []rune(answer)
	if len(r) <= answerPreview {
		return answer
	}
	return string(r[:answerPreview])
}
