// Package classifier maps ticket and query text to a topic, sentiment and
// priority using the completion service.
package classifier

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

const systemPrompt = "You are an expert customer support ticket classifier. Be sensitive to emotional cues and business impact. Always respond with valid JSON only."

type Config struct {
	Taxonomy    *taxonomy.Taxonomy
	MaxTokens   int
	// Temperature defaults when nil.
	Temperature *float64
	Logger      *slog.Logger
}

type Classifier struct {
	llm    types.Completer
	config Config
}

func New(llm types.Completer, config Config) *Classifier {
	if config.Taxonomy == nil {
		config.Taxonomy = taxonomy.Default("")
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 400
	}
	if config.Temperature == nil {
		config.Temperature = models.Ptr(0.3)
	}
	config.Logger = logging.OrDefault(config.Logger)
	return &Classifier{llm: llm, config: config}
}

// Classify never fails: service errors and malformed output degrade to the
// default classification with the cause recorded in the reasoning fields.
func (c *Classifier) Classify(ctx context.Context, body, subject string) models.Classification {
	prompt := c.buildPrompt(body, subject)

	text, err := c.llm.Complete(ctx, models.CompletionRequest{
		System:      systemPrompt,
		Prompt:      prompt,
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	})
	if err != nil {
		c.config.Logger.Warn("classification call failed", "error", err)
		return models.DefaultClassification(err.Error())
	}

	result, err := Decode(text)
	if err != nil {
		c.config.Logger.Warn("classification output rejected", "error", err, "output", truncate(text, 200))
		return models.DefaultClassification(err.Error())
	}
	return result
}

func (c *Classifier) buildPrompt(body, subject string) string {
	tx := c.config.Taxonomy
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze the following customer support ticket and classify it according to these criteria:\n\n")
	fmt.Fprintf(&b, "TICKET CONTENT:\nSubject: %s\n\nBody: %s\n\n", subject, body)

	b.WriteString("Respond with a JSON object containing:\n\n")
	b.WriteString("1. topic: One of these EXACT categories (choose the most appropriate):\n")
	for _, e := range tx.Topics {
		fmt.Fprintf(&b, "   - %q (%s)\n", e.Topic, e.Description)
	}

	b.WriteString("\n2. sentiment: One of these (be sensitive to emotional cues, prefer an emotional label over Neutral when cues are present):\n")
	b.WriteString(`   - "Positive" (Satisfied, happy, grateful, excited, appreciative)` + "\n")
	b.WriteString(`   - "Neutral" (Pure informational, matter-of-fact, no emotional indicators)` + "\n")
	b.WriteString(`   - "Frustrated" (Annoyed, impatient, negative tone, mentions problems/failures, expresses difficulty)` + "\n")
	b.WriteString(`   - "Urgent" (Critical, emergency, blocking, time-sensitive, "ASAP", "immediately")` + "\n")

	b.WriteString("\n3. priority: One of these (consider business impact):\n")
	b.WriteString(`   - "P0" (Critical/Urgent - blocking production, security issues, system down, data loss)` + "\n")
	b.WriteString(`   - "P1" (High - important features not working, significant business impact, user blocked)` + "\n")
	b.WriteString(`   - "P2" (Medium - standard support requests, minor issues, informational questions)` + "\n")

	b.WriteString("\nIMPORTANT GUIDELINES (evaluate in this order, technology keywords first):\n")
	for _, e := range tx.Topics {
		if len(e.Keywords) == 0 {
			continue
		}
		if e.Topic == models.TopicHowTo {
			fmt.Fprintf(&b, "- Only if NO technology keywords are mentioned: %s -> %q topic\n", quoteAll(e.Keywords), e.Topic)
			continue
		}
		fmt.Fprintf(&b, "- If mentions %s -> %q topic\n", quoteAll(e.Keywords), e.Topic)
	}
	fmt.Fprintf(&b, "- Privacy or compliance keywords always force %q\n", models.TopicSensitiveData)
	for _, s := range []models.Sentiment{models.SentimentUrgent, models.SentimentFrustrated, models.SentimentPositive} {
		fmt.Fprintf(&b, "- If someone says %s -> likely %s sentiment\n", quoteAll(tx.SentimentCues[s]), s)
	}
	fmt.Fprintf(&b, "- Urgency cues like %s suggest P0/P1 priority\n", quoteAll(tx.UrgencyCues))
	b.WriteString("- Someone asking \"how to\" or for best practices without problems is likely Neutral sentiment and P2 priority\n")
	fmt.Fprintf(&b, "- Only use %q for clearly non-%s related topics (cooking, weather, personal, etc.)\n", models.TopicGeneral, tx.Product)

	if tech := tx.DetectTechnology(body + " " + subject); tech != "" {
		fmt.Fprintf(&b, "\nDetected technology: %s\n", tech)
	}
	if intent := tx.DetectIntent(body + " " + subject); intent != "general" {
		fmt.Fprintf(&b, "Detected intent: %s\n", intent)
	}

	b.WriteString("\n4. confidence: A number between 0.0 and 1.0 indicating classification confidence\n")
	b.WriteString("5. topic_reasoning: Specific explanation for why this topic was chosen\n")
	b.WriteString("6. sentiment_reasoning: Specific explanation for why this sentiment was chosen (mention specific words/phrases)\n")
	b.WriteString("7. priority_reasoning: Specific explanation for why this priority was chosen (consider business impact)\n\n")
	b.WriteString("Respond with ONLY a valid JSON object, no other text.")

	return b.String()
}

func quoteAll(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = fmt.Sprintf("%q", w)
	}
	return strings.Join(quoted, ", ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
