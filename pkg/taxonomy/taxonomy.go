// Package taxonomy is the single keyword table shared by the classifier
// prompt, the relatedness gate and the follow-up fallbacks.
package taxonomy

import (
	"sort"
	"strings"

	"github.com/xhad/copilot/internal/models"
)

// TopicEntry describes one topic of the taxonomy.
type TopicEntry struct {
	Topic       models.Topic
	Description string
	// Keywords force this topic when present, in table order.
	Keywords []string
	// Technical topics are in-domain for the relatedness gate.
	Technical bool
	// Retrieval topics are answered from the knowledge base.
	Retrieval bool
	Followups []string
}

// Taxonomy is the declarative vocabulary consumed by every component.
type Taxonomy struct {
	Product string
	// Topics are ordered by keyword priority: technology topics first so
	// "how do I use the SDK" resolves to API/SDK and not How-to.
	Topics []TopicEntry

	Technologies map[string][]string
	Intents      map[string][]string

	DomainKeywords      []string
	OutOfDomainKeywords []string

	SentimentCues map[models.Sentiment][]string
	UrgencyCues   []string

	DefaultFollowups []string
}

// Default returns the taxonomy for the given product name.
func Default(product string) *Taxonomy {
	if product == "" {
		product = "Atlan"
	}
	lower := strings.ToLower(product)

	return &Taxonomy{
		Product: product,
		Topics: []TopicEntry{
			{
				Topic:       models.TopicAPISDK,
				Description: "API usage, SDK issues, authentication, endpoints, code examples, developer tools",
				Keywords:    []string{"sdk", "api", "python sdk", "go sdk", "java sdk", "javascript sdk", "code", "developer", "authentication"},
				Technical:   true,
				Retrieval:   true,
				Followups: []string{
					"Can you show me a code example for this?",
					"What are the common error codes I should handle?",
					"How do I handle authentication properly?",
				},
			},
			{
				Topic:       models.TopicConnector,
				Description: "Data connectors, connecting data sources, third-party integrations, data ingestion",
				Keywords:    []string{"connect to", "integrate with", "data source", "connector", "snowflake", "databricks", "powerbi"},
				Technical:   true,
			},
			{
				Topic:       models.TopicLineage,
				Description: "Data lineage, dependencies, flow tracking, data relationships, impact analysis",
				Keywords:    []string{"data flow", "dependencies", "impact", "lineage"},
				Technical:   true,
			},
			{
				Topic:       models.TopicSSO,
				Description: "Single Sign-On, authentication, SAML, OAuth, identity management, login issues",
				Keywords:    []string{"login", "sso", "saml", "oauth", "identity"},
				Technical:   true,
				Retrieval:   true,
				Followups: []string{
					"How do I configure this step by step?",
					"What identity providers are supported?",
					"How do I troubleshoot if it doesn't work?",
				},
			},
			{
				Topic:       models.TopicGlossary,
				Description: "Data glossary, business terms, definitions, metadata management, terminology",
				Keywords:    []string{"glossary", "terms", "definitions", "metadata"},
				Technical:   true,
			},
			{
				Topic:       models.TopicBestPractices,
				Description: "Recommended approaches, optimization tips, best practices, guidelines",
				Keywords:    []string{"best practice", "optimize", "recommend", "guidelines"},
				Technical:   true,
				Retrieval:   true,
			},
			{
				Topic:       models.TopicSensitiveData,
				Description: "Data privacy, security, compliance, sensitive data handling, PII, GDPR",
				Keywords:    []string{"privacy", "security", "compliance", "sensitive", "pii", "gdpr"},
				Technical:   true,
			},
			{
				Topic:       models.TopicProduct,
				Description: "Product features, capabilities, what " + product + " can do, feature questions, product overview",
				Keywords:    []string{"what can " + lower + " do", "what features", "what capabilities"},
				Technical:   true,
				Retrieval:   true,
			},
			{
				Topic:       models.TopicHowTo,
				Description: `Getting started, tutorials, step-by-step instructions, setup guides, "how do I", "how can I", "how to"`,
				Keywords:    []string{"how can i get started", "how do i set up", "how to use", "how to configure"},
				Technical:   true,
				Retrieval:   true,
				Followups: []string{
					"Can you provide more detailed steps?",
					"What are the prerequisites I need?",
					"What if I encounter errors during setup?",
				},
			},
			{
				Topic:       models.TopicGeneral,
				Description: "Only for non-" + product + " related questions like cooking, weather, personal topics",
			},
		},
		Technologies: map[string][]string{
			"python":     {"python", "py"},
			"java":       {"java"},
			"javascript": {"javascript", "js", "node", "typescript"},
			"go":         {"go", "golang"},
			"snowflake":  {"snowflake"},
			"databricks": {"databricks"},
			"powerbi":    {"powerbi", "power bi"},
			"tableau":    {"tableau"},
		},
		Intents: map[string][]string{
			"setup":           {"setup", "install", "configure", "getting started", "begin"},
			"authentication":  {"auth", "login", "token", "api key", "credentials"},
			"troubleshooting": {"error", "issue", "problem", "fix", "debug"},
			"configuration":   {"config", "settings", "options", "customize"},
			"reference":       {"api", "reference", "documentation", "guide"},
		},
		DomainKeywords: []string{
			lower, "data catalog", "data lineage", "data governance", "metadata",
			"api", "sdk", "integration", "connector", "sso", "authentication",
			"snowflake", "databricks", "powerbi", "tableau", "looker", "dbt",
			"airflow", "kafka", "mongodb", "postgres", "mysql", "bigquery",
			"redshift", "athena", "s3", "azure", "gcp", "google cloud",
		},
		OutOfDomainKeywords: []string{
			"cooking", "recipe", "food", "curry", "pasta", "weather", "sports",
			"movie", "music", "game", "travel", "shopping", "personal", "health",
			"finance", "news", "politics", "religion", "dating", "family",
		},
		SentimentCues: map[models.Sentiment][]string{
			models.SentimentFrustrated: {"failing", "not working", "error", "problem", "issue", "difficult", "sparse documentation"},
			models.SentimentUrgent:     {"urgent", "asap", "blocking", "critical", "emergency", "immediately"},
			models.SentimentPositive:   {"thanks", "thank you", "great", "love", "appreciate", "excited"},
		},
		UrgencyCues: []string{"urgent", "critical", "emergency", "asap", "immediately"},
		DefaultFollowups: []string{
			"Can you provide more details about this?",
			"What are the next steps I should take?",
			"How can I get additional help?",
		},
	}
}

// Entry returns the table entry for topic.
func (t *Taxonomy) Entry(topic models.Topic) (TopicEntry, bool) {
	for _, e := range t.Topics {
		if e.Topic == topic {
			return e, true
		}
	}
	return TopicEntry{}, false
}

// IsRetrieval reports whether topic is answered from the knowledge base.
func (t *Taxonomy) IsRetrieval(topic models.Topic) bool {
	e, ok := t.Entry(topic)
	return ok && e.Retrieval
}

// IsTechnical reports whether topic belongs to the in-domain technical subset.
func (t *Taxonomy) IsTechnical(topic models.Topic) bool {
	e, ok := t.Entry(topic)
	return ok && e.Technical
}

// Followups returns the static follow-up questions for topic.
func (t *Taxonomy) Followups(topic models.Topic) []string {
	if e, ok := t.Entry(topic); ok && len(e.Followups) > 0 {
		return append([]string(nil), e.Followups...)
	}
	return append([]string(nil), t.DefaultFollowups...)
}

// ContainsAny reports whether text mentions any keyword, case-insensitively.
// Single-word keywords match whole words or their plural, so "api" matches
// "APIs" but not "capital". Phrases match as substrings.
func ContainsAny(text string, keywords []string) bool {
	text = strings.ToLower(text)
	var set map[string]bool
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if !isWord(kw) {
			if strings.Contains(text, kw) {
				return true
			}
			continue
		}
		if set == nil {
			set = wordSet(text)
		}
		if set[kw] || set[kw+"s"] || set[kw+"es"] {
			return true
		}
	}
	return false
}

func isWordRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= '0' && r <= '9'
}

func isWord(s string) bool {
	for _, r := range s {
		if !isWordRune(r) {
			return false
		}
	}
	return true
}

// wordSet expects lowercased text.
func wordSet(text string) map[string]bool {
	words := strings.FieldsFunc(text, func(r rune) bool { return !isWordRune(r) })
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// DetectTechnology returns the first technology mentioned in text.
func (t *Taxonomy) DetectTechnology(text string) string {
	text = strings.ToLower(text)
	set := wordSet(text)
	for _, tech := range sortedKeys(t.Technologies) {
		for _, pattern := range t.Technologies[tech] {
			if strings.Contains(pattern, " ") {
				if strings.Contains(text, pattern) {
					return tech
				}
			} else if set[pattern] {
				return tech
			}
		}
	}
	return ""
}

// DetectIntent returns the first intent mentioned in text, or "general".
func (t *Taxonomy) DetectIntent(text string) string {
	for _, intent := range sortedKeys(t.Intents) {
		if ContainsAny(text, t.Intents[intent]) {
			return intent
		}
	}
	return "general"
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
