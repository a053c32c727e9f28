package models

import "fmt"

type Topic string

const (
	TopicHowTo         Topic = "How-to"
	TopicProduct       Topic = "Product"
	TopicConnector     Topic = "Connector"
	TopicLineage       Topic = "Lineage"
	TopicAPISDK        Topic = "API/SDK"
	TopicSSO           Topic = "SSO"
	TopicGlossary      Topic = "Glossary"
	TopicBestPractices Topic = "Best practices"
	TopicSensitiveData Topic = "Sensitive data"
	TopicGeneral       Topic = "General"
)

// Topics lists the full taxonomy in prompt order.
var Topics = []Topic{
	TopicHowTo,
	TopicProduct,
	TopicConnector,
	TopicLineage,
	TopicAPISDK,
	TopicSSO,
	TopicGlossary,
	TopicBestPractices,
	TopicSensitiveData,
	TopicGeneral,
}

func (t Topic) Valid() bool {
	for _, known := range Topics {
		if t == known {
			return true
		}
	}
	return false
}

type Sentiment string

const (
	SentimentPositive   Sentiment = "Positive"
	SentimentNeutral    Sentiment = "Neutral"
	SentimentFrustrated Sentiment = "Frustrated"
	SentimentUrgent     Sentiment = "Urgent"
)

var Sentiments = []Sentiment{SentimentPositive, SentimentNeutral, SentimentFrustrated, SentimentUrgent}

func (s Sentiment) Valid() bool {
	for _, known := range Sentiments {
		if s == known {
			return true
		}
	}
	return false
}

type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
)

var Priorities = []Priority{PriorityP0, PriorityP1, PriorityP2}

func (p Priority) Valid() bool {
	for _, known := range Priorities {
		if p == known {
			return true
		}
	}
	return false
}

// Classification is computed per request and only persisted flattened into
// the owning record's metadata.
type Classification struct {
	Topic              Topic     `json:"topic"`
	Sentiment          Sentiment `json:"sentiment"`
	Priority           Priority  `json:"priority"`
	Confidence         float64   `json:"confidence"`
	TopicReasoning     string    `json:"topic_reasoning"`
	SentimentReasoning string    `json:"sentiment_reasoning"`
	PriorityReasoning  string    `json:"priority_reasoning"`
}

// DefaultClassification is substituted whenever the classifier cannot produce
// a valid result.
func DefaultClassification(reason string) Classification {
	msg := fmt.Sprintf("Classification failed: %s", reason)
	return Classification{
		Topic:              TopicGeneral,
		Sentiment:          SentimentNeutral,
		Priority:           PriorityP2,
		Confidence:         0.5,
		TopicReasoning:     msg,
		SentimentReasoning: msg,
		PriorityReasoning:  msg,
	}
}

// Flatten returns the classification as flat metadata fields.
func (c Classification) Flatten() map[string]interface{} {
	return map[string]interface{}{
		"topic":               string(c.Topic),
		"sentiment":           string(c.Sentiment),
		"priority":            string(c.Priority),
		"confidence":          c.Confidence,
		"topic_reasoning":     c.TopicReasoning,
		"sentiment_reasoning": c.SentimentReasoning,
		"priority_reasoning":  c.PriorityReasoning,
	}
}

// ClassificationFromMetadata rebuilds a classification from flattened fields.
// The second return is false when the record was never classified.
func ClassificationFromMetadata(meta map[string]interface{}) (Classification, bool) {
	topic := MetaString(meta, "topic")
	if topic == "" {
		return Classification{}, false
	}
	confidence, _ := MetaFloat(meta, "confidence")
	return Classification{
		Topic:              Topic(topic),
		Sentiment:          Sentiment(MetaString(meta, "sentiment")),
		Priority:           Priority(MetaString(meta, "priority")),
		Confidence:         confidence,
		TopicReasoning:     MetaString(meta, "topic_reasoning"),
		SentimentReasoning: MetaString(meta, "sentiment_reasoning"),
		PriorityReasoning:  MetaString(meta, "priority_reasoning"),
	}, true
}

// Reasons is the classification_reasons block of a query response.
type Reasons struct {
	TopicReasoning     string `json:"topic_reasoning"`
	SentimentReasoning string `json:"sentiment_reasoning"`
	PriorityReasoning  string `json:"priority_reasoning"`
}

func (c Classification) Reasons() Reasons {
	return Reasons{
		TopicReasoning:     c.TopicReasoning,
		SentimentReasoning: c.SentimentReasoning,
		PriorityReasoning:  c.PriorityReasoning,
	}
}

// Summary is the classification block of a query response.
type Summary struct {
	Topic      Topic     `json:"topic"`
	Sentiment  Sentiment `json:"sentiment"`
	Priority   Priority  `json:"priority"`
	Confidence float64   `json:"confidence"`
}

func (c Classification) Summary() Summary {
	return Summary{
		Topic:      c.Topic,
		Sentiment:  c.Sentiment,
		Priority:   c.Priority,
		Confidence: c.Confidence,
	}
}
