package classifier

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/xhad/copilot/internal/models"
)

// wireClassification mirrors the model's JSON; pointers detect missing fields.
type wireClassification struct {
	Topic              *string  `json:"topic"`
	Sentiment          *string  `json:"sentiment"`
	Priority           *string  `json:"priority"`
	Confidence         *float64 `json:"confidence"`
	TopicReasoning     *string  `json:"topic_reasoning"`
	SentimentReasoning *string  `json:"sentiment_reasoning"`
	PriorityReasoning  *string  `json:"priority_reasoning"`
}

// Decode parses model output into a classification. Any deviation from the
// schema is an error; there is no partial result.
func Decode(text string) (models.Classification, error) {
	payload := stripFences(text)
	if payload == "" {
		return models.Classification{}, goerr.New("empty classification output")
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.DisallowUnknownFields()

	var w wireClassification
	if err := dec.Decode(&w); err != nil {
		return models.Classification{}, goerr.Wrap(err, "invalid classification JSON")
	}
	if dec.More() {
		return models.Classification{}, goerr.New("trailing data after classification JSON")
	}

	missing := []string{}
	for name, present := range map[string]bool{
		"topic":               w.Topic != nil,
		"sentiment":           w.Sentiment != nil,
		"priority":            w.Priority != nil,
		"confidence":          w.Confidence != nil,
		"topic_reasoning":     w.TopicReasoning != nil,
		"sentiment_reasoning": w.SentimentReasoning != nil,
		"priority_reasoning":  w.PriorityReasoning != nil,
	} {
		if !present {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return models.Classification{}, goerr.New("classification is missing fields", goerr.V("fields", missing))
	}

	c := models.Classification{
		Topic:              models.Topic(strings.TrimSpace(*w.Topic)),
		Sentiment:          models.Sentiment(strings.TrimSpace(*w.Sentiment)),
		Priority:           models.Priority(strings.ToUpper(strings.TrimSpace(*w.Priority))),
		Confidence:         *w.Confidence,
		TopicReasoning:     *w.TopicReasoning,
		SentimentReasoning: *w.SentimentReasoning,
		PriorityReasoning:  *w.PriorityReasoning,
	}

	if !c.Topic.Valid() {
		return models.Classification{}, goerr.New("unknown topic", goerr.V("topic", c.Topic))
	}
	if !c.Sentiment.Valid() {
		return models.Classification{}, goerr.New("unknown sentiment", goerr.V("sentiment", c.Sentiment))
	}
	if !c.Priority.Valid() {
		return models.Classification{}, goerr.New("unknown priority", goerr.V("priority", c.Priority))
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return models.Classification{}, goerr.New("confidence out of range", goerr.V("confidence", c.Confidence))
	}

	return c, nil
}

// stripFences removes an optional markdown code fence around the payload.
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the info string, e.g. ```json
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
