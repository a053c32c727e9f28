package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkID(t *testing.T) {
	c := Chunk{Content: "Install with pip.", SourceURL: "https://docs.atlan.com/sdks/python", Title: "Python SDK"}
	assert.Equal(t, "81dab978083abeaf6660762ba9875781", c.ID())

	c.Content = "changed content keeps the id"
	assert.Equal(t, "81dab978083abeaf6660762ba9875781", c.ID())

	c.ChunkIndex = 1
	assert.Equal(t, "6ae925d4f65346d2a462e718c189c9af", c.ID())

	meta := c.Metadata()
	assert.Equal(t, "https://docs.atlan.com/sdks/python", meta["url"])
	assert.Equal(t, 1, meta["chunk_index"])
	assert.Equal(t, "Python SDK", meta["title"])
}

func TestDefaultClassification(t *testing.T) {
	c := DefaultClassification("timeout")
	assert.Equal(t, TopicGeneral, c.Topic)
	assert.Equal(t, SentimentNeutral, c.Sentiment)
	assert.Equal(t, PriorityP2, c.Priority)
	assert.Equal(t, 0.5, c.Confidence)
	assert.Equal(t, "Classification failed: timeout", c.TopicReasoning)
	assert.Equal(t, c.TopicReasoning, c.PriorityReasoning)
}

func TestClassificationFlattenRoundTrip(t *testing.T) {
	c := Classification{
		Topic:              TopicAPISDK,
		Sentiment:          SentimentFrustrated,
		Priority:           PriorityP0,
		Confidence:         0.92,
		TopicReasoning:     "mentions the SDK",
		SentimentReasoning: "blocked",
		PriorityReasoning:  "production outage",
	}

	got, ok := ClassificationFromMetadata(c.Flatten())
	require.True(t, ok)
	assert.Equal(t, c, got)

	// stores hand numbers back in several shapes
	meta := c.Flatten()
	meta["confidence"] = json.Number("0.92")
	got, ok = ClassificationFromMetadata(meta)
	require.True(t, ok)
	assert.Equal(t, 0.92, got.Confidence)

	_, ok = ClassificationFromMetadata(map[string]interface{}{"subject": "never classified"})
	assert.False(t, ok)
}

func TestEnumsValid(t *testing.T) {
	assert.True(t, TopicSSO.Valid())
	assert.False(t, Topic("Billing").Valid())
	assert.True(t, SentimentUrgent.Valid())
	assert.False(t, Sentiment("Angry").Valid())
	assert.True(t, PriorityP1.Valid())
	assert.False(t, Priority("p1").Valid())
}

func TestTicketJSON(t *testing.T) {
	var tk Ticket
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": 12345678901,
		"subject": "Lineage missing",
		"content": "Snowflake lineage is not showing",
		"customer": {"tier": "gold"},
		"tags": ["lineage"]
	}`), &tk))

	assert.Equal(t, "12345678901", tk.ID)
	assert.Equal(t, "Lineage missing", tk.Subject)
	assert.Empty(t, tk.Body)
	assert.Equal(t, "Snowflake lineage is not showing", tk.Text())

	out, err := json.Marshal(tk)
	require.NoError(t, err)
	var back map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, "12345678901", back["id"])
	assert.Equal(t, map[string]interface{}{"tier": "gold"}, back["customer"])
}

func TestTicketText_PrefersBody(t *testing.T) {
	assert.Equal(t, "body", Ticket{Body: "body", Content: "content"}.Text())
	assert.Equal(t, "content", Ticket{Body: "  ", Content: "content"}.Text())
}

func TestTicketMetadataIsFlat(t *testing.T) {
	tk := Ticket{
		ID:      "T-1",
		Subject: "SSO",
		Body:    "Okta login loops",
		Fields: map[string]interface{}{
			"customer": map[string]interface{}{"tier": "gold"},
			"tags":     []interface{}{"sso", "okta"},
			"seats":    json.Number("40"),
			"missing":  nil,
		},
	}
	meta := tk.Metadata(DefaultClassification("x"))

	for k, v := range meta {
		switch v.(type) {
		case string, bool, int, int64, float64:
		default:
			t.Errorf("field %s has non-scalar value %T", k, v)
		}
	}
	assert.Equal(t, `{"tier":"gold"}`, meta["customer"])
	assert.Equal(t, `["sso","okta"]`, meta["tags"])
	assert.Equal(t, int64(40), meta["seats"])
	assert.NotContains(t, meta, "missing")
	assert.Equal(t, "T-1", meta["id"])
	assert.Equal(t, "General", meta["topic"])
}

func TestFlattenMetadata(t *testing.T) {
	out := FlattenMetadata(map[string]interface{}{
		"s":      "x",
		"list":   []string{"a"},
		"big":    json.Number("12345678901234"),
		"ratio":  json.Number("0.25"),
		"nested": map[string]interface{}{"k": 1},
	})
	assert.Equal(t, "x", out["s"])
	assert.Equal(t, []string{"a"}, out["list"])
	assert.Equal(t, int64(12345678901234), out["big"])
	assert.Equal(t, 0.25, out["ratio"])
	assert.Equal(t, `{"k":1}`, out["nested"])
}

func TestTicketFromMetadata(t *testing.T) {
	c := Classification{Topic: TopicLineage, Sentiment: SentimentNeutral, Priority: PriorityP1, Confidence: 0.7}
	meta := Ticket{ID: "T-9", Subject: "Lineage", Body: "missing edges"}.Metadata(c)

	tk := TicketFromMetadata("T-9", meta)
	assert.Equal(t, "T-9", tk.ID)
	assert.Equal(t, "Lineage", tk.Subject)
	assert.Equal(t, "missing edges", tk.Text())

	ct := ClassifiedTicket{Ticket: tk, Classification: &c}
	out, err := json.Marshal(ct)
	require.NoError(t, err)
	var back map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, "T-9", back["id"])
	assert.Equal(t, "Lineage", back["classification"].(map[string]interface{})["topic"])
}

func TestQueryRequestWantsFollowup(t *testing.T) {
	var req QueryRequest
	require.NoError(t, json.Unmarshal([]byte(`{"query":"q"}`), &req))
	assert.True(t, req.WantsFollowup())

	require.NoError(t, json.Unmarshal([]byte(`{"query":"q","include_followup":false}`), &req))
	assert.False(t, req.WantsFollowup())

	require.NoError(t, json.Unmarshal([]byte(`{"query":"q","include_followup":true}`), &req))
	assert.True(t, req.WantsFollowup())
}

func TestRetrievalEmpty(t *testing.T) {
	assert.True(t, Retrieval{}.Empty())
	assert.False(t, Retrieval{Contexts: []string{"x"}}.Empty())
}

func TestMetaHelpers(t *testing.T) {
	meta := map[string]interface{}{"s": "x", "n": 3, "f": float32(0.5), "nil": nil}
	assert.Equal(t, "x", MetaString(meta, "s"))
	assert.Equal(t, "3", MetaString(meta, "n"))
	assert.Equal(t, "", MetaString(meta, "nil"))
	assert.Equal(t, "", MetaString(meta, "absent"))

	f, ok := MetaFloat(meta, "f")
	assert.True(t, ok)
	assert.Equal(t, 0.5, f)
	_, ok = MetaFloat(meta, "s")
	assert.False(t, ok)
}
