package ingest_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/copilot/internal/models"
	"github.com/xhad/copilot/pkg/ingest"
	"github.com/xhad/copilot/pkg/logging"
	"github.com/xhad/copilot/pkg/processor"
	"github.com/xhad/copilot/pkg/store"
)

type fakeEmbedder struct {
	failOn string
	calls  atomic.Int32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return nil, errors.New("embedding service unavailable")
	}
	return []float32{float32(len(text)), 1}, nil
}

type fakeClassifier struct {
	mu       sync.Mutex
	subjects []string
}

func (f *fakeClassifier) Classify(ctx context.Context, body, subject string) models.Classification {
	f.mu.Lock()
	f.subjects = append(f.subjects, subject)
	f.mu.Unlock()
	return models.Classification{
		Topic:              models.TopicConnector,
		Sentiment:          models.SentimentNeutral,
		Priority:           models.PriorityP1,
		Confidence:         0.8,
		TopicReasoning:     "mentions snowflake",
		SentimentReasoning: "calm",
		PriorityReasoning:  "blocked",
	}
}

func decodeTickets(t *testing.T, raw string) []models.Ticket {
	t.Helper()
	var tickets []models.Ticket
	require.NoError(t, json.Unmarshal([]byte(raw), &tickets))
	return tickets
}

func TestIngestTickets(t *testing.T) {
	tickets := decodeTickets(t, `[
		{"id": "TICKET-1", "subject": "Snowflake", "body": "Connecting Snowflake fails", "tags": ["connector"], "customer": {"tier": "gold"}},
		{"id": 2, "subject": "Legacy", "content": "Old field name for the text"},
		{"id": "TICKET-3", "subject": "Broken", "body": "this one will FAIL to embed"},
		{"id": "TICKET-4", "subject": "Empty"}
	]`)

	idx := store.NewMemoryIndex()
	cls := &fakeClassifier{}
	var progressed atomic.Int32

	o := ingest.New(ingest.Config{
		Embedder:    &fakeEmbedder{failOn: "FAIL"},
		Classifier:  cls,
		Tickets:     idx,
		Concurrency: 2,
		Progress:    func(models.IngestItem) { progressed.Add(1) },
		Logger:      logging.Discard(),
	})

	r := o.IngestTickets(context.Background(), tickets)

	assert.Equal(t, 2, r.Count)
	assert.Equal(t, 2, r.Failed)
	require.Len(t, r.Items, 4)
	assert.Equal(t, int32(4), progressed.Load())

	assert.Equal(t, "TICKET-1", r.Items[0].ID)
	assert.Empty(t, r.Items[0].Error)
	require.NotNil(t, r.Items[0].Classification)
	assert.Equal(t, models.TopicConnector, r.Items[0].Classification.Topic)

	assert.Equal(t, "2", r.Items[1].ID)
	assert.Empty(t, r.Items[1].Error)

	assert.Contains(t, r.Items[2].Error, "embedding service unavailable")
	assert.Contains(t, r.Items[3].Error, "no body or content")
	assert.Equal(t, 2, idx.Len())

	matches, err := idx.List(context.Background(), 10)
	require.NoError(t, err)
	for _, m := range matches {
		assert.Equal(t, "Connector", m.Metadata["topic"])
		for k, v := range m.Metadata {
			switch v.(type) {
			case map[string]interface{}, []interface{}:
				t.Errorf("metadata %q is nested: %#v", k, v)
			}
		}
		if m.ID == "TICKET-1" {
			assert.Equal(t, `{"tier":"gold"}`, m.Metadata["customer"])
		}
	}
}

func TestIngestTickets_Empty(t *testing.T) {
	o := ingest.New(ingest.Config{Logger: logging.Discard()})
	r := o.IngestTickets(context.Background(), nil)
	assert.Zero(t, r.Count)
	assert.Empty(t, r.Items)
}

func TestIngestDocuments(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{MaxChunkChars: 120})
	idx := store.NewMemoryIndex()
	emb := &fakeEmbedder{}

	o := ingest.New(ingest.Config{
		Embedder:  emb,
		Chunker:   p,
		Documents: idx,
		Logger:    logging.Discard(),
	})

	long := "Atlan connects to Snowflake using a service account. " +
		"You need to grant the role usage on the warehouse first. " +
		"After that the crawler extracts databases and schemas automatically. " +
		"Lineage is computed from the query history views."

	r := o.IngestDocuments(context.Background(), []models.Document{
		{URL: "https://docs.example.com/snowflake", Title: "Snowflake", Content: long},
		{URL: "https://docs.example.com/tiny", Title: "Tiny", Content: "Too short."},
	})

	assert.Equal(t, 1, r.Count)
	assert.Equal(t, 1, r.Failed)
	assert.Contains(t, r.Items[1].Error, "too short")

	chunks := p.Chunk(long, "Snowflake", "https://docs.example.com/snowflake")
	require.NotEmpty(t, chunks)
	assert.Equal(t, len(chunks), idx.Len())
	assert.Equal(t, int32(len(chunks)), emb.calls.Load())

	// re-ingesting the same page overwrites the same ids
	o.IngestDocuments(context.Background(), []models.Document{
		{URL: "https://docs.example.com/snowflake", Title: "Snowflake", Content: long},
	})
	assert.Equal(t, len(chunks), idx.Len())

	matches, err := idx.List(context.Background(), 10)
	require.NoError(t, err)
	ids := map[string]bool{}
	for _, c := range chunks {
		ids[c.ID()] = true
	}
	for _, m := range matches {
		assert.True(t, ids[m.ID], m.ID)
		assert.Equal(t, "https://docs.example.com/snowflake", m.Metadata["url"])
		assert.NotEmpty(t, m.Metadata["content"])
	}
}
