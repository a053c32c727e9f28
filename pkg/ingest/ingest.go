// Package ingest loads tickets and documentation into the vector indexes.
package ingest

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/m-mizutani/goerr/v2"
	"github.com/xhad/copilot/internal/models"
	"github.com/xhad/copilot/internal/types"
	"github.com/xhad/copilot/pkg/logging"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 4

// Chunker splits a document into retrieval chunks.
type Chunker interface {
	Chunk(content, title, sourceURL string) []models.Chunk
	Qualifies(content string) bool
}

type Config struct {
	Embedder    types.Embedder
	Classifier  types.Classifier
	Chunker     Chunker
	Tickets     types.VectorIndex
	Documents   types.VectorIndex
	Concurrency int
	// Progress is called once per finished item, possibly concurrently.
	Progress func(item models.IngestItem)
	Logger   *slog.Logger
}

type Orchestrator struct {
	config Config
}

func New(config Config) *Orchestrator {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}
	config.Logger = logging.OrDefault(config.Logger)
	return &Orchestrator{config: config}
}

// IngestTickets embeds, classifies and upserts every ticket. A failing ticket
// is recorded in the report and never stops the batch.
func (o *Orchestrator) IngestTickets(ctx context.Context, tickets []models.Ticket) models.IngestReport {
	items := make([]models.IngestItem, len(tickets))
	o.fanOut(ctx, len(tickets), func(ctx context.Context, i int) models.IngestItem {
		items[i] = o.ingestTicket(ctx, tickets[i])
		return items[i]
	})
	return report(items)
}

func (o *Orchestrator) ingestTicket(ctx context.Context, t models.Ticket) models.IngestItem {
	item := models.IngestItem{ID: t.ID}
	logger := o.config.Logger.With("ticket_id", t.ID)

	if err := o.classifyAndStore(ctx, t, &item); err != nil {
		logger.Warn("failed to ingest ticket", "error", err)
		item.Error = err.Error()
		return item
	}
	logger.Debug("ingested ticket", "topic", item.Classification.Topic, "priority", item.Classification.Priority)
	return item
}

func (o *Orchestrator) classifyAndStore(ctx context.Context, t models.Ticket, item *models.IngestItem) error {
	if t.ID == "" {
		return goerr.New("ticket id is required")
	}
	text := t.Text()
	if strings.TrimSpace(text) == "" {
		return goerr.New("ticket has no body or content", goerr.V("ticket_id", t.ID))
	}

	vector, err := o.config.Embedder.Embed(ctx, text)
	if err != nil {
		return goerr.Wrap(err, "failed to embed ticket", goerr.V("ticket_id", t.ID))
	}

	c := o.config.Classifier.Classify(ctx, text, t.Subject)
	item.Classification = &c

	if err := o.config.Tickets.Upsert(ctx, t.ID, vector, t.Metadata(c)); err != nil {
		return goerr.Wrap(err, "failed to store ticket", goerr.V("ticket_id", t.ID))
	}
	return nil
}

// IngestDocuments chunks, embeds and upserts crawled pages. The report has
// one item per document; Count is the number of documents fully stored.
func (o *Orchestrator) IngestDocuments(ctx context.Context, docs []models.Document) models.IngestReport {
	items := make([]models.IngestItem, len(docs))
	var chunks atomic.Int64

	o.fanOut(ctx, len(docs), func(ctx context.Context, i int) models.IngestItem {
		n, err := o.ingestDocument(ctx, docs[i])
		chunks.Add(int64(n))
		items[i] = models.IngestItem{ID: docs[i].URL}
		if err != nil {
			o.config.Logger.Warn("failed to ingest document", "url", docs[i].URL, "error", err)
			items[i].Error = err.Error()
		}
		return items[i]
	})

	o.config.Logger.Info("ingested documents", "documents", len(docs), "chunks", chunks.Load())
	return report(items)
}

func (o *Orchestrator) ingestDocument(ctx context.Context, doc models.Document) (int, error) {
	if !o.config.Chunker.Qualifies(doc.Content) {
		return 0, goerr.New("document content too short", goerr.V("url", doc.URL))
	}

	stored := 0
	for _, chunk := range o.config.Chunker.Chunk(doc.Content, doc.Title, doc.URL) {
		vector, err := o.config.Embedder.Embed(ctx, chunk.Content)
		if err != nil {
			return stored, goerr.Wrap(err, "failed to embed chunk",
				goerr.V("url", doc.URL), goerr.V("chunk_index", chunk.ChunkIndex))
		}
		if err := o.config.Documents.Upsert(ctx, chunk.ID(), vector, chunk.Metadata()); err != nil {
			return stored, goerr.Wrap(err, "failed to store chunk",
				goerr.V("url", doc.URL), goerr.V("chunk_index", chunk.ChunkIndex))
		}
		stored++
	}
	return stored, nil
}

// fanOut runs fn for indexes [0, n) with bounded concurrency. Items that have
// not started when ctx is cancelled still run and fail on the cancelled ctx.
func (o *Orchestrator) fanOut(ctx context.Context, n int, fn func(ctx context.Context, i int) models.IngestItem) {
	var g errgroup.Group
	g.SetLimit(o.config.Concurrency)

	for i := 0; i < n; i++ {
		g.Go(func() error {
			item := fn(ctx, i)
			if o.config.Progress != nil {
				o.config.Progress(item)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func report(items []models.IngestItem) models.IngestReport {
	r := models.IngestReport{Items: items}
	for _, item := range items {
		if item.Error == "" {
			r.Count++
		} else {
			r.Failed++
		}
	}
	return r
}
