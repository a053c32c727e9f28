package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/xhad/copilot/internal/models"
	"github.com/xhad/copilot/internal/types"
	"github.com/xhad/copilot/pkg/answer"
	"github.com/xhad/copilot/pkg/classifier"
	"github.com/xhad/copilot/pkg/config"
	"github.com/xhad/copilot/pkg/copilot"
	"github.com/xhad/copilot/pkg/followup"
	"github.com/xhad/copilot/pkg/gate"
	"github.com/xhad/copilot/pkg/ingest"
	"github.com/xhad/copilot/pkg/llm"
	"github.com/xhad/copilot/pkg/logging"
	"github.com/xhad/copilot/pkg/processor"
	"github.com/xhad/copilot/pkg/retriever"
	"github.com/xhad/copilot/pkg/store"
	"github.com/xhad/copilot/pkg/taxonomy"
	"github.com/xhad/copilot/pkg/tickets"
)

// app holds the service handles every command shares.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	taxonomy   *taxonomy.Taxonomy
	chat       *llm.ChatEngine
	embedder   *llm.Embedder
	processor  *processor.Processor
	classifier *classifier.Classifier
	copilot    *copilot.Service

	tickets   types.VectorIndex
	documents types.VectorIndex
	pool      *pgxpool.Pool
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := logging.Default()

	chat, err := llm.NewWithConfig(llm.ChatConfig{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		Temperature: *cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize chat engine")
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		APIKey:    cfg.Embedding.APIKey,
		Timeout:   cfg.Embedding.Timeout,
		RateLimit: cfg.Embedding.RateLimit,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize embedder")
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		taxonomy: taxonomy.Default(cfg.Product),
		chat:     chat,
		embedder: embedder,
		processor: processor.NewWithConfig(processor.ProcessorConfig{
			MaxChunkChars:     cfg.Processor.MaxChunkChars,
			MinSentenceLength: cfg.Processor.MinSentenceLength,
			MinContentLength:  cfg.Processor.MinContentLength,
		}),
	}

	if err := a.openIndexes(ctx); err != nil {
		return nil, err
	}

	a.classifier = classifier.New(chat, classifier.Config{Taxonomy: a.taxonomy, Logger: logger})
	a.copilot = copilot.New(copilot.Config{
		Taxonomy:   a.taxonomy,
		Classifier: a.classifier,
		Gate:       gate.New(a.taxonomy),
		Retriever: retriever.New(embedder, a.documents, retriever.Config{
			Product: cfg.Product,
			TopK:    cfg.Database.SearchLimit,
			Logger:  logger,
		}),
		Answers: answer.New(chat, answer.Config{
			Product:     cfg.Product,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
			Logger:      logger,
		}),
		Followups: followup.New(chat, followup.Config{Taxonomy: a.taxonomy, Logger: logger}),
		Tickets:   a.tickets,
		TopK:      cfg.Database.SearchLimit,
		Logger:    logger,
	})
	return a, nil
}

// openIndexes uses pgvector when a database is configured and in-memory
// indexes otherwise.
func (a *app) openIndexes(ctx context.Context) error {
	db := a.cfg.Database
	if db.URL == "" {
		a.logger.Warn("no database configured, using in-memory indexes that are lost on exit")
		a.tickets = store.NewMemoryIndex()
		a.documents = store.NewMemoryIndex()
		return nil
	}

	pool, err := store.Connect(ctx, db.URL)
	if err != nil {
		return err
	}

	open := func(table string) (*store.PGVectorIndex, error) {
		return store.NewWithPool(ctx, pool, store.VectorStoreConfig{
			TableName:   table,
			VectorDim:   db.VectorDim,
			SearchLimit: db.SearchLimit,
			Timeout:     db.Timeout,
		})
	}

	ticketsIdx, err := open(db.TicketsTable)
	if err != nil {
		pool.Close()
		return err
	}
	docsIdx, err := open(db.DocsTable)
	if err != nil {
		pool.Close()
		return err
	}

	a.pool = pool
	a.tickets = ticketsIdx
	a.documents = docsIdx
	return nil
}

func (a *app) ingester(progress func(models.IngestItem)) *ingest.Orchestrator {
	return ingest.New(ingest.Config{
		Embedder:    a.embedder,
		Classifier:  a.classifier,
		Chunker:     a.processor,
		Tickets:     a.tickets,
		Documents:   a.documents,
		Concurrency: a.cfg.Ingest.Concurrency,
		Progress:    progress,
		Logger:      a.logger,
	})
}

// openIntake opens the SQLite intake store, creating its directory.
func (a *app) openIntake(ctx context.Context) (*tickets.SQLiteStore, error) {
	path := a.cfg.Tickets.SQLitePath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create intake directory", goerr.V("path", path))
	}
	return tickets.OpenSQLite(ctx, path)
}

func (a *app) Close() {
	a.tickets.Close()
	a.documents.Close()
	if a.pool != nil {
		a.pool.Close()
	}
}
