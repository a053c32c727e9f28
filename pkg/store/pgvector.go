package store

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/copilot/internal/models"
)

type VectorStoreConfig struct {
	ConnString  string
	TableName   string
	VectorDim   int
	SearchLimit int
	// Timeout bounds every statement.
	Timeout time.Duration
}

// PGVectorIndex is one logical vector index backed by a pgvector table.
type PGVectorIndex struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
	owned  bool
}

// MaxIndexedDim is the widest column pgvector can build an ivfflat index on.
// Wider tables are searched by exact scan.
const MaxIndexedDim = 2000

var tableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func vectorStoreDefaults(config VectorStoreConfig) VectorStoreConfig {
	if config.TableName == "" {
		config.TableName = "documents"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if config.SearchLimit == 0 {
		config.SearchLimit = 5
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return config
}

// Connect opens a pool that several indexes can share.
func Connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect to database")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, goerr.Wrap(err, "failed to ping database")
	}
	return pool, nil
}

// NewWithConfig opens its own pool and prepares the table.
func NewWithConfig(ctx context.Context, config VectorStoreConfig) (*PGVectorIndex, error) {
	pool, err := Connect(ctx, config.ConnString)
	if err != nil {
		return nil, err
	}
	idx, err := NewWithPool(ctx, pool, config)
	if err != nil {
		pool.Close()
		return nil, err
	}
	idx.owned = true
	return idx, nil
}

// NewWithPool prepares the table on a shared pool. Closing the index leaves
// the pool open.
func NewWithPool(ctx context.Context, pool *pgxpool.Pool, config VectorStoreConfig) (*PGVectorIndex, error) {
	config = vectorStoreDefaults(config)
	if !tableName.MatchString(config.TableName) {
		return nil, goerr.New("invalid table name", goerr.V("table", config.TableName))
	}

	idx := &PGVectorIndex{
		config: config,
		pool:   pool,
	}
	if err := idx.initialize(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (vs *PGVectorIndex) initialize(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, vs.config.Timeout)
	defer cancel()

	if _, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return goerr.Wrap(err, "failed to create vector extension")
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			embedding vector(%d),
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, vs.config.TableName, vs.config.VectorDim)
	if _, err := vs.pool.Exec(ctx, createTable); err != nil {
		return goerr.Wrap(err, "failed to create table", goerr.V("table", vs.config.TableName))
	}

	createIndex := indexStatement(vs.config)
	if createIndex == "" {
		return nil
	}
	if _, err := vs.pool.Exec(ctx, createIndex); err != nil {
		return goerr.Wrap(err, "failed to create index", goerr.V("table", vs.config.TableName))
	}

	return nil
}

func indexStatement(config VectorStoreConfig) string {
	if config.VectorDim > MaxIndexedDim {
		return ""
	}
	return fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		config.TableName, config.TableName)
}

// Upsert replaces the whole record stored under id.
func (vs *PGVectorIndex) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, vs.config.Timeout)
	defer cancel()

	if len(vector) != vs.config.VectorDim {
		return goerr.New("vector dimension mismatch",
			goerr.V("id", id), goerr.V("got", len(vector)), goerr.V("want", vs.config.VectorDim))
	}
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, embedding, metadata, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at`,
		vs.config.TableName)

	if _, err := vs.pool.Exec(ctx, stmt, id, pgvector.NewVector(vector), metadata); err != nil {
		return goerr.Wrap(err, "failed to upsert record", goerr.V("table", vs.config.TableName), goerr.V("id", id))
	}
	return nil
}

// Query returns the topK nearest records by cosine similarity, best first.
func (vs *PGVectorIndex) Query(ctx context.Context, vector []float32, topK int) ([]models.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, vs.config.Timeout)
	defer cancel()

	if topK <= 0 {
		topK = vs.config.SearchLimit
	}

	query := fmt.Sprintf(`
		SELECT id, 1 - (embedding <=> $1) AS score, metadata
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query records", goerr.V("table", vs.config.TableName))
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var m models.Match
		var score float64
		if err := rows.Scan(&m.ID, &score, &m.Metadata); err != nil {
			return nil, goerr.Wrap(err, "failed to scan row", goerr.V("table", vs.config.TableName))
		}
		m.Score = float32(score)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate rows", goerr.V("table", vs.config.TableName))
	}

	return matches, nil
}

// List returns up to limit records, most recently written first.
func (vs *PGVectorIndex) List(ctx context.Context, limit int) ([]models.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, vs.config.Timeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT id, metadata
		FROM %s
		ORDER BY updated_at DESC, id
		LIMIT $1`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list records", goerr.V("table", vs.config.TableName))
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(&m.ID, &m.Metadata); err != nil {
			return nil, goerr.Wrap(err, "failed to scan row", goerr.V("table", vs.config.TableName))
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate rows", goerr.V("table", vs.config.TableName))
	}
	return matches, nil
}

func (vs *PGVectorIndex) Close() {
	if vs.owned && vs.pool != nil {
		vs.pool.Close()
	}
}
