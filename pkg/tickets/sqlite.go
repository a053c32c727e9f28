package tickets

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/m-mizutani/goerr/v2"
	"github.com/xhad/copilot/internal/models"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS tickets (
	id         TEXT PRIMARY KEY,
	subject    TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL,
	fields     TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

type ticketRow struct {
	ID        string `db:"id"`
	Subject   string `db:"subject"`
	Body      string `db:"body"`
	Fields    string `db:"fields"`
	CreatedAt string `db:"created_at"`
}

// SQLiteStore keeps tickets submitted through the intake endpoint until the
// next ingestion run classifies them.
type SQLiteStore struct {
	db *sqlx.DB
}

// OpenSQLite opens (creating if needed) the intake database at path. Use
// ":memory:" for a throwaway store.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite", path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open ticket database", goerr.V("path", path))
	}
	// a single connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return goerr.Wrap(err, "failed to create tickets table")
	}
	return nil
}

// Add stores a ticket, assigning an id when it has none, and returns the
// stored ticket. Re-adding an id replaces it.
func (s *SQLiteStore) Add(ctx context.Context, t models.Ticket) (models.Ticket, error) {
	if strings.TrimSpace(t.Text()) == "" {
		return models.Ticket{}, goerr.New("ticket body is required")
	}
	if t.ID == "" {
		t.ID = "TICKET-" + strings.ToUpper(uuid.NewString()[:8])
	}
	if t.Body == "" {
		t.Body = t.Content
	}

	extra := make(map[string]interface{}, len(t.Fields))
	for k, v := range t.Fields {
		switch k {
		case "id", "subject", "body", "content":
			continue
		}
		extra[k] = v
	}
	fields, err := json.Marshal(extra)
	if err != nil {
		return models.Ticket{}, goerr.Wrap(err, "failed to encode ticket fields", goerr.V("ticket_id", t.ID))
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tickets (id, subject, body, fields) VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET subject = excluded.subject, body = excluded.body, fields = excluded.fields`,
		t.ID, t.Subject, t.Body, string(fields))
	if err != nil {
		return models.Ticket{}, goerr.Wrap(err, "failed to insert ticket", goerr.V("ticket_id", t.ID))
	}
	return t, nil
}

// ListTickets returns every stored ticket, oldest first.
func (s *SQLiteStore) ListTickets(ctx context.Context) ([]models.Ticket, error) {
	var rows []ticketRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, subject, body, fields, created_at FROM tickets ORDER BY created_at, rowid`); err != nil {
		return nil, goerr.Wrap(err, "failed to list tickets")
	}

	out := make([]models.Ticket, 0, len(rows))
	for _, r := range rows {
		fields := map[string]interface{}{}
		if err := json.Unmarshal([]byte(r.Fields), &fields); err != nil {
			return nil, goerr.Wrap(err, "corrupt ticket fields", goerr.V("ticket_id", r.ID))
		}
		fields["id"] = r.ID
		fields["subject"] = r.Subject
		fields["body"] = r.Body
		fields["created_at"] = r.CreatedAt
		out = append(out, models.Ticket{ID: r.ID, Subject: r.Subject, Body: r.Body, Fields: fields})
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
