package tickets_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/copilot/internal/models"
	"github.com/xhad/copilot/internal/types"
	"github.com/xhad/copilot/pkg/tickets"
)

var (
	_ types.TicketSource = (*tickets.FileSource)(nil)
	_ types.TicketSource = (*tickets.SQLiteStore)(nil)
	_ types.TicketSource = tickets.Combined{}
)

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickets.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id": "TICKET-1", "subject": "SSO", "body": "Okta login fails", "priority_hint": "high"},
		{"id": 1234567, "subject": "Legacy", "content": "Old export format"}
	]`), 0o600))

	got, err := tickets.NewFileSource(path).ListTickets(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "TICKET-1", got[0].ID)
	assert.Equal(t, "Okta login fails", got[0].Text())
	assert.Equal(t, "high", got[0].Fields["priority_hint"])

	assert.Equal(t, "1234567", got[1].ID)
	assert.Equal(t, "Old export format", got[1].Text())
}

func TestFileSource_Errors(t *testing.T) {
	_, err := tickets.NewFileSource(filepath.Join(t.TempDir(), "missing.json")).ListTickets(context.Background())
	assert.Error(t, err)

	_, err = tickets.Decode([]byte(`{"id": "not an array"}`))
	assert.Error(t, err)
}

func TestSampleTicketsFile(t *testing.T) {
	got, err := tickets.NewFileSource(filepath.Join("..", "..", "data", "sample_tickets.json")).ListTickets(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, got)

	ids := map[string]bool{}
	for _, tk := range got {
		assert.NotEmpty(t, tk.ID)
		assert.NotEmpty(t, tk.Text(), tk.ID)
		assert.False(t, ids[tk.ID], "duplicate id %s", tk.ID)
		ids[tk.ID] = true
	}
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	s, err := tickets.OpenSQLite(ctx, filepath.Join(t.TempDir(), "intake.db"))
	require.NoError(t, err)
	defer s.Close()

	var submitted models.Ticket
	require.NoError(t, json.Unmarshal([]byte(`{"subject": "Lineage gap", "body": "Upstream lineage is missing", "channel": "email", "tags": ["lineage"]}`), &submitted))

	stored, err := s.Add(ctx, submitted)
	require.NoError(t, err)
	assert.Regexp(t, `^TICKET-[0-9A-F]{8}$`, stored.ID)

	_, err = s.Add(ctx, models.Ticket{ID: "TICKET-2", Content: "Legacy content field"})
	require.NoError(t, err)

	// replacing an id keeps one row
	_, err = s.Add(ctx, models.Ticket{ID: "TICKET-2", Subject: "Updated", Body: "New body"})
	require.NoError(t, err)

	got, err := s.ListTickets(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, stored.ID, got[0].ID)
	assert.Equal(t, "Upstream lineage is missing", got[0].Text())
	assert.Equal(t, "email", got[0].Fields["channel"])
	assert.Equal(t, []interface{}{"lineage"}, got[0].Fields["tags"])
	assert.NotEmpty(t, got[0].Fields["created_at"])

	assert.Equal(t, "TICKET-2", got[1].ID)
	assert.Equal(t, "Updated", got[1].Subject)
	assert.Equal(t, "New body", got[1].Text())
}

func TestSQLiteStore_RejectsEmptyBody(t *testing.T) {
	ctx := context.Background()
	s, err := tickets.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Add(ctx, models.Ticket{Subject: "only a subject"})
	assert.Error(t, err)
}

func TestCombined(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id": "SEED-1", "body": "seeded"}]`), 0o600))

	s, err := tickets.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Add(ctx, models.Ticket{ID: "INTAKE-1", Body: "submitted"})
	require.NoError(t, err)

	got, err := tickets.Combined{tickets.NewFileSource(path), nil, s}.ListTickets(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "SEED-1", got[0].ID)
	assert.Equal(t, "INTAKE-1", got[1].ID)
}
