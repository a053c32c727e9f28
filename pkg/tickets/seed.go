// Package tickets provides the ticket sources consumed by ingestion: the
// JSON seed file and the SQLite intake store.
package tickets

import (
	"context"
	"encoding/json"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/xhad/copilot/internal/models"
	"github.com/xhad/copilot/internal/types"
)

// FileSource reads tickets from a JSON array on disk. The file is re-read on
// every call so edits are picked up without a restart.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (f *FileSource) ListTickets(ctx context.Context) ([]models.Ticket, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read ticket file", goerr.V("path", f.Path))
	}
	tickets, err := Decode(data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode ticket file", goerr.V("path", f.Path))
	}
	return tickets, nil
}

// Decode parses a JSON array of tickets.
func Decode(data []byte) ([]models.Ticket, error) {
	var tickets []models.Ticket
	if err := json.Unmarshal(data, &tickets); err != nil {
		return nil, goerr.Wrap(err, "invalid ticket JSON")
	}
	return tickets, nil
}

// Combined concatenates the tickets of several sources in order.
type Combined []types.TicketSource

func (c Combined) ListTickets(ctx context.Context) ([]models.Ticket, error) {
	var all []models.Ticket
	for _, src := range c {
		if src == nil {
			continue
		}
		tickets, err := src.ListTickets(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, tickets...)
	}
	return all, nil
}
