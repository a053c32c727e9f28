package types

import (
	"context"

	"github.com/xhad/copilot/internal/models"
)

// Completer is the hosted text-generation endpoint.
type Completer interface {
	Complete(ctx context.Context, req models.CompletionRequest) (string, error)
}

// Embedder converts text to a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is one logical nearest-neighbour index. Upsert fully replaces
// the record stored under id.
type VectorIndex interface {
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]interface{}) error
	Query(ctx context.Context, vector []float32, topK int) ([]models.Match, error)
	List(ctx context.Context, limit int) ([]models.Match, error)
	Close()
}

// TicketSource yields the tickets an ingestion run classifies.
type TicketSource interface {
	ListTickets(ctx context.Context) ([]models.Ticket, error)
}

// Classifier maps ticket or query text to a classification. It never fails.
type Classifier interface {
	Classify(ctx context.Context, body, subject string) models.Classification
}
