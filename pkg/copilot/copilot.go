// Package copilot runs the live query pipeline: classify, gate, then either
// route to a human team or answer from the documentation index.
package copilot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/xhad/copilot/internal/models"
	"github.com/xhad/copilot/internal/types"
	"github.com/xhad/copilot/pkg/answer"
	"github.com/xhad/copilot/pkg/logging"
	"github.com/xhad/copilot/pkg/taxonomy"
)

var ErrInvalidRequest = errors.New("invalid request")

const DefaultTicketListLimit = 100

type Gate interface {
	InDomain(query string, c models.Classification) bool
}

type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) (models.Retrieval, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, query, contextText string) string
}

type FollowupGenerator interface {
	Suggest(ctx context.Context, topic models.Topic, query, answer string) []string
}

type Config struct {
	Taxonomy   *taxonomy.Taxonomy
	Classifier types.Classifier
	Gate       Gate
	Retriever  Retriever
	Answers    Synthesizer
	Followups  FollowupGenerator
	// Tickets is the classified tickets index, read by ListTickets.
	Tickets types.VectorIndex
	TopK    int
	Logger  *slog.Logger
}

type Service struct {
	config Config
}

func New(config Config) *Service {
	if config.Taxonomy == nil {
		config.Taxonomy = taxonomy.Default("")
	}
	if config.TopK <= 0 {
		config.TopK = 5
	}
	config.Logger = logging.OrDefault(config.Logger)
	return &Service{config: config}
}

// Query answers one user query. The only error is ErrInvalidRequest; every
// downstream failure degrades to a fallback message.
func (s *Service) Query(ctx context.Context, req models.QueryRequest) (models.QueryResponse, error) {
	start := time.Now()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return models.QueryResponse{}, goerr.Wrap(ErrInvalidRequest, "query is required")
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	logger := s.config.Logger.With("session_id", sessionID, "channel", req.Channel)

	c := s.config.Classifier.Classify(ctx, query, "")
	logger.Info("classified query", "topic", c.Topic, "sentiment", c.Sentiment, "priority", c.Priority, "confidence", c.Confidence)

	resp := models.QueryResponse{
		Citations:             []models.Citation{},
		Classification:        c.Summary(),
		ClassificationReasons: c.Reasons(),
		FollowupSuggestions:   []models.FollowupSuggestion{},
		SessionID:             sessionID,
	}

	switch {
	case !s.config.Gate.InDomain(query, c):
		logger.Info("query rejected as out of domain")
		resp.Answer = answer.RejectionMessage(s.config.Taxonomy.Product)
		resp.ResponseType = models.ResponseTypeRouting

	case s.config.Taxonomy.IsRetrieval(c.Topic):
		s.answerFromDocs(ctx, logger, query, c, req.WantsFollowup(), &resp)
		resp.ResponseType = models.ResponseTypeRAG

	default:
		resp.Answer = answer.RoutingMessage(c.Topic)
		resp.ResponseType = models.ResponseTypeRouting
	}

	resp.ProcessingTimeMS = float64(time.Since(start).Microseconds()) / 1000
	return resp, nil
}

func (s *Service) answerFromDocs(ctx context.Context, logger *slog.Logger, query string, c models.Classification, followups bool, resp *models.QueryResponse) {
	retrieval, err := s.config.Retriever.Retrieve(ctx, query, s.config.TopK)
	switch {
	case err != nil:
		logger.Warn("retrieval failed", "error", err)
		resp.Answer = answer.RetrievalErrorMessage
	case retrieval.Empty():
		logger.Info("no documentation matched query", "matches", retrieval.MatchCount)
		resp.Answer = answer.NoResultsMessage(s.config.Taxonomy.Product)
	default:
		resp.Answer = s.config.Answers.Synthesize(ctx, query, strings.Join(retrieval.Contexts, "\n\n"))
		resp.Citations = retrieval.Citations
		resp.Sources = retrieval.Sources
	}

	if !followups {
		return
	}
	for _, q := range s.config.Followups.Suggest(ctx, c.Topic, query, resp.Answer) {
		resp.FollowupSuggestions = append(resp.FollowupSuggestions, models.FollowupSuggestion{Question: q})
	}
}

// ListTickets returns stored tickets with their classification rebuilt from
// the flattened metadata.
func (s *Service) ListTickets(ctx context.Context, limit int) ([]models.ClassifiedTicket, error) {
	if s.config.Tickets == nil {
		return nil, goerr.New("tickets index is not configured")
	}
	if limit <= 0 {
		limit = DefaultTicketListLimit
	}

	matches, err := s.config.Tickets.List(ctx, limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list tickets", goerr.V("limit", limit))
	}

	out := make([]models.ClassifiedTicket, 0, len(matches))
	for _, m := range matches {
		ct := models.ClassifiedTicket{Ticket: models.TicketFromMetadata(m.ID, m.Metadata)}
		if c, ok := models.ClassificationFromMetadata(m.Metadata); ok {
			ct.Classification = &c
		}
		out = append(out, ct)
	}
	return out, nil
}
