// Package server exposes the copilot over HTTP and a websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/m-mizutani/goerr/v2"
	"github.com/xhad/copilot/internal/models"
	"github.com/xhad/copilot/internal/types"
	"github.com/xhad/copilot/pkg/copilot"
	"github.com/xhad/copilot/pkg/logging"
)

type QueryService interface {
	Query(ctx context.Context, req models.QueryRequest) (models.QueryResponse, error)
	ListTickets(ctx context.Context, limit int) ([]models.ClassifiedTicket, error)
}

type TicketIngester interface {
	IngestTickets(ctx context.Context, tickets []models.Ticket) models.IngestReport
}

type IntakeStore interface {
	Add(ctx context.Context, t models.Ticket) (models.Ticket, error)
}

type Config struct {
	Copilot  QueryService
	Ingester TicketIngester
	// Tickets is what /api/tickets/classify and /api/init ingest.
	Tickets types.TicketSource
	// Samples backs /api/tickets/sample; defaults to Tickets.
	Samples types.TicketSource
	// Intake is optional; without it /api/tickets/intake answers 503.
	Intake         IntakeStore
	AllowedOrigins []string
	Product        string
	Logger         *slog.Logger
}

type Server struct {
	config Config
	router *chi.Mux
}

func New(config Config) (*Server, error) {
	if config.Copilot == nil {
		return nil, goerr.New("query service is required")
	}
	if config.Samples == nil {
		config.Samples = config.Tickets
	}
	if config.Product == "" {
		config.Product = "Atlan"
	}
	config.Logger = logging.OrDefault(config.Logger)

	s := &Server{config: config}
	s.router = s.routes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.accessLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsHandler(s.config.AllowedOrigins))

	r.Get("/", s.rootHandler)
	r.Get("/health", healthHandler)
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Post("/init", s.classifyHandler)
		r.Post("/rag/query", s.queryHandler)

		r.Route("/tickets", func(r chi.Router) {
			r.Get("/", s.listTicketsHandler)
			r.Post("/classify", s.classifyHandler)
			r.Get("/sample", s.sampleHandler)
			r.Post("/intake", s.intakeHandler)
		})
	})

	return r
}

func (s *Server) accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		logger := s.config.Logger.With("request_id", middleware.GetReqID(r.Context()))

		defer func() {
			logger.Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r.WithContext(logging.With(r.Context(), logger)))
	})
}

// corsHandler allows the configured origins. "*" allows any origin but then
// credentials are never allowed.
func corsHandler(origins []string) func(http.Handler) http.Handler {
	wildcard := slices.Contains(origins, "*")
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	})
}

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("%s Customer Support Backend is running!", s.config.Product),
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "message": "API is running"})
}

func (s *Server) queryHandler(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
		return
	}

	resp, err := s.config.Copilot.Query(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, copilot.ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		writeError(w, r, err, status)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type classifyResponse struct {
	models.IngestReport
	Message string `json:"message"`
}

func (s *Server) classifyHandler(w http.ResponseWriter, r *http.Request) {
	if s.config.Ingester == nil || s.config.Tickets == nil {
		writeError(w, r, goerr.New("ticket ingestion is not configured"), http.StatusServiceUnavailable)
		return
	}

	tickets, err := s.config.Tickets.ListTickets(r.Context())
	if err != nil {
		writeError(w, r, goerr.Wrap(err, "failed to load tickets"), http.StatusInternalServerError)
		return
	}

	report := s.config.Ingester.IngestTickets(r.Context(), tickets)
	logging.From(r.Context()).Info("classified tickets", "count", report.Count, "failed", report.Failed)
	writeJSON(w, http.StatusOK, classifyResponse{
		IngestReport: report,
		Message:      fmt.Sprintf("Successfully classified and stored %d tickets", report.Count),
	})
}

type ticketsResponse struct {
	Tickets interface{} `json:"tickets"`
	Count   int         `json:"count"`
}

func (s *Server) listTicketsHandler(w http.ResponseWriter, r *http.Request) {
	limit := copilot.DefaultTicketListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, r, goerr.New("limit must be a positive integer", goerr.V("limit", raw)), http.StatusBadRequest)
			return
		}
		limit = n
	}

	tickets, err := s.config.Copilot.ListTickets(r.Context(), limit)
	if err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	if tickets == nil {
		tickets = []models.ClassifiedTicket{}
	}
	writeJSON(w, http.StatusOK, ticketsResponse{Tickets: tickets, Count: len(tickets)})
}

func (s *Server) sampleHandler(w http.ResponseWriter, r *http.Request) {
	if s.config.Samples == nil {
		writeJSON(w, http.StatusOK, ticketsResponse{Tickets: []models.Ticket{}, Count: 0})
		return
	}

	tickets, err := s.config.Samples.ListTickets(r.Context())
	if err != nil {
		writeError(w, r, goerr.Wrap(err, "failed to load sample tickets"), http.StatusInternalServerError)
		return
	}
	if tickets == nil {
		tickets = []models.Ticket{}
	}
	writeJSON(w, http.StatusOK, ticketsResponse{Tickets: tickets, Count: len(tickets)})
}

type intakeResponse struct {
	Ticket models.Ticket      `json:"ticket"`
	Result *models.IngestItem `json:"result,omitempty"`
}

// intakeHandler stores a new ticket and, when ingestion is wired, classifies
// and indexes it straight away.
func (s *Server) intakeHandler(w http.ResponseWriter, r *http.Request) {
	if s.config.Intake == nil {
		writeError(w, r, goerr.New("ticket intake is not configured"), http.StatusServiceUnavailable)
		return
	}

	var t models.Ticket
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, r, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
		return
	}

	stored, err := s.config.Intake.Add(r.Context(), t)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}

	resp := intakeResponse{Ticket: stored}
	if s.config.Ingester != nil {
		report := s.config.Ingester.IngestTickets(r.Context(), []models.Ticket{stored})
		if len(report.Items) > 0 {
			resp.Result = &report.Items[0]
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError logs err with its goerr values and writes it as {"error": ...}.
func writeError(w http.ResponseWriter, r *http.Request, err error, status int) {
	logger := logging.From(r.Context())
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	attrs := []any{"status", status, "error", err.Error()}
	var ge *goerr.Error
	if errors.As(err, &ge) {
		attrs = append(attrs, "values", ge.Values())
	}
	logger.Log(r.Context(), level, "HTTP error", attrs...)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
