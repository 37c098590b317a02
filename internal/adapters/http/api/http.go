// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/rally/internal/adapters/http/swagger"
	"github.com/okian/rally/internal/adapters/mq/queue"
	"github.com/okian/rally/internal/adapters/repository"
	service "github.com/okian/rally/internal/app"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/internal/domain/update"
	"github.com/okian/rally/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CreateParticipant(ctx context.Context, reg service.Registration) (model.Participant, error)
	Participant(ctx context.Context, id string) (service.Stats, error)
	AdjustRating(ctx context.Context, id string, adj service.Adjustment) (model.Participant, error)
	Standings(ctx context.Context, limit int) ([]repository.Standing, error)
	Plan(ctx context.Context, req service.PlanRequest) (service.Plan, error)
	SubmitGame(ctx context.Context, g model.GameResult) (string, error)
	RecordGame(ctx context.Context, g model.GameResult) (update.Outcome, error)
	Feedback(ctx context.Context, req service.FeedbackRequest) ([]model.Participant, error)
	GetStats() map[string]interface{}
}

var _ Dependencies = (*service.Service)(nil)

// Server wires HTTP routes for the business API.
type Server struct {
	deps     Dependencies
	maxLimit int
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxStandingsLimit caps GET /standings?limit.
func WithMaxStandingsLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

const defaultMaxLimit = 100

// NewServer creates a new API server.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{deps: deps, maxLimit: defaultMaxLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the router with every endpoint attached.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, MetricsMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	r.Route("/participants", func(r chi.Router) {
		r.Post("/", s.handleCreateParticipant)
		r.Get("/{id}", s.handleGetParticipant)
		r.Put("/{id}/rating", s.handleAdjustRating)
	})
	r.Get("/standings", s.handleStandings)
	r.Post("/plan", s.handlePlan)
	r.Post("/games", s.handleSubmitGame)
	r.Post("/games/sync", s.handleRecordGame)
	r.Post("/feedback", s.handleFeedback)

	swagger.Register(r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps engine and adapter errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, model.ErrInvalidConfiguration),
		errors.Is(err, repository.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, model.ErrInsufficientPlayers):
		writeError(w, http.StatusBadRequest, "insufficient_players", err)
	case errors.Is(err, model.ErrParticipantNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, model.ErrDuplicateGame):
		writeError(w, http.StatusConflict, "duplicate", err)
	case errors.Is(err, repository.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already_exists", err)
	case errors.Is(err, service.ErrBackpressure), errors.Is(err, queue.ErrFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", wrapKind("api", ErrBackpressure, err))
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, queue.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// decode reads a JSON body and rejects unknown fields.
func decode(r *http.Request, op string, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return wrapKind(op, ErrBadRequest, err)
	}
	return nil
}
