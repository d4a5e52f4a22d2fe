// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/time/rate"

	repository "github.com/markandre0425/Main-Page-sub000/internal/adapters/repository"
	"github.com/markandre0425/Main-Page-sub000/internal/domain/model"
	"github.com/markandre0425/Main-Page-sub000/internal/domain/types"
	"github.com/markandre0425/Main-Page-sub000/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SubmitDependencies
	LeaderboardDependencies
	PersonalDependencies
	HealthDependencies
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	personalHandler    *PersonalHandler

	submitLimiter *rate.Limiter
	log           logger.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithSubmitLimiter throttles POST /api/leaderboard/{gameKey}. nil disables throttling.
func WithSubmitLimiter(l *rate.Limiter) ServerOption {
	return func(s *Server) {
		s.submitLimiter = l
	}
}

// WithLogger sets the logger used by handlers for server-side faults.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler(deps)
	s.statsHandler = NewStatsHandler(statsProvider)
	s.leaderboardHandler = NewLeaderboardHandler(deps, deps, s.log)
	s.personalHandler = NewPersonalHandler(deps, s.log)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	submit := s.leaderboardHandler.HandlePostScore
	if s.submitLimiter != nil {
		submit = RateLimitMiddleware(submit, s.submitLimiter)
	}
	submit = MetricsMiddleware(submit, "leaderboard_post")

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /api/leaderboard/{gameKey}", submit)
	mux.HandleFunc("GET /api/leaderboard/{gameKey}", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard_get"))
	mux.HandleFunc("GET /api/leaderboard/{gameKey}/personal", MetricsMiddleware(s.personalHandler.HandleGetPersonal, "personal_get"))
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

// writeServiceError maps a service error onto a response. Storage faults and
// anything unrecognised become a 500 with a generic message.
func writeServiceError(ctx context.Context, w http.ResponseWriter, log logger.Logger, op string, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidSubmission), errors.Is(err, model.ErrInvalidPlayer):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, model.ErrPlayerNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	default:
		fields := []logger.Field{logger.String("op", op), logger.Error(err)}
		if errors.Is(err, repository.ErrStorage) {
			fields = append(fields, logger.Bool("storage", true))
		}
		log.Error(ctx, "request failed", fields...)
		writeError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}
