// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/markandre0425/Main-Page-sub000/internal/domain/model"
	"github.com/markandre0425/Main-Page-sub000/pkg/logger"
)

// maxBodyBytes bounds the size of a submission body.
const maxBodyBytes = 1 << 20

var errTrailingData = errors.New("unexpected data after JSON body")

// SubmitDependencies defines the interface for score submission.
type SubmitDependencies interface {
	Submit(ctx context.Context, gameKey string, sub model.Submission) (Entry, error)
}

// LeaderboardDependencies defines the interface for leaderboard operations.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context, gameKey string, limit int) ([]Entry, error)
}

// LeaderboardHandler handles leaderboard reads and submissions.
type LeaderboardHandler struct {
	submit SubmitDependencies
	read   LeaderboardDependencies
	log    logger.Logger
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(submit SubmitDependencies, read LeaderboardDependencies, log logger.Logger) *LeaderboardHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &LeaderboardHandler{submit: submit, read: read, log: log}
}

// submitRequest is the POST body. Pointers tell a missing number from zero.
type submitRequest struct {
	Username            string `json:"username"`
	UserID              *int64 `json:"userId"`
	TimeMs              *int64 `json:"timeMs"`
	ObjectivesCollected *int64 `json:"objectivesCollected"`
}

func (r submitRequest) submission() model.Submission {
	return model.Submission{
		Username:            r.Username,
		UserID:              r.UserID,
		TimeMs:              r.TimeMs,
		ObjectivesCollected: r.ObjectivesCollected,
	}
}

// HandlePostScore handles POST /api/leaderboard/{gameKey}.
func (h *LeaderboardHandler) HandlePostScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_score"

	var req submitRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errTrailingData))
		return
	}

	entry, err := h.submit.Submit(r.Context(), r.PathValue("gameKey"), req.submission())
	if err != nil {
		writeServiceError(r.Context(), w, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// HandleGetLeaderboard handles GET /api/leaderboard/{gameKey}?limit=N.
// A missing or non-numeric limit falls back to the service default.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		limit = 0
	}

	entries, err := h.read.Leaderboard(r.Context(), r.PathValue("gameKey"), limit)
	if err != nil {
		writeServiceError(r.Context(), w, h.log, op, err)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
