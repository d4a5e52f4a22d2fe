package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/markandre0425/Main-Page-sub000/internal/domain/model"
	"github.com/markandre0425/Main-Page-sub000/internal/domain/types"
	"github.com/markandre0425/Main-Page-sub000/pkg/logger"
)

// PersonalDependencies defines the interface for personal standing lookups.
type PersonalDependencies interface {
	Personal(ctx context.Context, gameKey string, p model.Player) (types.PersonalStats, error)
}

// PersonalHandler handles personal standing requests.
type PersonalHandler struct {
	deps PersonalDependencies
	log  logger.Logger
}

// NewPersonalHandler creates a new personal handler.
func NewPersonalHandler(deps PersonalDependencies, log logger.Logger) *PersonalHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &PersonalHandler{deps: deps, log: log}
}

// HandleGetPersonal handles GET /api/leaderboard/{gameKey}/personal?userId=N|username=X.
func (h *PersonalHandler) HandleGetPersonal(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_personal"

	q := r.URL.Query()
	var p model.Player
	if raw := q.Get("userId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		p.UserID = &id
	}
	p.Username = q.Get("username")

	stats, err := h.deps.Personal(r.Context(), r.PathValue("gameKey"), p)
	if err != nil {
		writeServiceError(r.Context(), w, h.log, op, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
