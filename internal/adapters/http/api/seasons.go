package api

import (
	"context"
	"net/http"

	"github.com/okian/trio/internal/domain/model"
)

// SeasonDependencies defines the season operations.
type SeasonDependencies interface {
	Seasons(ctx context.Context) ([]model.Season, error)
	CreateSeason(ctx context.Context, season model.Season) (model.Season, error)
	CloseSeason(ctx context.Context, id string) (model.Season, error)
}

// SeasonHandler handles season requests.
type SeasonHandler struct {
	deps SeasonDependencies
}

// NewSeasonHandler creates a new season handler.
func NewSeasonHandler(deps SeasonDependencies) *SeasonHandler {
	return &SeasonHandler{deps: deps}
}

// HandleList handles GET /seasons requests.
func (h *SeasonHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_seasons"
	seasons, err := h.deps.Seasons(r.Context())
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, seasons)
}

// HandleCreate handles POST /seasons requests. An open season closes the
// one currently open.
func (h *SeasonHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_season"
	var req model.Season
	if err := decode(r, &req); err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	created, err := h.deps.CreateSeason(r.Context(), req)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandleClose handles POST /seasons/{id}/close requests.
func (h *SeasonHandler) HandleClose(w http.ResponseWriter, r *http.Request) {
	const op = "api.close_season"
	id, err := pathID(op, r)
	if err != nil {
		fail(w, err)
		return
	}
	closed, err := h.deps.CloseSeason(r.Context(), id)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, closed)
}
