package api

import (
	"context"
	"net/http"

	"github.com/okian/trio/internal/domain/model"
	"github.com/okian/trio/internal/domain/triangular"
)

// TriangularDependencies defines the triangular and scoring operations.
type TriangularDependencies interface {
	CreateTriangular(ctx context.Context, t model.Triangular) (model.Triangular, error)
	Triangular(ctx context.Context, id string) (model.Triangular, error)
	ScoreTriangular(ctx context.Context, id string) (triangular.Outcome, error)
	ScoreMatches(ctx context.Context, matches []model.Match) (triangular.Outcome, error)
	RecordMatch(ctx context.Context, triangularID string, m model.Match) (model.Match, error)
}

// TriangularHandler handles triangular requests.
type TriangularHandler struct {
	deps TriangularDependencies
}

// NewTriangularHandler creates a new triangular handler.
func NewTriangularHandler(deps TriangularDependencies) *TriangularHandler {
	return &TriangularHandler{deps: deps}
}

type scoreRequest struct {
	Matches []model.Match `json:"matches"`
}

// resultResponse is a scored triangular with its standings in position order.
type resultResponse struct {
	TriangularID string                  `json:"triangular_id,omitempty"`
	Champion     model.TeamLabel         `json:"champion,omitempty"`
	Matches      int                     `json:"matches"`
	Standings    []triangular.TeamResult `json:"standings"`
}

func newResultResponse(id string, o triangular.Outcome) resultResponse {
	return resultResponse{
		TriangularID: id,
		Champion:     o.Champion,
		Matches:      o.Matches,
		Standings:    o.Standings(),
	}
}

// HandleCreate handles POST /triangulars requests.
func (h *TriangularHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_triangular"
	var req model.Triangular
	if err := decode(r, &req); err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	created, err := h.deps.CreateTriangular(r.Context(), req)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandleGet handles GET /triangulars/{id} requests.
func (h *TriangularHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_triangular"
	id, err := pathID(op, r)
	if err != nil {
		fail(w, err)
		return
	}
	t, err := h.deps.Triangular(r.Context(), id)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// HandleResult handles GET /triangulars/{id}/result requests.
func (h *TriangularHandler) HandleResult(w http.ResponseWriter, r *http.Request) {
	const op = "api.triangular_result"
	id, err := pathID(op, r)
	if err != nil {
		fail(w, err)
		return
	}
	out, err := h.deps.ScoreTriangular(r.Context(), id)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, newResultResponse(id, out))
}

// HandleRecordMatch handles POST /triangulars/{id}/matches requests.
func (h *TriangularHandler) HandleRecordMatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.record_match"
	id, err := pathID(op, r)
	if err != nil {
		fail(w, err)
		return
	}
	var req model.Match
	if err := decode(r, &req); err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	m, err := h.deps.RecordMatch(r.Context(), id, req)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// HandleScore handles POST /score requests: scores matches without storing them.
func (h *TriangularHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.score"
	var req scoreRequest
	if err := decode(r, &req); err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	out, err := h.deps.ScoreMatches(r.Context(), req.Matches)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, newResultResponse("", out))
}
