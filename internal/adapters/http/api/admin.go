package api

import (
	"context"
	"net/http"

	"github.com/okian/trio/internal/domain/types"
)

// AdminDependencies defines maintenance operations.
type AdminDependencies interface {
	RecalculateAllPlayerStats(ctx context.Context) (types.RecalcResult, error)
}

// AdminHandler handles maintenance requests.
type AdminHandler struct {
	deps AdminDependencies
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps AdminDependencies) *AdminHandler {
	return &AdminHandler{deps: deps}
}

// HandleRecalculate handles POST /admin/recalculate requests.
func (h *AdminHandler) HandleRecalculate(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.RecalculateAllPlayerStats(r.Context())
	if err != nil {
		fail(w, Wrap("api.recalculate", err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
