package api

import (
	"context"
	"net/http"

	"github.com/okian/trio/internal/domain/balance"
	"github.com/okian/trio/internal/domain/model"
)

// TeamDependencies defines the team balancing operations.
type TeamDependencies interface {
	BalanceTeams(ctx context.Context, playerIDs []string, filter model.SeasonFilter) (balance.Teams, error)
	BalancePool(ctx context.Context, players []balance.Player) (balance.Teams, error)
}

// TeamHandler handles team balancing requests.
type TeamHandler struct {
	deps TeamDependencies
}

// NewTeamHandler creates a new team handler.
func NewTeamHandler(deps TeamDependencies) *TeamHandler {
	return &TeamHandler{deps: deps}
}

// balanceRequest carries either explicit ratings in Players or ids in
// PlayerIDs rated from the season filter. Players wins when both are set.
type balanceRequest struct {
	PlayerIDs []string         `json:"player_ids"`
	Players   []balance.Player `json:"players"`
	Season    string           `json:"season"`
}

// HandleBalance handles POST /teams/balance requests.
func (h *TeamHandler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	const op = "api.balance_teams"
	var req balanceRequest
	if err := decode(r, &req); err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	var (
		teams balance.Teams
		err   error
	)
	if len(req.Players) > 0 {
		teams, err = h.deps.BalancePool(r.Context(), req.Players)
	} else {
		teams, err = h.deps.BalanceTeams(r.Context(), req.PlayerIDs, model.ParseSeasonFilter(req.Season))
	}
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, teams)
}
