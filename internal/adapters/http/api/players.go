package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/trio/internal/domain/model"
	"github.com/okian/trio/internal/domain/rating"
)

// PlayerDependencies defines the player registry, stats and rating operations.
type PlayerDependencies interface {
	RegisterPlayer(ctx context.Context, p model.Player) (model.Player, error)
	Players(ctx context.Context) ([]model.Player, error)
	Player(ctx context.Context, id string) (model.Player, error)
	PlayerMatches(ctx context.Context, playerID string) ([]model.Match, error)
	PersistedPlayerStats(ctx context.Context, playerID string) (model.PlayerStats, error)
	PlayerStats(ctx context.Context, playerID string, filter model.SeasonFilter) (model.PlayerStats, error)
	PlayerRating(ctx context.Context, playerID string, filter model.SeasonFilter) (rating.Result, error)
	CalculateRatingV2(winPct, triangularWinPct float64) rating.Result
}

// PlayerHandler handles player requests.
type PlayerHandler struct {
	deps PlayerDependencies
}

// NewPlayerHandler creates a new player handler.
func NewPlayerHandler(deps PlayerDependencies) *PlayerHandler {
	return &PlayerHandler{deps: deps}
}

type playerStatsResponse struct {
	model.PlayerStats
	Season model.SeasonFilter `json:"season"`
}

type playerRatingResponse struct {
	PlayerID string             `json:"player_id"`
	Season   model.SeasonFilter `json:"season"`
	rating.Result
}

type playerMatchesResponse struct {
	PlayerID string        `json:"player_id"`
	Matches  []model.Match `json:"matches"`
}

// HandleRegister handles POST /players requests.
func (h *PlayerHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.register_player"
	var req model.Player
	if err := decode(r, &req); err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	p, err := h.deps.RegisterPlayer(r.Context(), req)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// HandleList handles GET /players requests.
func (h *PlayerHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_players"
	players, err := h.deps.Players(r.Context())
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, players)
}

// HandleGet handles GET /players/{id} requests.
func (h *PlayerHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_player"
	id, err := pathID(op, r)
	if err != nil {
		fail(w, err)
		return
	}
	p, err := h.deps.Player(r.Context(), id)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleMatches handles GET /players/{id}/matches requests.
func (h *PlayerHandler) HandleMatches(w http.ResponseWriter, r *http.Request) {
	const op = "api.player_matches"
	id, err := pathID(op, r)
	if err != nil {
		fail(w, err)
		return
	}
	ms, err := h.deps.PlayerMatches(r.Context(), id)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	if ms == nil {
		ms = []model.Match{}
	}
	writeJSON(w, http.StatusOK, playerMatchesResponse{PlayerID: id, Matches: ms})
}

// HandleStats handles GET /players/{id}/stats?season=&source= requests.
// source=persisted returns the stored snapshot, which always spans every
// season; the default computes stats live under the season filter.
func (h *PlayerHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	const op = "api.player_stats"
	id, err := pathID(op, r)
	if err != nil {
		fail(w, err)
		return
	}
	q := r.URL.Query()
	switch source := q.Get("source"); source {
	case "", "live":
	case "persisted":
		st, err := h.deps.PersistedPlayerStats(r.Context(), id)
		if err != nil {
			fail(w, Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, playerStatsResponse{PlayerStats: st, Season: model.AllSeasons()})
		return
	default:
		fail(w, WrapKind(op, ErrBadRequest, fmt.Errorf("unknown source %q", source)))
		return
	}

	filter := model.ParseSeasonFilter(q.Get("season"))
	st, err := h.deps.PlayerStats(r.Context(), id, filter)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, playerStatsResponse{PlayerStats: st, Season: filter})
}

// HandleRating handles GET /players/{id}/rating?season= requests.
func (h *PlayerHandler) HandleRating(w http.ResponseWriter, r *http.Request) {
	const op = "api.player_rating"
	id, err := pathID(op, r)
	if err != nil {
		fail(w, err)
		return
	}
	filter := model.ParseSeasonFilter(r.URL.Query().Get("season"))
	res, err := h.deps.PlayerRating(r.Context(), id, filter)
	if err != nil {
		fail(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, playerRatingResponse{PlayerID: id, Season: filter, Result: res})
}

// HandleCalculate handles GET /rating?win_pct=&triangular_win_pct= requests.
func (h *PlayerHandler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	const op = "api.calculate_rating"
	winPct, err := percentParam(r, "win_pct")
	if err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	triPct, err := percentParam(r, "triangular_win_pct")
	if err != nil {
		fail(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.CalculateRatingV2(winPct, triPct))
}

// percentParam parses a 0-100 query value; absent means 0.
func percentParam(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if v < 0 || v > 100 {
		return 0, fmt.Errorf("%s must be within [0,100], got %v", name, v)
	}
	return v, nil
}
