package model

import (
	"fmt"
	"strings"
	"time"
)

// Player is a registered league member. Cumulative stats live in PlayerStats
// and are always derived from match history.
type Player struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate requires a non-blank name.
func (p Player) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPlayer)
	}
	return nil
}

// PlayerStats is a player's cumulative record over a set of triangulars.
type PlayerStats struct {
	PlayerID string `json:"player_id"`

	Matches int `json:"matches"`
	Goals   int `json:"goals"`
	Wins    int `json:"wins"`
	Draws   int `json:"draws"`
	Losses  int `json:"losses"`
	// Points are league points (wins*3 + draws), independent of triangular points.
	Points        int     `json:"points"`
	WinPercentage float64 `json:"win_percentage"`

	TriangularsPlayed       int     `json:"triangulars_played"`
	TriangularWins          int     `json:"triangular_wins"`
	TriangularSeconds       int     `json:"triangular_seconds"`
	TriangularThirds        int     `json:"triangular_thirds"`
	TriangularPoints        int     `json:"triangular_points"`
	TriangularWinPercentage float64 `json:"triangular_win_percentage"`
}
