package model

import "time"

// Result classifies the outcome of a single match.
type Result string

const (
	ResultHome Result = "home"
	ResultAway Result = "away"
	ResultDraw Result = "draw"
)

// Match is one game between two of the three teams of a triangular.
// Records are immutable once stored.
type Match struct {
	ID        string         `json:"id"`
	Home      TeamLabel      `json:"home"`
	Away      TeamLabel      `json:"away"`
	HomeScore int            `json:"home_score"`
	AwayScore int            `json:"away_score"`
	Result    Result         `json:"result,omitempty"` // empty means "derive from score"
	Goals     map[string]int `json:"goals,omitempty"`  // player id -> goals scored
	PlayedAt  time.Time      `json:"played_at"`
}

// Outcome returns the recorded result, deriving it from the score when unset.
func (m Match) Outcome() Result {
	if m.Result != "" {
		return m.Result
	}
	switch {
	case m.HomeScore > m.AwayScore:
		return ResultHome
	case m.AwayScore > m.HomeScore:
		return ResultAway
	default:
		return ResultDraw
	}
}

// Winner returns the winning and losing labels. ok is false for a draw.
func (m Match) Winner() (winner, loser TeamLabel, ok bool) {
	switch m.Outcome() {
	case ResultHome:
		return m.Home, m.Away, true
	case ResultAway:
		return m.Away, m.Home, true
	default:
		return "", "", false
	}
}

// Involves reports whether team played in this match.
func (m Match) Involves(team TeamLabel) bool {
	return m.Home == team || m.Away == team
}

// ScoreOf returns the goals scored and conceded by team in this match.
func (m Match) ScoreOf(team TeamLabel) (scored, conceded int) {
	if team == m.Home {
		return m.HomeScore, m.AwayScore
	}
	return m.AwayScore, m.HomeScore
}
