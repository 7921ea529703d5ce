// Package triangular scores the matches of a three-team round robin.
package triangular

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/okian/trio/internal/domain/model"
)

// Points awarded per match outcome. A loss is worth nothing.
const (
	PointsWin  = 3
	PointsDraw = 1
)

// TeamResult is one team's line in a triangular.
type TeamResult struct {
	Team         model.TeamLabel `json:"team"`
	Played       int             `json:"played"`
	Points       int             `json:"points"`
	Wins         int             `json:"wins"`
	NormalWins   int             `json:"normal_wins"`
	Draws        int             `json:"draws"`
	Losses       int             `json:"losses"`
	GoalsFor     int             `json:"goals_for"`
	GoalsAgainst int             `json:"goals_against"`
	// Position is 1..3, or 0 while no match has been played.
	Position int `json:"position"`
}

// Outcome is the scored state of a triangular.
type Outcome struct {
	// Teams holds one result per slot in TeamLabels order.
	Teams [3]TeamResult `json:"teams"`
	// Champion is empty until at least one match has been played.
	Champion model.TeamLabel `json:"champion,omitempty"`
	Matches  int             `json:"matches"`
}

// HasChampion reports whether the triangular has a result yet.
func (o Outcome) HasChampion() bool { return o.Champion != "" }

// Result returns the line of team.
func (o Outcome) Result(team model.TeamLabel) TeamResult {
	if i := team.Index(); i >= 0 {
		return o.Teams[i]
	}
	return TeamResult{}
}

// Standings returns the three lines ordered by position. Before any match is
// played the slot order is returned.
func (o Outcome) Standings() []TeamResult {
	out := append([]TeamResult(nil), o.Teams[:]...)
	if !o.HasChampion() {
		return out
	}
	slices.SortFunc(out, func(a, b TeamResult) int { return cmp.Compare(a.Position, b.Position) })
	return out
}

// Score computes points, wins, normal wins, draws and positions for the
// three teams from the given matches. The result does not depend on the
// order of matches.
func Score(matches []model.Match) (Outcome, error) {
	var o Outcome
	for i, label := range model.TeamLabels {
		o.Teams[i].Team = label
	}

	for _, m := range matches {
		if err := ValidateMatch(m); err != nil {
			return Outcome{}, err
		}
		home := &o.Teams[m.Home.Index()]
		away := &o.Teams[m.Away.Index()]
		home.Played++
		away.Played++
		home.GoalsFor += m.HomeScore
		home.GoalsAgainst += m.AwayScore
		away.GoalsFor += m.AwayScore
		away.GoalsAgainst += m.HomeScore

		winner, _, decisive := m.Winner()
		if !decisive {
			home.Draws++
			away.Draws++
			home.Points += PointsDraw
			away.Points += PointsDraw
			continue
		}
		w, l := home, away
		if winner == m.Away {
			w, l = away, home
		}
		w.Wins++
		w.Points += PointsWin
		l.Losses++
		if ws, ls := m.ScoreOf(w.Team); ws > ls {
			w.NormalWins++
		}
	}
	o.Matches = len(matches)
	if o.Matches == 0 {
		return o, nil
	}

	order := []int{0, 1, 2}
	slices.SortFunc(order, func(a, b int) int { return compare(o.Teams[a], o.Teams[b]) })
	for pos, idx := range order {
		o.Teams[idx].Position = pos + 1
	}
	o.Champion = o.Teams[order[0]].Team
	return o, nil
}

// ScoreTriangular validates t and scores its matches.
func ScoreTriangular(t model.Triangular) (Outcome, error) {
	if err := Validate(t); err != nil {
		return Outcome{}, err
	}
	return Score(t.Matches)
}

// compare ranks a before b when it has more points, then more normal wins,
// then more wins; the slot order settles anything left.
func compare(a, b TeamResult) int {
	if c := cmp.Compare(b.Points, a.Points); c != 0 {
		return c
	}
	if c := cmp.Compare(b.NormalWins, a.NormalWins); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Wins, a.Wins); c != 0 {
		return c
	}
	return cmp.Compare(a.Team.Index(), b.Team.Index())
}

// ValidateMatch checks that a single match can be scored.
func ValidateMatch(m model.Match) error {
	switch {
	case !m.Home.Valid():
		return fmt.Errorf("%w: match %q: unknown home team %q", ErrMalformedTriangular, m.ID, m.Home)
	case !m.Away.Valid():
		return fmt.Errorf("%w: match %q: unknown away team %q", ErrMalformedTriangular, m.ID, m.Away)
	case m.Home == m.Away:
		return fmt.Errorf("%w: match %q: %s cannot play itself", ErrMalformedTriangular, m.ID, m.Home)
	case m.HomeScore < 0 || m.AwayScore < 0:
		return fmt.Errorf("%w: match %q: negative score", ErrMalformedTriangular, m.ID)
	}
	switch m.Outcome() {
	case model.ResultHome:
		if m.HomeScore < m.AwayScore {
			return fmt.Errorf("%w: match %q: home win with %d-%d", ErrMalformedTriangular, m.ID, m.HomeScore, m.AwayScore)
		}
	case model.ResultAway:
		if m.AwayScore < m.HomeScore {
			return fmt.Errorf("%w: match %q: away win with %d-%d", ErrMalformedTriangular, m.ID, m.HomeScore, m.AwayScore)
		}
	case model.ResultDraw:
		if m.HomeScore != m.AwayScore {
			return fmt.Errorf("%w: match %q: draw with %d-%d", ErrMalformedTriangular, m.ID, m.HomeScore, m.AwayScore)
		}
	default:
		return fmt.Errorf("%w: match %q: unknown result %q", ErrMalformedTriangular, m.ID, m.Result)
	}
	return nil
}

// Validate checks the structure of a triangular: three non-empty rosters
// with no player on two teams, valid matches, and per-side goal tallies that
// add up to the score whenever goals are recorded.
func Validate(t model.Triangular) error {
	seen := make(map[string]model.TeamLabel)
	for _, label := range model.TeamLabels {
		roster := t.Rosters[label]
		if len(roster) == 0 {
			return fmt.Errorf("%w: triangular %q: missing %s", ErrMalformedTriangular, t.ID, label)
		}
		for _, id := range roster {
			if other, dup := seen[id]; dup {
				return fmt.Errorf("%w: triangular %q: player %q on %s and %s", ErrMalformedTriangular, t.ID, id, other, label)
			}
			seen[id] = label
		}
	}
	for label := range t.Rosters {
		if !label.Valid() {
			return fmt.Errorf("%w: triangular %q: unknown team %q", ErrMalformedTriangular, t.ID, label)
		}
	}

	ids := make(map[string]struct{}, len(t.Matches))
	for _, m := range t.Matches {
		if err := ValidateMatch(m); err != nil {
			return err
		}
		if m.ID != "" {
			if _, dup := ids[m.ID]; dup {
				return fmt.Errorf("%w: triangular %q: match %q recorded twice", ErrMalformedTriangular, t.ID, m.ID)
			}
			ids[m.ID] = struct{}{}
		}
		if err := validateGoals(m, seen); err != nil {
			return fmt.Errorf("triangular %q: %w", t.ID, err)
		}
	}
	return nil
}

func validateGoals(m model.Match, teamOf map[string]model.TeamLabel) error {
	if len(m.Goals) == 0 {
		return nil
	}
	var home, away int
	for id, g := range m.Goals {
		if g < 0 {
			return fmt.Errorf("%w: match %q: negative goals for %q", ErrMalformedTriangular, m.ID, id)
		}
		switch teamOf[id] {
		case m.Home:
			home += g
		case m.Away:
			away += g
		default:
			if g > 0 {
				return fmt.Errorf("%w: match %q: goals for %q who did not play", ErrMalformedTriangular, m.ID, id)
			}
		}
	}
	if home != m.HomeScore || away != m.AwayScore {
		return fmt.Errorf("%w: match %q: goals %d-%d do not add up to score %d-%d",
			ErrMalformedTriangular, m.ID, home, away, m.HomeScore, m.AwayScore)
	}
	return nil
}
