// Package stats folds a player's triangular history into cumulative stats.
package stats

import (
	"fmt"
	"sort"

	"github.com/okian/trio/internal/domain/model"
	"github.com/okian/trio/internal/domain/triangular"
)

const (
	pointsPerWin  = 3
	pointsPerDraw = 1
	percentScale  = 100
)

// Aggregate builds playerID's cumulative stats from the triangulars given.
// Only triangulars the player was rostered on count. A triangular id seen
// twice is processed once, and the input order does not matter.
func Aggregate(playerID string, triangulars []model.Triangular) (model.PlayerStats, error) {
	acc := newAccumulator(playerID)
	seen := make(map[string]struct{}, len(triangulars))
	for _, t := range ordered(triangulars) {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}

		team, ok := t.TeamOf(playerID)
		if !ok {
			continue
		}
		outcome, err := triangular.ScoreTriangular(t)
		if err != nil {
			return model.PlayerStats{}, fmt.Errorf("aggregate %q: %w", playerID, err)
		}
		acc.add(t, team, outcome)
	}
	return acc.finish(), nil
}

// AggregateAll computes stats for every rostered player in one pass. It also
// returns the number of distinct triangulars processed.
func AggregateAll(triangulars []model.Triangular) (map[string]model.PlayerStats, int, error) {
	accs := make(map[string]*accumulator)
	seen := make(map[string]struct{}, len(triangulars))
	for _, t := range ordered(triangulars) {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}

		outcome, err := triangular.ScoreTriangular(t)
		if err != nil {
			return nil, 0, err
		}
		for _, label := range model.TeamLabels {
			for _, id := range t.Rosters[label] {
				acc, ok := accs[id]
				if !ok {
					acc = newAccumulator(id)
					accs[id] = acc
				}
				acc.add(t, label, outcome)
			}
		}
	}

	out := make(map[string]model.PlayerStats, len(accs))
	for id, acc := range accs {
		out[id] = acc.finish()
	}
	return out, len(seen), nil
}

// Merge adds two partial stats of one player, each built from a disjoint
// set of triangulars, and recomputes the derived figures.
func Merge(a, b model.PlayerStats) model.PlayerStats {
	acc := newAccumulator(a.PlayerID)
	acc.s.Matches = a.Matches + b.Matches
	acc.s.Goals = a.Goals + b.Goals
	acc.s.Wins = a.Wins + b.Wins
	acc.s.Draws = a.Draws + b.Draws
	acc.s.Losses = a.Losses + b.Losses
	acc.s.TriangularsPlayed = a.TriangularsPlayed + b.TriangularsPlayed
	acc.s.TriangularWins = a.TriangularWins + b.TriangularWins
	acc.s.TriangularSeconds = a.TriangularSeconds + b.TriangularSeconds
	acc.s.TriangularThirds = a.TriangularThirds + b.TriangularThirds
	acc.s.TriangularPoints = a.TriangularPoints + b.TriangularPoints
	return acc.finish()
}

// Percentage returns part/whole*100, or 0 when whole is zero.
func Percentage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * percentScale
}

type accumulator struct {
	s model.PlayerStats
}

func newAccumulator(playerID string) *accumulator {
	return &accumulator{s: model.PlayerStats{PlayerID: playerID}}
}

func (a *accumulator) add(t model.Triangular, team model.TeamLabel, outcome triangular.Outcome) {
	for _, m := range t.Matches {
		if !m.Involves(team) {
			continue
		}
		a.s.Matches++
		a.s.Goals += m.Goals[a.s.PlayerID]
		winner, _, decisive := m.Winner()
		switch {
		case !decisive:
			a.s.Draws++
		case winner == team:
			a.s.Wins++
		default:
			a.s.Losses++
		}
	}

	if !outcome.HasChampion() {
		return
	}
	res := outcome.Result(team)
	a.s.TriangularsPlayed++
	a.s.TriangularPoints += res.Points
	switch res.Position {
	case 1:
		a.s.TriangularWins++
	case 2:
		a.s.TriangularSeconds++
	case 3:
		a.s.TriangularThirds++
	}
}

func (a *accumulator) finish() model.PlayerStats {
	s := a.s
	s.Points = s.Wins*pointsPerWin + s.Draws*pointsPerDraw
	s.WinPercentage = Percentage(s.Wins, s.Matches)
	s.TriangularWinPercentage = Percentage(s.TriangularWins, s.TriangularsPlayed)
	return s
}

// ordered returns a copy of triangulars sorted by id.
func ordered(triangulars []model.Triangular) []model.Triangular {
	out := append([]model.Triangular(nil), triangulars...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
