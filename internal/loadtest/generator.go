package loadtest

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/trio/internal/domain/model"
)

const (
	maxGoalsPerSide = 4
	// one level match in tieBreakOdds is settled as a home tie-break win
	tieBreakOdds = 4
	matchSpacing = 10 * time.Minute
	daySpacing   = 24 * time.Hour
)

// fixtures are the three pairings of a triangular.
var fixtures = [3][2]model.TeamLabel{
	{model.TeamA, model.TeamB},
	{model.TeamB, model.TeamC},
	{model.TeamC, model.TeamA},
}

// PlayerID names the i-th player of the pool.
func PlayerID(i int) string { return fmt.Sprintf("player-%04d", i) }

// Generate builds cfg.Triangulars complete triangulars from a seeded source.
// Rosters are drawn without repetition from the pool and goals always add up
// to the score.
func Generate(cfg *Config, start time.Time) ([]model.Triangular, error) {
	perTeam := cfg.PerTeam
	if perTeam < 1 {
		return nil, fmt.Errorf("per-team size must be positive, got %d", perTeam)
	}
	if cfg.Players < perTeam*3 {
		return nil, fmt.Errorf("pool of %d players cannot fill three teams of %d", cfg.Players, perTeam)
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	out := make([]model.Triangular, cfg.Triangulars)
	for i := range out {
		playedOn := start.Add(time.Duration(i) * daySpacing)
		t := model.Triangular{
			ID:       uuid.NewString(),
			PlayedOn: playedOn,
			Rosters:  make(map[model.TeamLabel][]string, 3),
		}
		picks := rng.Perm(cfg.Players)[:perTeam*3]
		for j, label := range model.TeamLabels {
			roster := make([]string, perTeam)
			for k := range roster {
				roster[k] = PlayerID(picks[j*perTeam+k])
			}
			t.Rosters[label] = roster
		}
		for j, f := range fixtures {
			t.Matches = append(t.Matches, generateMatch(rng, t, f[0], f[1], playedOn.Add(time.Duration(j)*matchSpacing)))
		}
		out[i] = t
	}
	return out, nil
}

func generateMatch(rng *rand.Rand, t model.Triangular, home, away model.TeamLabel, at time.Time) model.Match {
	m := model.Match{
		ID:        uuid.NewString(),
		Home:      home,
		Away:      away,
		HomeScore: rng.IntN(maxGoalsPerSide),
		AwayScore: rng.IntN(maxGoalsPerSide),
		Goals:     make(map[string]int),
		PlayedAt:  at,
	}
	if m.HomeScore == m.AwayScore && rng.IntN(tieBreakOdds) == 0 {
		m.Result = model.ResultHome
	}
	scorers(rng, m.Goals, t.Rosters[home], m.HomeScore)
	scorers(rng, m.Goals, t.Rosters[away], m.AwayScore)
	if len(m.Goals) == 0 {
		m.Goals = nil
	}
	return m
}

// scorers hands out goals to random roster members.
func scorers(rng *rand.Rand, goals map[string]int, roster []string, n int) {
	for range n {
		goals[roster[rng.IntN(len(roster))]]++
	}
}
