// Package balance splits a rated player pool into three even teams.
package balance

import (
	"fmt"
	"sort"

	"github.com/okian/trio/internal/domain/model"
)

// TeamCount is fixed: a triangular always has three teams.
const TeamCount = 3

// Player is a pool member with the rating used for balancing.
type Player struct {
	ID     string  `json:"id"`
	Name   string  `json:"name,omitempty"`
	Rating float64 `json:"rating"`
}

// Team is one side of the partition.
type Team struct {
	Label   model.TeamLabel `json:"label"`
	Players []Player        `json:"players"`
	Total   float64         `json:"total"`
}

// Teams is the result of balancing a pool.
type Teams struct {
	Teams [TeamCount]Team `json:"teams"`
	// Spread is the gap between the strongest and weakest team totals.
	Spread float64 `json:"spread"`
}

// Balance partitions players into three teams with a greedy first-fit
// decreasing pass: players sorted by rating (input order breaks ties) each
// join the team with the lowest running total, lowest index first. Team
// sizes never differ by more than one. The pass is not an optimal solver and
// is kept that way so assignments stay predictable.
func Balance(players []Player) (Teams, error) {
	if len(players) < TeamCount {
		return Teams{}, fmt.Errorf("%w: need at least %d, got %d", ErrInsufficientPlayers, TeamCount, len(players))
	}
	seen := make(map[string]struct{}, len(players))
	for _, p := range players {
		if _, dup := seen[p.ID]; dup {
			return Teams{}, fmt.Errorf("%w: %q", ErrDuplicatePlayer, p.ID)
		}
		seen[p.ID] = struct{}{}
	}

	sorted := append([]Player(nil), players...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Rating > sorted[j].Rating })

	var out Teams
	for i, label := range model.TeamLabels {
		out.Teams[i] = Team{Label: label, Players: make([]Player, 0, len(players)/TeamCount+1)}
	}
	base, extra := len(players)/TeamCount, len(players)%TeamCount
	for _, p := range sorted {
		idx := pick(&out, base, extra)
		t := &out.Teams[idx]
		t.Players = append(t.Players, p)
		t.Total += p.Rating
	}

	lo, hi := out.Teams[0].Total, out.Teams[0].Total
	for _, t := range out.Teams[1:] {
		lo = min(lo, t.Total)
		hi = max(hi, t.Total)
	}
	out.Spread = hi - lo
	return out, nil
}

// pick returns the eligible team with the lowest total. A team is eligible
// while it is below base size, or at base size while fewer than extra teams
// have already taken the one spare slot.
func pick(out *Teams, base, extra int) int {
	full := 0
	for _, t := range out.Teams {
		if len(t.Players) > base {
			full++
		}
	}
	best := -1
	for i, t := range out.Teams {
		n := len(t.Players)
		if n > base || (n == base && full >= extra) {
			continue
		}
		if best < 0 || t.Total < out.Teams[best].Total {
			best = i
		}
	}
	return best
}
