package model

import "time"

// Triangular is a three-team round-robin session.
type Triangular struct {
	ID       string                 `json:"id"`
	SeasonID string                 `json:"season_id"`
	PlayedOn time.Time              `json:"played_on"`
	Rosters  map[TeamLabel][]string `json:"rosters"`
	Matches  []Match                `json:"matches"`
}

// TeamOf returns the slot the player was rostered on.
func (t Triangular) TeamOf(playerID string) (TeamLabel, bool) {
	for _, label := range TeamLabels {
		for _, id := range t.Rosters[label] {
			if id == playerID {
				return label, true
			}
		}
	}
	return "", false
}

// PlayerIDs returns every rostered player, TeamA first.
func (t Triangular) PlayerIDs() []string {
	out := make([]string, 0, len(t.Rosters[TeamA])+len(t.Rosters[TeamB])+len(t.Rosters[TeamC]))
	for _, label := range TeamLabels {
		out = append(out, t.Rosters[label]...)
	}
	return out
}

// Clone returns a deep copy so callers can hand out snapshots safely.
func (t Triangular) Clone() Triangular {
	c := t
	c.Rosters = make(map[TeamLabel][]string, len(t.Rosters))
	for label, ids := range t.Rosters {
		c.Rosters[label] = append([]string(nil), ids...)
	}
	c.Matches = make([]Match, len(t.Matches))
	for i, m := range t.Matches {
		c.Matches[i] = m.Clone()
	}
	return c
}

// Clone returns a copy of m with its own goal map.
func (m Match) Clone() Match {
	c := m
	if m.Goals != nil {
		c.Goals = make(map[string]int, len(m.Goals))
		for id, g := range m.Goals {
			c.Goals[id] = g
		}
	}
	return c
}
