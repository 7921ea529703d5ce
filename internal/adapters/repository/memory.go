package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/okian/trio/internal/domain/model"
)

// MemoryStore is an in-process Store. Reads hand out deep copies.
type MemoryStore struct {
	mu          sync.RWMutex
	triangulars map[string]model.Triangular
	matchOwner  map[string]string // match id -> triangular id
	players     map[string]model.Player
	seasons     map[string]model.Season
	stats       map[string]model.PlayerStats
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		triangulars: make(map[string]model.Triangular),
		matchOwner:  make(map[string]string),
		players:     make(map[string]model.Player),
		seasons:     make(map[string]model.Season),
		stats:       make(map[string]model.PlayerStats),
	}
}

// Triangulars returns copies of the triangulars under filter, ordered by
// PlayedOn then ID.
func (s *MemoryStore) Triangulars(_ context.Context, filter model.SeasonFilter) ([]model.Triangular, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := activeSeasonID(s.seasonList())
	out := make([]model.Triangular, 0, len(s.triangulars))
	for _, t := range s.triangulars {
		if filter.Matches(t.SeasonID, active) {
			out = append(out, t.Clone())
		}
	}
	sortTriangulars(out)
	return out, nil
}

// Triangular returns a copy of one triangular or ErrNotFound.
func (s *MemoryStore) Triangular(_ context.Context, id string) (model.Triangular, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.triangulars[id]
	if !ok {
		return model.Triangular{}, fmt.Errorf("triangular %q: %w", id, ErrNotFound)
	}
	return t.Clone(), nil
}

// SaveTriangular inserts a new triangular. A known triangular id yields
// ErrTriangularExists and a match id owned elsewhere yields ErrConflict.
func (s *MemoryStore) SaveTriangular(_ context.Context, t model.Triangular) error {
	if t.ID == "" {
		return fmt.Errorf("triangular: %w", ErrEmptyID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.triangulars[t.ID]; ok {
		return fmt.Errorf("%q: %w", t.ID, ErrTriangularExists)
	}
	seen := make(map[string]struct{}, len(t.Matches))
	for _, m := range t.Matches {
		if _, ok := s.matchOwner[m.ID]; ok {
			return fmt.Errorf("match %q: %w", m.ID, ErrConflict)
		}
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("match %q: %w", m.ID, ErrConflict)
		}
		seen[m.ID] = struct{}{}
	}

	for id := range seen {
		s.matchOwner[id] = t.ID
	}
	s.triangulars[t.ID] = t.Clone()
	return nil
}

// AddMatch appends a copy of m to a triangular.
func (s *MemoryStore) AddMatch(_ context.Context, triangularID string, m model.Match) error {
	if m.ID == "" {
		return fmt.Errorf("match: %w", ErrEmptyID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.triangulars[triangularID]
	if !ok {
		return fmt.Errorf("triangular %q: %w", triangularID, ErrNotFound)
	}
	if _, ok := s.matchOwner[m.ID]; ok {
		return fmt.Errorf("match %q: %w", m.ID, ErrConflict)
	}
	t.Matches = append(slices.Clip(t.Matches), m.Clone())
	s.triangulars[triangularID] = t
	s.matchOwner[m.ID] = triangularID
	return nil
}

// PlayerMatches scans every triangular the player was rostered in and
// returns the matches their team played, in play order.
func (s *MemoryStore) PlayerMatches(_ context.Context, playerID string) ([]model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Match
	for _, t := range s.triangulars {
		team, ok := t.TeamOf(playerID)
		if !ok {
			continue
		}
		for _, m := range t.Matches {
			if m.Involves(team) {
				out = append(out, m.Clone())
			}
		}
	}
	sortMatches(out)
	return out, nil
}

// Players returns registered players ordered by id.
func (s *MemoryStore) Players(_ context.Context) ([]model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b model.Player) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// Player returns one registered player or ErrNotFound.
func (s *MemoryStore) Player(_ context.Context, id string) (model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.players[id]
	if !ok {
		return model.Player{}, fmt.Errorf("player %q: %w", id, ErrNotFound)
	}
	return p, nil
}

// SavePlayer registers a player. A known id yields ErrPlayerExists.
func (s *MemoryStore) SavePlayer(_ context.Context, p model.Player) error {
	if p.ID == "" {
		return fmt.Errorf("player: %w", ErrEmptyID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[p.ID]; ok {
		return fmt.Errorf("%q: %w", p.ID, ErrPlayerExists)
	}
	s.players[p.ID] = p
	return nil
}

// Seasons returns every season ordered by InitDate, then ID.
func (s *MemoryStore) Seasons(_ context.Context) ([]model.Season, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seasonList(), nil
}

// SaveSeason creates or updates a season.
func (s *MemoryStore) SaveSeason(_ context.Context, season model.Season) error {
	if season.ID == "" {
		return fmt.Errorf("season: %w", ErrEmptyID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seasons[season.ID] = season
	return nil
}

// SavePlayerStats validates the batch, then swaps in a new stats map.
func (s *MemoryStore) SavePlayerStats(_ context.Context, batch []model.PlayerStats) error {
	for _, st := range batch {
		if st.PlayerID == "" {
			return fmt.Errorf("stats without player id: %w", ErrInvalidStats)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]model.PlayerStats, len(s.stats)+len(batch))
	for id, st := range s.stats {
		next[id] = st
	}
	for _, st := range batch {
		next[st.PlayerID] = st
	}
	s.stats = next
	return nil
}

// PlayerStats returns the last persisted snapshot for a player.
func (s *MemoryStore) PlayerStats(_ context.Context, playerID string) (model.PlayerStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stats[playerID]
	if !ok {
		return model.PlayerStats{}, fmt.Errorf("stats for %q: %w", playerID, ErrNotFound)
	}
	return st, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// seasonList assumes the lock is held.
func (s *MemoryStore) seasonList() []model.Season {
	out := make([]model.Season, 0, len(s.seasons))
	for _, season := range s.seasons {
		out = append(out, season)
	}
	slices.SortFunc(out, func(a, b model.Season) int {
		if c := a.InitDate.Compare(b.InitDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// activeSeasonID returns the most recently started open season, or "".
func activeSeasonID(seasons []model.Season) string {
	active := ""
	for _, season := range seasons { // ordered by InitDate
		if season.Active() {
			active = season.ID
		}
	}
	return active
}

func sortTriangulars(ts []model.Triangular) {
	slices.SortFunc(ts, func(a, b model.Triangular) int {
		if c := a.PlayedOn.Compare(b.PlayedOn); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func sortMatches(ms []model.Match) {
	slices.SortStableFunc(ms, func(a, b model.Match) int {
		if c := a.PlayedAt.Compare(b.PlayedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
