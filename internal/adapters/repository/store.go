// Package repository holds the league store contract, its in-memory and
// postgres implementations, and the rating leaderboard.
package repository

import (
	"context"

	"github.com/okian/trio/internal/domain/model"
)

// TriangularReader fetches triangulars, each with its rosters and matches.
type TriangularReader interface {
	// Triangulars returns every triangular under filter ordered by
	// PlayedOn, then ID.
	Triangulars(ctx context.Context, filter model.SeasonFilter) ([]model.Triangular, error)
	// Triangular returns one triangular or ErrNotFound.
	Triangular(ctx context.Context, id string) (model.Triangular, error)
}

// StatsWriter persists recomputed player stats.
type StatsWriter interface {
	// SavePlayerStats stores the whole batch or nothing.
	SavePlayerStats(ctx context.Context, stats []model.PlayerStats) error
}

// Store provides read/write access to league state.
type Store interface {
	TriangularReader
	StatsWriter

	// SaveTriangular inserts a triangular with its matches. A known
	// triangular id yields ErrTriangularExists; a match id already stored
	// yields ErrConflict. Rosters never change once saved.
	SaveTriangular(ctx context.Context, t model.Triangular) error
	// AddMatch appends m to a triangular. ErrNotFound for an unknown
	// triangular, ErrConflict for a known match id.
	AddMatch(ctx context.Context, triangularID string, m model.Match) error
	// PlayerMatches returns every match played by the player's team, in play order.
	PlayerMatches(ctx context.Context, playerID string) ([]model.Match, error)

	Players(ctx context.Context) ([]model.Player, error)
	Player(ctx context.Context, id string) (model.Player, error)
	// SavePlayer registers a player. A known id yields ErrPlayerExists.
	SavePlayer(ctx context.Context, p model.Player) error

	Seasons(ctx context.Context) ([]model.Season, error)
	// SaveSeason creates or updates a season.
	SaveSeason(ctx context.Context, s model.Season) error

	// PlayerStats returns the last persisted snapshot or ErrNotFound.
	PlayerStats(ctx context.Context, playerID string) (model.PlayerStats, error)

	Close() error
}
