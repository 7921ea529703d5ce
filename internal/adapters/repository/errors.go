package repository

import (
	"errors"
	"fmt"
)

// Sentinel kinds for store and leaderboard errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
	ErrInvalidStats = errors.New("invalid player stats")
	ErrEmptyID      = errors.New("empty id")
)

// Conflicts on a record id. Each wraps ErrConflict.
var (
	ErrTriangularExists = fmt.Errorf("triangular %w", ErrConflict)
	ErrPlayerExists     = fmt.Errorf("player %w", ErrConflict)
	ErrSeasonExists     = fmt.Errorf("season %w", ErrConflict)
)
