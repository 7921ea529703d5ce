// Package loadtest drives a running league service over HTTP: it generates
// triangulars, submits them with their matches concurrently, rebuilds the
// stats and checks the leaderboard against a local computation.
package loadtest

import (
	"time"

	"github.com/okian/trio/internal/domain/types"
	"github.com/okian/trio/pkg/logger"
)

// Config holds configuration for a load test run.
type Config struct {
	BaseURL        string        // Base URL of the service
	Triangulars    int           // Number of triangulars to generate
	Players        int           // Size of the player pool
	PerTeam        int           // Players on each roster
	TopN           int           // Number of top entries to verify
	Workers        int           // Number of concurrent workers
	Timeout        time.Duration // HTTP request timeout
	DuplicateRatio float64       // Share of matches submitted twice
	Seed           uint64        // Seed for the generator
	OutputFile     string        // Optional file for the generated triangulars
	Verbose        bool          // Enable verbose logging
	Logger         logger.Logger // Defaults to the global logger
}

// Entry represents a leaderboard entry.
type Entry = types.Entry

// Stats holds run statistics.
type Stats struct {
	TriangularsGenerated int
	TriangularsCreated   int
	MatchesSubmitted     int
	MatchesAccepted      int
	MatchesDuplicate     int
	MatchesFailed        int
	PlayersRecalculated  int
	RanksRetrieved       int
	RankMismatches       int
	LeaderboardEntries   int
	StartTime            time.Time
	EndTime              time.Time
	Duration             time.Duration
}
