package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/trio/internal/domain/model"
	"github.com/okian/trio/internal/domain/types"
	"github.com/okian/trio/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// ErrVerification is returned when the service disagrees with the local
// computation.
var ErrVerification = errors.New("verification failed")

// Run executes the complete load test against a freshly started service.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	log = log.Named("loadtest")
	st := &Stats{StartTime: time.Now()}
	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting league load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("triangulars", cfg.Triangulars),
		logger.Int("players", cfg.Players),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Int("topN", cfg.TopN))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, log, client); err != nil {
		return st, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate triangulars
	tris, err := Generate(cfg, time.Now().UTC().Truncate(time.Second))
	if err != nil {
		return st, fmt.Errorf("generation failed: %w", err)
	}
	st.TriangularsGenerated = len(tris)

	// Step 3: Submit concurrently
	if err := submitTriangulars(ctx, cfg, log, client, tris, st); err != nil {
		return st, fmt.Errorf("submission failed: %w", err)
	}
	if st.MatchesFailed > 0 {
		return st, fmt.Errorf("%w: %d matches were not accepted", ErrVerification, st.MatchesFailed)
	}

	// Step 4: Rebuild every player's stats
	var recalc types.RecalcResult
	status, body, err := client.Post(ctx, "/admin/recalculate", nil)
	if err != nil {
		return st, fmt.Errorf("recalculation failed: %w", err)
	}
	if status != http.StatusOK {
		return st, fmt.Errorf("recalculation failed: HTTP %d: %s", status, body)
	}
	if err := json.Unmarshal(body, &recalc); err != nil {
		return st, fmt.Errorf("recalculation failed: %w", err)
	}
	st.PlayersRecalculated = recalc.PlayersUpdated

	// Step 5: Compare against a local computation
	expected, err := expectedLeaderboard(tris)
	if err != nil {
		return st, fmt.Errorf("local computation failed: %w", err)
	}

	var leaderboard []Entry
	if err := client.getJSON(ctx, fmt.Sprintf("/leaderboard?limit=%d", cfg.TopN), &leaderboard); err != nil {
		return st, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	st.LeaderboardEntries = len(leaderboard)
	displayTopPlayers(ctx, log, leaderboard)

	verifyRanks(ctx, cfg, log, client, expected, st)

	// Step 6: Save triangulars to file
	if cfg.OutputFile != "" {
		if err := saveTriangulars(cfg.OutputFile, tris); err != nil {
			log.Warn(ctx, "failed to save triangulars", logger.Error(err))
		} else {
			log.Info(ctx, "triangulars saved", logger.String("filename", cfg.OutputFile))
		}
	}

	st.EndTime = time.Now()
	st.Duration = st.EndTime.Sub(st.StartTime)
	displayFinalStats(ctx, log, st)

	if err := verifyLeaderboard(expected, leaderboard, cfg.TopN); err != nil {
		return st, fmt.Errorf("%w: %w", ErrVerification, err)
	}
	if st.RankMismatches > 0 {
		return st, fmt.Errorf("%w: %d of %d ranks differ", ErrVerification, st.RankMismatches, len(expected))
	}

	log.Info(ctx, "load test completed successfully")
	return st, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, log logger.Logger, client *HTTPClient) error {
	log.Info(ctx, "checking service health")

	status, _, err := client.Get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if status != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", status)
	}

	log.Info(ctx, "service is healthy")
	return nil
}

// saveTriangulars writes the generated triangulars as a JSON array.
func saveTriangulars(filename string, tris []model.Triangular) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(tris, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal triangulars: %w", err)
	}
	return os.WriteFile(filename, data, filePermission)
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, st *Stats) {
	var matchesPerSecond float64
	if st.Duration > 0 {
		matchesPerSecond = float64(st.MatchesSubmitted) / st.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("triangularsGenerated", st.TriangularsGenerated),
		logger.Int("triangularsCreated", st.TriangularsCreated),
		logger.Int("matchesSubmitted", st.MatchesSubmitted),
		logger.Int("matchesAccepted", st.MatchesAccepted),
		logger.Int("matchesDuplicate", st.MatchesDuplicate),
		logger.Int("matchesFailed", st.MatchesFailed),
		logger.Int("playersRecalculated", st.PlayersRecalculated),
		logger.Int("ranksRetrieved", st.RanksRetrieved),
		logger.Int("rankMismatches", st.RankMismatches),
		logger.Int("leaderboardEntries", st.LeaderboardEntries),
		logger.Duration("duration", st.Duration),
		logger.Float64("matchesPerSecond", matchesPerSecond))
}
