package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/trio/internal/loadtest"
)

// Default configuration constants.
const (
	defaultTriangulars    = 500
	defaultPlayers        = 60
	defaultPerTeam        = 5
	defaultTopN           = 50
	defaultWorkers        = 2 // multiplier for runtime.NumCPU()
	defaultDuplicateRatio = 0.05
	defaultTimeout        = 30 * time.Second
	defaultTestTimeout    = 10 * time.Minute
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("trio-load", flag.ContinueOnError)
	var (
		baseURL     = fs.String("url", "http://localhost:9080", "Base URL of the service")
		triangulars = fs.Int("triangulars", defaultTriangulars, "Number of triangulars to generate")
		players     = fs.Int("players", defaultPlayers, "Size of the player pool")
		perTeam     = fs.Int("per-team", defaultPerTeam, "Players per roster")
		topN        = fs.Int("top", defaultTopN, "Number of leaderboard entries to verify")
		workers     = fs.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout     = fs.Duration("timeout", defaultTimeout, "HTTP request timeout")
		duplicates  = fs.Float64("duplicates", defaultDuplicateRatio, "Share of matches submitted twice")
		seed        = fs.Uint64("seed", 1, "Generator seed")
		outputFile  = fs.String("output", "", "Output file for generated triangulars")
		logFile     = fs.String("log", "", "Also write logs to this file")
		verbose     = fs.Bool("verbose", false, "Enable verbose logging")
		help        = fs.Bool("help", false, "Show help")
	)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *help {
		loadtest.ShowHelp(os.Stdout)
		return 0
	}

	log, closer, err := loadtest.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return 1
	}
	defer closer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	cfg := &loadtest.Config{
		BaseURL:        *baseURL,
		Triangulars:    *triangulars,
		Players:        *players,
		PerTeam:        *perTeam,
		TopN:           *topN,
		Workers:        *workers,
		Timeout:        *timeout,
		DuplicateRatio: *duplicates,
		Seed:           *seed,
		OutputFile:     *outputFile,
		Verbose:        *verbose,
		Logger:         log,
	}

	if _, err := loadtest.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Test failed: " + err.Error() + "\n")
		return 1
	}
	return 0
}
