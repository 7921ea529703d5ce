package loadtest

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/trio/pkg/logger"
)

// SetupLogging returns a logger writing to stdout and, when logFile is set,
// to that file too. The returned closer releases the file.
func SetupLogging(logFile string, verbose bool) (logger.Logger, io.Closer, error) {
	var (
		w      io.Writer = os.Stdout
		closer io.Closer = io.NopCloser(nil)
	)
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePermission)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, file)
		closer = file
	}

	l, err := logger.New(w, logger.FormatText)
	if err != nil {
		return nil, nil, err
	}
	level := "info"
	if verbose {
		level = "debug"
	}
	if err := logger.SetLevelString(level); err != nil {
		return nil, nil, err
	}
	return l, closer, nil
}

// DefaultLogFile returns a timestamped log file name.
func DefaultLogFile(now time.Time) string {
	return "loadtest_" + now.Format("20060102_150405") + ".log"
}

// ShowHelp prints usage information for the load test tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `trio league load test
=====================

Generates random triangulars, submits them and their matches concurrently,
rebuilds all player stats and checks the leaderboard and every rank against
a local computation. Run it against a freshly started service.

Usage:
  go run ./cmd/trio-load [options]

Options:
  -url string          Base URL of the service (default "http://localhost:9080")
  -triangulars int     Number of triangulars to generate (default 500)
  -players int         Size of the player pool (default 60)
  -per-team int        Players per roster (default 5)
  -top int             Leaderboard entries to verify (default 50)
  -workers int         Concurrent workers (default CPU cores * 2)
  -duplicates float    Share of matches submitted twice (default 0.05)
  -seed uint           Generator seed (default 1)
  -timeout duration    HTTP request timeout (default 30s)
  -output string       Write the generated triangulars to this JSON file
  -log string          Also log to this file
  -verbose             Enable debug logging
  -help                Show this help message
`)
}
