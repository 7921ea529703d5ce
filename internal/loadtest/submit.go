package loadtest

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/trio/internal/domain/model"
	"github.com/okian/trio/pkg/logger"
)

const progressInterval = time.Second

// submitTriangulars creates every triangular and posts its matches. Each
// worker owns whole triangulars so matches of one triangular arrive in order.
func submitTriangulars(ctx context.Context, cfg *Config, log logger.Logger, client *HTTPClient, tris []model.Triangular, stats *Stats) error {
	log.Info(ctx, "submitting triangulars",
		logger.Int("triangulars", len(tris)),
		logger.Int("workers", cfg.Workers))

	var (
		created, submitted, accepted, duplicate, failed atomic.Int64
		lastReport                                      atomic.Int64
	)

	work := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(cfg.Seed, uint64(workerID)))

			for idx := range work {
				if ctx.Err() != nil {
					return
				}
				t := tris[idx]
				if err := createTriangular(ctx, client, t); err != nil {
					failed.Add(int64(len(t.Matches)))
					log.Warn(ctx, "triangular rejected", logger.String("triangular_id", t.ID), logger.Error(err))
					continue
				}
				created.Add(1)

				for _, m := range t.Matches {
					times := 1
					if rng.Float64() < cfg.DuplicateRatio {
						times = 2
					}
					for range times {
						submitted.Add(1)
						switch result := submitMatch(ctx, client, t.ID, m); result {
						case resultAccepted:
							accepted.Add(1)
						case resultDuplicate:
							duplicate.Add(1)
						default:
							failed.Add(1)
						}
					}
				}

				now := time.Now().UnixNano()
				if last := lastReport.Load(); now-last >= int64(progressInterval) && lastReport.CompareAndSwap(last, now) {
					log.Info(ctx, "progress",
						logger.Int("triangulars", int(created.Load())),
						logger.Int("matchesAccepted", int(accepted.Load())),
						logger.Int("matchesDuplicate", int(duplicate.Load())),
						logger.Int("matchesFailed", int(failed.Load())))
				}
			}
		}(w)
	}

	go func() {
		defer close(work)
		for i := range tris {
			select {
			case <-ctx.Done():
				return
			case work <- i:
			}
		}
	}()
	wg.Wait()

	stats.TriangularsCreated = int(created.Load())
	stats.MatchesSubmitted = int(submitted.Load())
	stats.MatchesAccepted = int(accepted.Load())
	stats.MatchesDuplicate = int(duplicate.Load())
	stats.MatchesFailed = int(failed.Load())

	log.Info(ctx, "submission completed",
		logger.Int("created", stats.TriangularsCreated),
		logger.Int("accepted", stats.MatchesAccepted),
		logger.Int("duplicate", stats.MatchesDuplicate),
		logger.Int("failed", stats.MatchesFailed))

	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// createTriangular posts the triangular without its matches.
func createTriangular(ctx context.Context, client *HTTPClient, t model.Triangular) error {
	shell := t
	shell.Matches = nil
	status, body, err := client.Post(ctx, "/triangulars", shell)
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return fmt.Errorf("HTTP %d: %s", status, body)
	}
	return nil
}

type submitResult int

const (
	resultFailed submitResult = iota
	resultAccepted
	resultDuplicate
)

func submitMatch(ctx context.Context, client *HTTPClient, triangularID string, m model.Match) submitResult {
	status, _, err := client.Post(ctx, "/triangulars/"+triangularID+"/matches", m)
	if err != nil {
		return resultFailed
	}
	switch status {
	case http.StatusCreated:
		return resultAccepted
	case http.StatusConflict:
		return resultDuplicate
	default:
		return resultFailed
	}
}
