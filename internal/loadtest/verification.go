package loadtest

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/okian/trio/internal/domain/model"
	"github.com/okian/trio/internal/domain/rating"
	"github.com/okian/trio/internal/domain/stats"
	"github.com/okian/trio/pkg/logger"
)

// expectedLeaderboard computes the full leaderboard locally: rating desc,
// player id asc, dense ranks.
func expectedLeaderboard(tris []model.Triangular) ([]Entry, error) {
	all, _, err := stats.AggregateAll(tris)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(all))
	for id, st := range all {
		out = append(out, Entry{PlayerID: id, Rating: rating.V2(st.WinPercentage, st.TriangularWinPercentage)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	rank := 0
	for i := range out {
		if i == 0 || out[i].Rating != out[i-1].Rating {
			rank++
		}
		out[i].Rank = rank
	}
	return out, nil
}

// verifyLeaderboard checks that got is exactly the head of expected.
func verifyLeaderboard(expected, got []Entry, topN int) error {
	want := expected[:min(topN, len(expected))]
	if len(got) != len(want) {
		return fmt.Errorf("leaderboard has %d entries, expected %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("leaderboard position %d is %+v, expected %+v", i+1, got[i], want[i])
		}
	}
	return nil
}

// verifyRanks fetches every expected player's rank concurrently and counts
// the entries that differ.
func verifyRanks(ctx context.Context, cfg *Config, log logger.Logger, client *HTTPClient, expected []Entry, st *Stats) {
	log.Info(ctx, "retrieving ranks",
		logger.Int("players", len(expected)),
		logger.Int("workers", cfg.Workers))

	var retrieved, mismatched atomic.Int64
	work := make(chan Entry, cfg.Workers*2)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for want := range work {
				var got Entry
				if err := client.getJSON(ctx, "/rank/"+url.PathEscape(want.PlayerID), &got); err != nil {
					mismatched.Add(1)
					if cfg.Verbose {
						log.Warn(ctx, "rank lookup failed", logger.String("player_id", want.PlayerID), logger.Error(err))
					}
					continue
				}
				retrieved.Add(1)
				if got != want {
					mismatched.Add(1)
					log.Warn(ctx, "rank mismatch",
						logger.String("player_id", want.PlayerID),
						logger.Int("rank", got.Rank),
						logger.Int("expectedRank", want.Rank),
						logger.Float64("rating", got.Rating),
						logger.Float64("expectedRating", want.Rating))
				}
			}
		}()
	}

	go func() {
		defer close(work)
		for _, e := range expected {
			select {
			case <-ctx.Done():
				return
			case work <- e:
			}
		}
	}()
	wg.Wait()

	st.RanksRetrieved = int(retrieved.Load())
	st.RankMismatches = int(mismatched.Load())
}

// displayTopPlayers logs the head of the leaderboard.
func displayTopPlayers(ctx context.Context, log logger.Logger, leaderboard []Entry) {
	n := min(10, len(leaderboard))
	for _, e := range leaderboard[:n] {
		log.Info(ctx, "top player",
			logger.Int("rank", e.Rank),
			logger.String("player_id", e.PlayerID),
			logger.Float64("rating", e.Rating))
	}
}
