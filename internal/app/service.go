// Package service provides the league engine facade that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/trio/internal/adapters/mq/queue"
	"github.com/okian/trio/internal/adapters/mq/worker"
	"github.com/okian/trio/internal/adapters/repository"
	"github.com/okian/trio/internal/domain/balance"
	"github.com/okian/trio/internal/domain/dedupe"
	"github.com/okian/trio/internal/domain/model"
	"github.com/okian/trio/internal/domain/rating"
	"github.com/okian/trio/internal/domain/stats"
	"github.com/okian/trio/internal/domain/triangular"
	"github.com/okian/trio/internal/domain/types"
	"github.com/okian/trio/pkg/logger"
	"github.com/okian/trio/pkg/metrics"
)

const (
	defaultQueueSize           = 10_000
	defaultDedupeSize          = 50_000
	defaultMaxLeaderboardLimit = 100
	playerLockStripes          = 64
)

// Service wires the scoring engine to the store, the rating leaderboard and
// the recompute workers.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	board   *repository.Leaderboard
	deduper dedupe.Deduper
	jobs    *queue.InMemoryQueue
	pool    *worker.Pool

	// Configuration
	workerCount         int
	queueSize           int
	dedupeSize          int
	recalcConcurrency   int
	maxLeaderboardLimit int

	// recalcMu keeps single-player recomputes out of a full rebuild.
	recalcMu    sync.RWMutex
	playerLocks [playerLockStripes]sync.Mutex
	// seasonMu serializes season writes so at most one season is open.
	seasonMu sync.Mutex

	started bool
	logger  logger.Logger
	now     func() time.Time
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the backing store. The default is an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithWorkerCount sets the number of recompute workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the recompute queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many match ids are remembered for idempotency.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithRecalcConcurrency bounds the goroutines of a full recalculation.
func WithRecalcConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.recalcConcurrency = n
		}
	}
}

// WithMaxLeaderboardLimit caps the n accepted by TopN.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLeaderboardLimit = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Components that do not need goroutines are
// ready immediately; Start launches the recompute workers.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:         runtime.NumCPU(),
		queueSize:           defaultQueueSize,
		dedupeSize:          defaultDedupeSize,
		recalcConcurrency:   runtime.NumCPU(),
		maxLeaderboardLimit: defaultMaxLeaderboardLimit,
		now:                 func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.board = repository.NewLeaderboard()
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))

	return s
}

// Start launches the worker pool that recomputes players after each match.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting league service...")

	s.jobs = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.jobs, s,
		worker.WithLogger(s.logger.Named("worker")),
	)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "league service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("recalcConcurrency", s.recalcConcurrency),
	)

	return nil
}

// Stop drains the recompute queue and stops the workers. The store is
// owned by the caller and left open.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping league service...")

	err := s.pool.Shutdown(ctx)
	s.started = false
	s.logger.Info(ctx, "league service stopped")
	return err
}

// ScoreTriangular scores a stored triangular.
func (s *Service) ScoreTriangular(ctx context.Context, id string) (triangular.Outcome, error) {
	t, err := s.store.Triangular(ctx, id)
	if err != nil {
		return triangular.Outcome{}, err
	}
	return s.score(func() (triangular.Outcome, error) { return triangular.ScoreTriangular(t) })
}

// ScoreMatches scores an ad hoc set of matches without touching the store.
func (s *Service) ScoreMatches(_ context.Context, matches []model.Match) (triangular.Outcome, error) {
	return s.score(func() (triangular.Outcome, error) { return triangular.Score(matches) })
}

func (s *Service) score(fn func() (triangular.Outcome, error)) (triangular.Outcome, error) {
	start := time.Now()
	out, err := fn()
	if err != nil {
		metrics.RecordScoringError()
		return triangular.Outcome{}, err
	}
	metrics.RecordTriangularScored(float64(time.Since(start).Nanoseconds()) / 1e6)
	return out, nil
}

// CreateTriangular validates and stores a new triangular. Missing ids are
// generated, a missing season resolves to the open season, and players on
// the rosters are queued for recompute when matches are included. A known
// triangular id yields repository.ErrTriangularExists and leaves the stored
// triangular untouched.
func (s *Service) CreateTriangular(ctx context.Context, t model.Triangular) (model.Triangular, error) {
	t = t.Clone()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.PlayedOn.IsZero() {
		t.PlayedOn = s.now()
	}
	for i := range t.Matches {
		if t.Matches[i].ID == "" {
			t.Matches[i].ID = uuid.NewString()
		}
		if t.Matches[i].PlayedAt.IsZero() {
			t.Matches[i].PlayedAt = t.PlayedOn
		}
	}
	if t.SeasonID == "" {
		id, err := s.openSeason(ctx)
		if err != nil {
			return model.Triangular{}, err
		}
		t.SeasonID = id
	}

	if err := triangular.Validate(t); err != nil {
		return model.Triangular{}, err
	}
	if err := s.store.SaveTriangular(ctx, t); err != nil {
		return model.Triangular{}, err
	}

	s.logger.Info(ctx, "triangular created",
		logger.String("triangular_id", t.ID),
		logger.String("season_id", t.SeasonID),
		logger.Int("matches", len(t.Matches)),
	)
	if len(t.Matches) > 0 {
		s.recompute(ctx, t, "")
	}
	return t, nil
}

// RecordMatch appends a match to a stored triangular. A match id already
// submitted is rejected with ErrDuplicateMatch; a missing id is generated.
// The match is persisted before any recompute is queued, so a full queue
// only delays the roster's stats.
func (s *Service) RecordMatch(ctx context.Context, triangularID string, m model.Match) (model.Match, error) {
	m = m.Clone()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if s.deduper.SeenAndRecord(ctx, m.ID) {
		metrics.RecordMatchDuplicate()
		return model.Match{}, fmt.Errorf("%w: %q", ErrDuplicateMatch, m.ID)
	}

	t, err := s.store.Triangular(ctx, triangularID)
	if err != nil {
		s.deduper.Unrecord(ctx, m.ID)
		return model.Match{}, err
	}
	for _, prev := range t.Matches {
		if prev.ID == m.ID {
			metrics.RecordMatchDuplicate()
			return model.Match{}, fmt.Errorf("%w: %q", ErrDuplicateMatch, m.ID)
		}
	}
	if m.PlayedAt.IsZero() {
		m.PlayedAt = s.now()
	}

	candidate := t
	candidate.Matches = append(append([]model.Match(nil), t.Matches...), m)
	if err := triangular.Validate(candidate); err != nil {
		s.deduper.Unrecord(ctx, m.ID)
		return model.Match{}, err
	}

	if err := s.store.AddMatch(ctx, triangularID, m); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			metrics.RecordMatchDuplicate()
			return model.Match{}, fmt.Errorf("%w: %q", ErrDuplicateMatch, m.ID)
		}
		s.deduper.Unrecord(ctx, m.ID)
		return model.Match{}, err
	}
	metrics.RecordMatchRecorded()

	s.logger.Debug(ctx, "match recorded",
		logger.String("triangular_id", triangularID),
		logger.String("match_id", m.ID),
	)
	s.recompute(ctx, candidate, m.ID)
	return m, nil
}

// recompute queues one job per rostered player. Without running workers the
// players are recomputed inline.
func (s *Service) recompute(ctx context.Context, t model.Triangular, matchID string) {
	s.mu.RLock()
	jobs := s.jobs
	s.mu.RUnlock()

	for _, id := range t.PlayerIDs() {
		if jobs == nil {
			if err := s.RecomputePlayer(ctx, id); err != nil {
				s.logger.Error(ctx, "recompute failed", logger.String("player_id", id), logger.Error(err))
			}
			continue
		}
		job := queue.Job{PlayerID: id, TriangularID: t.ID, MatchID: matchID}
		if err := jobs.Enqueue(ctx, job); err != nil {
			metrics.RecordErrorByComponent("service", "recompute_dropped")
			s.logger.Warn(ctx, "recompute job dropped",
				logger.String("player_id", id),
				logger.String("triangular_id", t.ID),
				logger.Error(err),
			)
		}
	}
}

// RecomputePlayer rebuilds one player's persisted stats from every season
// and refreshes the player's leaderboard entry.
func (s *Service) RecomputePlayer(ctx context.Context, playerID string) error {
	s.recalcMu.RLock()
	defer s.recalcMu.RUnlock()

	lock := s.playerLock(playerID)
	lock.Lock()
	defer lock.Unlock()

	tris, err := s.store.Triangulars(ctx, model.AllSeasons())
	if err != nil {
		return err
	}
	st, err := stats.Aggregate(playerID, tris)
	if err != nil {
		return err
	}
	if err := s.store.SavePlayerStats(ctx, []model.PlayerStats{st}); err != nil {
		return err
	}
	s.board.Upsert(ctx, playerID, rating.V2(st.WinPercentage, st.TriangularWinPercentage))
	return nil
}

func (s *Service) playerLock(playerID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(playerID))
	return &s.playerLocks[h.Sum32()%playerLockStripes]
}

// Triangular returns a stored triangular.
func (s *Service) Triangular(ctx context.Context, id string) (model.Triangular, error) {
	return s.store.Triangular(ctx, id)
}

// PlayerStats computes a player's stats live over the triangulars selected
// by filter. A player with no triangulars gets zero stats.
func (s *Service) PlayerStats(ctx context.Context, playerID string, filter model.SeasonFilter) (model.PlayerStats, error) {
	tris, err := s.store.Triangulars(ctx, filter)
	if err != nil {
		return model.PlayerStats{}, err
	}
	return stats.Aggregate(playerID, tris)
}

// PlayerRating returns the V2 rating of a player over filter.
func (s *Service) PlayerRating(ctx context.Context, playerID string, filter model.SeasonFilter) (rating.Result, error) {
	st, err := s.PlayerStats(ctx, playerID, filter)
	if err != nil {
		return rating.Result{}, err
	}
	return rating.CalculateV2(st.WinPercentage, st.TriangularWinPercentage), nil
}

// CalculateRatingV2 rates raw percentages.
func (s *Service) CalculateRatingV2(winPct, triangularWinPct float64) rating.Result {
	return rating.CalculateV2(winPct, triangularWinPct)
}

// BalanceTeams splits the given players into three teams using their V2
// ratings over filter. Players without history are rated 0.
func (s *Service) BalanceTeams(ctx context.Context, playerIDs []string, filter model.SeasonFilter) (balance.Teams, error) {
	if len(playerIDs) < balance.TeamCount {
		return balance.Teams{}, fmt.Errorf("%w: need at least %d, got %d",
			balance.ErrInsufficientPlayers, balance.TeamCount, len(playerIDs))
	}
	tris, err := s.store.Triangulars(ctx, filter)
	if err != nil {
		return balance.Teams{}, err
	}
	all, _, err := stats.AggregateAll(tris)
	if err != nil {
		return balance.Teams{}, err
	}

	pool := make([]balance.Player, 0, len(playerIDs))
	for _, id := range playerIDs {
		p := balance.Player{ID: id}
		if st, ok := all[id]; ok {
			p.Rating = rating.V2(st.WinPercentage, st.TriangularWinPercentage)
		}
		if known, err := s.store.Player(ctx, id); err == nil {
			p.Name = known.Name
		} else if !errors.Is(err, repository.ErrNotFound) {
			return balance.Teams{}, err
		}
		pool = append(pool, p)
	}
	return s.BalancePool(ctx, pool)
}

// BalancePool splits players with explicit ratings into three teams.
func (s *Service) BalancePool(ctx context.Context, players []balance.Player) (balance.Teams, error) {
	teams, err := balance.Balance(players)
	if err != nil {
		return balance.Teams{}, err
	}
	metrics.RecordTeamsBalanced(teams.Spread)
	s.logger.Debug(ctx, "teams balanced",
		logger.Int("players", len(players)),
		logger.Float64("spread", teams.Spread),
	)
	return teams, nil
}

// RecalculateAllPlayerStats rebuilds every player's stats from every
// triangular, persists them as one batch and reloads the leaderboard.
// Nothing is persisted when any triangular fails to aggregate.
func (s *Service) RecalculateAllPlayerStats(ctx context.Context) (types.RecalcResult, error) {
	s.recalcMu.Lock()
	defer s.recalcMu.Unlock()

	start := time.Now()
	tris, err := s.store.Triangulars(ctx, model.AllSeasons())
	if err != nil {
		return types.RecalcResult{}, err
	}
	tris = distinct(tris)

	merged, err := s.aggregateParallel(ctx, tris)
	if err != nil {
		metrics.RecordErrorByComponent("service", "recalculation")
		return types.RecalcResult{}, err
	}

	batch := make([]model.PlayerStats, 0, len(merged))
	ratings := make(map[string]float64, len(merged))
	for id, st := range merged {
		batch = append(batch, st)
		ratings[id] = rating.V2(st.WinPercentage, st.TriangularWinPercentage)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].PlayerID < batch[j].PlayerID })

	if err := s.store.SavePlayerStats(ctx, batch); err != nil {
		metrics.RecordErrorByComponent("service", "recalculation")
		return types.RecalcResult{}, err
	}
	s.board.Reset(ctx, ratings)

	res := types.RecalcResult{TriangularsProcessed: len(tris), PlayersUpdated: len(batch)}
	took := time.Since(start)
	metrics.RecordRecalculation(float64(took.Nanoseconds())/1e6, res.TriangularsProcessed, res.PlayersUpdated)
	s.logger.Info(ctx, "player stats recalculated",
		logger.Int("triangulars", res.TriangularsProcessed),
		logger.Int("players", res.PlayersUpdated),
		logger.Duration("took", took),
	)
	return res, nil
}

// aggregateParallel splits tris into chunks, aggregates each chunk on its own
// goroutine and merges the partial stats.
func (s *Service) aggregateParallel(ctx context.Context, tris []model.Triangular) (map[string]model.PlayerStats, error) {
	chunks := chunk(tris, s.recalcConcurrency)
	partials := make([]map[string]model.PlayerStats, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.recalcConcurrency)
	for i, c := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			part, _, err := stats.AggregateAll(c)
			if err != nil {
				return err
			}
			partials[i] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]model.PlayerStats)
	for _, part := range partials {
		for id, st := range part {
			if prev, ok := merged[id]; ok {
				st = stats.Merge(prev, st)
			}
			merged[id] = st
		}
	}
	return merged, nil
}

// TopN returns the best rated players, capped at the configured limit.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	if n > s.maxLeaderboardLimit {
		n = s.maxLeaderboardLimit
	}
	return s.board.TopN(ctx, n)
}

// Rank returns the dense rank and rating of a player.
func (s *Service) Rank(ctx context.Context, playerID string) (types.Entry, error) {
	return s.board.Rank(ctx, playerID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	out := map[string]interface{}{
		"started":           s.started,
		"workerCount":       s.workerCount,
		"queueSize":         s.queueSize,
		"dedupeSize":        s.dedupeSize,
		"recalcConcurrency": s.recalcConcurrency,
		"dedupeEntries":     s.deduper.Size(),
		"rankedPlayers":     s.board.Count(ctx),
	}

	if s.started {
		queueLen := s.jobs.Len(ctx)
		out["queueLength"] = queueLen
		out["workers"] = s.pool.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.pool.Size())
	}

	return out
}

// openSeason resolves the id of the latest open season, or "" when none is open.
func (s *Service) openSeason(ctx context.Context) (string, error) {
	seasons, err := s.store.Seasons(ctx)
	if err != nil {
		return "", err
	}
	var best *model.Season
	for i := range seasons {
		se := &seasons[i]
		if !se.Active() {
			continue
		}
		if best == nil || se.InitDate.After(best.InitDate) ||
			(se.InitDate.Equal(best.InitDate) && se.ID > best.ID) {
			best = se
		}
	}
	if best == nil {
		return "", nil
	}
	return best.ID, nil
}

// distinct drops repeated triangular ids, keeping the first.
func distinct(tris []model.Triangular) []model.Triangular {
	seen := make(map[string]struct{}, len(tris))
	out := tris[:0:0]
	for _, t := range tris {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}

// chunk splits tris into at most n contiguous parts.
func chunk(tris []model.Triangular, n int) [][]model.Triangular {
	if len(tris) == 0 {
		return nil
	}
	n = max(1, min(n, len(tris)))
	size := (len(tris) + n - 1) / n
	out := make([][]model.Triangular, 0, n)
	for i := 0; i < len(tris); i += size {
		out = append(out, tris[i:min(i+size, len(tris))])
	}
	return out
}
