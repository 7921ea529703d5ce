package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/okian/trio/internal/domain/model"
)

const uniqueViolation = "23505"

// SQLExecutor is satisfied by *sql.DB and *sql.Tx.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS seasons (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		init_date   TIMESTAMPTZ NOT NULL,
		finish_date TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS players (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS triangulars (
		id        TEXT PRIMARY KEY,
		season_id TEXT NOT NULL,
		played_on TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS triangular_rosters (
		triangular_id TEXT NOT NULL REFERENCES triangulars(id) ON DELETE CASCADE,
		team          TEXT NOT NULL,
		player_id     TEXT NOT NULL,
		slot          INT  NOT NULL,
		PRIMARY KEY (triangular_id, player_id)
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		seq           BIGSERIAL,
		id            TEXT PRIMARY KEY,
		triangular_id TEXT NOT NULL REFERENCES triangulars(id) ON DELETE CASCADE,
		home          TEXT NOT NULL,
		away          TEXT NOT NULL,
		home_score    INT  NOT NULL,
		away_score    INT  NOT NULL,
		result        TEXT NOT NULL DEFAULT '',
		played_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS match_goals (
		match_id  TEXT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
		player_id TEXT NOT NULL,
		goals     INT  NOT NULL,
		PRIMARY KEY (match_id, player_id)
	)`,
	`CREATE TABLE IF NOT EXISTS player_stats (
		player_id                 TEXT PRIMARY KEY,
		matches                   INT NOT NULL,
		goals                     INT NOT NULL,
		wins                      INT NOT NULL,
		draws                     INT NOT NULL,
		losses                    INT NOT NULL,
		points                    INT NOT NULL,
		win_percentage            DOUBLE PRECISION NOT NULL,
		triangulars_played        INT NOT NULL,
		triangular_wins           INT NOT NULL,
		triangular_seconds        INT NOT NULL,
		triangular_thirds         INT NOT NULL,
		triangular_points         INT NOT NULL,
		triangular_win_percentage DOUBLE PRECISION NOT NULL,
		updated_at                TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_triangulars_season ON triangulars (season_id)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_triangular ON matches (triangular_id)`,
	`CREATE INDEX IF NOT EXISTS idx_rosters_player ON triangular_rosters (player_id)`,
}

// PostgresStore is a Store backed by PostgreSQL through lib/pq.
type PostgresStore struct {
	db              *sql.DB
	maxOpenConns    int
	connMaxLifetime time.Duration
	migrate         bool
}

// NewPostgresStore opens dsn, verifies the connection and creates the schema.
func NewPostgresStore(ctx context.Context, dsn string, opts ...PostgresOption) (*PostgresStore, error) {
	s := &PostgresStore{
		maxOpenConns:    10,
		connMaxLifetime: 30 * time.Minute,
		migrate:         true,
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(s.maxOpenConns)
	db.SetConnMaxLifetime(s.connMaxLifetime)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	s.db = db

	if s.migrate {
		if err := s.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, q := range schema {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrating: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Triangulars(ctx context.Context, filter model.SeasonFilter) ([]model.Triangular, error) {
	query := `SELECT t.id, t.season_id, t.played_on FROM triangulars t`
	var args []any
	switch filter.Scope {
	case model.ScopeAll:
	case model.ScopeSeason:
		query += ` WHERE t.season_id = $1`
		args = append(args, filter.SeasonID)
	default:
		// With no open season the active scope covers season-less triangulars.
		query += ` WHERE t.season_id = COALESCE((
			SELECT id FROM seasons WHERE finish_date IS NULL
			ORDER BY init_date DESC, id DESC LIMIT 1), '')`
	}
	query += ` ORDER BY t.played_on, t.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing triangulars: %w", err)
	}
	defer rows.Close()

	out := make([]model.Triangular, 0)
	for rows.Next() {
		var t model.Triangular
		if err := rows.Scan(&t.ID, &t.SeasonID, &t.PlayedOn); err != nil {
			return nil, fmt.Errorf("scanning triangular: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.loadDetails(ctx, s.db, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) Triangular(ctx context.Context, id string) (model.Triangular, error) {
	var t model.Triangular
	err := s.db.QueryRowContext(ctx,
		`SELECT id, season_id, played_on FROM triangulars WHERE id = $1`, id,
	).Scan(&t.ID, &t.SeasonID, &t.PlayedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Triangular{}, fmt.Errorf("triangular %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Triangular{}, fmt.Errorf("fetching triangular %q: %w", id, err)
	}
	out := []model.Triangular{t}
	if err := s.loadDetails(ctx, s.db, out); err != nil {
		return model.Triangular{}, err
	}
	return out[0], nil
}

// loadDetails fills rosters, matches and goals for ts in three queries.
func (s *PostgresStore) loadDetails(ctx context.Context, exec SQLExecutor, ts []model.Triangular) error {
	if len(ts) == 0 {
		return nil
	}
	ids := make([]string, len(ts))
	index := make(map[string]int, len(ts))
	for i := range ts {
		ids[i] = ts[i].ID
		index[ts[i].ID] = i
		ts[i].Rosters = make(map[model.TeamLabel][]string, len(model.TeamLabels))
		ts[i].Matches = make([]model.Match, 0)
	}

	rows, err := exec.QueryContext(ctx,
		`SELECT triangular_id, team, player_id FROM triangular_rosters
		 WHERE triangular_id = ANY($1) ORDER BY triangular_id, team, slot`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("loading rosters: %w", err)
	}
	for rows.Next() {
		var triID, team, playerID string
		if err := rows.Scan(&triID, &team, &playerID); err != nil {
			rows.Close()
			return fmt.Errorf("scanning roster: %w", err)
		}
		t := &ts[index[triID]]
		t.Rosters[model.TeamLabel(team)] = append(t.Rosters[model.TeamLabel(team)], playerID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	matches, err := queryMatches(ctx, exec,
		`SELECT m.id, m.triangular_id, m.home, m.away, m.home_score, m.away_score, m.result, m.played_at
		 FROM matches m WHERE m.triangular_id = ANY($1) ORDER BY m.seq`, pq.Array(ids))
	if err != nil {
		return err
	}
	for _, om := range matches {
		t := &ts[index[om.triangularID]]
		t.Matches = append(t.Matches, om.Match)
	}
	return nil
}

type ownedMatch struct {
	model.Match
	triangularID string
}

// queryMatches runs a match query and attaches goals. The query must
// select the columns of matches in table order, aliased as m.
func queryMatches(ctx context.Context, exec SQLExecutor, query string, args ...any) ([]ownedMatch, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("loading matches: %w", err)
	}
	var out []ownedMatch
	for rows.Next() {
		var om ownedMatch
		var home, away, result string
		if err := rows.Scan(&om.ID, &om.triangularID, &home, &away, &om.HomeScore, &om.AwayScore, &result, &om.PlayedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		om.Home, om.Away, om.Result = model.TeamLabel(home), model.TeamLabel(away), model.Result(result)
		out = append(out, om)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, len(out))
	index := make(map[string]int, len(out))
	for i := range out {
		ids[i] = out[i].ID
		index[out[i].ID] = i
	}
	goals, err := exec.QueryContext(ctx,
		`SELECT match_id, player_id, goals FROM match_goals WHERE match_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("loading goals: %w", err)
	}
	defer goals.Close()
	for goals.Next() {
		var matchID, playerID string
		var n int
		if err := goals.Scan(&matchID, &playerID, &n); err != nil {
			return nil, fmt.Errorf("scanning goals: %w", err)
		}
		m := &out[index[matchID]]
		if m.Goals == nil {
			m.Goals = make(map[string]int)
		}
		m.Goals[playerID] = n
	}
	return out, goals.Err()
}

func (s *PostgresStore) SaveTriangular(ctx context.Context, t model.Triangular) error {
	if t.ID == "" {
		return fmt.Errorf("triangular: %w", ErrEmptyID)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO triangulars (id, season_id, played_on) VALUES ($1, $2, $3)`,
			t.ID, t.SeasonID, t.PlayedOn)
		if err != nil {
			return mapConflict(fmt.Sprintf("%q", t.ID), ErrTriangularExists, err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO triangular_rosters (triangular_id, team, player_id, slot) VALUES ($1, $2, $3, $4)`)
		if err != nil {
			return fmt.Errorf("preparing roster insert: %w", err)
		}
		defer stmt.Close()
		for _, label := range model.TeamLabels {
			for slot, playerID := range t.Rosters[label] {
				if _, err := stmt.ExecContext(ctx, t.ID, string(label), playerID, slot); err != nil {
					return mapConflict(fmt.Sprintf("roster player %q", playerID), ErrConflict, err)
				}
			}
		}

		for _, m := range t.Matches {
			if err := insertMatch(ctx, tx, t.ID, m); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) AddMatch(ctx context.Context, triangularID string, m model.Match) error {
	if m.ID == "" {
		return fmt.Errorf("match: %w", ErrEmptyID)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM triangulars WHERE id = $1)`, triangularID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking triangular %q: %w", triangularID, err)
		}
		if !exists {
			return fmt.Errorf("triangular %q: %w", triangularID, ErrNotFound)
		}
		return insertMatch(ctx, tx, triangularID, m)
	})
}

func insertMatch(ctx context.Context, exec SQLExecutor, triangularID string, m model.Match) error {
	_, err := exec.ExecContext(ctx,
		`INSERT INTO matches (id, triangular_id, home, away, home_score, away_score, result, played_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, triangularID, string(m.Home), string(m.Away), m.HomeScore, m.AwayScore, string(m.Result), m.PlayedAt)
	if err != nil {
		return mapConflict(fmt.Sprintf("match %q", m.ID), ErrConflict, err)
	}
	for playerID, n := range m.Goals {
		if _, err := exec.ExecContext(ctx,
			`INSERT INTO match_goals (match_id, player_id, goals) VALUES ($1, $2, $3)`,
			m.ID, playerID, n); err != nil {
			return fmt.Errorf("saving goals of %q: %w", m.ID, err)
		}
	}
	return nil
}

func (s *PostgresStore) PlayerMatches(ctx context.Context, playerID string) ([]model.Match, error) {
	owned, err := queryMatches(ctx, s.db,
		`SELECT m.id, m.triangular_id, m.home, m.away, m.home_score, m.away_score, m.result, m.played_at
		 FROM matches m
		 JOIN triangular_rosters r ON r.triangular_id = m.triangular_id AND r.player_id = $1
		 WHERE m.home = r.team OR m.away = r.team
		 ORDER BY m.played_at, m.id`, playerID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Match, len(owned))
	for i, om := range owned {
		out[i] = om.Match
	}
	return out, nil
}

func (s *PostgresStore) Players(ctx context.Context) ([]model.Player, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM players ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	defer rows.Close()

	out := make([]model.Player, 0)
	for rows.Next() {
		var p model.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning player: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Player(ctx context.Context, id string) (model.Player, error) {
	var p model.Player
	err := s.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM players WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Player{}, fmt.Errorf("player %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Player{}, fmt.Errorf("fetching player %q: %w", id, err)
	}
	return p, nil
}

func (s *PostgresStore) SavePlayer(ctx context.Context, p model.Player) error {
	if p.ID == "" {
		return fmt.Errorf("player: %w", ErrEmptyID)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO players (id, name, created_at) VALUES ($1, $2, $3)`,
		p.ID, p.Name, p.CreatedAt)
	if err != nil {
		return mapConflict(fmt.Sprintf("%q", p.ID), ErrPlayerExists, err)
	}
	return nil
}

func (s *PostgresStore) Seasons(ctx context.Context) ([]model.Season, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, init_date, finish_date FROM seasons ORDER BY init_date, id`)
	if err != nil {
		return nil, fmt.Errorf("listing seasons: %w", err)
	}
	defer rows.Close()

	out := make([]model.Season, 0)
	for rows.Next() {
		var season model.Season
		var finish sql.NullTime
		if err := rows.Scan(&season.ID, &season.Name, &season.InitDate, &finish); err != nil {
			return nil, fmt.Errorf("scanning season: %w", err)
		}
		if finish.Valid {
			season.FinishDate = &finish.Time
		}
		out = append(out, season)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SaveSeason(ctx context.Context, season model.Season) error {
	if season.ID == "" {
		return fmt.Errorf("season: %w", ErrEmptyID)
	}
	var finish sql.NullTime
	if season.FinishDate != nil {
		finish = sql.NullTime{Time: *season.FinishDate, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO seasons (id, name, init_date, finish_date) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, init_date = EXCLUDED.init_date,
		 finish_date = EXCLUDED.finish_date`,
		season.ID, season.Name, season.InitDate, finish)
	if err != nil {
		return fmt.Errorf("saving season %q: %w", season.ID, err)
	}
	return nil
}

// SavePlayerStats upserts the batch in one transaction.
func (s *PostgresStore) SavePlayerStats(ctx context.Context, batch []model.PlayerStats) error {
	for _, st := range batch {
		if st.PlayerID == "" {
			return fmt.Errorf("stats without player id: %w", ErrInvalidStats)
		}
	}
	if len(batch) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO player_stats (player_id, matches, goals, wins, draws, losses, points, win_percentage,
				triangulars_played, triangular_wins, triangular_seconds, triangular_thirds,
				triangular_points, triangular_win_percentage, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now())
			ON CONFLICT (player_id) DO UPDATE SET
				matches = EXCLUDED.matches, goals = EXCLUDED.goals, wins = EXCLUDED.wins,
				draws = EXCLUDED.draws, losses = EXCLUDED.losses, points = EXCLUDED.points,
				win_percentage = EXCLUDED.win_percentage, triangulars_played = EXCLUDED.triangulars_played,
				triangular_wins = EXCLUDED.triangular_wins, triangular_seconds = EXCLUDED.triangular_seconds,
				triangular_thirds = EXCLUDED.triangular_thirds, triangular_points = EXCLUDED.triangular_points,
				triangular_win_percentage = EXCLUDED.triangular_win_percentage, updated_at = now()`)
		if err != nil {
			return fmt.Errorf("preparing stats upsert: %w", err)
		}
		defer stmt.Close()

		for _, st := range batch {
			_, err := stmt.ExecContext(ctx, st.PlayerID, st.Matches, st.Goals, st.Wins, st.Draws, st.Losses,
				st.Points, st.WinPercentage, st.TriangularsPlayed, st.TriangularWins, st.TriangularSeconds,
				st.TriangularThirds, st.TriangularPoints, st.TriangularWinPercentage)
			if err != nil {
				return fmt.Errorf("saving stats for %q: %w", st.PlayerID, err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) PlayerStats(ctx context.Context, playerID string) (model.PlayerStats, error) {
	st := model.PlayerStats{PlayerID: playerID}
	err := s.db.QueryRowContext(ctx, `
		SELECT matches, goals, wins, draws, losses, points, win_percentage, triangulars_played,
			triangular_wins, triangular_seconds, triangular_thirds, triangular_points, triangular_win_percentage
		FROM player_stats WHERE player_id = $1`, playerID).
		Scan(&st.Matches, &st.Goals, &st.Wins, &st.Draws, &st.Losses, &st.Points, &st.WinPercentage,
			&st.TriangularsPlayed, &st.TriangularWins, &st.TriangularSeconds, &st.TriangularThirds,
			&st.TriangularPoints, &st.TriangularWinPercentage)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PlayerStats{}, fmt.Errorf("stats for %q: %w", playerID, ErrNotFound)
	}
	if err != nil {
		return model.PlayerStats{}, fmt.Errorf("fetching stats for %q: %w", playerID, err)
	}
	return st, nil
}

// withTx runs fn in a transaction, committing only when fn succeeds.
func (s *PostgresStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	return fn(tx)
}

// mapConflict turns a unique violation into kind, which wraps ErrConflict.
func mapConflict(what string, kind, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", what, kind)
	}
	return fmt.Errorf("saving %s: %w", what, err)
}
