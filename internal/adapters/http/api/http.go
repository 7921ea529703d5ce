// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/okian/trio/internal/adapters/http/swagger"
	"github.com/okian/trio/internal/domain/types"
	"github.com/okian/trio/pkg/logger"
)

const (
	defaultMaxLimit = 100
	defaultLimit    = 10
	maxBodyBytes    = 1 << 20
	corsMaxAge      = 300
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	TriangularDependencies
	PlayerDependencies
	SeasonDependencies
	TeamDependencies
	AdminDependencies
	LeaderboardDependencies
	RankDependencies
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	triangularHandler  *TriangularHandler
	playerHandler      *PlayerHandler
	seasonHandler      *SeasonHandler
	teamHandler        *TeamHandler
	adminHandler       *AdminHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler

	corsOrigins    []string
	requestTimeout time.Duration
	logger         logger.Logger
}

// Option configures a Server.
type Option func(*serverConfig)

type serverConfig struct {
	maxLimit       int
	corsOrigins    []string
	requestTimeout time.Duration
	logger         logger.Logger
}

// WithMaxLimit caps the limit accepted by GET /leaderboard.
func WithMaxLimit(n int) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxLimit = n
		}
	}
}

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins []string) Option {
	return func(c *serverConfig) {
		if len(origins) > 0 {
			c.corsOrigins = origins
		}
	}
}

// WithRequestTimeout bounds the context of every request.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *serverConfig) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := serverConfig{
		maxLimit:       defaultMaxLimit,
		corsOrigins:    []string{"*"},
		requestTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("http")
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		triangularHandler:  NewTriangularHandler(deps),
		playerHandler:      NewPlayerHandler(deps),
		seasonHandler:      NewSeasonHandler(deps),
		teamHandler:        NewTeamHandler(deps),
		adminHandler:       NewAdminHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, cfg.maxLimit),
		rankHandler:        NewRankHandler(deps),
		corsOrigins:        cfg.corsOrigins,
		requestTimeout:     cfg.requestTimeout,
		logger:             cfg.logger,
	}
}

// Handler builds the router with all middleware and routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(RequestLogging(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(s.requestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         corsMaxAge,
	}))
	s.Register(r)
	swagger.Register(r)
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Post("/score", MetricsMiddleware(s.triangularHandler.HandleScore, "score"))
	r.Route("/triangulars", func(r chi.Router) {
		r.Post("/", MetricsMiddleware(s.triangularHandler.HandleCreate, "triangulars"))
		r.Get("/{id}", MetricsMiddleware(s.triangularHandler.HandleGet, "triangular"))
		r.Get("/{id}/result", MetricsMiddleware(s.triangularHandler.HandleResult, "triangular_result"))
		r.Post("/{id}/matches", MetricsMiddleware(s.triangularHandler.HandleRecordMatch, "triangular_matches"))
	})

	r.Route("/players", func(r chi.Router) {
		r.Get("/", MetricsMiddleware(s.playerHandler.HandleList, "players"))
		r.Post("/", MetricsMiddleware(s.playerHandler.HandleRegister, "players_register"))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", MetricsMiddleware(s.playerHandler.HandleGet, "player"))
			r.Get("/stats", MetricsMiddleware(s.playerHandler.HandleStats, "player_stats"))
			r.Get("/rating", MetricsMiddleware(s.playerHandler.HandleRating, "player_rating"))
			r.Get("/matches", MetricsMiddleware(s.playerHandler.HandleMatches, "player_matches"))
		})
	})
	r.Route("/seasons", func(r chi.Router) {
		r.Get("/", MetricsMiddleware(s.seasonHandler.HandleList, "seasons"))
		r.Post("/", MetricsMiddleware(s.seasonHandler.HandleCreate, "seasons_create"))
		r.Post("/{id}/close", MetricsMiddleware(s.seasonHandler.HandleClose, "season_close"))
	})
	r.Get("/rating", MetricsMiddleware(s.playerHandler.HandleCalculate, "rating"))

	r.Post("/teams/balance", MetricsMiddleware(s.teamHandler.HandleBalance, "teams_balance"))
	r.Post("/admin/recalculate", MetricsMiddleware(s.adminHandler.HandleRecalculate, "admin_recalculate"))

	r.Get("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	r.Get("/rank/{id}", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail writes err with the status its kind maps to.
func fail(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

// decode reads a JSON body into v. Bodies over maxBodyBytes, unknown fields
// and trailing data are rejected.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after JSON body")
	}
	return nil
}

func pathID(op string, r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if id == "" {
		return "", WrapKind(op, ErrBadRequest, errors.New("missing id"))
	}
	return id, nil
}
