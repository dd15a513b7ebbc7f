// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wrsmith108/love-rank-pulse-sub001/internal/adapters/repository"
	service "github.com/wrsmith108/love-rank-pulse-sub001/internal/app"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Read operations expose leaderboard data.
	GetLeaderboard(ctx context.Context, scope model.Scope, scopeKey string, page, limit int) (model.Page, error)
	GetPlayerRank(ctx context.Context, playerID string, scope model.Scope, scopeKey string) (*model.PlayerRankSummary, error)
	GetTopPlayers(ctx context.Context, scope model.Scope, scopeKey string, n int) ([]model.LeaderboardEntry, error)
	GetByRankRange(ctx context.Context, scope model.Scope, scopeKey string, lo, hi int) ([]model.LeaderboardEntry, error)

	// Write operations mutate ratings and rankings.
	SubmitMatch(ctx context.Context, sub model.MatchSubmission) (model.MatchResult, error)
	EnqueueMatch(ctx context.Context, sub model.MatchSubmission) error
	RecalculateRanks(ctx context.Context, scope model.Scope, scopeKey string) error
	RegisterPlayer(ctx context.Context, p model.Player) error
	DeactivatePlayer(ctx context.Context, playerID string) error

	// Monitoring.
	CacheHealthy(ctx context.Context) bool
	GetStats() map[string]interface{}
}

// Server wires HTTP routes for the ranking API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	matchesHandler     *MatchesHandler
	playersHandler     *PlayersHandler
	adminHandler       *AdminHandler

	wsHandler http.HandlerFunc
	identity  *IdentityMiddleware
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*Server)

// WithWebsocketHandler mounts a realtime event endpoint at /ws.
func WithWebsocketHandler(h http.HandlerFunc) ServerOption {
	return func(s *Server) {
		s.wsHandler = h
	}
}

// WithIdentitySecret enables the bearer-token identity route /me/rank.
func WithIdentitySecret(secret []byte) ServerOption {
	return func(s *Server) {
		if len(secret) > 0 {
			s.identity = NewIdentityMiddleware(secret)
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:      NewHealthHandler(deps),
		statsHandler:       NewStatsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		rankHandler:        NewRankHandler(deps),
		matchesHandler:     NewMatchesHandler(deps),
		playersHandler:     NewPlayersHandler(deps),
		adminHandler:       NewAdminHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/leaderboard/top", MetricsMiddleware(s.leaderboardHandler.HandleGetTop, "leaderboard_top"))
	mux.HandleFunc("/leaderboard/range", MetricsMiddleware(s.leaderboardHandler.HandleGetRange, "leaderboard_range"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("/matches/bulk", MetricsMiddleware(s.matchesHandler.HandlePostBulk, "matches_bulk"))
	mux.HandleFunc("/matches", MetricsMiddleware(s.matchesHandler.HandlePostMatch, "matches"))
	mux.HandleFunc("/players/", MetricsMiddleware(s.playersHandler.HandlePlayerByID, "player"))
	mux.HandleFunc("/players", MetricsMiddleware(s.playersHandler.HandlePostPlayer, "players"))
	mux.HandleFunc("/admin/recalculate", MetricsMiddleware(s.adminHandler.HandleRecalculate, "admin_recalculate"))

	if s.identity != nil {
		mux.HandleFunc("/me/rank", MetricsMiddleware(s.identity.Wrap(s.rankHandler.HandleGetOwnRank), "me_rank"))
	}
	if s.wsHandler != nil {
		mux.HandleFunc("/ws", s.wsHandler)
	}
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

// writeServiceError translates service and repository sentinels into HTTP
// status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidMatch),
		errors.Is(err, model.ErrInvalidPlayer),
		errors.Is(err, service.ErrInvalidScope),
		errors.Is(err, service.ErrInvalidPagination),
		errors.Is(err, service.ErrInvalidLimit),
		errors.Is(err, service.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, repository.ErrDuplicateResult):
		writeError(w, http.StatusConflict, "duplicate", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, repository.ErrPlayerExists):
		writeError(w, http.StatusConflict, "player_exists", err)
	case errors.Is(err, service.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, repository.ErrPersistence),
		errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// scopeParams reads the scope and scope_key query parameters. An absent
// scope defaults to global.
func scopeParams(r *http.Request) (model.Scope, string, error) {
	scope, err := model.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		return "", "", err
	}
	return scope, r.URL.Query().Get("scope_key"), nil
}
