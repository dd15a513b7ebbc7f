// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/model"
)

// Default pagination used when the query omits page or limit.
const (
	defaultPage  = 1
	defaultLimit = 20
)

// LeaderboardDependencies defines the interface for leaderboard reads.
type LeaderboardDependencies interface {
	GetLeaderboard(ctx context.Context, scope model.Scope, scopeKey string, page, limit int) (model.Page, error)
	GetTopPlayers(ctx context.Context, scope model.Scope, scopeKey string, n int) ([]model.LeaderboardEntry, error)
	GetByRankRange(ctx context.Context, scope model.Scope, scopeKey string, lo, hi int) ([]model.LeaderboardEntry, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetLeaderboard handles GET /leaderboard requests with scope,
// scope_key, page, and limit query parameters.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	scope, scopeKey, err := scopeParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	page, err := intParam(r, "page", defaultPage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	limit, err := intParam(r, "limit", defaultLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	result, err := h.deps.GetLeaderboard(r.Context(), scope, scopeKey, page, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleGetTop handles GET /leaderboard/top?count=N requests.
func (h *LeaderboardHandler) HandleGetTop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	scope, scopeKey, err := scopeParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	count, err := intParam(r, "count", 10)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	entries, err := h.deps.GetTopPlayers(r.Context(), scope, scopeKey, count)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleGetRange handles GET /leaderboard/range?from=N&to=M requests.
func (h *LeaderboardHandler) HandleGetRange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	scope, scopeKey, err := scopeParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	from, err := requiredIntParam(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	to, err := requiredIntParam(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	entries, err := h.deps.GetByRankRange(r.Context(), scope, scopeKey, from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrBadRequest, name)
	}
	return n, nil
}

func requiredIntParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("%w: missing %s", ErrBadRequest, name)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrBadRequest, name)
	}
	return n, nil
}
