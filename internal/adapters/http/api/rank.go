// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/model"
)

// RankDependencies defines the interface for rank lookups.
type RankDependencies interface {
	GetPlayerRank(ctx context.Context, playerID string, scope model.Scope, scopeKey string) (*model.PlayerRankSummary, error)
}

// RankHandler handles rank requests.
type RankHandler struct {
	deps RankDependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank handles GET /rank/{player_id} requests.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	playerID := strings.TrimPrefix(r.URL.Path, "/rank/")
	if playerID == "" || strings.Contains(playerID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing player id", ErrBadRequest))
		return
	}
	h.respondWithRank(w, r, playerID)
}

// HandleGetOwnRank handles GET /me/rank requests; the player id comes from
// the verified bearer token.
func (h *RankHandler) HandleGetOwnRank(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	playerID, ok := PlayerIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
		return
	}
	h.respondWithRank(w, r, playerID)
}

func (h *RankHandler) respondWithRank(w http.ResponseWriter, r *http.Request, playerID string) {
	scope, scopeKey, err := scopeParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	summary, err := h.deps.GetPlayerRank(r.Context(), playerID, scope, scopeKey)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if summary == nil {
		writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("player %s is not ranked", playerID))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
