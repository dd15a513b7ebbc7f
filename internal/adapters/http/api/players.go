// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/model"
)

// PlayerDependencies defines the interface for player management.
type PlayerDependencies interface {
	RegisterPlayer(ctx context.Context, p model.Player) error
	DeactivatePlayer(ctx context.Context, playerID string) error
}

// PlayersHandler handles player management requests.
type PlayersHandler struct {
	deps PlayerDependencies
}

// NewPlayersHandler creates a new players handler.
func NewPlayersHandler(deps PlayerDependencies) *PlayersHandler {
	return &PlayersHandler{deps: deps}
}

type playerRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Country   string `json:"country"`
	SessionID string `json:"session_id"`
}

// HandlePostPlayer handles POST /players requests.
func (h *PlayersHandler) HandlePostPlayer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req playerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	err := h.deps.RegisterPlayer(r.Context(), model.Player{
		ID:        req.ID,
		Name:      req.Name,
		Country:   req.Country,
		SessionID: req.SessionID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID, "status": "created"})
}

// HandlePlayerByID handles DELETE /players/{id} requests, which soft-remove
// the player from future recalculations.
func (h *PlayersHandler) HandlePlayerByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.NotFound(w, r)
		return
	}
	playerID := strings.TrimPrefix(r.URL.Path, "/players/")
	if playerID == "" || strings.Contains(playerID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing player id", ErrBadRequest))
		return
	}

	if err := h.deps.DeactivatePlayer(r.Context(), playerID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": playerID, "status": "deactivated"})
}
