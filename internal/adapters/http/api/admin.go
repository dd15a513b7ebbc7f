// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/model"
)

// AdminDependencies defines the interface for administrative operations.
type AdminDependencies interface {
	RecalculateRanks(ctx context.Context, scope model.Scope, scopeKey string) error
}

// AdminHandler handles administrative requests.
type AdminHandler struct {
	deps AdminDependencies
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps AdminDependencies) *AdminHandler {
	return &AdminHandler{deps: deps}
}

type recalculateRequest struct {
	Scope    string `json:"scope"`
	ScopeKey string `json:"scope_key"`
}

// HandleRecalculate handles POST /admin/recalculate requests. The rebuild
// runs before the response; a concurrent rebuild of the same scope
// coalesces into the running one.
func (h *AdminHandler) HandleRecalculate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req recalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	scope, err := model.ParseScope(req.Scope)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	if err := h.deps.RecalculateRanks(r.Context(), scope, req.ScopeKey); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"scope":  scope.String(),
		"status": "recalculated",
	})
}
