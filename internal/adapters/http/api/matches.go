// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	service "github.com/wrsmith108/love-rank-pulse-sub001/internal/app"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/model"
)

// MatchDependencies defines the interface for match submission.
type MatchDependencies interface {
	SubmitMatch(ctx context.Context, sub model.MatchSubmission) (model.MatchResult, error)
	EnqueueMatch(ctx context.Context, sub model.MatchSubmission) error
}

// MatchesHandler handles match submission requests.
type MatchesHandler struct {
	deps MatchDependencies
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps MatchDependencies) *MatchesHandler {
	return &MatchesHandler{deps: deps}
}

// matchRequest mirrors the submission schema shared by both endpoints.
type matchRequest struct {
	MatchID string `json:"match_id"`
	PlayerA string `json:"player_a"`
	ScoreA  int    `json:"score_a"`
	PlayerB string `json:"player_b"`
	ScoreB  int    `json:"score_b"`
}

func (m matchRequest) submission() model.MatchSubmission {
	return model.MatchSubmission{
		MatchID: m.MatchID,
		PlayerA: m.PlayerA,
		ScoreA:  m.ScoreA,
		PlayerB: m.PlayerB,
		ScoreB:  m.ScoreB,
	}
}

// matchResponse is the committed result returned by the synchronous path.
type matchResponse struct {
	MatchID    string `json:"match_id"`
	PlayerA    string `json:"player_a"`
	NewRatingA int    `json:"new_rating_a"`
	PlayerB    string `json:"player_b"`
	NewRatingB int    `json:"new_rating_b"`
	OutcomeA   string `json:"outcome_a"`
}

type bulkResponse struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// HandlePostMatch handles POST /matches requests. The result is applied
// before the response is written; a replayed match id gets 409.
func (h *MatchesHandler) HandlePostMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	result, err := h.deps.SubmitMatch(r.Context(), req.submission())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matchResponse{
		MatchID:    result.MatchID,
		PlayerA:    result.PlayerA,
		NewRatingA: result.NewRatingA,
		PlayerB:    result.PlayerB,
		NewRatingB: result.NewRatingB,
		OutcomeA:   string(result.OutcomeA),
	})
}

// HandlePostBulk handles POST /matches/bulk requests: a JSON array of
// submissions queued for asynchronous processing. Accepted entries get a
// 202; a full queue stops the batch with 429.
func (h *MatchesHandler) HandlePostBulk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var reqs []matchRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	if len(reqs) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: empty batch", ErrBadRequest))
		return
	}

	resp := bulkResponse{}
	for _, req := range reqs {
		err := h.deps.EnqueueMatch(r.Context(), req.submission())
		switch {
		case err == nil:
			resp.Accepted++
		case errors.Is(err, service.ErrQueueFull):
			// Anything not yet queued will not make it this round.
			writeError(w, http.StatusTooManyRequests, "backpressure", err)
			return
		default:
			resp.Rejected++
		}
	}
	writeJSON(w, http.StatusAccepted, resp)
}
