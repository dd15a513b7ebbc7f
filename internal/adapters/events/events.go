// Package events publishes leaderboard change notifications to
// subscribed clients.
package events

import "context"

// Event type names carried on the wire.
const (
	TypeRankChange   = "rank_change"
	TypePlayerUpdate = "player_update"
)

// RankChange reports a player's rank moving after a recalculation.
type RankChange struct {
	Type       string `json:"type"`
	PlayerID   string `json:"playerId"`
	Scope      string `json:"scope"`
	ScopeKey   string `json:"scopeKey,omitempty"`
	OldRank    int    `json:"oldRank"`
	NewRank    int    `json:"newRank"`
	RankChange int    `json:"rankChange"`
}

// PlayerUpdate reports rating fields changing after a match is applied.
type PlayerUpdate struct {
	Type     string         `json:"type"`
	PlayerID string         `json:"playerId"`
	Updates  map[string]any `json:"updates"`
}

// Emitter delivers events to whoever is listening. Implementations
// must not block the caller.
type Emitter interface {
	EmitRankChange(ctx context.Context, ev RankChange)
	EmitPlayerUpdate(ctx context.Context, ev PlayerUpdate)
}

// NopEmitter discards every event.
type NopEmitter struct{}

func (NopEmitter) EmitRankChange(context.Context, RankChange)     {}
func (NopEmitter) EmitPlayerUpdate(context.Context, PlayerUpdate) {}
