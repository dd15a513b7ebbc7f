// Package repository defines the durable rating store interface and errors.
package repository

import (
	"context"

	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/model"
)

// RatedPlayer pairs a player with their current rating record. It is the
// unit the rank engine orders during a recalculation pass.
type RatedPlayer struct {
	Player model.Player
	Rating model.PlayerRating
}

// ApplyFunc computes the post-match state for both players. It runs inside
// the store transaction, after the duplicate check, with both rating rows
// held exclusively.
type ApplyFunc func(a, b model.PlayerRating) (model.PlayerRating, model.PlayerRating, model.MatchResult, error)

// Store provides durable access to players, ratings, match history, and the
// derived leaderboard entry sets.
type Store interface {
	// CreatePlayer registers a player and their initial rating record.
	// Returns ErrPlayerExists when the id is already taken.
	CreatePlayer(ctx context.Context, p model.Player) error

	// GetPlayer returns a player by id, or ErrNotFound.
	GetPlayer(ctx context.Context, playerID string) (model.Player, error)

	// SetActive flips the soft-deactivation flag.
	SetActive(ctx context.Context, playerID string, active bool) error

	// GetRating returns the current rating record, or ErrNotFound.
	GetRating(ctx context.Context, playerID string) (model.PlayerRating, error)

	// ApplyMatch records a match result and both rating updates in a single
	// transaction. The duplicate check on the match id happens inside that
	// transaction; a replayed id fails with ErrDuplicateResult and leaves
	// no partial state. Concurrent matches touching the same player
	// serialize on the rating rows.
	ApplyMatch(ctx context.Context, sub model.MatchSubmission, apply ApplyFunc) (model.MatchResult, error)

	// History returns a player's match results, most-recent-first.
	// limit <= 0 means the full history.
	History(ctx context.Context, playerID string, limit int) ([]model.HistoricalResult, error)

	// ListActive returns the active population for a scope, unordered.
	ListActive(ctx context.Context, scope model.Scope, scopeKey string) ([]RatedPlayer, error)

	// ReplaceEntries atomically swaps a scope's full leaderboard entry set.
	ReplaceEntries(ctx context.Context, scope model.Scope, scopeKey string, entries []model.LeaderboardEntry) error

	// Entries returns one page of a scope's ranked entries ordered by rank,
	// plus the scope's total entry count.
	Entries(ctx context.Context, scope model.Scope, scopeKey string, offset, limit int) ([]model.LeaderboardEntry, int, error)

	// Entry returns a single player's entry for a scope, or ErrNotFound.
	Entry(ctx context.Context, playerID string, scope model.Scope, scopeKey string) (model.LeaderboardEntry, error)

	// EntriesByRankRange returns entries with lo <= rank <= hi, in order.
	EntriesByRankRange(ctx context.Context, scope model.Scope, scopeKey string, lo, hi int) ([]model.LeaderboardEntry, error)

	// CountPlayers returns the number of registered players.
	CountPlayers(ctx context.Context) (int, error)
}
