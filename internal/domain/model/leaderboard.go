package model

import "time"

// LeaderboardEntry is the derived ranking projection for one player in one
// scope. A recalculation pass replaces a scope's full entry set atomically.
type LeaderboardEntry struct {
	PlayerID      string    `json:"player_id"`
	Rank          int       `json:"rank"`
	PreviousRank  int       `json:"previous_rank"`
	RankChange    int       `json:"rank_change"`
	Rating        int       `json:"rating"`
	WinRate       float64   `json:"win_rate"`
	CurrentStreak int       `json:"current_streak"`
	BestStreak    int       `json:"best_streak"`
	Scope         Scope     `json:"scope"`
	ScopeKey      string    `json:"scope_key,omitempty"`
	ComputedAt    time.Time `json:"computed_at"`
}

// Page is the paginated read envelope for leaderboard queries.
type Page struct {
	Entries      []LeaderboardEntry `json:"entries"`
	TotalPlayers int                `json:"total_players"`
	Page         int                `json:"page"`
	Limit        int                `json:"limit"`
	HasMore      bool               `json:"has_more"`
}

// PlayerRankSummary answers "what is player P's rank" for a scope.
type PlayerRankSummary struct {
	PlayerID     string  `json:"player_id"`
	Rank         int     `json:"rank"`
	TotalPlayers int     `json:"total_players"`
	Percentile   float64 `json:"percentile"`
}

// Percentile computes the percentile for a rank within a population:
// (total - rank + 1) / total * 100.
func Percentile(rank, totalPlayers int) float64 {
	if totalPlayers <= 0 || rank <= 0 {
		return 0
	}
	return float64(totalPlayers-rank+1) / float64(totalPlayers) * 100
}
