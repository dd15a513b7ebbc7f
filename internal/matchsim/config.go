package matchsim

import "time"

// Config holds configuration for the match simulation
type Config struct {
	BaseURL    string        // Base URL of the service
	NumPlayers int           // Number of players to register
	NumMatches int           // Number of matches to generate
	TopN       int           // Number of top entries to fetch
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for matches
	LogFile    string        // Log file for simulation output
	Verbose    bool          // Enable verbose logging
}

// Player represents a player to be registered
type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Country   string `json:"country"`
	SessionID string `json:"session_id"`

	skill float64 // hidden skill driving match outcomes, not submitted
}

// Match represents a match result to be submitted
type Match struct {
	MatchID string `json:"match_id"`
	PlayerA string `json:"player_a"`
	ScoreA  int    `json:"score_a"`
	PlayerB string `json:"player_b"`
	ScoreB  int    `json:"score_b"`
}

// RankSummary represents the response from the per-player rank endpoint
type RankSummary struct {
	PlayerID     string  `json:"player_id"`
	Rank         int     `json:"rank"`
	TotalPlayers int     `json:"total_players"`
	Percentile   float64 `json:"percentile"`
}

// Entry represents a single leaderboard entry
type Entry struct {
	PlayerID string `json:"player_id"`
	Rank     int    `json:"rank"`
	Rating   int    `json:"rating"`
}

// Page represents the paginated leaderboard response
type Page struct {
	Entries      []Entry `json:"entries"`
	TotalPlayers int     `json:"total_players"`
}

// Stats holds simulation statistics
type Stats struct {
	PlayersRegistered  int
	MatchesGenerated   int
	MatchesSubmitted   int
	MatchesSuccessful  int
	MatchesDuplicate   int
	MatchesFailed      int
	RanksRetrieved     int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}
