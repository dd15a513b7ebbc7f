package model

import "time"

// Rating bounds and defaults.
const (
	RatingMin     = 0
	RatingMax     = 3000
	InitialRating = 1200
	KFactor       = 32
)

// Player is the identity record a rating hangs off. Country and session
// membership decide which scoped leaderboards the player appears on.
type Player struct {
	ID        string
	Name      string
	Country   string
	SessionID string
	IsActive  bool
	CreatedAt time.Time
}

// PlayerRating is the durable per-player rating record.
// Invariants: LowestRating <= Rating <= PeakRating after every update, and
// Wins + Losses + Draws == MatchesPlayed.
type PlayerRating struct {
	PlayerID      string
	Rating        int
	PeakRating    int
	LowestRating  int
	MatchesPlayed int
	Wins          int
	Losses        int
	Draws         int
	UpdatedAt     time.Time
}

// NewPlayerRating returns the rating record a player starts with.
func NewPlayerRating(playerID string) PlayerRating {
	return PlayerRating{
		PlayerID:     playerID,
		Rating:       InitialRating,
		PeakRating:   InitialRating,
		LowestRating: InitialRating,
	}
}

// WinRate returns wins / matchesPlayed, 0 when no matches were played.
func (r PlayerRating) WinRate() float64 {
	if r.MatchesPlayed == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.MatchesPlayed)
}

// ApplyOutcome folds a new rating and outcome into the record, keeping the
// counter and peak/lowest invariants.
func (r *PlayerRating) ApplyOutcome(newRating int, outcome Outcome, at time.Time) {
	r.Rating = newRating
	if newRating > r.PeakRating {
		r.PeakRating = newRating
	}
	if newRating < r.LowestRating {
		r.LowestRating = newRating
	}
	r.MatchesPlayed++
	switch outcome {
	case OutcomeWin:
		r.Wins++
	case OutcomeLoss:
		r.Losses++
	case OutcomeDraw:
		r.Draws++
	}
	r.UpdatedAt = at
}
