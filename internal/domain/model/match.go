package model

import (
	"fmt"
	"strings"
	"time"
)

// Outcome is a match result from one player's perspective.
type Outcome string

// Outcomes.
const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
	OutcomeDraw Outcome = "draw"
)

// Opposite returns the outcome from the other player's perspective.
func (o Outcome) Opposite() Outcome {
	switch o {
	case OutcomeWin:
		return OutcomeLoss
	case OutcomeLoss:
		return OutcomeWin
	default:
		return OutcomeDraw
	}
}

// Actual returns the ELO actual score for the outcome: 1 win, 0.5 draw, 0 loss.
func (o Outcome) Actual() float64 {
	switch o {
	case OutcomeWin:
		return 1
	case OutcomeDraw:
		return 0.5
	default:
		return 0
	}
}

// MatchSubmission is a match result as submitted by a caller.
type MatchSubmission struct {
	MatchID string
	PlayerA string
	ScoreA  int
	PlayerB string
	ScoreB  int
}

// Validate checks the submission before any state is touched.
func (s MatchSubmission) Validate() error {
	switch {
	case strings.TrimSpace(s.MatchID) == "":
		return fmt.Errorf("%w: missing match id", ErrInvalidMatch)
	case strings.TrimSpace(s.PlayerA) == "" || strings.TrimSpace(s.PlayerB) == "":
		return fmt.Errorf("%w: missing player id", ErrInvalidMatch)
	case s.PlayerA == s.PlayerB:
		return fmt.Errorf("%w: players must be distinct", ErrInvalidMatch)
	case s.ScoreA < 0 || s.ScoreB < 0:
		return fmt.Errorf("%w: scores must be non-negative", ErrInvalidMatch)
	}
	return nil
}

// OutcomeForA derives player A's outcome from the scores.
func (s MatchSubmission) OutcomeForA() Outcome {
	switch {
	case s.ScoreA > s.ScoreB:
		return OutcomeWin
	case s.ScoreA < s.ScoreB:
		return OutcomeLoss
	default:
		return OutcomeDraw
	}
}

// MatchResult is a recorded, committed match with both players' new ratings.
type MatchResult struct {
	MatchID    string
	PlayerA    string
	ScoreA     int
	NewRatingA int
	PlayerB    string
	ScoreB     int
	NewRatingB int
	OutcomeA   Outcome
	RecordedAt time.Time
}

// HistoricalResult is one row of a player's match history, used by the
// streak calculator. Ordered most-recent-first when listed.
type HistoricalResult struct {
	MatchID    string
	Outcome    Outcome
	RecordedAt time.Time
}
