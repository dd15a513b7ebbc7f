// Package streak derives win/loss streaks from match-result history.
package streak

import (
	"context"
	"fmt"

	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/model"
)

// Default streak configuration constants.
const (
	defaultCurrentWindow = 100
	fullHistory          = 0
)

// HistorySource provides a player's match results ordered most-recent-first.
// limit <= 0 means the full history.
type HistorySource interface {
	History(ctx context.Context, playerID string, limit int) ([]model.HistoricalResult, error)
}

// Calculator computes streaks for a player.
type Calculator interface {
	// Current returns the signed current streak: positive for consecutive
	// wins, negative for consecutive losses, 0 when the most recent result
	// is a draw or history is empty.
	Current(ctx context.Context, playerID string) (int, error)

	// Best returns the longest historical run of consecutive wins. Draws
	// do not break a win run; losses do.
	Best(ctx context.Context, playerID string) (int, error)
}

// Option applies a configuration option to the HistoryCalculator.
type Option func(*HistoryCalculator)

// WithCurrentWindow bounds how far back the current-streak walk looks.
func WithCurrentWindow(window int) Option {
	return func(c *HistoryCalculator) {
		if window > 0 {
			c.currentWindow = window
		}
	}
}

// HistoryCalculator implements Calculator over a HistorySource.
type HistoryCalculator struct {
	source        HistorySource
	currentWindow int
}

// NewHistoryCalculator creates a calculator reading from source.
func NewHistoryCalculator(source HistorySource, opts ...Option) *HistoryCalculator {
	c := &HistoryCalculator{
		source:        source,
		currentWindow: defaultCurrentWindow,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current walks from the most recent result, accumulating +1 per consecutive
// win or -1 per consecutive loss. Any change of result type ends the walk;
// a leading draw yields 0. Deliberately asymmetric with Best: here a draw
// terminates the run instead of being transparent.
func (c *HistoryCalculator) Current(ctx context.Context, playerID string) (int, error) {
	history, err := c.source.History(ctx, playerID, c.currentWindow)
	if err != nil {
		return 0, fmt.Errorf("loading history for %s: %w", playerID, err)
	}
	if len(history) == 0 {
		return 0, nil
	}

	first := history[0].Outcome
	if first == model.OutcomeDraw {
		return 0, nil
	}

	n := 0
	for _, r := range history {
		if r.Outcome != first {
			break
		}
		n++
	}
	if first == model.OutcomeLoss {
		return -n, nil
	}
	return n, nil
}

// Best walks the full history chronologically, tracking the longest win run.
func (c *HistoryCalculator) Best(ctx context.Context, playerID string) (int, error) {
	history, err := c.source.History(ctx, playerID, fullHistory)
	if err != nil {
		return 0, fmt.Errorf("loading history for %s: %w", playerID, err)
	}

	best, run := 0, 0
	// History arrives most-recent-first; walk backwards for chronology.
	for i := len(history) - 1; i >= 0; i-- {
		switch history[i].Outcome {
		case model.OutcomeWin:
			run++
			if run > best {
				best = run
			}
		case model.OutcomeLoss:
			run = 0
		case model.OutcomeDraw:
			// transparent to the win run
		}
	}
	return best, nil
}
