// Package elo computes rating updates from match outcomes.
package elo

import (
	"math"

	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/model"
)

// Update is the result of applying one match outcome to a pair of ratings.
type Update struct {
	NewRatingA int
	NewRatingB int
	DeltaA     int
	DeltaB     int
}

// Calculator computes new ratings for the two sides of a match.
type Calculator interface {
	// Apply returns the post-match ratings given player A's actual score
	// (1 win, 0.5 draw, 0 loss). Results are rounded to the nearest
	// integer and clamped to the configured bounds.
	Apply(ratingA, ratingB int, actualA float64) Update
}

// Option applies a configuration option to the StandardCalculator.
type Option func(*StandardCalculator)

// WithKFactor sets the rating sensitivity constant.
func WithKFactor(k float64) Option {
	return func(c *StandardCalculator) {
		if k > 0 {
			c.kFactor = k
		}
	}
}

// WithBounds sets the clamp range for computed ratings.
func WithBounds(minRating, maxRating int) Option {
	return func(c *StandardCalculator) {
		if minRating < maxRating {
			c.minRating = minRating
			c.maxRating = maxRating
		}
	}
}

// StandardCalculator implements Calculator with the classic ELO formula.
type StandardCalculator struct {
	kFactor   float64
	minRating int
	maxRating int
}

// NewStandardCalculator creates a calculator with K=32 and bounds [0, 3000].
func NewStandardCalculator(opts ...Option) *StandardCalculator {
	c := &StandardCalculator{
		kFactor:   model.KFactor,
		minRating: model.RatingMin,
		maxRating: model.RatingMax,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Apply computes both players' new ratings for one match.
func (c *StandardCalculator) Apply(ratingA, ratingB int, actualA float64) Update {
	expectedA := expectedScore(float64(ratingA), float64(ratingB))
	expectedB := 1 - expectedA
	actualB := 1 - actualA

	newA := c.clamp(int(math.Round(float64(ratingA) + c.kFactor*(actualA-expectedA))))
	newB := c.clamp(int(math.Round(float64(ratingB) + c.kFactor*(actualB-expectedB))))

	return Update{
		NewRatingA: newA,
		NewRatingB: newB,
		DeltaA:     newA - ratingA,
		DeltaB:     newB - ratingB,
	}
}

func (c *StandardCalculator) clamp(rating int) int {
	if rating < c.minRating {
		return c.minRating
	}
	if rating > c.maxRating {
		return c.maxRating
	}
	return rating
}

// expectedScore returns A's expected score against B.
func expectedScore(ratingA, ratingB float64) float64 {
	return 1 / (1 + math.Pow(10, (ratingB-ratingA)/400))
}
