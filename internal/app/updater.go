package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wrsmith108/love-rank-pulse-sub001/internal/adapters/cache"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/adapters/events"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/adapters/repository"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/elo"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/model"
	"github.com/wrsmith108/love-rank-pulse-sub001/pkg/logger"
	"github.com/wrsmith108/love-rank-pulse-sub001/pkg/metrics"
)

// RatingUpdater applies match results: it computes both players' new
// ratings, commits them with the match row in one store transaction, and
// then invalidates every cached leaderboard view the result can have
// changed.
type RatingUpdater struct {
	store   repository.Store
	cache   *cache.Leaderboard
	calc    elo.Calculator
	emitter events.Emitter
	logger  logger.Logger

	// onApplied is called after each committed result; the rank engine
	// uses it to count matches toward its burst trigger.
	onApplied func()
}

// UpdaterOption applies a configuration option to the RatingUpdater.
type UpdaterOption func(*RatingUpdater)

// WithUpdaterEmitter sets the event emitter for player updates.
func WithUpdaterEmitter(e events.Emitter) UpdaterOption {
	return func(u *RatingUpdater) {
		if e != nil {
			u.emitter = e
		}
	}
}

// WithUpdaterCalculator overrides the rating calculator.
func WithUpdaterCalculator(c elo.Calculator) UpdaterOption {
	return func(u *RatingUpdater) {
		if c != nil {
			u.calc = c
		}
	}
}

// WithOnApplied registers a callback invoked after each committed result.
func WithOnApplied(fn func()) UpdaterOption {
	return func(u *RatingUpdater) {
		u.onApplied = fn
	}
}

// NewRatingUpdater creates an updater over the given store and cache.
func NewRatingUpdater(store repository.Store, lb *cache.Leaderboard, opts ...UpdaterOption) *RatingUpdater {
	u := &RatingUpdater{
		store:   store,
		cache:   lb,
		calc:    elo.NewStandardCalculator(),
		emitter: events.NopEmitter{},
		logger:  logger.Get().Named("rating-updater"),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Apply validates and applies one match result. The store transaction is
// all-or-nothing: a duplicate match id fails with ErrDuplicateResult and
// changes nothing. Cache invalidation and event emission happen only after
// the commit.
func (u *RatingUpdater) Apply(ctx context.Context, sub model.MatchSubmission) (model.MatchResult, error) {
	if err := sub.Validate(); err != nil {
		metrics.RecordMatchRejected()
		return model.MatchResult{}, err
	}

	outcomeA := sub.OutcomeForA()
	start := time.Now()

	result, err := u.store.ApplyMatch(ctx, sub, func(a, b model.PlayerRating) (model.PlayerRating, model.PlayerRating, model.MatchResult, error) {
		update := u.calc.Apply(a.Rating, b.Rating, outcomeA.Actual())
		now := time.Now()
		a.ApplyOutcome(update.NewRatingA, outcomeA, now)
		b.ApplyOutcome(update.NewRatingB, outcomeA.Opposite(), now)
		return a, b, model.MatchResult{
			MatchID:    sub.MatchID,
			PlayerA:    sub.PlayerA,
			ScoreA:     sub.ScoreA,
			NewRatingA: update.NewRatingA,
			PlayerB:    sub.PlayerB,
			ScoreB:     sub.ScoreB,
			NewRatingB: update.NewRatingB,
			OutcomeA:   outcomeA,
			RecordedAt: now,
		}, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateResult) {
			metrics.RecordMatchDuplicate()
		}
		return model.MatchResult{}, fmt.Errorf("applying match %s: %w", sub.MatchID, err)
	}

	metrics.RecordMatchApplied()
	metrics.RecordRatingUpdateLatency(float64(time.Since(start).Milliseconds()))

	u.invalidateFor(ctx, result)
	u.emit(ctx, result)
	if u.onApplied != nil {
		u.onApplied()
	}
	return result, nil
}

// ApplyResult is the error-only form used by queue workers.
func (u *RatingUpdater) ApplyResult(ctx context.Context, sub model.MatchSubmission) error {
	_, err := u.Apply(ctx, sub)
	return err
}

// invalidateFor drops every cached view the committed result can have
// changed: the global scope plus both players' country and session scopes,
// each covering pages and rank summaries alike.
func (u *RatingUpdater) invalidateFor(ctx context.Context, result model.MatchResult) {
	const reason = "match_applied"

	u.cache.InvalidateScope(ctx, model.ScopeGlobal, "", reason)

	countries := make(map[string]struct{}, 2)
	sessions := make(map[string]struct{}, 2)
	for _, id := range []string{result.PlayerA, result.PlayerB} {
		p, err := u.store.GetPlayer(ctx, id)
		if err != nil {
			u.logger.Warn(ctx, "loading player for cache invalidation",
				logger.String("playerID", id),
				logger.Error(err),
			)
			continue
		}
		if p.Country != "" {
			countries[p.Country] = struct{}{}
		}
		if p.SessionID != "" {
			sessions[p.SessionID] = struct{}{}
		}
	}
	for c := range countries {
		u.cache.InvalidateScope(ctx, model.ScopeCountry, c, reason)
	}
	for s := range sessions {
		u.cache.InvalidateScope(ctx, model.ScopeSession, s, reason)
	}
}

func (u *RatingUpdater) emit(ctx context.Context, result model.MatchResult) {
	u.emitter.EmitPlayerUpdate(ctx, events.PlayerUpdate{
		PlayerID: result.PlayerA,
		Updates: map[string]any{
			"rating":  result.NewRatingA,
			"outcome": result.OutcomeA,
			"matchId": result.MatchID,
		},
	})
	u.emitter.EmitPlayerUpdate(ctx, events.PlayerUpdate{
		PlayerID: result.PlayerB,
		Updates: map[string]any{
			"rating":  result.NewRatingB,
			"outcome": result.OutcomeA.Opposite(),
			"matchId": result.MatchID,
		},
	})
}
