package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wrsmith108/love-rank-pulse-sub001/internal/adapters/cache"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/adapters/events"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/adapters/repository"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/model"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/streak"
	"github.com/wrsmith108/love-rank-pulse-sub001/pkg/logger"
	"github.com/wrsmith108/love-rank-pulse-sub001/pkg/metrics"
)

// Default rank engine configuration constants.
const (
	defaultBurstThreshold = 50
	burstRecalcTimeout    = 30 * time.Second
)

// RankEngine rebuilds a scope's leaderboard entry set from the current
// ratings. Concurrent triggers for the same scope coalesce: whoever holds
// the scope lock does the work, later triggers return immediately.
type RankEngine struct {
	store   repository.Store
	cache   *cache.Leaderboard
	streaks streak.Calculator
	emitter events.Emitter
	logger  logger.Logger

	locks sync.Map // scopeKey string -> *sync.Mutex

	burstThreshold int64
	matchCount     atomic.Int64
}

// EngineOption applies a configuration option to the RankEngine.
type EngineOption func(*RankEngine)

// WithEngineEmitter sets the event emitter for rank changes.
func WithEngineEmitter(e events.Emitter) EngineOption {
	return func(r *RankEngine) {
		if e != nil {
			r.emitter = e
		}
	}
}

// WithBurstThreshold sets how many applied matches trigger an early
// global recalculation.
func WithBurstThreshold(n int) EngineOption {
	return func(r *RankEngine) {
		if n > 0 {
			r.burstThreshold = int64(n)
		}
	}
}

// WithStreakCalculator overrides the streak calculator.
func WithStreakCalculator(c streak.Calculator) EngineOption {
	return func(r *RankEngine) {
		if c != nil {
			r.streaks = c
		}
	}
}

// NewRankEngine creates an engine over the given store and cache.
func NewRankEngine(store repository.Store, lb *cache.Leaderboard, opts ...EngineOption) *RankEngine {
	r := &RankEngine{
		store:          store,
		cache:          lb,
		streaks:        streak.NewHistoryCalculator(store),
		emitter:        events.NopEmitter{},
		logger:         logger.Get().Named("rank-engine"),
		burstThreshold: defaultBurstThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recalculate rebuilds one scope's ranking. When another recalculation of
// the same scope is already running the call coalesces into it and returns
// nil without doing any work. Cancellation before the entry swap leaves
// the previous ranking fully intact.
func (r *RankEngine) Recalculate(ctx context.Context, scope model.Scope, scopeKey string) error {
	if !scope.Valid() || (scope.NeedsKey() && scopeKey == "") || (!scope.NeedsKey() && scopeKey != "") {
		return fmt.Errorf("%w: %s/%s", ErrInvalidScope, scope, scopeKey)
	}

	mu := r.lockFor(scope, scopeKey)
	if !mu.TryLock() {
		metrics.RecordRecalculationCoalesced(scope.String())
		r.logger.Debug(ctx, "recalculation already running, coalescing",
			logger.String("scope", scope.String()),
			logger.String("scopeKey", scopeKey),
		)
		return nil
	}
	defer mu.Unlock()

	passID := uuid.NewString()
	start := time.Now()

	population, err := r.store.ListActive(ctx, scope, scopeKey)
	if err != nil {
		return fmt.Errorf("listing active players: %w", err)
	}

	prior, err := r.priorRanks(ctx, scope, scopeKey)
	if err != nil {
		return fmt.Errorf("loading prior ranking: %w", err)
	}

	entries, err := r.buildEntries(ctx, scope, scopeKey, population, prior)
	if err != nil {
		return err
	}

	// The swap is the commit point; a cancelled pass must not get here.
	if err := ctx.Err(); err != nil {
		metrics.RecordRecalculationAborted(scope.String())
		r.logger.Warn(ctx, "recalculation aborted before swap",
			logger.String("passID", passID),
			logger.String("scope", scope.String()),
		)
		return fmt.Errorf("recalculation aborted: %w", err)
	}

	if err := r.store.ReplaceEntries(ctx, scope, scopeKey, entries); err != nil {
		return fmt.Errorf("replacing entries: %w", err)
	}

	r.cache.InvalidateScope(ctx, scope, scopeKey, "recalculation")
	r.emitMovers(ctx, scope, scopeKey, entries)

	metrics.RecordRecalculation(scope.String(), float64(time.Since(start).Milliseconds()))
	metrics.UpdateRankedPlayers(scope.String(), len(entries))
	r.logger.Info(ctx, "recalculated ranking",
		logger.String("passID", passID),
		logger.String("scope", scope.String()),
		logger.String("scopeKey", scopeKey),
		logger.Int("players", len(entries)),
		logger.Int64("durationMs", time.Since(start).Milliseconds()),
	)
	return nil
}

// NoteMatch counts one applied match toward the burst trigger. Crossing
// the threshold schedules a global recalculation and resets the counter.
func (r *RankEngine) NoteMatch() {
	if r.matchCount.Add(1) < r.burstThreshold {
		return
	}
	r.matchCount.Store(0)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), burstRecalcTimeout)
		defer cancel()
		if err := r.Recalculate(ctx, model.ScopeGlobal, ""); err != nil {
			r.logger.Warn(ctx, "burst recalculation failed", logger.Error(err))
		}
	}()
}

// RunInterval recalculates the global ranking on a fixed cadence until
// ctx is cancelled.
func (r *RankEngine) RunInterval(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Recalculate(ctx, model.ScopeGlobal, ""); err != nil {
				r.logger.Warn(ctx, "scheduled recalculation failed", logger.Error(err))
			}
		}
	}
}

func (r *RankEngine) lockFor(scope model.Scope, scopeKey string) *sync.Mutex {
	key := scope.String() + "\x00" + scopeKey
	v, _ := r.locks.LoadOrStore(key, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// priorRanks maps player id to the rank held before this pass.
func (r *RankEngine) priorRanks(ctx context.Context, scope model.Scope, scopeKey string) (map[string]int, error) {
	_, total, err := r.store.Entries(ctx, scope, scopeKey, 0, 1)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return map[string]int{}, nil
	}
	entries, _, err := r.store.Entries(ctx, scope, scopeKey, 0, total)
	if err != nil {
		return nil, err
	}
	prior := make(map[string]int, len(entries))
	for _, e := range entries {
		prior[e.PlayerID] = e.Rank
	}
	return prior, nil
}

func (r *RankEngine) buildEntries(ctx context.Context, scope model.Scope, scopeKey string, population []repository.RatedPlayer, prior map[string]int) ([]model.LeaderboardEntry, error) {
	now := time.Now()
	entries := make([]model.LeaderboardEntry, 0, len(population))
	played := make(map[string]int, len(population))
	for _, rp := range population {
		played[rp.Player.ID] = rp.Rating.MatchesPlayed
		current, err := r.streaks.Current(ctx, rp.Player.ID)
		if err != nil {
			return nil, fmt.Errorf("current streak for %s: %w", rp.Player.ID, err)
		}
		best, err := r.streaks.Best(ctx, rp.Player.ID)
		if err != nil {
			return nil, fmt.Errorf("best streak for %s: %w", rp.Player.ID, err)
		}
		entries = append(entries, model.LeaderboardEntry{
			PlayerID:      rp.Player.ID,
			Rating:        rp.Rating.Rating,
			WinRate:       rp.Rating.WinRate(),
			CurrentStreak: current,
			BestStreak:    best,
			Scope:         scope,
			ScopeKey:      scopeKey,
			ComputedAt:    now,
		})
	}

	// Deterministic total order: rating, then experience, then id.
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		if played[a.PlayerID] != played[b.PlayerID] {
			return played[a.PlayerID] > played[b.PlayerID]
		}
		return a.PlayerID < b.PlayerID
	})

	for i := range entries {
		entries[i].Rank = i + 1
		if prev, ok := prior[entries[i].PlayerID]; ok {
			entries[i].PreviousRank = prev
			entries[i].RankChange = prev - entries[i].Rank
		}
	}
	return entries, nil
}

func (r *RankEngine) emitMovers(ctx context.Context, scope model.Scope, scopeKey string, entries []model.LeaderboardEntry) {
	for _, e := range entries {
		if e.RankChange == 0 {
			continue
		}
		r.emitter.EmitRankChange(ctx, events.RankChange{
			PlayerID:   e.PlayerID,
			Scope:      scope.String(),
			ScopeKey:   scopeKey,
			OldRank:    e.PreviousRank,
			NewRank:    e.Rank,
			RankChange: e.RankChange,
		})
	}
}
