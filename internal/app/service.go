// Package service wires the ranking engine, rating updater, cache, and
// submission pipeline into the operations the HTTP API exposes.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wrsmith108/love-rank-pulse-sub001/internal/adapters/cache"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/adapters/events"
	eventqueue "github.com/wrsmith108/love-rank-pulse-sub001/internal/adapters/mq/queue"
	workerpool "github.com/wrsmith108/love-rank-pulse-sub001/internal/adapters/mq/worker"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/adapters/repository"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/elo"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/model"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/streak"
	"github.com/wrsmith108/love-rank-pulse-sub001/pkg/logger"
	"github.com/wrsmith108/love-rank-pulse-sub001/pkg/metrics"
)

// Service defaults.
const (
	defaultQueueSize      = 100000
	defaultRecalcInterval = 30 * time.Second
	maxPageLimit          = 100
	maxTopPlayers         = 100
)

// Service implements the ranking operations behind the HTTP API.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	cache   *cache.Leaderboard
	emitter events.Emitter
	calc    elo.Calculator
	queue   eventqueue.Queue
	updater *RatingUpdater
	engine  *RankEngine
	pool    *workerpool.Pool

	// Configuration
	workerCount    int
	queueSize      int
	recalcInterval time.Duration
	burstThreshold int
	streakWindow   int

	// State
	started    bool
	loopCancel context.CancelFunc

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the backing store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithCache sets the leaderboard cache.
func WithCache(lb *cache.Leaderboard) Option {
	return func(s *Service) {
		if lb != nil {
			s.cache = lb
		}
	}
}

// WithEmitter sets the realtime event emitter.
func WithEmitter(e events.Emitter) Option {
	return func(s *Service) {
		if e != nil {
			s.emitter = e
		}
	}
}

// WithCalculator overrides the rating calculator.
func WithCalculator(c elo.Calculator) Option {
	return func(s *Service) {
		if c != nil {
			s.calc = c
		}
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the submission queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithRecalcInterval sets the cadence of the scheduled global
// recalculation.
func WithRecalcInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.recalcInterval = interval
		}
	}
}

// WithServiceBurstThreshold sets how many applied matches trigger an
// early recalculation.
func WithServiceBurstThreshold(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.burstThreshold = n
		}
	}
}

// WithStreakWindow bounds how far back the current-streak walk looks.
func WithStreakWindow(window int) Option {
	return func(s *Service) {
		if window > 0 {
			s.streakWindow = window
		}
	}
}

// WithServiceLogger sets a custom logger for the service.
func WithServiceLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration. Without options it
// runs fully in memory, which is what tests and cache-less development use.
func New(opts ...Option) *Service {
	s := &Service{
		emitter:        events.NopEmitter{},
		calc:           elo.NewStandardCalculator(),
		queueSize:      defaultQueueSize,
		recalcInterval: defaultRecalcInterval,
		burstThreshold: defaultBurstThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start wires and launches the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemStore()
		s.logger.Info(ctx, "using in-memory store")
	}
	if s.cache == nil {
		s.cache = cache.NewLeaderboard(cache.NewMemoryBackend())
		s.logger.Info(ctx, "using in-memory cache backend")
	}

	var streakOpts []streak.Option
	if s.streakWindow > 0 {
		streakOpts = append(streakOpts, streak.WithCurrentWindow(s.streakWindow))
	}
	streaks := streak.NewHistoryCalculator(s.store, streakOpts...)

	s.engine = NewRankEngine(s.store, s.cache,
		WithEngineEmitter(s.emitter),
		WithBurstThreshold(s.burstThreshold),
		WithStreakCalculator(streaks),
	)
	s.updater = NewRatingUpdater(s.store, s.cache,
		WithUpdaterEmitter(s.emitter),
		WithUpdaterCalculator(s.calc),
		WithOnApplied(s.engine.NoteMatch),
	)

	s.queue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
	)
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.updater)
	s.pool.Start(ctx)

	loopCtx, cancel := context.WithCancel(context.Background())
	s.loopCancel = cancel
	go s.engine.RunInterval(loopCtx, s.recalcInterval)

	s.started = true
	s.logger.Info(ctx, "ranking service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.String("recalcInterval", s.recalcInterval.String()),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping ranking service...")

	if s.loopCancel != nil {
		s.loopCancel()
	}
	if s.pool != nil {
		s.pool.Stop()
	}
	if q, ok := s.queue.(*eventqueue.InMemoryQueue); ok {
		_ = q.Close()
	}

	s.started = false
	s.logger.Info(ctx, "ranking service stopped")
}

// resolveScope validates a scope/key pair. Keyed scopes need a key and
// the global scope must not carry one.
func resolveScope(scope model.Scope, scopeKey string) error {
	if !scope.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}
	if scope.NeedsKey() && scopeKey == "" {
		return fmt.Errorf("%w: scope %s requires a key", ErrInvalidScope, scope)
	}
	if !scope.NeedsKey() && scopeKey != "" {
		return fmt.Errorf("%w: scope %s does not take a key", ErrInvalidScope, scope)
	}
	return nil
}

// deps snapshots the store and cache wired by Start. Every read and
// player operation goes through it so that a never-started Service fails
// with ErrNotStarted instead of dereferencing nil components.
func (s *Service) deps() (repository.Store, *cache.Leaderboard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started || s.store == nil || s.cache == nil {
		return nil, nil, ErrNotStarted
	}
	return s.store, s.cache, nil
}

// GetLeaderboard returns one page of a scope's ranking, served through the
// read-through cache.
func (s *Service) GetLeaderboard(ctx context.Context, scope model.Scope, scopeKey string, page, limit int) (model.Page, error) {
	store, lb, err := s.deps()
	if err != nil {
		return model.Page{}, err
	}
	if err := resolveScope(scope, scopeKey); err != nil {
		return model.Page{}, err
	}
	if page < 1 {
		return model.Page{}, fmt.Errorf("%w: got %d", ErrInvalidPagination, page)
	}
	if limit < 1 || limit > maxPageLimit {
		return model.Page{}, fmt.Errorf("%w: got %d, want 1..%d", ErrInvalidLimit, limit, maxPageLimit)
	}

	return lb.GetPage(ctx, scope, scopeKey, page, limit, func(ctx context.Context) (model.Page, error) {
		offset := (page - 1) * limit
		entries, total, err := store.Entries(ctx, scope, scopeKey, offset, limit)
		if err != nil {
			return model.Page{}, fmt.Errorf("reading entries: %w", err)
		}
		return model.Page{
			Entries:      entries,
			TotalPlayers: total,
			Page:         page,
			Limit:        limit,
			HasMore:      offset+len(entries) < total,
		}, nil
	})
}

// GetPlayerRank returns a player's rank summary for a scope, or nil when
// the player is not on that leaderboard.
func (s *Service) GetPlayerRank(ctx context.Context, playerID string, scope model.Scope, scopeKey string) (*model.PlayerRankSummary, error) {
	store, lb, err := s.deps()
	if err != nil {
		return nil, err
	}
	if err := resolveScope(scope, scopeKey); err != nil {
		return nil, err
	}

	summary, err := lb.GetPlayerRank(ctx, playerID, scope, scopeKey, func(ctx context.Context) (model.PlayerRankSummary, error) {
		entry, err := store.Entry(ctx, playerID, scope, scopeKey)
		if err != nil {
			return model.PlayerRankSummary{}, err
		}
		_, total, err := store.Entries(ctx, scope, scopeKey, 0, 1)
		if err != nil {
			return model.PlayerRankSummary{}, err
		}
		return model.PlayerRankSummary{
			PlayerID:     playerID,
			Rank:         entry.Rank,
			TotalPlayers: total,
			Percentile:   model.Percentile(entry.Rank, total),
		}, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &summary, nil
}

// GetTopPlayers returns the first n entries of a scope's ranking.
func (s *Service) GetTopPlayers(ctx context.Context, scope model.Scope, scopeKey string, n int) ([]model.LeaderboardEntry, error) {
	if n < 1 || n > maxTopPlayers {
		return nil, fmt.Errorf("%w: got %d, want 1..%d", ErrInvalidLimit, n, maxTopPlayers)
	}
	page, err := s.GetLeaderboard(ctx, scope, scopeKey, 1, n)
	if err != nil {
		return nil, err
	}
	return page.Entries, nil
}

// GetByRankRange returns the entries holding ranks lo..hi inclusive.
func (s *Service) GetByRankRange(ctx context.Context, scope model.Scope, scopeKey string, lo, hi int) ([]model.LeaderboardEntry, error) {
	store, _, err := s.deps()
	if err != nil {
		return nil, err
	}
	if err := resolveScope(scope, scopeKey); err != nil {
		return nil, err
	}
	if lo < 1 || hi < lo {
		return nil, fmt.Errorf("%w: got %d..%d", ErrInvalidRange, lo, hi)
	}
	entries, err := store.EntriesByRankRange(ctx, scope, scopeKey, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("reading rank range: %w", err)
	}
	return entries, nil
}

// SubmitMatch applies a match result synchronously and returns the
// committed result with both players' new ratings.
func (s *Service) SubmitMatch(ctx context.Context, sub model.MatchSubmission) (model.MatchResult, error) {
	s.mu.RLock()
	updater := s.updater
	s.mu.RUnlock()
	if updater == nil {
		return model.MatchResult{}, ErrNotStarted
	}
	return updater.Apply(ctx, sub)
}

// EnqueueMatch queues a match result for asynchronous processing. A full
// queue fails with ErrQueueFull.
func (s *Service) EnqueueMatch(ctx context.Context, sub model.MatchSubmission) error {
	if err := sub.Validate(); err != nil {
		metrics.RecordMatchRejected()
		return err
	}

	s.mu.RLock()
	q := s.queue
	s.mu.RUnlock()
	if q == nil {
		return ErrNotStarted
	}
	if !q.Enqueue(ctx, sub) {
		return ErrQueueFull
	}
	return nil
}

// RecalculateRanks rebuilds a scope's ranking immediately.
func (s *Service) RecalculateRanks(ctx context.Context, scope model.Scope, scopeKey string) error {
	s.mu.RLock()
	engine := s.engine
	s.mu.RUnlock()
	if engine == nil {
		return ErrNotStarted
	}
	return engine.Recalculate(ctx, scope, scopeKey)
}

// RegisterPlayer creates a player with the initial rating record.
func (s *Service) RegisterPlayer(ctx context.Context, p model.Player) error {
	store, _, err := s.deps()
	if err != nil {
		return err
	}
	if p.ID == "" {
		return fmt.Errorf("%w: missing player id", model.ErrInvalidPlayer)
	}
	p.IsActive = true
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if err := store.CreatePlayer(ctx, p); err != nil {
		return fmt.Errorf("creating player %s: %w", p.ID, err)
	}

	if count, err := store.CountPlayers(ctx); err == nil {
		metrics.UpdateTotalPlayers(count)
	}
	return nil
}

// GetPlayer returns a player record.
func (s *Service) GetPlayer(ctx context.Context, playerID string) (model.Player, error) {
	store, _, err := s.deps()
	if err != nil {
		return model.Player{}, err
	}
	return store.GetPlayer(ctx, playerID)
}

// DeactivatePlayer soft-removes a player from future recalculations.
func (s *Service) DeactivatePlayer(ctx context.Context, playerID string) error {
	store, _, err := s.deps()
	if err != nil {
		return err
	}
	return store.SetActive(ctx, playerID, false)
}

// CacheHealthy reports whether the cache backend is reachable.
func (s *Service) CacheHealthy(ctx context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cache == nil {
		return false
	}
	return s.cache.Healthy(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":        s.started,
		"queueCapacity":  s.queueSize,
		"recalcInterval": s.recalcInterval.String(),
		"burstThreshold": s.burstThreshold,
	}

	if s.started {
		stats["workerCount"] = s.pool.Size()
		stats["queueLength"] = s.queue.Len(ctx)
		if count, err := s.store.CountPlayers(ctx); err == nil {
			stats["totalPlayers"] = count
			metrics.UpdateTotalPlayers(count)
		}
	}
	return stats
}
