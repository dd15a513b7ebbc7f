package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/model"
	"github.com/wrsmith108/love-rank-pulse-sub001/pkg/logger"
	"github.com/wrsmith108/love-rank-pulse-sub001/pkg/metrics"
)

// Per-scope TTL defaults. Session rankings churn fastest and go stale
// quickest; global pages can live longest.
const (
	defaultGlobalTTL  = 5 * time.Minute
	defaultCountryTTL = 2 * time.Minute
	defaultSessionTTL = 45 * time.Second
)

// PageFunc computes a leaderboard page from the authoritative store.
type PageFunc func(ctx context.Context) (model.Page, error)

// RankFunc computes a player rank summary from the authoritative store.
type RankFunc func(ctx context.Context) (model.PlayerRankSummary, error)

// Leaderboard is the read-through cache in front of ranked queries. Every
// backend failure is logged, counted, and absorbed: reads fall through to
// the compute callback and writes skip invalidation, bounded by TTL.
type Leaderboard struct {
	backend Backend
	keys    *KeyBuilder
	ttl     map[model.Scope]time.Duration
	logger  logger.Logger
}

// Option applies a configuration option to the Leaderboard cache.
type Option func(*Leaderboard)

// WithTTL overrides the TTL for one scope.
func WithTTL(scope model.Scope, ttl time.Duration) Option {
	return func(c *Leaderboard) {
		if ttl > 0 {
			c.ttl[scope] = ttl
		}
	}
}

// WithKeyBuilder replaces the key builder.
func WithKeyBuilder(kb *KeyBuilder) Option {
	return func(c *Leaderboard) {
		if kb != nil {
			c.keys = kb
		}
	}
}

// WithLogger sets the cache logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Leaderboard) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewLeaderboard creates a read-through cache over backend.
func NewLeaderboard(backend Backend, opts ...Option) *Leaderboard {
	c := &Leaderboard{
		backend: backend,
		keys:    NewKeyBuilder(""),
		ttl: map[model.Scope]time.Duration{
			model.ScopeGlobal:  defaultGlobalTTL,
			model.ScopeCountry: defaultCountryTTL,
			model.ScopeSession: defaultSessionTTL,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("cache")
	}
	return c
}

// Keys exposes the key builder so invalidation prefixes and read keys stay
// derived from the same serialization.
func (c *Leaderboard) Keys() *KeyBuilder {
	return c.keys
}

// GetPage serves a leaderboard page, computing and repopulating on miss.
func (c *Leaderboard) GetPage(ctx context.Context, scope model.Scope, scopeKey string, page, limit int, compute PageFunc) (model.Page, error) {
	key := c.keys.Page(scope, scopeKey, page, limit)

	if cached, ok := c.lookup(ctx, key); ok {
		var p model.Page
		if err := json.Unmarshal([]byte(cached), &p); err == nil {
			metrics.RecordCacheHit("page")
			return p, nil
		}
		// Undecodable payloads count as misses and get overwritten below.
		c.logger.Warn(ctx, "dropping undecodable cache payload", logger.String("key", key))
	}
	metrics.RecordCacheMiss("page")

	p, err := compute(ctx)
	if err != nil {
		return model.Page{}, err
	}
	c.store(ctx, key, p, c.ttl[scope])
	return p, nil
}

// GetPlayerRank serves a player's rank summary, computing on miss.
func (c *Leaderboard) GetPlayerRank(ctx context.Context, playerID string, scope model.Scope, scopeKey string, compute RankFunc) (model.PlayerRankSummary, error) {
	key := c.keys.PlayerRank(playerID, scope, scopeKey)

	if cached, ok := c.lookup(ctx, key); ok {
		var s model.PlayerRankSummary
		if err := json.Unmarshal([]byte(cached), &s); err == nil {
			metrics.RecordCacheHit("rank")
			return s, nil
		}
		c.logger.Warn(ctx, "dropping undecodable cache payload", logger.String("key", key))
	}
	metrics.RecordCacheMiss("rank")

	s, err := compute(ctx)
	if err != nil {
		return model.PlayerRankSummary{}, err
	}
	c.store(ctx, key, s, c.ttl[scope])
	return s, nil
}

// InvalidateScope drops every cached page and every cached rank summary
// of one scope namespace, so a recalculation leaves nothing stale behind.
// With an empty scopeKey on a keyed scope, the whole scope (all countries
// / all sessions) is dropped.
func (c *Leaderboard) InvalidateScope(ctx context.Context, scope model.Scope, scopeKey, reason string) {
	pagePrefix := c.keys.PagePrefix(scope, scopeKey)
	rankPrefix := c.keys.RankPrefix(scope, scopeKey)
	if scope.NeedsKey() && scopeKey == "" {
		pagePrefix = c.keys.ScopePrefix(scope)
		rankPrefix = c.keys.RankScopePrefix(scope)
	}
	c.drop(ctx, pagePrefix, reason)
	c.drop(ctx, rankPrefix, reason)
}

// Healthy reports whether the backend answers a ping and resets the
// degraded gauge when it recovers.
func (c *Leaderboard) Healthy(ctx context.Context) bool {
	healthy := c.backend.Ping(ctx) == nil
	metrics.UpdateCacheDegraded(!healthy)
	return healthy
}

func (c *Leaderboard) lookup(ctx context.Context, key string) (string, bool) {
	val, found, err := c.backend.Get(ctx, key)
	if err != nil {
		c.absorb(ctx, "get", err)
		return "", false
	}
	return val, found
}

func (c *Leaderboard) store(ctx context.Context, key string, v any, ttl time.Duration) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error(ctx, "marshaling cache payload", logger.String("key", key), logger.Error(err))
		return
	}
	if err := c.backend.SetWithTTL(ctx, key, string(payload), ttl); err != nil {
		c.absorb(ctx, "set", err)
	}
}

func (c *Leaderboard) drop(ctx context.Context, prefix, reason string) {
	if err := c.backend.DeleteByPattern(ctx, prefix); err != nil {
		c.absorb(ctx, "invalidate", err)
		return
	}
	metrics.RecordCacheInvalidation(reason)
}

// absorb logs and counts a backend failure without surfacing it. The cache
// is an optimization, never a source of truth.
func (c *Leaderboard) absorb(ctx context.Context, op string, err error) {
	metrics.RecordCacheError()
	metrics.UpdateCacheDegraded(true)
	c.logger.Warn(ctx, "cache backend failure; passing through",
		logger.String("op", op),
		logger.Error(err),
	)
}
