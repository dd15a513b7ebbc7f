package cache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/adapters/cache"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/model"
	"github.com/wrsmith108/love-rank-pulse-sub001/pkg/logger"
)

func init() {
	_ = logger.Init()
}

// failingBackend errors on every operation, simulating an unreachable cache.
type failingBackend struct{}

func (failingBackend) Get(context.Context, string) (string, bool, error) {
	return "", false, cache.ErrUnavailable
}
func (failingBackend) SetWithTTL(context.Context, string, string, time.Duration) error {
	return cache.ErrUnavailable
}
func (failingBackend) DeleteByPattern(context.Context, string) error { return cache.ErrUnavailable }
func (failingBackend) Keys(context.Context, string) ([]string, error) {
	return nil, cache.ErrUnavailable
}
func (failingBackend) Ping(context.Context) error { return cache.ErrUnavailable }

func pageOf(ranks ...int) model.Page {
	entries := make([]model.LeaderboardEntry, len(ranks))
	for i, r := range ranks {
		entries[i] = model.LeaderboardEntry{PlayerID: "p", Rank: r, Scope: model.ScopeGlobal}
	}
	return model.Page{Entries: entries, TotalPlayers: len(ranks), Page: 1, Limit: 50}
}

func TestLeaderboardReadThrough(t *testing.T) {
	Convey("Given a leaderboard cache over a memory backend", t, func() {
		ctx := context.Background()
		backend := cache.NewMemoryBackend()
		lb := cache.NewLeaderboard(backend)

		var computeCalls int
		var mu sync.Mutex
		compute := func(context.Context) (model.Page, error) {
			mu.Lock()
			computeCalls++
			mu.Unlock()
			return pageOf(1, 2, 3), nil
		}

		Convey("When the first read misses", func() {
			p, err := lb.GetPage(ctx, model.ScopeGlobal, "", 1, 50, compute)
			So(err, ShouldBeNil)
			So(p.Entries, ShouldHaveLength, 3)
			So(computeCalls, ShouldEqual, 1)

			Convey("Then an identical read within TTL is served from cache", func() {
				p2, err := lb.GetPage(ctx, model.ScopeGlobal, "", 1, 50, compute)
				So(err, ShouldBeNil)
				So(p2.Entries, ShouldHaveLength, 3)
				So(computeCalls, ShouldEqual, 1)
			})

			Convey("But a different pagination shape recomputes", func() {
				_, err := lb.GetPage(ctx, model.ScopeGlobal, "", 2, 50, compute)
				So(err, ShouldBeNil)
				So(computeCalls, ShouldEqual, 2)
			})
		})

		Convey("When the compute callback fails", func() {
			boom := errors.New("store down")
			_, err := lb.GetPage(ctx, model.ScopeGlobal, "", 1, 50, func(context.Context) (model.Page, error) {
				return model.Page{}, boom
			})

			Convey("Then the error surfaces and nothing is cached", func() {
				So(err, ShouldEqual, boom)
				So(backend.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestLeaderboardTTLExpiry(t *testing.T) {
	Convey("Given a cache whose clock the test controls", t, func() {
		ctx := context.Background()
		now := time.Now()
		var mu sync.Mutex
		clock := func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		}
		backend := cache.NewMemoryBackend(cache.WithClock(clock))
		lb := cache.NewLeaderboard(backend, cache.WithTTL(model.ScopeSession, 30*time.Second))

		calls := 0
		compute := func(context.Context) (model.Page, error) {
			calls++
			return pageOf(1), nil
		}

		_, err := lb.GetPage(ctx, model.ScopeSession, "s1", 1, 10, compute)
		So(err, ShouldBeNil)
		So(calls, ShouldEqual, 1)

		Convey("When the TTL has not yet passed", func() {
			mu.Lock()
			now = now.Add(29 * time.Second)
			mu.Unlock()
			_, err := lb.GetPage(ctx, model.ScopeSession, "s1", 1, 10, compute)
			So(err, ShouldBeNil)
			So(calls, ShouldEqual, 1)
		})

		Convey("When the TTL has passed", func() {
			mu.Lock()
			now = now.Add(31 * time.Second)
			mu.Unlock()
			_, err := lb.GetPage(ctx, model.ScopeSession, "s1", 1, 10, compute)
			So(err, ShouldBeNil)
			So(calls, ShouldEqual, 2)
		})
	})
}

func TestLeaderboardInvalidation(t *testing.T) {
	Convey("Given cached pages across scopes and a cached player rank", t, func() {
		ctx := context.Background()
		backend := cache.NewMemoryBackend()
		lb := cache.NewLeaderboard(backend)

		fill := func(scope model.Scope, key string) {
			_, err := lb.GetPage(ctx, scope, key, 1, 50, func(context.Context) (model.Page, error) {
				return pageOf(1), nil
			})
			So(err, ShouldBeNil)
		}
		fill(model.ScopeGlobal, "")
		fill(model.ScopeCountry, "SE")
		fill(model.ScopeCountry, "DE")
		_, err := lb.GetPlayerRank(ctx, "alice", model.ScopeGlobal, "", func(context.Context) (model.PlayerRankSummary, error) {
			return model.PlayerRankSummary{PlayerID: "alice", Rank: 4, TotalPlayers: 10, Percentile: 70}, nil
		})
		So(err, ShouldBeNil)

		Convey("When a match invalidates the global scope and SE country", func() {
			lb.InvalidateScope(ctx, model.ScopeGlobal, "", "match")
			lb.InvalidateScope(ctx, model.ScopeCountry, "SE", "match")

			Convey("Then the unrelated country page survives", func() {
				keys, err := backend.Keys(ctx, lb.Keys().PagePrefix(model.ScopeCountry, "DE"))
				So(err, ShouldBeNil)
				So(keys, ShouldHaveLength, 1)
			})

			Convey("And the invalidated entries are gone, rank summary included", func() {
				keys, err := backend.Keys(ctx, lb.Keys().PagePrefix(model.ScopeGlobal, ""))
				So(err, ShouldBeNil)
				So(keys, ShouldBeEmpty)

				keys, err = backend.Keys(ctx, lb.Keys().RankPrefix(model.ScopeGlobal, ""))
				So(err, ShouldBeNil)
				So(keys, ShouldBeEmpty)
			})
		})

		Convey("When the global scope is invalidated, the next rank lookup recomputes", func() {
			lb.InvalidateScope(ctx, model.ScopeGlobal, "", "recalculation")

			s, err := lb.GetPlayerRank(ctx, "alice", model.ScopeGlobal, "", func(context.Context) (model.PlayerRankSummary, error) {
				return model.PlayerRankSummary{PlayerID: "alice", Rank: 2, TotalPlayers: 10, Percentile: 90}, nil
			})
			So(err, ShouldBeNil)
			So(s.Rank, ShouldEqual, 2)
		})

		Convey("When a recalculation drops a whole keyed scope", func() {
			_, err := lb.GetPlayerRank(ctx, "alice", model.ScopeCountry, "SE", func(context.Context) (model.PlayerRankSummary, error) {
				return model.PlayerRankSummary{PlayerID: "alice", Rank: 1, TotalPlayers: 3, Percentile: 100}, nil
			})
			So(err, ShouldBeNil)

			lb.InvalidateScope(ctx, model.ScopeCountry, "", "recalculation")

			keys, err := backend.Keys(ctx, lb.Keys().ScopePrefix(model.ScopeCountry))
			So(err, ShouldBeNil)
			So(keys, ShouldBeEmpty)

			keys, err = backend.Keys(ctx, lb.Keys().RankScopePrefix(model.ScopeCountry))
			So(err, ShouldBeNil)
			So(keys, ShouldBeEmpty)
		})
	})
}

func TestLeaderboardDegradedMode(t *testing.T) {
	Convey("Given a cache whose backend is unreachable", t, func() {
		ctx := context.Background()
		lb := cache.NewLeaderboard(failingBackend{})

		calls := 0
		compute := func(context.Context) (model.Page, error) {
			calls++
			return pageOf(1, 2), nil
		}

		Convey("When pages are read", func() {
			p, err := lb.GetPage(ctx, model.ScopeGlobal, "", 1, 50, compute)

			Convey("Then reads still succeed from the authoritative source", func() {
				So(err, ShouldBeNil)
				So(p.Entries, ShouldHaveLength, 2)
			})

			Convey("And every read recomputes", func() {
				_, err := lb.GetPage(ctx, model.ScopeGlobal, "", 1, 50, compute)
				So(err, ShouldBeNil)
				So(calls, ShouldEqual, 2)
			})
		})

		Convey("When rank lookups are read", func() {
			s, err := lb.GetPlayerRank(ctx, "p", model.ScopeGlobal, "", func(context.Context) (model.PlayerRankSummary, error) {
				return model.PlayerRankSummary{PlayerID: "p", Rank: 1, TotalPlayers: 1, Percentile: 100}, nil
			})
			So(err, ShouldBeNil)
			So(s.Rank, ShouldEqual, 1)
		})

		Convey("When invalidation is attempted", func() {
			// Must not panic or surface an error to the caller.
			lb.InvalidateScope(ctx, model.ScopeGlobal, "", "match")
			lb.InvalidateScope(ctx, model.ScopeCountry, "SE", "match")
		})

		Convey("The health probe reports the outage", func() {
			So(lb.Healthy(ctx), ShouldBeFalse)
		})
	})
}
