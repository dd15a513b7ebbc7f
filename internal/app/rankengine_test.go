package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/wrsmith108/love-rank-pulse-sub001/internal/adapters/cache"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/adapters/events"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/adapters/repository"
	service "github.com/wrsmith108/love-rank-pulse-sub001/internal/app"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/model"
)

// blockingStreaks parks Current until released, letting tests hold a
// recalculation open at a known point.
type blockingStreaks struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingStreaks) Current(context.Context, string) (int, error) {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return 0, nil
}

func (b *blockingStreaks) Best(context.Context, string) (int, error) {
	return 0, nil
}

type recordingEmitter struct {
	mu          sync.Mutex
	rankChanges []events.RankChange
}

func (e *recordingEmitter) EmitRankChange(_ context.Context, ev events.RankChange) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rankChanges = append(e.rankChanges, ev)
}

func (e *recordingEmitter) EmitPlayerUpdate(context.Context, events.PlayerUpdate) {}

func (e *recordingEmitter) changes() []events.RankChange {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]events.RankChange, len(e.rankChanges))
	copy(out, e.rankChanges)
	return out
}

func seedStore(t *testing.T, ids ...string) *repository.MemStore {
	t.Helper()
	store := repository.NewMemStore()
	for _, id := range ids {
		err := store.CreatePlayer(context.Background(), model.Player{ID: id, IsActive: true})
		if err != nil {
			t.Fatalf("seeding player %s: %v", id, err)
		}
	}
	return store
}

func TestRankEngineCoalescing(t *testing.T) {
	ctx := context.Background()

	Convey("Given a recalculation held open on one scope", t, func() {
		store := seedStore(t, "alice", "bob")
		lb := cache.NewLeaderboard(cache.NewMemoryBackend())
		streaks := &blockingStreaks{
			entered: make(chan struct{}),
			release: make(chan struct{}),
		}
		engine := service.NewRankEngine(store, lb, service.WithStreakCalculator(streaks))

		firstDone := make(chan error, 1)
		go func() { firstDone <- engine.Recalculate(ctx, model.ScopeGlobal, "") }()

		select {
		case <-streaks.entered:
		case <-time.After(2 * time.Second):
			t.Fatal("first recalculation never started")
		}

		Convey("A concurrent trigger coalesces and does no work", func() {
			So(engine.Recalculate(ctx, model.ScopeGlobal, ""), ShouldBeNil)

			// Nothing was swapped in yet; the held pass still owns the scope.
			_, total, err := store.Entries(ctx, model.ScopeGlobal, "", 0, 1)
			So(err, ShouldBeNil)
			So(total, ShouldEqual, 0)

			close(streaks.release)
			select {
			case err := <-firstDone:
				So(err, ShouldBeNil)
			case <-time.After(2 * time.Second):
				t.Fatal("held recalculation never finished")
			}

			_, total, err = store.Entries(ctx, model.ScopeGlobal, "", 0, 1)
			So(err, ShouldBeNil)
			So(total, ShouldEqual, 2)
		})
	})
}

func TestRankEngineCancellation(t *testing.T) {
	ctx := context.Background()

	Convey("Given an existing ranking", t, func() {
		store := seedStore(t, "alice", "bob")
		lb := cache.NewLeaderboard(cache.NewMemoryBackend())
		engine := service.NewRankEngine(store, lb)
		So(engine.Recalculate(ctx, model.ScopeGlobal, ""), ShouldBeNil)

		before, _, err := store.Entries(ctx, model.ScopeGlobal, "", 0, 10)
		So(err, ShouldBeNil)
		So(before, ShouldHaveLength, 2)

		Convey("A cancelled pass leaves the previous ranking intact", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			err := engine.Recalculate(cancelled, model.ScopeGlobal, "")
			So(err, ShouldNotBeNil)

			after, _, err2 := store.Entries(ctx, model.ScopeGlobal, "", 0, 10)
			So(err2, ShouldBeNil)
			So(after, ShouldResemble, before)
		})
	})
}

func TestRankEngineEvents(t *testing.T) {
	ctx := context.Background()

	Convey("Given a ranking where one player overtakes another", t, func() {
		store := seedStore(t, "alice", "bob")
		lb := cache.NewLeaderboard(cache.NewMemoryBackend())
		emitter := &recordingEmitter{}
		engine := service.NewRankEngine(store, lb, service.WithEngineEmitter(emitter))

		// First pass: equal ratings, alice wins the id tie-break.
		So(engine.Recalculate(ctx, model.ScopeGlobal, ""), ShouldBeNil)
		So(emitter.changes(), ShouldBeEmpty)

		// bob gains a rating edge before the second pass.
		updater := service.NewRatingUpdater(store, lb)
		_, err := updater.Apply(ctx, model.MatchSubmission{
			MatchID: "m1", PlayerA: "bob", ScoreA: 2, PlayerB: "alice", ScoreB: 0,
		})
		So(err, ShouldBeNil)
		So(engine.Recalculate(ctx, model.ScopeGlobal, ""), ShouldBeNil)

		Convey("Each mover gets a rank change event", func() {
			changes := emitter.changes()
			So(changes, ShouldHaveLength, 2)

			byPlayer := map[string]events.RankChange{}
			for _, c := range changes {
				byPlayer[c.PlayerID] = c
			}
			So(byPlayer["bob"].OldRank, ShouldEqual, 2)
			So(byPlayer["bob"].NewRank, ShouldEqual, 1)
			So(byPlayer["bob"].RankChange, ShouldEqual, 1)
			So(byPlayer["alice"].OldRank, ShouldEqual, 1)
			So(byPlayer["alice"].NewRank, ShouldEqual, 2)
			So(byPlayer["alice"].RankChange, ShouldEqual, -1)
		})
	})
}

func TestRankEngineBurstTrigger(t *testing.T) {
	ctx := context.Background()

	Convey("Given an engine with a burst threshold of two matches", t, func() {
		store := seedStore(t, "alice", "bob")
		lb := cache.NewLeaderboard(cache.NewMemoryBackend())
		engine := service.NewRankEngine(store, lb, service.WithBurstThreshold(2))
		updater := service.NewRatingUpdater(store, lb, service.WithOnApplied(engine.NoteMatch))

		_, err := updater.Apply(ctx, model.MatchSubmission{
			MatchID: "m1", PlayerA: "alice", ScoreA: 2, PlayerB: "bob", ScoreB: 0,
		})
		So(err, ShouldBeNil)
		_, err = updater.Apply(ctx, model.MatchSubmission{
			MatchID: "m2", PlayerA: "alice", ScoreA: 2, PlayerB: "bob", ScoreB: 0,
		})
		So(err, ShouldBeNil)

		Convey("Crossing the threshold triggers a global recalculation", func() {
			deadline := time.Now().Add(2 * time.Second)
			for time.Now().Before(deadline) {
				if _, total, err := store.Entries(ctx, model.ScopeGlobal, "", 0, 1); err == nil && total == 2 {
					return
				}
				time.Sleep(10 * time.Millisecond)
			}
			t.Fatal("burst trigger never produced a ranking")
		})
	})
}

func TestRankEngineScopeValidation(t *testing.T) {
	ctx := context.Background()

	Convey("The engine rejects malformed scope requests", t, func() {
		store := seedStore(t)
		lb := cache.NewLeaderboard(cache.NewMemoryBackend())
		engine := service.NewRankEngine(store, lb)

		So(engine.Recalculate(ctx, model.ScopeCountry, ""), ShouldNotBeNil)
		So(engine.Recalculate(ctx, model.ScopeGlobal, "SE"), ShouldNotBeNil)
		So(engine.Recalculate(ctx, model.Scope("galaxy"), ""), ShouldNotBeNil)
	})
}
