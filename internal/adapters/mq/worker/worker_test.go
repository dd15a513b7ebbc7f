package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/wrsmith108/love-rank-pulse-sub001/internal/adapters/mq/queue"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/adapters/mq/worker"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/adapters/repository"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/model"
	"github.com/wrsmith108/love-rank-pulse-sub001/pkg/logger"
)

func init() {
	_ = logger.Init()
}

type recordingApplier struct {
	mu      sync.Mutex
	applied []string
	err     error
	notify  chan struct{}
}

func (a *recordingApplier) ApplyResult(_ context.Context, sub worker.Submission) error {
	a.mu.Lock()
	a.applied = append(a.applied, sub.MatchID)
	a.mu.Unlock()
	if a.notify != nil {
		a.notify <- struct{}{}
	}
	return a.err
}

func (a *recordingApplier) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.applied)
}

func submission(matchID string) model.MatchSubmission {
	return model.MatchSubmission{
		MatchID: matchID,
		PlayerA: "alice",
		ScoreA:  3,
		PlayerB: "bob",
		ScoreB:  1,
	}
}

func TestWorker(t *testing.T) {
	Convey("Given a worker over an in-memory queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		Reset(func() { _ = q.Close() })

		Convey("It applies every queued submission", func() {
			applier := &recordingApplier{notify: make(chan struct{}, 16)}
			w := worker.NewWorker(q, applier)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			So(q.Enqueue(ctx, submission("m1")), ShouldBeTrue)
			So(q.Enqueue(ctx, submission("m2")), ShouldBeTrue)

			for i := 0; i < 2; i++ {
				select {
				case <-applier.notify:
				case <-time.After(time.Second):
					t.Fatal("submission was not applied")
				}
			}
			So(applier.count(), ShouldEqual, 2)
		})

		Convey("It keeps running after a duplicate result", func() {
			applier := &recordingApplier{
				err:    repository.ErrDuplicateResult,
				notify: make(chan struct{}, 16),
			}
			w := worker.NewWorker(q, applier)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			So(q.Enqueue(ctx, submission("dup")), ShouldBeTrue)
			So(q.Enqueue(ctx, submission("dup")), ShouldBeTrue)

			for i := 0; i < 2; i++ {
				select {
				case <-applier.notify:
				case <-time.After(time.Second):
					t.Fatal("submission was not applied")
				}
			}
			So(applier.count(), ShouldEqual, 2)
		})

		Convey("It keeps running after an apply error", func() {
			applier := &recordingApplier{
				err:    errors.New("store down"),
				notify: make(chan struct{}, 16),
			}
			w := worker.NewWorker(q, applier)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			So(q.Enqueue(ctx, submission("bad")), ShouldBeTrue)
			So(q.Enqueue(ctx, submission("good")), ShouldBeTrue)

			for i := 0; i < 2; i++ {
				select {
				case <-applier.notify:
				case <-time.After(time.Second):
					t.Fatal("submission was not applied")
				}
			}
			So(applier.count(), ShouldEqual, 2)
		})

		Convey("Shutdown stops the worker", func() {
			applier := &recordingApplier{}
			w := worker.NewWorker(q, applier)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go w.Run(ctx)

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
			defer shutdownCancel()
			So(w.Shutdown(shutdownCtx), ShouldBeNil)
		})
	})
}

func TestPool(t *testing.T) {
	Convey("Given a worker pool", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(64))
		Reset(func() { _ = q.Close() })

		Convey("It sizes to the requested worker count", func() {
			p := worker.NewPool(3, q, &recordingApplier{})
			So(p.Size(), ShouldEqual, 3)
		})

		Convey("A non-positive count falls back to a CPU-based default", func() {
			p := worker.NewPool(0, q, &recordingApplier{})
			So(p.Size(), ShouldBeGreaterThan, 0)
		})

		Convey("Started workers drain the queue concurrently", func() {
			applier := &recordingApplier{notify: make(chan struct{}, 64)}
			p := worker.NewPool(4, q, applier)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			p.Start(ctx)
			defer p.Stop()

			const n = 20
			for i := 0; i < n; i++ {
				So(q.Enqueue(ctx, submission("m-"+string(rune('a'+i)))), ShouldBeTrue)
			}
			for i := 0; i < n; i++ {
				select {
				case <-applier.notify:
				case <-time.After(2 * time.Second):
					t.Fatal("queue was not drained")
				}
			}
			So(applier.count(), ShouldEqual, n)
		})
	})
}
