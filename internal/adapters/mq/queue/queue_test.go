package queue_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/adapters/mq/queue"
	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/model"
)

func sub(id string) model.MatchSubmission {
	return model.MatchSubmission{MatchID: id, PlayerA: "a", ScoreA: 1, PlayerB: "b", ScoreB: 0}
}

func TestInMemoryQueue(t *testing.T) {
	Convey("Given a queue with a small capacity", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))

		Convey("When submissions fit within capacity", func() {
			So(q.Enqueue(ctx, sub("m1")), ShouldBeTrue)
			So(q.Enqueue(ctx, sub("m2")), ShouldBeTrue)
			So(q.Len(ctx), ShouldEqual, 2)

			Convey("Then one more enqueue is rejected without blocking", func() {
				So(q.Enqueue(ctx, sub("m3")), ShouldBeFalse)
			})

			Convey("And dequeue delivers them in order", func() {
				ch := q.Dequeue(ctx)
				first := <-ch
				So(first.MatchID, ShouldEqual, "m1")
				second := <-ch
				So(second.MatchID, ShouldEqual, "m2")
			})
		})

		Convey("When the queue is closed", func() {
			So(q.Enqueue(ctx, sub("m1")), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)
			So(q.IsClosed(), ShouldBeTrue)

			Convey("Then new enqueues are rejected", func() {
				So(q.Enqueue(ctx, sub("m2")), ShouldBeFalse)
			})

			Convey("And the dequeue channel drains then closes", func() {
				ch := q.Dequeue(ctx)
				got, ok := <-ch
				So(ok, ShouldBeTrue)
				So(got.MatchID, ShouldEqual, "m1")

				select {
				case _, ok := <-ch:
					So(ok, ShouldBeFalse)
				case <-time.After(time.Second):
					t.Fatal("dequeue channel did not close")
				}
			})

			Convey("And closing again is a no-op", func() {
				So(q.Close(), ShouldBeNil)
			})
		})

		Convey("When the dequeue context is cancelled", func() {
			cancelCtx, cancel := context.WithCancel(ctx)
			ch := q.Dequeue(cancelCtx)
			cancel()
			So(q.Enqueue(ctx, sub("m1")), ShouldBeTrue)

			// The bridging goroutine must stop; at most the in-flight
			// submission may still be delivered before the close.
			deadline := time.After(time.Second)
			for {
				select {
				case _, ok := <-ch:
					if !ok {
						return
					}
				case <-deadline:
					t.Fatal("dequeue channel did not close after cancellation")
				}
			}
		})
	})
}
