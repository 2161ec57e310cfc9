package queue_test

import (
	"context"
	"testing"

	queue "github.com/okian/rainstream/internal/adapters/mq/queue"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryQueue(t *testing.T) {
	ctx := context.Background()

	Convey("Given a queue with default options", t, func() {
		q := queue.NewInMemoryQueue()

		Convey("Then it starts empty and open", func() {
			So(q.Len(ctx), ShouldEqual, 0)
			So(q.IsClosed(), ShouldBeFalse)
		})

		Convey("When enqueueing clicks", func() {
			ok1 := q.Enqueue(ctx, queue.Click{X: 10, Y: 20, TimestampMs: 100})
			ok2 := q.Enqueue(ctx, queue.Click{X: 30, Y: 40, TimestampMs: 200})

			Convey("Then they are accepted and counted", func() {
				So(ok1, ShouldBeTrue)
				So(ok2, ShouldBeTrue)
				So(q.Len(ctx), ShouldEqual, 2)
			})

			Convey("And draining returns them in arrival order", func() {
				clicks := q.Drain(ctx)
				So(clicks, ShouldHaveLength, 2)
				So(clicks[0].X, ShouldEqual, 10)
				So(clicks[1].X, ShouldEqual, 30)
				So(q.Len(ctx), ShouldEqual, 0)
			})
		})

		Convey("When draining an empty queue", func() {
			clicks := q.Drain(ctx)

			Convey("Then it returns nothing without blocking", func() {
				So(clicks, ShouldBeEmpty)
			})
		})

		Convey("When the queue is closed", func() {
			So(q.Enqueue(ctx, queue.Click{X: 1, Y: 1}), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)

			Convey("Then new clicks are rejected", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(q.Enqueue(ctx, queue.Click{X: 2, Y: 2}), ShouldBeFalse)
			})

			Convey("And already-queued clicks stay drainable", func() {
				clicks := q.Drain(ctx)
				So(clicks, ShouldHaveLength, 1)
			})
		})
	})

	Convey("Given a queue with a tiny capacity", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))

		Convey("When enqueueing past capacity", func() {
			So(q.Enqueue(ctx, queue.Click{X: 1}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Click{X: 2}), ShouldBeTrue)
			overflow := q.Enqueue(ctx, queue.Click{X: 3})

			Convey("Then the overflow click is dropped, not buffered", func() {
				So(overflow, ShouldBeFalse)
				So(q.Len(ctx), ShouldEqual, 2)
			})

			Convey("And the surviving clicks are intact", func() {
				clicks := q.Drain(ctx)
				So(clicks, ShouldHaveLength, 2)
				So(clicks[0].X, ShouldEqual, 1)
				So(clicks[1].X, ShouldEqual, 2)
			})
		})
	})
}
