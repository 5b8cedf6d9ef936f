package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mogibot/penalty/internal/adapters/mq/queue"
	"github.com/mogibot/penalty/internal/adapters/mq/worker"
	"github.com/mogibot/penalty/internal/workflow"
	"github.com/mogibot/penalty/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// fakeResolver records invocations and replies with canned outcomes.
type fakeResolver struct {
	mu       sync.Mutex
	approves []int64
	refuses  []int64
	batches  []string
	err      error
}

func (f *fakeResolver) Approve(ctx context.Context, actor workflow.Actor, requestID int64) (workflow.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approves = append(f.approves, requestID)
	return workflow.Outcome{RequestID: requestID, Status: "accepted"}, f.err
}

func (f *fakeResolver) Refuse(ctx context.Context, actor workflow.Actor, requestID int64) (workflow.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refuses = append(f.refuses, requestID)
	return workflow.Outcome{RequestID: requestID, Status: "refused"}, f.err
}

func (f *fakeResolver) ApproveAll(ctx context.Context, actor workflow.Actor, leaderboardID string) ([]workflow.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, leaderboardID)
	return []workflow.Outcome{
		{RequestID: 1, Status: "accepted"},
		{RequestID: 2, Status: "accepted"},
	}, f.err
}

func TestDispatcher_Dispatch(t *testing.T) {
	Convey("Given a running dispatcher", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		resolver := &fakeResolver{}
		d := worker.NewDispatcher(q, resolver)
		go d.Run(ctx)

		actor := workflow.Actor{ID: 99, Name: "Staffan", IsStaff: true}

		Convey("When an approve command is enqueued", func() {
			cmd := queue.NewApprove(actor, 7)
			So(q.Enqueue(ctx, cmd), ShouldBeTrue)

			Convey("Then the caller receives the outcome", func() {
				select {
				case res := <-cmd.Reply:
					So(res.Err, ShouldBeNil)
					So(res.Outcomes, ShouldHaveLength, 1)
					So(res.Outcomes[0].RequestID, ShouldEqual, 7)
					So(res.Outcomes[0].Status, ShouldEqual, "accepted")
				case <-time.After(time.Second):
					t.Fatal("timed out waiting for reply")
				}
			})
		})

		Convey("When a refuse command is enqueued", func() {
			cmd := queue.NewRefuse(actor, 8)
			So(q.Enqueue(ctx, cmd), ShouldBeTrue)

			select {
			case res := <-cmd.Reply:
				So(res.Err, ShouldBeNil)
				So(res.Outcomes[0].Status, ShouldEqual, "refused")
			case <-time.After(time.Second):
				t.Fatal("timed out waiting for reply")
			}
		})

		Convey("When an approve-all command is enqueued", func() {
			cmd := queue.NewApproveAll(actor, "150cc")
			So(q.Enqueue(ctx, cmd), ShouldBeTrue)

			select {
			case res := <-cmd.Reply:
				So(res.Err, ShouldBeNil)
				So(res.Outcomes, ShouldHaveLength, 2)
			case <-time.After(time.Second):
				t.Fatal("timed out waiting for reply")
			}
		})

		Convey("When the resolver fails", func() {
			resolver.err = errors.New("boom")
			cmd := queue.NewApprove(actor, 9)
			So(q.Enqueue(ctx, cmd), ShouldBeTrue)

			select {
			case res := <-cmd.Reply:
				So(res.Err, ShouldNotBeNil)
			case <-time.After(time.Second):
				t.Fatal("timed out waiting for reply")
			}
		})

		Convey("When commands are enqueued in order", func() {
			first := queue.NewApprove(actor, 1)
			second := queue.NewApprove(actor, 2)
			So(q.Enqueue(ctx, first), ShouldBeTrue)
			So(q.Enqueue(ctx, second), ShouldBeTrue)

			<-first.Reply
			<-second.Reply

			Convey("Then the single dispatcher preserves order", func() {
				resolver.mu.Lock()
				defer resolver.mu.Unlock()
				So(resolver.approves, ShouldResemble, []int64{1, 2})
			})
		})
	})
}

func TestDispatcher_Shutdown(t *testing.T) {
	Convey("Given a running dispatcher", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue()
		d := worker.NewDispatcher(q, &fakeResolver{}, worker.WithName("test"))
		go d.Run(ctx)

		Convey("When shutting it down", func() {
			err := d.Shutdown(ctx)

			Convey("Then it stops cleanly", func() {
				So(err, ShouldBeNil)
			})
		})
	})
}
