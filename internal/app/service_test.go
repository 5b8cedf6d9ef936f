package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/mogibot/penalty/internal/adapters/lounge"
	"github.com/mogibot/penalty/internal/adapters/mq/queue"
	service "github.com/mogibot/penalty/internal/app"
	"github.com/mogibot/penalty/internal/domain/model"
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

func seededClient() *lounge.Memory {
	mem := lounge.NewMemory()
	mem.PutPlayer(model.Player{ID: 1, Name: "Ana", DiscordID: "d-ana"})
	mem.PutPlayer(model.Player{ID: 2, Name: "Bruno", DiscordID: "d-bruno"})
	mem.PutTable(model.Table{
		ID:   42,
		Tier: "B",
		Teams: []model.Team{
			{
				Rank: 1,
				Scores: []model.TableScore{
					{Player: model.Player{ID: 1, Name: "Ana", DiscordID: "d-ana"}, Multiplier: 1.0},
					{Player: model.Player{ID: 2, Name: "Bruno", DiscordID: "d-bruno"}, Multiplier: 1.0},
				},
			},
		},
	})
	return mem
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should construct", func() {
			So(svc, ShouldNotBeNil)
		})

		Convey("When starting and stopping it", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := svc.Start(ctx)
			So(err, ShouldBeNil)

			Convey("Then a second start is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("And the kind catalog is available", func() {
				So(len(svc.Kinds()), ShouldBeGreaterThan, 5)
			})

			Convey("And stats report the running state", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldBeTrue)
				So(stats["queueLength"], ShouldEqual, 0)
			})

			svc.Stop()
		})
	})
}

func TestService_EndToEnd(t *testing.T) {
	Convey("Given a started service over a seeded backend", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		mem := seededClient()
		svc := service.New(
			service.WithClient(mem),
			service.WithQueueSize(16),
			service.WithLeaderboards([]string{"150cc"}),
			service.WithLockSweepInterval(0),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		staff := workflow.Actor{ID: 99, Name: "Staffan", IsStaff: true}

		Convey("When submitting and approving a report", func() {
			req, err := svc.Submit(ctx, workflow.SubmitParams{
				KindName:      "Late",
				LeaderboardID: "150cc",
				TableID:       42,
				PlayerName:    "Ana",
				Reporter:      staff,
			})
			So(err, ShouldBeNil)

			cmd := queue.NewApprove(staff, req.ID)
			So(svc.Enqueue(ctx, cmd), ShouldBeTrue)

			select {
			case res := <-cmd.Reply:
				So(res.Err, ShouldBeNil)
				So(res.Outcomes, ShouldHaveLength, 1)
				So(res.Outcomes[0].Status, ShouldEqual, "accepted")
			case <-time.After(2 * time.Second):
				t.Fatal("timed out waiting for dispatcher reply")
			}

			Convey("Then the pending set is empty afterwards", func() {
				pending, err := svc.ListPending(ctx, "150cc")
				So(err, ShouldBeNil)
				So(pending, ShouldBeEmpty)
				So(mem.PenaltyCalls, ShouldHaveLength, 1)
			})
		})

		Convey("When submitting a drop report", func() {
			_, err := svc.Submit(ctx, workflow.SubmitParams{
				KindName:      "Drop mid mogi",
				LeaderboardID: "150cc",
				TableID:       42,
				PlayerName:    "Ana",
				Count:         5,
				Reporter:      staff,
			})
			So(err, ShouldBeNil)

			Convey("Then the teammate multiplier is corrected", func() {
				So(mem.Multipliers[42]["Bruno"], ShouldAlmostEqual, 1.0-3.0/6.0, 1e-9)
			})
		})
	})
}
