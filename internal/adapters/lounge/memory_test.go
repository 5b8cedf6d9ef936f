package lounge_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mogibot/penalty/internal/adapters/lounge"
	"github.com/mogibot/penalty/internal/domain/model"
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

func TestMemory_Requests(t *testing.T) {
	Convey("Given an in-memory backend with players", t, func() {
		ctx := context.Background()
		mem := lounge.NewMemory()
		mem.PutPlayer(model.Player{ID: 1, Name: "Ana", DiscordID: "d-ana"})
		mem.PutPlayer(model.Player{ID: 2, Name: "Bruno", DiscordID: "d-bruno"})

		Convey("When creating requests", func() {
			first, err := mem.CreateRequest(ctx, lounge.CreateRequestParams{
				KindName: "Late", LeaderboardID: "150cc", TableID: 42,
				PlayerName: "Ana", ReporterName: "Bruno",
			})
			So(err, ShouldBeNil)
			second, err := mem.CreateRequest(ctx, lounge.CreateRequestParams{
				KindName: "Repick", LeaderboardID: "200cc", TableID: 43,
				PlayerName: "Bruno", ReporterName: "Ana",
			})
			So(err, ShouldBeNil)

			Convey("Then ids increment and identities are resolved", func() {
				So(second.ID, ShouldEqual, first.ID+1)
				So(first.PlayerID, ShouldEqual, 1)
				So(first.ReporterID, ShouldEqual, 2)
			})

			Convey("And listing filters by leaderboard", func() {
				pending, err := mem.ListPending(ctx, "150cc")
				So(err, ShouldBeNil)
				So(pending, ShouldHaveLength, 1)
				So(pending[0].KindName, ShouldEqual, "Late")

				all, err := mem.ListPending(ctx, "")
				So(err, ShouldBeNil)
				So(all, ShouldHaveLength, 2)
			})

			Convey("And deleting removes exactly once", func() {
				So(mem.DeleteRequest(ctx, first.ID), ShouldBeNil)
				So(errors.Is(mem.DeleteRequest(ctx, first.ID), lounge.ErrNotFound), ShouldBeTrue)
				_, err := mem.GetRequest(ctx, first.ID)
				So(errors.Is(err, lounge.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When looking up players", func() {
			p, err := mem.GetPlayer(ctx, " ana ")
			So(err, ShouldBeNil)
			So(p.ID, ShouldEqual, 1)

			p, err = mem.GetPlayerByDiscord(ctx, "d-bruno")
			So(err, ShouldBeNil)
			So(p.Name, ShouldEqual, "Bruno")

			_, err = mem.GetPlayerByID(ctx, 404)
			So(errors.Is(err, lounge.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestMemory_Penalties(t *testing.T) {
	Convey("Given an in-memory backend", t, func() {
		ctx := context.Background()
		mem := lounge.NewMemory()
		mem.PutTable(model.Table{ID: 42})

		Convey("When applying penalties with an injected failure", func() {
			mem.FailPenaltyFor["Bruno"] = true

			ids, err := mem.ApplyPenalty(ctx, lounge.PenaltyParams{
				Amount: 50, PlayerNames: []string{"Ana", "Bruno"}, TableID: 42,
			})

			Convey("Then the failed player yields a nil id", func() {
				So(err, ShouldBeNil)
				So(ids, ShouldHaveLength, 2)
				So(ids[0], ShouldNotBeNil)
				So(ids[1], ShouldBeNil)
				So(mem.PenaltyCalls, ShouldHaveLength, 1)
			})
		})

		Convey("When setting multipliers", func() {
			err := mem.SetMultipliers(ctx, 42, map[string]float64{"Ana": 0.5})
			So(err, ShouldBeNil)
			So(mem.Multipliers[42]["Ana"], ShouldEqual, 0.5)
			So(mem.MultiplierCalls[42], ShouldEqual, 1)

			Convey("And an unknown table is rejected", func() {
				err := mem.SetMultipliers(ctx, 99, map[string]float64{"Ana": 0.5})
				So(errors.Is(err, lounge.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}
