package multiplier_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mogibot/penalty/internal/adapters/lounge"
	"github.com/mogibot/penalty/internal/domain/catalog"
	"github.com/mogibot/penalty/internal/domain/locks"
	"github.com/mogibot/penalty/internal/domain/model"
	"github.com/mogibot/penalty/internal/domain/multiplier"
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

const testLeaderboard = "150cc"

func seededBackend() *lounge.Memory {
	mem := lounge.NewMemory()
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
			{
				Rank: 2,
				Scores: []model.TableScore{
					{Player: model.Player{ID: 3, Name: "Chie", DiscordID: "d-chie"}, Multiplier: 1.0},
					{Player: model.Player{ID: 4, Name: "Dai", DiscordID: "d-dai"}, Multiplier: 1.0},
				},
			},
		},
	})
	return mem
}

func dropRequest(id int64, player string, count int) model.PenaltyRequest {
	return model.PenaltyRequest{
		ID:            id,
		KindName:      "Drop mid mogi",
		LeaderboardID: testLeaderboard,
		TableID:       42,
		Count:         count,
		PlayerName:    player,
	}
}

func TestEngine_Apply(t *testing.T) {
	Convey("Given a reconciliation engine over a seeded table", t, func() {
		ctx := context.Background()
		mem := seededBackend()
		lockStore := locks.NewStore(mem)
		eng := multiplier.NewEngine(mem, mem, lockStore, catalog.New(), multiplier.NewPolicy())

		Convey("When applying a warranted drop request", func() {
			req := dropRequest(1, "Ana", 4)
			err := eng.Apply(ctx, req, []model.PenaltyRequest{req})

			Convey("Then teammates get the correction and the player does not", func() {
				So(err, ShouldBeNil)
				So(mem.MultiplierCalls[42], ShouldEqual, 1)
				So(mem.Multipliers[42]["Bruno"], ShouldAlmostEqual, 1.0-2.0/6.0, 1e-9)
				_, affected := mem.Multipliers[42]["Ana"]
				So(affected, ShouldBeFalse)
			})
		})

		Convey("When the count is below the minimum", func() {
			req := dropRequest(1, "Ana", 2)
			err := eng.Apply(ctx, req, []model.PenaltyRequest{req})

			Convey("Then no correction is owed", func() {
				So(err, ShouldBeNil)
				So(mem.MultiplierCalls[42], ShouldEqual, 0)
			})
		})

		Convey("When another pending drop already covers the team", func() {
			first := dropRequest(1, "Ana", 4)
			So(eng.Apply(ctx, first, []model.PenaltyRequest{first}), ShouldBeNil)

			second := dropRequest(2, "Bruno", 6)
			pending := []model.PenaltyRequest{first, second}
			err := eng.Apply(ctx, second, pending)

			Convey("Then application is idempotent per team", func() {
				So(err, ShouldBeNil)
				So(mem.MultiplierCalls[42], ShouldEqual, 1)
				So(mem.Multipliers[42]["Bruno"], ShouldAlmostEqual, 1.0-2.0/6.0, 1e-9)
			})
		})

		Convey("When the only other pending drop carries no correction", func() {
			stub := model.PenaltyRequest{
				ID:            1,
				KindName:      "Drop before start",
				LeaderboardID: testLeaderboard,
				TableID:       42,
				Count:         0,
				PlayerName:    "Ana",
			}
			req := dropRequest(2, "Bruno", 5)
			err := eng.Apply(ctx, req, []model.PenaltyRequest{stub, req})

			Convey("Then the owed correction is still applied", func() {
				So(err, ShouldBeNil)
				So(mem.MultiplierCalls[42], ShouldEqual, 1)
				So(mem.Multipliers[42]["Ana"], ShouldAlmostEqual, 1.0-3.0/6.0, 1e-9)
			})
		})

		Convey("When a drop is pending for the other team", func() {
			other := dropRequest(1, "Chie", 5)
			So(eng.Apply(ctx, other, []model.PenaltyRequest{other}), ShouldBeNil)

			req := dropRequest(2, "Ana", 4)
			err := eng.Apply(ctx, req, []model.PenaltyRequest{other, req})

			Convey("Then both teams get their own correction", func() {
				So(err, ShouldBeNil)
				So(mem.MultiplierCalls[42], ShouldEqual, 2)
				So(mem.Multipliers[42]["Dai"], ShouldAlmostEqual, 1.0-3.0/6.0, 1e-9)
				So(mem.Multipliers[42]["Bruno"], ShouldAlmostEqual, 1.0-2.0/6.0, 1e-9)
			})
		})

		Convey("When the table is locked", func() {
			lockStore.Add(testLeaderboard, 42)
			req := dropRequest(1, "Ana", 4)
			err := eng.Apply(ctx, req, []model.PenaltyRequest{req})

			Convey("Then reconciliation is suppressed", func() {
				So(err, ShouldBeNil)
				So(mem.MultiplierCalls[42], ShouldEqual, 0)
			})
		})

		Convey("When the reported player is not on the table", func() {
			req := dropRequest(1, "Ghost", 4)
			err := eng.Apply(ctx, req, []model.PenaltyRequest{req})

			Convey("Then it should fail with ErrPlayerNotOnTable", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, multiplier.ErrPlayerNotOnTable), ShouldBeTrue)
			})
		})
	})
}

func TestEngine_Remove(t *testing.T) {
	Convey("Given an applied correction for a team", t, func() {
		ctx := context.Background()
		mem := seededBackend()
		lockStore := locks.NewStore(mem)
		eng := multiplier.NewEngine(mem, mem, lockStore, catalog.New(), multiplier.NewPolicy())

		first := dropRequest(1, "Ana", 4)
		second := dropRequest(2, "Bruno", 6)
		So(eng.Apply(ctx, first, []model.PenaltyRequest{first, second}), ShouldBeNil)

		Convey("When refusing one of two same-team requests", func() {
			err := eng.Remove(ctx, first, []model.PenaltyRequest{second})

			Convey("Then the correction stays while the other is pending", func() {
				So(err, ShouldBeNil)
				So(mem.MultiplierCalls[42], ShouldEqual, 1)
				So(mem.Multipliers[42]["Bruno"], ShouldAlmostEqual, 1.0-2.0/6.0, 1e-9)
			})

			Convey("And refusing the last one resets the whole team", func() {
				So(err, ShouldBeNil)
				err := eng.Remove(ctx, second, []model.PenaltyRequest{second})
				So(err, ShouldBeNil)
				So(mem.Multipliers[42]["Ana"], ShouldEqual, 1.0)
				So(mem.Multipliers[42]["Bruno"], ShouldEqual, 1.0)
			})
		})

		Convey("When the remaining pending drop carries no correction", func() {
			stub := model.PenaltyRequest{
				ID:            3,
				KindName:      "Drop before start",
				LeaderboardID: testLeaderboard,
				TableID:       42,
				Count:         0,
				PlayerName:    "Bruno",
			}
			err := eng.Remove(ctx, first, []model.PenaltyRequest{stub})

			Convey("Then the team is still reset", func() {
				So(err, ShouldBeNil)
				So(mem.Multipliers[42]["Ana"], ShouldEqual, 1.0)
				So(mem.Multipliers[42]["Bruno"], ShouldEqual, 1.0)
			})
		})

		Convey("When the table is locked", func() {
			lockStore.Add(testLeaderboard, 42)
			err := eng.Remove(ctx, first, []model.PenaltyRequest{})

			Convey("Then the rollback is suppressed", func() {
				So(err, ShouldBeNil)
				So(mem.MultiplierCalls[42], ShouldEqual, 1)
			})
		})
	})
}
