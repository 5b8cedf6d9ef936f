package model_test

import (
	"testing"
	"time"

	"github.com/mogibot/penalty/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func squadTable() model.Table {
	return model.Table{
		ID:       42,
		Tier:     "B",
		AuthorID: "discord-ana",
		Teams: []model.Team{
			{
				Rank: 1,
				Scores: []model.TableScore{
					{Player: model.Player{ID: 1, Name: "Ana", DiscordID: "discord-ana"}, Score: 90, Multiplier: 1.0},
					{Player: model.Player{ID: 2, Name: "Bruno", DiscordID: "discord-bruno"}, Score: 84, Multiplier: 1.0},
				},
			},
			{
				Rank: 2,
				Scores: []model.TableScore{
					{Player: model.Player{ID: 3, Name: "Chie", DiscordID: "discord-chie"}, Score: 77, Multiplier: 1.0},
					{Player: model.Player{ID: 4, Name: "Dai", DiscordID: "discord-dai"}, Score: 70, Multiplier: 1.0},
				},
			},
		},
		CreatedOn: time.Now(),
	}
}

func TestTable_Lookups(t *testing.T) {
	Convey("Given a two-team table", t, func() {
		table := squadTable()

		Convey("When looking up a team by player name", func() {
			team := table.Team("bruno")

			Convey("Then matching should be case-insensitive", func() {
				So(team, ShouldNotBeNil)
				So(team.Rank, ShouldEqual, 1)
			})
		})

		Convey("When looking up a missing player", func() {
			So(table.Team("nobody"), ShouldBeNil)
			So(table.Score("nobody"), ShouldBeNil)
		})

		Convey("When looking up a score row", func() {
			score := table.Score(" Chie ")
			So(score, ShouldNotBeNil)
			So(score.Score, ShouldEqual, 77)
		})

		Convey("When looking up a participant by discord id", func() {
			So(table.ScoreByDiscord("discord-dai"), ShouldNotBeNil)
			So(table.ScoreByDiscord("discord-unknown"), ShouldBeNil)
			So(table.ScoreByDiscord(""), ShouldBeNil)
		})
	})
}

func TestTable_SameTeam(t *testing.T) {
	Convey("Given a two-team table", t, func() {
		table := squadTable()

		Convey("Then teammates should be on the same team", func() {
			So(table.SameTeam("Ana", "Bruno"), ShouldBeTrue)
			So(table.SameTeam("ana", "BRUNO"), ShouldBeTrue)
		})

		Convey("Then opponents should not", func() {
			So(table.SameTeam("Ana", "Chie"), ShouldBeFalse)
		})

		Convey("Then absent players should not match anything", func() {
			So(table.SameTeam("nobody", "Ana"), ShouldBeFalse)
			So(table.SameTeam("Ana", "nobody"), ShouldBeFalse)
		})
	})
}

func TestTable_Verified(t *testing.T) {
	Convey("Given a table without a verification timestamp", t, func() {
		table := squadTable()
		So(table.Verified(), ShouldBeFalse)

		Convey("When the table gets verified", func() {
			now := time.Now()
			table.VerifiedOn = &now
			So(table.Verified(), ShouldBeTrue)
		})
	})
}
