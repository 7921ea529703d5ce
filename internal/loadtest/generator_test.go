package loadtest

import (
	"testing"
	"time"

	"github.com/okian/trio/internal/domain/model"
	"github.com/okian/trio/internal/domain/triangular"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerate(t *testing.T) {
	start := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)

	Convey("Given a generator configuration", t, func() {
		cfg := &Config{Triangulars: 25, Players: 12, PerTeam: 3, Seed: 7}

		Convey("When triangulars are generated", func() {
			tris, err := Generate(cfg, start)
			So(err, ShouldBeNil)
			So(tris, ShouldHaveLength, 25)

			Convey("Then every triangular is valid and complete", func() {
				for _, tri := range tris {
					So(triangular.Validate(tri), ShouldBeNil)
					So(tri.Matches, ShouldHaveLength, 3)
					So(tri.ID, ShouldNotBeEmpty)
				}
			})

			Convey("Then no player appears on two rosters", func() {
				for _, tri := range tris {
					seen := map[string]bool{}
					for _, label := range model.TeamLabels {
						So(tri.Rosters[label], ShouldHaveLength, 3)
						for _, p := range tri.Rosters[label] {
							So(seen[p], ShouldBeFalse)
							seen[p] = true
						}
					}
				}
			})

			Convey("Then goals add up to the score", func() {
				for _, tri := range tris {
					for _, m := range tri.Matches {
						total := 0
						for _, g := range m.Goals {
							total += g
						}
						So(total, ShouldEqual, m.HomeScore+m.AwayScore)
					}
				}
			})

			Convey("Then the same seed yields the same results", func() {
				again, err := Generate(cfg, start)
				So(err, ShouldBeNil)
				for i := range tris {
					So(again[i].Rosters, ShouldResemble, tris[i].Rosters)
					for j := range tris[i].Matches {
						So(again[i].Matches[j].HomeScore, ShouldEqual, tris[i].Matches[j].HomeScore)
						So(again[i].Matches[j].AwayScore, ShouldEqual, tris[i].Matches[j].AwayScore)
						So(again[i].Matches[j].Result, ShouldEqual, tris[i].Matches[j].Result)
					}
				}
			})
		})

		Convey("When the pool cannot fill three teams", func() {
			cfg.Players = 8
			_, err := Generate(cfg, start)

			Convey("Then generation fails", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the roster size is zero", func() {
			cfg.PerTeam = 0
			_, err := Generate(cfg, start)

			Convey("Then generation fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestExpectedLeaderboard(t *testing.T) {
	Convey("Given generated triangulars", t, func() {
		tris, err := Generate(&Config{Triangulars: 10, Players: 9, PerTeam: 2, Seed: 3}, time.Now().UTC())
		So(err, ShouldBeNil)

		Convey("When the leaderboard is computed locally", func() {
			board, err := expectedLeaderboard(tris)
			So(err, ShouldBeNil)

			Convey("Then it is ordered with dense ranks", func() {
				So(board, ShouldNotBeEmpty)
				So(board[0].Rank, ShouldEqual, 1)
				for i := 1; i < len(board); i++ {
					So(board[i].Rating, ShouldBeLessThanOrEqualTo, board[i-1].Rating)
					if board[i].Rating == board[i-1].Rating {
						So(board[i].Rank, ShouldEqual, board[i-1].Rank)
						So(board[i].PlayerID, ShouldBeGreaterThan, board[i-1].PlayerID)
					} else {
						So(board[i].Rank, ShouldEqual, board[i-1].Rank+1)
					}
				}
			})

			Convey("Then its own head verifies", func() {
				So(verifyLeaderboard(board, board[:3], 3), ShouldBeNil)
				So(verifyLeaderboard(board, board[:2], 3), ShouldNotBeNil)
			})
		})
	})
}
