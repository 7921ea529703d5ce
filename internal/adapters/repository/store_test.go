package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/trio/internal/domain/model"
)

var day = time.Date(2024, 3, 2, 18, 0, 0, 0, time.UTC)

func fixtureTriangular(id, seasonID string, playedOn time.Time, matchPrefix string) model.Triangular {
	return model.Triangular{
		ID:       id,
		SeasonID: seasonID,
		PlayedOn: playedOn,
		Rosters: map[model.TeamLabel][]string{
			model.TeamA: {"ana", "bia"},
			model.TeamB: {"caio", "duda"},
			model.TeamC: {"edu", "fabi"},
		},
		Matches: []model.Match{
			{
				ID: matchPrefix + "-1", Home: model.TeamA, Away: model.TeamB, HomeScore: 2, AwayScore: 1,
				Goals: map[string]int{"ana": 2, "caio": 1}, PlayedAt: playedOn,
			},
			{
				ID: matchPrefix + "-2", Home: model.TeamA, Away: model.TeamC, HomeScore: 0, AwayScore: 0,
				PlayedAt: playedOn.Add(10 * time.Minute),
			},
		},
	}
}

// runStoreContract exercises behavior every Store implementation shares.
func runStoreContract(t *testing.T, newStore func() Store) {
	ctx := context.Background()
	finished := day.Add(-24 * time.Hour)

	Convey("Given a store with two seasons", t, func() {
		s := newStore()
		Reset(func() { _ = s.Close() })

		So(s.SaveSeason(ctx, model.Season{ID: "s1", Name: "2023", InitDate: day.AddDate(-1, 0, 0), FinishDate: &finished}), ShouldBeNil)
		So(s.SaveSeason(ctx, model.Season{ID: "s2", Name: "2024", InitDate: day.AddDate(0, -1, 0)}), ShouldBeNil)

		So(s.SaveTriangular(ctx, fixtureTriangular("t-old", "s1", day.AddDate(0, -6, 0), "old")), ShouldBeNil)
		So(s.SaveTriangular(ctx, fixtureTriangular("t-new", "s2", day, "new")), ShouldBeNil)

		Convey("When reading triangulars by filter", func() {
			active, err := s.Triangulars(ctx, model.ActiveSeason())
			So(err, ShouldBeNil)
			all, err := s.Triangulars(ctx, model.AllSeasons())
			So(err, ShouldBeNil)
			old, err := s.Triangulars(ctx, model.ForSeason("s1"))
			So(err, ShouldBeNil)
			none, err := s.Triangulars(ctx, model.ForSeason("missing"))
			So(err, ShouldBeNil)

			Convey("Then each filter resolves to its season", func() {
				So(active, ShouldHaveLength, 1)
				So(active[0].ID, ShouldEqual, "t-new")
				So(all, ShouldHaveLength, 2)
				So(all[0].ID, ShouldEqual, "t-old")
				So(all[1].ID, ShouldEqual, "t-new")
				So(old, ShouldHaveLength, 1)
				So(old[0].ID, ShouldEqual, "t-old")
				So(none, ShouldBeEmpty)
			})

			Convey("Then rosters, matches and goals round-trip", func() {
				got := active[0]
				So(got.Rosters[model.TeamA], ShouldResemble, []string{"ana", "bia"})
				So(got.Rosters[model.TeamC], ShouldResemble, []string{"edu", "fabi"})
				So(got.Matches, ShouldHaveLength, 2)
				So(got.Matches[0].ID, ShouldEqual, "new-1")
				So(got.Matches[0].Goals, ShouldResemble, map[string]int{"ana": 2, "caio": 1})
				So(got.Matches[1].HomeScore, ShouldEqual, 0)
			})
		})

		Convey("When fetching a single triangular", func() {
			got, err := s.Triangular(ctx, "t-new")
			_, missingErr := s.Triangular(ctx, "nope")

			Convey("Then known ids load and unknown ids are not found", func() {
				So(err, ShouldBeNil)
				So(got.SeasonID, ShouldEqual, "s2")
				So(errors.Is(missingErr, ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When adding matches", func() {
			m := model.Match{ID: "new-3", Home: model.TeamB, Away: model.TeamC, HomeScore: 1, AwayScore: 3,
				Goals: map[string]int{"duda": 1, "edu": 3}, PlayedAt: day.Add(20 * time.Minute)}
			err := s.AddMatch(ctx, "t-new", m)

			Convey("Then a new match is appended", func() {
				So(err, ShouldBeNil)
				got, err := s.Triangular(ctx, "t-new")
				So(err, ShouldBeNil)
				So(got.Matches, ShouldHaveLength, 3)
				So(got.Matches[2].Goals["edu"], ShouldEqual, 3)
			})

			Convey("Then a repeated match id conflicts", func() {
				So(errors.Is(s.AddMatch(ctx, "t-new", m), ErrConflict), ShouldBeTrue)
				So(errors.Is(s.AddMatch(ctx, "t-new", model.Match{ID: "old-1", Home: model.TeamA, Away: model.TeamB}), ErrConflict), ShouldBeTrue)
			})

			Convey("Then an unknown triangular is not found", func() {
				So(errors.Is(s.AddMatch(ctx, "nope", model.Match{ID: "x", Home: model.TeamA, Away: model.TeamB}), ErrNotFound), ShouldBeTrue)
			})

			Convey("Then an empty match id is rejected", func() {
				So(errors.Is(s.AddMatch(ctx, "t-new", model.Match{Home: model.TeamA, Away: model.TeamB}), ErrEmptyID), ShouldBeTrue)
			})
		})

		Convey("When saving a triangular that reuses another's match id", func() {
			clash := fixtureTriangular("t-clash", "s2", day, "old")

			Convey("Then it conflicts", func() {
				So(errors.Is(s.SaveTriangular(ctx, clash), ErrConflict), ShouldBeTrue)
			})
		})

		Convey("When saving a triangular id that already exists", func() {
			again := fixtureTriangular("t-new", "s2", day, "again")
			again.Rosters[model.TeamA] = []string{"gil", "hugo"}
			err := s.SaveTriangular(ctx, again)

			Convey("Then it conflicts and the stored triangular is untouched", func() {
				So(errors.Is(err, ErrTriangularExists), ShouldBeTrue)
				So(errors.Is(err, ErrConflict), ShouldBeTrue)
				got, err := s.Triangular(ctx, "t-new")
				So(err, ShouldBeNil)
				So(got.Rosters[model.TeamA], ShouldResemble, []string{"ana", "bia"})
				So(got.Matches, ShouldHaveLength, 2)
				So(got.Matches[0].ID, ShouldEqual, "new-1")
			})

			Convey("Then its match ids stay free", func() {
				So(s.AddMatch(ctx, "t-new", model.Match{ID: "again-1", Home: model.TeamB, Away: model.TeamC, PlayedAt: day}), ShouldBeNil)
			})
		})

		Convey("When listing a player's matches", func() {
			ana, err := s.PlayerMatches(ctx, "ana")
			So(err, ShouldBeNil)
			caio, err := s.PlayerMatches(ctx, "caio")
			So(err, ShouldBeNil)
			ghost, err := s.PlayerMatches(ctx, "ghost")
			So(err, ShouldBeNil)

			Convey("Then only matches of the player's team are returned, oldest first", func() {
				So(ana, ShouldHaveLength, 4)
				So(ana[0].ID, ShouldEqual, "old-1")
				So(caio, ShouldHaveLength, 2)
				So(ghost, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a store with players and stats", t, func() {
		s := newStore()
		Reset(func() { _ = s.Close() })

		So(s.SavePlayer(ctx, model.Player{ID: "p2", Name: "Bia", CreatedAt: day}), ShouldBeNil)
		So(s.SavePlayer(ctx, model.Player{ID: "p1", Name: "Ana", CreatedAt: day}), ShouldBeNil)

		Convey("When reading players", func() {
			all, err := s.Players(ctx)
			So(err, ShouldBeNil)
			one, err := s.Player(ctx, "p1")
			So(err, ShouldBeNil)
			_, missing := s.Player(ctx, "p9")

			Convey("Then they come back ordered by id", func() {
				So(all, ShouldHaveLength, 2)
				So(all[0].ID, ShouldEqual, "p1")
				So(one.Name, ShouldEqual, "Ana")
				So(errors.Is(missing, ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When registering a known player id", func() {
			err := s.SavePlayer(ctx, model.Player{ID: "p1", Name: "Someone else", CreatedAt: day})

			Convey("Then it conflicts and the name is kept", func() {
				So(errors.Is(err, ErrPlayerExists), ShouldBeTrue)
				got, err := s.Player(ctx, "p1")
				So(err, ShouldBeNil)
				So(got.Name, ShouldEqual, "Ana")
			})
		})

		Convey("When saving a stats batch", func() {
			batch := []model.PlayerStats{
				{PlayerID: "p1", Matches: 4, Wins: 3, Losses: 1, Points: 9, WinPercentage: 75},
				{PlayerID: "p2", Matches: 4, Draws: 2, Points: 2},
			}
			So(s.SavePlayerStats(ctx, batch), ShouldBeNil)

			Convey("Then each snapshot is readable", func() {
				got, err := s.PlayerStats(ctx, "p1")
				So(err, ShouldBeNil)
				So(got, ShouldResemble, batch[0])
			})

			Convey("Then a batch with an invalid entry persists nothing", func() {
				bad := []model.PlayerStats{{PlayerID: "p1", Matches: 99}, {PlayerID: ""}}
				So(errors.Is(s.SavePlayerStats(ctx, bad), ErrInvalidStats), ShouldBeTrue)
				got, err := s.PlayerStats(ctx, "p1")
				So(err, ShouldBeNil)
				So(got.Matches, ShouldEqual, 4)
			})

			Convey("Then unknown players have no snapshot", func() {
				_, err := s.PlayerStats(ctx, "p9")
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			})
		})
	})

	Convey("Given a store with no open season", t, func() {
		s := newStore()
		Reset(func() { _ = s.Close() })

		So(s.SaveSeason(ctx, model.Season{ID: "s1", Name: "2023", InitDate: day.AddDate(-1, 0, 0), FinishDate: &finished}), ShouldBeNil)
		So(s.SaveTriangular(ctx, fixtureTriangular("t-closed", "s1", day.AddDate(0, -6, 0), "closed")), ShouldBeNil)
		So(s.SaveTriangular(ctx, fixtureTriangular("t-loose", "", day, "loose")), ShouldBeNil)

		Convey("When reading the active scope", func() {
			active, err := s.Triangulars(ctx, model.ActiveSeason())
			So(err, ShouldBeNil)

			Convey("Then it covers triangulars played outside any season", func() {
				So(active, ShouldHaveLength, 1)
				So(active[0].ID, ShouldEqual, "t-loose")
			})
		})

		Convey("When a season opens", func() {
			So(s.SaveSeason(ctx, model.Season{ID: "s2", Name: "2024", InitDate: day}), ShouldBeNil)
			active, err := s.Triangulars(ctx, model.ActiveSeason())
			So(err, ShouldBeNil)

			Convey("Then season-less triangulars leave the active scope", func() {
				So(active, ShouldBeEmpty)
			})
		})
	})
}
