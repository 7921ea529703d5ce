package repository

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/trio/internal/domain/model"
)

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func() Store { return NewMemoryStore() })
}

func TestMemoryStoreIsolation(t *testing.T) {
	ctx := context.Background()

	Convey("Given a memory store holding a triangular", t, func() {
		s := NewMemoryStore()
		So(s.SaveTriangular(ctx, fixtureTriangular("t1", "s1", day, "m")), ShouldBeNil)

		Convey("When a caller mutates what it read", func() {
			got, err := s.Triangular(ctx, "t1")
			So(err, ShouldBeNil)
			got.Rosters[model.TeamA][0] = "mallory"
			got.Matches[0].Goals["ana"] = 99

			Convey("Then the stored copy is unchanged", func() {
				again, err := s.Triangular(ctx, "t1")
				So(err, ShouldBeNil)
				So(again.Rosters[model.TeamA][0], ShouldEqual, "ana")
				So(again.Matches[0].Goals["ana"], ShouldEqual, 2)
			})
		})

		Convey("When the triangular is saved again with new matches", func() {
			replaced := fixtureTriangular("t1", "s1", day, "r")
			err := s.SaveTriangular(ctx, replaced)

			Convey("Then it conflicts and the old match ids stay owned", func() {
				So(errors.Is(err, ErrTriangularExists), ShouldBeTrue)
				So(errors.Is(s.AddMatch(ctx, "t1", model.Match{ID: "m-1", Home: model.TeamB, Away: model.TeamC}), ErrConflict), ShouldBeTrue)
				got, err := s.Triangular(ctx, "t1")
				So(err, ShouldBeNil)
				So(got.Matches[0].ID, ShouldEqual, "m-1")
			})

			Convey("Then the new match ids were not claimed", func() {
				So(s.AddMatch(ctx, "t1", model.Match{ID: "r-1", Home: model.TeamB, Away: model.TeamC}), ShouldBeNil)
			})
		})

		Convey("When the id is empty", func() {
			Convey("Then saves are rejected", func() {
				So(errors.Is(s.SaveTriangular(ctx, model.Triangular{}), ErrEmptyID), ShouldBeTrue)
				So(errors.Is(s.SavePlayer(ctx, model.Player{}), ErrEmptyID), ShouldBeTrue)
				So(errors.Is(s.SaveSeason(ctx, model.Season{}), ErrEmptyID), ShouldBeTrue)
			})
		})
	})
}
