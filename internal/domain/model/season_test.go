package model

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSeasonFilter_Matches(t *testing.T) {
	Convey("Given the three filter scopes", t, func() {
		Convey("When a season is open", func() {
			Convey("Then active covers only that season", func() {
				So(ActiveSeason().Matches("s2", "s2"), ShouldBeTrue)
				So(ActiveSeason().Matches("s1", "s2"), ShouldBeFalse)
				So(ActiveSeason().Matches("", "s2"), ShouldBeFalse)
			})
		})

		Convey("When no season is open", func() {
			Convey("Then active covers triangulars without a season", func() {
				So(ActiveSeason().Matches("", ""), ShouldBeTrue)
				So(ActiveSeason().Matches("s1", ""), ShouldBeFalse)
			})
		})

		Convey("Then all and season scopes ignore the active season", func() {
			So(AllSeasons().Matches("s1", ""), ShouldBeTrue)
			So(ForSeason("s1").Matches("s1", "s2"), ShouldBeTrue)
			So(ForSeason("s1").Matches("s2", "s2"), ShouldBeFalse)
		})
	})
}

func TestSeason_Validate(t *testing.T) {
	day := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	before := day.AddDate(0, 0, -1)
	after := day.AddDate(0, 1, 0)

	Convey("Given seasons", t, func() {
		So(Season{ID: "s1", Name: "Spring", InitDate: day}.Validate(), ShouldBeNil)
		So(Season{ID: "s1", Name: "Spring", InitDate: day, FinishDate: &after}.Validate(), ShouldBeNil)
		So(errors.Is(Season{ID: "s1", InitDate: day}.Validate(), ErrInvalidSeason), ShouldBeTrue)
		So(errors.Is(Season{ID: "s1", Name: "Spring"}.Validate(), ErrInvalidSeason), ShouldBeTrue)
		So(errors.Is(Season{ID: "s1", Name: "Spring", InitDate: day, FinishDate: &before}.Validate(), ErrInvalidSeason), ShouldBeTrue)
	})

	Convey("Given players", t, func() {
		So(Player{ID: "p1", Name: "Ana"}.Validate(), ShouldBeNil)
		So(errors.Is(Player{ID: "p1", Name: "  "}.Validate(), ErrInvalidPlayer), ShouldBeTrue)
	})
}
