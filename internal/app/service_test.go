package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/trio/internal/adapters/repository"
	service "github.com/okian/trio/internal/app"
	"github.com/okian/trio/internal/domain/balance"
	"github.com/okian/trio/internal/domain/model"
	"github.com/okian/trio/internal/domain/stats"
	"github.com/okian/trio/internal/domain/triangular"
	"github.com/okian/trio/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
	_ = logger.SetLevelString("error")
}

var day = time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)

func rosters() map[model.TeamLabel][]string {
	return map[model.TeamLabel][]string{
		model.TeamA: {"ana", "bia"},
		model.TeamB: {"caio", "duda"},
		model.TeamC: {"edu", "fabi"},
	}
}

// A beats B 2-0, B draws C 1-1, C beats A 2-1: C first, A second, B third.
func scenario() []model.Match {
	return []model.Match{
		{ID: "m1", Home: model.TeamA, Away: model.TeamB, HomeScore: 2, AwayScore: 0, Goals: map[string]int{"ana": 2}},
		{ID: "m2", Home: model.TeamB, Away: model.TeamC, HomeScore: 1, AwayScore: 1, Goals: map[string]int{"caio": 1, "edu": 1}},
		{ID: "m3", Home: model.TeamC, Away: model.TeamA, HomeScore: 2, AwayScore: 1, Goals: map[string]int{"fabi": 2, "bia": 1}},
	}
}

func seeded(ctx context.Context, store repository.Store) {
	So(store.SaveSeason(ctx, model.Season{ID: "s1", Name: "Autumn", InitDate: day.AddDate(0, -1, 0)}), ShouldBeNil)
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it is usable before Start", func() {
			So(svc, ShouldNotBeNil)
			st := svc.GetStats()
			So(st["started"], ShouldEqual, false)
			So(st["rankedPlayers"], ShouldEqual, 0)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithStore(repository.NewMemoryStore()),
			service.WithWorkerCount(3),
			service.WithQueueSize(50),
			service.WithDedupeSize(25),
			service.WithRecalcConcurrency(2),
			service.WithMaxLeaderboardLimit(5),
		)

		Convey("Then the options are reported", func() {
			st := svc.GetStats()
			So(st["workerCount"], ShouldEqual, 3)
			So(st["queueSize"], ShouldEqual, 50)
			So(st["dedupeSize"], ShouldEqual, 25)
			So(st["recalcConcurrency"], ShouldEqual, 2)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(2))

		Convey("When started twice and stopped twice", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)

			st := svc.GetStats()
			So(st["started"], ShouldEqual, true)
			So(st["workers"], ShouldEqual, 2)
			So(st["queueLength"], ShouldEqual, 0)

			So(svc.Stop(ctx), ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then it reports stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_CreateTriangular(t *testing.T) {
	Convey("Given a service on a store with an open season", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		seeded(ctx, store)
		svc := service.New(service.WithStore(store))

		Convey("When creating a triangular without ids", func() {
			created, err := svc.CreateTriangular(ctx, model.Triangular{Rosters: rosters(), Matches: []model.Match{
				{Home: model.TeamA, Away: model.TeamB, HomeScore: 1, AwayScore: 0},
			}})
			So(err, ShouldBeNil)

			Convey("Then ids, date and season are filled in", func() {
				So(created.ID, ShouldNotBeEmpty)
				So(created.SeasonID, ShouldEqual, "s1")
				So(created.PlayedOn.IsZero(), ShouldBeFalse)
				So(created.Matches[0].ID, ShouldNotBeEmpty)
				So(created.Matches[0].PlayedAt, ShouldEqual, created.PlayedOn)
			})

			Convey("And it can be read back", func() {
				got, err := svc.Triangular(ctx, created.ID)
				So(err, ShouldBeNil)
				So(got.Matches, ShouldHaveLength, 1)
			})

			Convey("And the roster was recomputed inline", func() {
				st, err := store.PlayerStats(ctx, "ana")
				So(err, ShouldBeNil)
				So(st.Wins, ShouldEqual, 1)
				entry, err := svc.Rank(ctx, "ana")
				So(err, ShouldBeNil)
				So(entry.Rank, ShouldEqual, 1)
			})
		})

		Convey("When a roster is missing", func() {
			r := rosters()
			delete(r, model.TeamC)
			_, err := svc.CreateTriangular(ctx, model.Triangular{ID: "bad", Rosters: r})

			Convey("Then it is malformed and nothing is stored", func() {
				So(errors.Is(err, triangular.ErrMalformedTriangular), ShouldBeTrue)
				_, err := svc.Triangular(ctx, "bad")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_RecordMatch(t *testing.T) {
	Convey("Given a stored triangular with no matches", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		seeded(ctx, store)
		svc := service.New(service.WithStore(store), service.WithWorkerCount(2))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		_, err := svc.CreateTriangular(ctx, model.Triangular{ID: "t1", SeasonID: "s1", PlayedOn: day, Rosters: rosters()})
		So(err, ShouldBeNil)

		Convey("When the three scenario matches are recorded", func() {
			for _, m := range scenario() {
				_, err := svc.RecordMatch(ctx, "t1", m)
				So(err, ShouldBeNil)
			}

			Convey("Then C wins, A is second and B third", func() {
				out, err := svc.ScoreTriangular(ctx, "t1")
				So(err, ShouldBeNil)
				So(out.Champion, ShouldEqual, model.TeamC)
				So(out.Result(model.TeamC).Position, ShouldEqual, 1)
				So(out.Result(model.TeamA).Position, ShouldEqual, 2)
				So(out.Result(model.TeamB).Position, ShouldEqual, 3)
			})

			Convey("And resubmitting a match is rejected", func() {
				_, err := svc.RecordMatch(ctx, "t1", scenario()[0])
				So(errors.Is(err, service.ErrDuplicateMatch), ShouldBeTrue)
			})

			Convey("And the workers persist every player once drained", func() {
				So(svc.Stop(ctx), ShouldBeNil)
				for _, id := range []string{"ana", "bia", "caio", "duda", "edu", "fabi"} {
					got, err := store.PlayerStats(ctx, id)
					So(err, ShouldBeNil)
					want, err := svc.PlayerStats(ctx, id, model.AllSeasons())
					So(err, ShouldBeNil)
					So(got, ShouldResemble, want)
				}
				top, err := svc.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 6)
				So(top[0].PlayerID, ShouldBeIn, []string{"edu", "fabi"})
			})
		})

		Convey("When a match is recorded without an id", func() {
			m, err := svc.RecordMatch(ctx, "t1", model.Match{Home: model.TeamA, Away: model.TeamC, HomeScore: 0, AwayScore: 0})

			Convey("Then one is generated along with the play time", func() {
				So(err, ShouldBeNil)
				So(m.ID, ShouldNotBeEmpty)
				So(m.PlayedAt.IsZero(), ShouldBeFalse)
			})
		})

		Convey("When the triangular does not exist", func() {
			_, err := svc.RecordMatch(ctx, "nope", scenario()[0])
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			Convey("Then the same match id can still be recorded elsewhere", func() {
				_, err := svc.RecordMatch(ctx, "t1", scenario()[0])
				So(err, ShouldBeNil)
			})
		})

		Convey("When the match contradicts its score", func() {
			bad := model.Match{ID: "mx", Home: model.TeamA, Away: model.TeamB, HomeScore: 0, AwayScore: 2, Result: model.ResultHome}
			_, err := svc.RecordMatch(ctx, "t1", bad)
			So(errors.Is(err, triangular.ErrMalformedTriangular), ShouldBeTrue)

			Convey("Then a corrected submission with the same id is accepted", func() {
				bad.Result = model.ResultAway
				_, err := svc.RecordMatch(ctx, "t1", bad)
				So(err, ShouldBeNil)
			})
		})

		Convey("When the goals do not add up to the score", func() {
			m := model.Match{ID: "mg", Home: model.TeamA, Away: model.TeamB, HomeScore: 2, AwayScore: 0, Goals: map[string]int{"ana": 1}}
			_, err := svc.RecordMatch(ctx, "t1", m)
			So(errors.Is(err, triangular.ErrMalformedTriangular), ShouldBeTrue)
		})
	})
}

func TestService_ScoreMatches(t *testing.T) {
	Convey("Given ad hoc matches", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("Then no matches yields no champion", func() {
			out, err := svc.ScoreMatches(ctx, nil)
			So(err, ShouldBeNil)
			So(out.HasChampion(), ShouldBeFalse)
			for _, r := range out.Teams {
				So(r.Position, ShouldEqual, 0)
			}
		})

		Convey("Then a team playing itself is malformed", func() {
			_, err := svc.ScoreMatches(ctx, []model.Match{{Home: model.TeamA, Away: model.TeamA}})
			So(errors.Is(err, triangular.ErrMalformedTriangular), ShouldBeTrue)
		})

		Convey("Then the scenario scores the same in any order", func() {
			ms := scenario()
			a, err := svc.ScoreMatches(ctx, ms)
			So(err, ShouldBeNil)
			b, err := svc.ScoreMatches(ctx, []model.Match{ms[2], ms[0], ms[1]})
			So(err, ShouldBeNil)
			So(a, ShouldResemble, b)
		})
	})
}

func TestService_Ratings(t *testing.T) {
	Convey("Given a scored triangular", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		seeded(ctx, store)
		svc := service.New(service.WithStore(store))
		_, err := svc.CreateTriangular(ctx, model.Triangular{ID: "t1", SeasonID: "s1", PlayedOn: day, Rosters: rosters(), Matches: scenario()})
		So(err, ShouldBeNil)

		Convey("Then the champion's rating combines both percentages", func() {
			res, err := svc.PlayerRating(ctx, "edu", model.ActiveSeason())
			So(err, ShouldBeNil)
			// 1 win 1 draw in 2 matches, 1 of 1 triangulars won.
			So(res.Breakdown.WinComponent, ShouldEqual, 30)
			So(res.Breakdown.TriangularComponent, ShouldEqual, 40)
			So(res.Rating, ShouldEqual, 70)
		})

		Convey("Then a player with no history rates zero", func() {
			res, err := svc.PlayerRating(ctx, "ghost", model.AllSeasons())
			So(err, ShouldBeNil)
			So(res.Rating, ShouldEqual, 0)
		})

		Convey("Then another season's filter sees nothing", func() {
			st, err := svc.PlayerStats(ctx, "edu", model.ForSeason("s0"))
			So(err, ShouldBeNil)
			So(st.Matches, ShouldEqual, 0)
			So(st.WinPercentage, ShouldEqual, 0)
		})

		Convey("Then raw percentages rate consistently", func() {
			res := svc.CalculateRatingV2(50, 50)
			So(res.Rating, ShouldEqual, 50)
			So(res.Rating, ShouldEqual, res.Breakdown.Total)
		})
	})
}

func TestService_BalanceTeams(t *testing.T) {
	Convey("Given a service with history", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		seeded(ctx, store)
		So(store.SavePlayer(ctx, model.Player{ID: "ana", Name: "Ana"}), ShouldBeNil)
		svc := service.New(service.WithStore(store))
		_, err := svc.CreateTriangular(ctx, model.Triangular{ID: "t1", SeasonID: "s1", PlayedOn: day, Rosters: rosters(), Matches: scenario()})
		So(err, ShouldBeNil)

		Convey("When balancing nine players by id", func() {
			ids := []string{"ana", "bia", "caio", "duda", "edu", "fabi", "gil", "hugo", "ivo"}
			teams, err := svc.BalanceTeams(ctx, ids, model.ActiveSeason())
			So(err, ShouldBeNil)

			Convey("Then every team gets three players and names are filled", func() {
				named := false
				for _, team := range teams.Teams {
					So(team.Players, ShouldHaveLength, 3)
					for _, p := range team.Players {
						if p.ID == "ana" {
							named = p.Name == "Ana"
						}
					}
				}
				So(named, ShouldBeTrue)
			})
		})

		Convey("When balancing too few players", func() {
			_, err := svc.BalanceTeams(ctx, []string{"ana", "bia"}, model.ActiveSeason())
			So(errors.Is(err, balance.ErrInsufficientPlayers), ShouldBeTrue)
		})

		Convey("When a player is listed twice", func() {
			_, err := svc.BalanceTeams(ctx, []string{"ana", "bia", "ana"}, model.ActiveSeason())
			So(errors.Is(err, balance.ErrDuplicatePlayer), ShouldBeTrue)
		})

		Convey("When balancing an explicit pool", func() {
			pool := []balance.Player{{ID: "a", Rating: 90}, {ID: "b", Rating: 60}, {ID: "c", Rating: 30}}
			teams, err := svc.BalancePool(ctx, pool)
			So(err, ShouldBeNil)
			So(teams.Spread, ShouldEqual, 60)
		})
	})
}

func TestService_RecalculateAllPlayerStats(t *testing.T) {
	Convey("Given many triangulars across seasons", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		seeded(ctx, store)
		closed := day.AddDate(0, -2, 0)
		So(store.SaveSeason(ctx, model.Season{ID: "s0", InitDate: day.AddDate(0, -6, 0), FinishDate: &closed}), ShouldBeNil)

		var all []model.Triangular
		for i := 0; i < 7; i++ {
			season := "s1"
			if i%2 == 0 {
				season = "s0"
			}
			tri := model.Triangular{
				ID:       fmt.Sprintf("t%d", i),
				SeasonID: season,
				PlayedOn: day.AddDate(0, 0, -i),
				Rosters:  rosters(),
				Matches:  scenario(),
			}
			for j := range tri.Matches {
				tri.Matches[j].ID = fmt.Sprintf("t%d-m%d", i, j)
			}
			So(store.SaveTriangular(ctx, tri), ShouldBeNil)
			all = append(all, tri)
		}
		svc := service.New(service.WithStore(store), service.WithRecalcConcurrency(3))

		Convey("When recalculating", func() {
			res, err := svc.RecalculateAllPlayerStats(ctx)
			So(err, ShouldBeNil)

			Convey("Then every season is covered", func() {
				So(res.TriangularsProcessed, ShouldEqual, 7)
				So(res.PlayersUpdated, ShouldEqual, 6)
			})

			Convey("And the persisted stats match a sequential fold", func() {
				for _, id := range []string{"ana", "caio", "edu"} {
					want, err := stats.Aggregate(id, all)
					So(err, ShouldBeNil)
					got, err := store.PlayerStats(ctx, id)
					So(err, ShouldBeNil)
					So(got, ShouldResemble, want)
				}
			})

			Convey("And running it again changes nothing", func() {
				before, err := store.PlayerStats(ctx, "bia")
				So(err, ShouldBeNil)
				again, err := svc.RecalculateAllPlayerStats(ctx)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, res)
				after, err := store.PlayerStats(ctx, "bia")
				So(err, ShouldBeNil)
				So(after, ShouldResemble, before)
			})

			Convey("And the leaderboard ranks the champions first", func() {
				top, err := svc.TopN(ctx, 2)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 2)
				So(top[0].Rank, ShouldEqual, 1)
				So(top[1].Rank, ShouldEqual, 1)
				So([]string{top[0].PlayerID, top[1].PlayerID}, ShouldResemble, []string{"edu", "fabi"})
			})
		})
	})

	Convey("Given a store with no triangulars", t, func() {
		svc := service.New()
		res, err := svc.RecalculateAllPlayerStats(context.Background())
		So(err, ShouldBeNil)
		So(res.TriangularsProcessed, ShouldEqual, 0)
		So(res.PlayersUpdated, ShouldEqual, 0)
	})
}

func TestService_TopN(t *testing.T) {
	Convey("Given a leaderboard limit of two", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithMaxLeaderboardLimit(2))
		_, err := svc.CreateTriangular(ctx, model.Triangular{ID: "t1", PlayedOn: day, Rosters: rosters(), Matches: scenario()})
		So(err, ShouldBeNil)

		Convey("Then larger requests are capped", func() {
			top, err := svc.TopN(ctx, 50)
			So(err, ShouldBeNil)
			So(top, ShouldHaveLength, 2)
		})

		Convey("Then a non-positive limit is rejected", func() {
			_, err := svc.TopN(ctx, 0)
			So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
		})

		Convey("Then an unranked player is not found", func() {
			_, err := svc.Rank(ctx, "ghost")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestService_NoSeason(t *testing.T) {
	Convey("Given a service whose store has never seen a season", t, func() {
		ctx := context.Background()
		svc := service.New()
		created, err := svc.CreateTriangular(ctx, model.Triangular{ID: "t1", PlayedOn: day, Rosters: rosters(), Matches: []model.Match{
			{ID: "m1", Home: model.TeamA, Away: model.TeamB, HomeScore: 1, AwayScore: 0},
			{ID: "m2", Home: model.TeamA, Away: model.TeamC, HomeScore: 2, AwayScore: 0},
		}})
		So(err, ShouldBeNil)
		So(created.SeasonID, ShouldBeEmpty)

		Convey("Then the default filter still sees the triangular", func() {
			st, err := svc.PlayerStats(ctx, "ana", model.ActiveSeason())
			So(err, ShouldBeNil)
			So(st.Matches, ShouldEqual, 2)
			So(st.Wins, ShouldEqual, 2)
			So(st.TriangularWins, ShouldEqual, 1)
		})

		Convey("Then balancing uses the history", func() {
			teams, err := svc.BalanceTeams(ctx, []string{"ana", "bia", "caio", "duda", "edu", "fabi"}, model.ActiveSeason())
			So(err, ShouldBeNil)
			total := 0.0
			for _, team := range teams.Teams {
				total += team.Total
			}
			So(total, ShouldBeGreaterThan, 0)
		})

		Convey("When a season opens", func() {
			season, err := svc.CreateSeason(ctx, model.Season{ID: "s1", Name: "Spring", InitDate: day.AddDate(0, 0, 1)})
			So(err, ShouldBeNil)
			So(season.Active(), ShouldBeTrue)

			Convey("Then season-less history leaves the active scope but stays in all", func() {
				active, err := svc.PlayerStats(ctx, "ana", model.ActiveSeason())
				So(err, ShouldBeNil)
				So(active.Matches, ShouldEqual, 0)
				all, err := svc.PlayerStats(ctx, "ana", model.AllSeasons())
				So(err, ShouldBeNil)
				So(all.Matches, ShouldEqual, 2)
			})

			Convey("Then new triangulars join the season", func() {
				next, err := svc.CreateTriangular(ctx, model.Triangular{Rosters: rosters()})
				So(err, ShouldBeNil)
				So(next.SeasonID, ShouldEqual, "s1")
			})
		})
	})
}

func TestService_Seasons(t *testing.T) {
	Convey("Given a service with one open season", t, func() {
		ctx := context.Background()
		svc := service.New()
		_, err := svc.CreateSeason(ctx, model.Season{ID: "s1", Name: "Autumn", InitDate: day.AddDate(0, -1, 0)})
		So(err, ShouldBeNil)

		Convey("When another season opens", func() {
			_, err := svc.CreateSeason(ctx, model.Season{ID: "s2", Name: "Winter", InitDate: day})
			So(err, ShouldBeNil)

			Convey("Then the earlier season is closed where the new one starts", func() {
				seasons, err := svc.Seasons(ctx)
				So(err, ShouldBeNil)
				So(seasons, ShouldHaveLength, 2)
				So(seasons[0].ID, ShouldEqual, "s1")
				So(seasons[0].FinishDate, ShouldNotBeNil)
				So(seasons[0].FinishDate.Equal(day), ShouldBeTrue)
				So(seasons[1].Active(), ShouldBeTrue)
			})
		})

		Convey("When the open season is closed", func() {
			closed, err := svc.CloseSeason(ctx, "s1")
			So(err, ShouldBeNil)
			So(closed.Active(), ShouldBeFalse)

			Convey("Then closing it again conflicts", func() {
				_, err := svc.CloseSeason(ctx, "s1")
				So(errors.Is(err, model.ErrSeasonClosed), ShouldBeTrue)
			})

			Convey("Then new triangulars carry no season", func() {
				tri, err := svc.CreateTriangular(ctx, model.Triangular{Rosters: rosters()})
				So(err, ShouldBeNil)
				So(tri.SeasonID, ShouldBeEmpty)
			})
		})

		Convey("Then an unknown season cannot be closed", func() {
			_, err := svc.CloseSeason(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then a repeated id conflicts", func() {
			_, err := svc.CreateSeason(ctx, model.Season{ID: "s1", Name: "Again"})
			So(errors.Is(err, repository.ErrSeasonExists), ShouldBeTrue)
		})

		Convey("Then a season without a name is invalid", func() {
			_, err := svc.CreateSeason(ctx, model.Season{ID: "s9"})
			So(errors.Is(err, model.ErrInvalidSeason), ShouldBeTrue)
		})

		Convey("Then a season finishing before it starts is invalid", func() {
			before := day.AddDate(0, 0, -1)
			_, err := svc.CreateSeason(ctx, model.Season{ID: "s9", Name: "Odd", InitDate: day, FinishDate: &before})
			So(errors.Is(err, model.ErrInvalidSeason), ShouldBeTrue)
		})
	})
}

func TestService_CreateTriangularTwice(t *testing.T) {
	Convey("Given a created triangular with a recorded match", t, func() {
		ctx := context.Background()
		svc := service.New()
		_, err := svc.CreateTriangular(ctx, model.Triangular{ID: "t1", PlayedOn: day, Rosters: rosters()})
		So(err, ShouldBeNil)
		_, err = svc.RecordMatch(ctx, "t1", model.Match{ID: "m1", Home: model.TeamA, Away: model.TeamB, HomeScore: 1, AwayScore: 0})
		So(err, ShouldBeNil)

		Convey("When the same id is created again with other rosters", func() {
			other := map[model.TeamLabel][]string{
				model.TeamA: {"gil"},
				model.TeamB: {"hugo"},
				model.TeamC: {"ivo"},
			}
			_, err := svc.CreateTriangular(ctx, model.Triangular{ID: "t1", PlayedOn: day, Rosters: other})

			Convey("Then it conflicts", func() {
				So(errors.Is(err, repository.ErrTriangularExists), ShouldBeTrue)
				So(errors.Is(err, repository.ErrConflict), ShouldBeTrue)
			})

			Convey("And the stored matches and rosters are unchanged", func() {
				got, err := svc.Triangular(ctx, "t1")
				So(err, ShouldBeNil)
				So(got.Rosters, ShouldResemble, rosters())
				So(got.Matches, ShouldHaveLength, 1)
				So(got.Matches[0].ID, ShouldEqual, "m1")

				st, err := svc.PersistedPlayerStats(ctx, "ana")
				So(err, ShouldBeNil)
				So(st.Wins, ShouldEqual, 1)
				_, err = svc.PersistedPlayerStats(ctx, "gil")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_Players(t *testing.T) {
	Convey("Given a service with a played triangular", t, func() {
		ctx := context.Background()
		svc := service.New()
		_, err := svc.CreateTriangular(ctx, model.Triangular{ID: "t1", PlayedOn: day, Rosters: rosters(), Matches: scenario()})
		So(err, ShouldBeNil)

		Convey("When registering a player", func() {
			p, err := svc.RegisterPlayer(ctx, model.Player{ID: "ana", Name: "  Ana  "})
			So(err, ShouldBeNil)

			Convey("Then the player is stored with a trimmed name and a creation time", func() {
				So(p.Name, ShouldEqual, "Ana")
				So(p.CreatedAt.IsZero(), ShouldBeFalse)
				got, err := svc.Player(ctx, "ana")
				So(err, ShouldBeNil)
				So(got, ShouldResemble, p)
				all, err := svc.Players(ctx)
				So(err, ShouldBeNil)
				So(all, ShouldHaveLength, 1)
			})

			Convey("Then balancing fills the name", func() {
				teams, err := svc.BalanceTeams(ctx, []string{"ana", "bia", "caio"}, model.ActiveSeason())
				So(err, ShouldBeNil)
				names := map[string]string{}
				for _, team := range teams.Teams {
					for _, pl := range team.Players {
						names[pl.ID] = pl.Name
					}
				}
				So(names["ana"], ShouldEqual, "Ana")
				So(names["bia"], ShouldBeEmpty)
			})

			Convey("Then the same id cannot register twice", func() {
				_, err := svc.RegisterPlayer(ctx, model.Player{ID: "ana", Name: "Other"})
				So(errors.Is(err, repository.ErrPlayerExists), ShouldBeTrue)
			})
		})

		Convey("Then a player without a name is invalid", func() {
			_, err := svc.RegisterPlayer(ctx, model.Player{Name: " "})
			So(errors.Is(err, model.ErrInvalidPlayer), ShouldBeTrue)
		})

		Convey("Then a missing id is generated", func() {
			p, err := svc.RegisterPlayer(ctx, model.Player{Name: "Gil"})
			So(err, ShouldBeNil)
			So(p.ID, ShouldNotBeEmpty)
		})

		Convey("Then a player's matches are those of their team", func() {
			ms, err := svc.PlayerMatches(ctx, "ana")
			So(err, ShouldBeNil)
			So(ms, ShouldHaveLength, 2)
			So(ms[0].ID, ShouldEqual, "m1")
			So(ms[1].ID, ShouldEqual, "m3")
		})

		Convey("Then persisted stats follow the inline recompute", func() {
			st, err := svc.PersistedPlayerStats(ctx, "edu")
			So(err, ShouldBeNil)
			So(st.Matches, ShouldEqual, 2)
			So(st.TriangularWins, ShouldEqual, 1)
		})
	})
}

func TestService_RecalculateFailure(t *testing.T) {
	Convey("Given persisted stats and a leaderboard", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		svc := service.New(service.WithStore(store))
		_, err := svc.CreateTriangular(ctx, model.Triangular{ID: "t1", PlayedOn: day, Rosters: rosters(), Matches: scenario()})
		So(err, ShouldBeNil)
		_, err = svc.RecalculateAllPlayerStats(ctx)
		So(err, ShouldBeNil)

		before, err := store.PlayerStats(ctx, "edu")
		So(err, ShouldBeNil)
		topBefore, err := svc.TopN(ctx, 10)
		So(err, ShouldBeNil)
		rankBefore, err := svc.Rank(ctx, "ana")
		So(err, ShouldBeNil)

		Convey("When a malformed triangular sits in the store", func() {
			bad := model.Triangular{ID: "t-bad", PlayedOn: day.AddDate(0, 0, 1), Rosters: map[model.TeamLabel][]string{
				model.TeamA: {"edu", "gil"},
				model.TeamB: {"hugo"},
				model.TeamC: {"ivo"},
			}, Matches: []model.Match{
				{ID: "bad-1", Home: model.TeamA, Away: model.TeamA, HomeScore: 1, AwayScore: 0},
			}}
			So(store.SaveTriangular(ctx, bad), ShouldBeNil)

			_, err := svc.RecalculateAllPlayerStats(ctx)

			Convey("Then the rebuild fails as malformed", func() {
				So(errors.Is(err, triangular.ErrMalformedTriangular), ShouldBeTrue)
			})

			Convey("And the earlier stats are still persisted", func() {
				after, err := store.PlayerStats(ctx, "edu")
				So(err, ShouldBeNil)
				So(after, ShouldResemble, before)
				_, err = store.PlayerStats(ctx, "gil")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("And the leaderboard was not reset", func() {
				topAfter, err := svc.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(topAfter, ShouldResemble, topBefore)
				rankAfter, err := svc.Rank(ctx, "ana")
				So(err, ShouldBeNil)
				So(rankAfter, ShouldResemble, rankBefore)
				_, err = svc.Rank(ctx, "gil")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}
