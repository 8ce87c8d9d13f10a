package repository_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/xcleague/internal/adapters/repository"
	"github.com/okian/xcleague/internal/domain/model"
	"github.com/okian/xcleague/pkg/logger"
)

func init() {
	_ = logger.Init()
}

func sampleRace() model.RaceResult {
	return model.RaceResult{Round: "r1", Race: "U13", Athletes: []model.Athlete{
		{Name: "Ada Smith", Club: "Abingdon AC", Bib: "101", Position: 1, Time: 9*time.Minute + time.Second, Gender: model.Female, Category: "U13G", CategoryPosition: 1, GenderPosition: 1},
		{Name: "Al Brown", Club: "Witney RC", Bib: "103", Position: 2, Time: 9*time.Minute + 5*time.Second, Gender: model.Male, Category: "U13B", CategoryPosition: 1, GenderPosition: 1},
	}}
}

func sampleTeams() model.TeamResult {
	return model.TeamResult{Round: "r1", Category: "U13B", TeamSize: 3, Teams: []model.Team{
		{Position: 1, Club: "Abingdon AC", Label: "A", Category: "U13B", Score: 6, Members: []model.Athlete{
			{Name: "A1", Club: "Abingdon AC", Category: "U13B", GenderPosition: 1},
			{Name: "A2", Club: "Abingdon AC", Category: "U13B", GenderPosition: 2},
			{Name: "A3", Club: "Abingdon AC", Category: "U13B", GenderPosition: 3},
		}},
		{Position: 2, Club: "Witney RC", Label: "A", Category: "U13B", Score: 36, Members: []model.Athlete{
			{Name: "B1", Club: "Witney RC", Category: "U13B", GenderPosition: 5},
			{Name: "B2", Club: "Witney RC", Category: "U13B", GenderPosition: 10},
		}},
	}}
}

func sampleStandings() model.Standings {
	return model.Standings{
		Category: "Men", Kind: model.TeamStandings,
		Rounds: []string{"r1", "r2"}, RoundsProcessed: 2, RoundsCounted: 1,
		Records: []model.ScoreRecord{
			{Club: "Headington RR", Label: "A", Division: "1", RoundScores: map[string]int{"r1": 120, "r2": 100}, Total: 100},
			{Club: "Witney RC", Label: "B", Division: "2", RoundScores: map[string]int{}, Total: model.InvalidScore},
		},
	}
}

func withStores(t *testing.T, fn func(name string, s repository.Store)) {
	t.Helper()
	ctx := context.Background()

	csvStore, err := repository.NewCSVStore(t.TempDir())
	if err != nil {
		t.Fatalf("csv store: %v", err)
	}
	fn("csv", csvStore)

	sqlStore, err := repository.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "db", "league.db"))
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}
	defer func() { _ = sqlStore.Close() }()
	fn("sqlite", sqlStore)
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	withStores(t, func(name string, s repository.Store) {
		Convey("Given the "+name+" store", t, func() {
			Convey("Missing units are reported as not found", func() {
				_, err := s.LoadRaceResult(ctx, "r9", "U13")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)

				_, err = s.LoadTeamResult(ctx, "r9", "U13B")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

				_, err = s.LoadStandings(ctx, "Men", model.TeamStandings)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("A race result round-trips", func() {
				So(s.SaveRaceResult(ctx, sampleRace()), ShouldBeNil)
				got, err := s.LoadRaceResult(ctx, "r1", "U13")
				So(err, ShouldBeNil)
				So(cmp.Diff(sampleRace(), got), ShouldBeEmpty)

				Convey("and saving again replaces it", func() {
					short := sampleRace()
					short.Athletes = short.Athletes[:1]
					So(s.SaveRaceResult(ctx, short), ShouldBeNil)
					got, err := s.LoadRaceResult(ctx, "r1", "U13")
					So(err, ShouldBeNil)
					So(got.Athletes, ShouldHaveLength, 1)
				})

				Convey("and the round is listed", func() {
					So(s.SaveRaceResult(ctx, model.RaceResult{Round: "r10", Race: "Men"}), ShouldBeNil)
					So(s.SaveRaceResult(ctx, model.RaceResult{Round: "r2", Race: "Women"}), ShouldBeNil)
					rounds, err := s.ListRounds(ctx)
					So(err, ShouldBeNil)
					So(rounds, ShouldResemble, []string{"r1", "r2", "r10"})

					races, err := s.ListRaces(ctx, "r1")
					So(err, ShouldBeNil)
					So(races, ShouldResemble, []string{"U13"})
				})
			})

			Convey("A team result round-trips", func() {
				So(s.SaveTeamResult(ctx, sampleTeams()), ShouldBeNil)
				got, err := s.LoadTeamResult(ctx, "r1", "U13B")
				So(err, ShouldBeNil)
				So(cmp.Diff(sampleTeams(), got), ShouldBeEmpty)
			})

			Convey("Standings round-trip", func() {
				So(s.SaveStandings(ctx, sampleStandings()), ShouldBeNil)
				got, err := s.LoadStandings(ctx, "Men", model.TeamStandings)
				So(err, ShouldBeNil)
				So(cmp.Diff(sampleStandings(), got), ShouldBeEmpty)

				_, err = s.LoadStandings(ctx, "Men", model.IndividualStandings)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("Runs are recorded in order", func() {
				start := time.Date(2025, 10, 4, 10, 0, 0, 0, time.UTC)
				So(s.RecordRun(ctx, repository.Run{ID: "a", StartedAt: start, FinishedAt: start.Add(time.Second), Rounds: []string{"r1"}, Files: 3}), ShouldBeNil)
				So(s.RecordRun(ctx, repository.Run{ID: "b", StartedAt: start.Add(time.Minute), FinishedAt: start.Add(2 * time.Minute), Rounds: []string{"r1", "r2"}, Files: 6, Failed: 1}), ShouldBeNil)
				runs, err := s.Runs(ctx)
				So(err, ShouldBeNil)
				So(runs, ShouldHaveLength, 2)
				So(runs[1].ID, ShouldEqual, "b")
				So(runs[1].Rounds, ShouldResemble, []string{"r1", "r2"})
				So(runs[1].Failed, ShouldEqual, 1)
				So(runs[0].FinishedAt.Equal(start.Add(time.Second)), ShouldBeTrue)
			})

			Convey("Unsafe keys are rejected", func() {
				err := s.SaveRaceResult(ctx, model.RaceResult{Round: "../r1", Race: "U13"})
				So(errors.Is(err, repository.ErrInvalidKey), ShouldBeTrue)
			})
		})
	})
}

func TestCSVStoreLayout(t *testing.T) {
	ctx := context.Background()

	Convey("Given a CSV store", t, func() {
		root := t.TempDir()
		s, err := repository.NewCSVStore(root)
		So(err, ShouldBeNil)

		So(s.SaveRaceResult(ctx, sampleRace()), ShouldBeNil)
		So(s.SaveTeamResult(ctx, sampleTeams()), ShouldBeNil)
		So(s.SaveStandings(ctx, sampleStandings()), ShouldBeNil)

		Convey("Then files follow the round/race layout", func() {
			for _, p := range []string{"r1/U13.csv", "r1/teams/U13B.csv", "scores/teams/Men.csv"} {
				_, err := os.Stat(filepath.Join(root, p))
				So(err, ShouldBeNil)
			}
			races, err := s.ListRaces(ctx, "r1")
			So(err, ShouldBeNil)
			So(races, ShouldResemble, []string{"U13"})
		})

		Convey("Then saving unchanged standings twice is byte-identical", func() {
			path := filepath.Join(root, "scores", "teams", "Men.csv")
			first, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(s.SaveStandings(ctx, sampleStandings()), ShouldBeNil)
			second, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(second), ShouldEqual, string(first))
		})

		Convey("Then no temporary files are left behind", func() {
			entries, err := os.ReadDir(filepath.Join(root, "r1"))
			So(err, ShouldBeNil)
			for _, e := range entries {
				So(strings.HasPrefix(e.Name(), "."), ShouldBeFalse)
			}
		})
	})
}
