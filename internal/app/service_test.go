package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/xcleague/internal/adapters/report"
	"github.com/okian/xcleague/internal/adapters/repository"
	service "github.com/okian/xcleague/internal/app"
	"github.com/okian/xcleague/internal/domain/category"
	"github.com/okian/xcleague/internal/domain/model"
	"github.com/okian/xcleague/internal/league"
	"github.com/okian/xcleague/pkg/logger"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func testLeague() *league.League {
	return &league.League{
		Name:   "Test League",
		Rounds: []string{"r1", "r2"},
		Categories: []model.CategoryDefinition{
			{Code: "U13B", Name: "U13 Boys", Kind: model.KindTeam, Gender: model.Male, Race: "U13", TeamSize: 3},
			{Code: "SM", Name: "Senior Men", Kind: model.KindIndividual, Gender: model.Male, Race: "Men"},
			{Code: "Men", Name: "Men", Kind: model.KindTeam, Gender: model.Male, Race: "Men", TeamSize: 2, Pooled: true},
			{Code: "MensOverall", Name: "Mens Overall", Kind: model.KindOverall, Gender: model.Male, Race: "Men"},
		},
		CategoryMappings: []category.Mapping{
			{Gender: model.Male, Label: "U13B", Code: "U13B"},
			{Gender: model.Male, Label: "SM", Code: "SM"},
		},
		RaceGenders: map[string]model.Gender{"U13": model.Male, "Men": model.Male},
		Guests:      []string{"99"},
	}
}

const (
	r1U13 = `Pos,Race No,Name,Club,Category,Time
1,11,Al One,Abingdon,U13B,10:01
2,12,Bo Two,Oxford,U13B,10:05
3,99,Guest Runner,Oxford,U13B,10:06
4,13,Cy Three,Abingdon,U13B,10:10
5,14,Di Four,Abingdon,U13B,10:20
6,15,Ed Five,Oxford,U13B,10:30
`
	r1Men = `Pos,Race No,Name,Club,Category,Time
1,21,Fred,Abingdon,SM,30:00
2,22,Gus,Oxford,SM,31:00
3,23,Hal,Abingdon,SM,32:00
`
	r2Men = `Pos,Race No,Name,Club,Category,Time
1,22,Gus,Oxford,SM,30:30
2,21,Fred,Abingdon,SM,30:40
`
	// No Race No column.
	r2U13Broken = `Pos,Name,Club,Time
1,Al One,Abingdon,10:01
`
)

func writeFile(path, content string) {
	So(os.MkdirAll(filepath.Dir(path), 0o755), ShouldBeNil)
	So(os.WriteFile(path, []byte(content), 0o644), ShouldBeNil)
}

// recorder is a renderer keeping the tables it was given.
type recorder struct {
	name   string
	err    error
	tables []report.Table
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) Render(_ context.Context, tables []report.Table) error {
	if r.err != nil {
		return r.err
	}
	r.tables = tables
	return nil
}

func names(s model.Standings) []string {
	out := make([]string, len(s.Records))
	for i, r := range s.Records {
		out[i] = r.DisplayName()
	}
	return out
}

func totals(s model.Standings) []int {
	out := make([]int, len(s.Records))
	for i, r := range s.Records {
		out[i] = r.Total
	}
	return out
}

func TestService_New(t *testing.T) {
	Convey("Given no store", t, func() {
		_, err := service.New()

		Convey("Then construction fails", func() {
			So(errors.Is(err, service.ErrNoStore), ShouldBeTrue)
		})
	})

	Convey("Given a league with a broken category", t, func() {
		store, err := repository.NewCSVStore(t.TempDir())
		So(err, ShouldBeNil)
		l := testLeague()
		l.Categories[0].TeamSize = 0

		_, err = service.New(service.WithStore(store), service.WithLeague(l))

		Convey("Then construction fails with a configuration error", func() {
			So(errors.Is(err, model.ErrConfiguration), ShouldBeTrue)
		})
	})
}

func TestService_Run(t *testing.T) {
	Convey("Given two rounds of race files with one broken export", t, func() {
		root := t.TempDir()
		input := filepath.Join(root, "input")
		writeFile(filepath.Join(input, "r1", "U13.csv"), r1U13)
		writeFile(filepath.Join(input, "r1", "Men.csv"), r1Men)
		writeFile(filepath.Join(input, "r1", "notes.txt"), "ignored")
		writeFile(filepath.Join(input, "r1", ".Men.csv"), "ignored")
		writeFile(filepath.Join(input, "r2", "Men.csv"), r2Men)
		writeFile(filepath.Join(input, "r2", "U13.csv"), r2U13Broken)

		store, err := repository.NewCSVStore(filepath.Join(root, "data"))
		So(err, ShouldBeNil)
		rec := &recorder{name: "recorder"}

		svc, err := service.New(
			service.WithStore(store),
			service.WithLeague(testLeague()),
			service.WithInputDir(input),
			service.WithWorkerCount(2),
			service.WithRenderers(rec),
		)
		So(err, ShouldBeNil)

		ctx := context.Background()
		rep, err := svc.Run(ctx, nil)

		Convey("Then the broken file fails without stopping the others", func() {
			So(errors.Is(err, service.ErrRaceFile), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "r2/U13")
			So(len(rep.Files), ShouldEqual, 4)
			So(rep.Failed(), ShouldEqual, 1)
			So(rep.Rounds, ShouldResemble, []string{"r1", "r2"})
			So(rep.FailedCategories, ShouldBeEmpty)
			So(rep.Categories, ShouldResemble, []string{"U13B", "SM", "Men", "MensOverall"})
			So(rep.Rendered, ShouldResemble, []string{"recorder"})
		})

		Convey("Then guests are removed and positions renumbered", func() {
			race, err := store.LoadRaceResult(ctx, "r1", "U13")
			So(err, ShouldBeNil)
			pos := make([]int, len(race.Athletes))
			for i, a := range race.Athletes {
				pos[i] = a.Position
				So(a.Bib, ShouldNotEqual, "99")
			}
			So(pos, ShouldResemble, []int{1, 2, 3, 4, 5})

			_, err = store.LoadRaceResult(ctx, "r2", "U13")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then club teams are built with penalties", func() {
			tr, err := store.LoadTeamResult(ctx, "r1", "U13B")
			So(err, ShouldBeNil)
			So(len(tr.Teams), ShouldEqual, 2)
			So(tr.Teams[0].Name(), ShouldEqual, "Abingdon A")
			So(tr.Teams[0].Score, ShouldEqual, 8)
			So(tr.Teams[1].Name(), ShouldEqual, "Oxford A")
			So(tr.Teams[1].Score, ShouldEqual, 13)
		})

		Convey("Then standings drop the worst round once two rounds have data", func() {
			sm, err := store.LoadStandings(ctx, "SM", model.IndividualStandings)
			So(err, ShouldBeNil)
			So(sm.RoundsProcessed, ShouldEqual, 2)
			So(sm.RoundsCounted, ShouldEqual, 1)
			So(names(sm), ShouldResemble, []string{"Fred", "Gus", "Hal"})
			So(totals(sm), ShouldResemble, []int{1, 1, 3})

			men, err := store.LoadStandings(ctx, "Men", model.TeamStandings)
			So(err, ShouldBeNil)
			So(names(men), ShouldResemble, []string{"Abingdon A", "Oxford A"})
			So(totals(men), ShouldResemble, []int{4, 4})

			u13, err := store.LoadStandings(ctx, "U13B", model.IndividualStandings)
			So(err, ShouldBeNil)
			So(u13.RoundsProcessed, ShouldEqual, 1)
			So(totals(u13), ShouldResemble, []int{1, 2, 3, 4, 5})
		})

		Convey("Then every table is handed to the renderer", func() {
			titles := make([]string, len(rec.tables))
			for i, tb := range rec.tables {
				titles[i] = tb.Title
			}
			So(titles, ShouldResemble, []string{
				"U13 Boys Individuals", "U13 Boys Teams", "Senior Men Individuals", "Men Teams", "Mens Overall",
			})
		})

		Convey("Then the run is recorded", func() {
			runs, err := store.Runs(ctx)
			So(err, ShouldBeNil)
			So(len(runs), ShouldEqual, 1)
			So(runs[0].ID, ShouldEqual, rep.ID)
			So(runs[0].Files, ShouldEqual, 4)
			So(runs[0].Failed, ShouldEqual, 1)
		})

		Convey("When the run is repeated over unchanged files", func() {
			path := filepath.Join(root, "data", "scores", "SM.csv")
			before, err := os.ReadFile(path)
			So(err, ShouldBeNil)

			_, _ = svc.Run(ctx, nil)
			after, err := os.ReadFile(path)
			So(err, ShouldBeNil)

			Convey("Then the standings are byte-identical", func() {
				So(cmp.Diff(string(before), string(after)), ShouldBeEmpty)
			})
		})

		Convey("When a third round adds data", func() {
			l := testLeague()
			l.Rounds = append(l.Rounds, "r3")
			writeFile(filepath.Join(input, "r3", "Men.csv"), r1Men)
			svc3, err := service.New(
				service.WithStore(store),
				service.WithLeague(l),
				service.WithInputDir(input),
			)
			So(err, ShouldBeNil)
			_, err = svc3.Run(ctx, []string{"r3"})
			So(err, ShouldBeNil)

			Convey("Then two rounds count toward each total", func() {
				sm, err := store.LoadStandings(ctx, "SM", model.IndividualStandings)
				So(err, ShouldBeNil)
				So(sm.RoundsCounted, ShouldEqual, 2)
				So(names(sm), ShouldResemble, []string{"Fred", "Gus", "Hal"})
				So(totals(sm), ShouldResemble, []int{2, 3, 6})
			})
		})

		Convey("When only reports are rendered again", func() {
			again := &recorder{name: "again"}
			svc2, err := service.New(
				service.WithStore(store),
				service.WithLeague(testLeague()),
				service.WithInputDir(input),
				service.WithRenderers(again),
			)
			So(err, ShouldBeNil)
			rendered, err := svc2.Render(ctx)

			Convey("Then the stored standings produce the same tables", func() {
				So(err, ShouldBeNil)
				So(rendered, ShouldResemble, []string{"again"})
				So(cmp.Diff(rec.tables, again.tables), ShouldBeEmpty)
			})
		})
	})
}

func TestService_RunFailures(t *testing.T) {
	Convey("Given a service over a valid round", t, func() {
		root := t.TempDir()
		input := filepath.Join(root, "input")
		writeFile(filepath.Join(input, "r1", "Men.csv"), r1Men)
		store, err := repository.NewCSVStore(filepath.Join(root, "data"))
		So(err, ShouldBeNil)

		broken := &recorder{name: "broken", err: errors.New("disk full")}
		ok := &recorder{name: "ok"}
		svc, err := service.New(
			service.WithStore(store),
			service.WithLeague(testLeague()),
			service.WithInputDir(input),
			service.WithRenderers(broken, ok),
		)
		So(err, ShouldBeNil)

		Convey("When an unknown round is requested", func() {
			_, err := svc.Run(context.Background(), []string{"r9"})

			Convey("Then nothing runs", func() {
				So(errors.Is(err, league.ErrUnknownRound), ShouldBeTrue)
			})
		})

		Convey("When one renderer fails", func() {
			rep, err := svc.Run(context.Background(), []string{"r1"})

			Convey("Then the other renderer still runs", func() {
				So(errors.Is(err, service.ErrRender), ShouldBeTrue)
				So(rep.Rendered, ShouldResemble, []string{"ok"})
				So(ok.tables, ShouldNotBeEmpty)
			})
		})

		Convey("When the input directory is missing", func() {
			svc, err := service.New(
				service.WithStore(store),
				service.WithLeague(testLeague()),
				service.WithInputDir(filepath.Join(root, "nope")),
			)
			So(err, ShouldBeNil)
			_, err = svc.Run(context.Background(), nil)

			Convey("Then the run fails", func() {
				So(errors.Is(err, service.ErrNoInputDir), ShouldBeTrue)
			})
		})
	})
}

func TestService_Watch(t *testing.T) {
	Convey("Given a watched input directory", t, func() {
		root := t.TempDir()
		input := filepath.Join(root, "input")
		So(os.MkdirAll(filepath.Join(input, "r1"), 0o755), ShouldBeNil)
		store, err := repository.NewCSVStore(filepath.Join(root, "data"))
		So(err, ShouldBeNil)

		svc, err := service.New(
			service.WithStore(store),
			service.WithLeague(testLeague()),
			service.WithInputDir(input),
			service.WithDebounce(50*time.Millisecond),
		)
		So(err, ShouldBeNil)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- svc.Watch(ctx, nil) }()

		Convey("When a race file appears", func() {
			var loadErr error
			deadline := time.Now().Add(5 * time.Second)
			for time.Now().Before(deadline) {
				// Rewritten each pass in case the watcher was not ready yet.
				writeFile(filepath.Join(input, "r1", "Men.csv"), r1Men)
				time.Sleep(150 * time.Millisecond)
				if _, loadErr = store.LoadRaceResult(ctx, "r1", "Men"); loadErr == nil {
					break
				}
			}
			cancel()

			Convey("Then the round is processed and Watch stops cleanly", func() {
				So(loadErr, ShouldBeNil)
				So(<-done, ShouldBeNil)
			})
		})
	})
}
