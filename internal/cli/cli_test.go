package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/xcleague/internal/adapters/http/api"
	"github.com/okian/xcleague/internal/adapters/repository"
	"github.com/okian/xcleague/internal/config"
	"github.com/okian/xcleague/internal/domain/category"
	"github.com/okian/xcleague/internal/domain/model"
	"github.com/okian/xcleague/internal/league"
	"github.com/okian/xcleague/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const (
	menR1 = `Pos,Race No,Name,Club,Category,Time
1,21,Fred,Abingdon,SM,30:00
2,22,Gus,Oxford,SM,31:00
3,23,Hal,Abingdon,SM,32:00
`
	menR2 = `Pos,Race No,Name,Club,Category,Time
1,22,Gus,Oxford,SM,30:30
2,21,Fred,Abingdon,SM,30:40
`
)

// writeLeague stores a small two-round league as YAML and returns its path.
func writeLeague(dir string) string {
	l := &league.League{
		Name:   "Test League",
		Rounds: []string{"r1", "r2"},
		Categories: []model.CategoryDefinition{
			{Code: "SM", Name: "Senior Men", Kind: model.KindIndividual, Gender: model.Male, Race: "Men"},
			{Code: "Men", Name: "Men", Kind: model.KindTeam, Gender: model.Male, Race: "Men", TeamSize: 2, Pooled: true},
		},
		CategoryMappings: []category.Mapping{{Gender: model.Male, Label: "SM", Code: "SM"}},
		RaceGenders:      map[string]model.Gender{"Men": model.Male},
	}
	var buf bytes.Buffer
	convey.So(l.Encode(&buf), convey.ShouldBeNil)
	path := filepath.Join(dir, "league.yaml")
	convey.So(os.WriteFile(path, buf.Bytes(), 0o644), convey.ShouldBeNil)
	return path
}

func writeInput(dir string) {
	for path, content := range map[string]string{
		filepath.Join(dir, "r1", "Men.csv"): menR1,
		filepath.Join(dir, "r2", "Men.csv"): menR2,
	} {
		convey.So(os.MkdirAll(filepath.Dir(path), 0o755), convey.ShouldBeNil)
		convey.So(os.WriteFile(path, []byte(content), 0o644), convey.ShouldBeNil)
	}
}

// execute runs the command tree with args and returns stdout.
func execute(args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestLeagueCommands(t *testing.T) {
	convey.Convey("Given the built-in league", t, func() {
		convey.Convey("When it is dumped", func() {
			out, err := execute("league", "dump")

			convey.Convey("Then the YAML parses back into the same league", func() {
				convey.So(err, convey.ShouldBeNil)
				l, err := league.Parse(bytes.NewBufferString(out))
				convey.So(err, convey.ShouldBeNil)
				convey.So(l.Name, convey.ShouldEqual, league.Default().Name)
				convey.So(l.Rounds, convey.ShouldResemble, league.Default().Rounds)
				convey.So(len(l.Categories), convey.ShouldEqual, len(league.Default().Categories))
			})
		})

		convey.Convey("When it is validated", func() {
			out, err := execute("league", "validate")

			convey.Convey("Then it reports success", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "ok:")
			})
		})
	})

	convey.Convey("Given a league file with an unknown key", t, func() {
		path := filepath.Join(t.TempDir(), "league.yaml")
		convey.So(os.WriteFile(path, []byte("name: x\nbogus: 1\n"), 0o644), convey.ShouldBeNil)

		convey.Convey("Then validation fails", func() {
			_, err := execute("league", "validate", "--league", path)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestConfigFlags(t *testing.T) {
	convey.Convey("Given an unknown store backend", t, func() {
		_, err := execute("league", "validate", "--store", "mongo")

		convey.Convey("Then the configuration is rejected", func() {
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given an unknown log format", t, func() {
		_, err := execute("league", "validate", "--log-format", "xml")

		convey.Convey("Then the configuration is rejected", func() {
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestProcessCommand(t *testing.T) {
	convey.Convey("Given two rounds of race files and a league file", t, func() {
		root := t.TempDir()
		input := filepath.Join(root, "input")
		output := filepath.Join(root, "output")
		writeInput(input)
		leagueFile := writeLeague(root)

		convey.Convey("When processing into the CSV store", func() {
			data := filepath.Join(root, "data")
			out, err := execute("process",
				"--league", leagueFile, "--input", input, "--data", data, "--output", output, "--workers", "2")

			convey.Convey("Then every file is processed and both reports are written", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "2 files (0 failed), 2 categories")
				_, err = os.Stat(filepath.Join(output, excelFile))
				convey.So(err, convey.ShouldBeNil)
				_, err = os.Stat(filepath.Join(output, pdfFile))
				convey.So(err, convey.ShouldBeNil)
			})

			convey.Convey("And render rebuilds the reports from the store alone", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(os.RemoveAll(output), convey.ShouldBeNil)

				out, err := execute("render",
					"--league", leagueFile, "--input", input, "--data", data, "--output", output, "--no-pdf")
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "rendered:")
				_, err = os.Stat(filepath.Join(output, excelFile))
				convey.So(err, convey.ShouldBeNil)
				_, err = os.Stat(filepath.Join(output, pdfFile))
				convey.So(os.IsNotExist(err), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When processing into the SQLite store without reports", func() {
			db := filepath.Join(root, "league.db")
			_, err := execute("process",
				"--league", leagueFile, "--input", input, "--output", output,
				"--store", "sqlite", "--sqlite-path", db, "--no-excel", "--no-pdf")

			convey.Convey("Then the standings are stored and nothing is rendered", func() {
				convey.So(err, convey.ShouldBeNil)
				_, err = os.Stat(output)
				convey.So(os.IsNotExist(err), convey.ShouldBeTrue)

				store, err := repository.NewSQLiteStore(context.Background(), db)
				convey.So(err, convey.ShouldBeNil)
				defer store.Close()
				st, err := store.LoadStandings(context.Background(), "SM", model.IndividualStandings)
				convey.So(err, convey.ShouldBeNil)
				convey.So(st.RoundsProcessed, convey.ShouldEqual, 2)
				convey.So(len(st.Records), convey.ShouldEqual, 3)
				convey.So(st.Records[0].Total, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When a round outside the league is requested", func() {
			_, err := execute("process",
				"--league", leagueFile, "--input", input, "--data", filepath.Join(root, "data"),
				"--output", output, "--rounds", "r9")

			convey.Convey("Then the run is refused", func() {
				convey.So(errors.Is(err, league.ErrUnknownRound), convey.ShouldBeTrue)
			})
		})
	})
}

func TestServeMux(t *testing.T) {
	convey.Convey("Given the serve mux over an empty store", t, func() {
		store, err := repository.NewCSVStore(t.TempDir())
		convey.So(err, convey.ShouldBeNil)
		rules, err := league.Default().Rules()
		convey.So(err, convey.ShouldBeNil)
		mux := newMux(context.Background(), api.NewServer(store, rules))

		convey.Convey("Then the API and its documentation are both routed", func() {
			for _, path := range []string{"/healthz", "/categories", "/openapi.yaml", "/api-docs"} {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("Then standings that were never computed are not found", func() {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/standings/U13B", http.NoBody))
			convey.So(w.Code, convey.ShouldEqual, http.StatusNotFound)
		})
	})
}
