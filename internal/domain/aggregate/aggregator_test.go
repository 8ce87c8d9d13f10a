package aggregate_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/okian/xcleague/internal/domain/aggregate"
	"github.com/okian/xcleague/internal/domain/model"
	"github.com/okian/xcleague/internal/domain/normalize"
	. "github.com/smartystreets/goconvey/convey"
)

type memSource struct {
	races map[string]model.RaceResult
	teams map[string]model.TeamResult
	fail  error
}

func newMemSource() *memSource {
	return &memSource{races: map[string]model.RaceResult{}, teams: map[string]model.TeamResult{}}
}

func (m *memSource) LoadRaceResult(_ context.Context, round, race string) (model.RaceResult, error) {
	if m.fail != nil {
		return model.RaceResult{}, m.fail
	}
	r, ok := m.races[round+"/"+race]
	if !ok {
		return model.RaceResult{}, fmt.Errorf("%s/%s: %w", round, race, model.ErrNotFound)
	}
	return r, nil
}

func (m *memSource) LoadTeamResult(_ context.Context, round, category string) (model.TeamResult, error) {
	t, ok := m.teams[round+"/"+category]
	if !ok {
		return model.TeamResult{}, model.ErrNotFound
	}
	return t, nil
}

// putRace stores athletes of category code finishing in the given name order.
func (m *memSource) putRace(round, race, code string, g model.Gender, names ...string) {
	athletes := make([]model.Athlete, len(names))
	for i, n := range names {
		athletes[i] = model.Athlete{Name: n, Club: "Club " + n, Position: i + 1, Category: code, Gender: g}
	}
	normalize.Rank(athletes)
	m.races[round+"/"+race] = model.RaceResult{Round: round, Race: race, Athletes: athletes}
}

type catalog map[string]model.CategoryDefinition

func (c catalog) Category(code string) (model.CategoryDefinition, bool) {
	d, ok := c[code]
	return d, ok
}

var defs = catalog{
	"U13B":        {Code: "U13B", Kind: model.KindTeam, Gender: model.Male, Race: "U13", TeamSize: 3},
	"MV40":        {Code: "MV40", Kind: model.KindIndividual, Gender: model.Male, Race: "Men"},
	"MensOverall": {Code: "MensOverall", Kind: model.KindOverall, Gender: model.Male, Race: "Men"},
	"Men":         {Code: "Men", Kind: model.KindTeam, Gender: model.Male, Race: "Men", TeamSize: 7, Pooled: true},
}

func totals(s model.Standings) []int {
	out := make([]int, len(s.Records))
	for i, r := range s.Records {
		out[i] = r.Total
	}
	return out
}

func TestRecomputeCategory_DropWorstRound(t *testing.T) {
	Convey("Given three athletes over two rounds", t, func() {
		src := newMemSource()
		src.putRace("r1", "U13", "U13B", model.Male, "A", "B", "C")
		src.putRace("r2", "U13", "U13B", model.Male, "B", "A", "C")
		agg := aggregate.New(defs, src, []string{"r1", "r2", "r3"})

		s, err := agg.RecomputeCategory(context.Background(), "U13B")
		So(err, ShouldBeNil)

		Convey("Then only the best round counts", func() {
			So(s.RoundsProcessed, ShouldEqual, 2)
			So(s.RoundsCounted, ShouldEqual, 1)
			So(totals(s), ShouldResemble, []int{1, 1, 3})
		})

		Convey("Then summing both rounds gives 3, 3, 6", func() {
			all := make([]int, len(s.Records))
			for i := range s.Records {
				all[i] = s.Records[i].TotalFor(2)
			}
			So(all, ShouldResemble, []int{3, 3, 6})
		})

		Convey("Then ties are ordered by name", func() {
			So(s.Records[0].Name, ShouldEqual, "A")
			So(s.Records[1].Name, ShouldEqual, "B")
		})

		Convey("When a third round arrives the count changes to two", func() {
			src.putRace("r3", "U13", "U13B", model.Male, "C", "B", "A")

			s3, err := agg.RecomputeCategory(context.Background(), "U13B")
			So(err, ShouldBeNil)
			So(s3.RoundsProcessed, ShouldEqual, 3)
			So(s3.RoundsCounted, ShouldEqual, 2)
			// A: 1,2,3 -> 3; B: 2,1,2 -> 3; C: 3,3,1 -> 4
			So(totals(s3), ShouldResemble, []int{3, 3, 4})
		})

		Convey("When recomputed twice the result is identical", func() {
			again, err := agg.RecomputeCategory(context.Background(), "U13B")
			So(err, ShouldBeNil)
			So(cmp.Diff(s, again), ShouldBeEmpty)
		})
	})
}

func TestRecomputeCategory_SingleRoundAndMissingEntries(t *testing.T) {
	Convey("Given a single round", t, func() {
		src := newMemSource()
		src.putRace("r1", "Men", "MV40", model.Male, "X", "Y")
		agg := aggregate.New(defs, src, []string{"r1", "r2"})

		s, err := agg.RecomputeCategory(context.Background(), "MV40")
		So(err, ShouldBeNil)
		So(s.RoundsCounted, ShouldEqual, 1)
		So(totals(s), ShouldResemble, []int{1, 2})
	})

	Convey("Given an athlete who ran fewer rounds than are counted", t, func() {
		src := newMemSource()
		src.putRace("r1", "Men", "MV40", model.Male, "X", "Y", "Z")
		src.putRace("r2", "Men", "MV40", model.Male, "X", "Y")
		src.putRace("r3", "Men", "MV40", model.Male, "Y", "X")
		agg := aggregate.New(defs, src, []string{"r1", "r2", "r3"})

		s, err := agg.RecomputeCategory(context.Background(), "MV40")
		So(err, ShouldBeNil)

		Convey("Then the total is invalid and sorts last", func() {
			last := s.Records[len(s.Records)-1]
			So(last.Name, ShouldEqual, "Z")
			So(last.Total, ShouldEqual, model.InvalidScore)
			So(last.Valid(), ShouldBeFalse)
			So(last.RoundScores, ShouldResemble, map[string]int{"r1": 3})
		})
	})

	Convey("Given no rounds with data", t, func() {
		agg := aggregate.New(defs, newMemSource(), []string{"r1"})
		s, err := agg.RecomputeCategory(context.Background(), "MV40")
		So(err, ShouldBeNil)
		So(s.RoundsProcessed, ShouldEqual, 0)
		So(s.Records, ShouldBeEmpty)
	})
}

func TestRecomputeCategory_Overall(t *testing.T) {
	Convey("Given a men's race spanning several categories", t, func() {
		src := newMemSource()
		src.races["r1/Men"] = model.RaceResult{Round: "r1", Race: "Men", Athletes: []model.Athlete{
			{Name: "P", Club: "C1", Position: 1, Category: "SM", Gender: model.Male},
			{Name: "Q", Club: "C2", Position: 2, Category: "MV40", Gender: model.Male},
		}}
		normalize.Rank(src.races["r1/Men"].Athletes)
		agg := aggregate.New(defs, src, []string{"r1"})

		overall, err := agg.RecomputeCategory(context.Background(), "MensOverall")
		So(err, ShouldBeNil)
		So(totals(overall), ShouldResemble, []int{1, 2})

		v40, err := agg.RecomputeCategory(context.Background(), "MV40")
		So(err, ShouldBeNil)
		So(totals(v40), ShouldResemble, []int{1})
	})
}

type divisions map[string]string

func (d divisions) Division(_, team string) string { return d[team] }

func TestRecomputeTeams(t *testing.T) {
	Convey("Given team tables for two of three rounds", t, func() {
		src := newMemSource()
		src.teams["r1/Men"] = model.TeamResult{Round: "r1", Category: "Men", Teams: []model.Team{
			{Position: 1, Club: "Abingdon AC", Label: "A", Score: 40},
			{Position: 2, Club: "Abingdon AC", Label: "B", Score: 90},
		}}
		src.teams["r3/Men"] = model.TeamResult{Round: "r3", Category: "Men", Teams: []model.Team{
			{Position: 1, Club: "Abingdon AC", Label: "B", Score: 50},
			{Position: 2, Club: "Abingdon AC", Label: "A", Score: 60},
		}}
		agg := aggregate.New(defs, src, []string{"r1", "r2", "r3"},
			aggregate.WithDivisions(divisions{"Abingdon AC A": "1", "Abingdon AC B": "2"}))

		s, err := agg.RecomputeTeams(context.Background(), "Men")
		So(err, ShouldBeNil)

		Convey("Then the missing round does not count as processed", func() {
			So(s.RoundsProcessed, ShouldEqual, 2)
			So(s.RoundsCounted, ShouldEqual, 1)
		})

		Convey("Then totals use each team's best round score", func() {
			So(totals(s), ShouldResemble, []int{40, 50})
			So(s.Records[0].DisplayName(), ShouldEqual, "Abingdon AC A")
			So(s.Records[0].Division, ShouldEqual, "1")
			So(s.Records[1].Division, ShouldEqual, "2")
		})
	})

	Convey("Given a non-team category", t, func() {
		_, err := aggregate.New(defs, newMemSource(), nil).RecomputeTeams(context.Background(), "MV40")
		So(errors.Is(err, model.ErrNotATeamCategory), ShouldBeTrue)
	})
}

func TestRecompute_Errors(t *testing.T) {
	Convey("Given a failing source", t, func() {
		src := newMemSource()
		src.fail = errors.New("disk on fire")
		_, err := aggregate.New(defs, src, []string{"r1"}).RecomputeCategory(context.Background(), "MV40")
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "disk on fire")
	})

	Convey("Given an unknown category", t, func() {
		_, err := aggregate.New(defs, newMemSource(), nil).RecomputeCategory(context.Background(), "ZZ")
		So(errors.Is(err, model.ErrUnknownCategory), ShouldBeTrue)
	})

	Convey("Given a pooled team category", t, func() {
		_, err := aggregate.New(defs, newMemSource(), nil).RecomputeCategory(context.Background(), "Men")
		So(errors.Is(err, model.ErrConfiguration), ShouldBeTrue)
	})
}
