// Package aggregate rolls per-round results into cumulative season standings.
//
// Standings are always rebuilt from the per-round results: previously saved
// cumulative tables are never read. The number of rounds counted toward a
// total is derived from how many rounds currently hold data for the
// category, so it changes as rounds are added.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/okian/xcleague/internal/domain/model"
)

// Source reads persisted per-round results. Absent data is reported with an
// error wrapping model.ErrNotFound.
type Source interface {
	LoadRaceResult(ctx context.Context, round, race string) (model.RaceResult, error)
	LoadTeamResult(ctx context.Context, round, category string) (model.TeamResult, error)
}

// Categories looks up category definitions.
type Categories interface {
	Category(code string) (model.CategoryDefinition, bool)
}

// DivisionResolver assigns a team to a league division, or "" for none.
type DivisionResolver interface {
	Division(category, team string) string
}

// Aggregator recomputes standings for one category at a time. It holds no
// mutable state and may be used from several goroutines.
type Aggregator struct {
	categories Categories
	source     Source
	rounds     []string
	divisions  DivisionResolver
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithDivisions tags pooled team standings with their division.
func WithDivisions(d DivisionResolver) Option {
	return func(a *Aggregator) {
		if d != nil {
			a.divisions = d
		}
	}
}

// New builds an Aggregator over the given rounds, in round order.
func New(categories Categories, source Source, rounds []string, opts ...Option) *Aggregator {
	a := &Aggregator{
		categories: categories,
		source:     source,
		rounds:     append([]string(nil), rounds...),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Rounds returns the configured round identifiers.
func (a *Aggregator) Rounds() []string {
	return append([]string(nil), a.rounds...)
}

// RecomputeCategory rebuilds the individual standings of code. Individual
// and team categories score category position; overall categories score
// gender position over every athlete of their gender.
func (a *Aggregator) RecomputeCategory(ctx context.Context, code string) (model.Standings, error) {
	def, ok := a.categories.Category(code)
	if !ok {
		return model.Standings{}, fmt.Errorf("%w: %s", model.ErrUnknownCategory, code)
	}
	if !def.HasIndividualStandings() {
		return model.Standings{}, &model.ConfigurationError{Code: code, Reason: "category has no individual standings"}
	}

	t := newTally()
	for _, round := range a.rounds {
		if err := ctx.Err(); err != nil {
			return model.Standings{}, err
		}
		race, err := a.source.LoadRaceResult(ctx, round, def.Race)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return model.Standings{}, fmt.Errorf("load %s/%s: %w", round, def.Race, err)
		}
		t.processed++

		if def.Kind == model.KindOverall {
			for _, ath := range race.OfGender(def.Gender) {
				if err := t.add(model.NewAthleteRecord(ath.Name, ath.Club), round, ath.GenderPosition); err != nil {
					return model.Standings{}, err
				}
			}
			continue
		}
		for _, ath := range race.InCategory(code) {
			if err := t.add(model.NewAthleteRecord(ath.Name, ath.Club), round, ath.CategoryPosition); err != nil {
				return model.Standings{}, err
			}
		}
	}

	return t.standings(code, model.IndividualStandings, a.rounds), nil
}

// RecomputeTeams rebuilds the team standings of code from the per-round
// team tables, scoring each team's round score.
func (a *Aggregator) RecomputeTeams(ctx context.Context, code string) (model.Standings, error) {
	def, ok := a.categories.Category(code)
	if !ok {
		return model.Standings{}, fmt.Errorf("%w: %s", model.ErrUnknownCategory, code)
	}
	if !def.IsTeam() {
		return model.Standings{}, &model.NotATeamCategoryError{Code: code}
	}

	t := newTally()
	for _, round := range a.rounds {
		if err := ctx.Err(); err != nil {
			return model.Standings{}, err
		}
		table, err := a.source.LoadTeamResult(ctx, round, code)
		if errors.Is(err, model.ErrNotFound) {
			continue
		}
		if err != nil {
			return model.Standings{}, fmt.Errorf("load %s/teams/%s: %w", round, code, err)
		}
		t.processed++

		for _, team := range table.Teams {
			if err := t.add(model.NewTeamRecord(team.Club, team.Label), round, team.Score); err != nil {
				return model.Standings{}, err
			}
		}
	}

	s := t.standings(code, model.TeamStandings, a.rounds)
	if def.Pooled && a.divisions != nil {
		for i := range s.Records {
			s.Records[i].Division = a.divisions.Division(code, s.Records[i].DisplayName())
		}
	}
	return s, nil
}

type tally struct {
	records   map[string]*model.ScoreRecord
	processed int
}

func newTally() *tally {
	return &tally{records: make(map[string]*model.ScoreRecord)}
}

func (t *tally) add(fresh *model.ScoreRecord, round string, score int) error {
	rec, ok := t.records[fresh.Key()]
	if !ok {
		rec = fresh
		t.records[rec.Key()] = rec
	}
	if err := rec.AddRoundScore(round, score); err != nil {
		return fmt.Errorf("%s: %w", rec.DisplayName(), err)
	}
	return nil
}

func (t *tally) standings(code string, kind model.StandingsKind, rounds []string) model.Standings {
	k := model.RoundsToCount(t.processed)
	s := model.Standings{
		Category:        code,
		Kind:            kind,
		Rounds:          append([]string(nil), rounds...),
		RoundsProcessed: t.processed,
		RoundsCounted:   k,
		Records:         make([]model.ScoreRecord, 0, len(t.records)),
	}
	for _, rec := range t.records {
		rec.Total = rec.TotalFor(k)
		s.Records = append(s.Records, *rec)
	}
	sort.Slice(s.Records, func(i, j int) bool {
		a, b := s.Records[i], s.Records[j]
		if a.Total != b.Total {
			return a.Total < b.Total
		}
		if a.DisplayName() != b.DisplayName() {
			return a.DisplayName() < b.DisplayName()
		}
		return a.Club < b.Club
	})
	return s
}
