package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/multierr"

	workerpool "github.com/okian/xcleague/internal/adapters/mq/worker"
	"github.com/okian/xcleague/internal/adapters/report"
	"github.com/okian/xcleague/internal/domain/aggregate"
	"github.com/okian/xcleague/internal/domain/model"
	"github.com/okian/xcleague/pkg/logger"
	"github.com/okian/xcleague/pkg/metrics"
)

// rebuild recomputes and stores the standings of every category. It must
// only run once every selected round has been ingested. Categories are
// independent tasks; within one category rounds are read in league order.
func (s *Service) rebuild(ctx context.Context) (standings []model.Standings, built, failed []string, err error) {
	agg := aggregate.New(s.rules, s.store, s.league.Rounds, aggregate.WithDivisions(s.league))
	defs := s.rules.Categories()

	// Two slots per category: individual, then team.
	slots := make([]*model.Standings, 2*len(defs))
	ok := make([]bool, len(defs))
	tasks := make([]workerpool.Task, len(defs))
	for i, def := range defs {
		tasks[i] = workerpool.Task{
			Name: def.Code,
			Run: func(ctx context.Context) error {
				var errs error
				if def.HasIndividualStandings() {
					st, err := s.recompute(ctx, model.IndividualStandings, def.Code, agg.RecomputeCategory)
					slots[2*i] = st
					errs = multierr.Append(errs, err)
				}
				if def.IsTeam() {
					st, err := s.recompute(ctx, model.TeamStandings, def.Code, agg.RecomputeTeams)
					slots[2*i+1] = st
					errs = multierr.Append(errs, err)
				}
				ok[i] = errs == nil
				return errs
			},
		}
	}
	err = s.pool(stageAggregate).Run(ctx, tasks)

	for i, def := range defs {
		if ok[i] {
			built = append(built, def.Code)
		} else {
			failed = append(failed, def.Code)
		}
	}
	for _, st := range slots {
		if st != nil {
			standings = append(standings, *st)
		}
	}
	return standings, built, failed, err
}

func (s *Service) recompute(
	ctx context.Context,
	kind model.StandingsKind,
	code string,
	fn func(context.Context, string) (model.Standings, error),
) (*model.Standings, error) {
	st, err := fn(ctx, code)
	if err == nil {
		err = s.store.SaveStandings(ctx, st)
	}
	if err != nil {
		metrics.RecordStandingsRecomputed(string(kind), "failed")
		metrics.RecordErrorByComponent("aggregate", string(kind))
		return nil, fmt.Errorf("%w: %s %s: %w", ErrStandings, kind, code, err)
	}
	metrics.RecordStandingsRecomputed(string(kind), "ok")
	s.logger.Named(stageAggregate).Debug(ctx, "standings rebuilt",
		logger.String("category", code),
		logger.String("kind", string(kind)),
		logger.Int("rounds_processed", st.RoundsProcessed),
		logger.Int("rounds_counted", st.RoundsCounted),
		logger.Int("records", len(st.Records)),
	)
	return &st, nil
}

// Render re-renders the reports from stored standings without touching
// round data.
func (s *Service) Render(ctx context.Context) ([]string, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	var standings []model.Standings
	for _, def := range s.rules.Categories() {
		kinds := make([]model.StandingsKind, 0, 2)
		if def.HasIndividualStandings() {
			kinds = append(kinds, model.IndividualStandings)
		}
		if def.IsTeam() {
			kinds = append(kinds, model.TeamStandings)
		}
		for _, kind := range kinds {
			st, err := s.store.LoadStandings(ctx, def.Code, kind)
			if errors.Is(err, model.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("load standings %s: %w", def.Code, err)
			}
			standings = append(standings, st)
		}
	}
	return s.render(ctx, standings)
}

// render lays out the tables once and hands them to every renderer. A
// failing renderer does not stop the others.
func (s *Service) render(ctx context.Context, standings []model.Standings) ([]string, error) {
	if len(s.renderers) == 0 {
		return nil, nil
	}
	tables := report.BuildTables(s.rules.Categories(), standings)
	if len(tables) == 0 {
		s.logger.Named(stageRender).Info(ctx, "nothing to render")
		return nil, nil
	}

	var rendered []string
	var errs error
	for _, r := range s.renderers {
		if err := r.Render(ctx, tables); err != nil {
			metrics.RecordErrorByComponent("render", r.Name())
			errs = multierr.Append(errs, fmt.Errorf("%w: %s: %w", ErrRender, r.Name(), err))
			continue
		}
		rendered = append(rendered, r.Name())
	}
	s.logger.Named(stageRender).Info(ctx, "reports rendered",
		logger.Strings("outputs", rendered),
		logger.Int("tables", len(tables)),
		logger.Int("categories", len(lo.Uniq(lo.Map(tables, func(t report.Table, _ int) string { return t.Category })))),
	)
	return rendered, errs
}
