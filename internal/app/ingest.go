package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/multierr"

	"github.com/okian/xcleague/internal/adapters/csvio"
	workerpool "github.com/okian/xcleague/internal/adapters/mq/worker"
	"github.com/okian/xcleague/internal/domain/model"
	"github.com/okian/xcleague/internal/domain/normalize"
	"github.com/okian/xcleague/pkg/logger"
	"github.com/okian/xcleague/pkg/metrics"
)

const raceFileExt = ".csv"

// rawFile is one <input>/<round>/<race>.csv export.
type rawFile struct {
	round string
	race  string
	path  string
}

func (f rawFile) name() string { return f.round + "/" + f.race }

// discover lists the race files of rounds in round order, then race name.
// A round without a directory simply has no results yet.
func (s *Service) discover(rounds []string) ([]rawFile, error) {
	if st, err := os.Stat(s.inputDir); err != nil || !st.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNoInputDir, s.inputDir)
	}

	var files []rawFile
	for _, round := range rounds {
		dir := filepath.Join(s.inputDir, round)
		entries, err := os.ReadDir(dir)
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug(context.Background(), "round has no input directory", logger.String("round", round))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", dir, err)
		}
		var found []rawFile
		for _, e := range entries {
			if race, ok := raceName(e.Name()); ok && e.Type().IsRegular() {
				found = append(found, rawFile{round: round, race: race, path: filepath.Join(dir, e.Name())})
			}
		}
		sort.Slice(found, func(i, j int) bool { return found[i].race < found[j].race })
		files = append(files, found...)
	}
	return files, nil
}

// raceName maps a file name to its race, rejecting hidden and non-CSV files.
func raceName(file string) (string, bool) {
	if strings.HasPrefix(file, ".") || !strings.EqualFold(filepath.Ext(file), raceFileExt) {
		return "", false
	}
	race := strings.TrimSuffix(file, filepath.Ext(file))
	return race, race != ""
}

// ingest processes every file as an isolated task.
func (s *Service) ingest(ctx context.Context, files []rawFile) ([]FileOutcome, error) {
	outcomes := make([]FileOutcome, len(files))
	tasks := make([]workerpool.Task, len(files))
	for i, f := range files {
		// Overwritten by the task; stays failed if the task never completes.
		outcomes[i] = FileOutcome{Round: f.round, Race: f.race, Path: f.path, Err: ErrRaceFile}
		tasks[i] = workerpool.Task{
			Name: f.name(),
			Run: func(ctx context.Context) error {
				outcomes[i] = s.processFile(ctx, f)
				return outcomes[i].Err
			},
		}
	}
	err := s.pool(stageIngest).Run(ctx, tasks)
	return outcomes, err
}

// processFile reads, normalizes and stores one race, then builds and stores
// every team table drawn from it.
func (s *Service) processFile(ctx context.Context, f rawFile) (out FileOutcome) {
	out = FileOutcome{Round: f.round, Race: f.race, Path: f.path}
	log := s.logger.Named(stageIngest)
	defer func() {
		if out.Err != nil {
			metrics.RecordRaceFile("failed")
			metrics.RecordErrorByComponent("ingest", "race_file")
			log.Error(ctx, "race file failed",
				logger.String("round", f.round),
				logger.String("race", f.race),
				logger.Error(out.Err),
			)
			return
		}
		metrics.RecordRaceFile("ok")
	}()

	rows, err := readRaceFile(ctx, f)
	if err != nil {
		out.Err = fmt.Errorf("%w: %w", ErrRaceFile, err)
		return out
	}

	result, rep, err := s.normalize.Normalize(ctx, f.round, f.race, rows)
	s.observe(ctx, f, rep)
	out.Rejected = len(rep.Rejected)
	if err != nil {
		out.Err = fmt.Errorf("%w: %w", ErrRaceFile, err)
		return out
	}
	out.Athletes = len(result.Athletes)
	metrics.RecordAthletesNormalized(len(result.Athletes))

	if err := s.store.SaveRaceResult(ctx, result); err != nil {
		out.Err = fmt.Errorf("%w: save: %w", ErrRaceFile, err)
		return out
	}

	var errs error
	for _, def := range s.rules.TeamCategoriesForRace(f.race) {
		tr, err := s.builder.Build(result, def)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("teams %s: %w", def.Code, err))
			continue
		}
		if err := s.store.SaveTeamResult(ctx, tr); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("save teams %s: %w", def.Code, err))
			continue
		}
		metrics.RecordTeamsBuilt(def.Code, len(tr.Teams))
		metrics.RecordTeamsDiscarded(def.Code, tr.Discarded)
		out.Teams += len(tr.Teams)
	}
	if errs != nil {
		out.Err = fmt.Errorf("%w: %w", ErrRaceFile, errs)
		return out
	}

	log.Info(ctx, "race processed",
		logger.String("round", f.round),
		logger.String("race", f.race),
		logger.Int("athletes", out.Athletes),
		logger.Int("rejected", out.Rejected),
		logger.Int("teams", out.Teams),
	)
	return out
}

func readRaceFile(ctx context.Context, f rawFile) ([]model.RawRow, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return csvio.ReadRaceFile(ctx, fh, f.round, f.race)
}

// observe logs and counts what normalization dropped or corrected.
func (s *Service) observe(ctx context.Context, f rawFile, rep normalize.Report) {
	log := s.logger.Named(stageIngest)
	for _, bad := range rep.Rejected {
		metrics.RecordRowRejected("malformed")
		log.Warn(ctx, "row rejected", logger.Error(bad))
	}
	for _, p := range rep.PatchesSkipped {
		log.Warn(ctx, "correction matched no finisher",
			logger.String("round", f.round),
			logger.String("race", f.race),
			logger.String("bib", p.Bib),
		)
	}
	metrics.RecordGuestsRemoved(rep.GuestsRemoved)
	metrics.RecordCorrectionsApplied(rep.PatchesApplied)
	metrics.RecordCorrectionsSkipped(len(rep.PatchesSkipped))
}
