package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/okian/xcleague/internal/adapters/csvio"
	"github.com/okian/xcleague/internal/domain/model"
	"github.com/okian/xcleague/pkg/logger"
)

// Directory and file names of the CSV layout.
const (
	scoresDir = "scores"
	teamsDir  = "teams"
	runsFile  = "runs.csv"
	csvExt    = ".csv"
)

var runsHeader = []string{"id", "started_at", "finished_at", "rounds", "files", "failed"}

// Ensure CSVStore implements Store.
var _ Store = (*CSVStore)(nil)

// CSVStore keeps every unit as a CSV file under one directory:
//
//	<root>/<round>/<race>.csv
//	<root>/<round>/teams/<category>.csv
//	<root>/scores/<category>.csv
//	<root>/scores/teams/<category>.csv
//
// Files are replaced atomically through a temporary file and a rename.
type CSVStore struct {
	root string
	opts options
	// runsMu serializes appends to the runs file.
	runsMu sync.Mutex
}

// NewCSVStore creates root if needed and returns a store over it.
func NewCSVStore(root string, opts ...Option) (*CSVStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &CSVStore{root: root, opts: o}, nil
}

// Root returns the data directory.
func (s *CSVStore) Root() string { return s.root }

// Close is a no-op; every write is complete when Save returns.
func (s *CSVStore) Close() error { return nil }

func (s *CSVStore) racePath(round, race string) string {
	return filepath.Join(s.root, round, race+csvExt)
}

func (s *CSVStore) teamPath(round, category string) string {
	return filepath.Join(s.root, round, teamsDir, category+csvExt)
}

func (s *CSVStore) standingsPath(category string, kind model.StandingsKind) string {
	if kind == model.TeamStandings {
		return filepath.Join(s.root, scoresDir, teamsDir, category+csvExt)
	}
	return filepath.Join(s.root, scoresDir, category+csvExt)
}

// SaveRaceResult writes the normalized race file.
func (s *CSVStore) SaveRaceResult(ctx context.Context, r model.RaceResult) error {
	defer observe("save_race", time.Now())
	if err := keys("round", r.Round, "race", r.Race); err != nil {
		return err
	}
	return s.write(ctx, s.racePath(r.Round, r.Race), func(w io.Writer) error {
		return csvio.WriteRaceResult(w, r)
	})
}

// LoadRaceResult reads a normalized race file.
func (s *CSVStore) LoadRaceResult(ctx context.Context, round, race string) (model.RaceResult, error) {
	defer observe("load_race", time.Now())
	if err := keys("round", round, "race", race); err != nil {
		return model.RaceResult{}, err
	}
	var out model.RaceResult
	err := s.read(s.racePath(round, race), func(r io.Reader) (err error) {
		out, err = csvio.ReadRaceResult(ctx, r, round, race)
		return err
	})
	return out, err
}

// SaveTeamResult writes a round's team file.
func (s *CSVStore) SaveTeamResult(ctx context.Context, tr model.TeamResult) error {
	defer observe("save_teams", time.Now())
	if err := keys("round", tr.Round, "category", tr.Category); err != nil {
		return err
	}
	return s.write(ctx, s.teamPath(tr.Round, tr.Category), func(w io.Writer) error {
		return csvio.WriteTeamResult(w, tr)
	})
}

// LoadTeamResult reads a round's team file.
func (s *CSVStore) LoadTeamResult(ctx context.Context, round, category string) (model.TeamResult, error) {
	defer observe("load_teams", time.Now())
	if err := keys("round", round, "category", category); err != nil {
		return model.TeamResult{}, err
	}
	var out model.TeamResult
	err := s.read(s.teamPath(round, category), func(r io.Reader) (err error) {
		out, err = csvio.ReadTeamResult(ctx, r, round, category)
		return err
	})
	return out, err
}

// SaveStandings writes a cumulative score file.
func (s *CSVStore) SaveStandings(ctx context.Context, st model.Standings) error {
	defer observe("save_standings", time.Now())
	if err := keys("category", st.Category); err != nil {
		return err
	}
	return s.write(ctx, s.standingsPath(st.Category, st.Kind), func(w io.Writer) error {
		return csvio.WriteStandings(w, st)
	})
}

// LoadStandings reads a cumulative score file.
func (s *CSVStore) LoadStandings(ctx context.Context, category string, kind model.StandingsKind) (model.Standings, error) {
	defer observe("load_standings", time.Now())
	if err := keys("category", category); err != nil {
		return model.Standings{}, err
	}
	var out model.Standings
	err := s.read(s.standingsPath(category, kind), func(r io.Reader) (err error) {
		out, err = csvio.ReadStandings(ctx, r, category, kind)
		return err
	})
	return out, err
}

// ListRounds returns round directories holding at least one race file.
func (s *CSVStore) ListRounds(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	var rounds []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == scoresDir {
			continue
		}
		races, err := s.ListRaces(ctx, e.Name())
		if err != nil {
			return nil, err
		}
		if len(races) > 0 {
			rounds = append(rounds, e.Name())
		}
	}
	sortRounds(rounds)
	return rounds, nil
}

// ListRaces returns the race files stored for round.
func (s *CSVStore) ListRaces(_ context.Context, round string) ([]string, error) {
	if err := keys("round", round); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.root, round))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list races: %w", err)
	}
	var races []string
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") && strings.HasSuffix(e.Name(), csvExt) {
			races = append(races, strings.TrimSuffix(e.Name(), csvExt))
		}
	}
	return races, nil
}

// RecordRun appends run to runs.csv.
func (s *CSVStore) RecordRun(_ context.Context, run Run) error {
	defer observe("record_run", time.Now())
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	path := filepath.Join(s.root, runsFile)
	_, statErr := os.Stat(path)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open runs file: %w", err)
	}
	defer func() { _ = f.Close() }()

	cw := csv.NewWriter(f)
	if errors.Is(statErr, fs.ErrNotExist) {
		if err := cw.Write(runsHeader); err != nil {
			return err
		}
	}
	if err := cw.Write([]string{
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		strings.Join(run.Rounds, " "),
		strconv.Itoa(run.Files),
		strconv.Itoa(run.Failed),
	}); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// Runs reads runs.csv.
func (s *CSVStore) Runs(_ context.Context) ([]Run, error) {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	f, err := os.Open(filepath.Join(s.root, runsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open runs file: %w", err)
	}
	defer func() { _ = f.Close() }()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read runs file: %w", err)
	}
	var runs []Run
	for _, rec := range records[min(1, len(records)):] {
		if len(rec) != len(runsHeader) {
			return nil, fmt.Errorf("%w: runs row %v", csvio.ErrBadRecord, rec)
		}
		run := Run{ID: rec[0], Rounds: strings.Fields(rec[3])}
		if run.StartedAt, err = time.Parse(time.RFC3339, rec[1]); err != nil {
			return nil, err
		}
		if run.FinishedAt, err = time.Parse(time.RFC3339, rec[2]); err != nil {
			return nil, err
		}
		if run.Files, err = strconv.Atoi(rec[4]); err != nil {
			return nil, err
		}
		if run.Failed, err = strconv.Atoi(rec[5]); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// write encodes into memory first so a failed encoding leaves the existing
// file untouched, then replaces path atomically.
func (s *CSVStore) write(ctx context.Context, path string, encode func(io.Writer) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := encode(&buf); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	s.opts.logger.Debug(ctx, "file written", logger.String("path", path), logger.Int("bytes", buf.Len()))
	return nil
}

func (s *CSVStore) read(path string, decode func(io.Reader) error) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return decode(f)
}

// keys validates name/value pairs with checkKey.
func keys(kv ...string) error {
	for i := 0; i+1 < len(kv); i += 2 {
		if err := checkKey(kv[i], kv[i+1]); err != nil {
			return err
		}
	}
	return nil
}
