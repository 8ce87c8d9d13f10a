package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/okian/xcleague/internal/domain/model"
)

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store on a single SQLite database file.
type SQLiteStore struct {
	db   *sql.DB
	opts options
}

// NewSQLiteStore opens (or creates) the database at dbPath, creating parent
// directories and the schema as needed.
func NewSQLiteStore(ctx context.Context, dbPath string, opts ...Option) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serializes writers from concurrent pipeline tasks.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &SQLiteStore{db: db, opts: o}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// inTx runs fn in a transaction, committing only when fn succeeds.
func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SaveRaceResult replaces the race's rows.
func (s *SQLiteStore) SaveRaceResult(ctx context.Context, r model.RaceResult) error {
	defer observe("save_race", time.Now())
	if err := keys("round", r.Round, "race", r.Race); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM race_results WHERE round = ? AND race = ?", r.Round, r.Race); err != nil {
			return fmt.Errorf("failed to delete race: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO race_results (round, race, updated_at) VALUES (?, ?, ?)",
			r.Round, r.Race, s.opts.now().Unix(),
		); err != nil {
			return fmt.Errorf("failed to insert race: %w", err)
		}
		for _, a := range r.Athletes {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO race_athletes (round, race, pos, bib, name, club, gender, category, time_ms, cat_pos, gen_pos)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				r.Round, r.Race, a.Position, a.Bib, a.Name, a.Club, string(a.Gender), a.Category,
				a.Time.Milliseconds(), a.CategoryPosition, a.GenderPosition,
			); err != nil {
				return fmt.Errorf("failed to insert athlete %s: %w", a.Bib, err)
			}
		}
		return nil
	})
}

// LoadRaceResult reads a race in position order.
func (s *SQLiteStore) LoadRaceResult(ctx context.Context, round, race string) (model.RaceResult, error) {
	defer observe("load_race", time.Now())
	if err := s.exists(ctx, "SELECT 1 FROM race_results WHERE round = ? AND race = ?", round, race); err != nil {
		return model.RaceResult{}, fmt.Errorf("%s/%s: %w", round, race, err)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT pos, bib, name, club, gender, category, time_ms, cat_pos, gen_pos
		 FROM race_athletes WHERE round = ? AND race = ? ORDER BY pos`, round, race)
	if err != nil {
		return model.RaceResult{}, fmt.Errorf("failed to query athletes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := model.RaceResult{Round: round, Race: race}
	for rows.Next() {
		var (
			a      model.Athlete
			gender string
			ms     int64
		)
		if err := rows.Scan(&a.Position, &a.Bib, &a.Name, &a.Club, &gender, &a.Category, &ms, &a.CategoryPosition, &a.GenderPosition); err != nil {
			return model.RaceResult{}, fmt.Errorf("failed to scan athlete: %w", err)
		}
		a.Gender = model.Gender(gender)
		a.Time = time.Duration(ms) * time.Millisecond
		out.Athletes = append(out.Athletes, a)
	}
	return out, rows.Err()
}

// SaveTeamResult replaces the round's team table for the category.
func (s *SQLiteStore) SaveTeamResult(ctx context.Context, tr model.TeamResult) error {
	defer observe("save_teams", time.Now())
	if err := keys("round", tr.Round, "category", tr.Category); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM team_results WHERE round = ? AND category = ?", tr.Round, tr.Category); err != nil {
			return fmt.Errorf("failed to delete teams: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO team_results (round, category, team_size, discarded, updated_at) VALUES (?, ?, ?, ?, ?)",
			tr.Round, tr.Category, tr.TeamSize, tr.Discarded, s.opts.now().Unix(),
		); err != nil {
			return fmt.Errorf("failed to insert team result: %w", err)
		}
		for _, t := range tr.Teams {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO teams (round, category, pos, club, label, score) VALUES (?, ?, ?, ?, ?, ?)",
				tr.Round, tr.Category, t.Position, t.Club, t.Label, t.Score,
			); err != nil {
				return fmt.Errorf("failed to insert team %s: %w", t.Name(), err)
			}
			for i, m := range t.Members {
				if _, err := tx.ExecContext(ctx,
					"INSERT INTO team_members (round, category, team_pos, seq, name, gen_pos) VALUES (?, ?, ?, ?, ?, ?)",
					tr.Round, tr.Category, t.Position, i, m.Name, m.GenderPosition,
				); err != nil {
					return fmt.Errorf("failed to insert member of %s: %w", t.Name(), err)
				}
			}
		}
		return nil
	})
}

// LoadTeamResult reads a round's team table. Members carry only their
// name, club and gender position.
func (s *SQLiteStore) LoadTeamResult(ctx context.Context, round, category string) (model.TeamResult, error) {
	defer observe("load_teams", time.Now())
	out := model.TeamResult{Round: round, Category: category}
	err := s.db.QueryRowContext(ctx,
		"SELECT team_size, discarded FROM team_results WHERE round = ? AND category = ?", round, category,
	).Scan(&out.TeamSize, &out.Discarded)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TeamResult{}, fmt.Errorf("%w: %s/teams/%s", ErrNotFound, round, category)
	}
	if err != nil {
		return model.TeamResult{}, fmt.Errorf("failed to query team result: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT t.pos, t.club, t.label, t.score, m.name, m.gen_pos
		 FROM teams t LEFT JOIN team_members m
		   ON m.round = t.round AND m.category = t.category AND m.team_pos = t.pos
		 WHERE t.round = ? AND t.category = ?
		 ORDER BY t.pos, m.seq`, round, category)
	if err != nil {
		return model.TeamResult{}, fmt.Errorf("failed to query teams: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			t      model.Team
			name   sql.NullString
			genPos sql.NullInt64
		)
		if err := rows.Scan(&t.Position, &t.Club, &t.Label, &t.Score, &name, &genPos); err != nil {
			return model.TeamResult{}, fmt.Errorf("failed to scan team: %w", err)
		}
		if n := len(out.Teams); n == 0 || out.Teams[n-1].Position != t.Position {
			t.Category = category
			out.Teams = append(out.Teams, t)
		}
		if name.Valid {
			last := &out.Teams[len(out.Teams)-1]
			last.Members = append(last.Members, model.Athlete{
				Name: name.String, Club: last.Club, Category: category, GenderPosition: int(genPos.Int64),
			})
		}
	}
	return out, rows.Err()
}

// SaveStandings replaces a cumulative table.
func (s *SQLiteStore) SaveStandings(ctx context.Context, st model.Standings) error {
	defer observe("save_standings", time.Now())
	if err := keys("category", st.Category); err != nil {
		return err
	}
	rounds, err := json.Marshal(st.Rounds)
	if err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM standings WHERE category = ? AND kind = ?", st.Category, string(st.Kind)); err != nil {
			return fmt.Errorf("failed to delete standings: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO standings (category, kind, rounds, rounds_processed, rounds_counted, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			st.Category, string(st.Kind), string(rounds), st.RoundsProcessed, st.RoundsCounted, s.opts.now().Unix(),
		); err != nil {
			return fmt.Errorf("failed to insert standings: %w", err)
		}
		for seq, r := range st.Records {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO standings_records (category, kind, seq, name, club, label, division, total)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				st.Category, string(st.Kind), seq, r.Name, r.Club, r.Label, r.Division, r.Total,
			); err != nil {
				return fmt.Errorf("failed to insert record %s: %w", r.DisplayName(), err)
			}
			for round, score := range r.RoundScores {
				if _, err := tx.ExecContext(ctx,
					"INSERT INTO standings_scores (category, kind, seq, round, score) VALUES (?, ?, ?, ?, ?)",
					st.Category, string(st.Kind), seq, round, score,
				); err != nil {
					return fmt.Errorf("failed to insert score: %w", err)
				}
			}
		}
		return nil
	})
}

// LoadStandings reads a cumulative table in stored order.
func (s *SQLiteStore) LoadStandings(ctx context.Context, category string, kind model.StandingsKind) (model.Standings, error) {
	defer observe("load_standings", time.Now())
	out := model.Standings{Category: category, Kind: kind}
	var rounds string
	err := s.db.QueryRowContext(ctx,
		"SELECT rounds, rounds_processed, rounds_counted FROM standings WHERE category = ? AND kind = ?",
		category, string(kind),
	).Scan(&rounds, &out.RoundsProcessed, &out.RoundsCounted)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Standings{}, fmt.Errorf("%w: %s standings %s", ErrNotFound, kind, category)
	}
	if err != nil {
		return model.Standings{}, fmt.Errorf("failed to query standings: %w", err)
	}
	if err := json.Unmarshal([]byte(rounds), &out.Rounds); err != nil {
		return model.Standings{}, fmt.Errorf("failed to decode rounds: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, name, club, label, division, total FROM standings_records
		 WHERE category = ? AND kind = ? ORDER BY seq`, category, string(kind))
	if err != nil {
		return model.Standings{}, fmt.Errorf("failed to query records: %w", err)
	}
	var seqs []int
	for rows.Next() {
		var (
			seq int
			r   model.ScoreRecord
		)
		if err := rows.Scan(&seq, &r.Name, &r.Club, &r.Label, &r.Division, &r.Total); err != nil {
			_ = rows.Close()
			return model.Standings{}, fmt.Errorf("failed to scan record: %w", err)
		}
		r.RoundScores = make(map[string]int)
		seqs = append(seqs, seq)
		out.Records = append(out.Records, r)
	}
	if err := rows.Close(); err != nil {
		return model.Standings{}, err
	}

	scores, err := s.db.QueryContext(ctx,
		"SELECT seq, round, score FROM standings_scores WHERE category = ? AND kind = ?", category, string(kind))
	if err != nil {
		return model.Standings{}, fmt.Errorf("failed to query scores: %w", err)
	}
	defer func() { _ = scores.Close() }()
	index := make(map[int]int, len(seqs))
	for i, seq := range seqs {
		index[seq] = i
	}
	for scores.Next() {
		var (
			seq, score int
			round      string
		)
		if err := scores.Scan(&seq, &round, &score); err != nil {
			return model.Standings{}, fmt.Errorf("failed to scan score: %w", err)
		}
		if i, ok := index[seq]; ok {
			out.Records[i].RoundScores[round] = score
		}
	}
	return out, scores.Err()
}

// ListRounds returns rounds holding at least one race result.
func (s *SQLiteStore) ListRounds(ctx context.Context) ([]string, error) {
	rounds, err := s.strings(ctx, "SELECT DISTINCT round FROM race_results")
	if err != nil {
		return nil, err
	}
	sortRounds(rounds)
	return rounds, nil
}

// ListRaces returns the races stored for round.
func (s *SQLiteStore) ListRaces(ctx context.Context, round string) ([]string, error) {
	return s.strings(ctx, "SELECT race FROM race_results WHERE round = ? ORDER BY race", round)
}

// RecordRun inserts run.
func (s *SQLiteStore) RecordRun(ctx context.Context, run Run) error {
	defer observe("record_run", time.Now())
	rounds, err := json.Marshal(run.Rounds)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO runs (id, started_at, finished_at, rounds, files, failed) VALUES (?, ?, ?, ?, ?, ?)",
		run.ID, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(), string(rounds), run.Files, run.Failed,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// Runs returns every recorded run, oldest first.
func (s *SQLiteStore) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, started_at, finished_at, rounds, files, failed FROM runs ORDER BY started_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			run             Run
			started, finish int64
			rounds          string
		)
		if err := rows.Scan(&run.ID, &started, &finish, &rounds, &run.Files, &run.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt = time.UnixMilli(started).UTC()
		run.FinishedAt = time.UnixMilli(finish).UTC()
		if err := json.Unmarshal([]byte(rounds), &run.Rounds); err != nil {
			return nil, fmt.Errorf("failed to decode run rounds: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) exists(ctx context.Context, query string, args ...any) error {
	var one int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *SQLiteStore) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
