// Package repository persists normalized race results, team tables and
// cumulative standings.
package repository

import (
	"context"
	"time"

	"github.com/okian/xcleague/internal/domain/model"
)

// Run summarises one pipeline run.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Rounds     []string  `json:"rounds"`
	Files      int       `json:"files"`
	Failed     int       `json:"failed"`
}

// Store provides read/write access to pipeline results. Every Save replaces
// the whole unit it names, and readers never observe a partial write.
// Loads of absent units return an error wrapping ErrNotFound.
type Store interface {
	SaveRaceResult(ctx context.Context, r model.RaceResult) error
	LoadRaceResult(ctx context.Context, round, race string) (model.RaceResult, error)

	SaveTeamResult(ctx context.Context, tr model.TeamResult) error
	LoadTeamResult(ctx context.Context, round, category string) (model.TeamResult, error)

	SaveStandings(ctx context.Context, s model.Standings) error
	LoadStandings(ctx context.Context, category string, kind model.StandingsKind) (model.Standings, error)

	// ListRounds returns rounds holding at least one race result.
	ListRounds(ctx context.Context) ([]string, error)
	// ListRaces returns the races stored for round, sorted.
	ListRaces(ctx context.Context, round string) ([]string, error)

	// RecordRun appends a run summary; Runs returns them oldest first.
	RecordRun(ctx context.Context, run Run) error
	Runs(ctx context.Context) ([]Run, error)

	Close() error
}
