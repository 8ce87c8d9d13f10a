// Package service runs the league pipeline: it ingests raw race files,
// rebuilds standings and renders reports.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	workerpool "github.com/okian/xcleague/internal/adapters/mq/worker"
	"github.com/okian/xcleague/internal/adapters/report"
	"github.com/okian/xcleague/internal/adapters/repository"
	"github.com/okian/xcleague/internal/domain/category"
	"github.com/okian/xcleague/internal/domain/normalize"
	"github.com/okian/xcleague/internal/domain/teams"
	"github.com/okian/xcleague/internal/league"
	"github.com/okian/xcleague/pkg/logger"
	"github.com/okian/xcleague/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultInputDir  = "input"
	defaultDebounce  = 750 * time.Millisecond
	defaultQueueSize = 1024
)

// Pipeline stage names, used in logs and metrics.
const (
	stageIngest    = "ingest"
	stageAggregate = "aggregate"
	stageRender    = "render"
)

// Service wires the domain packages to storage and renderers.
type Service struct {
	// runMu serialises pipeline runs so watch mode never overlaps itself.
	runMu sync.Mutex

	store     repository.Store
	league    *league.League
	rules     *category.Rules
	normalize *normalize.Normalizer
	builder   *teams.Builder
	renderers []report.Renderer

	inputDir    string
	workerCount int
	debounce    time.Duration
	queueSize   int
	now         func() time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the repository results are written to. Required.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLeague sets the season definition. Defaults to league.Default().
func WithLeague(l *league.League) Option {
	return func(s *Service) {
		if l != nil {
			s.league = l
		}
	}
}

// WithWorkerCount sets how many files or categories are processed at once.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithRenderers sets the report outputs produced after each run.
func WithRenderers(renderers ...report.Renderer) Option {
	return func(s *Service) {
		s.renderers = renderers
	}
}

// WithInputDir sets the directory holding <round>/<race>.csv files.
func WithInputDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.inputDir = dir
		}
	}
}

// WithDebounce sets how long watch mode waits for changes to settle.
func WithDebounce(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithQueueSize sets the capacity of the watch mode change queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithClock sets the time source used for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Service. It fails when no store is given or the league
// does not produce valid category rules.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		league:      league.Default(),
		builder:     teams.New(),
		inputDir:    defaultInputDir,
		workerCount: runtime.NumCPU(),
		debounce:    defaultDebounce,
		queueSize:   defaultQueueSize,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		return nil, ErrNoStore
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	rules, err := s.league.Rules()
	if err != nil {
		return nil, fmt.Errorf("league %q: %w", s.league.Name, err)
	}
	s.rules = rules
	s.normalize = s.league.Normalizer(rules)

	return s, nil
}

// League returns the season definition the service runs with.
func (s *Service) League() *league.League { return s.league }

// Rules returns the category rules derived from the league.
func (s *Service) Rules() *category.Rules { return s.rules }

// RunReport summarises one pipeline run.
type RunReport struct {
	ID         string        `json:"id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Rounds     []string      `json:"rounds"`
	Files      []FileOutcome `json:"files"`
	// Categories lists the category codes whose standings were rebuilt.
	Categories []string `json:"categories"`
	// FailedCategories lists codes whose individual or team standings failed.
	FailedCategories []string `json:"failed_categories,omitempty"`
	Rendered         []string `json:"rendered,omitempty"`
}

// FileOutcome is the result of ingesting one raw race file.
type FileOutcome struct {
	Round    string `json:"round"`
	Race     string `json:"race"`
	Path     string `json:"path"`
	Athletes int    `json:"athletes"`
	Rejected int    `json:"rejected"`
	Teams    int    `json:"teams"`
	Err      error  `json:"-"`
}

// Failed counts files that could not be ingested.
func (r RunReport) Failed() int {
	n := 0
	for _, f := range r.Files {
		if f.Err != nil {
			n++
		}
	}
	return n
}

// Run processes the raw files of the selected rounds (all league rounds
// when none are given), rebuilds every category's standings and renders
// the reports. Each file and category is an isolated unit: Run keeps going
// after failures and returns them combined once everything has run.
func (s *Service) Run(ctx context.Context, rounds []string) (RunReport, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	selected, err := s.league.SelectRounds(rounds)
	if err != nil {
		return RunReport{}, err
	}

	rep := RunReport{
		ID:        uuid.NewString(),
		StartedAt: s.now(),
		Rounds:    selected,
	}
	log := s.logger.Named("run")
	log.Info(ctx, "pipeline run started",
		logger.String("run", rep.ID),
		logger.Strings("rounds", selected),
	)

	var errs error

	start := time.Now()
	files, err := s.discover(selected)
	if err != nil {
		return rep, err
	}
	rep.Files, err = s.ingest(ctx, files)
	errs = multierr.Append(errs, err)
	metrics.RecordStageLatency(stageIngest, float64(time.Since(start).Milliseconds()))

	start = time.Now()
	standings, built, failed, err := s.rebuild(ctx)
	rep.Categories, rep.FailedCategories = built, failed
	errs = multierr.Append(errs, err)
	metrics.RecordStageLatency(stageAggregate, float64(time.Since(start).Milliseconds()))

	start = time.Now()
	rep.Rendered, err = s.render(ctx, standings)
	errs = multierr.Append(errs, err)
	metrics.RecordStageLatency(stageRender, float64(time.Since(start).Milliseconds()))

	rep.FinishedAt = s.now()
	s.recordRun(ctx, rep)

	fields := []logger.Field{
		logger.String("run", rep.ID),
		logger.Int("files", len(rep.Files)),
		logger.Int("failed_files", rep.Failed()),
		logger.Int("categories", len(rep.Categories)),
		logger.Duration("took", rep.FinishedAt.Sub(rep.StartedAt)),
	}
	if errs != nil {
		log.Warn(ctx, "pipeline run finished with errors", append(fields, logger.Error(errs))...)
		return rep, errs
	}
	log.Info(ctx, "pipeline run finished", fields...)
	return rep, nil
}

func (s *Service) recordRun(ctx context.Context, rep RunReport) {
	metrics.RecordRun(float64(rep.FinishedAt.Unix()), float64(rep.FinishedAt.Sub(rep.StartedAt).Milliseconds()))
	err := s.store.RecordRun(ctx, repository.Run{
		ID:         rep.ID,
		StartedAt:  rep.StartedAt,
		FinishedAt: rep.FinishedAt,
		Rounds:     rep.Rounds,
		Files:      len(rep.Files),
		Failed:     rep.Failed(),
	})
	if err != nil {
		metrics.RecordErrorByComponent("service", "record_run")
		s.logger.Warn(ctx, "could not record run", logger.String("run", rep.ID), logger.Error(err))
	}
}

func (s *Service) pool(name string) *workerpool.Pool {
	return workerpool.NewPool(s.workerCount,
		workerpool.WithName(name),
		workerpool.WithLogger(s.logger),
	)
}
