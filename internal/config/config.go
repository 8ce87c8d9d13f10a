// Package config defines process configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and XCL_ environment variables over the defaults.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"

	"go.uber.org/multierr"
)

// Store backends.
const (
	StoreCSV    = "csv"
	StoreSQLite = "sqlite"
)

// Default configuration constants.
const (
	DefaultAddr            = ":9080"
	DefaultInputDir        = "input"
	DefaultDataDir         = "data"
	DefaultOutputDir       = "output"
	DefaultSQLitePath      = "data/league.db"
	DefaultReportTitle     = "Cross Country League"
	DefaultWatchDebounceMS = 750
	DefaultChangeQueueSize = 1024
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text, json or tint.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// InputDir holds raw race files laid out as <round>/<race>.csv.
	InputDir string `koanf:"input_dir"`

	// DataDir holds normalized results and standings for the CSV store.
	DataDir string `koanf:"data_dir"`

	// OutputDir receives rendered reports.
	OutputDir string `koanf:"output_dir"`

	// Store selects the repository backend: csv or sqlite.
	Store string `koanf:"store"`

	// SQLitePath is the database file used when Store is sqlite.
	SQLitePath string `koanf:"sqlite_path"`

	// LeagueFile points at the league YAML; empty means the built-in league.
	LeagueFile string `koanf:"league_file"`

	// Rounds restricts processing to these rounds; empty means all.
	Rounds []string `koanf:"rounds"`

	// WorkerCount bounds concurrent race files and categories.
	WorkerCount int `koanf:"worker_count"`

	// Excel and PDF toggle the report renderers.
	Excel bool `koanf:"excel"`
	PDF   bool `koanf:"pdf"`

	// ReportTitle heads every rendered report.
	ReportTitle string `koanf:"report_title"`

	// WatchDebounceMS coalesces bursts of file events in watch mode.
	WatchDebounceMS int `koanf:"watch_debounce_ms"`

	// ChangeQueueSize bounds pending file changes in watch mode.
	ChangeQueueSize int `koanf:"change_queue_size"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            DefaultAddr,
		InputDir:        DefaultInputDir,
		DataDir:         DefaultDataDir,
		OutputDir:       DefaultOutputDir,
		Store:           StoreCSV,
		SQLitePath:      DefaultSQLitePath,
		WorkerCount:     runtime.NumCPU(),
		Excel:           true,
		PDF:             true,
		ReportTitle:     DefaultReportTitle,
		WatchDebounceMS: DefaultWatchDebounceMS,
		ChangeQueueSize: DefaultChangeQueueSize,
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs error
	if c.Addr == "" {
		errs = multierr.Append(errs, fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig))
	}
	if c.InputDir == "" {
		errs = multierr.Append(errs, fmt.Errorf("%w: input_dir must not be empty", ErrInvalidConfig))
	}
	if c.OutputDir == "" {
		errs = multierr.Append(errs, fmt.Errorf("%w: output_dir must not be empty", ErrInvalidConfig))
	}
	switch c.Store {
	case StoreCSV:
		if c.DataDir == "" {
			errs = multierr.Append(errs, fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig))
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			errs = multierr.Append(errs, fmt.Errorf("%w: sqlite_path must not be empty", ErrInvalidConfig))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store))
	}
	if c.WorkerCount < 1 {
		errs = multierr.Append(errs, fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig))
	}
	if c.WatchDebounceMS < 0 {
		errs = multierr.Append(errs, fmt.Errorf("%w: watch_debounce_ms must not be negative", ErrInvalidConfig))
	}
	if c.ChangeQueueSize < 1 {
		errs = multierr.Append(errs, fmt.Errorf("%w: change_queue_size must be positive", ErrInvalidConfig))
	}
	return errs
}
