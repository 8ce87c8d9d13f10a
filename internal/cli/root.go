// Package cli implements the xcleague command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/xcleague/internal/config"
	"github.com/okian/xcleague/pkg/logger"
)

// flags holds the persistent flag values shared by every command.
type flags struct {
	configFile string
	logLevel   string
	logFormat  string
	inputDir   string
	dataDir    string
	outputDir  string
	store      string
	sqlitePath string
	leagueFile string
	rounds     []string
	workers    int
	noExcel    bool
	noPDF      bool
}

// Execute runs the command tree with ctx, which is cancelled on shutdown
// signals by the caller.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd builds the root command and its subcommands.
func NewRootCmd() *cobra.Command {
	f := &flags{}
	var cfg *config.Config

	cmd := &cobra.Command{
		Use:           "xcleague",
		Short:         "Cross country league results and standings",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			*cfg = *loaded
			return setupLogging(cmd, cfg)
		},
	}
	cfg = config.New()

	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configFile, "config", "", "config file (YAML); defaults to $"+config.EnvConfig)
	pf.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&f.logFormat, "log-format", "", "log format: text, json, tint")
	pf.StringVar(&f.inputDir, "input", "", "directory of raw race files (<round>/<race>.csv)")
	pf.StringVar(&f.dataDir, "data", "", "directory of the CSV results store")
	pf.StringVar(&f.outputDir, "output", "", "directory for rendered reports")
	pf.StringVar(&f.store, "store", "", "results store: csv or sqlite")
	pf.StringVar(&f.sqlitePath, "sqlite-path", "", "database file of the sqlite store")
	pf.StringVar(&f.leagueFile, "league", "", "league definition (YAML); empty uses the built-in league")
	pf.StringSliceVar(&f.rounds, "rounds", nil, "rounds to process, e.g. r1,r2; empty processes all")
	pf.IntVar(&f.workers, "workers", 0, "concurrent race files or categories")
	pf.BoolVar(&f.noExcel, "no-excel", false, "skip the Excel report")
	pf.BoolVar(&f.noPDF, "no-pdf", false, "skip the PDF report")

	cmd.AddCommand(
		newProcessCmd(cfg),
		newWatchCmd(cfg),
		newRenderCmd(cfg),
		newServeCmd(cfg),
		newLeagueCmd(cfg),
	)
	return cmd
}

// loadConfig layers flags over the file and environment configuration.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	path := f.configFile
	if path == "" {
		path = os.Getenv(config.EnvConfig)
	}
	cfg, err := config.LoadFile(cmd.Context(), path)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	set := func(name string, dst *string, v string) {
		if changed(name) {
			*dst = v
		}
	}
	set("log-level", &cfg.LogLevel, f.logLevel)
	set("log-format", &cfg.LogFormat, f.logFormat)
	set("input", &cfg.InputDir, f.inputDir)
	set("data", &cfg.DataDir, f.dataDir)
	set("output", &cfg.OutputDir, f.outputDir)
	set("store", &cfg.Store, strings.ToLower(f.store))
	set("sqlite-path", &cfg.SQLitePath, f.sqlitePath)
	set("league", &cfg.LeagueFile, f.leagueFile)
	if changed("rounds") {
		cfg.Rounds = f.rounds
	}
	if changed("workers") {
		cfg.WorkerCount = f.workers
	}
	if f.noExcel {
		cfg.Excel = false
	}
	if f.noPDF {
		cfg.PDF = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(cmd *cobra.Command, cfg *config.Config) error {
	if err := logger.Init(); err != nil {
		return err
	}
	if err := logger.Configure(cfg.LogFormat, cmd.ErrOrStderr()); err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	return nil
}
