package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/okian/xcleague/internal/adapters/report"
	"github.com/okian/xcleague/internal/adapters/repository"
	service "github.com/okian/xcleague/internal/app"
	"github.com/okian/xcleague/internal/config"
	"github.com/okian/xcleague/internal/league"
	"github.com/okian/xcleague/pkg/logger"
)

// Report file names inside the output directory.
const (
	excelFile = "standings.xlsx"
	pdfFile   = "standings.pdf"
)

// openStore opens the configured results store.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	log := logger.Get().Named("repository")
	if cfg.Store == config.StoreSQLite {
		s, err := repository.NewSQLiteStore(ctx, cfg.SQLitePath, repository.WithLogger(log))
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := repository.NewCSVStore(cfg.DataDir, repository.WithLogger(log))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// renderers returns the report outputs enabled in cfg.
func renderers(cfg *config.Config, l *league.League) []report.Renderer {
	title := cfg.ReportTitle
	if title == config.DefaultReportTitle && l.Name != "" {
		title = l.Name
	}
	var out []report.Renderer
	if cfg.Excel {
		out = append(out, report.NewExcelRenderer(filepath.Join(cfg.OutputDir, excelFile), report.WithTitle(title)))
	}
	if cfg.PDF {
		out = append(out, report.NewPDFRenderer(filepath.Join(cfg.OutputDir, pdfFile), report.WithTitle(title)))
	}
	return out
}

// newService wires the pipeline from cfg. The caller closes the store.
func newService(ctx context.Context, cfg *config.Config) (*service.Service, repository.Store, error) {
	l, err := league.Load(ctx, cfg.LeagueFile)
	if err != nil {
		return nil, nil, err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.Store, err)
	}
	svc, err := service.New(
		service.WithStore(store),
		service.WithLeague(l),
		service.WithInputDir(cfg.InputDir),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithRenderers(renderers(cfg, l)...),
		service.WithDebounce(time.Duration(cfg.WatchDebounceMS)*time.Millisecond),
		service.WithQueueSize(cfg.ChangeQueueSize),
		service.WithLogger(logger.Get().Named("service")),
	)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return svc, store, nil
}
