package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	service "github.com/okian/xcleague/internal/app"
	"github.com/okian/xcleague/internal/config"
	"github.com/okian/xcleague/pkg/logger"
)

func newProcessCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Process race files, rebuild standings and render reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, store, err := newService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			rep, err := svc.Run(cmd.Context(), cfg.Rounds)
			printRun(cmd.OutOrStdout(), rep)
			return err
		},
	}
}

func newWatchCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Process once, then re-process rounds whose race files change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, store, err := newService(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			rep, err := svc.Run(ctx, cfg.Rounds)
			printRun(cmd.OutOrStdout(), rep)
			if err != nil {
				// Keep watching: fixing the offending file triggers a new run.
				logger.Get().Warn(ctx, "initial run failed", logger.Error(err))
			}
			return svc.Watch(ctx, cfg.Rounds)
		},
	}
}

func newRenderCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "render",
		Short: "Render reports from stored standings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, store, err := newService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			rendered, err := svc.Render(cmd.Context())
			if len(rendered) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "rendered: %s\n", strings.Join(rendered, ", "))
			}
			return err
		},
	}
}

func printRun(w io.Writer, rep service.RunReport) {
	if rep.ID == "" {
		return
	}
	fmt.Fprintf(w, "run %s: %d files (%d failed), %d categories",
		rep.ID, len(rep.Files), rep.Failed(), len(rep.Categories))
	if len(rep.FailedCategories) > 0 {
		fmt.Fprintf(w, ", failed categories: %s", strings.Join(rep.FailedCategories, ", "))
	}
	if len(rep.Rendered) > 0 {
		fmt.Fprintf(w, ", rendered: %s", strings.Join(rep.Rendered, ", "))
	}
	fmt.Fprintln(w)
	for _, f := range rep.Files {
		if f.Err != nil {
			fmt.Fprintf(w, "  failed %s/%s: %v\n", f.Round, f.Race, f.Err)
		}
	}
}
