package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/okian/xcleague/internal/adapters/http/api"
	"github.com/okian/xcleague/internal/adapters/http/swagger"
	"github.com/okian/xcleague/internal/config"
	"github.com/okian/xcleague/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	var (
		addr  string
		watch bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored results and standings over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			ctx := cmd.Context()
			svc, store, err := newService(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			srv := &http.Server{
				Addr:              cfg.Addr,
				Handler:           newMux(ctx, api.NewServer(store, svc.Rules())),
				ReadTimeout:       readTimeout,
				WriteTimeout:      writeTimeout,
				IdleTimeout:       idleTimeout,
				ReadHeaderTimeout: readHeaderTimeout,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return serveHTTP(gctx, srv) })
			if watch {
				g.Go(func() error {
					rep, err := svc.Run(gctx, cfg.Rounds)
					printRun(cmd.OutOrStdout(), rep)
					if err != nil {
						logger.Get().Warn(gctx, "initial run failed", logger.Error(err))
					}
					return svc.Watch(gctx, cfg.Rounds)
				})
			}
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "HTTP listen address")
	cmd.Flags().BoolVar(&watch, "watch", false, "also process and watch the input directory")
	return cmd
}

// newMux registers the API and its documentation routes.
func newMux(ctx context.Context, s *api.Server) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	s.Register(ctx, mux)
	return mux
}

// serveHTTP runs srv until ctx is cancelled, then shuts it down gracefully.
func serveHTTP(ctx context.Context, srv *http.Server) error {
	log := logger.Get()
	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}
	log.Info(ctx, "server stopped")
	return nil
}
