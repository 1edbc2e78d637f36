package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/evsense/api/analysis"
	"github.com/kilianp07/evsense/app"
	"github.com/kilianp07/evsense/infra/logger"
	"github.com/kilianp07/evsense/infra/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis API",
	RunE:  serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := logger.New("serve")

	comp, err := app.Build(cfg)
	if err != nil {
		return err
	}
	if cfg.Artifacts.Prefetch {
		if err := comp.Registry.Prefetch(ctx); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if addr := cfg.Metrics.PrometheusAddr; addr != "" {
		g.Go(func() error { return metrics.StartPromServer(gctx, addr) })
	}
	g.Go(func() error {
		log.Infof("analysis api listening on %s", cfg.API.Addr)
		return listen(gctx, &http.Server{Addr: cfg.API.Addr, Handler: analysis.Routes(comp.Service), ReadHeaderTimeout: 5 * time.Second})
	})
	return g.Wait()
}

// listen serves srv until ctx is done, then shuts it down gracefully.
func listen(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
