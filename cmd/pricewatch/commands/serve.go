package commands

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go-pricewatch/internal/api"
	"go-pricewatch/internal/api/handler"
	"go-pricewatch/internal/errors"
	"go-pricewatch/internal/export"
	"go-pricewatch/internal/logger"
	"go-pricewatch/internal/metrics"
	"go-pricewatch/pkg/router"
)

// ServeCmd starts the export HTTP API.
var ServeCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Start the export HTTP API",
	Long: `Serve the export API: export type listing, workbook downloads,
the run audit log, health and Prometheus metrics.

Examples:
  pricewatch serve
  pricewatch serve --addr :9090 --db-driver pgx --db-dsn postgres://localhost/pricewatch`,
	RunE: runServe,
}

func init() {
	ServeCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.Named("serve")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	deps := api.Deps{DB: s}
	var observer export.Observer
	if cfg.Metrics.Enabled {
		m := metrics.New()
		observer = m
		deps.Metrics = m.Handler()
	}
	deps.Exports = handler.NewExportHandler(newDispatcher(s, observer), s, handler.ExportOptions{
		RunsLimit:        cfg.Export.RunsLimit,
		DefaultStreaming: cfg.Export.DefaultStreaming,
	}, logger.Named("http"))

	r := router.New(logger.Named("router"))
	api.RegisterRoutes(r, deps)
	srv := r.Server(cfg.Server.Addr)

	errCh := make(chan error, 1)
	go func() {
		log.Infow("Listening", "addr", cfg.Server.Addr, "driver", cfg.Database.Driver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "server failed")
	case <-ctx.Done():
	}

	log.Infow("Shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "graceful shutdown")
	}
	return nil
}
