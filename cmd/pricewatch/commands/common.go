// Package commands implements the pricewatch subcommands.
package commands

import (
	"context"

	"github.com/spf13/cobra"

	"go-pricewatch/internal/config"
	"go-pricewatch/internal/errors"
	"go-pricewatch/internal/export"
	"go-pricewatch/internal/logger"
	"go-pricewatch/internal/store"
)

// cfg is loaded once by Setup before any subcommand runs.
var cfg *config.Config

// flagKeys maps persistent flags onto configuration keys.
var flagKeys = map[string]string{
	"log-level": "log.level",
	"log-json":  "log.json",
	"db-driver": "database.driver",
	"db-dsn":    "database.dsn",
	"addr":      "server.addr",
}

// Setup loads configuration, lets explicitly set flags override it and
// initializes the global logger.
func Setup(cmd *cobra.Command, configFile string) error {
	v, err := config.New(configFile)
	if err != nil {
		return err
	}
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return errors.Wrapf(err, "bind flag %s", name)
			}
		}
	}
	c, err := config.Load(v)
	if err != nil {
		return err
	}
	if err := logger.Initialize(c.Log.JSON, c.Log.Level); err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}
	cfg = c
	return nil
}

// openStore opens and migrates the configured database.
func openStore(ctx context.Context) (*store.Store, error) {
	s, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, cfg.Database.MaxOpenConns, logger.Named("store"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, errors.Wrap(err, "failed to migrate database")
	}
	return s, nil
}

// newDispatcher wires both exporters over s. observer may be nil.
func newDispatcher(s *store.Store, observer export.Observer) *export.Dispatcher {
	log := logger.Named("export")
	dc := export.DispatcherConfig{
		Registry:  export.DefaultRegistry(s.Dialect()),
		Buffered:  export.NewBufferedExporter(s, log),
		Streaming: export.NewStreamingExporter(s, cfg.Export.FlushRows, log),
		Runs:      s,
		Observer:  observer,
		Logger:    log,
	}
	return export.NewDispatcher(dc)
}
