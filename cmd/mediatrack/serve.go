package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/drallgood/mediatrack/internal/api"
	"github.com/drallgood/mediatrack/internal/ingest"
	"github.com/drallgood/mediatrack/internal/logger"
	"github.com/drallgood/mediatrack/internal/server"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the library API and re-import periodically",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "server-only",
				Usage: "Disable periodic imports",
			},
			&cli.DurationFlag{
				Name:  "import-interval",
				Usage: "Override import.interval",
				Value: -1,
			},
		},
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.Close()

	log := e.log
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	importer := e.importer()
	handler := api.NewHandler(e.library(), importer, api.ImportSource{
		DefaultPath: e.cfg.Import.Path,
		Dir:         e.cfg.Import.Dir,
	}, log)
	srv := server.New(":"+e.cfg.Server.Port, handler, e.db, log)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	interval := e.cfg.Import.Interval
	if d := c.Duration("import-interval"); d >= 0 {
		interval = d
	}
	abortCh := make(chan struct{})
	switch {
	case c.Bool("server-only"):
	case interval > 0 && e.cfg.Import.Path != "":
		StartPeriodicImport(ctx, importer, e.cfg.Import.Path, abortCh, interval, log)
	default:
		log.Info("Periodic import is disabled (set import.path and import.interval to enable)", nil)
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received", nil)
	case runErr = <-errCh:
		log.Error("Fatal error occurred", map[string]interface{}{
			"error": runErr.Error(),
		})
	}

	stop()
	close(abortCh)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), e.cfg.Server.ShutdownTimeout)
	defer cancel()

	log.Info("Initiating graceful shutdown...", map[string]interface{}{
		"timeout": e.cfg.Server.ShutdownTimeout.String(),
	})
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Error("Error during server shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	}

	log.Info("Shutdown completed", nil)
	if runErr != nil {
		return fmt.Errorf("server stopped: %w", runErr)
	}
	return nil
}

// StartPeriodicImport imports path immediately and then on every tick until
// abortCh is closed. A tick that finds an import already running (for example
// one started through the API) is skipped.
func StartPeriodicImport(ctx context.Context, importer api.Importer, path string, abortCh <-chan struct{}, interval time.Duration, log *logger.Logger) {
	log = log.With(map[string]interface{}{"interval": interval.String()})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		periodicImport(ctx, importer, path, log)

		for {
			select {
			case <-ticker.C:
				periodicImport(ctx, importer, path, log)
			case <-abortCh:
				return
			}
		}
	}()
}

func periodicImport(ctx context.Context, importer api.Importer, path string, log *logger.Logger) {
	_, err := importer.Import(ctx, path)
	switch {
	case err == nil:
	case errors.Is(err, ingest.ErrImportInProgress):
		log.Info("Skipping periodic import, another import is running", nil)
	default:
		log.Error("Periodic import failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
