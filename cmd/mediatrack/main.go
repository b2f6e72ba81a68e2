// Command mediatrack imports audiobook library exports, tracks missing books
// in numbered series and serves listening statistics.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/drallgood/mediatrack/internal/config"
	"github.com/drallgood/mediatrack/internal/database"
	"github.com/drallgood/mediatrack/internal/ingest"
	"github.com/drallgood/mediatrack/internal/library"
	"github.com/drallgood/mediatrack/internal/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logger.Get().Error("Error running application", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "mediatrack",
		Usage:   "Track an audiobook library and the books missing from its series",
		Version: fmt.Sprintf("%s (%s) %s", version, commit, date),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				Value:   "config.yaml",
				EnvVars: []string{"CONFIG_PATH"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Override the configured log level",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Override the configured log format (json, console)",
			},
			&cli.StringFlag{
				Name:  "db-path",
				Usage: "SQLite database `FILE`, overrides configuration",
			},
		},
		Commands: []*cli.Command{
			importCommand(),
			seriesCommand(),
			statsCommand(),
			listenCommand(),
			runsCommand(),
			serveCommand(),
		},
	}
}

// env holds what every command needs once configuration is loaded
type env struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *database.Database
	books *database.AudiobookRepository
	runs  *database.ImportRunRepository
}

func setup(c *cli.Context) (*env, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if v := c.String("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if v := c.String("log-format"); v != "" {
		cfg.Logging.Format = v
	}

	log := logger.ForceSetup(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     logger.ParseLogFormat(cfg.Logging.Format),
		Output:     c.App.ErrWriter,
		TimeFormat: time.RFC3339,
	})

	dbCfg := database.NewDatabaseConfig(cfg.Database)
	if p := c.String("db-path"); p != "" {
		dbCfg.Type = database.DatabaseTypeSQLite
		dbCfg.Path = p
	}

	db, err := database.NewDatabase(dbCfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &env{
		cfg:   cfg,
		log:   log,
		db:    db,
		books: database.NewAudiobookRepository(db, log),
		runs:  database.NewImportRunRepository(db, log),
	}, nil
}

func (e *env) Close() {
	if err := e.db.Close(); err != nil {
		e.log.Warn("Failed to close database", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (e *env) importer() *ingest.Service {
	return ingest.NewService(e.books, e.log,
		ingest.WithWorkers(e.cfg.Import.Workers),
		ingest.WithRunRecorder(e.runs),
	)
}

func (e *env) library() *library.Service {
	return library.NewService(e.books, e.runs, e.log)
}
