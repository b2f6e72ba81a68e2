package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/drallgood/mediatrack/internal/logger"

	// Pure Go SQLite driver (no CGO required)
	_ "modernc.org/sqlite"
)

// PureSQLiteDriver implements DatabaseDriver on top of modernc.org/sqlite.
// It is the default so the binary builds without cgo.
type PureSQLiteDriver struct{}

func (d *PureSQLiteDriver) Connect(config *DatabaseConfig, log *logger.Logger) (*gorm.DB, error) {
	if err := d.PrepareDatabase(config); err != nil {
		return nil, err
	}

	db, err := gorm.Open(d.GetDialector(config), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite database (pure Go): %w", err)
	}
	if err := configureSQLitePool(db); err != nil {
		return nil, err
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			log.Warn("Failed to apply SQLite pragma", map[string]interface{}{
				"pragma": pragma,
				"error":  err.Error(),
			})
		}
	}

	return db, nil
}

func (d *PureSQLiteDriver) GetDialector(config *DatabaseConfig) gorm.Dialector {
	return sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        config.Path,
	}
}

func (d *PureSQLiteDriver) PrepareDatabase(config *DatabaseConfig) error {
	return prepareSQLiteDir(config)
}
