package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/drallgood/mediatrack/internal/logger"
)

// seriesSlotIndex keeps one row without an external id per series position.
// MySQL has no partial indexes; there the repository lookup is the only guard.
const seriesSlotIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_audiobooks_series_slot
	ON audiobooks (series_name, series_position) WHERE external_id IS NULL`

// Database wraps the GORM database connection
type Database struct {
	db     *gorm.DB
	config *DatabaseConfig
	logger *logger.Logger
}

// NewDatabase connects using config, falling back to SQLite when the
// configured server is unusable, and migrates the schema.
func NewDatabase(config *DatabaseConfig, log *logger.Logger) (*Database, error) {
	if log == nil {
		log = logger.Nop()
	}

	db, used, err := ConnectWithFallback(config, log)
	if err != nil {
		return nil, err
	}

	database := &Database{
		db:     db,
		config: used,
		logger: log,
	}

	if err := database.migrate(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return database, nil
}

// migrate runs database migrations
func (d *Database) migrate() error {
	d.logger.Debug("Running database migrations", nil)

	if err := d.db.AutoMigrate(&Audiobook{}, &ImportRun{}); err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}

	switch d.db.Dialector.Name() {
	case "sqlite", "postgres":
		if err := d.db.Exec(seriesSlotIndex).Error; err != nil {
			return fmt.Errorf("failed to create series slot index: %w", err)
		}
	default:
		d.logger.Debug("Skipping partial series index for dialect", map[string]interface{}{
			"dialect": d.db.Dialector.Name(),
		})
	}

	d.logger.Debug("Database migrations completed successfully", nil)
	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	d.logger.Debug("Database connection closed", nil)
	return nil
}

// GetDB returns the underlying GORM database instance
func (d *Database) GetDB() *gorm.DB {
	return d.db
}

// Config returns the configuration the connection was actually opened with.
// It differs from the requested one after a fallback.
func (d *Database) Config() *DatabaseConfig {
	return d.config
}

// Health checks the database connection
func (d *Database) Health() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
