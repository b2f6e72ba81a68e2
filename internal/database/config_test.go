package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drallgood/mediatrack/internal/logger"
)

func TestParseDatabaseType(t *testing.T) {
	tests := map[string]DatabaseType{
		"":           DatabaseTypeSQLite,
		"sqlite":     DatabaseTypeSQLite,
		"SQLite3":    DatabaseTypeSQLiteCGO,
		"postgres":   DatabaseTypePostgreSQL,
		"postgresql": DatabaseTypePostgreSQL,
		"mysql":      DatabaseTypeMySQL,
		"MariaDB":    DatabaseTypeMariaDB,
		"oracle":     DatabaseTypeSQLite,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseDatabaseType(in), in)
	}
}

func TestNewDatabaseConfig(t *testing.T) {
	t.Run("sqlite defaults to data dir", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("DATA_DIR", dir)

		cfg := NewDatabaseConfig(Settings{})
		assert.Equal(t, DatabaseTypeSQLite, cfg.Type)
		assert.Equal(t, filepath.Join(dir, "mediatrack.db"), cfg.Path)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("postgres defaults", func(t *testing.T) {
		cfg := NewDatabaseConfig(Settings{Type: "postgres", User: "app"})
		assert.Equal(t, "localhost", cfg.Host)
		assert.Equal(t, 5432, cfg.Port)
		assert.Equal(t, "mediatrack", cfg.Database)
		assert.Equal(t, 25, cfg.MaxOpenConns)
		assert.Equal(t, "host=localhost port=5432 dbname=mediatrack sslmode=prefer user=app", cfg.GetDSN())
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("DATABASE_TYPE", "mysql")
		t.Setenv("DATABASE_HOST", "db.internal")
		t.Setenv("DATABASE_PORT", "3307")
		t.Setenv("DATABASE_USER", "root")
		t.Setenv("DATABASE_PASSWORD", "secret")

		cfg := NewDatabaseConfig(Settings{Type: "postgres", Host: "ignored"})
		assert.Equal(t, DatabaseTypeMySQL, cfg.Type)
		assert.Equal(t, "root:secret@tcp(db.internal:3307)/mediatrack?charset=utf8mb4&parseTime=True&loc=Local", cfg.GetDSN())
	})
}

func TestDatabaseConfig_Validate(t *testing.T) {
	assert.Error(t, (&DatabaseConfig{Type: DatabaseTypeSQLite}).Validate())
	assert.Error(t, (&DatabaseConfig{Type: DatabaseTypePostgreSQL, Database: "x", Port: 5432}).Validate())
	assert.Error(t, (&DatabaseConfig{Type: "oracle"}).Validate())
	assert.NoError(t, (&DatabaseConfig{Type: DatabaseTypeMySQL, Host: "h", Database: "d", Port: 3306}).Validate())
}

func TestNewDatabase_FallsBackToSQLite(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_DIR", dir)

	db, err := NewDatabase(&DatabaseConfig{Type: DatabaseTypePostgreSQL}, logger.Nop())
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, DatabaseTypeSQLite, db.Config().Type)
	assert.Equal(t, filepath.Join(dir, "mediatrack.db"), db.Config().Path)
	assert.NoError(t, db.Health())
}
