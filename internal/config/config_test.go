package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `# Server configuration
server:
  port: "9090"
  shutdown_timeout: 5s

logging:
  level: debug
  format: console

database:
  type: postgres
  host: db.local
  name: books
  user: reader
  connection_pool:
    max_open_conns: 10

import:
  path: /exports/library.xlsx
  workers: 8
  interval: 30m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, "db.local", cfg.Database.Host)
	assert.Equal(t, 10, cfg.Database.ConnectionPool.MaxOpenConns)
	assert.Equal(t, "/exports/library.xlsx", cfg.Import.Path)
	assert.Equal(t, 8, cfg.Import.Workers)
	assert.Equal(t, 30*time.Minute, cfg.Import.Interval)
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: warn\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 4, cfg.Import.Workers)
	assert.Equal(t, "sqlite", cfg.Database.Type)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unterminated\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `server:
  port: "9090"
import:
  path: /exports/a.xlsx
  interval: 1h
`)
	t.Setenv("PORT", "7070")
	t.Setenv("LOG_LEVEL", "ERROR")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("IMPORT_PATH", "/exports/b.csv")
	t.Setenv("IMPORT_DIR", "/exports/incoming")
	t.Setenv("IMPORT_WORKERS", "2")
	t.Setenv("IMPORT_INTERVAL", "0")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "/exports/b.csv", cfg.Import.Path)
	assert.Equal(t, "/exports/incoming", cfg.Import.Dir)
	assert.Equal(t, 2, cfg.Import.Workers)
	assert.Zero(t, cfg.Import.Interval)
}

func TestInvalidEnvValuesAreIgnored(t *testing.T) {
	t.Setenv("IMPORT_WORKERS", "many")
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Import.Workers)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad port", func(c *Config) { c.Server.Port = "http" }, "server.port"},
		{"port out of range", func(c *Config) { c.Server.Port = "70000" }, "server.port"},
		{"no workers", func(c *Config) { c.Import.Workers = 0 }, "import.workers"},
		{"negative interval", func(c *Config) { c.Import.Interval = -time.Second }, "import.interval"},
		{"interval without path", func(c *Config) { c.Import.Interval = time.Minute }, "import.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}

	assert.NoError(t, Default().Validate())
}
