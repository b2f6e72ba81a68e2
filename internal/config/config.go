package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/drallgood/mediatrack/internal/database"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server struct {
		Port            string        `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	// Logging configuration
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	// Database configuration, resolved by database.NewDatabaseConfig
	Database database.Settings `yaml:"database"`

	// Import settings
	Import struct {
		// Path is the export re-imported by serve mode and used when the
		// import command gets no argument
		Path string `yaml:"path"`
		// Dir lets POST /api/import name other files below it
		Dir      string        `yaml:"dir"`
		Workers  int           `yaml:"workers"`
		Interval time.Duration `yaml:"interval"`
	} `yaml:"import"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = "8080"
	cfg.Server.ShutdownTimeout = 10 * time.Second
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	cfg.Database.Type = string(database.DatabaseTypeSQLite)
	cfg.Import.Workers = 4
	return cfg
}

// Load builds the configuration from defaults, the optional YAML file and
// environment variables, in increasing priority.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := LoadFromFile(configFile, cfg); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, err
			}
			log.Warn().Str("path", configFile).Msg("Config file not found, using environment variables and defaults")
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("port", cfg.Server.Port).
		Str("log_level", cfg.Logging.Level).
		Str("database_type", cfg.Database.Type).
		Str("import_path", cfg.Import.Path).
		Str("import_dir", cfg.Import.Dir).
		Int("import_workers", cfg.Import.Workers).
		Dur("import_interval", cfg.Import.Interval).
		Msg("Configuration loaded")

	return cfg, nil
}

// Validate checks that the configuration values are usable
func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port <= 0 || port > 65535 {
		return &ConfigError{Field: "server.port", Msg: fmt.Sprintf("must be a valid TCP port, got %q", c.Server.Port)}
	}
	if c.Server.ShutdownTimeout < 0 {
		return &ConfigError{Field: "server.shutdown_timeout", Msg: "must not be negative"}
	}
	if c.Import.Workers <= 0 {
		return &ConfigError{Field: "import.workers", Msg: "must be at least 1"}
	}
	if c.Import.Interval < 0 {
		return &ConfigError{Field: "import.interval", Msg: "must not be negative"}
	}
	if c.Import.Interval > 0 && c.Import.Path == "" {
		return &ConfigError{Field: "import.path", Msg: "is required when import.interval is set"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Msg
}

// loadFromEnv applies environment overrides. DATABASE_* variables are
// handled by the database package.
func loadFromEnv(cfg *Config) {
	if port := getEnv("PORT", ""); port != "" {
		cfg.Server.Port = port
	}
	if timeout := getDurationFromEnv("SHUTDOWN_TIMEOUT", 0); timeout > 0 {
		cfg.Server.ShutdownTimeout = timeout
	}

	if level := getEnv("LOG_LEVEL", ""); level != "" {
		cfg.Logging.Level = strings.ToLower(level)
	}
	if format := getEnv("LOG_FORMAT", ""); format != "" {
		cfg.Logging.Format = strings.ToLower(format)
	}

	if path := getEnv("IMPORT_PATH", ""); path != "" {
		cfg.Import.Path = path
	}
	if dir := getEnv("IMPORT_DIR", ""); dir != "" {
		cfg.Import.Dir = dir
	}
	if workers := getIntFromEnv("IMPORT_WORKERS", 0); workers > 0 {
		cfg.Import.Workers = workers
	}
	// IMPORT_INTERVAL=0 disables periodic imports configured in the file
	cfg.Import.Interval = getDurationFromEnv("IMPORT_INTERVAL", cfg.Import.Interval)
}

// Helper functions for environment variable parsing
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getIntFromEnv(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		i, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to parse int from env var")
			return fallback
		}
		return i
	}
	return fallback
}

// getDurationFromEnv reads a duration from an environment variable or returns a default value
func getDurationFromEnv(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to parse duration from env var")
			return fallback
		}
		return d
	}
	return fallback
}
