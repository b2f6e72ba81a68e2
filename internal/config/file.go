package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// LoadFromFile reads the YAML file at path into cfg. Keys missing from the
// file keep the values cfg already holds.
func LoadFromFile(path string, cfg *Config) error {
	// If path is relative, make it absolute based on the working directory
	if !filepath.IsAbs(path) {
		abspath, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = abspath
	}

	fileInfo, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("config file does not exist: %w", err)
	}

	log.Debug().
		Str("config_file", path).
		Int64("file_size", fileInfo.Size()).
		Time("file_mod_time", fileInfo.ModTime()).
		Msg("Loading configuration from file")

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Error().Err(err).Str("config_file", path).Msg("Failed to unmarshal YAML config")
		return fmt.Errorf("failed to unmarshal config file: %w", err)
	}

	log.Debug().
		Str("config_file", path).
		Str("database_type", cfg.Database.Type).
		Bool("has_database_password", cfg.Database.Password != "").
		Msg("Successfully parsed configuration file")

	return nil
}
