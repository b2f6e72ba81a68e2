package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DatabaseType represents the supported database types
type DatabaseType string

const (
	DatabaseTypeSQLite     DatabaseType = "sqlite"
	DatabaseTypeSQLiteCGO  DatabaseType = "sqlite3"
	DatabaseTypePostgreSQL DatabaseType = "postgresql"
	DatabaseTypeMySQL      DatabaseType = "mysql"
	DatabaseTypeMariaDB    DatabaseType = "mariadb"
)

// ParseDatabaseType maps user supplied names onto a DatabaseType. Unknown
// names fall back to pure Go SQLite.
func ParseDatabaseType(s string) DatabaseType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgresql", "postgres", "pg":
		return DatabaseTypePostgreSQL
	case "mysql":
		return DatabaseTypeMySQL
	case "mariadb":
		return DatabaseTypeMariaDB
	case "sqlite3", "sqlite-cgo":
		return DatabaseTypeSQLiteCGO
	default:
		return DatabaseTypeSQLite
	}
}

func (t DatabaseType) isSQLite() bool {
	return t == DatabaseTypeSQLite || t == DatabaseTypeSQLiteCGO
}

// Settings is the database section of config.yaml
type Settings struct {
	Type           string `yaml:"type"`
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Name           string `yaml:"name"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	Path           string `yaml:"path"`
	SSLMode        string `yaml:"ssl_mode"`
	ConnectionPool struct {
		MaxOpenConns    int `yaml:"max_open_conns"`
		MaxIdleConns    int `yaml:"max_idle_conns"`
		ConnMaxLifetime int `yaml:"conn_max_lifetime"` // in minutes
	} `yaml:"connection_pool"`
}

// DatabaseConfig holds the resolved configuration for database connections
type DatabaseConfig struct {
	Type     DatabaseType
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string
	Path     string // SQLite only

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
}

// GetDefaultDatabasePath returns the default path for the database file
func GetDefaultDatabasePath() string {
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "./data"
	}
	return filepath.Join(dataDir, "mediatrack.db")
}

// NewDatabaseConfig resolves file settings, letting DATABASE_* environment
// variables take precedence, and fills in per-type defaults.
func NewDatabaseConfig(s Settings) *DatabaseConfig {
	overrideString(&s.Type, "DATABASE_TYPE")
	overrideString(&s.Host, "DATABASE_HOST")
	overrideInt(&s.Port, "DATABASE_PORT")
	overrideString(&s.Name, "DATABASE_NAME")
	overrideString(&s.User, "DATABASE_USER")
	overrideString(&s.Password, "DATABASE_PASSWORD")
	overrideString(&s.Path, "DATABASE_PATH")
	overrideString(&s.SSLMode, "DATABASE_SSL_MODE")
	overrideInt(&s.ConnectionPool.MaxOpenConns, "DATABASE_MAX_OPEN_CONNS")
	overrideInt(&s.ConnectionPool.MaxIdleConns, "DATABASE_MAX_IDLE_CONNS")
	overrideInt(&s.ConnectionPool.ConnMaxLifetime, "DATABASE_CONN_MAX_LIFETIME")

	cfg := &DatabaseConfig{Type: ParseDatabaseType(s.Type)}

	if cfg.Type.isSQLite() {
		cfg.Path = withFallback(s.Path, GetDefaultDatabasePath())
		return cfg
	}

	cfg.Host = withFallback(s.Host, "localhost")
	cfg.Database = withFallback(s.Name, "mediatrack")
	cfg.Username = s.User
	cfg.Password = s.Password
	cfg.SSLMode = withFallback(s.SSLMode, "prefer")
	cfg.Port = s.Port
	if cfg.Port <= 0 {
		switch cfg.Type {
		case DatabaseTypePostgreSQL:
			cfg.Port = 5432
		case DatabaseTypeMySQL, DatabaseTypeMariaDB:
			cfg.Port = 3306
		}
	}
	cfg.MaxOpenConns = intWithFallback(s.ConnectionPool.MaxOpenConns, 25)
	cfg.MaxIdleConns = intWithFallback(s.ConnectionPool.MaxIdleConns, 5)
	cfg.ConnMaxLifetime = intWithFallback(s.ConnectionPool.ConnMaxLifetime, 60)
	return cfg
}

// Validate checks if the database configuration is valid
func (c *DatabaseConfig) Validate() error {
	switch c.Type {
	case DatabaseTypeSQLite, DatabaseTypeSQLiteCGO:
		if c.Path == "" {
			return fmt.Errorf("SQLite database path is required")
		}
	case DatabaseTypePostgreSQL, DatabaseTypeMySQL, DatabaseTypeMariaDB:
		if c.Host == "" {
			return fmt.Errorf("database host is required for %s", c.Type)
		}
		if c.Database == "" {
			return fmt.Errorf("database name is required for %s", c.Type)
		}
		if c.Port <= 0 {
			return fmt.Errorf("valid database port is required for %s", c.Type)
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Type)
	}
	return nil
}

// GetDSN returns the data source name for the database connection
func (c *DatabaseConfig) GetDSN() string {
	switch c.Type {
	case DatabaseTypeSQLite, DatabaseTypeSQLiteCGO:
		return c.Path
	case DatabaseTypePostgreSQL:
		dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
			c.Host, c.Port, c.Database, c.SSLMode)
		if c.Username != "" {
			dsn += fmt.Sprintf(" user=%s", c.Username)
		}
		if c.Password != "" {
			dsn += fmt.Sprintf(" password=%s", c.Password)
		}
		return dsn
	case DatabaseTypeMySQL, DatabaseTypeMariaDB:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.Username, c.Password, c.Host, c.Port, c.Database)
	default:
		return ""
	}
}

func overrideString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			*dst = n
		}
	}
}

func withFallback(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func intWithFallback(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
