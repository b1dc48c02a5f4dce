// Package config loads the server and migration settings from the
// environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage backends selectable through STORAGE_BACKEND.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

// Config holds every environment-driven setting.
type Config struct {
	Addr            string        `env:"ADDR"`
	Port            string        `env:"PORT"                 envDefault:"3000"`
	WebDir          string        `env:"WEB_DIR"              envDefault:"web"`
	Password        string        `env:"SYSTEM_PASSWORD"`
	Backend         string        `env:"STORAGE_BACKEND"      envDefault:"file"`
	DataFile        string        `env:"DATA_FILE"            envDefault:"data/progress_data.json"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	SQLitePath      string        `env:"SQLITE_PATH"          envDefault:"data/progress.db"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS"    envDefault:"10"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS"    envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	GoalWeight      float64       `env:"GOAL_WEIGHT"          envDefault:"85"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"     envDefault:"10s"`
}

// Load parses the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = ":" + c.Port
	}
}

// ValidateStorage checks that the selected backend has what it needs.
func (c Config) ValidateStorage() error {
	switch c.Backend {
	case BackendFile:
		if c.DataFile == "" {
			return errors.New("DATA_FILE is required for the file backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres backend")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for the sqlite backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Backend)
	}
	if c.MaxOpenConns < 1 {
		return errors.New("DB_MAX_OPEN_CONNS must be at least 1")
	}
	return nil
}

// Validate checks everything the HTTP server needs.
func (c Config) Validate() error {
	if c.Password == "" {
		return errors.New("SYSTEM_PASSWORD is required")
	}
	return c.ValidateStorage()
}
