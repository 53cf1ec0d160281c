package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures environment driven configuration values for the
// mediation platform service.
type Config struct {
	HTTPPort   int           `env:"MEDIATION_HTTP_PORT" envDefault:"8080"`
	SQLiteDSN  string        `env:"MEDIATION_SQLITE_DSN" envDefault:"file:mediation.db"`
	SessionTTL time.Duration `env:"MEDIATION_SESSION_TTL" envDefault:"24h"`
}

// Load parses configuration values from the current process environment
// and validates them.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return Config{}, fmt.Errorf("MEDIATION_HTTP_PORT must be between 1 and 65535, got %d", cfg.HTTPPort)
	}
	if cfg.SQLiteDSN == "" {
		return Config{}, fmt.Errorf("MEDIATION_SQLITE_DSN must not be empty")
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("MEDIATION_SESSION_TTL must be positive, got %s", cfg.SessionTTL)
	}

	return cfg, nil
}
