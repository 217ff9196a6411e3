// Package config loads process configuration from an optional file and the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"terminal-collector/internal/domain"
)

// ErrMissingDatabaseURL is returned when no database connection string is configured.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL is not set")

// Config is the collector process configuration.
// Keys are flat so the same names work in YAML, .env files and the environment.
type Config struct {
	DatabaseURL      string        `mapstructure:"database_url"`
	MT5Path          string        `mapstructure:"mt5_path"` // ;-delimited fallback terminal paths
	LogLevel         string        `mapstructure:"log_level"`
	LogFormat        string        `mapstructure:"log_format"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	BridgeURL        string        `mapstructure:"bridge_url"`
	BridgeTimeout    time.Duration `mapstructure:"bridge_timeout"`
	BridgeMaxRetries int           `mapstructure:"bridge_max_retries"`
	MetricsAddr      string        `mapstructure:"metrics_addr"`
	ClickhouseDSN    string        `mapstructure:"clickhouse_dsn"`
}

// Load reads configuration from path (YAML, JSON or .env; empty for none) and the environment.
// Environment variables override the file. With requireDatabase set, a missing
// DATABASE_URL fails with ErrMissingDatabaseURL.
func Load(path string, requireDatabase bool) (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("database_url", "")
	v.SetDefault("mt5_path", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("poll_interval", "60s")
	v.SetDefault("bridge_url", "http://127.0.0.1:18812/rpc")
	v.SetDefault("bridge_timeout", "0s")
	v.SetDefault("bridge_max_retries", 3)
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("clickhouse_dsn", "")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(requireDatabase); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later in the loop.
func (c Config) Validate(requireDatabase bool) error {
	if requireDatabase && c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.BridgeTimeout < 0 {
		return fmt.Errorf("bridge_timeout must not be negative, got %s", c.BridgeTimeout)
	}
	if c.BridgeMaxRetries < 0 {
		return fmt.Errorf("bridge_max_retries must not be negative, got %d", c.BridgeMaxRetries)
	}
	return nil
}

// FallbackEndpoints returns the static endpoint list used when the database has none.
func (c Config) FallbackEndpoints() []domain.Endpoint {
	return domain.ParseEndpoints(c.MT5Path)
}
