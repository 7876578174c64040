// Package config loads pricewatch settings from a TOML file, PRICEWATCH_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"go-pricewatch/internal/errors"
)

// Config holds every runtime setting.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Export   ExportConfig   `mapstructure:"export"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // sqlite3 or pgx
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type ExportConfig struct {
	FlushRows        int  `mapstructure:"flush_rows"`
	DefaultStreaming bool `mapstructure:"default_streaming"`
	RunsLimit        int  `mapstructure:"runs_limit"`
}

type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "pricewatch.db")
	v.SetDefault("database.max_open_conns", 10)

	v.SetDefault("export.flush_rows", 64)
	v.SetDefault("export.default_streaming", false)
	v.SetDefault("export.runs_limit", 50)

	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")

	v.SetDefault("metrics.enabled", true)
}

// New returns a viper instance with defaults and environment binding.
// When configFile is empty, pricewatch.toml is looked up in the working
// directory and in ~/.pricewatch; a missing file is not an error.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("PRICEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	v.SetConfigType("toml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("pricewatch")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".pricewatch"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}
	return v, nil
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "pgx":
	default:
		return errors.WithHint(
			errors.Newf("unsupported database driver %q", c.Database.Driver),
			"use sqlite3 or pgx")
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.Export.FlushRows <= 0 {
		return errors.Newf("export.flush_rows must be positive, got %d", c.Export.FlushRows)
	}
	if c.Export.RunsLimit <= 0 {
		return errors.Newf("export.runs_limit must be positive, got %d", c.Export.RunsLimit)
	}
	return nil
}
