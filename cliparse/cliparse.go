// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const (
	DatabaseSQLite   = "sqlite"
	DatabasePostgres = "postgres"
)

type Config struct {
	Port          int    `env:"PORT" env-default:"3318"`
	DatabaseURL   string `env:"DATABASE_URL"`
	DatabaseType  string `env:"DATABASE_TYPE" env-default:"sqlite"`
	LogLevel      string `env:"LOG_LEVEL" env-default:"info"`
	CallerSecret  string `env:"CALLER_SECRET"`
	AllowedOrigin string `env:"ALLOWED_ORIGIN"`
}

// AddFlags registers the configuration flags on fs.
func AddFlags(fs *pflag.FlagSet) {
	fs.IntP("port", "p", 0, "Server port")
	fs.StringP("database-url", "d", "", "Database URL")
	fs.StringP("database-type", "t", "", "Database type (sqlite or postgres)")
	fs.String("log-level", "", "Log level (debug, info, warn, error)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.String("caller-secret", "", "HMAC secret for X-User-Signature (prefer env)")
	fs.String("allowed-origin", "", "CORS allowed origin")
}

// FromFlags resolves the configuration: explicit flags win over the
// environment, the environment wins over .env, and .env wins over defaults.
func FromFlags(fs *pflag.FlagSet) (Config, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}

	if fs.Changed("port") {
		cfg.Port, _ = fs.GetInt("port")
	}
	overrideString(fs, "database-url", &cfg.DatabaseURL)
	overrideString(fs, "database-type", &cfg.DatabaseType)
	overrideString(fs, "log-level", &cfg.LogLevel)
	overrideString(fs, "caller-secret", &cfg.CallerSecret)
	overrideString(fs, "allowed-origin", &cfg.AllowedOrigin)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseFlags parses args into a fresh flag set and resolves the configuration.
func ParseFlags(args []string) (Config, error) {
	fs := pflag.NewFlagSet("quickly-elect", pflag.ContinueOnError)
	AddFlags(fs)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return FromFlags(fs)
}

// Validate checks required settings and enumerations.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL required (use -d or DATABASE_URL env)")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.DatabaseType {
	case DatabaseSQLite, DatabasePostgres:
	default:
		return fmt.Errorf("unsupported database type %q (sqlite or postgres)", c.DatabaseType)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level %q", c.LogLevel)
	}
	return nil
}

func overrideString(fs *pflag.FlagSet, name string, dst *string) {
	if fs.Changed(name) {
		*dst, _ = fs.GetString(name)
	}
}
