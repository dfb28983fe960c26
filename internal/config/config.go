package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr         string        `env:"BRACKET_ADDR" envDefault:":8080"`
	DBPath       string        `env:"BRACKET_DB_PATH" envDefault:"bracket.db?_journal_mode=WAL"`
	LogLevel     string        `env:"BRACKET_LOG_LEVEL" envDefault:"info"`
	DecayEnabled bool          `env:"BRACKET_DECAY_ENABLED" envDefault:"false"`
	DecayCron    string        `env:"BRACKET_DECAY_CRON" envDefault:"0 3 * * *"`
	DecayTimeout time.Duration `env:"BRACKET_DECAY_TIMEOUT" envDefault:"5m"`
	CORSOrigins  []string      `env:"BRACKET_CORS_ORIGINS" envSeparator:"," envDefault:"*"`
}

// Load reads the .env files when present and parses the environment.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}
	return Parse()
}

func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Level maps LogLevel onto a slog level, defaulting to info.
func (c Config) Level() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
