package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "bracket.db?_journal_mode=WAL", cfg.DBPath)
	assert.False(t, cfg.DecayEnabled)
	assert.Equal(t, "0 3 * * *", cfg.DecayCron)
	assert.Equal(t, 5*time.Minute, cfg.DecayTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("BRACKET_ADDR", ":9090")
	t.Setenv("BRACKET_DECAY_ENABLED", "true")
	t.Setenv("BRACKET_CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("BRACKET_LOG_LEVEL", "DEBUG")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.True(t, cfg.DecayEnabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
}

func TestParseInvalid(t *testing.T) {
	t.Setenv("BRACKET_DECAY_ENABLED", "sometimes")
	_, err := Parse()
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BRACKET_DECAY_CRON=*/5 * * * *\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("BRACKET_DECAY_CRON") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "*/5 * * * *", cfg.DecayCron)

	cfg, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
}

func TestLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, Config{LogLevel: in}.Level())
		})
	}
}
