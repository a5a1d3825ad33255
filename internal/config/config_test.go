package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
database:
  path: "`+filepath.Join(dir, "villabook.db")+`"
redis:
  address: "localhost:6379"
  db: 2
booking:
  hold_minutes: 45
  horizon_days: 365
  suggestion_window_days: 7
  max_suggestions: 5
  sweep_interval_minutes: 10
notify:
  rate_per_second: 2
  burst: 4
  queue_size: 64
`)

	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 45*time.Minute, cfg.HoldWindow())
	assert.Equal(t, 365, cfg.HorizonDays())
	assert.Equal(t, 7, cfg.SuggestionWindowDays())
	assert.Equal(t, 5, cfg.MaxSuggestions())
	assert.Equal(t, 10*time.Minute, cfg.SweepInterval())
	assert.Equal(t, float64(2), cfg.Notify.RatePerSecond)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
redis:
  address: "localhost:6379"
`)

	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "data/villabook.db", cfg.Database.Path)
	assert.Equal(t, 30*time.Minute, cfg.HoldWindow())
	assert.Equal(t, 730, cfg.HorizonDays())
	assert.Equal(t, 14, cfg.SuggestionWindowDays())
	assert.Equal(t, 3, cfg.MaxSuggestions())
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval())
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_REDIS_ADDR", "redis.internal:6380")

	path := writeConfig(t, `
redis:
  address: "${TEST_REDIS_ADDR}"
`)

	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Address)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
