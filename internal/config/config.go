package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Booking struct {
		HoldMinutes          int `yaml:"hold_minutes"`
		HorizonDays          int `yaml:"horizon_days"`
		SuggestionWindowDays int `yaml:"suggestion_window_days"`
		MaxSuggestions       int `yaml:"max_suggestions"`
		SweepIntervalMinutes int `yaml:"sweep_interval_minutes"`
	} `yaml:"booking"`

	Notify struct {
		RatePerSecond float64 `yaml:"rate_per_second"`
		Burst         int     `yaml:"burst"`
		QueueSize     int     `yaml:"queue_size"`
	} `yaml:"notify"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		Dir           string `yaml:"dir"`
		IntervalHours int    `yaml:"interval_hours"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/villabook.db"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// HoldWindow is how long a pending reservation may hold dates unpaid.
func (c *Config) HoldWindow() time.Duration {
	if c.Booking.HoldMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Booking.HoldMinutes) * time.Minute
}

// HorizonDays is the provisioned availability horizon.
func (c *Config) HorizonDays() int {
	if c.Booking.HorizonDays <= 0 {
		return 730
	}
	return c.Booking.HorizonDays
}

// SuggestionWindowDays bounds the alternative-date scan.
func (c *Config) SuggestionWindowDays() int {
	if c.Booking.SuggestionWindowDays <= 0 {
		return 14
	}
	return c.Booking.SuggestionWindowDays
}

// MaxSuggestions caps the number of alternative-date candidates.
func (c *Config) MaxSuggestions() int {
	if c.Booking.MaxSuggestions <= 0 {
		return 3
	}
	return c.Booking.MaxSuggestions
}

// BackupInterval is how often database snapshots are taken.
func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

// SweepInterval is how often stale holds are reaped.
func (c *Config) SweepInterval() time.Duration {
	if c.Booking.SweepIntervalMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Booking.SweepIntervalMinutes) * time.Minute
}
