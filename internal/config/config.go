package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"quiz-session-service/internal/domain"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL              string `yaml:"ttl"`
		AutoAdvanceDelay string `yaml:"autoAdvanceDelay"`
		HistoryLimit     int    `yaml:"historyLimit"`
	} `yaml:"quiz"`
	Defaults struct {
		TimePerQuestion int    `yaml:"timePerQuestion"`
		QuestionCount   int    `yaml:"questionCount"`
		Mode            string `yaml:"mode"`
		Theme           string `yaml:"theme"`
	} `yaml:"defaults"`
}

// Load reads YAML config from path. LOG_LEVEL, LOG_FORMAT, REDIS_ADDR and DATABASE_URL
// override the matching file values.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.Log.Format = format
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Postgres.URL = url
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// DefaultSettings overlays the configured defaults on domain.DefaultSettings.
func (c Config) DefaultSettings() domain.Settings {
	s := domain.DefaultSettings()
	if c.Defaults.TimePerQuestion > 0 {
		s.TimePerQuestion = c.Defaults.TimePerQuestion
	}
	if c.Defaults.QuestionCount > 0 {
		s.QuestionCount = c.Defaults.QuestionCount
	}
	if m := domain.Mode(c.Defaults.Mode); m.Valid() {
		s.DefaultMode = m
	}
	if c.Defaults.Theme != "" {
		s.Theme = c.Defaults.Theme
	}
	return s
}

// HistoryLimit is the number of attempts kept per user.
func (c Config) HistoryLimit() int {
	if c.Quiz.HistoryLimit > 0 {
		return c.Quiz.HistoryLimit
	}
	return 50
}
