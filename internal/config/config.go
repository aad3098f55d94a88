// Package config loads the application configuration from YAML with
// environment overrides for deployment secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sawpanic/cotlens/internal/domain/combine"
)

// Duration is a time.Duration that unmarshals from YAML duration strings
// ("5m", "10s") or plain integer seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var seconds int64
	if err := value.Decode(&seconds); err == nil {
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("config: invalid duration %q", value.Value)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
	IdleTimeout  Duration `yaml:"idle_timeout"`
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN          string   `yaml:"dsn"`
	QueryTimeout Duration `yaml:"query_timeout"`
}

// RedisConfig holds the cache connection settings.
type RedisConfig struct {
	Addr     string   `yaml:"addr"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	TTL      Duration `yaml:"ttl"`
}

// FeedConfig holds the CFTC feed settings.
type FeedConfig struct {
	BaseURL string   `yaml:"base_url"`
	Timeout Duration `yaml:"timeout"`
}

// AnnotatorConfig holds the narrative annotator settings. When disabled (or
// no API key is present) the deterministic fallback generator is used alone.
type AnnotatorConfig struct {
	Enabled           bool     `yaml:"enabled"`
	Model             string   `yaml:"model"`
	Timeout           Duration `yaml:"timeout"`
	RequestsPerMinute int      `yaml:"requests_per_minute"`
}

// RefreshConfig holds the refresh orchestration settings.
type RefreshConfig struct {
	Workers      int      `yaml:"workers"`
	HistoryWeeks int      `yaml:"history_weeks"`
	MaxRetries   int      `yaml:"max_retries"`
	RetryDelay   Duration `yaml:"retry_delay"`
	StaleAfter   Duration `yaml:"stale_after"`
}

// Config is the root application configuration.
type Config struct {
	Server          ServerConfig    `yaml:"server"`
	Database        DatabaseConfig  `yaml:"database"`
	Redis           RedisConfig     `yaml:"redis"`
	Feed            FeedConfig      `yaml:"feed"`
	Annotator       AnnotatorConfig `yaml:"annotator"`
	Refresh         RefreshConfig   `yaml:"refresh"`
	Scoring         combine.Config  `yaml:"scoring"`
	SeasonalityPath string          `yaml:"seasonality_path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8080,
			ReadTimeout:  Duration(10 * time.Second),
			WriteTimeout: Duration(10 * time.Second),
			IdleTimeout:  Duration(60 * time.Second),
		},
		Database: DatabaseConfig{
			QueryTimeout: Duration(5 * time.Second),
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			TTL:  Duration(15 * time.Minute),
		},
		Feed: FeedConfig{
			Timeout: Duration(60 * time.Second),
		},
		Annotator: AnnotatorConfig{
			Enabled:           false,
			Timeout:           Duration(15 * time.Second),
			RequestsPerMinute: 20,
		},
		Refresh: RefreshConfig{
			Workers:      4,
			HistoryWeeks: 26,
			MaxRetries:   3,
			RetryDelay:   Duration(5 * time.Minute),
			StaleAfter:   Duration(10 * 24 * time.Hour),
		},
		Scoring: combine.DefaultConfig(),
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path loads defaults and environment only.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
}

func (c Config) validate() error {
	if c.Scoring.ConvictionBoostThreshold < 0 {
		return fmt.Errorf("config: conviction_boost_threshold must be non-negative")
	}
	if c.Refresh.Workers < 1 {
		return fmt.Errorf("config: refresh workers must be at least 1")
	}
	if c.Refresh.HistoryWeeks < 2 {
		return fmt.Errorf("config: history_weeks must be at least 2")
	}
	return nil
}
