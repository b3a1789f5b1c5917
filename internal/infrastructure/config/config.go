package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`

	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	Model    ModelConfig    `koanf:"model"`
	Scoring  ScoringConfig  `koanf:"scoring"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type RedisConfig struct {
	URL      string        `koanf:"url"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	ScoreTTL time.Duration `koanf:"score_ttl"`
}

type ModelConfig struct {
	Path            string `koanf:"path"`
	TrainingSamples int    `koanf:"training_samples"`
	TrainOnStart    bool   `koanf:"train_on_start"`
	Trees           int    `koanf:"trees"`
	Seed            int64  `koanf:"seed"`
}

type ScoringConfig struct {
	BatchInterval time.Duration `koanf:"batch_interval"`
	Parallelism   int           `koanf:"parallelism"`
	EventLookback time.Duration `koanf:"event_lookback"`
}

// Load reads configuration from defaults, an optional YAML file, and
// ZTS_-prefixed environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			DB:       0,
			ScoreTTL: 10 * time.Minute,
		},
		Model: ModelConfig{
			Path:            "models/trust_model.gob",
			TrainingSamples: 3000,
			TrainOnStart:    true,
			Trees:           100,
			Seed:            42,
		},
		Scoring: ScoringConfig{
			BatchInterval: 5 * time.Minute,
			Parallelism:   8,
			EventLookback: 30 * 24 * time.Hour,
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Config file is optional; a missing file falls through to defaults and env.
	if path == "" {
		path = "configs/config.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// Double underscore separates nesting levels so multi-word keys survive:
	// ZTS_MODEL__TRAINING_SAMPLES -> model.training_samples.
	if err := k.Load(env.Provider("ZTS_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, "ZTS_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Model.TrainingSamples <= 0 {
		return fmt.Errorf("model.training_samples must be positive, got %d", c.Model.TrainingSamples)
	}
	if c.Model.Trees <= 0 {
		return fmt.Errorf("model.trees must be positive, got %d", c.Model.Trees)
	}
	if c.Scoring.Parallelism <= 0 {
		return fmt.Errorf("scoring.parallelism must be positive, got %d", c.Scoring.Parallelism)
	}
	return nil
}
