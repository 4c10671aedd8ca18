// Package config assembles the per-component configuration into one
// document. Values come from defaults, then an optional YAML file, then
// EIKENGEN_* environment variables, and are validated last.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/eikengen/internal/generation"
	"github.com/abhisek/eikengen/internal/llm"
	"github.com/abhisek/eikengen/internal/selection"
	"github.com/abhisek/eikengen/internal/validation"
)

// Diversity backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the full application configuration.
type Config struct {
	Database   DatabaseConfig    `yaml:"database"`
	Redis      RedisConfig       `yaml:"redis"`
	LLM        llm.Config        `yaml:"llm"`
	Selection  selection.Config  `yaml:"selection"`
	Validation ValidationConfig  `yaml:"validation"`
	Generation generation.Config `yaml:"generation"`
	Metrics    MetricsConfig     `yaml:"metrics"`
	Logging    LoggingConfig     `yaml:"logging"`
}

// DatabaseConfig locates the SQLite file. An empty path means the
// default data directory.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
	Prefix   string `yaml:"prefix"`
}

// ValidationConfig groups the gate's stages and where session diversity
// state lives.
type ValidationConfig struct {
	Vocabulary  validation.VocabularyConfig `yaml:"vocabulary"`
	Complexity  validation.ComplexityConfig `yaml:"complexity"`
	Diversity   validation.DiversityConfig  `yaml:"diversity"`
	Backend     string                      `yaml:"diversity_backend" validate:"oneof=memory redis"`
	MaxSessions int                         `yaml:"max_sessions" validate:"min=1"`

	// LexiconCache is the number of lemmas kept in front of the database.
	LexiconCache int `yaml:"lexicon_cache" validate:"min=1"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

type LoggingConfig struct {
	Mode  string `yaml:"mode" validate:"omitempty,oneof=dev development prod production json"`
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Redis:     RedisConfig{Addr: "localhost:6379"},
		LLM:       llm.DefaultConfig(),
		Selection: selection.DefaultConfig(),
		Validation: ValidationConfig{
			Vocabulary:   validation.DefaultVocabularyConfig(),
			Complexity:   validation.DefaultComplexityConfig(),
			Diversity:    validation.DefaultDiversityConfig(),
			Backend:      BackendMemory,
			MaxSessions:  4096,
			LexiconCache: 20000,
		},
		Generation: generation.DefaultConfig(),
		Logging:    LoggingConfig{Mode: "dev", Level: "info"},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path falls back to EIKENGEN_CONFIG, and
// with neither set only defaults and environment apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("EIKENGEN_CONFIG")
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays EIKENGEN_* variables. Malformed numbers are errors
// rather than silently ignored.
func applyEnv(cfg *Config) error {
	str := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str(&cfg.Database.Path, "EIKENGEN_DB")
	str(&cfg.Redis.Addr, "EIKENGEN_REDIS_ADDR")
	str(&cfg.Redis.Password, "EIKENGEN_REDIS_PASSWORD")
	str(&cfg.Validation.Backend, "EIKENGEN_DIVERSITY_BACKEND")
	str(&cfg.Metrics.Addr, "EIKENGEN_METRICS_ADDR")
	str(&cfg.Logging.Mode, "EIKENGEN_LOG_MODE")
	str(&cfg.Logging.Level, "EIKENGEN_LOG_LEVEL")

	if v := os.Getenv("EIKENGEN_EPSILON"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("EIKENGEN_EPSILON: %w", err)
		}
		cfg.Selection.Epsilon = f
	}
	if v := os.Getenv("EIKENGEN_REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("EIKENGEN_REQUESTS_PER_MINUTE: %w", err)
		}
		cfg.Generation.RequestsPerMinute = n
	}
	if v := os.Getenv("EIKENGEN_CALL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("EIKENGEN_CALL_TIMEOUT: %w", err)
		}
		cfg.Generation.CallTimeout = d
	}

	llm.ApplyEnv(&cfg.LLM)
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct constraints across every section.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Validation.Backend == BackendRedis && c.Redis.Addr == "" {
		return errors.New("redis.addr is required when validation.diversity_backend is redis")
	}
	return nil
}
