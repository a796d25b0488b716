// Package config loads runtime settings: defaults, then an optional YAML
// file, then FORGE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"

	jlconfig "github.com/JeremyLoy/config"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/forge/internal/core/ecs"
	"github.com/zeusync/forge/internal/core/observability/log"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds runtime configuration
type Config struct {
	// Logging
	LogLevel string `yaml:"log_level" config:"FORGE_LOG_LEVEL"`

	// Scheduling
	Workers   int `yaml:"workers" config:"FORGE_WORKERS"`
	FrameRate int `yaml:"frame_rate" config:"FORGE_FRAME_RATE"`

	// World storage
	StorageStrategy string `yaml:"storage_strategy" config:"FORGE_STORAGE_STRATEGY"`
	HashShards      int    `yaml:"hash_shards" config:"FORGE_HASH_SHARDS"`

	// Assets
	LoaderWorkers int    `yaml:"loader_workers" config:"FORGE_LOADER_WORKERS"`
	AssetRoot     string `yaml:"asset_root" config:"FORGE_ASSET_ROOT"`
	RedisAddr     string `yaml:"redis_addr" config:"FORGE_REDIS_ADDR"`
	RedisPrefix   string `yaml:"redis_prefix" config:"FORGE_REDIS_PREFIX"`

	// Metrics
	StatsdAddr      string `yaml:"statsd_addr" config:"FORGE_STATSD_ADDR"`
	StatsdNamespace string `yaml:"statsd_namespace" config:"FORGE_STATSD_NAMESPACE"`
}

// Default returns default runtime configuration
func Default() Config {
	return Config{
		LogLevel:        "info",
		Workers:         0,
		FrameRate:       60,
		StorageStrategy: "sparse",
		HashShards:      16,
		LoaderWorkers:   2,
		AssetRoot:       "assets",
		RedisPrefix:     "forge:assets:",
		StatsdNamespace: "forge.",
	}
}

// Load applies path (skipped when empty) and the environment on top of
// Default, then validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := jlconfig.FromEnv().To(&cfg); err != nil {
		return cfg, fmt.Errorf("config from env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if _, err := ecs.ParseStrategy(c.StorageStrategy); err != nil {
		errs = append(errs, err)
	}
	for name, v := range map[string]int{
		"workers":        c.Workers,
		"frame_rate":     c.FrameRate,
		"hash_shards":    c.HashShards,
		"loader_workers": c.LoaderWorkers,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %d", name, v))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Level returns the parsed log level, LevelInfo when invalid.
func (c Config) Level() log.Level {
	l, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.LevelInfo
	}
	return l
}

// Strategy returns the parsed default storage strategy.
func (c Config) Strategy() ecs.Strategy {
	s, _ := ecs.ParseStrategy(c.StorageStrategy)
	return s
}
