// Package config loads toponame settings through viper.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/chazu/toponame/pkg/compare"
	"github.com/chazu/toponame/pkg/store"
)

// EnvPrefix is the prefix of environment variables overriding settings.
const EnvPrefix = "TOPONAME"

// StoreConfig holds the reference store settings.
type StoreConfig struct {
	Path      string `mapstructure:"path"`
	InMemory  bool   `mapstructure:"in_memory"`
	CacheSize int    `mapstructure:"cache_size"`
}

// Config holds all runtime configuration.
// Values are populated from .toponame.yaml, TOPONAME_* env vars, and CLI flags.
type Config struct {
	Tolerance    float64       `mapstructure:"tolerance"`
	Samples      int           `mapstructure:"samples"`
	DenseSamples int           `mapstructure:"dense_samples"`
	LogLevel     string        `mapstructure:"log_level"`
	EvalTimeout  time.Duration `mapstructure:"eval_timeout"`
	Store        StoreConfig   `mapstructure:"store"`
}

// Init points viper at the environment and, when cfgFile is empty, at
// .toponame.yaml in the working directory. A missing config file is not
// an error.
func Init(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".toponame")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("tolerance", 1e-7)
	viper.SetDefault("samples", 4)
	viper.SetDefault("dense_samples", 10)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("eval_timeout", 5*time.Second)
	viper.SetDefault("store.path", ".toponame/db")
	viper.SetDefault("store.in_memory", false)
	viper.SetDefault("store.cache_size", 1024)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	switch {
	case c.Tolerance <= 0:
		return fmt.Errorf("tolerance must be positive, got %g", c.Tolerance)
	case c.Samples < 2:
		return fmt.Errorf("samples must be at least 2, got %d", c.Samples)
	case c.DenseSamples < c.Samples:
		return fmt.Errorf("dense_samples (%d) must not be below samples (%d)", c.DenseSamples, c.Samples)
	case c.EvalTimeout <= 0:
		return fmt.Errorf("eval_timeout must be positive, got %s", c.EvalTimeout)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Comparator returns the geometric comparator the settings describe.
func (c Config) Comparator() compare.Comparator {
	return compare.Comparator{Tolerance: c.Tolerance, Samples: c.Samples, DenseSamples: c.DenseSamples}
}

// StoreOptions returns the store configuration, logging through logger.
func (c Config) StoreOptions(logger *slog.Logger) store.Config {
	return store.Config{
		Path:       c.Store.Path,
		InMemory:   c.Store.InMemory,
		SyncWrites: !c.Store.InMemory,
		CacheSize:  c.Store.CacheSize,
		Logger:     logger,
	}
}

// Logger returns a text logger writing to w at the configured level.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
