// Package config loads the book compiler settings from a TOML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/freeeve/openbook/internal/book"
	"github.com/freeeve/openbook/internal/pgnsource"
	"github.com/freeeve/openbook/internal/score"
)

// Environment variables read by ApplyEnv.
const (
	EnvMinElo   = "BOOKC_MIN_ELO"
	EnvLogLevel = "BOOKC_LOG_LEVEL"
)

// Config is the full compiler configuration.
type Config struct {
	MaxPlies  int         `toml:"max_plies"`
	Target    int         `toml:"target"`
	Floor     string      `toml:"floor"`
	ChunkSize int         `toml:"chunk_size"`
	Workers   int         `toml:"workers"` // 0 means GOMAXPROCS
	MinElo    int         `toml:"min_elo"`
	Variants  []string    `toml:"variants"`
	KeySeed   uint64      `toml:"key_seed"` // 0 means the polyglot key table
	Scoring   score.Table `toml:"scoring"`
	Log       LogConfig   `toml:"log"`
	Watch     WatchConfig `toml:"watch"`
}

// LogConfig controls logger output.
type LogConfig struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

// WatchConfig configures the folder watcher.
type WatchConfig struct {
	Dir          string `toml:"dir"`
	ProcessedDir string `toml:"processed_dir"` // defaults to <dir>/processed
	OutputDir    string `toml:"output_dir"`    // defaults to <dir>/books
	PollInterval string `toml:"poll_interval"`
	Normalize    bool   `toml:"normalize"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		MaxPlies:  60,
		Target:    10000,
		Floor:     book.ClampToOne.String(),
		ChunkSize: 2000,
		Variants:  []string{pgnsource.StandardVariant},
		Scoring:   score.DefaultTable(),
		Log:       LogConfig{Level: "info"},
		Watch:     WatchConfig{PollInterval: "10s"},
	}
}

// Load reads path over the defaults. An empty path or a missing file yields
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from the environment. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvMinElo); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", EnvMinElo, v, err)
		}
		c.MinElo = n
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate rejects settings the compiler cannot run with.
func (c Config) Validate() error {
	if c.MaxPlies <= 0 {
		return fmt.Errorf("max_plies must be positive, got %d", c.MaxPlies)
	}
	if c.Target <= 0 {
		return fmt.Errorf("target must be positive, got %d", c.Target)
	}
	if _, err := book.ParseFloorPolicy(c.Floor); err != nil {
		return err
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.MinElo < 0 {
		return fmt.Errorf("min_elo must not be negative, got %d", c.MinElo)
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	if _, err := c.PollInterval(); err != nil {
		return err
	}
	return nil
}

// FloorPolicy returns the parsed floor policy.
func (c Config) FloorPolicy() (book.FloorPolicy, error) {
	return book.ParseFloorPolicy(c.Floor)
}

// EffectiveWorkers resolves Workers = 0 to GOMAXPROCS.
func (c Config) EffectiveWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// PollInterval parses the watch poll interval.
func (c Config) PollInterval() (time.Duration, error) {
	if c.Watch.PollInterval == "" {
		return 10 * time.Second, nil
	}
	d, err := time.ParseDuration(c.Watch.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("watch.poll_interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("watch.poll_interval must be positive, got %s", d)
	}
	return d, nil
}

// Aggregate returns the per-game aggregation settings.
func (c Config) Aggregate() book.AggregateConfig {
	return book.AggregateConfig{MaxPlies: c.MaxPlies, Scoring: c.Scoring}
}

// Source returns the PGN reader settings.
func (c Config) Source() pgnsource.Config {
	return pgnsource.Config{
		MinElo:        c.MinElo,
		Variants:      c.Variants,
		MaxPlies:      c.MaxPlies,
		Fingerprinter: c.Fingerprinter(),
	}
}

// Fingerprinter returns the position hasher selected by key_seed.
func (c Config) Fingerprinter() pgnsource.Fingerprinter {
	if c.KeySeed == 0 {
		return pgnsource.DefaultZobrist
	}
	return pgnsource.NewZobrist(c.KeySeed)
}

// Marshal renders the configuration as TOML.
func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}
