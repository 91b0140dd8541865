package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/openbook/internal/book"
	"github.com/freeeve/openbook/internal/pgnsource"
	"github.com/freeeve/openbook/internal/score"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 60, cfg.MaxPlies)
	assert.Equal(t, 10000, cfg.Target)
	assert.Equal(t, 2000, cfg.ChunkSize)
	assert.Equal(t, score.DefaultTable(), cfg.Scoring)

	p, err := cfg.FloorPolicy()
	require.NoError(t, err)
	assert.Equal(t, book.ClampToOne, p)
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookc.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
max_plies = 40
floor = "drop"
min_elo = 2200

[scoring]
white_win = 10
draw = 3
black_win = 0
max = 10

[watch]
dir = "/data/incoming"
poll_interval = "30s"
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 40, cfg.MaxPlies)
	assert.Equal(t, 10000, cfg.Target, "unset keys keep defaults")
	assert.Equal(t, 2200, cfg.MinElo)
	assert.Equal(t, score.Table{WhiteWin: 10, Draw: 3, BlackWin: 0, Max: 10}, cfg.Scoring)
	assert.Equal(t, "/data/incoming", cfg.Watch.Dir)

	p, err := cfg.FloorPolicy()
	require.NoError(t, err)
	assert.Equal(t, book.DropBelowFloor, p)

	d, err := cfg.PollInterval()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)

	assert.Equal(t, book.AggregateConfig{MaxPlies: 40, Scoring: cfg.Scoring}, cfg.Aggregate())
	src := cfg.Source()
	assert.Equal(t, 2200, src.MinElo)
	assert.Equal(t, 40, src.MaxPlies)
}

func TestLoad_BadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("max_plies = = 3"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{EnvMinElo: "1800", EnvLogLevel: "debug"}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, 1800, cfg.MinElo)
	assert.Equal(t, "debug", cfg.Log.Level)

	env[EnvMinElo] = "high"
	assert.Error(t, cfg.ApplyEnv(lookup))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max plies", func(c *Config) { c.MaxPlies = 0 }},
		{"negative target", func(c *Config) { c.Target = -1 }},
		{"unknown floor", func(c *Config) { c.Floor = "round" }},
		{"zero chunk", func(c *Config) { c.ChunkSize = 0 }},
		{"negative workers", func(c *Config) { c.Workers = -2 }},
		{"negative elo", func(c *Config) { c.MinElo = -1 }},
		{"score above max", func(c *Config) { c.Scoring.WhiteWin = 5 }},
		{"bad poll interval", func(c *Config) { c.Watch.PollInterval = "soon" }},
		{"zero poll interval", func(c *Config) { c.Watch.PollInterval = "0s" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestFingerprinter(t *testing.T) {
	const start = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

	cfg := Default()
	assert.Same(t, pgnsource.DefaultZobrist, cfg.Fingerprinter())
	assert.Same(t, pgnsource.DefaultZobrist, cfg.Source().Fingerprinter)

	cfg.KeySeed = 99
	p, err := pgnsource.ParseFEN(start)
	require.NoError(t, err)
	assert.Equal(t, pgnsource.NewZobrist(99).Fingerprint(p), cfg.Fingerprinter().Fingerprint(p))
	assert.NotEqual(t, pgnsource.DefaultZobrist.Fingerprint(p), cfg.Fingerprinter().Fingerprint(p))
}

func TestEffectiveWorkers(t *testing.T) {
	cfg := Default()
	assert.Equal(t, runtime.GOMAXPROCS(0), cfg.EffectiveWorkers())
	cfg.Workers = 3
	assert.Equal(t, 3, cfg.EffectiveWorkers())
}

func TestMarshal_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.MinElo = 2000
	data, err := cfg.Marshal()
	require.NoError(t, err)

	var back Config
	require.NoError(t, toml.Unmarshal(data, &back))
	assert.Equal(t, cfg, back)
}
