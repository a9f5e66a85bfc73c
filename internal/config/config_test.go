// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "harmon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "bld", cfg.DataDir)
	assert.Equal(t, "original_data.zip", cfg.Raw.Archive)
	assert.Equal(t, 1986, cfg.Waves.Start)
	assert.Equal(t, 2010, cfg.Waves.End)
	assert.Equal(t, 5, cfg.Ages.Min)
	assert.Equal(t, 13, cfg.Ages.Max)
	assert.Equal(t, []float64{-7}, cfg.MissingCodes)
	assert.Equal(t, ":8080", cfg.API.Listen)
	require.NoError(t, Validate(cfg))
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
dataDir: /tmp/panel
raw:
  archive: panel.zip
meta:
  nlsy: dicts/bpi.csv
  chs: dicts/chs.csv
waves:
  start: 1988
  end: 2004
ages:
  min: 6
  max: 12
api:
  listen: "127.0.0.1:9000"
  rateLimit: 30
watch:
  enabled: true
  debounce: 2s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/panel", cfg.DataDir)
	assert.Equal(t, filepath.Join("/tmp/panel", "panel.zip"), cfg.ArchivePath())
	assert.Equal(t, "dicts/bpi.csv", cfg.Meta.NLSY)
	assert.Equal(t, 1988, cfg.Waves.Start)
	assert.Equal(t, "127.0.0.1:9000", cfg.API.Listen)
	assert.Equal(t, 30, cfg.API.RateLimit)
	assert.True(t, cfg.Watch.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Watch.DebounceDuration())
	// Store path falls back under the data directory.
	assert.Equal(t, filepath.Join("/tmp/panel", "harmon.db"), cfg.Store.Path)
}

func TestPathsRespectAbsolute(t *testing.T) {
	cfg := Defaults()
	cfg.DataDir = "/tmp/panel"
	cfg.Raw.Archive = "/srv/raw/panel.zip"
	cfg.Raw.NLSY = "/srv/raw/nlsy_extract.csv"
	cfg.Raw.CHS = "/srv/raw/chs_extract.csv"

	assert.Equal(t, "/srv/raw/panel.zip", cfg.ArchivePath())
	assert.Equal(t, "/srv/raw/nlsy_extract.csv", cfg.NLSYExtractPath())
	assert.Equal(t, "/srv/raw/chs_extract.csv", cfg.CHSExtractPath())
}

func TestPathsJoinRelative(t *testing.T) {
	cfg := Defaults()
	cfg.DataDir = "/tmp/panel"

	assert.Equal(t, filepath.Join("/tmp/panel", cfg.Raw.NLSY), cfg.NLSYExtractPath())
	assert.Equal(t, filepath.Join("/tmp/panel", cfg.Raw.CHS), cfg.CHSExtractPath())
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "dataDir: bld\nnotAField: true\n")

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HARMON_DATA_DIR", "/srv/harmon")
	t.Setenv("HARMON_WAVES_END", "2008")
	t.Setenv("HARMON_LISTEN", ":9090")
	t.Setenv("HARMON_WATCH", "true")
	t.Setenv("HARMON_WATCH_DEBOUNCE", "250ms")

	path := writeConfig(t, "dataDir: bld\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/harmon", cfg.DataDir)
	assert.Equal(t, 2008, cfg.Waves.End)
	assert.Equal(t, ":9090", cfg.API.Listen)
	assert.True(t, cfg.Watch.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.DebounceDuration())
}

func TestDebounceDurationFallback(t *testing.T) {
	w := WatchConfig{}
	assert.Equal(t, 500*time.Millisecond, w.DebounceDuration())

	w.Debounce = "garbage"
	assert.Equal(t, 500*time.Millisecond, w.DebounceDuration())
}

func TestValidate(t *testing.T) {
	base := Defaults()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults pass", mutate: func(*Config) {}},
		{name: "empty data dir", mutate: func(c *Config) { c.DataDir = " " }, wantErr: true},
		{name: "empty archive", mutate: func(c *Config) { c.Raw.Archive = "" }, wantErr: true},
		{name: "inverted waves", mutate: func(c *Config) { c.Waves.Start = 2010; c.Waves.End = 1986 }, wantErr: true},
		{name: "implausible wave", mutate: func(c *Config) { c.Waves.Start = 186 }, wantErr: true},
		{name: "inverted ages", mutate: func(c *Config) { c.Ages.Min = 14 }, wantErr: true},
		{name: "negative age", mutate: func(c *Config) { c.Ages.Min = -1; c.Ages.Max = 13 }, wantErr: true},
		{name: "bad listen", mutate: func(c *Config) { c.API.Listen = "no-port" }, wantErr: true},
		{name: "negative rate limit", mutate: func(c *Config) { c.API.RateLimit = -1 }, wantErr: true},
		{name: "bad debounce", mutate: func(c *Config) { c.Watch.Debounce = "fast" }, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := Validate(cfg)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
