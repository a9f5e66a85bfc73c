// SPDX-License-Identifier: MIT

// Package config provides configuration management for harmon.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full daemon configuration: YAML file values with HARMON_*
// environment overrides on top.
type Config struct {
	DataDir  string `yaml:"dataDir,omitempty"`
	LogLevel string `yaml:"logLevel,omitempty"`

	Raw          RawConfig   `yaml:"raw"`
	Meta         MetaConfig  `yaml:"meta"`
	Waves        WavesConfig `yaml:"waves,omitempty"`
	Ages         AgesConfig  `yaml:"ages,omitempty"`
	MissingCodes []float64   `yaml:"missingCodes,omitempty"`

	API   APIConfig   `yaml:"api,omitempty"`
	Store StoreConfig `yaml:"store,omitempty"`
	Watch WatchConfig `yaml:"watch,omitempty"`
}

// RawConfig locates the raw survey extracts.
type RawConfig struct {
	// Archive is the zip holding the original data; it is extracted into
	// DataDir before each run.
	Archive string `yaml:"archive"`
	// NLSY and CHS are extract file names relative to DataDir.
	NLSY string `yaml:"nlsy,omitempty"`
	CHS  string `yaml:"chs,omitempty"`
}

// MetaConfig locates the variable dictionaries.
type MetaConfig struct {
	// NLSY is the wave-aware dictionary CSV; CHS the flat rename table.
	// Relative names resolve inside DataDir (the archive usually carries
	// the dictionaries).
	NLSY string `yaml:"nlsy,omitempty"`
	CHS  string `yaml:"chs,omitempty"`
}

// WavesConfig bounds the NLSY survey years (inclusive, even-year waves).
type WavesConfig struct {
	Start int `yaml:"start,omitempty"`
	End   int `yaml:"end,omitempty"`
}

// AgesConfig bounds the merged panel's age window (inclusive).
type AgesConfig struct {
	Min int `yaml:"min,omitempty"`
	Max int `yaml:"max,omitempty"`
}

// APIConfig holds the HTTP surface settings.
type APIConfig struct {
	Listen string `yaml:"listen,omitempty"`
	// RateLimit is the per-client request allowance per minute; 0 disables
	// rate limiting.
	RateLimit int `yaml:"rateLimit,omitempty"`
}

// StoreConfig holds SQLite settings.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"`
}

// WatchConfig controls re-runs triggered by input file changes.
type WatchConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`
	// Debounce is a duration string, e.g. "500ms".
	Debounce string `yaml:"debounce,omitempty"`
}

// DebounceDuration parses the debounce window, falling back to 500ms.
func (w WatchConfig) DebounceDuration() time.Duration {
	if d, err := time.ParseDuration(w.Debounce); err == nil && d > 0 {
		return d
	}
	return 500 * time.Millisecond
}

// Defaults mirror the original study layout: a bld/ build directory fed
// from original_data.zip, NLSY child waves 1986-2010, ages 5-13.
func Defaults() Config {
	return Config{
		DataDir:  "bld",
		LogLevel: "info",
		Raw: RawConfig{
			Archive: "original_data.zip",
			NLSY:    "BEHAVIOR_PROBLEMS_INDEX.csv",
			CHS:     "chs_data.csv",
		},
		Meta: MetaConfig{
			NLSY: "bpi_variable_info.csv",
			CHS:  "chs_variable_info.csv",
		},
		Waves:        WavesConfig{Start: 1986, End: 2010},
		Ages:         AgesConfig{Min: 5, Max: 13},
		MissingCodes: []float64{-7},
		API:          APIConfig{Listen: ":8080", RateLimit: 120},
		Store:        StoreConfig{},
		Watch:        WatchConfig{Enabled: false, Debounce: "500ms"},
	}
}

// Load reads the YAML file at path (optional), layers environment
// overrides on top of defaults, and validates the result.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := unmarshalStrict(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	cfg.resolvePaths()

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func unmarshalStrict(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return err
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.DataDir = ParseString("HARMON_DATA_DIR", cfg.DataDir)
	cfg.LogLevel = ParseString("HARMON_LOG_LEVEL", cfg.LogLevel)
	cfg.Raw.Archive = ParseString("HARMON_RAW_ARCHIVE", cfg.Raw.Archive)
	cfg.Raw.NLSY = ParseString("HARMON_RAW_NLSY", cfg.Raw.NLSY)
	cfg.Raw.CHS = ParseString("HARMON_RAW_CHS", cfg.Raw.CHS)
	cfg.Meta.NLSY = ParseString("HARMON_META_NLSY", cfg.Meta.NLSY)
	cfg.Meta.CHS = ParseString("HARMON_META_CHS", cfg.Meta.CHS)
	cfg.Waves.Start = ParseInt("HARMON_WAVES_START", cfg.Waves.Start)
	cfg.Waves.End = ParseInt("HARMON_WAVES_END", cfg.Waves.End)
	cfg.Ages.Min = ParseInt("HARMON_AGE_MIN", cfg.Ages.Min)
	cfg.Ages.Max = ParseInt("HARMON_AGE_MAX", cfg.Ages.Max)
	cfg.API.Listen = ParseString("HARMON_LISTEN", cfg.API.Listen)
	cfg.API.RateLimit = ParseInt("HARMON_RATE_LIMIT", cfg.API.RateLimit)
	cfg.Store.Path = ParseString("HARMON_STORE_PATH", cfg.Store.Path)
	cfg.Watch.Enabled = ParseBool("HARMON_WATCH", cfg.Watch.Enabled)
	cfg.Watch.Debounce = ParseString("HARMON_WATCH_DEBOUNCE", cfg.Watch.Debounce)
}

// resolvePaths anchors relative dictionary and extract names in DataDir
// and fills the store path default.
func (c *Config) resolvePaths() {
	if c.Meta.NLSY != "" && !filepath.IsAbs(c.Meta.NLSY) && filepath.Dir(c.Meta.NLSY) == "." {
		c.Meta.NLSY = filepath.Join(c.DataDir, c.Meta.NLSY)
	}
	if c.Meta.CHS != "" && !filepath.IsAbs(c.Meta.CHS) && filepath.Dir(c.Meta.CHS) == "." {
		c.Meta.CHS = filepath.Join(c.DataDir, c.Meta.CHS)
	}
	if c.Store.Path == "" {
		c.Store.Path = filepath.Join(c.DataDir, "harmon.db")
	}
}

// ArchivePath returns the raw data archive location. Relative archive
// names live under the data directory.
func (c Config) ArchivePath() string {
	if filepath.IsAbs(c.Raw.Archive) {
		return c.Raw.Archive
	}
	return filepath.Join(c.DataDir, c.Raw.Archive)
}

// NLSYExtractPath returns the raw NLSY extract location after extraction.
func (c Config) NLSYExtractPath() string {
	if filepath.IsAbs(c.Raw.NLSY) {
		return c.Raw.NLSY
	}
	return filepath.Join(c.DataDir, c.Raw.NLSY)
}

// CHSExtractPath returns the raw CHS extract location after extraction.
func (c Config) CHSExtractPath() string {
	if filepath.IsAbs(c.Raw.CHS) {
		return c.Raw.CHS
	}
	return filepath.Join(c.DataDir, c.Raw.CHS)
}
