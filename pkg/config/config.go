// Package config loads locplot settings from TOML, YAML or JSON files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	gotoml "github.com/pelletier/go-toml"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all configuration options for locplot.
type Config struct {
	Measure MeasureConfig `koanf:"measure" toml:"measure"`
	Collect CollectConfig `koanf:"collect" toml:"collect"`
	History HistoryConfig `koanf:"history" toml:"history"`
	Cache   CacheConfig   `koanf:"cache" toml:"cache"`
	Output  OutputConfig  `koanf:"output" toml:"output"`
}

// MeasureConfig selects the line counter.
type MeasureConfig struct {
	Tool       string `koanf:"tool" toml:"tool"`               // gocloc or cloc
	ClocBinary string `koanf:"cloc_binary" toml:"cloc_binary"` // used when tool = cloc
	Timeout    string `koanf:"timeout" toml:"timeout"`         // per attempt, Go duration
	Attempts   int    `koanf:"attempts" toml:"attempts"`
}

// CollectConfig controls the measurement pass.
type CollectConfig struct {
	Branch        string `koanf:"branch" toml:"branch"`
	Workers       int    `koanf:"workers" toml:"workers"`
	WorkDir       string `koanf:"work_dir" toml:"work_dir"` // clone target for remote repositories
	OutputDir     string `koanf:"output_dir" toml:"output_dir"`
	SkipMalformed bool   `koanf:"skip_malformed" toml:"skip_malformed"`
	MaxRevisions  int    `koanf:"max_revisions" toml:"max_revisions"`
}

// HistoryConfig controls preprocessing.
type HistoryConfig struct {
	Squash bool `koanf:"squash" toml:"squash"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // TTL in hours, 0 = never expire
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format string `koanf:"format" toml:"format"` // text, json, markdown, toon, yaml
	Color  bool   `koanf:"color" toml:"color"`
	Field  string `koanf:"field" toml:"field"` // code, files, blank, comment
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Measure: MeasureConfig{
			Tool:       "gocloc",
			ClocBinary: "cloc",
			Timeout:    "2m",
			Attempts:   2,
		},
		Collect: CollectConfig{
			Workers: 1,
			WorkDir: ".repo",
		},
		History: HistoryConfig{
			Squash: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".locplot/cache",
			TTL:     720,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
			Field:  "code",
		},
	}
}

// TimeoutDuration parses Measure.Timeout.
func (c *Config) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Measure.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	switch c.Measure.Tool {
	case "gocloc", "cloc":
	default:
		errs = append(errs, fmt.Errorf("measure.tool must be gocloc or cloc, got %q", c.Measure.Tool))
	}
	if d, err := time.ParseDuration(c.Measure.Timeout); err != nil || d <= 0 {
		errs = append(errs, fmt.Errorf("measure.timeout must be a positive duration, got %q", c.Measure.Timeout))
	}
	if c.Measure.Attempts < 1 {
		errs = append(errs, fmt.Errorf("measure.attempts must be at least 1, got %d", c.Measure.Attempts))
	}
	if c.Collect.Workers < 1 {
		errs = append(errs, fmt.Errorf("collect.workers must be at least 1, got %d", c.Collect.Workers))
	}
	if c.Collect.MaxRevisions < 0 {
		errs = append(errs, fmt.Errorf("collect.max_revisions must not be negative"))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must not be negative"))
	}
	switch strings.ToLower(c.Output.Format) {
	case "text", "json", "markdown", "md", "toon", "yaml", "yml":
	default:
		errs = append(errs, fmt.Errorf("output.format %q is not supported", c.Output.Format))
	}
	switch strings.ToLower(c.Output.Field) {
	case "code", "files", "nfiles", "blank", "comment", "comments":
	default:
		errs = append(errs, fmt.Errorf("output.field %q is not supported", c.Output.Field))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return cfg, nil
}

// configNames are searched in order in each of searchDirs.
var (
	configNames = []string{
		"locplot.toml",
		"locplot.yaml",
		"locplot.yml",
		"locplot.json",
		".locplot.toml",
		".locplot.yaml",
		".locplot.yml",
		".locplot.json",
	}
	searchDirs = []string{".", ".locplot"}
)

// FindConfigFile returns the first config file found below root, or "".
func FindConfigFile(root string) string {
	for _, dir := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(root, dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadResult is a loaded and validated configuration with its origin.
type LoadResult struct {
	Config *Config
	Source string // empty when defaults were used
}

type loadOptions struct {
	path string
	root string
}

// LoadOption configures LoadConfig.
type LoadOption func(*loadOptions)

// WithPath loads exactly this file instead of searching.
func WithPath(path string) LoadOption {
	return func(o *loadOptions) {
		o.path = path
	}
}

// WithRoot searches for config files below root instead of the working directory.
func WithRoot(root string) LoadOption {
	return func(o *loadOptions) {
		o.root = root
	}
}

// LoadConfig loads the explicit or discovered config file and validates it.
func LoadConfig(opts ...LoadOption) (*LoadResult, error) {
	o := &loadOptions{root: "."}
	for _, opt := range opts {
		opt(o)
	}

	path := o.path
	if path == "" {
		path = FindConfigFile(o.root)
	}

	cfg := DefaultConfig()
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &LoadResult{Config: cfg, Source: path}, nil
}

// MarshalTOML renders cfg as a TOML document.
func MarshalTOML(cfg *Config) ([]byte, error) {
	data, err := gotoml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}
