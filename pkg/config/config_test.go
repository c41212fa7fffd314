package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "gocloc", cfg.Measure.Tool)
	assert.Equal(t, 2*time.Minute, cfg.TimeoutDuration())
	assert.Equal(t, 2, cfg.Measure.Attempts)
	assert.Equal(t, 1, cfg.Collect.Workers)
	assert.Equal(t, ".repo", cfg.Collect.WorkDir)
	assert.True(t, cfg.History.Squash)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.NoError(t, cfg.Validate())
}

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "toml",
			file: "locplot.toml",
			content: `
[measure]
tool = "cloc"
timeout = "30s"

[collect]
workers = 4
skip_malformed = true

[history]
squash = false
`,
		},
		{
			name: "yaml",
			file: "locplot.yaml",
			content: `
measure:
  tool: cloc
  timeout: 30s
collect:
  workers: 4
  skip_malformed: true
history:
  squash: false
`,
		},
		{
			name:    "json",
			file:    "locplot.json",
			content: `{"measure": {"tool": "cloc", "timeout": "30s"}, "collect": {"workers": 4, "skip_malformed": true}, "history": {"squash": false}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.file, tt.content)

			cfg, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, "cloc", cfg.Measure.Tool)
			assert.Equal(t, 30*time.Second, cfg.TimeoutDuration())
			assert.Equal(t, 4, cfg.Collect.Workers)
			assert.True(t, cfg.Collect.SkipMalformed)
			assert.False(t, cfg.History.Squash)
			// Unset keys keep their defaults.
			assert.Equal(t, 2, cfg.Measure.Attempts)
			assert.Equal(t, ".locplot/cache", cfg.Cache.Dir)
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	assert.Error(t, err)
}

func TestLoadConfig_Discovery(t *testing.T) {
	root := t.TempDir()

	res, err := LoadConfig(WithRoot(root))
	require.NoError(t, err)
	assert.Empty(t, res.Source)
	assert.Equal(t, DefaultConfig(), res.Config)

	path := writeConfig(t, root, filepath.Join(".locplot", "locplot.toml"), "[collect]\nworkers = 3\n")
	res, err = LoadConfig(WithRoot(root))
	require.NoError(t, err)
	assert.Equal(t, path, res.Source)
	assert.Equal(t, 3, res.Config.Collect.Workers)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "locplot.toml", "[measure]\ntool = \"wc\"\ntimeout = \"soon\"\n")

	_, err := LoadConfig(WithPath(path))
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "measure.tool")
	assert.Contains(t, err.Error(), "measure.timeout")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Collect.Workers = 0 }},
		{"zero attempts", func(c *Config) { c.Measure.Attempts = 0 }},
		{"negative ttl", func(c *Config) { c.Cache.TTL = -1 }},
		{"unknown format", func(c *Config) { c.Output.Format = "xml" }},
		{"unknown field", func(c *Config) { c.Output.Field = "bytes" }},
		{"negative max revisions", func(c *Config) { c.Collect.MaxRevisions = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestMarshalTOML_RoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Collect.Workers = 8

	data, err := MarshalTOML(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(data), "workers = 8")

	path := writeConfig(t, t.TempDir(), "locplot.toml", string(data))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
