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
	config := DefaultConfig()

	assert.Empty(t, config.Author.URL)
	assert.Equal(t, 10, config.Author.RateLimit)
	assert.Equal(t, 100, config.Author.PageSize)

	assert.Equal(t, []string{"en-US", "en"}, config.Analysis.LocaleFallbacks)
	assert.Equal(t, 2, config.Analysis.MaxDistance)
	assert.Equal(t, 1, config.Analysis.Concurrency)
	assert.Equal(t, 10*time.Second, config.Analysis.RuleTimeout)

	assert.Equal(t, 5000, config.Cache.MaxSize)
	assert.Equal(t, 10*time.Minute, config.Cache.TTL)

	assert.Equal(t, "text", config.Output.Format)
	assert.Equal(t, "info", config.Log.Level)
	assert.Equal(t, 2*time.Second, config.Watch.Debounce)

	assert.NoError(t, NewLoader().Validate(config))
}

func TestLoader_Load_NoConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	config, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, 2, config.Analysis.MaxDistance)
	assert.Equal(t, "text", config.Output.Format)
}

func TestLoader_Load_ValidConfigFile(t *testing.T) {
	tempDir := t.TempDir()
	configContent := `
inventory: inventory.db
broken_paths: broken.txt
author:
  url: "https://author.example.com"
  token: "test-token"
  rate_limit: 5
analysis:
  locale_fallbacks: ["en-GB", "en"]
  max_distance: 3
  concurrency: 8
  rule_timeout: 2s
cache:
  ttl: 1m
output:
  format: json
log:
  level: debug
  format: console
watch:
  debounce: 500ms
`
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "cfpaths.yaml"), []byte(configContent), 0644))
	t.Chdir(tempDir)

	config, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(tempDir, "inventory.db"), config.Inventory)
	assert.Equal(t, filepath.Join(tempDir, "broken.txt"), config.BrokenPaths)
	assert.Equal(t, "https://author.example.com", config.Author.URL)
	assert.Equal(t, "test-token", config.Author.Token)
	assert.Equal(t, 5, config.Author.RateLimit)
	assert.Equal(t, []string{"en-GB", "en"}, config.Analysis.LocaleFallbacks)
	assert.Equal(t, 3, config.Analysis.MaxDistance)
	assert.Equal(t, 8, config.Analysis.Concurrency)
	assert.Equal(t, 2*time.Second, config.Analysis.RuleTimeout)
	assert.Equal(t, time.Minute, config.Cache.TTL)
	assert.Equal(t, 5000, config.Cache.MaxSize)
	assert.Equal(t, "json", config.Output.Format)
	assert.Equal(t, "console", config.Log.Format)
	assert.Equal(t, 500*time.Millisecond, config.Watch.Debounce)
	assert.NotEmpty(t, config.File)
}

func TestLoader_Load_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CFPATHS_AUTHOR_URL", "http://localhost:4502")
	t.Setenv("CFPATHS_AUTHOR_TOKEN", "secret")
	t.Setenv("CFPATHS_ANALYSIS_MAX_DISTANCE", "1")
	t.Setenv("CFPATHS_OUTPUT_FORMAT", "yaml")

	config, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:4502", config.Author.URL)
	assert.Equal(t, "secret", config.Author.Token)
	assert.Equal(t, 1, config.Analysis.MaxDistance)
	assert.Equal(t, "yaml", config.Output.Format)
	assert.Empty(t, config.File)
}

func TestLoader_Load_InvalidYAML(t *testing.T) {
	tempDir := t.TempDir()
	invalidYAML := `
analysis:
  locale_fallbacks: [unclosed list
`
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "cfpaths.yaml"), []byte(invalidYAML), 0644))
	t.Chdir(tempDir)

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestLoader_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  format: yaml\n"), 0644))

	config, err := NewLoader().LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "yaml", config.Output.Format)
	assert.Equal(t, path, config.File)

	_, err = NewLoader().LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoader_LoadFile_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfpaths.yaml")
	require.NoError(t, os.WriteFile(path, []byte("analysis:\n  max_distance: -1\n"), 0644))

	_, err := NewLoader().LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, err.Error(), "analysis.max_distance")
}

func TestLoader_Validate(t *testing.T) {
	loader := NewLoader()

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"author url without scheme", func(c *Config) { c.Author.URL = "author.example.com" }, "author.url"},
		{"author url with bad scheme", func(c *Config) { c.Author.URL = "ftp://author.example.com" }, "author.url"},
		{"author rate limit", func(c *Config) {
			c.Author.URL = "https://author.example.com"
			c.Author.RateLimit = 0
		}, "author.rate_limit"},
		{"rate limit ignored without author", func(c *Config) { c.Author.RateLimit = 0 }, ""},
		{"negative concurrency", func(c *Config) { c.Analysis.Concurrency = -1 }, "analysis.concurrency"},
		{"negative rule timeout", func(c *Config) { c.Analysis.RuleTimeout = -time.Second }, "analysis.rule_timeout"},
		{"empty locale", func(c *Config) { c.Analysis.LocaleFallbacks = []string{"en", " "} }, "analysis.locale_fallbacks"},
		{"negative cache size", func(c *Config) { c.Cache.MaxSize = -1 }, "cache.max_size"},
		{"output format", func(c *Config) { c.Output.Format = "csv" }, "output.format"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"log level case", func(c *Config) { c.Log.Level = "WARN" }, ""},
		{"negative debounce", func(c *Config) { c.Watch.Debounce = -time.Second }, "watch.debounce"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)

			err := loader.Validate(config)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoader_ExpandPath(t *testing.T) {
	loader := NewLoader()

	assert.Equal(t, "", loader.expandPath(""))

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "inventory.db"), loader.expandPath("~/inventory.db"))

	abs, err := filepath.Abs("broken.txt")
	require.NoError(t, err)
	assert.Equal(t, abs, loader.expandPath("broken.txt"))
}
