package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete cfpaths configuration
type Config struct {
	Inventory   string         `mapstructure:"inventory" yaml:"inventory"`
	BrokenPaths string         `mapstructure:"broken_paths" yaml:"broken_paths"`
	Author      AuthorConfig   `mapstructure:"author" yaml:"author"`
	Analysis    AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	Cache       CacheConfig    `mapstructure:"cache" yaml:"cache"`
	Output      OutputConfig   `mapstructure:"output" yaml:"output"`
	Log         LogConfig      `mapstructure:"log" yaml:"log"`
	Watch       WatchConfig    `mapstructure:"watch" yaml:"watch"`

	// File is the config file that was read, empty when only defaults and
	// environment were used
	File string `mapstructure:"-" yaml:"-"`
}

// AuthorConfig contains author environment settings. An empty URL disables
// the author client and rules only see the inventory.
type AuthorConfig struct {
	URL       string        `mapstructure:"url" yaml:"url"`
	Token     string        `mapstructure:"token" yaml:"token"`
	RateLimit int           `mapstructure:"rate_limit" yaml:"rate_limit"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	PageSize  int           `mapstructure:"page_size" yaml:"page_size"`
}

// AnalysisConfig tunes the rule chain
type AnalysisConfig struct {
	LocaleFallbacks []string      `mapstructure:"locale_fallbacks" yaml:"locale_fallbacks"`
	MaxDistance     int           `mapstructure:"max_distance" yaml:"max_distance"`
	Concurrency     int           `mapstructure:"concurrency" yaml:"concurrency"`
	RuleTimeout     time.Duration `mapstructure:"rule_timeout" yaml:"rule_timeout"`
}

// CacheConfig sizes the author lookup cache
type CacheConfig struct {
	MaxSize int           `mapstructure:"max_size" yaml:"max_size"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// LogConfig controls logging
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// WatchConfig contains file watching settings
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Author: AuthorConfig{
			RateLimit: 10,
			Timeout:   30 * time.Second,
			PageSize:  100,
		},
		Analysis: AnalysisConfig{
			LocaleFallbacks: []string{"en-US", "en"},
			MaxDistance:     2,
			Concurrency:     1,
			RuleTimeout:     10 * time.Second,
		},
		Cache: CacheConfig{
			MaxSize: 5000,
			TTL:     10 * time.Minute,
		},
		Output: OutputConfig{
			Format: "text",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Watch: WatchConfig{
			Debounce: 2 * time.Second,
		},
	}
}

// defaults registers every key so environment variables can override keys
// that are absent from the config file
func defaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("inventory", d.Inventory)
	v.SetDefault("broken_paths", d.BrokenPaths)
	v.SetDefault("author.url", d.Author.URL)
	v.SetDefault("author.token", d.Author.Token)
	v.SetDefault("author.rate_limit", d.Author.RateLimit)
	v.SetDefault("author.timeout", d.Author.Timeout)
	v.SetDefault("author.page_size", d.Author.PageSize)
	v.SetDefault("analysis.locale_fallbacks", d.Analysis.LocaleFallbacks)
	v.SetDefault("analysis.max_distance", d.Analysis.MaxDistance)
	v.SetDefault("analysis.concurrency", d.Analysis.Concurrency)
	v.SetDefault("analysis.rule_timeout", d.Analysis.RuleTimeout)
	v.SetDefault("cache.max_size", d.Cache.MaxSize)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.file", d.Output.File)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
}

// Loader handles configuration loading and merging
type Loader struct {
	searchPaths []string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		searchPaths: []string{
			".",            // Current working directory
			"~",            // User home directory
			"/etc/cfpaths", // System-wide directory
		},
	}
}

// Load reads cfpaths.yaml from the search paths, then applies CFPATHS_*
// environment variables. A missing config file is not an error.
func (l *Loader) Load() (*Config, error) {
	v := l.newViper()
	v.SetConfigName("cfpaths")
	v.SetConfigType("yaml")

	for _, path := range l.searchPaths {
		v.AddConfigPath(l.expandPath(path))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return l.finish(v)
}

// LoadFile reads an explicit config file; unlike Load it must exist
func (l *Loader) LoadFile(path string) (*Config, error) {
	v := l.newViper()
	v.SetConfigFile(l.expandPath(path))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return l.finish(v)
}

func (l *Loader) newViper() *viper.Viper {
	v := viper.New()
	defaults(v)
	v.SetEnvPrefix("CFPATHS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func (l *Loader) finish(v *viper.Viper) (*Config, error) {
	config := DefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.File = v.ConfigFileUsed()

	if err := l.Validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	config.Inventory = l.expandPath(config.Inventory)
	config.BrokenPaths = l.expandPath(config.BrokenPaths)
	config.Output.File = l.expandPath(config.Output.File)

	return config, nil
}

// expandPath expands ~ to home directory and resolves relative paths
func (l *Loader) expandPath(path string) string {
	if path == "" {
		return path
	}

	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	return abs
}

var (
	validOutputFormats = map[string]bool{"text": true, "json": true, "yaml": true}
	validLogFormats    = map[string]bool{"json": true, "console": true}
	validLogLevels     = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
)

// Validate performs basic validation on the configuration
func (l *Loader) Validate(config *Config) error {
	if config.Author.URL != "" {
		u, err := url.Parse(config.Author.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("author.url must be an http(s) URL: %q", config.Author.URL)
		}
		if config.Author.RateLimit <= 0 {
			return fmt.Errorf("author.rate_limit must be positive")
		}
	}
	if config.Author.Timeout < 0 {
		return fmt.Errorf("author.timeout cannot be negative")
	}
	if config.Author.PageSize < 0 {
		return fmt.Errorf("author.page_size cannot be negative")
	}

	if config.Analysis.MaxDistance < 0 {
		return fmt.Errorf("analysis.max_distance cannot be negative")
	}
	if config.Analysis.Concurrency < 0 {
		return fmt.Errorf("analysis.concurrency cannot be negative")
	}
	if config.Analysis.RuleTimeout < 0 {
		return fmt.Errorf("analysis.rule_timeout cannot be negative")
	}
	for _, locale := range config.Analysis.LocaleFallbacks {
		if strings.TrimSpace(locale) == "" {
			return fmt.Errorf("analysis.locale_fallbacks cannot contain empty entries")
		}
	}

	if config.Cache.MaxSize < 0 {
		return fmt.Errorf("cache.max_size cannot be negative")
	}
	if config.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl cannot be negative")
	}

	if !validOutputFormats[config.Output.Format] {
		return fmt.Errorf("invalid output.format: %s", config.Output.Format)
	}
	if !validLogFormats[config.Log.Format] {
		return fmt.Errorf("invalid log.format: %s", config.Log.Format)
	}
	if !validLogLevels[strings.ToLower(config.Log.Level)] {
		return fmt.Errorf("invalid log.level: %s", config.Log.Level)
	}

	if config.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce cannot be negative")
	}

	return nil
}
