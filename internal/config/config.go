// Package config loads extorder settings from viper.
package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"github.com/papapumpkin/extorder/internal/extract"
)

// ErrInvalid is returned by Load when a setting is out of range.
var ErrInvalid = errors.New("invalid configuration")

// BundleConfig holds settings for the bundle command.
type BundleConfig struct {
	Out       string `mapstructure:"out"`
	Minify    bool   `mapstructure:"minify"`
	Separator string `mapstructure:"separator"`
	KeepNames bool   `mapstructure:"keep_names"`
}

// Config holds all runtime configuration for an extorder run.
// Values are populated from .extorder.yaml, EXTORDER_* env vars, and CLI flags.
type Config struct {
	Include            []string     `mapstructure:"include"`
	IncludeRecursive   []string     `mapstructure:"include_recursive"`
	Exclude            []string     `mapstructure:"exclude"`
	Pattern            string       `mapstructure:"pattern"`
	Strategy           string       `mapstructure:"strategy"`
	Strict             bool         `mapstructure:"strict"`
	FailOnUnresolved   bool         `mapstructure:"fail_on_unresolved"`
	ExternalNamespaces []string     `mapstructure:"external_namespaces"`
	ApplicationCalls   []string     `mapstructure:"application_calls"`
	ClassCalls         []string     `mapstructure:"class_calls"`
	Concurrency        int          `mapstructure:"concurrency"`
	CacheSize          int          `mapstructure:"cache_size"`
	Events             string       `mapstructure:"events"`
	Verbose            bool         `mapstructure:"verbose"`
	Bundle             BundleConfig `mapstructure:"bundle"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	defaults := extract.DefaultOptions()

	viper.SetDefault("include", []string{})
	viper.SetDefault("include_recursive", []string{})
	viper.SetDefault("exclude", []string{})
	viper.SetDefault("pattern", "*.js")
	viper.SetDefault("strategy", extract.StrategySyntax)
	viper.SetDefault("strict", false)
	viper.SetDefault("fail_on_unresolved", false)
	viper.SetDefault("external_namespaces", []string{"Ext"})
	viper.SetDefault("application_calls", defaults.ApplicationCalls)
	viper.SetDefault("class_calls", defaults.ClassCalls)
	viper.SetDefault("concurrency", 0)
	viper.SetDefault("cache_size", 512)
	viper.SetDefault("events", "")
	viper.SetDefault("verbose", false)
	viper.SetDefault("bundle.out", "")
	viper.SetDefault("bundle.minify", false)
	viper.SetDefault("bundle.separator", "\n")
	viper.SetDefault("bundle.keep_names", false)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that viper cannot type-check.
func (c Config) Validate() error {
	switch c.Strategy {
	case extract.StrategyPattern, extract.StrategySyntax:
	default:
		return fmt.Errorf("%w: strategy %q (want %s or %s)", ErrInvalid, c.Strategy, extract.StrategyPattern, extract.StrategySyntax)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency %d is negative", ErrInvalid, c.Concurrency)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("%w: cache_size %d is negative", ErrInvalid, c.CacheSize)
	}
	if len(c.ApplicationCalls) == 0 && len(c.ClassCalls) == 0 {
		return fmt.Errorf("%w: no application_calls or class_calls", ErrInvalid)
	}
	return nil
}

// ExtractOptions converts the call target settings to extractor options.
func (c Config) ExtractOptions() []extract.Option {
	return []extract.Option{
		extract.WithApplicationCalls(c.ApplicationCalls...),
		extract.WithClassCalls(c.ClassCalls...),
	}
}
