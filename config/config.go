// Package config loads memplan tool configuration.
//
// Settings resolve in the usual layering: built-in defaults, then an
// optional memplan.yaml config file, then MEMPLAN_* environment
// variables, then command-line flags bound by the CLI.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config carries the tool-level settings shared by the CLI commands.
type Config struct {
	Strategy string `mapstructure:"strategy"` // packing strategy selector
	Device   string `mapstructure:"device"`   // target device for artifacts
	Compress bool   `mapstructure:"compress"` // zstd-compress artifacts
	Verbose  bool   `mapstructure:"verbose"`  // debug-level logging
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Strategy: "greedy-by-size",
		Device:   "cpu",
		Compress: false,
		Verbose:  false,
	}
}

// Load resolves configuration from defaults, an optional config file, and
// the environment. An empty path searches the working directory for
// memplan.yaml; a missing search-path file is not an error, an explicit
// path that cannot be read is.
func Load(path string) (*Config, *viper.Viper, error) {
	v := viper.New()

	def := Defaults()
	v.SetDefault("strategy", def.Strategy)
	v.SetDefault("device", def.Device)
	v.SetDefault("compress", def.Compress)
	v.SetDefault("verbose", def.Verbose)

	v.SetEnvPrefix("MEMPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("memplan")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" {
			return nil, nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, v, nil
}
