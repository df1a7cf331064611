// Package config loads relic's YAML configuration via viper, the way
// the rest of the corpus configures its services.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is relic's top-level configuration file shape.
type Config struct {
	AppName string `mapstructure:"app_name"`

	Storage struct {
		DataDir  string `mapstructure:"data_dir"`
		PageSize int    `mapstructure:"page_size"`
	} `mapstructure:"storage"`

	BufferPool struct {
		Capacity int    `mapstructure:"capacity"`
		Policy   string `mapstructure:"policy"`
	} `mapstructure:"buffer_pool"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logging"`

	Shell struct {
		HistoryFile string `mapstructure:"history_file"`
		Prompt      string `mapstructure:"prompt"`
	} `mapstructure:"shell"`
}

// Default returns the configuration relic runs with when no config file
// is given.
func Default() *Config {
	cfg := &Config{AppName: "relic"}
	cfg.Storage.DataDir = "data"
	cfg.Storage.PageSize = 4096
	cfg.BufferPool.Capacity = 16
	cfg.BufferPool.Policy = "lru"
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	cfg.Shell.HistoryFile = ""
	cfg.Shell.Prompt = "relic> "
	return cfg
}

// Load reads a YAML config file at path, falling back to Default for
// any field the file leaves unset.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
