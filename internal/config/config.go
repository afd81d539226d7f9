// Package config provides centralized configuration management for the
// tradelens CLI: defaults, an optional YAML config file, and
// TRADELENS_* environment overrides, decoded through viper.
package config

import "time"

// Config represents the complete application configuration.
type Config struct {
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Logging  LoggingConfig  `mapstructure:"logging"`

	// LimitTemplatesFile optionally points to a YAML file overriding
	// the default rate limit windows.
	LimitTemplatesFile string `mapstructure:"limit_templates_file"`
}

// ExchangeConfig contains the exchange connection settings.
type ExchangeConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`

	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RecvWindow     time.Duration `mapstructure:"recv_window"`
	BanPrevention  time.Duration `mapstructure:"ban_prevention"`

	// PreCheck enables local admission checks before each request.
	PreCheck bool `mapstructure:"pre_check"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level controls the minimum log level.
	// Valid values: debug, info, warn, error
	Level string `mapstructure:"level"`
}
