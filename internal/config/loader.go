package config

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Load reads configuration from an optional file plus TRADELENS_*
// environment variables, layered over built-in defaults. An empty
// cfgFile skips the file layer entirely.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("exchange.base_url", "")
	v.SetDefault("exchange.api_key", "")
	v.SetDefault("exchange.api_secret", "")
	v.SetDefault("exchange.request_timeout", "10s")
	v.SetDefault("exchange.recv_window", "5s")
	v.SetDefault("exchange.ban_prevention", "2m")
	v.SetDefault("exchange.pre_check", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("limit_templates_file", "")

	v.SetEnvPrefix("TRADELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	return &cfg, nil
}
