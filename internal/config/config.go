// Package config loads the exchange's process configuration: just the
// listener address, read from the environment via viper.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level process configuration.
type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Load reads EXCHANGE_HOST / EXCHANGE_PORT from the environment, falling
// back to 0.0.0.0:9001 when unset.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("EXCHANGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 9001)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
