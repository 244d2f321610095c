// Package config loads runtime configuration via viper, supporting an
// optional config file plus OPTIONRUNNER_* environment overrides.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// GatewayConfig is the brokerage session parameters.
type GatewayConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	ClientID int    `mapstructure:"client_id"`
	Account  string `mapstructure:"account"`
}

// PersistenceConfig points at the two durable blob files.
type PersistenceConfig struct {
	SettingPath string `mapstructure:"setting_path"`
	DataPath    string `mapstructure:"data_path"`
}

// HedgeConfig carries the hedging controller defaults.
type HedgeConfig struct {
	TimerTrigger int     `mapstructure:"timer_trigger"`
	DeltaTarget  float64 `mapstructure:"delta_target"`
	DeltaRange   float64 `mapstructure:"delta_range"`
}

// HTTPConfig configures the read-only status surface.
type HTTPConfig struct {
	Addr    string `mapstructure:"addr"`
	Enabled bool   `mapstructure:"enabled"`
}

// Config is the root runtime configuration.
type Config struct {
	LogLevel    string            `mapstructure:"log_level"`
	Gateway     GatewayConfig     `mapstructure:"gateway"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Hedge       HedgeConfig       `mapstructure:"hedge"`
	HTTP        HTTPConfig        `mapstructure:"http"`

	// StrategyTimerTrigger is the configured ticks-between-on_timer default.
	// The strategy manager does not read it; strategies without a
	// timer_trigger setting use strategy.DefaultTimerTrigger.
	StrategyTimerTrigger int `mapstructure:"strategy_timer_trigger"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("gateway.host", "127.0.0.1")
	v.SetDefault("gateway.port", 7497)
	v.SetDefault("gateway.client_id", 1)
	v.SetDefault("gateway.account", "")
	v.SetDefault("persistence.setting_path", "setting/strategy_setting.yaml")
	v.SetDefault("persistence.data_path", "setting/strategy_data.yaml")
	v.SetDefault("hedge.timer_trigger", 5)
	v.SetDefault("hedge.delta_target", 0.0)
	v.SetDefault("hedge.delta_range", 0.0)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.enabled", true)
	v.SetDefault("strategy_timer_trigger", 10)
}

// Load reads configuration from an optional config.yaml in the working
// directory (or path, when non-empty), layered under OPTIONRUNNER_*
// environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("optionrunner")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			// A missing default config file is fine; env+defaults apply.
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
