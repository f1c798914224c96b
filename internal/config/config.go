package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config is resolved once at process start and handed to every component as
// an immutable value. Nothing reads ambient environment during processing.
type Config struct {
	Port                 string `mapstructure:"port"`
	SimulateDeactivation bool   `mapstructure:"simulate_deactivation"`
	AllowUnscopedBudget  bool   `mapstructure:"allow_unscoped_budget"`
	MaxParallelProjects  int    `mapstructure:"max_parallel_projects"`
	RetryMaxAttempts     int    `mapstructure:"retry_max_attempts"`
	LogName              string `mapstructure:"log_name"`
	LogLevel             string `mapstructure:"log_level"`
	MetricsEnabled       bool   `mapstructure:"metrics_enabled"`
}

// Load reads the configuration from the environment (SIMULATE_DEACTIVATION,
// ALLOW_UNSCOPED_BUDGET, ...), applying defaults for everything unset.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("port", "8080")
	v.SetDefault("simulate_deactivation", false)
	v.SetDefault("allow_unscoped_budget", false)
	v.SetDefault("max_parallel_projects", 4)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("log_name", "billing-disabler")
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_enabled", true)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
