// Package config loads runtime configuration at startup.
//
// Values come from an optional config.yaml plus PIPELINE_-prefixed
// environment overrides. Fail-fast: if a required value is missing, the
// process exits with an error.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for the pipeline service.
type Config struct {
	Port           string
	DatabaseURL    string
	RedisURL       string
	MigrationsPath string
}

// Load reads the optional config file and environment and returns a
// validated Config.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("PIPELINE")
	v.AutomaticEnv()
	v.BindEnv("port")
	v.BindEnv("database_url")
	v.BindEnv("redis_url")
	v.BindEnv("migrations_path")

	v.SetDefault("port", "8083")
	v.SetDefault("migrations_path", "migrations")

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional; env vars and defaults still apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		Port:           v.GetString("port"),
		DatabaseURL:    v.GetString("database_url"),
		RedisURL:       v.GetString("redis_url"),
		MigrationsPath: v.GetString("migrations_path"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("PIPELINE_DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("PIPELINE_REDIS_URL is required")
	}

	return cfg, nil
}
