package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envPrefix is the prefix for environment variable overrides, e.g.
// POSITION_SERVER_PORT overrides server.port.
const envPrefix = "POSITION"

// Load reads configuration from an optional config.yaml, a .env file when
// present, and environment variables. Environment variables take precedence
// over values from config files. Returns a populated Config struct or an
// error if loading or validation fails.
func Load() (*Config, error) {
	// A missing .env file is fine; environment variables are read directly.
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("auth.session_lifetime_minutes", 60*24)
	v.SetDefault("auth.nonce_ttl_seconds", 300)
	v.SetDefault("enrichment.coingecko_base_url", "https://api.coingecko.com/api/v3")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Only a malformed file is fatal; a missing one is expected in
		// environments configured purely through the process environment.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
