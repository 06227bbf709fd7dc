// Package config resolves project settings from .declmig.yaml, the
// environment and an optional .env file. Values are returned explicitly;
// nothing is stored in package state.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the resolved project configuration.
type Config struct {
	ModelFile     string
	MigrationsDir string
	DatabaseURL   string
}

// Load reads .env (if present), then .declmig.yaml (if present), then the
// environment. Environment variables win: DECLMIG_MODEL, DECLMIG_MIGRATIONS
// and DATABASE_URL.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName(".declmig")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetDefault("model", "models.yaml")
	v.SetDefault("migrations", "migrations")
	v.SetEnvPrefix("DECLMIG")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return Config{}, fmt.Errorf("reading .declmig.yaml: %w", err)
		}
	}

	cfg := Config{
		ModelFile:     v.GetString("model"),
		MigrationsDir: v.GetString("migrations"),
		DatabaseURL:   v.GetString("database-url"),
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.DatabaseURL = url
	}
	return cfg, nil
}
