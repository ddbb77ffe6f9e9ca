// Package config loads process configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Port is the single externally required parameter.
	Port int `env:"PORT" envDefault:"3000"`
	// DatabaseURL selects the Postgres store; empty keeps records in memory.
	DatabaseURL string `env:"DATABASE_URL"`
	// CohortSize is how many participants share one session.
	CohortSize int `env:"GAME_COHORT_SIZE" envDefault:"2"`
	// PurgeAllOnEnd removes the whole cohort's participant records when a
	// session ends, not just the participant that triggered the end.
	PurgeAllOnEnd bool   `env:"GAME_PURGE_ALL_ON_END" envDefault:"true"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
}

func Load() (Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.CohortSize < 2 {
		return Config{}, fmt.Errorf("GAME_COHORT_SIZE must be at least 2, got %d", cfg.CohortSize)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("PORT out of range: %d", cfg.Port)
	}
	return cfg, nil
}
