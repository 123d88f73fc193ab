// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all runtime settings for the service.
type Config struct {
	Port            string `env:"PORT" env-default:"8080"`
	ReserveAttempts int    `env:"RESERVE_ATTEMPTS" env-default:"3"`

	Database DatabaseConfig
	Redis    RedisConfig
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `env:"DB_HOST" env-default:"localhost"`
	Port     string `env:"DB_PORT" env-default:"5432"`
	User     string `env:"DB_USER" env-default:"postgres"`
	Password string `env:"DB_PASSWORD" env-default:"postgres"`
	Name     string `env:"DB_NAME" env-default:"gestion_eventos"`
	SSLMode  string `env:"DB_SSLMODE" env-default:"disable"`
}

// RedisConfig holds settings for the optional event-list cache.
// An empty Addr disables the cache entirely.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB" env-default:"0"`
	TTL      time.Duration `env:"CACHE_TTL" env-default:"30s"`
}

// DSN builds a libpq-compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// Load reads configuration from environment variables, applying defaults
// for anything unset.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config from env: %w", err)
	}
	if cfg.ReserveAttempts < 1 {
		cfg.ReserveAttempts = 1
	}
	return &cfg, nil
}
