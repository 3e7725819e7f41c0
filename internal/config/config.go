// Package config loads service configuration from the environment.
// A .env file in the working directory is read first when present; real
// environment variables take precedence over it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full service configuration.
type Config struct {
	Env      string
	HTTP     HTTPConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Log      LogConfig
	Worker   WorkerConfig

	IdempotencyEnabled bool
	IdempotencyTTL     time.Duration
}

// HTTPConfig holds the API listener settings.
type HTTPConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// PostgresConfig holds the pool settings.
type PostgresConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	StatementTimeout time.Duration
}

// RedisConfig is optional; an empty Addr disables distributed locks.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Enabled reports whether Redis is configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// JWTConfig holds token validation settings.
type JWTConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string
	Development bool
}

// WorkerConfig holds background job intervals.
type WorkerConfig struct {
	OutboxInterval      time.Duration
	OutboxBatchSize     int
	OutboxMaxRetries    int
	OutboxRetention     time.Duration
	IdempotencyInterval time.Duration
}

const defaultJWTSecret = "dev-secret-change-me"

// Load reads .env (if any) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables only.
func FromEnv() (*Config, error) {
	env := getEnv("APP_ENV", "development")
	cfg := &Config{
		Env: env,
		HTTP: HTTPConfig{
			Port:         getEnv("APP_PORT", "8080"),
			ReadTimeout:  getEnvDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		},
		Postgres: PostgresConfig{
			DSN:              os.Getenv("DATABASE_URL"),
			MaxConns:         int32(getEnvInt("DB_MAX_CONNS", 20)),
			MinConns:         int32(getEnvInt("DB_MIN_CONNS", 2)),
			MaxConnLifetime:  getEnvDuration("DB_MAX_CONN_LIFETIME", time.Hour),
			StatementTimeout: getEnvDuration("DB_STATEMENT_TIMEOUT", 30*time.Second),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_LOCK_PREFIX", "bakehouse:lock:"),
		},
		JWT: JWTConfig{
			Secret:   getEnv("JWT_SECRET", defaultJWTSecret),
			Issuer:   getEnv("JWT_ISSUER", "bakehouse"),
			TokenTTL: getEnvDuration("JWT_TOKEN_TTL", 12*time.Hour),
		},
		Log: LogConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: env == "development",
		},
		Worker: WorkerConfig{
			OutboxInterval:      getEnvDuration("OUTBOX_INTERVAL", time.Second),
			OutboxBatchSize:     getEnvInt("OUTBOX_BATCH_SIZE", 100),
			OutboxMaxRetries:    getEnvInt("OUTBOX_MAX_RETRIES", 5),
			OutboxRetention:     getEnvDuration("OUTBOX_RETENTION", 7*24*time.Hour),
			IdempotencyInterval: getEnvDuration("IDEMPOTENCY_CLEANUP_INTERVAL", time.Hour),
		},
		IdempotencyEnabled: getEnvBool("IDEMPOTENCY_ENABLED", false),
		IdempotencyTTL:     getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
	}
	return cfg, cfg.Validate()
}

// Validate checks required settings.
func (c *Config) Validate() error {
	var errs []error
	if c.Postgres.DSN == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.Env == "production" && c.JWT.Secret == defaultJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	if c.Postgres.MinConns > c.Postgres.MaxConns {
		errs = append(errs, errors.New("DB_MIN_CONNS must not exceed DB_MAX_CONNS"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
