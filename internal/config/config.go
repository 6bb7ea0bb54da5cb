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

// ErrMissingSecret is returned when no signing secret is configured.
var ErrMissingSecret = errors.New("AUTH_JWT_SECRET is required")

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior. File enables a rotated log file
// next to stdout.
type LoggerConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// AuthConfig defines token parameters.
type AuthConfig struct {
	JWTSecret       string
	TokenTTLHours   int
	LookupTimeoutMs int
}

// RateLimitConfig selects the limiter backend.
// Backend is one of "none", "memory" or "redis".
type RateLimitConfig struct {
	Backend           string
	RequestsPerMinute int
	Burst             int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "crm-gateway"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  getEnvAsInt("LOG_FILE_MAX_SIZE_MB", 100),
			MaxBackups: getEnvAsInt("LOG_FILE_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvAsInt("LOG_FILE_MAX_AGE_DAYS", 30),
		},
		Auth: AuthConfig{
			JWTSecret:       os.Getenv("AUTH_JWT_SECRET"),
			TokenTTLHours:   getEnvAsInt("AUTH_TOKEN_TTL_HOURS", 24),
			LookupTimeoutMs: getEnvAsInt("AUTH_LOOKUP_TIMEOUT_MS", 2000),
		},
		RateLimit: RateLimitConfig{
			Backend:           strings.ToLower(getEnv("RATE_LIMIT_BACKEND", "none")),
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 60),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 60),
		},
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, ErrMissingSecret
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// TokenTTL returns the token lifetime, 24h when unset.
func (a AuthConfig) TokenTTL() time.Duration {
	if a.TokenTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(a.TokenTTLHours) * time.Hour
}

// LookupTimeout bounds a single principal lookup.
func (a AuthConfig) LookupTimeout() time.Duration {
	if a.LookupTimeoutMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(a.LookupTimeoutMs) * time.Millisecond
}

// Window is the fixed counting window used by counter backends.
func (r RateLimitConfig) Window() time.Duration {
	return time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
