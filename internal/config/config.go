package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	AI        AIConfig
	Ingest    IngestConfig
	Analytics AnalyticsConfig
	Delivery  DeliveryConfig
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

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
	// Output is a zap sink path such as "stdout" or "stderr".
	Output string
}

// AIConfig configures the reply generation backend.
type AIConfig struct {
	APIKey            string
	Model             string
	TimeoutSeconds    int
	MaxOutputTokens   int
	SuggestionHistory int
	// MockFallback answers with canned replies when no credential is configured.
	MockFallback bool
}

// IngestConfig tunes the ingestion pipeline.
type IngestConfig struct {
	ResolutionLock      bool
	ResolutionLockTTLMs int
}

// AnalyticsConfig tunes read-side aggregation.
type AnalyticsConfig struct {
	Timezone string
}

// DeliveryConfig holds the outbound forwarding endpoint.
type DeliveryConfig struct {
	WebhookURL     string
	TimeoutSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "guest-inbox"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 45),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
		AI: AIConfig{
			APIKey:            firstEnv("AI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"),
			Model:             getEnv("AI_MODEL", "gemini-2.0-flash"),
			TimeoutSeconds:    getEnvAsInt("AI_TIMEOUT_SECONDS", 30),
			MaxOutputTokens:   getEnvAsInt("AI_MAX_OUTPUT_TOKENS", 300),
			SuggestionHistory: getEnvAsInt("AI_SUGGESTION_HISTORY", 10),
			MockFallback:      getEnvAsBool("AI_MOCK_FALLBACK", true),
		},
		Ingest: IngestConfig{
			ResolutionLock:      getEnvAsBool("INGEST_RESOLUTION_LOCK", false),
			ResolutionLockTTLMs: getEnvAsInt("INGEST_RESOLUTION_LOCK_TTL_MS", 5000),
		},
		Analytics: AnalyticsConfig{
			Timezone: getEnv("ANALYTICS_TIMEZONE", "UTC"),
		},
		Delivery: DeliveryConfig{
			WebhookURL:     getEnv("DELIVERY_WEBHOOK_URL", ""),
			TimeoutSeconds: getEnvAsInt("DELIVERY_TIMEOUT_SECONDS", 5),
		},
	}

	if _, err := cfg.Analytics.Location(); err != nil {
		return nil, fmt.Errorf("invalid ANALYTICS_TIMEZONE: %w", err)
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

// Timeout returns the completion deadline, 30s when unset.
func (a AIConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// LockTTL returns how long a resolution lock is held at most.
func (i IngestConfig) LockTTL() time.Duration {
	if i.ResolutionLockTTLMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(i.ResolutionLockTTLMs) * time.Millisecond
}

// Location resolves the timezone used for calendar-day buckets.
func (a AnalyticsConfig) Location() (*time.Location, error) {
	if a.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(a.Timezone)
}

// Timeout returns the delivery request timeout.
func (d DeliveryConfig) Timeout() time.Duration {
	if d.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(d.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	return ""
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
