package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr              string
	DatabaseURL       string
	Environment       string
	DataEncryptionKey string
	DefaultCity       string
	MaxUploadBytes    int64
	PDFFontPath       string
	AMQPURL           string
	AMQPExchange      string
	JobQueueSize      int
	RunMigrations     bool
	MigrationsDir     string
	MetricsEnabled    bool
	// RateLimitPerMinute caps uploads and calculations per client IP. Zero
	// disables the limit.
	RateLimitPerMinute int
}

// Load reads the process environment. Values in a local .env file fill in
// variables that are not already set.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load .env file", "err", err)
	}
	return Config{
		Addr:               getEnv("APP_ADDR", ":8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		Environment:        getEnv("APP_ENV", "development"),
		DataEncryptionKey:  getEnv("DATA_ENCRYPTION_KEY", ""),
		DefaultCity:        getEnv("DEFAULT_CITY", "佛山"),
		MaxUploadBytes:     int64(getEnvInt("MAX_UPLOAD_BYTES", 10*1024*1024)),
		PDFFontPath:        getEnv("PDF_FONT_PATH", ""),
		AMQPURL:            getEnv("AMQP_URL", ""),
		AMQPExchange:       getEnv("AMQP_EXCHANGE", "contributions"),
		JobQueueSize:       getEnvInt("JOB_QUEUE_SIZE", 32),
		RunMigrations:      getEnvBool("RUN_MIGRATIONS", true),
		MigrationsDir:      getEnv("MIGRATIONS_DIR", "migrations"),
		MetricsEnabled:     getEnvBool("METRICS_ENABLED", true),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// Status describes which integrations are configured.
type Status struct {
	Configured  bool     `json:"configured"`
	MissingVars []string `json:"missingVars"`
	Encryption  bool     `json:"encryption"`
	Events      bool     `json:"events"`
	DefaultCity string   `json:"defaultCity"`
}

// MissingVars lists required variables that are unset or blank.
func (c Config) MissingVars() []string {
	missing := []string{}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Environment == "production" && strings.TrimSpace(c.DataEncryptionKey) == "" {
		missing = append(missing, "DATA_ENCRYPTION_KEY")
	}
	return missing
}

func (c Config) Status() Status {
	missing := c.MissingVars()
	return Status{
		Configured:  len(missing) == 0,
		MissingVars: missing,
		Encryption:  c.DataEncryptionKey != "",
		Events:      c.AMQPURL != "",
		DefaultCity: c.DefaultCity,
	}
}

func (c Config) Validate() error {
	if missing := c.MissingVars(); len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if strings.TrimSpace(c.DefaultCity) == "" {
		return fmt.Errorf("DEFAULT_CITY must not be blank")
	}
	if c.MaxUploadBytes < 1024 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	if c.JobQueueSize <= 0 {
		return fmt.Errorf("JOB_QUEUE_SIZE must be positive")
	}
	if c.PDFFontPath != "" {
		if _, err := os.Stat(c.PDFFontPath); err != nil {
			return fmt.Errorf("PDF_FONT_PATH: %w", err)
		}
	}
	return nil
}
