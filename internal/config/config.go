package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config holds every setting of the ledger server
type Config struct {
	Env      string
	LogLevel slog.Level
	GRPCAddr string
	HTTPAddr string
	APIToken string

	StoreDriver string
	DBConnStr   string

	RetryAttempts int
	RetryBackoff  time.Duration

	AdvisoryEnabled bool
	AdvisoryWorkers int
	AdvisoryQueue   int
	AdvisoryTimeout time.Duration
	GeminiModel     string
}

// Load reads an optional .env file, then the environment.
// Variables already set in the environment win over the file.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		slog.Debug("no .env file found, relying on system environment variables")
	}

	cfg := &Config{
		Env:             getEnv("ENV", "development"),
		GRPCAddr:        getEnv("GRPC_ADDR", ":8080"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8081"),
		APIToken:        getEnv("API_TOKEN", "dev-token"),
		StoreDriver:     strings.ToLower(getEnv("STORE_DRIVER", DriverMemory)),
		DBConnStr:       dbConnString(),
		AdvisoryEnabled: getEnv("GEMINI_API_KEY", "") != "",
		GeminiModel:     getEnv("GEMINI_MODEL", ""),
	}

	var err error
	if cfg.LogLevel, err = parseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, err
	}
	if cfg.RetryAttempts, err = getInt("RETRY_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.RetryBackoff, err = getDuration("RETRY_BACKOFF", 10*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.AdvisoryWorkers, err = getInt("ADVISORY_WORKERS", 2); err != nil {
		return nil, err
	}
	if cfg.AdvisoryQueue, err = getInt("ADVISORY_QUEUE", 64); err != nil {
		return nil, err
	}
	if cfg.AdvisoryTimeout, err = getDuration("ADVISORY_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures the configuration is usable
func (c *Config) Validate() error {
	if c.StoreDriver != DriverMemory && c.StoreDriver != DriverPostgres {
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverMemory, DriverPostgres, c.StoreDriver)
	}
	if c.APIToken == "" {
		return fmt.Errorf("API_TOKEN cannot be empty")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("RETRY_ATTEMPTS must be at least 1")
	}
	if c.AdvisoryWorkers < 1 || c.AdvisoryQueue < 1 {
		return fmt.Errorf("ADVISORY_WORKERS and ADVISORY_QUEUE must be positive")
	}
	return nil
}

// IsProduction reports whether logs should be emitted as JSON
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// dbConnString uses DB_CONN_STR, or builds a DSN from the individual DB_* variables
func dbConnString() string {
	if dsn := getEnv("DB_CONN_STR", ""); dsn != "" {
		return dsn
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "finverse"),
	)
}

// Helper to get env with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return level, nil
}
