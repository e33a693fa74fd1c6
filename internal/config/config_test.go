package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load reads so the host environment cannot leak in
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"ENV", "LOG_LEVEL", "GRPC_ADDR", "HTTP_ADDR", "API_TOKEN", "STORE_DRIVER",
		"DB_CONN_STR", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
		"RETRY_ATTEMPTS", "RETRY_BACKOFF", "ADVISORY_WORKERS", "ADVISORY_QUEUE",
		"ADVISORY_TIMEOUT", "GEMINI_MODEL", "GEMINI_API_KEY",
	}
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.GRPCAddr)
	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=finverse sslmode=disable", cfg.DBConnStr)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 10*time.Millisecond, cfg.RetryBackoff)
	assert.Equal(t, 2, cfg.AdvisoryWorkers)
	assert.Equal(t, 64, cfg.AdvisoryQueue)
	assert.Equal(t, 10*time.Second, cfg.AdvisoryTimeout)
	assert.False(t, cfg.AdvisoryEnabled)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FromDotEnvFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), ".env")
	content := "ENV=production\nLOG_LEVEL=debug\nSTORE_DRIVER=POSTGRES\nDB_HOST=db\nDB_NAME=ledger\nRETRY_ATTEMPTS=5\nADVISORY_TIMEOUT=2s\nGEMINI_API_KEY=key\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// Environment wins over the file
	t.Setenv("RETRY_ATTEMPTS", "4")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Contains(t, cfg.DBConnStr, "host=db")
	assert.Contains(t, cfg.DBConnStr, "dbname=ledger")
	assert.Equal(t, 4, cfg.RetryAttempts)
	assert.Equal(t, 2*time.Second, cfg.AdvisoryTimeout)
	assert.True(t, cfg.AdvisoryEnabled)

	for _, k := range []string{"ENV", "LOG_LEVEL", "STORE_DRIVER", "DB_HOST", "DB_NAME", "ADVISORY_TIMEOUT", "GEMINI_API_KEY"} {
		os.Unsetenv(k)
	}
}

func TestLoad_ExplicitConnString(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_CONN_STR", "postgres://u:p@db:5432/ledger?sslmode=disable")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/ledger?sslmode=disable", cfg.DBConnStr)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		value  string
		errMsg string
	}{
		{"unknown driver", "STORE_DRIVER", "sqlite", "STORE_DRIVER must be"},
		{"bad retry count", "RETRY_ATTEMPTS", "many", "invalid RETRY_ATTEMPTS"},
		{"zero retries", "RETRY_ATTEMPTS", "0", "RETRY_ATTEMPTS must be at least 1"},
		{"bad duration", "ADVISORY_TIMEOUT", "soon", "invalid ADVISORY_TIMEOUT"},
		{"bad log level", "LOG_LEVEL", "loud", "invalid LOG_LEVEL"},
		{"zero workers", "ADVISORY_WORKERS", "0", "must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
