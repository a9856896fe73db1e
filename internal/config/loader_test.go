package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, NewDefaultConfig().Server.Port, cfg.Server.Port)
	assert.True(t, cfg.Redaction.Enabled)
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9300
logging:
  level: debug
  format: console
  levels:
    SQL: trace
redaction:
  mask_pii: true
  sensitive_keys:
    - pgpass
sql:
  slow_threshold: 250ms
sampler:
  enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9300, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "trace", cfg.Logging.Levels["SQL"])
	assert.True(t, cfg.Redaction.MaskPII)
	assert.Equal(t, []string{"pgpass"}, cfg.Redaction.SensitiveKeys)
	assert.Equal(t, 250*time.Millisecond, cfg.SQL.SlowThreshold.Duration())
	assert.False(t, cfg.Sampler.Enabled)

	// Untouched sections keep their defaults.
	assert.Equal(t, "X-Correlation-ID", cfg.Request.CorrelationHeader)
	assert.True(t, cfg.Redaction.Enabled)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9300
`)

	t.Setenv("SERVER_PORT", "9400")
	t.Setenv("LOGGING_LEVEL", "warn")
	t.Setenv("SQL_MAX_QUERY_LENGTH", "123")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9400, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 123, cfg.SQL.MaxQueryLength)
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  format: xml
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"SERVER_PORT", "server.port"},
		{"LOGGING_LEVEL", "logging.level"},
		{"SQL_MAX_QUERY_LENGTH", "sql.max_query_length"},
		{"SAMPLER_HEAP_WARN_PERCENT", "sampler.heap_warn_percent"},
		{"SIMPLE", "simple"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, envTransform(tt.env))
	}
}
