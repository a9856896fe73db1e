package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "X-Correlation-ID", cfg.Request.CorrelationHeader)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "pgconsole", cfg.Logging.Namespace)
	assert.True(t, cfg.Redaction.Enabled)
	assert.Equal(t, "***", cfg.Redaction.Replacement)
	assert.Equal(t, 60*time.Second, cfg.Sampler.Interval.Duration())
	assert.Equal(t, float64(90), cfg.Sampler.HeapWarnPercent)
	assert.Equal(t, 500, cfg.Sampler.GoroutineWarn)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "bad format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "format must be",
		},
		{
			name:    "empty namespace",
			mutate:  func(c *Config) { c.Logging.Namespace = "" },
			wantErr: "namespace cannot be empty",
		},
		{
			name: "no outputs",
			mutate: func(c *Config) {
				c.Logging.Output.Stdout = false
				c.Logging.Output.OTEL = false
			},
			wantErr: "at least one output",
		},
		{
			name:    "empty correlation header",
			mutate:  func(c *Config) { c.Request.CorrelationHeader = "" },
			wantErr: "correlation header",
		},
		{
			name:    "empty replacement while enabled",
			mutate:  func(c *Config) { c.Redaction.Replacement = "" },
			wantErr: "replacement cannot be empty",
		},
		{
			name:    "zero max query length while enabled",
			mutate:  func(c *Config) { c.SQL.MaxQueryLength = 0 },
			wantErr: "max query length",
		},
		{
			name:    "zero sampler interval while enabled",
			mutate:  func(c *Config) { c.Sampler.Interval = 0 },
			wantErr: "sampler interval",
		},
		{
			name: "heap thresholds inverted",
			mutate: func(c *Config) {
				c.Sampler.HeapWarnPercent = 50
				c.Sampler.HeapInfoPercent = 75
			},
			wantErr: "heap warn percent",
		},
		{
			name:    "negative caller skip",
			mutate:  func(c *Config) { c.Logging.Caller.Skip = -1 },
			wantErr: "caller skip",
		},
		{
			name: "telemetry enabled without endpoint",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Endpoint = ""
			},
			wantErr: "telemetry endpoint",
		},
		{
			name: "insecure telemetry to remote endpoint",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Endpoint = "collector.example.com:4317"
			},
			wantErr: "insecure connections to remote",
		},
		{
			name: "telemetry sampling rate out of range",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.SamplingRate = 1.5
			},
			wantErr: "sampling_rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestIsLocalEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		want     bool
	}{
		{"localhost:4317", true},
		{"127.0.0.1:4317", true},
		{"[::1]:4317", true},
		{"[::1]", true},
		{"collector.example.com:4317", false},
		{"10.0.0.5:4317", false},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			assert.Equal(t, tt.want, isLocalEndpoint(tt.endpoint))
		})
	}
}

func TestDuration(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("not-a-duration")))
	assert.Error(t, d.UnmarshalText([]byte("-5s")))

	text, err := Duration(2 * time.Second).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2s", string(text))
}

func TestSecret(t *testing.T) {
	s := Secret("hunter2")
	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "hunter2", s.Value())
	assert.True(t, s.IsSet())

	data, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hunter2")

	var empty Secret
	assert.Equal(t, "", empty.String())
	assert.False(t, empty.IsSet())
}
