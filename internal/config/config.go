// Package config provides configuration loading for pgconsole.
//
// Configuration is loaded from a YAML file and overridden by environment
// variables. All observability knobs live here: output format, redaction
// rules, slow-operation thresholds, resource sampling, and SQL logging.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the complete pgconsole configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Request   RequestConfig   `koanf:"request"`
	Logging   LoggingConfig   `koanf:"logging"`
	Redaction RedactionConfig `koanf:"redaction"`
	SQL       SQLConfig       `koanf:"sql"`
	Sampler   SamplerConfig   `koanf:"sampler"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	// AdminToken, when set, is required as a bearer token on the
	// /api/v1 admin endpoints. Empty leaves the admin API open.
	AdminToken Secret `koanf:"admin_token"`
}

// RequestConfig controls the request-scope middleware.
type RequestConfig struct {
	// CorrelationHeader is the inbound header consulted for an existing
	// correlation id. The resolved id is always echoed back under the
	// same header name.
	CorrelationHeader string   `koanf:"correlation_header"`
	SlowThreshold     Duration `koanf:"slow_threshold"`
}

// LoggingConfig controls the structured log dispatcher.
type LoggingConfig struct {
	// Level is the default threshold for categories with no override.
	// Accepts zap level names plus "trace".
	Level     string            `koanf:"level"`
	Format    string            `koanf:"format"` // "json" (structured) or "console" (flat)
	Namespace string            `koanf:"namespace"`
	Output    OutputConfig      `koanf:"output"`
	Caller    CallerConfig      `koanf:"caller"`
	Fields    map[string]string `koanf:"fields"`
	// Levels seeds per-category base levels, e.g. {"SQL": "debug"}.
	Levels        map[string]string `koanf:"levels"`
	SlowOperation Duration          `koanf:"slow_operation"`
}

// OutputConfig controls where logs are written.
type OutputConfig struct {
	Stdout bool `koanf:"stdout"`
	OTEL   bool `koanf:"otel"`
}

// CallerConfig controls caller information in logs.
type CallerConfig struct {
	Enabled bool `koanf:"enabled"`
	Skip    int  `koanf:"skip"`
}

// RedactionConfig controls sensitive data redaction.
type RedactionConfig struct {
	Enabled bool `koanf:"enabled"`
	// ConnectionStrings gates the password= connection-string stage.
	ConnectionStrings bool `koanf:"connection_strings"`
	// MaskPII gates the email/phone/SSN/credit-card stage.
	MaskPII bool `koanf:"mask_pii"`
	// Replacement is the token substituted for redacted values.
	Replacement string `koanf:"replacement"`
	// SensitiveKeys are extra key substrings matched case-insensitively
	// on top of the built-in set.
	SensitiveKeys []string `koanf:"sensitive_keys"`
}

// SQLConfig controls SQL statement logging.
type SQLConfig struct {
	Enabled        bool     `koanf:"enabled"`
	SlowThreshold  Duration `koanf:"slow_threshold"`
	MaxQueryLength int      `koanf:"max_query_length"`
}

// SamplerConfig controls periodic resource sampling.
type SamplerConfig struct {
	Enabled         bool     `koanf:"enabled"`
	Interval        Duration `koanf:"interval"`
	HeapWarnPercent float64  `koanf:"heap_warn_percent"`
	HeapInfoPercent float64  `koanf:"heap_info_percent"`
	GoroutineWarn   int      `koanf:"goroutine_warn"`
}

// TelemetryConfig controls OTLP export of traces and logs.
// Disabled by default for users without a collector.
type TelemetryConfig struct {
	Enabled        bool   `koanf:"enabled"`
	Endpoint       string `koanf:"endpoint"`
	Protocol       string `koanf:"protocol"` // "grpc" or "http/protobuf"
	ServiceName    string `koanf:"service_name"`
	ServiceVersion string `koanf:"service_version"`
	Insecure       bool   `koanf:"insecure"` // Use insecure connection (no TLS)
	// TLSSkipVerify disables certificate verification for internal CAs.
	TLSSkipVerify   bool     `koanf:"tls_skip_verify"`
	SamplingRate    float64  `koanf:"sampling_rate"` // 0.0-1.0
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// NewDefaultConfig returns config with production-ready defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            9285,
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Request: RequestConfig{
			CorrelationHeader: "X-Correlation-ID",
			SlowThreshold:     Duration(3 * time.Second),
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "json",
			Namespace: "pgconsole",
			Output: OutputConfig{
				Stdout: true,
				OTEL:   false,
			},
			Caller: CallerConfig{
				Enabled: true,
				Skip:    1,
			},
			Fields: map[string]string{
				"service": "pgconsole",
			},
			SlowOperation: Duration(time.Second),
		},
		Redaction: RedactionConfig{
			Enabled:           true,
			ConnectionStrings: true,
			MaskPII:           false,
			Replacement:       "***",
			SensitiveKeys:     nil,
		},
		SQL: SQLConfig{
			Enabled:        true,
			SlowThreshold:  Duration(500 * time.Millisecond),
			MaxQueryLength: 2000,
		},
		Sampler: SamplerConfig{
			Enabled:         true,
			Interval:        Duration(60 * time.Second),
			HeapWarnPercent: 90,
			HeapInfoPercent: 75,
			GoroutineWarn:   500,
		},
		Telemetry: TelemetryConfig{
			Enabled:         false,
			Endpoint:        "localhost:4317",
			Protocol:        "grpc",
			ServiceName:     "pgconsole",
			ServiceVersion:  "0.1.0",
			Insecure:        true, // Insecure by default for local dev; set false for production TLS
			SamplingRate:    1.0,
			ShutdownTimeout: Duration(5 * time.Second),
		},
	}
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	if c.Request.CorrelationHeader == "" {
		return fmt.Errorf("correlation header cannot be empty")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}
	if c.Logging.Namespace == "" {
		return fmt.Errorf("logging namespace cannot be empty")
	}
	if !c.Logging.Output.Stdout && !c.Logging.Output.OTEL {
		return fmt.Errorf("at least one output must be enabled (stdout or otel)")
	}
	if c.Logging.Caller.Enabled && c.Logging.Caller.Skip < 0 {
		return fmt.Errorf("caller skip must be >= 0, got %d", c.Logging.Caller.Skip)
	}
	for k, v := range c.Logging.Fields {
		if k == "" {
			return fmt.Errorf("field key cannot be empty")
		}
		if v == "" {
			return fmt.Errorf("field %q has empty value", k)
		}
	}
	if c.Redaction.Enabled && c.Redaction.Replacement == "" {
		return fmt.Errorf("redaction replacement cannot be empty when redaction is enabled")
	}
	if c.SQL.Enabled && c.SQL.MaxQueryLength < 1 {
		return fmt.Errorf("sql max query length must be >= 1, got %d", c.SQL.MaxQueryLength)
	}
	if c.Sampler.Enabled && c.Sampler.Interval.Duration() <= 0 {
		return fmt.Errorf("sampler interval must be > 0 when sampling enabled")
	}
	if c.Sampler.HeapWarnPercent < c.Sampler.HeapInfoPercent {
		return fmt.Errorf("heap warn percent (%v) must be >= heap info percent (%v)",
			c.Sampler.HeapWarnPercent, c.Sampler.HeapInfoPercent)
	}
	return c.Telemetry.Validate()
}

// Validate checks the telemetry section. A disabled section is always
// valid.
func (t *TelemetryConfig) Validate() error {
	if !t.Enabled {
		return nil
	}
	if t.Endpoint == "" {
		return fmt.Errorf("telemetry endpoint is required when telemetry is enabled")
	}
	if t.Protocol != "grpc" && t.Protocol != "http/protobuf" {
		return fmt.Errorf("telemetry protocol must be 'grpc' or 'http/protobuf', got %q", t.Protocol)
	}
	if t.ServiceName == "" {
		return fmt.Errorf("telemetry service_name is required when telemetry is enabled")
	}
	// Plaintext export is confined to local collectors.
	if t.Insecure && !isLocalEndpoint(t.Endpoint) {
		return fmt.Errorf("insecure connections to remote endpoints are not allowed; set insecure=false for TLS or use a local endpoint (localhost/127.0.0.1)")
	}
	if t.SamplingRate < 0 || t.SamplingRate > 1 {
		return fmt.Errorf("telemetry sampling_rate must be between 0 and 1, got %f", t.SamplingRate)
	}
	if t.ShutdownTimeout.Duration() <= 0 {
		return fmt.Errorf("telemetry shutdown_timeout must be positive")
	}
	return nil
}

// isLocalEndpoint reports whether endpoint targets a loopback host.
func isLocalEndpoint(endpoint string) bool {
	host := endpoint
	if strings.HasPrefix(host, "[") {
		// Bracketed IPv6: [::1]:4317
		if idx := strings.Index(host, "]:"); idx != -1 {
			host = host[1:idx]
		} else if strings.HasSuffix(host, "]") {
			host = host[1 : len(host)-1]
		}
	} else if strings.Count(host, ":") == 1 {
		if idx := strings.LastIndex(host, ":"); idx != -1 {
			host = host[:idx]
		}
	}
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
