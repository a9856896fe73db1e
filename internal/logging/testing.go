// internal/logging/testing.go
package logging

import (
	"strings"
	"testing"

	"github.com/bovinemagnet/pg-console-sub010/internal/config"
	"github.com/bovinemagnet/pg-console-sub010/internal/redact"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger wraps Logger with test observation capabilities.
type TestLogger struct {
	*Logger
	observed *observer.ObservedLogs
}

// NewTestLogger creates a dispatcher for testing with full observation.
// The default config applies, with redaction enabled.
func NewTestLogger(tb testing.TB) *TestLogger {
	tb.Helper()
	return NewTestLoggerWithConfig(tb, config.NewDefaultConfig())
}

// NewTestLoggerWithConfig creates an observing dispatcher from cfg.
func NewTestLoggerWithConfig(tb testing.TB, cfg *config.Config) *TestLogger {
	tb.Helper()

	redactor, err := redact.New(cfg.Redaction)
	if err != nil {
		tb.Fatalf("failed to build redactor: %v", err)
	}

	defaultLevel, err := LevelFromString(cfg.Logging.Level)
	if err != nil {
		tb.Fatalf("invalid level %q: %v", cfg.Logging.Level, err)
	}

	levels := NewLevelManager(defaultLevel)
	if err := levels.SeedBaseLevels(cfg.Logging.Levels); err != nil {
		tb.Fatalf("failed to seed levels: %v", err)
	}

	core, observed := observer.New(TraceLevel)
	return &TestLogger{
		Logger: &Logger{
			zap:      zap.New(core).Named(cfg.Logging.Namespace),
			levels:   levels,
			redactor: redactor,
			cfg:      cfg.Logging,
			sqlCfg:   cfg.SQL,
			named:    make(map[string]*zap.Logger),
		},
		observed: observed,
	}
}

// All returns all logged entries.
func (t *TestLogger) All() []observer.LoggedEntry {
	return t.observed.All()
}

// FilterMessage returns entries matching message substring.
func (t *TestLogger) FilterMessage(msg string) *observer.ObservedLogs {
	return t.observed.FilterMessage(msg)
}

// Reset clears all logged entries.
func (t *TestLogger) Reset() {
	t.observed.TakeAll()
}

// AssertLogged verifies a log at level containing message was logged.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, msgContains string) {
	tb.Helper()
	for _, entry := range t.observed.All() {
		if entry.Level == level && strings.Contains(entry.Message, msgContains) {
			return
		}
	}
	tb.Errorf("expected log at %v containing %q, logs: %+v", level, msgContains, t.observed.All())
}

// AssertNotLogged verifies no log at level containing message was logged.
func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, msgContains string) {
	tb.Helper()
	for _, entry := range t.observed.All() {
		if entry.Level == level && strings.Contains(entry.Message, msgContains) {
			tb.Errorf("unexpected log at %v containing %q", level, msgContains)
		}
	}
}

// AssertField verifies a field with key and string value exists in a
// message.
func (t *TestLogger) AssertField(tb testing.TB, msg, key, expected string) {
	tb.Helper()
	for _, entry := range t.observed.FilterMessage(msg).All() {
		for _, field := range entry.Context {
			if field.Key == key && field.Type == zapcore.StringType && field.String == expected {
				return
			}
		}
	}
	tb.Errorf("field %q=%q not found in message %q", key, expected, msg)
}

// AssertNoSecrets verifies no raw secret material leaked into messages
// or string fields.
func (t *TestLogger) AssertNoSecrets(tb testing.TB, secrets ...string) {
	tb.Helper()
	for _, entry := range t.observed.All() {
		for _, secret := range secrets {
			if strings.Contains(entry.Message, secret) {
				tb.Errorf("secret %q leaked in message: %q", secret, entry.Message)
			}
			for _, field := range entry.Context {
				if field.Type == zapcore.StringType && strings.Contains(field.String, secret) {
					tb.Errorf("secret %q leaked in field %q: %q", secret, field.Key, field.String)
				}
			}
		}
	}
}
