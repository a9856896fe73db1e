// internal/logging/logger.go
package logging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"syscall"

	"github.com/bovinemagnet/pg-console-sub010/internal/config"
	"github.com/bovinemagnet/pg-console-sub010/internal/redact"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured log dispatcher. It wraps zap with
// per-category dynamic levels, context field merging, and redaction of
// messages and metadata before they reach the sink.
type Logger struct {
	zap      *zap.Logger
	levels   *LevelManager
	redactor *redact.Redactor
	cfg      config.LoggingConfig
	sqlCfg   config.SQLConfig

	mu    sync.RWMutex
	named map[string]*zap.Logger
}

// NewLogger creates a dispatcher from config.
// otelProvider can be nil to disable OTEL output.
func NewLogger(cfg *config.Config, redactor *redact.Redactor, otelProvider log.LoggerProvider) (*Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if redactor == nil {
		return nil, fmt.Errorf("redactor is required")
	}

	defaultLevel, err := LevelFromString(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid logging level %q: %w", cfg.Logging.Level, err)
	}

	levels := NewLevelManager(defaultLevel)
	if err := levels.SeedBaseLevels(cfg.Logging.Levels); err != nil {
		return nil, err
	}

	// The core is wide open; the LevelManager is the sole threshold so
	// per-category overrides can drop below the default level.
	core, err := newDualCore(cfg.Logging, otelProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create core: %w", err)
	}

	opts := []zap.Option{}
	if cfg.Logging.Caller.Enabled {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(cfg.Logging.Caller.Skip))
	}

	zapLogger := zap.New(core, opts...).Named(cfg.Logging.Namespace)

	if len(cfg.Logging.Fields) > 0 {
		fields := make([]zap.Field, 0, len(cfg.Logging.Fields))
		for k, v := range cfg.Logging.Fields {
			fields = append(fields, zap.String(k, v))
		}
		zapLogger = zapLogger.With(fields...)
	}

	return &Logger{
		zap:      zapLogger,
		levels:   levels,
		redactor: redactor,
		cfg:      cfg.Logging,
		sqlCfg:   cfg.SQL,
		named:    make(map[string]*zap.Logger),
	}, nil
}

// NewNop returns a dispatcher that discards everything.
func NewNop() *Logger {
	cfg := config.NewDefaultConfig()
	redactor, _ := redact.New(cfg.Redaction)
	return &Logger{
		zap:      zap.NewNop(),
		levels:   NewLevelManager(zapcore.InfoLevel),
		redactor: redactor,
		cfg:      cfg.Logging,
		sqlCfg:   cfg.SQL,
		named:    make(map[string]*zap.Logger),
	}
}

// newEncoder creates JSON or console encoder.
func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "console" {
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}

// Emit dispatches one event. The category's effective threshold is
// checked first: events below it return before any redaction or
// formatting work. The message and all string metadata pass through
// the redactor, then request-context fields are merged in without
// overwriting caller-supplied keys.
func (l *Logger) Emit(ctx context.Context, level zapcore.Level, category, msg string, fields ...zap.Field) {
	if !l.levels.Enabled(category, level) {
		return
	}

	msg = l.redactor.Redact(msg)
	if l.cfg.Format == "console" {
		// Flat shape: category and message concatenated, context
		// carried out-of-band by the named logger.
		msg = "[" + category + "] " + msg
	}

	fields = l.redactFields(fields)
	fields = mergeContextFields(ctx, fields)

	l.category(category).Log(level, msg, fields...)
}

// Leveled convenience wrappers, all routed through Emit.

func (l *Logger) Trace(ctx context.Context, category, msg string, fields ...zap.Field) {
	l.Emit(ctx, TraceLevel, category, msg, fields...)
}

func (l *Logger) Debug(ctx context.Context, category, msg string, fields ...zap.Field) {
	l.Emit(ctx, zapcore.DebugLevel, category, msg, fields...)
}

func (l *Logger) Info(ctx context.Context, category, msg string, fields ...zap.Field) {
	l.Emit(ctx, zapcore.InfoLevel, category, msg, fields...)
}

func (l *Logger) Warn(ctx context.Context, category, msg string, fields ...zap.Field) {
	l.Emit(ctx, zapcore.WarnLevel, category, msg, fields...)
}

func (l *Logger) Error(ctx context.Context, category, msg string, fields ...zap.Field) {
	l.Emit(ctx, zapcore.ErrorLevel, category, msg, fields...)
}

// category returns the named sub-logger "<namespace>.<category>",
// building it once per category.
func (l *Logger) category(category string) *zap.Logger {
	l.mu.RLock()
	sub, ok := l.named[category]
	l.mu.RUnlock()
	if ok {
		return sub
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if sub, ok = l.named[category]; ok {
		return sub
	}
	sub = l.zap.Named(category)
	l.named[category] = sub
	return sub
}

// redactFields redacts string and error field values. Sensitive keys
// are replaced wholesale; other values pass through the text pipeline
// so embedded secrets (connection strings, tokens) never reach the
// sink either way.
func (l *Logger) redactFields(fields []zap.Field) []zap.Field {
	for i, f := range fields {
		switch f.Type {
		case zapcore.StringType:
			redacted := l.redactor.RedactValue(f.Key, f.String)
			if redacted == f.String {
				redacted = l.redactor.Redact(f.String)
			}
			fields[i].String = redacted
		case zapcore.ErrorType:
			if err, ok := f.Interface.(error); ok && err != nil {
				fields[i] = zap.String(f.Key, l.redactor.Redact(err.Error()))
			}
		}
	}
	return fields
}

// mergeContextFields appends context-derived fields that the caller
// did not supply explicitly. Explicit caller metadata wins on conflict.
func mergeContextFields(ctx context.Context, fields []zap.Field) []zap.Field {
	ctxFields := ContextFields(ctx)
	if len(ctxFields) == 0 {
		return fields
	}

	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		seen[f.Key] = struct{}{}
	}
	for _, f := range ctxFields {
		if _, ok := seen[f.Key]; ok {
			continue
		}
		fields = append(fields, f)
	}
	return fields
}

// Levels returns the dynamic level manager.
func (l *Logger) Levels() *LevelManager {
	return l.levels
}

// Redactor returns the redaction engine backing this dispatcher.
func (l *Logger) Redactor() *redact.Redactor {
	return l.redactor
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	err := l.zap.Sync()
	// Ignore sync errors on stdout/stderr (common on Linux)
	if err != nil && isStdoutSyncError(err) {
		return nil
	}
	return err
}

// Underlying returns the underlying zap.Logger.
// Useful when integrating with libraries that require a *zap.Logger.
func (l *Logger) Underlying() *zap.Logger {
	return l.zap
}

// isStdoutSyncError checks if error is harmless stdout/stderr sync error.
// On Linux, syncing stdout/stderr returns EINVAL or ENOTTY which are safe to ignore.
func isStdoutSyncError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EINVAL || errno == syscall.ENOTTY
	}
	return false
}
