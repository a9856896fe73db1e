// internal/logging/ops.go
package logging

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Well-known categories.
const (
	CategorySQL         = "SQL"
	CategorySecurity    = "SECURITY"
	CategoryAudit       = "AUDIT"
	CategoryRequest     = "REQUEST"
	CategoryResource    = "RESOURCE"
	CategoryPerformance = "PERFORMANCE"
)

// queryPreviewLen limits the redacted query preview embedded in
// slow-query messages.
const queryPreviewLen = 100

// LogOperation records a completed operation. INFO normally, WARN when
// duration exceeds the slow-operation threshold, ERROR when the
// operation failed. Failure wins over slowness.
func (l *Logger) LogOperation(ctx context.Context, category, name string, duration time.Duration, success bool) {
	slow := l.cfg.SlowOperation.Duration() > 0 && duration > l.cfg.SlowOperation.Duration()

	level := zapcore.InfoLevel
	msg := "operation completed"
	switch {
	case !success:
		level = zapcore.ErrorLevel
		msg = "operation failed"
	case slow:
		level = zapcore.WarnLevel
		msg = "slow operation"
	}

	l.Emit(ctx, level, category, msg,
		zap.String("operation", name),
		zap.Int64("duration_ms", duration.Milliseconds()),
		zap.Bool("success", success),
	)
}

// LogQuery records a SQL statement execution. No-op when SQL logging is
// disabled. The statement is truncated to the configured maximum before
// redaction; slow queries escalate to WARN and carry a short redacted
// preview in the message.
func (l *Logger) LogQuery(ctx context.Context, sql string, duration time.Duration, rowCount int64) {
	if !l.sqlCfg.Enabled {
		return
	}

	truncated := truncate(sql, l.sqlCfg.MaxQueryLength)
	redacted := l.redactor.Redact(truncated)

	level := zapcore.DebugLevel
	msg := "query executed"
	if l.sqlCfg.SlowThreshold.Duration() > 0 && duration > l.sqlCfg.SlowThreshold.Duration() {
		level = zapcore.WarnLevel
		msg = "slow query: " + truncate(redacted, queryPreviewLen)
	}

	fields := []zap.Field{
		zap.String("query", redacted),
		zap.Int64("duration_ms", duration.Milliseconds()),
	}
	if rowCount < 0 {
		fields = append(fields, zap.String("rows", "unknown"))
	} else {
		fields = append(fields, zap.Int64("rows", rowCount))
	}

	l.Emit(ctx, level, CategorySQL, msg, fields...)
}

// LogSecurityEvent records an authentication or authorization event.
// INFO on success, WARN on failure.
func (l *Logger) LogSecurityEvent(ctx context.Context, event, user string, success bool, fields ...zap.Field) {
	level := zapcore.InfoLevel
	if !success {
		level = zapcore.WarnLevel
	}
	fields = append(fields,
		zap.String("event", event),
		zap.String("user", user),
		zap.Bool("success", success),
	)
	l.Emit(ctx, level, CategorySecurity, event, fields...)
}

// LogAudit records an audit trail entry. Audit events are always INFO
// and always carry actor, action, target, outcome, and time.
func (l *Logger) LogAudit(ctx context.Context, actor, action, target, outcome string) {
	l.Emit(ctx, zapcore.InfoLevel, CategoryAudit, "audit event",
		zap.String("actor", actor),
		zap.String("action", action),
		zap.String("target", target),
		zap.String("outcome", outcome),
		zap.Time("occurred_at", time.Now()),
	)
}

// truncate shortens s to max bytes, appending a truncation marker.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "... [truncated]"
}
