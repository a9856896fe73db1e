// internal/logging/context.go
package logging

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Field keys merged from the request context into every event.
const (
	FieldCorrelationID = "correlation_id"
	FieldUser          = "user"
	FieldInstance      = "instance"
)

// RequestContext carries per-request diagnostic fields. It is created
// once at request entry, populated by the request-scope middleware, and
// read-only from then on. Because it travels on context.Context it is
// visible only to work derived from its own request; concurrent
// requests never see each other's values.
type RequestContext struct {
	CorrelationID string
	User          string
	Instance      string
	ClientIP      string
	Method        string
	Path          string
	Start         time.Time
}

type requestCtxKey struct{}

// WithRequest attaches a request context.
func WithRequest(ctx context.Context, rc *RequestContext) context.Context {
	if rc == nil {
		return ctx
	}
	return context.WithValue(ctx, requestCtxKey{}, rc)
}

// RequestFromContext extracts the request context, or nil if absent.
func RequestFromContext(ctx context.Context) *RequestContext {
	if rc, ok := ctx.Value(requestCtxKey{}).(*RequestContext); ok {
		return rc
	}
	return nil
}

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	// Trace correlation (from OpenTelemetry)
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}

	if rc := RequestFromContext(ctx); rc != nil {
		if rc.CorrelationID != "" {
			fields = append(fields, zap.String(FieldCorrelationID, rc.CorrelationID))
		}
		if rc.User != "" {
			fields = append(fields, zap.String(FieldUser, rc.User))
		}
		if rc.Instance != "" {
			fields = append(fields, zap.String(FieldInstance, rc.Instance))
		}
	}

	return fields
}

// loggerCtxKey is the context key for Logger.
type loggerCtxKey struct{}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves logger from context.
// Returns a nop logger if not found.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return NewNop()
}
