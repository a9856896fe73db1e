// internal/http/middleware.go
package http

import (
	"strings"
	"time"

	"github.com/bovinemagnet/pg-console-sub010/internal/config"
	"github.com/bovinemagnet/pg-console-sub010/internal/logging"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// PrincipalFunc resolves the authenticated principal for a request.
// Returning ok=false means no security context is present and the user
// is recorded as "anonymous".
type PrincipalFunc func(c echo.Context) (string, bool)

// anonymousUser is recorded when no principal is available.
const anonymousUser = "anonymous"

// unknownClient is recorded when no client address can be resolved.
const unknownClient = "unknown"

// defaultInstance is the monitored-database identifier used when the
// request names none.
const defaultInstance = "default"

// instanceResolver attempts to resolve the target instance from one
// source. Resolvers run in order; the first hit wins.
type instanceResolver func(c echo.Context) (string, bool)

var instanceResolvers = []instanceResolver{
	resolveInstanceQuery,
	resolveInstancePath,
}

// RequestScope establishes the per-request diagnostic context.
//
// On entry it resolves the correlation id (inbound header or a fresh
// UUID, always echoed back on the response), principal, target
// instance, and client address, and attaches them to the request
// context. Method and path are set unconditionally; every optional
// field that cannot be derived falls back to its default rather than
// failing the request.
//
// On exit — every exit, including handler errors and panics — it emits
// the request-completion event, escalating to a warning with the
// elapsed duration when the request exceeded the slow-request
// threshold.
func RequestScope(logger *logging.Logger, cfg config.RequestConfig, principal PrincipalFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			rc := &logging.RequestContext{
				Method: req.Method,
				Path:   req.URL.Path,
				Start:  time.Now(),
			}

			rc.CorrelationID = strings.TrimSpace(req.Header.Get(cfg.CorrelationHeader))
			if rc.CorrelationID == "" {
				rc.CorrelationID = uuid.NewString()
			}
			c.Response().Header().Set(cfg.CorrelationHeader, rc.CorrelationID)

			rc.User = anonymousUser
			if principal != nil {
				if name, ok := principal(c); ok && name != "" {
					rc.User = name
				}
			}

			rc.Instance = resolveInstance(c)
			rc.ClientIP = resolveClientIP(c)

			ctx := logging.WithRequest(req.Context(), rc)
			c.SetRequest(req.WithContext(ctx))

			// Teardown runs on all exit paths, panics included. The
			// request context dies with the request; nothing survives
			// into the next one.
			var handlerErr error
			defer func() {
				duration := time.Since(rc.Start)
				fields := []zap.Field{
					zap.String("method", rc.Method),
					zap.String("path", rc.Path),
					zap.String("client_ip", rc.ClientIP),
					zap.Int("status", c.Response().Status),
					zap.Int64("duration_ms", duration.Milliseconds()),
				}
				if handlerErr != nil {
					fields = append(fields, zap.Error(handlerErr))
				}

				slow := cfg.SlowThreshold.Duration() > 0 && duration > cfg.SlowThreshold.Duration()
				switch {
				case slow:
					logger.Warn(ctx, logging.CategoryRequest, "slow request", fields...)
				case handlerErr != nil:
					logger.Warn(ctx, logging.CategoryRequest, "request failed", fields...)
				default:
					logger.Info(ctx, logging.CategoryRequest, "request completed", fields...)
				}
			}()

			handlerErr = next(c)
			return handlerErr
		}
	}
}

// resolveInstance walks the resolver chain, falling back to the
// default instance.
func resolveInstance(c echo.Context) string {
	for _, resolve := range instanceResolvers {
		if name, ok := resolve(c); ok {
			return name
		}
	}
	return defaultInstance
}

// resolveInstanceQuery resolves the instance from the ?instance query
// parameter.
func resolveInstanceQuery(c echo.Context) (string, bool) {
	name := c.QueryParam("instance")
	return name, name != ""
}

// resolveInstancePath resolves the instance from an
// /api/instance/{name}/... path, taking the segment immediately after
// the literal "instance" segment.
func resolveInstancePath(c echo.Context) (string, bool) {
	segments := strings.Split(strings.Trim(c.Request().URL.Path, "/"), "/")
	for i, seg := range segments {
		if seg == "instance" && i+1 < len(segments) && segments[i+1] != "" {
			return segments[i+1], true
		}
	}
	return "", false
}

// resolveClientIP resolves the client address: first entry of
// X-Forwarded-For, then X-Real-IP, then unknown.
func resolveClientIP(c echo.Context) string {
	if xff := c.Request().Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(c.Request().Header.Get("X-Real-IP")); real != "" {
		return real
	}
	return unknownClient
}
