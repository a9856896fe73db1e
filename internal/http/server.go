// Package http provides the HTTP surface for pgconsole: the
// request-scope middleware and the admin API for runtime log-level
// control.
package http

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/bovinemagnet/pg-console-sub010/internal/config"
	"github.com/bovinemagnet/pg-console-sub010/internal/logging"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server provides HTTP endpoints for pgconsole.
type Server struct {
	echo   *echo.Echo
	logger *logging.Logger
	cfg    *config.Config
}

// NewServer creates the HTTP server with the request-scope middleware
// installed. principal may be nil when no security collaborator is
// wired; all requests are then attributed to "anonymous".
func NewServer(logger *logging.Logger, cfg *config.Config, principal PrincipalFunc) (*Server, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Recover sits inside the request scope so a handler panic reaches
	// the scope teardown as an error, not a panic.
	e.Use(RequestScope(logger, cfg.Request, principal))
	e.Use(middleware.Recover())

	s := &Server{
		echo:   e,
		logger: logger,
		cfg:    cfg,
	}
	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1", s.requireAdminToken)
	v1.GET("/logging/levels", s.handleGetLevels)
	v1.PUT("/logging/level", s.handleSetLevel)
	v1.DELETE("/logging/level/:category", s.handleRevertLevel)
	v1.PUT("/logging/preset", s.handleApplyPreset)

	// Instance-scoped status; the middleware resolves :name into the
	// request context.
	s.echo.GET("/api/instance/:name/status", s.handleInstanceStatus)
}

// requireAdminToken guards the admin API with the configured bearer
// token. With no token configured the API stays open.
func (s *Server) requireAdminToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := s.cfg.Server.AdminToken
		if !token.IsSet() {
			return next(c)
		}

		const prefix = "Bearer "
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		presented, ok := strings.CutPrefix(header, prefix)
		if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token.Value())) != 1 {
			ctx := c.Request().Context()
			s.logger.LogSecurityEvent(ctx, "admin token rejected", requestUser(ctx), false)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing admin token")
		}
		return next(c)
	}
}

// HealthResponse is the response body for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// LevelsResponse is the response body for GET /api/v1/logging/levels.
type LevelsResponse struct {
	Default    string                `json:"default"`
	Categories []logging.LevelStatus `json:"categories"`
}

func (s *Server) handleGetLevels(c echo.Context) error {
	levels := s.logger.Levels()
	return c.JSON(http.StatusOK, LevelsResponse{
		Default:    levels.DefaultLevel().String(),
		Categories: levels.Snapshot(),
	})
}

// SetLevelRequest is the request body for PUT /api/v1/logging/level.
// A non-zero TTL makes the override temporary.
type SetLevelRequest struct {
	Category string          `json:"category"`
	Level    string          `json:"level"`
	TTL      config.Duration `json:"ttl,omitempty"`
}

func (s *Server) handleSetLevel(c echo.Context) error {
	var req SetLevelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	levels := s.logger.Levels()
	var err error
	if req.TTL.Duration() > 0 {
		err = levels.SetTemporaryLevel(req.Category, req.Level, req.TTL.Duration())
	} else {
		err = levels.SetLevel(req.Category, req.Level)
	}

	ctx := c.Request().Context()
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	s.logger.LogAudit(ctx, requestUser(ctx), "set-level", req.Category, outcome)

	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleRevertLevel(c echo.Context) error {
	category := c.Param("category")
	s.logger.Levels().Revert(category)

	ctx := c.Request().Context()
	s.logger.LogAudit(ctx, requestUser(ctx), "revert-level", category, "success")
	return c.NoContent(http.StatusNoContent)
}

// PresetRequest is the request body for PUT /api/v1/logging/preset.
// An empty category applies the preset as the default level.
type PresetRequest struct {
	Category string `json:"category,omitempty"`
	Preset   string `json:"preset"`
}

func (s *Server) handleApplyPreset(c echo.Context) error {
	var req PresetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	err := s.logger.Levels().ApplyPreset(req.Category, req.Preset)

	ctx := c.Request().Context()
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	s.logger.LogAudit(ctx, requestUser(ctx), "apply-preset", req.Preset, outcome)

	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// InstanceStatusResponse is the response body for
// GET /api/instance/:name/status.
type InstanceStatusResponse struct {
	Instance      string `json:"instance"`
	CorrelationID string `json:"correlation_id"`
}

func (s *Server) handleInstanceStatus(c echo.Context) error {
	rc := logging.RequestFromContext(c.Request().Context())
	if rc == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "request context missing")
	}
	return c.JSON(http.StatusOK, InstanceStatusResponse{
		Instance:      rc.Instance,
		CorrelationID: rc.CorrelationID,
	})
}

// requestUser extracts the acting user for audit entries.
func requestUser(ctx context.Context) string {
	if rc := logging.RequestFromContext(ctx); rc != nil && rc.User != "" {
		return rc.User
	}
	return anonymousUser
}

// Start begins listening. Blocks until the server stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}

// Echo exposes the underlying echo instance for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
