package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bovinemagnet/pg-console-sub010/internal/config"
	"github.com/bovinemagnet/pg-console-sub010/internal/logging"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func newScopedEcho(t *testing.T, principal PrincipalFunc) (*echo.Echo, *logging.TestLogger) {
	t.Helper()
	tl := logging.NewTestLogger(t)
	cfg := config.NewDefaultConfig()

	e := echo.New()
	e.Use(RequestScope(tl.Logger, cfg.Request, principal))
	return e, tl
}

func TestRequestScope_GeneratesCorrelationID(t *testing.T) {
	e, _ := newScopedEcho(t, nil)
	var seen string
	e.GET("/x", func(c echo.Context) error {
		rc := logging.RequestFromContext(c.Request().Context())
		require.NotNil(t, rc)
		seen = rc.CorrelationID
		return c.NoContent(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	require.NotEmpty(t, seen)
	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get("X-Correlation-ID"))
}

func TestRequestScope_PropagatesInboundCorrelationID(t *testing.T) {
	e, tl := newScopedEcho(t, nil)
	e.GET("/x", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Correlation-ID", "inbound-42")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, "inbound-42", rec.Header().Get("X-Correlation-ID"))
	tl.AssertField(t, "request completed", logging.FieldCorrelationID, "inbound-42")
}

func TestRequestScope_Principal(t *testing.T) {
	tests := []struct {
		name      string
		principal PrincipalFunc
		want      string
	}{
		{"nil resolver", nil, anonymousUser},
		{"resolver miss", func(echo.Context) (string, bool) { return "", false }, anonymousUser},
		{"resolver hit", func(echo.Context) (string, bool) { return "alice", true }, "alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, tl := newScopedEcho(t, tt.principal)
			e.GET("/x", func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})

			e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
			tl.AssertField(t, "request completed", logging.FieldUser, tt.want)
		})
	}
}

func TestRequestScope_InstanceResolution(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"query param", "/anything?instance=replica1", "replica1"},
		{"path segment", "/api/instance/primary/status", "primary"},
		{"query wins over path", "/api/instance/primary/status?instance=replica1", "replica1"},
		{"fallback", "/anything", defaultInstance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, tl := newScopedEcho(t, nil)
			e.Any("/*", func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})

			e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.target, nil))
			tl.AssertField(t, "request completed", logging.FieldInstance, tt.want)
		})
	}
}

func TestRequestScope_ClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "10.1.2.3, 172.16.0.1"}, "10.1.2.3"},
		{"real ip", map[string]string{"X-Real-IP": "10.9.8.7"}, "10.9.8.7"},
		{"forwarded wins", map[string]string{"X-Forwarded-For": "10.1.2.3", "X-Real-IP": "10.9.8.7"}, "10.1.2.3"},
		{"none", nil, unknownClient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, tl := newScopedEcho(t, nil)
			e.GET("/x", func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			e.ServeHTTP(httptest.NewRecorder(), req)

			found := false
			for _, entry := range tl.FilterMessage("request completed").All() {
				for _, f := range entry.Context {
					if f.Key == "client_ip" {
						assert.Equal(t, tt.want, f.String)
						found = true
					}
				}
			}
			assert.True(t, found, "client_ip field not logged")
		})
	}
}

func TestRequestScope_HandlerErrorLogsFailure(t *testing.T) {
	e, tl := newScopedEcho(t, nil)
	e.GET("/boom", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "nope")
	})

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	tl.AssertLogged(t, zapcore.WarnLevel, "request failed")
}

func TestRequestScope_SlowRequestWarns(t *testing.T) {
	tl := logging.NewTestLogger(t)
	cfg := config.NewDefaultConfig()
	cfg.Request.SlowThreshold = config.Duration(time.Millisecond)

	e := echo.New()
	e.Use(RequestScope(tl.Logger, cfg.Request, nil))
	e.GET("/slow", func(c echo.Context) error {
		time.Sleep(20 * time.Millisecond)
		return c.NoContent(http.StatusOK)
	})

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/slow", nil))
	tl.AssertLogged(t, zapcore.WarnLevel, "slow request")
	tl.AssertNotLogged(t, zapcore.InfoLevel, "request completed")
}

func TestResolveInstancePath(t *testing.T) {
	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"/api/instance/primary/status", "primary", true},
		{"/api/instance/primary", "primary", true},
		{"/api/instance/", "", false},
		{"/api/instance", "", false},
		{"/api/other/primary", "", false},
	}

	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			c := e.NewContext(req, httptest.NewRecorder())
			got, ok := resolveInstancePath(c)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
