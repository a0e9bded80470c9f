package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/engramd/internal/telemetry"
)

func TestHTTPMetrics_MetricsMiddleware(t *testing.T) {
	tt := telemetry.NewTestTelemetry()
	m := NewHTTPMetrics(tt.MeterProvider(), zap.NewNop())

	e := echo.New()
	e.Use(m.MetricsMiddleware())
	e.GET("/ok", func(c echo.Context) error {
		return c.String(http.StatusOK, "hello")
	})
	e.POST("/fail", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "nope")
	})

	for _, r := range []struct{ method, path string }{
		{http.MethodGet, "/ok"},
		{http.MethodGet, "/ok"},
		{http.MethodPost, "/fail"},
	} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(r.method, r.path, nil))
	}

	assert.Equal(t, int64(3), tt.CounterTotal(t, "engramd.http.requests_total"))
	assert.Equal(t, int64(2), tt.CounterTotal(t, "engramd.http.requests_total",
		attribute.String("endpoint", "/ok"), attribute.Int("status", http.StatusOK)))
	assert.Equal(t, int64(1), tt.CounterTotal(t, "engramd.http.requests_total",
		attribute.String("method", http.MethodPost), attribute.Int("status", http.StatusBadRequest)))
	assert.Zero(t, tt.CounterTotal(t, "engramd.http.active_requests"))
}

func TestPromMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, engramReg := newTestServer(t, nil, nil)

	srv, err := NewServer(engramReg, zap.NewNop(), &Config{Host: "localhost", Port: 9191, RPS: 1, Burst: 1},
		WithPrometheusRegistry(reg))
	require.NoError(t, err)

	do(t, srv, http.MethodGet, "/api/v1/status", nil)
	do(t, srv, http.MethodGet, "/api/v1/status", nil)

	assert.Equal(t, float64(1), testutil.ToFloat64(srv.prom.requests.WithLabelValues(http.MethodGet, "/api/v1/status", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(srv.prom.requests.WithLabelValues(http.MethodGet, "/api/v1/status", "429")))
	assert.Equal(t, float64(1), testutil.ToFloat64(srv.prom.rateLimited))

	rec := do(t, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `engramd_http_requests_total{endpoint="/api/v1/status",method="GET",status="200"} 1`), body)
	assert.Contains(t, body, "engramd_http_rate_limited_total 1")
}

func TestResponseStatus(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	assert.Equal(t, http.StatusTeapot, responseStatus(c, echo.NewHTTPError(http.StatusTeapot)))
	assert.Equal(t, http.StatusInternalServerError, responseStatus(c, assert.AnError))
	assert.Equal(t, http.StatusOK, responseStatus(c, nil))
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/", normalizePath(""))
	assert.Equal(t, "/api/v1/inject", normalizePath("/api/v1/inject"))
}
