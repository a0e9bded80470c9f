// Package http serves the engram operations as a JSON API.
package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/engramd/internal/services"
)

// Server provides HTTP endpoints over a service registry.
type Server struct {
	echo    *echo.Echo
	reg     services.Registry
	logger  *zap.Logger
	config  *Config
	metrics *HTTPMetrics
	prom    *promMetrics
	limiter *ipLimiter
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// RPS and Burst bound requests per client IP on /api/v1. Zero RPS
	// disables the limit.
	RPS   float64
	Burst int
}

// Option configures optional server dependencies.
type Option func(*options)

type options struct {
	meterProvider metric.MeterProvider
	registry      *prometheus.Registry
}

// WithMeterProvider records OpenTelemetry request metrics on mp instead of
// the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithPrometheusRegistry registers request collectors on r and serves it on
// /metrics. Defaults to a fresh registry with Go and process collectors.
func WithPrometheusRegistry(r *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// NewServer creates a new HTTP server.
func NewServer(reg services.Registry, logger *zap.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if reg == nil || reg.Engrams() == nil {
		return nil, fmt.Errorf("service registry with an engram service is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9191,
		}
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
		o.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		reg:     reg,
		logger:  logger,
		config:  cfg,
		metrics: NewHTTPMetrics(o.meterProvider, logger),
		prom:    newPromMetrics(o.registry),
		limiter: newIPLimiter(cfg.RPS, cfg.Burst),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: newRequestID}))
	e.Use(s.requestContext())
	e.Use(s.accessLog())
	e.Use(s.metrics.MetricsMiddleware())
	e.Use(s.prom.middleware())

	s.registerRoutes(o.registry)
	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes(registry *prometheus.Registry) {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	v1 := s.echo.Group("/api/v1", s.rateLimit())
	v1.GET("/status", s.handleStatus)
	v1.POST("/inject", s.handleInject)
	v1.POST("/learn", s.handleLearn)
	v1.POST("/promote", s.handlePromote)
	v1.POST("/forget", s.handleForget)
	v1.POST("/feedback", s.handleFeedback)
	v1.POST("/recall", s.handleRecall)
	v1.POST("/scrub", s.handleScrub)
}

// Echo exposes the underlying router.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Start listens until Shutdown. http.ErrServerClosed is not an error.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.Addr()))
	if err := s.echo.Start(s.Addr()); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
