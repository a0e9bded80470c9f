package mcp

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/engramd/internal/logging"
	"github.com/fyrsmithlabs/engramd/internal/services"
)

// Server exposes a services.Registry as MCP tools, resources and prompts.
type Server struct {
	mcp     *mcp.Server
	reg     services.Registry
	metrics *Metrics
	value   *ValueMetrics
	tracer  trace.Tracer
	logger  *logging.Logger

	sessionID atomic.Value
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "engramd")
	Name string

	// Version is the server version (default: the registry version)
	Version string

	// Logger for structured logging
	Logger *logging.Logger

	// MeterProvider receives tool and value metrics. Nil uses the global provider.
	MeterProvider metric.MeterProvider

	// TracerProvider records a span per tool call. Nil uses the global provider.
	TracerProvider trace.TracerProvider
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:   "engramd",
		Logger: logging.NewNop(),
	}
}

// NewServer creates a new MCP server over the given registry.
func NewServer(cfg *Config, reg services.Registry) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if reg == nil {
		return nil, fmt.Errorf("service registry is required")
	}
	if reg.Engrams() == nil {
		return nil, fmt.Errorf("engram service is required")
	}
	if reg.Notes() == nil {
		return nil, fmt.Errorf("notes store is required")
	}
	if reg.Packs() == nil {
		return nil, fmt.Errorf("pack manager is required")
	}
	if cfg.Name == "" {
		cfg.Name = "engramd"
	}
	if cfg.Version == "" {
		cfg.Version = reg.Version()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		},
		nil,
	)

	s := &Server{
		mcp:     mcpServer,
		reg:     reg,
		metrics: NewMetrics(cfg.MeterProvider, cfg.Logger.Underlying()),
		value:   NewValueMetrics(cfg.MeterProvider, cfg.Logger.Underlying()),
		tracer:  cfg.TracerProvider.Tracer(instrumentationName),
		logger:  cfg.Logger,
	}

	s.registerTools()
	s.registerResources()
	s.registerPrompts()
	return s, nil
}

// Run starts the MCP server on the stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, &mcp.StdioTransport{})
}

// Serve runs the server on transport until the client disconnects or ctx
// is cancelled. Every connection gets its own session ID for log correlation.
func (s *Server) Serve(ctx context.Context, transport mcp.Transport) error {
	sessionID := uuid.NewString()
	s.sessionID.Store(sessionID)
	ctx = logging.WithSessionID(ctx, sessionID)

	fields := []zap.Field{zap.String("transport", fmt.Sprintf("%T", transport))}
	if layout := s.reg.Layout(); layout != nil {
		fields = append(fields, zap.String("storage_mode", string(layout.Mode)), zap.String("storage_path", layout.BasePath))
	}
	s.logger.Info(ctx, "starting MCP server", fields...)

	if err := s.mcp.Run(ctx, transport); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// withSession attaches the current session ID when ctx does not carry one.
func (s *Server) withSession(ctx context.Context) context.Context {
	if logging.SessionIDFromContext(ctx) != "" {
		return ctx
	}
	if id, ok := s.sessionID.Load().(string); ok {
		return logging.WithSessionID(ctx, id)
	}
	return ctx
}

// MCP returns the underlying SDK server.
func (s *Server) MCP() *mcp.Server {
	return s.mcp
}
