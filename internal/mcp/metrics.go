package mcp

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/engramd/internal/engram"
	"github.com/fyrsmithlabs/engramd/internal/packs"
	"github.com/fyrsmithlabs/engramd/internal/sanitize"
)

const instrumentationName = "github.com/fyrsmithlabs/engramd/internal/mcp"

// Tool metric names.
const (
	metricToolCalls    = "engramd.mcp.tool.calls_total"
	metricToolDuration = "engramd.mcp.tool.duration_seconds"
	metricToolErrors   = "engramd.mcp.tool.errors_total"
	metricToolInFlight = "engramd.mcp.tool.in_flight"
)

// Metrics counts tool calls by tool name and outcome.
type Metrics struct {
	calls    metric.Int64Counter
	duration metric.Float64Histogram
	errors   metric.Int64Counter
	inFlight metric.Int64UpDownCounter
}

// NewMetrics creates the tool instruments. A nil provider uses the global
// meter provider. Instruments that fail to register are skipped.
func NewMetrics(provider metric.MeterProvider, logger *zap.Logger) *Metrics {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	meter := provider.Meter(instrumentationName)

	m := &Metrics{}
	var errs []error
	var err error
	m.calls, err = meter.Int64Counter(metricToolCalls,
		metric.WithDescription("MCP tool calls by tool and outcome"),
		metric.WithUnit("{call}"))
	errs = append(errs, err)
	m.duration, err = meter.Float64Histogram(metricToolDuration,
		metric.WithDescription("MCP tool call latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5))
	errs = append(errs, err)
	m.errors, err = meter.Int64Counter(metricToolErrors,
		metric.WithDescription("Failed MCP tool calls by tool and reason"),
		metric.WithUnit("{error}"))
	errs = append(errs, err)
	m.inFlight, err = meter.Int64UpDownCounter(metricToolInFlight,
		metric.WithDescription("MCP tool calls currently executing"),
		metric.WithUnit("{call}"))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		logger.Warn("failed to create MCP tool instruments", zap.Error(err))
	}
	return m
}

// Begin marks a tool call as in flight. The returned func ends the call and
// records its outcome.
func (m *Metrics) Begin(ctx context.Context, tool string) func(err error) {
	start := time.Now()
	toolAttr := attribute.String("tool", tool)
	if m.inFlight != nil {
		m.inFlight.Add(ctx, 1, metric.WithAttributes(toolAttr))
	}

	return func(err error) {
		if m.inFlight != nil {
			m.inFlight.Add(ctx, -1, metric.WithAttributes(toolAttr))
		}
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		if m.calls != nil {
			m.calls.Add(ctx, 1, metric.WithAttributes(toolAttr, attribute.String("outcome", outcome)))
		}
		if m.duration != nil {
			m.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(toolAttr))
		}
		if err != nil && m.errors != nil {
			m.errors.Add(ctx, 1, metric.WithAttributes(toolAttr, attribute.String("reason", categorizeError(err))))
		}
	}
}

// categorizeError maps an error to a reason label. Known sentinels are
// matched first, then the message text.
func categorizeError(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, engram.ErrNotFound), errors.Is(err, packs.ErrNotInstalled):
		return "not_found"
	case errors.Is(err, engram.ErrAmbiguous):
		return "ambiguous"
	case errors.Is(err, engram.ErrEmptyStatement), errors.Is(err, engram.ErrInvalidSignal), errors.Is(err, engram.ErrNoTargets), errors.Is(err, engram.ErrInvalidRecord),
		errors.Is(err, sanitize.ErrContentTooLarge), errors.Is(err, sanitize.ErrTitleTooLong),
		errors.Is(err, sanitize.ErrInvalidPackID), errors.Is(err, sanitize.ErrPathTraversal):
		return "validation_error"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "invalid"), strings.Contains(msg, "required"):
		return "validation_error"
	case strings.Contains(msg, "not found"):
		return "not_found"
	case strings.Contains(msg, "permission denied"):
		return "permission_error"
	case strings.Contains(msg, "loading"), strings.Contains(msg, "saving"), strings.Contains(msg, "yaml"):
		return "storage_error"
	default:
		return "internal_error"
	}
}
