package mcp

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/engramd/internal/engram"
)

const valueInstrumentationName = "github.com/fyrsmithlabs/engramd/value"

// Lifecycle events recorded by RecordLifecycle.
const (
	EventLearned  = "learned"
	EventPromoted = "promoted"
	EventRetired  = "retired"
)

// ValueMetrics tracks whether engrams are being used and rated.
type ValueMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Engrams selected into a prompt, by source.
	engramsInjected metric.Int64Counter
	tokensInjected  metric.Int64Counter
	emptyInjections metric.Int64Counter

	feedbackSignals metric.Int64Counter
	lifecycle       metric.Int64Counter
}

// NewValueMetrics creates value metrics. A nil provider uses the global
// meter provider.
func NewValueMetrics(provider metric.MeterProvider, logger *zap.Logger) *ValueMetrics {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &ValueMetrics{
		meter:  provider.Meter(valueInstrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *ValueMetrics) init() {
	var err error

	m.engramsInjected, err = m.meter.Int64Counter(
		"engramd.engrams.injected_total",
		metric.WithDescription("Total engrams selected into prompts"),
		metric.WithUnit("{engram}"),
	)
	if err != nil {
		m.logger.Warn("failed to create engrams injected counter", zap.Error(err))
	}

	m.tokensInjected, err = m.meter.Int64Counter(
		"engramd.engrams.tokens_injected_total",
		metric.WithDescription("Total estimated tokens spent on injected engrams"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		m.logger.Warn("failed to create tokens injected counter", zap.Error(err))
	}

	m.emptyInjections, err = m.meter.Int64Counter(
		"engramd.engrams.empty_injections_total",
		metric.WithDescription("Injections where no engram passed the relevance threshold"),
		metric.WithUnit("{injection}"),
	)
	if err != nil {
		m.logger.Warn("failed to create empty injections counter", zap.Error(err))
	}

	m.feedbackSignals, err = m.meter.Int64Counter(
		"engramd.engrams.feedback_total",
		metric.WithDescription("Total feedback signals applied to engrams"),
		metric.WithUnit("{signal}"),
	)
	if err != nil {
		m.logger.Warn("failed to create feedback counter", zap.Error(err))
	}

	m.lifecycle, err = m.meter.Int64Counter(
		"engramd.engrams.lifecycle_total",
		metric.WithDescription("Total engram lifecycle transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		m.logger.Warn("failed to create lifecycle counter", zap.Error(err))
	}
}

// RecordInjection records the engrams of one injection result.
func (m *ValueMetrics) RecordInjection(ctx context.Context, res *engram.InjectResult) {
	if m == nil || res == nil {
		return
	}
	if res.Count == 0 {
		if m.emptyInjections != nil {
			m.emptyInjections.Add(ctx, 1)
		}
		return
	}

	var personal, pack int64
	for _, group := range [][]engram.Scored{res.Directives, res.Consider} {
		for _, sc := range group {
			if sc.Personal() {
				personal++
			} else {
				pack++
			}
		}
	}
	if m.engramsInjected != nil {
		if personal > 0 {
			m.engramsInjected.Add(ctx, personal, metric.WithAttributes(attribute.String("source", engram.SourcePersonal)))
		}
		if pack > 0 {
			m.engramsInjected.Add(ctx, pack, metric.WithAttributes(attribute.String("source", engram.SourcePack)))
		}
	}
	if m.tokensInjected != nil {
		m.tokensInjected.Add(ctx, int64(res.TokensUsed))
	}
}

// RecordFeedback records applied feedback signals.
func (m *ValueMetrics) RecordFeedback(ctx context.Context, signal engram.Signal, n int) {
	if m == nil || m.feedbackSignals == nil || n <= 0 {
		return
	}
	m.feedbackSignals.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("signal", string(signal)),
	))
}

// RecordLifecycle records n transitions of the given event.
func (m *ValueMetrics) RecordLifecycle(ctx context.Context, event string, n int) {
	if m == nil || m.lifecycle == nil || n <= 0 {
		return
	}
	m.lifecycle.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("event", event),
	))
}
