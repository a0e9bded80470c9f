package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewResource(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.ServiceVersion = "2.0.0"

	attrs := map[string]string{}
	for _, attr := range newResource(cfg).Attributes() {
		attrs[string(attr.Key)] = attr.Value.AsString()
	}
	assert.Equal(t, "engramd", attrs["service.name"])
	assert.Equal(t, "2.0.0", attrs["service.version"])
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "otel:4318", stripScheme("https://otel:4318"))
	assert.Equal(t, "otel:4318", stripScheme("http://otel:4318"))
	assert.Equal(t, "otel:4317", stripScheme("otel:4317"))
}

func TestOptions(t *testing.T) {
	var o options
	assert.Nil(t, o.spanExporter)
	assert.Nil(t, o.metricExporter)

	spans := tracetest.NewInMemoryExporter()
	WithTraceExporter(spans)(&o)
	assert.Same(t, spans, o.spanExporter)
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Metrics.Enabled = false

	mp, err := newMeterProvider(context.Background(), cfg, newResource(cfg), nil)
	require.NoError(t, err)
	assert.Nil(t, mp)
}
