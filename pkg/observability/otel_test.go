package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitOTel_Disabled(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})

	providers, err := InitOTel(context.Background(), OTelConfig{Enabled: false}, logger)

	assert.NoError(t, err)
	assert.Nil(t, providers)
}

func TestInitOTel_MissingEndpoint(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})

	providers, err := InitOTel(context.Background(), OTelConfig{Enabled: true}, logger)

	assert.Error(t, err)
	assert.Nil(t, providers)
}

// OTLP exporters connect lazily, so an unreachable endpoint still initializes.
func TestInitOTel_LazyConnection(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})
	cfg := OTelConfig{
		Enabled:        true,
		Endpoint:       "localhost:1",
		ServiceName:    "contactbook-test",
		ServiceVersion: "test",
		Insecure:       true,
		SampleRatio:    0.5,
	}

	providers, err := InitOTel(context.Background(), cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, providers)
	assert.NotNil(t, providers.TracerProvider)
	assert.NotNil(t, providers.MeterProvider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = ShutdownOTel(ctx, providers, logger)
}

func TestShutdownOTel_NilProviders(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})
	assert.NoError(t, ShutdownOTel(context.Background(), nil, logger))
}

func TestShutdownOTel_TracerOnly(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})
	providers := &OTelProviders{TracerProvider: sdktrace.NewTracerProvider()}

	assert.NoError(t, ShutdownOTel(context.Background(), providers, logger))
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{0, "ParentBased{root:AlwaysOnSampler"},
		{1, "ParentBased{root:AlwaysOnSampler"},
		{0.25, "ParentBased{root:TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		assert.Contains(t, sampler(tt.ratio).Description(), tt.want)
	}
}

func TestUpdateLoggerWithTraceContext(t *testing.T) {
	t.Run("no span", func(t *testing.T) {
		logger := NewLogger(InfoLevel, &bytes.Buffer{})
		assert.Same(t, logger, UpdateLoggerWithTraceContext(context.Background(), logger))
	})

	t.Run("recording span", func(t *testing.T) {
		tp := sdktrace.NewTracerProvider()
		defer func() { _ = tp.Shutdown(context.Background()) }()

		ctx, span := tp.Tracer("test").Start(context.Background(), "op")
		defer span.End()

		var buf bytes.Buffer
		UpdateLoggerWithTraceContext(ctx, NewLogger(InfoLevel, &buf)).Info("traced")

		var entry LogEntry
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, span.SpanContext().TraceID().String(), entry.Fields["trace_id"])
		assert.Equal(t, span.SpanContext().SpanID().String(), entry.Fields["span_id"])
	})

	t.Run("non-recording span", func(t *testing.T) {
		tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.NeverSample()))
		defer func() { _ = tp.Shutdown(context.Background()) }()

		ctx, span := tp.Tracer("test").Start(context.Background(), "op")
		defer span.End()

		logger := NewLogger(InfoLevel, &bytes.Buffer{})
		assert.Same(t, logger, UpdateLoggerWithTraceContext(ctx, logger))
	})
}

func TestStartSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})

	_, ok := StartSpan(context.Background(), "audit.record", attribute.Int64("account.id", 7))
	EndSpan(ok, nil)

	_, failed := StartSpan(context.Background(), "auth.login")
	EndSpan(failed, errors.New("database is locked"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "audit.record", spans[0].Name())
	assert.Equal(t, instrumentationName, spans[0].InstrumentationScope().Name)
	assert.Contains(t, spans[0].Attributes(), attribute.Int64("account.id", 7))
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	assert.Equal(t, "auth.login", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "database is locked", spans[1].Status().Description)
	require.Len(t, spans[1].Events(), 1)
	assert.Equal(t, "exception", spans[1].Events()[0].Name)
}
