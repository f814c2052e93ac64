package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/economic/internal/infrastructure/config"
	"github.com/erp/economic/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

func TestProviders_Disabled(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	cfg := telemetry.FromConfig(config.TelemetryConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:4317",
		SamplingRatio:     1,
		ServiceName:       "economic-test",
	})
	assert.Equal(t, "economic-test", cfg.ServiceName)

	tp, err := telemetry.NewTracerProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.ForceFlush(ctx))
	assert.NoError(t, tp.Shutdown(ctx))

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfigFrom(cfg), logger)
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(ctx))

	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfigFrom(cfg), logger)
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.NoError(t, lp.Shutdown(ctx))
}

func TestNewZapOTELCore_Disabled(t *testing.T) {
	core := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{ServiceName: "economic", Level: zapcore.InfoLevel})
	assert.False(t, core.Enabled(zapcore.ErrorLevel))

	lp, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	core = telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{ServiceName: "economic", LoggerProvider: lp})
	assert.False(t, core.Enabled(zapcore.ErrorLevel))
}

func TestCallMetrics_Record(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })

	m, err := telemetry.NewCallMetrics(provider.Meter(telemetry.MeterName), nil)
	require.NoError(t, err)

	m.Record(ctx, "DebtorGetData", 20*time.Millisecond, nil)
	m.Record(ctx, "DebtorGetData", 30*time.Millisecond, nil)
	m.Record(ctx, "DebtorGetData", time.Second, errors.New("boom"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string]int64{}
	var histogramCount uint64
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			switch data := md.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					outcome, _ := dp.Attributes.Value(telemetry.AttrOutcome)
					sums[md.Name+"/"+outcome.AsString()] += dp.Value
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					histogramCount += dp.Count
				}
			}
		}
	}

	assert.Equal(t, int64(2), sums["economic.rpc.calls/ok"])
	assert.Equal(t, int64(1), sums["economic.rpc.calls/error"])
	assert.Equal(t, int64(1), sums["economic.rpc.failures/error"])
	assert.Equal(t, uint64(3), histogramCount)
}

func TestCallMetrics_NilIsNoop(t *testing.T) {
	var m *telemetry.CallMetrics
	assert.NotPanics(t, func() {
		m.Record(context.Background(), "Connect", time.Millisecond, nil)
	})
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, telemetry.OutcomeOK, telemetry.Outcome(nil))
	assert.Equal(t, telemetry.OutcomeCancelled, telemetry.Outcome(context.Canceled))
	assert.Equal(t, telemetry.OutcomeCancelled, telemetry.Outcome(context.DeadlineExceeded))
	assert.Equal(t, telemetry.OutcomeError, telemetry.Outcome(errors.New("x")))
}

func TestStartServiceSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	ctx, span := telemetry.StartServiceSpan(context.Background(), "invoicing", "create_invoice",
		telemetry.WithAttribute("economic.debtor_number", int64(42)),
	)
	assert.True(t, trace.SpanContextFromContext(ctx).IsValid())
	telemetry.SetAttributes(span, "lines", 2, 7, "skipped")
	telemetry.RecordError(span, errors.New("boom"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "invoicing.create_invoice", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.Int64("economic.debtor_number", 42))
	assert.Contains(t, spans[0].Attributes(), attribute.Int("lines", 2))
}
