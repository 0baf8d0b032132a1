package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/tripcrew/config"
)

// saveAndRestoreGlobalProviders keeps tests from leaking global OTel state.
func saveAndRestoreGlobalProviders(t *testing.T) {
	t.Helper()
	origTP := otel.GetTracerProvider()
	origMP := otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(origTP)
		otel.SetMeterProvider(origMP)
	})
}

func TestInit_Disabled(t *testing.T) {
	saveAndRestoreGlobalProviders(t)

	p, err := Init(context.Background(), config.TelemetryConfig{Enabled: false}, "", zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Nil(t, p.tp)
	assert.Nil(t, p.mp)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInit_Enabled(t *testing.T) {
	saveAndRestoreGlobalProviders(t)

	p, err := Init(context.Background(), config.TelemetryConfig{
		Enabled:      true,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "tripcrew-test",
		SampleRate:   0.5,
	}, "v1.2.3", nil)
	require.NoError(t, err)
	require.NotNil(t, p.tp)
	require.NotNil(t, p.mp)

	_, tpIsSDK := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	_, mpIsSDK := otel.GetMeterProvider().(*sdkmetric.MeterProvider)
	assert.True(t, tpIsSDK)
	assert.True(t, mpIsSDK)

	// 没有 collector，Shutdown 可能返回连接错误，只要求不 panic
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NotPanics(t, func() { _ = p.Shutdown(ctx) })
}

func TestProviders_Shutdown_Nil(t *testing.T) {
	var p *Providers
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestBuildVersion(t *testing.T) {
	assert.Equal(t, "dev", buildVersion())
}

func TestSampleRate(t *testing.T) {
	assert.Equal(t, 1.0, sampleRate(0))
	assert.Equal(t, 1.0, sampleRate(-0.2))
	assert.Equal(t, 1.0, sampleRate(3))
	assert.Equal(t, 0.25, sampleRate(0.25))
}

func newTestTracer(t *testing.T) (*PlanTracer, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	pt, err := NewPlanTracer(tp, mp)
	require.NoError(t, err)
	return pt, recorder, reader
}

func TestPlanTracer_ChildSpansNest(t *testing.T) {
	pt, recorder, _ := newTestTracer(t)

	ctx, root := pt.StartPlan(context.Background(), "plan", attribute.String("trip.city", "Isfahan"))
	_, child := pt.tracer.Start(ctx, "crew.kickoff")
	child.End()
	pt.EndPlan(ctx, root, "plan", "success", time.Second, 120, nil)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "crew.kickoff", spans[0].Name())
	assert.Equal(t, "planner.plan", spans[1].Name())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Contains(t, spans[1].Attributes(), attribute.String("trip.city", "Isfahan"))
	assert.Contains(t, spans[1].Attributes(), attribute.Int("llm.total_tokens", 120))
	assert.Contains(t, spans[1].Attributes(), attribute.String("plan.status", "success"))
	assert.Equal(t, codes.Ok, spans[1].Status().Code)
}

func TestPlanTracer_ErrorAndMetrics(t *testing.T) {
	pt, recorder, reader := newTestTracer(t)

	ctx, root := pt.StartPlan(context.Background(), "suggest")
	pt.EndPlan(ctx, root, "suggest", "failed", 2*time.Second, 0, errors.New("llm down"))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "planner.suggest", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "llm down", spans[0].Status().Description)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := map[string]metricdata.Metrics{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}
	runs, ok := byName["tripcrew.plan.runs"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, runs.DataPoints, 1)
	assert.Equal(t, int64(1), runs.DataPoints[0].Value)
	status, _ := runs.DataPoints[0].Attributes.Value("status")
	assert.Equal(t, "failed", status.AsString())

	_, hasTokens := byName["tripcrew.llm.tokens"]
	assert.False(t, hasTokens, "zero tokens are not recorded")
}
