package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/BaSui01/tripcrew/planner"

// PlanTracer 为一次规划创建根 span（crew.kickoff 与 crew.task 挂在其下），
// 并通过 OTel meter 记录运行次数、耗时与 token。
type PlanTracer struct {
	tracer   trace.Tracer
	runs     metric.Int64Counter
	duration metric.Float64Histogram
	tokens   metric.Int64Counter
}

// NewPlanTracer 传 nil 时使用全局 provider
func NewPlanTracer(tp trace.TracerProvider, mp metric.MeterProvider) (*PlanTracer, error) {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	runs, err := meter.Int64Counter("tripcrew.plan.runs",
		metric.WithDescription("Number of planning runs"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("tripcrew.plan.duration",
		metric.WithDescription("Planning run duration"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	tokens, err := meter.Int64Counter("tripcrew.llm.tokens",
		metric.WithDescription("Tokens consumed by planning runs"))
	if err != nil {
		return nil, err
	}

	return &PlanTracer{
		tracer:   tp.Tracer(instrumentationName),
		runs:     runs,
		duration: duration,
		tokens:   tokens,
	}, nil
}

// StartPlan 开始规划根 span，kind 为 plan 或 suggest
func (p *PlanTracer) StartPlan(ctx context.Context, kind string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{attribute.String("plan.kind", kind)}, attrs...)
	return p.tracer.Start(ctx, "planner."+kind, trace.WithAttributes(attrs...))
}

// EndPlan 结束 span 并记录指标。status 由调用方给出（success/no_itinerary/failed）。
func (p *PlanTracer) EndPlan(ctx context.Context, span trace.Span, kind, status string, dur time.Duration, totalTokens int, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(
		attribute.String("plan.status", status),
		attribute.Int("llm.total_tokens", totalTokens),
	)
	span.End()

	set := metric.WithAttributes(attribute.String("kind", kind), attribute.String("status", status))
	p.runs.Add(ctx, 1, set)
	p.duration.Record(ctx, dur.Seconds(), set)
	if totalTokens > 0 {
		p.tokens.Add(ctx, int64(totalTokens), metric.WithAttributes(attribute.String("kind", kind)))
	}
}
