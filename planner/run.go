package planner

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/tripcrew/agent/crews"
	"github.com/BaSui01/tripcrew/internal/history"
	"github.com/BaSui01/tripcrew/itinerary"
	"github.com/BaSui01/tripcrew/llm"
)

// Result 是一次规划的结果
type Result struct {
	RunID string `json:"run_id"`
	Raw   string `json:"raw"`
	// Itinerary 为 nil 表示未产出结构化行程
	Itinerary  *itinerary.TravelItinerary `json:"itinerary,omitempty"`
	Warnings   []string                   `json:"warnings,omitempty"`
	TokenUsage llm.ChatUsage              `json:"token_usage"`
	Duration   time.Duration              `json:"duration"`
}

// RunOption 调整单次运行
type RunOption func(*runOptions)

type runOptions struct {
	events crews.EventHandler
}

// WithEvents 把 Crew 事件转发给 h，用于进度推送
func WithEvents(h crews.EventHandler) RunOption {
	return func(o *runOptions) { o.events = h }
}

// Plan 运行多 Agent 行程规划。
// Crew 错误原样返回；结构化输出缺失时 Itinerary 为 nil 且不返回错误。
func (p *Planner) Plan(ctx context.Context, req itinerary.Request, opts ...RunOption) (*Result, error) {
	ro := applyRunOptions(opts)
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	ctx, span := p.tracer.StartPlan(ctx, "plan",
		attribute.String("plan.city", req.City),
		attribute.Int("plan.days", req.Days),
		attribute.Int("plan.attractions_per_day", req.AttractionsPerDay))

	logger := p.logger.With(zap.String("city", req.City), zap.Int("days", req.Days))
	run := &history.Run{
		Crew:              TravelCrewName,
		Model:             p.model,
		City:              req.City,
		Days:              req.Days,
		AttractionsPerDay: req.AttractionsPerDay,
	}

	crew, err := p.BuildTravelCrew()
	if err != nil {
		p.finish(ctx, span, "plan", run, time.Since(start), err)
		return nil, err
	}
	crew.OnEvent(p.observe(ro.events))

	out, err := crew.Kickoff(ctx, req.Inputs())
	if err != nil {
		logger.Error("travel crew failed", zap.Error(err))
		p.finish(ctx, span, "plan", run, time.Since(start), err)
		return nil, err
	}

	res := &Result{
		RunID:      out.RunID,
		Raw:        out.Raw,
		TokenUsage: out.TokenUsage,
		Duration:   out.Duration,
	}
	if out.Structured != nil {
		it, perr := itinerary.Parse(string(out.Structured))
		if perr != nil {
			logger.Warn("structured output rejected", zap.Error(perr))
		} else {
			res.Itinerary = it
			res.Warnings = it.Check(req)
			for _, w := range res.Warnings {
				logger.Warn("itinerary check", zap.String("warning", w))
			}
		}
	}

	run.ID = out.RunID
	run.Raw = out.Raw
	run.PromptTokens = out.TokenUsage.PromptTokens
	run.CompletionTokens = out.TokenUsage.CompletionTokens
	run.TotalTokens = out.TokenUsage.TotalTokens
	if err := run.SetItinerary(res.Itinerary); err != nil {
		logger.Warn("encode itinerary for history failed", zap.Error(err))
	}
	p.finish(ctx, span, "plan", run, time.Since(start), nil)

	logger.Info("travel plan finished",
		zap.String("run_id", res.RunID),
		zap.Bool("itinerary", res.Itinerary != nil),
		zap.Int("total_tokens", res.TokenUsage.TotalTokens))
	return res, nil
}

// Suggest 运行单 Agent 推荐，返回原始文本
func (p *Planner) Suggest(ctx context.Context, city string, count int, opts ...RunOption) (string, error) {
	ro := applyRunOptions(opts)
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	ctx, span := p.tracer.StartPlan(ctx, "suggest",
		attribute.String("plan.city", city),
		attribute.Int("plan.count", count))

	crew, err := p.buildSuggestCrew()
	if err != nil {
		p.endSpan(ctx, span, "suggest", history.StatusFailed, time.Since(start), 0, err)
		return "", err
	}
	crew.OnEvent(p.observe(ro.events))

	out, err := crew.Kickoff(ctx, map[string]any{"city": city, "count": count})
	if err != nil {
		p.endSpan(ctx, span, "suggest", history.StatusFailed, time.Since(start), 0, err)
		return "", err
	}
	p.endSpan(ctx, span, "suggest", history.StatusSuccess, time.Since(start), out.TokenUsage.TotalTokens, nil)
	return out.Raw, nil
}

func applyRunOptions(opts []RunOption) runOptions {
	var ro runOptions
	for _, o := range opts {
		o(&ro)
	}
	return ro
}

// observe 记录任务与工具指标，再把事件交给 next
func (p *Planner) observe(next crews.EventHandler) crews.EventHandler {
	return func(e crews.Event) {
		if p.metrics != nil {
			switch e.Type {
			case crews.EventTaskCompleted:
				p.metrics.RecordTask(e.Task, e.Agent, e.Duration)
			case crews.EventToolCalled:
				p.metrics.RecordToolCall(e.Tool, e.Error != "")
			}
		}
		if next != nil {
			next(e)
		}
	}
}

// finish 确定状态，结束 span，写入指标与历史
func (p *Planner) finish(ctx context.Context, span trace.Span, kind string, run *history.Run, dur time.Duration, err error) {
	switch {
	case err != nil:
		run.Status = history.StatusFailed
		run.Error = err.Error()
	case run.Itinerary == nil:
		run.Status = history.StatusNoItinerary
	default:
		run.Status = history.StatusSuccess
	}
	run.DurationMS = dur.Milliseconds()

	p.endSpan(ctx, span, kind, run.Status, dur, run.TotalTokens, err)
	p.record(ctx, run)
}

func (p *Planner) endSpan(ctx context.Context, span trace.Span, kind, status string, dur time.Duration, tokens int, err error) {
	p.tracer.EndPlan(ctx, span, kind, status, dur, tokens, err)
	if p.metrics != nil {
		crewName := TravelCrewName
		if kind == "suggest" {
			crewName = SuggestCrewName
		}
		p.metrics.RecordCrewRun(crewName, status, dur)
	}
}

// record 尽力写入历史，失败只记录日志
func (p *Planner) record(ctx context.Context, run *history.Run) {
	if p.history == nil {
		return
	}
	// 请求被取消时仍然写入
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.history.Save(ctx, run); err != nil {
		p.logger.Warn("save history failed", zap.String("run_id", run.ID), zap.Error(err))
	}
}
