package metrics

import (
	"context"
	"time"

	"github.com/BaSui01/tripcrew/llm"
)

// InstrumentedProvider 记录每次 Completion 的状态、耗时与 Token 用量。
type InstrumentedProvider struct {
	inner     llm.Provider
	collector *Collector
	model     string
}

var _ llm.Provider = (*InstrumentedProvider)(nil)

// InstrumentProvider 包装 provider。model 用于请求未指定模型时的标签。
func InstrumentProvider(inner llm.Provider, collector *Collector, model string) *InstrumentedProvider {
	return &InstrumentedProvider{inner: inner, collector: collector, model: model}
}

func (p *InstrumentedProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	start := time.Now()
	resp, err := p.inner.Completion(ctx, req)

	model := req.Model
	if model == "" {
		model = p.model
	}
	if err != nil {
		p.collector.RecordLLMRequest(p.inner.Name(), model, "error", time.Since(start), 0, 0)
		return nil, err
	}
	if resp.Model != "" {
		model = resp.Model
	}
	p.collector.RecordLLMRequest(p.inner.Name(), model, "success", time.Since(start),
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return resp, nil
}

func (p *InstrumentedProvider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	return p.inner.Stream(ctx, req)
}

func (p *InstrumentedProvider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	return p.inner.HealthCheck(ctx)
}

func (p *InstrumentedProvider) Name() string { return p.inner.Name() }

func (p *InstrumentedProvider) SupportsNativeFunctionCalling() bool {
	return p.inner.SupportsNativeFunctionCalling()
}
