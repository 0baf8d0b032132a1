package retry

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/tripcrew/llm"
)

// Provider 为 llm.Provider 加上指数退避重试。
// 只重试请求建立阶段，流式中途的错误不重试。
type Provider struct {
	inner   llm.Provider
	retryer *Retryer
}

var _ llm.Provider = (*Provider)(nil)

// WrapProvider 用给定策略包装 Provider。
func WrapProvider(inner llm.Provider, policy Policy, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		inner:   inner,
		retryer: New(policy, logger.With(zap.String("provider", inner.Name()))),
	}
}

func (p *Provider) Name() string                        { return p.inner.Name() }
func (p *Provider) SupportsNativeFunctionCalling() bool { return p.inner.SupportsNativeFunctionCalling() }

func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	return p.inner.HealthCheck(ctx)
}

func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	return Do(ctx, p.retryer, func(ctx context.Context) (*llm.ChatResponse, error) {
		return p.inner.Completion(ctx, req)
	})
}

func (p *Provider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	return Do(ctx, p.retryer, func(ctx context.Context) (<-chan llm.StreamChunk, error) {
		return p.inner.Stream(ctx, req)
	})
}
