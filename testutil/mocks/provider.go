// Package mocks 提供测试用的 llm.Provider 与搜索后端。
package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/BaSui01/tripcrew/llm"
)

// MockProvider 按顺序返回预设响应，用尽后重复最后一个。
type MockProvider struct {
	mu sync.Mutex

	responses []*llm.ChatResponse
	err       error
	failAt    int // 第 N 次调用（从 1 开始）返回 err，0 表示每次都返回 err
	native    bool
	name      string
	healthErr error

	calls []llm.ChatRequest
}

// NewMockProvider 创建支持原生工具调用的 MockProvider。
func NewMockProvider() *MockProvider {
	return &MockProvider{native: true, name: "mock"}
}

// WithResponses 设置依次返回的响应。
func (m *MockProvider) WithResponses(resps ...*llm.ChatResponse) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resps...)
	return m
}

// WithError 让每次调用都返回 err。
func (m *MockProvider) WithError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	m.failAt = 0
	return m
}

// WithErrorAt 只在第 n 次调用返回 err。
func (m *MockProvider) WithErrorAt(n int, err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	m.failAt = n
	return m
}

// WithNativeFunctionCalling 设置是否支持原生工具调用。
func (m *MockProvider) WithNativeFunctionCalling(native bool) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.native = native
	return m
}

// WithHealthError 让 HealthCheck 返回 err。
func (m *MockProvider) WithHealthError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthErr = err
	return m
}

// Calls 返回收到的请求副本。
func (m *MockProvider) Calls() []llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]llm.ChatRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount 返回调用次数。
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *MockProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r := *req
	r.Messages = append([]llm.Message(nil), req.Messages...)
	m.calls = append(m.calls, r)
	n := len(m.calls)

	if m.err != nil && (m.failAt == 0 || m.failAt == n) {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return nil, errors.New("mock provider has no responses")
	}
	idx := n - 1
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return m.responses[idx], nil
}

func (m *MockProvider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	resp, err := m.Completion(ctx, req)
	if err != nil {
		return nil, err
	}
	ch := make(chan llm.StreamChunk, 1)
	ch <- llm.StreamChunk{Provider: m.name, Delta: resp.FirstMessage(), FinishReason: "stop", Usage: &resp.Usage}
	close(ch)
	return ch, nil
}

func (m *MockProvider) HealthCheck(context.Context) (*llm.HealthStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.healthErr != nil {
		return &llm.HealthStatus{Healthy: false, Message: m.healthErr.Error()}, m.healthErr
	}
	return &llm.HealthStatus{Healthy: true}, nil
}

func (m *MockProvider) Name() string { return m.name }

func (m *MockProvider) SupportsNativeFunctionCalling() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.native
}
