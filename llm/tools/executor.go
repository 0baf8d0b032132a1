package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/tripcrew/llm"
)

// ToolResult represents tool execution result.
type ToolResult struct {
	ToolCallID string          `json:"tool_call_id"`
	Name       string          `json:"name"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	Duration   time.Duration   `json:"duration"`
}

// ToMessage 转换为回传给模型的 tool 消息。错误也回传，由模型决定如何继续。
func (r ToolResult) ToMessage() llm.Message {
	content := string(r.Result)
	if r.Error != "" {
		content = fmt.Sprintf(`{"error":%q}`, r.Error)
	}
	return llm.Message{Role: llm.RoleTool, Name: r.Name, ToolCallID: r.ToolCallID, Content: content}
}

// Executor 并发执行一批工具调用，单个调用受超时与限流约束。
type Executor struct {
	registry *Registry
	logger   *zap.Logger
}

func NewExecutor(registry *Registry, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{registry: registry, logger: logger.With(zap.String("component", "tool_executor"))}
}

// Execute 按调用顺序返回结果。
func (e *Executor) Execute(ctx context.Context, calls []llm.ToolCall) []ToolResult {
	results := make([]ToolResult, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(idx int, c llm.ToolCall) {
			defer wg.Done()
			results[idx] = e.ExecuteOne(ctx, c)
		}(i, call)
	}
	wg.Wait()
	return results
}

func (e *Executor) ExecuteOne(ctx context.Context, call llm.ToolCall) ToolResult {
	start := time.Now()
	result := ToolResult{ToolCallID: call.ID, Name: call.Name}
	fail := func(msg string) ToolResult {
		result.Error = msg
		result.Duration = time.Since(start)
		return result
	}

	fn, meta, err := e.registry.Get(call.Name)
	if err != nil {
		e.logger.Warn("tool not found", zap.String("name", call.Name))
		return fail(err.Error())
	}
	if !e.registry.allow(call.Name) {
		e.logger.Warn("rate limit exceeded", zap.String("name", call.Name))
		return fail("rate limit exceeded")
	}
	if len(call.Arguments) > 0 && !json.Valid(call.Arguments) {
		return fail("invalid arguments: not valid JSON")
	}

	execCtx, cancel := context.WithTimeout(ctx, meta.Timeout)
	defer cancel()

	type outcome struct {
		res json.RawMessage
		err error
	}
	// 带缓冲，超时后 goroutine 仍能退出
	done := make(chan outcome, 1)
	go func() {
		res, err := fn(execCtx, call.Arguments)
		done <- outcome{res, err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			e.logger.Warn("tool execution failed", zap.String("name", call.Name), zap.Error(o.err))
			return fail(o.err.Error())
		}
		result.Result = o.res
		result.Duration = time.Since(start)
		e.logger.Debug("tool executed", zap.String("name", call.Name), zap.Duration("duration", result.Duration))
		return result
	case <-execCtx.Done():
		e.logger.Warn("tool execution timeout", zap.String("name", call.Name), zap.Duration("timeout", meta.Timeout))
		return fail(fmt.Sprintf("execution timeout after %s", meta.Timeout))
	}
}
