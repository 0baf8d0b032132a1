// Package tools 提供 Agent 可调用的工具注册、执行与网页搜索实现。
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/tripcrew/llm"
)

// ToolFunc defines the tool function signature.
type ToolFunc func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)

// ToolMetadata describes a registered tool.
type ToolMetadata struct {
	Schema      llm.ToolSchema   // 传给模型的 JSON Schema
	DisplayName string           // 面向用户的名称
	RateLimit   *RateLimitConfig // 可选
	Timeout     time.Duration    // 默认 30s
}

// RateLimitConfig 允许在 Window 内最多调用 MaxCalls 次。
type RateLimitConfig struct {
	MaxCalls int
	Window   time.Duration
}

func (c *RateLimitConfig) limiter() *rate.Limiter {
	if c == nil || c.MaxCalls <= 0 || c.Window <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(c.Window/time.Duration(c.MaxCalls)), c.MaxCalls)
}

type entry struct {
	fn      ToolFunc
	meta    ToolMetadata
	limiter *rate.Limiter
}

// Registry 保存工具函数与元数据，并发安全。
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]entry
	logger *zap.Logger
}

// NewRegistry 创建工具注册中心。
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		tools:  make(map[string]entry),
		logger: logger.With(zap.String("component", "tool_registry")),
	}
}

func (r *Registry) Register(name string, fn ToolFunc, meta ToolMetadata) error {
	if fn == nil {
		return fmt.Errorf("tool %s has nil function", name)
	}
	if meta.Schema.Name == "" {
		meta.Schema.Name = name
	}
	if meta.Schema.Name != name {
		return fmt.Errorf("tool name mismatch: schema.Name=%s, register name=%s", meta.Schema.Name, name)
	}
	if meta.Timeout <= 0 {
		meta.Timeout = 30 * time.Second
	}
	if meta.DisplayName == "" {
		meta.DisplayName = name
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = entry{fn: fn, meta: meta, limiter: meta.RateLimit.limiter()}

	r.logger.Info("tool registered", zap.String("name", name), zap.Duration("timeout", meta.Timeout))
	return nil
}

func (r *Registry) Get(name string) (ToolFunc, ToolMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	if !ok {
		return nil, ToolMetadata{}, fmt.Errorf("tool %s not found", name)
	}
	return e.fn, e.meta, nil
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// List 按名称排序返回全部工具的 Schema。
func (r *Registry) List() []llm.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schemas := make([]llm.ToolSchema, 0, len(r.tools))
	for _, e := range r.tools {
		schemas = append(schemas, e.meta.Schema)
	}
	sort.Slice(schemas, func(i, j int) bool { return schemas[i].Name < schemas[j].Name })
	return schemas
}

// Len 返回已注册工具数。
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

func (r *Registry) allow(name string) bool {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok || e.limiter == nil {
		return true
	}
	return e.limiter.Allow()
}
