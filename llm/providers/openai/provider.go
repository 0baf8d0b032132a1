// Package openai 基于 go-openai 实现 OpenAI 兼容的 Chat Completions Provider，
// 同样适用于 Ollama、vLLM 等 OpenAI 兼容端点。
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/BaSui01/tripcrew/internal/tlsutil"
	"github.com/BaSui01/tripcrew/llm"
)

const providerName = "openai"

// Config 描述 OpenAI 兼容端点。
type Config struct {
	APIKey       string
	BaseURL      string // 为空时使用官方地址
	Model        string
	Organization string
	Timeout      time.Duration
}

// Provider 实现 llm.Provider。
type Provider struct {
	cfg    Config
	client *goopenai.Client
	logger *zap.Logger
}

var _ llm.Provider = (*Provider)(nil)

// New 创建 Provider。
func New(cfg Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = goopenai.GPT4oMini
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.OrgID = cfg.Organization
	clientCfg.HTTPClient = tlsutil.SecureHTTPClient(cfg.Timeout)

	return &Provider{
		cfg:    cfg,
		client: goopenai.NewClientWithConfig(clientCfg),
		logger: logger.With(zap.String("component", "llm"), zap.String("provider", providerName)),
	}
}

func (p *Provider) Name() string                        { return providerName }
func (p *Provider) SupportsNativeFunctionCalling() bool { return true }

// Model 返回默认模型。
func (p *Provider) Model() string { return p.cfg.Model }

func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	start := time.Now()
	_, err := p.client.ListModels(ctx)
	status := &llm.HealthStatus{Healthy: err == nil, Latency: time.Since(start)}
	if err != nil {
		mapped := mapError(err)
		status.Message = mapped.Message
		return status, mapped
	}
	return status, nil
}

func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	body := p.buildRequest(req)
	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, body)
	if err != nil {
		mapped := mapError(err)
		p.logger.Warn("chat completion failed",
			zap.String("model", body.Model),
			zap.String("code", string(mapped.Code)),
			zap.Error(err))
		return nil, mapped
	}
	if len(resp.Choices) == 0 {
		return nil, &llm.Error{Code: llm.ErrEmptyResponse, Message: "no choices in response", Provider: providerName}
	}

	p.logger.Debug("chat completion",
		zap.String("model", resp.Model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("latency", time.Since(start)))

	return toChatResponse(resp), nil
}

func (p *Provider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	body := p.buildRequest(req)
	body.Stream = true
	body.StreamOptions = &goopenai.StreamOptions{IncludeUsage: true}

	stream, err := p.client.CreateChatCompletionStream(ctx, body)
	if err != nil {
		return nil, mapError(err)
	}

	ch := make(chan llm.StreamChunk)
	go func() {
		defer close(ch)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				select {
				case ch <- llm.StreamChunk{Provider: providerName, Err: mapError(err)}:
				case <-ctx.Done():
				}
				return
			}
			chunk := llm.StreamChunk{ID: resp.ID, Provider: providerName, Model: resp.Model}
			if len(resp.Choices) > 0 {
				c := resp.Choices[0]
				chunk.Delta = llm.Message{Role: llm.Role(c.Delta.Role), Content: c.Delta.Content, ToolCalls: fromToolCalls(c.Delta.ToolCalls)}
				chunk.FinishReason = string(c.FinishReason)
			}
			if resp.Usage != nil {
				chunk.Usage = &llm.ChatUsage{
					PromptTokens:     resp.Usage.PromptTokens,
					CompletionTokens: resp.Usage.CompletionTokens,
					TotalTokens:      resp.Usage.TotalTokens,
				}
			}
			select {
			case ch <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (p *Provider) buildRequest(req *llm.ChatRequest) goopenai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	out := goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    toMessages(req.Messages),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stop:        req.Stop,
	}
	for _, t := range req.Tools {
		params := t.Parameters
		if len(params) == 0 {
			params = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		out.Tools = append(out.Tools, goopenai.Tool{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	return out
}

func toMessages(msgs []llm.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		msg := goopenai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, goopenai.ToolCall{
				ID:   tc.ID,
				Type: goopenai.ToolTypeFunction,
				Function: goopenai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(tc.Arguments),
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

func fromToolCalls(calls []goopenai.ToolCall) []llm.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]llm.ToolCall, 0, len(calls))
	for _, tc := range calls {
		args := tc.Function.Arguments
		if args == "" {
			args = "{}"
		}
		out = append(out, llm.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: json.RawMessage(args)})
	}
	return out
}

func toChatResponse(resp goopenai.ChatCompletionResponse) *llm.ChatResponse {
	out := &llm.ChatResponse{
		ID:       resp.ID,
		Provider: providerName,
		Model:    resp.Model,
		Usage: llm.ChatUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		CreatedAt: time.Unix(resp.Created, 0),
	}
	for _, c := range resp.Choices {
		out.Choices = append(out.Choices, llm.ChatChoice{
			Index:        c.Index,
			FinishReason: string(c.FinishReason),
			Message: llm.Message{
				Role:      llm.Role(c.Message.Role),
				Content:   c.Message.Content,
				ToolCalls: fromToolCalls(c.Message.ToolCalls),
			},
		})
	}
	return out
}

// mapError 把 go-openai 的错误转换为 *llm.Error。
func mapError(err error) *llm.Error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return llm.MapHTTPError(apiErr.HTTPStatusCode, apiErr.Message, providerName)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return llm.MapHTTPError(reqErr.HTTPStatusCode, reqErr.Error(), providerName)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &llm.Error{Code: llm.ErrUpstreamTimeout, Message: err.Error(), Retryable: true, Provider: providerName}
	}
	if errors.Is(err, context.Canceled) {
		return &llm.Error{Code: llm.ErrUpstreamError, Message: err.Error(), Provider: providerName}
	}
	return &llm.Error{
		Code:      llm.ErrUpstreamError,
		Message:   fmt.Sprintf("request failed: %v", err),
		Retryable: true,
		Provider:  providerName,
	}
}
