// Package gemini 基于 google genai SDK 实现 Gemini Provider。
// 该 Provider 只做文本补全，不向模型传递工具定义。
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/BaSui01/tripcrew/internal/tlsutil"
	"github.com/BaSui01/tripcrew/llm"
)

const providerName = "gemini"

// Config 描述 Gemini 端点。
type Config struct {
	APIKey  string
	BaseURL string // 测试或代理时覆盖
	Model   string
	Timeout time.Duration
}

// Provider 实现 llm.Provider。
type Provider struct {
	cfg    Config
	client *genai.Client
	logger *zap.Logger
}

var _ llm.Provider = (*Provider)(nil)

// New 创建 Provider。
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIKey == "" {
		return nil, &llm.Error{Code: llm.ErrProviderUnavailable, Message: "gemini api key is required", Provider: providerName}
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: tlsutil.SecureHTTPClient(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Provider{
		cfg:    cfg,
		client: client,
		logger: logger.With(zap.String("component", "llm"), zap.String("provider", providerName)),
	}, nil
}

func (p *Provider) Name() string                        { return providerName }
func (p *Provider) SupportsNativeFunctionCalling() bool { return false }

// Model 返回默认模型。
func (p *Provider) Model() string { return p.cfg.Model }

func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	start := time.Now()
	_, err := p.client.Models.Get(ctx, p.cfg.Model, nil)
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

	model := p.model(req)
	contents, config := buildContents(req)

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		mapped := mapError(err)
		p.logger.Warn("generate content failed",
			zap.String("model", model),
			zap.String("code", string(mapped.Code)),
			zap.Error(err))
		return nil, mapped
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, &llm.Error{Code: llm.ErrEmptyResponse, Message: "no content in response", Provider: providerName}
	}

	out := &llm.ChatResponse{
		Provider:  providerName,
		Model:     model,
		CreatedAt: time.Now(),
		Choices: []llm.ChatChoice{{
			FinishReason: strings.ToLower(string(resp.Candidates[0].FinishReason)),
			Message:      llm.Message{Role: llm.RoleAssistant, Content: candidateText(resp.Candidates[0])},
		}},
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = llm.ChatUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out, nil
}

func (p *Provider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	model := p.model(req)
	contents, config := buildContents(req)

	ch := make(chan llm.StreamChunk)
	go func() {
		defer close(ch)
		for resp, err := range p.client.Models.GenerateContentStream(ctx, model, contents, config) {
			chunk := llm.StreamChunk{Provider: providerName, Model: model}
			if err != nil {
				chunk.Err = mapError(err)
			} else if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
				chunk.Delta = llm.Message{Role: llm.RoleAssistant, Content: candidateText(resp.Candidates[0])}
				chunk.FinishReason = strings.ToLower(string(resp.Candidates[0].FinishReason))
			}
			select {
			case ch <- chunk:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return ch, nil
}

func (p *Provider) model(req *llm.ChatRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return p.cfg.Model
}

// buildContents 把 system 消息放入 SystemInstruction，assistant 映射为 model 角色，
// tool 结果作为用户文本回传。
func buildContents(req *llm.ChatRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(req.Temperature)
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(req.Stop) > 0 {
		config.StopSequences = req.Stop
	}

	var system []string
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem:
			system = append(system, m.Content)
		case llm.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		case llm.RoleTool:
			contents = append(contents, genai.NewContentFromText(fmt.Sprintf("Tool %s returned:\n%s", m.Name, m.Content), genai.RoleUser))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	return contents, config
}

func candidateText(c *genai.Candidate) string {
	var sb strings.Builder
	for _, part := range c.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

func mapError(err error) *llm.Error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return llm.MapHTTPError(apiErr.Code, apiErr.Message, providerName)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return llm.MapHTTPError(apiErrPtr.Code, apiErrPtr.Message, providerName)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &llm.Error{Code: llm.ErrUpstreamTimeout, Message: err.Error(), Retryable: true, Provider: providerName}
	}
	return &llm.Error{Code: llm.ErrUpstreamError, Message: err.Error(), Retryable: true, Provider: providerName}
}
