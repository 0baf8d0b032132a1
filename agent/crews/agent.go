package crews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/tripcrew/llm"
	"github.com/BaSui01/tripcrew/llm/tools"
)

const defaultMaxIter = 10

// ErrNoProvider 表示 Agent 没有配置 Provider。
var ErrNoProvider = errors.New("agent has no llm provider")

// AgentConfig 配置一个 Agent。
type AgentConfig struct {
	Role        string
	Goal        string
	Backstory   string
	Provider    llm.Provider
	Model       string          // 为空时使用 Provider 默认模型
	Tools       *tools.Registry // 可选
	MaxIter     int
	Temperature float32
	Verbose     bool
}

// Agent 是一个角色化的 LLM 调用者。
type Agent struct {
	Role      string
	Goal      string
	Backstory string
	Model     string
	MaxIter   int
	Verbose   bool

	provider    llm.Provider
	tools       *tools.Registry
	executor    *tools.Executor
	temperature float32
	logger      *zap.Logger
}

// NewAgent 创建 Agent。
func NewAgent(cfg AgentConfig, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = defaultMaxIter
	}
	a := &Agent{
		Role:        cfg.Role,
		Goal:        cfg.Goal,
		Backstory:   cfg.Backstory,
		Model:       cfg.Model,
		MaxIter:     cfg.MaxIter,
		Verbose:     cfg.Verbose,
		provider:    cfg.Provider,
		tools:       cfg.Tools,
		temperature: cfg.Temperature,
		logger:      logger.With(zap.String("component", "agent"), zap.String("role", cfg.Role)),
	}
	if cfg.Tools != nil {
		a.executor = tools.NewExecutor(cfg.Tools, logger)
	}
	return a
}

// HasTools 返回 Agent 是否持有工具。
func (a *Agent) HasTools() bool { return a.tools != nil && a.tools.Len() > 0 }

// SystemPrompt 由角色、目标与背景故事组成。
func (a *Agent) SystemPrompt() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s. %s\n", a.Role, strings.TrimSpace(a.Backstory))
	fmt.Fprintf(&sb, "Your personal goal is: %s\n", a.Goal)
	if a.HasTools() && a.provider != nil && a.provider.SupportsNativeFunctionCalling() {
		sb.WriteString("You may call the provided tools to gather information before answering.\n")
	}
	sb.WriteString("When you are done, reply with your complete final answer only.")
	return sb.String()
}

// ExecuteRequest 是一次 Agent 执行的输入。
type ExecuteRequest struct {
	Prompt string
	// Query 在 Provider 不支持原生工具调用时作为搜索词预先执行工具
	Query string
	// OnToolCall 每次工具调用完成后回调
	OnToolCall func(call llm.ToolCall, result tools.ToolResult)
}

// AgentResult 是 Agent 的最终答案。
type AgentResult struct {
	Output    string
	Usage     llm.ChatUsage
	ToolCalls int
	Iters     int
}

// Execute 运行工具循环：调用模型，执行返回的工具调用并回填结果，
// 直到模型给出答案或达到 MaxIter。达到上限时去掉工具再请求一次最终答案。
func (a *Agent) Execute(ctx context.Context, req ExecuteRequest) (*AgentResult, error) {
	if a.provider == nil {
		return nil, ErrNoProvider
	}

	result := &AgentResult{}
	prompt := req.Prompt
	native := a.provider.SupportsNativeFunctionCalling()

	if a.HasTools() && !native {
		prompt = a.inlineToolResults(ctx, req, result) + prompt
	}

	messages := []llm.Message{llm.SystemMessage(a.SystemPrompt()), llm.UserMessage(prompt)}
	var schemas []llm.ToolSchema
	if a.HasTools() && native {
		schemas = a.tools.List()
	}

	for iter := 0; iter < a.MaxIter; iter++ {
		result.Iters = iter + 1
		resp, err := a.complete(ctx, messages, schemas)
		if err != nil {
			return nil, err
		}
		result.Usage.Add(resp.Usage)

		msg := resp.FirstMessage()
		if len(msg.ToolCalls) == 0 || a.executor == nil {
			result.Output = strings.TrimSpace(msg.Content)
			return result, nil
		}

		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: msg.Content, ToolCalls: msg.ToolCalls})
		for i, r := range a.executor.Execute(ctx, msg.ToolCalls) {
			result.ToolCalls++
			if req.OnToolCall != nil {
				req.OnToolCall(msg.ToolCalls[i], r)
			}
			messages = append(messages, r.ToMessage())
		}
		if a.Verbose {
			a.logger.Info("tool round finished", zap.Int("iteration", iter+1), zap.Int("calls", len(msg.ToolCalls)))
		}
	}

	a.logger.Warn("max iterations reached, forcing final answer", zap.Int("max_iter", a.MaxIter))
	messages = append(messages, llm.UserMessage("You have used all available tool calls. Give your best final answer now."))
	resp, err := a.complete(ctx, messages, nil)
	if err != nil {
		return nil, err
	}
	result.Usage.Add(resp.Usage)
	result.Output = strings.TrimSpace(resp.FirstMessage().Content)
	return result, nil
}

func (a *Agent) complete(ctx context.Context, messages []llm.Message, schemas []llm.ToolSchema) (*llm.ChatResponse, error) {
	resp, err := a.provider.Completion(ctx, &llm.ChatRequest{
		Model:       a.Model,
		Messages:    messages,
		Temperature: a.temperature,
		Tools:       schemas,
	})
	if err != nil {
		return nil, fmt.Errorf("agent %q: %w", a.Role, err)
	}
	return resp, nil
}

// inlineToolResults 对每个工具以 Query 执行一次，把结果放在提示词前面。
func (a *Agent) inlineToolResults(ctx context.Context, req ExecuteRequest, result *AgentResult) string {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		query = req.Prompt
	}
	args, _ := json.Marshal(map[string]string{"query": query})

	var sb strings.Builder
	for _, schema := range a.tools.List() {
		call := llm.ToolCall{ID: "inline_" + schema.Name, Name: schema.Name, Arguments: args}
		r := a.executor.ExecuteOne(ctx, call)
		result.ToolCalls++
		if req.OnToolCall != nil {
			req.OnToolCall(call, r)
		}
		if r.Error != "" {
			a.logger.Warn("inline tool failed", zap.String("tool", schema.Name), zap.String("error", r.Error))
			continue
		}
		fmt.Fprintf(&sb, "Results from %s for %q:\n%s\n\n", schema.Name, query, renderToolOutput(r.Result))
	}
	return sb.String()
}

// renderToolOutput 把搜索工具的 JSON 渲染为列表，其他输出原样返回。
func renderToolOutput(raw json.RawMessage) string {
	var search struct {
		Results []tools.WebSearchResult `json:"results"`
	}
	if err := json.Unmarshal(raw, &search); err == nil && search.Results != nil {
		return tools.FormatResults(search.Results)
	}
	return string(raw)
}
