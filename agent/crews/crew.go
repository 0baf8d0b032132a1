package crews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/tripcrew/llm"
	"github.com/BaSui01/tripcrew/llm/tools"
	"github.com/BaSui01/tripcrew/llm/tokenizer"
)

const tracerName = "github.com/BaSui01/tripcrew/agent/crews"

// ProcessType 定义任务处理方式。
type ProcessType string

const (
	ProcessSequential   ProcessType = "sequential"
	ProcessHierarchical ProcessType = "hierarchical"
)

// CrewConfig 配置一个 Crew。
type CrewConfig struct {
	Name    string
	Process ProcessType
	Verbose bool
	// ContextTokenBudget 是单个上下文文档的 token 上限，<= 0 表示不限制
	ContextTokenBudget int
	Tokenizer          tokenizer.Tokenizer
	Events             EventHandler
}

// Crew 是按顺序协作的一组 Agent 与 Task。
type Crew struct {
	Name    string
	Agents  []*Agent
	Tasks   []*Task
	Process ProcessType
	Verbose bool

	budget    int
	tokenizer tokenizer.Tokenizer
	events    EventHandler
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewCrew 创建 Crew，Process 为空时使用 sequential。
func NewCrew(cfg CrewConfig, logger *zap.Logger) *Crew {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Process == "" {
		cfg.Process = ProcessSequential
	}
	if cfg.Tokenizer == nil {
		cfg.Tokenizer = tokenizer.NewEstimatorTokenizer("")
	}
	return &Crew{
		Name:      cfg.Name,
		Process:   cfg.Process,
		Verbose:   cfg.Verbose,
		budget:    cfg.ContextTokenBudget,
		tokenizer: cfg.Tokenizer,
		events:    cfg.Events,
		logger:    logger.With(zap.String("component", "crew"), zap.String("crew", cfg.Name)),
		tracer:    otel.Tracer(tracerName),
	}
}

// AddAgent 添加成员。
func (c *Crew) AddAgent(a *Agent) *Crew {
	c.Agents = append(c.Agents, a)
	return c
}

// AddTask 追加任务，执行顺序即添加顺序。
func (c *Crew) AddTask(t *Task) *Crew {
	c.Tasks = append(c.Tasks, t)
	return c
}

// OnEvent 设置事件处理器。
func (c *Crew) OnEvent(h EventHandler) { c.events = h }

// Validate 检查流程类型、任务的 Agent 以及上下文引用的顺序。
func (c *Crew) Validate() error {
	if c.Process != ProcessSequential {
		return fmt.Errorf("process %q is not supported, only %q", c.Process, ProcessSequential)
	}
	if len(c.Tasks) == 0 {
		return errors.New("crew has no tasks")
	}
	seen := make(map[*Task]bool, len(c.Tasks))
	for i, t := range c.Tasks {
		if t == nil {
			return fmt.Errorf("task %d is nil", i)
		}
		if t.Agent == nil {
			return fmt.Errorf("task %q has no agent", t.Name)
		}
		for _, dep := range t.Context {
			if !seen[dep] {
				return fmt.Errorf("task %q uses context from %q which does not run before it", t.Name, taskName(dep))
			}
		}
		seen[t] = true
	}
	return nil
}

// CrewOutput 是一次 Kickoff 的结果。
type CrewOutput struct {
	RunID       string          `json:"run_id"`
	Raw         string          `json:"raw"`
	Structured  json.RawMessage `json:"structured,omitempty"`
	TasksOutput []TaskOutput    `json:"tasks_output"`
	TokenUsage  llm.ChatUsage   `json:"token_usage"`
	Duration    time.Duration   `json:"duration"`
}

// Kickoff 替换占位符并按顺序执行全部任务。
// 任何 Agent 或 Provider 错误都会终止执行并原样包装返回。
func (c *Crew) Kickoff(ctx context.Context, inputs map[string]any) (*CrewOutput, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "crew.kickoff", trace.WithAttributes(
		attribute.String("crew.name", c.Name),
		attribute.String("crew.run_id", runID),
		attribute.Int("crew.tasks", len(c.Tasks)),
	))
	defer span.End()

	logger := c.logger.With(zap.String("run_id", runID))
	logger.Info("crew kickoff", zap.Int("tasks", len(c.Tasks)))

	out := &CrewOutput{RunID: runID, TasksOutput: make([]TaskOutput, 0, len(c.Tasks))}
	outputs := make(map[*Task]string, len(c.Tasks))

	for i, task := range c.Tasks {
		var deps []*Task
		switch {
		case task.Context != nil:
			deps = task.Context
		case i > 0:
			deps = []*Task{c.Tasks[i-1]}
		}

		to, err := c.runTask(ctx, runID, task, inputs, deps, outputs)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error("crew aborted", zap.String("task", task.Name), zap.Error(err))
			return nil, fmt.Errorf("task %q: %w", task.Name, err)
		}
		outputs[task] = to.Raw
		out.TasksOutput = append(out.TasksOutput, *to)
		out.TokenUsage.Add(to.Usage)
	}

	last := out.TasksOutput[len(out.TasksOutput)-1]
	out.Raw = last.Raw
	out.Structured = last.JSON
	out.Duration = time.Since(start)

	span.SetAttributes(attribute.Int("crew.total_tokens", out.TokenUsage.TotalTokens))
	logger.Info("crew completed",
		zap.Duration("duration", out.Duration),
		zap.Int("total_tokens", out.TokenUsage.TotalTokens),
		zap.Bool("structured", out.Structured != nil))
	c.emit(Event{Type: EventCrewCompleted, RunID: runID, Output: out.Raw, Duration: out.Duration})
	return out, nil
}

func (c *Crew) runTask(ctx context.Context, runID string, task *Task, inputs map[string]any, deps []*Task, outputs map[*Task]string) (*TaskOutput, error) {
	description := Interpolate(task.Description, inputs)
	expected := Interpolate(task.ExpectedOutput, inputs)

	ctx, span := c.tracer.Start(ctx, "crew.task", trace.WithAttributes(
		attribute.String("task.name", task.Name),
		attribute.String("agent.role", task.Agent.Role),
	))
	defer span.End()

	contexts := make([]contextBlock, 0, len(deps))
	for _, dep := range deps {
		text, truncated, err := tokenizer.TruncateHead(c.tokenizer, outputs[dep], c.budget)
		if err != nil {
			c.logger.Warn("context token count failed, using full text", zap.Error(err))
			text = outputs[dep]
		}
		if truncated {
			c.logger.Info("context truncated", zap.String("task", task.Name), zap.String("from", taskName(dep)), zap.Int("budget", c.budget))
		}
		contexts = append(contexts, contextBlock{name: taskName(dep), output: text})
	}

	verbose := c.Verbose || task.Agent.Verbose
	if verbose {
		c.logger.Info("task started", zap.String("task", task.Name), zap.String("agent", task.Agent.Role))
	}
	c.emit(Event{Type: EventTaskStarted, RunID: runID, Task: task.Name, Agent: task.Agent.Role})

	start := time.Now()
	res, err := task.Agent.Execute(ctx, ExecuteRequest{
		Prompt: buildPrompt(description, expected, task.OutputSchema, contexts),
		Query:  description,
		OnToolCall: func(call llm.ToolCall, r tools.ToolResult) {
			c.emit(Event{
				Type: EventToolCalled, RunID: runID, Task: task.Name, Agent: task.Agent.Role,
				Tool: call.Name, Arguments: call.Arguments, Error: r.Error, Duration: r.Duration,
			})
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	to := &TaskOutput{
		Name:        task.Name,
		Description: description,
		Agent:       task.Agent.Role,
		Raw:         res.Output,
		Usage:       res.Usage,
		ToolCalls:   res.ToolCalls,
		Duration:    time.Since(start),
	}
	if task.OutputSchema != nil {
		if js, err := task.OutputSchema.Coerce(res.Output); err != nil {
			to.SchemaError = err.Error()
			c.logger.Warn("output schema coercion failed",
				zap.String("task", task.Name),
				zap.String("schema", task.OutputSchema.Name()),
				zap.Error(err))
		} else {
			to.JSON = js
		}
	}

	if verbose {
		c.logger.Info("task completed",
			zap.String("task", task.Name),
			zap.Duration("duration", to.Duration),
			zap.Int("tool_calls", to.ToolCalls),
			zap.Int("tokens", to.Usage.TotalTokens))
	}
	c.emit(Event{Type: EventTaskCompleted, RunID: runID, Task: task.Name, Agent: task.Agent.Role, Output: to.Raw, Duration: to.Duration})
	return to, nil
}

func (c *Crew) emit(e Event) {
	if c.events == nil {
		return
	}
	e.Timestamp = time.Now()
	c.events(e)
}

func taskName(t *Task) string {
	if t == nil {
		return "<nil>"
	}
	if t.Name != "" {
		return t.Name
	}
	return t.Description
}
