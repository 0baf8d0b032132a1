package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/tripcrew/agent/crews"
	"github.com/BaSui01/tripcrew/agent/structured"
	"github.com/BaSui01/tripcrew/configs"
	"github.com/BaSui01/tripcrew/internal/history"
	"github.com/BaSui01/tripcrew/internal/metrics"
	"github.com/BaSui01/tripcrew/internal/telemetry"
	"github.com/BaSui01/tripcrew/itinerary"
	"github.com/BaSui01/tripcrew/llm"
	"github.com/BaSui01/tripcrew/llm/tokenizer"
	"github.com/BaSui01/tripcrew/llm/tools"
	"github.com/BaSui01/tripcrew/types"
)

// 定义中使用的键
const (
	ResearcherAgent = "researcher"
	PlannerAgent    = "planner"
	TravelAgent     = "travel_agent"
	ResearchTask    = "research_task"
	PlanningTask    = "planning_task"
	SuggestTask     = "suggest_task"
	TravelCrewName  = "travel_planner"
	SuggestCrewName = "travel_agent"
	searchToolAlias = "search"
)

// HistoryStore 保存规划记录，history.Repository 满足该接口
type HistoryStore interface {
	Save(ctx context.Context, run *history.Run) error
}

// Options 配置 Planner
type Options struct {
	Definitions *configs.Definitions
	Provider    llm.Provider
	// Model 为空时使用 Provider 默认模型；定义中的 llm 字段优先
	Model       string
	Temperature float32

	// Search 为 nil 时即使定义列出搜索工具也不挂载
	Search        tools.WebSearchProvider
	SearchOptions tools.WebSearchOptions
	// SearchRateLimit 为 nil 时使用默认的每分钟 30 次
	SearchRateLimit *tools.RateLimitConfig

	MaxIterations      int
	ContextTokenBudget int
	Tokenizer          tokenizer.Tokenizer
	Verbose            bool
	// Timeout 单次运行超时，0 表示不限制
	Timeout time.Duration

	History HistoryStore
	Metrics *metrics.Collector
	Tracer  *telemetry.PlanTracer
	Logger  *zap.Logger
}

// Planner 装配并运行行程规划 Crew
type Planner struct {
	mu   sync.RWMutex
	defs *configs.Definitions

	provider    llm.Provider
	model       string
	temperature float32

	search          tools.WebSearchProvider
	searchOpts      tools.WebSearchOptions
	searchRateLimit *tools.RateLimitConfig

	maxIter   int
	budget    int
	tokenizer tokenizer.Tokenizer
	verbose   bool
	timeout   time.Duration

	history HistoryStore
	metrics *metrics.Collector
	tracer  *telemetry.PlanTracer
	logger  *zap.Logger
}

// New 创建 Planner。Definitions 与 Provider 必填。
func New(opts Options) (*Planner, error) {
	if opts.Definitions == nil {
		return nil, types.NewError(types.ErrConfig, "planner requires agent and task definitions")
	}
	if opts.Provider == nil {
		return nil, types.NewError(types.ErrConfig, "planner requires an llm provider")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Tokenizer == nil {
		opts.Tokenizer = tokenizer.ForModel(opts.Model)
	}
	if opts.Tracer == nil {
		tracer, err := telemetry.NewPlanTracer(nil, nil)
		if err != nil {
			return nil, fmt.Errorf("create plan tracer: %w", err)
		}
		opts.Tracer = tracer
	}
	return &Planner{
		defs:            opts.Definitions,
		provider:        opts.Provider,
		model:           opts.Model,
		temperature:     opts.Temperature,
		search:          opts.Search,
		searchOpts:      opts.SearchOptions,
		searchRateLimit: opts.SearchRateLimit,
		maxIter:         opts.MaxIterations,
		budget:          opts.ContextTokenBudget,
		tokenizer:       opts.Tokenizer,
		verbose:         opts.Verbose,
		timeout:         opts.Timeout,
		history:         opts.History,
		metrics:         opts.Metrics,
		tracer:          opts.Tracer,
		logger:          opts.Logger.With(zap.String("component", "planner")),
	}, nil
}

// Reload 替换定义，之后的运行使用新定义；进行中的运行不受影响
func (p *Planner) Reload(defs *configs.Definitions) error {
	if defs == nil {
		return errors.New("definitions are nil")
	}
	p.mu.Lock()
	p.defs = defs
	p.mu.Unlock()
	p.logger.Info("definitions reloaded",
		zap.String("source", defs.Source),
		zap.Strings("agents", defs.Agents.Names()),
		zap.Strings("tasks", defs.Tasks.Names()))
	return nil
}

// Definitions 返回当前定义
func (p *Planner) Definitions() *configs.Definitions {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.defs
}

// Provider 返回底层 Provider，用于健康检查
func (p *Planner) Provider() llm.Provider { return p.provider }

// BuildTravelCrew 按定义构建 researcher → planner 的顺序 Crew。
// 每次调用都返回新对象。
func (p *Planner) BuildTravelCrew() (*crews.Crew, error) {
	defs := p.Definitions()
	b := newBuilder(p, defs)

	research, err := b.task(ResearchTask, ResearcherAgent)
	if err != nil {
		return nil, err
	}
	planning, err := b.task(PlanningTask, PlannerAgent)
	if err != nil {
		return nil, err
	}
	// 定义未声明 context 时，规划任务依赖研究任务
	if planning.Context == nil {
		planning.Context = []*crews.Task{research}
	}
	if planning.OutputSchema == nil {
		schema, err := structured.DefaultRegistry.Lookup(itinerary.SchemaName)
		if err != nil {
			return nil, err
		}
		planning.OutputSchema = schema
	}

	crew := p.newCrew(TravelCrewName)
	for _, a := range b.agentList() {
		crew.AddAgent(a)
	}
	crew.AddTask(research).AddTask(planning)
	if err := crew.Validate(); err != nil {
		return nil, types.WrapError(err, types.ErrConfig, "invalid travel crew")
	}
	return crew, nil
}

// buildSuggestCrew 构建单 Agent 推荐 Crew
func (p *Planner) buildSuggestCrew() (*crews.Crew, error) {
	b := newBuilder(p, p.Definitions())
	task, err := b.task(SuggestTask, TravelAgent)
	if err != nil {
		return nil, err
	}
	crew := p.newCrew(SuggestCrewName)
	for _, a := range b.agentList() {
		crew.AddAgent(a)
	}
	crew.AddTask(task)
	if err := crew.Validate(); err != nil {
		return nil, types.WrapError(err, types.ErrConfig, "invalid suggest crew")
	}
	return crew, nil
}

func (p *Planner) newCrew(name string) *crews.Crew {
	return crews.NewCrew(crews.CrewConfig{
		Name:               name,
		Process:            crews.ProcessSequential,
		Verbose:            p.verbose,
		ContextTokenBudget: p.budget,
		Tokenizer:          p.tokenizer,
	}, p.logger)
}

// builder 在一次构建中缓存 Agent 与 Task，保证同名只创建一次
type builder struct {
	p      *Planner
	defs   *configs.Definitions
	agents map[string]*crews.Agent
	order  []string
	tasks  map[string]*crews.Task
}

func newBuilder(p *Planner, defs *configs.Definitions) *builder {
	return &builder{
		p:      p,
		defs:   defs,
		agents: make(map[string]*crews.Agent),
		tasks:  make(map[string]*crews.Task),
	}
}

func (b *builder) agentList() []*crews.Agent {
	out := make([]*crews.Agent, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, b.agents[name])
	}
	return out
}

func (b *builder) agent(name string) (*crews.Agent, error) {
	if a, ok := b.agents[name]; ok {
		return a, nil
	}
	cfg, err := b.defs.Agents.Agent(name)
	if err != nil {
		return nil, types.WrapError(err, types.ErrConfig, "load agent definition")
	}

	model := b.p.model
	if cfg.LLM != "" {
		model = cfg.LLM
	}
	maxIter := b.p.maxIter
	if cfg.MaxIter > 0 {
		maxIter = cfg.MaxIter
	}

	var registry *tools.Registry
	if cfg.HasTool(searchToolAlias, tools.SearchToolName) {
		if b.p.search == nil {
			b.p.logger.Warn("agent lists the search tool but search is disabled", zap.String("agent", name))
		} else {
			registry, err = b.p.searchRegistry()
			if err != nil {
				return nil, err
			}
		}
	}

	a := crews.NewAgent(crews.AgentConfig{
		Role:        cfg.Role,
		Goal:        cfg.Goal,
		Backstory:   cfg.Backstory,
		Provider:    b.p.provider,
		Model:       model,
		Tools:       registry,
		MaxIter:     maxIter,
		Temperature: b.p.temperature,
		Verbose:     cfg.Verbose && b.p.verbose,
	}, b.p.logger)
	b.agents[name] = a
	b.order = append(b.order, name)
	return a, nil
}

// task 构建任务；定义未指定 agent 时使用 defaultAgent
func (b *builder) task(name, defaultAgent string) (*crews.Task, error) {
	if t, ok := b.tasks[name]; ok {
		return t, nil
	}
	cfg, err := b.defs.Tasks.Task(name)
	if err != nil {
		return nil, types.WrapError(err, types.ErrConfig, "load task definition")
	}
	agentName := cfg.Agent
	if agentName == "" {
		agentName = defaultAgent
	}
	agent, err := b.agent(agentName)
	if err != nil {
		return nil, err
	}

	t := &crews.Task{
		Name:           name,
		Description:    cfg.Description,
		ExpectedOutput: cfg.ExpectedOutput,
		Agent:          agent,
	}
	for _, dep := range cfg.Context {
		dt, ok := b.tasks[dep]
		if !ok {
			return nil, types.NewError(types.ErrConfig,
				fmt.Sprintf("task %q uses context %q which is not built before it", name, dep))
		}
		t.Context = append(t.Context, dt)
	}
	if cfg.OutputSchema != "" {
		schema, err := structured.DefaultRegistry.Lookup(cfg.OutputSchema)
		if err != nil {
			return nil, types.WrapError(err, types.ErrConfig, "unknown output schema")
		}
		t.OutputSchema = schema
	}
	b.tasks[name] = t
	return t, nil
}

func (p *Planner) searchRegistry() (*tools.Registry, error) {
	cfg := tools.DefaultWebSearchToolConfig(p.search)
	if p.searchOpts.MaxResults > 0 {
		cfg.DefaultOpts.MaxResults = p.searchOpts.MaxResults
	}
	if p.searchOpts.Region != "" {
		cfg.DefaultOpts.Region = p.searchOpts.Region
	}
	if p.searchRateLimit != nil {
		cfg.RateLimit = p.searchRateLimit
	}
	fn, meta := tools.NewWebSearchTool(cfg, p.logger)

	registry := tools.NewRegistry(p.logger)
	if err := registry.Register(tools.SearchToolName, fn, meta); err != nil {
		return nil, fmt.Errorf("register search tool: %w", err)
	}
	return registry, nil
}
