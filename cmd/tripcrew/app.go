package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/tripcrew/config"
	"github.com/BaSui01/tripcrew/configs"
	"github.com/BaSui01/tripcrew/internal/cache"
	"github.com/BaSui01/tripcrew/internal/database"
	"github.com/BaSui01/tripcrew/internal/history"
	"github.com/BaSui01/tripcrew/internal/metrics"
	"github.com/BaSui01/tripcrew/internal/migration"
	"github.com/BaSui01/tripcrew/llm"
	"github.com/BaSui01/tripcrew/llm/providers/gemini"
	"github.com/BaSui01/tripcrew/llm/providers/openai"
	"github.com/BaSui01/tripcrew/llm/retry"
	"github.com/BaSui01/tripcrew/llm/tools"
	"github.com/BaSui01/tripcrew/planner"
	"github.com/BaSui01/tripcrew/types"
)

// =============================================================================
// 🧩 依赖装配
// =============================================================================

// providerFactory 创建 LLM Provider，测试中替换为 mock
var providerFactory = newProvider

// app 是一次命令执行所需的全部依赖
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	provider llm.Provider
	cache    *cache.Manager
	pool     *database.PoolManager
	history  *history.Repository
	metrics  *metrics.Collector
	planner  *planner.Planner

	closers []func() error
}

type appOptions struct {
	// 服务端传入收集器，CLI 不采集 Prometheus 指标
	metrics *metrics.Collector
}

// newApp 按配置装配 provider、搜索、缓存、历史与 planner。
// Redis 与数据库不可用时降级运行，只记录警告。
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, logger: logger, metrics: opts.metrics}

	defs, err := configs.Load(cfg.Crew)
	if err != nil {
		return nil, types.WrapError(err, types.ErrConfig, "failed to load crew definitions")
	}

	provider, err := providerFactory(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, err
	}
	provider = retry.WrapProvider(provider, retryPolicy(cfg.LLM), logger)
	if a.metrics != nil {
		provider = metrics.InstrumentProvider(provider, a.metrics, cfg.LLM.Model)
	}
	a.provider = provider

	a.initCache()
	if err := a.initHistory(ctx); err != nil {
		logger.Warn("history store not available, runs will not be recorded", zap.Error(err))
	}

	popts := planner.Options{
		Definitions:        defs,
		Provider:           a.provider,
		Model:              cfg.LLM.Model,
		Temperature:        float32(cfg.LLM.Temperature),
		SearchOptions:      tools.WebSearchOptions{MaxResults: cfg.Search.MaxResults, Region: cfg.Search.Region},
		MaxIterations:      cfg.Crew.MaxIterations,
		ContextTokenBudget: cfg.Crew.ContextTokenBudget,
		Verbose:            cfg.Crew.Verbose,
		Timeout:            cfg.Crew.Timeout,
		Metrics:            a.metrics,
		Logger:             logger,
	}
	if cfg.Search.Enabled {
		search, err := a.searchProvider()
		if err != nil {
			a.close()
			return nil, err
		}
		popts.Search = search
		if cfg.Search.RateLimitPerMinute > 0 {
			popts.SearchRateLimit = &tools.RateLimitConfig{MaxCalls: cfg.Search.RateLimitPerMinute, Window: time.Minute}
		}
	}
	if a.history != nil {
		popts.History = a.history
	}

	a.planner, err = planner.New(popts)
	if err != nil {
		a.close()
		return nil, err
	}
	logger.Info("planner ready",
		zap.String("provider", a.provider.Name()),
		zap.String("model", cfg.LLM.Model),
		zap.String("definitions", defs.Source),
		zap.Bool("search", cfg.Search.Enabled),
		zap.Bool("history", a.history != nil),
	)
	return a, nil
}

// close 按创建的逆序释放资源
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}

func (a *app) initCache() {
	if !a.cfg.Redis.Enabled {
		return
	}
	m, err := cache.NewManager(cache.FromAppConfig(a.cfg.Redis), a.logger)
	if err != nil {
		a.logger.Warn("redis not available, search results will not be cached", zap.Error(err))
		return
	}
	a.cache = m
	a.closers = append(a.closers, m.Close)
}

func (a *app) initHistory(ctx context.Context) error {
	dbCfg := a.cfg.Database
	if !dbCfg.Enabled {
		return nil
	}
	if dbCfg.AutoMigrate {
		if err := migration.MigrateUp(ctx, dbCfg, a.logger); err != nil {
			return err
		}
	}
	db, err := database.Open(dbCfg.Driver, dbCfg.DSN(), a.logger)
	if err != nil {
		return err
	}

	poolCfg := database.DefaultPoolConfig()
	if dbCfg.MaxOpenConns > 0 {
		poolCfg.MaxOpenConns = dbCfg.MaxOpenConns
	}
	if dbCfg.MaxIdleConns > 0 {
		poolCfg.MaxIdleConns = dbCfg.MaxIdleConns
	}
	if dbCfg.ConnMaxLifetime > 0 {
		poolCfg.ConnMaxLifetime = dbCfg.ConnMaxLifetime
	}
	pool, err := database.NewPoolManager(db, poolCfg, a.logger)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return err
	}
	if a.metrics != nil {
		pool.StartHealthCheck(func(s database.PoolStats) {
			a.metrics.RecordDBConnections(dbCfg.Driver, s.OpenConnections, s.Idle)
		})
	}
	a.pool = pool
	a.history = history.NewRepository(pool.DB(), a.logger)
	if a.metrics != nil {
		a.history.WithQueryObserver(func(op string, d time.Duration) {
			a.metrics.RecordDBQuery(dbCfg.Driver, op, d)
		})
	}
	a.closers = append(a.closers, pool.Close)
	return nil
}

// searchProvider 返回 DuckDuckGo 搜索，外层加缓存与并发合并
func (a *app) searchProvider() (tools.WebSearchProvider, error) {
	sc := a.cfg.Search
	ddg, err := tools.NewDuckDuckGoProvider(sc.Endpoint, sc.Timeout, a.logger)
	if err != nil {
		return nil, types.WrapError(err, types.ErrConfig, "failed to create search provider")
	}

	var store tools.SearchCache
	if a.cache != nil {
		store = a.cache
	}
	cached := tools.NewCachedSearchProvider(ddg, store, sc.CacheTTL, a.logger)
	if a.metrics != nil {
		cached.OnLookup(a.metrics.CacheLookup("search"))
	}
	return cached, nil
}

// =============================================================================
// 🤖 LLM Provider 工厂
// =============================================================================

func newProvider(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (llm.Provider, error) {
	switch cfg.Provider {
	case "gemini":
		p, err := gemini.New(ctx, gemini.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, logger)
		if err != nil {
			return nil, types.WrapError(err, types.ErrConfig, "failed to create gemini provider")
		}
		return p, nil
	case "openai", "":
		if cfg.APIKey == "" {
			return nil, types.NewError(types.ErrConfig, "llm api key is required (set TRIPCREW_LLM_API_KEY or OPENAI_API_KEY)")
		}
		return openai.New(openai.Config{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			Model:        cfg.Model,
			Organization: cfg.Organization,
			Timeout:      cfg.Timeout,
		}, logger), nil
	default:
		return nil, types.NewError(types.ErrConfig, "unsupported llm provider: "+cfg.Provider)
	}
}

func retryPolicy(cfg config.LLMConfig) retry.Policy {
	policy := retry.DefaultPolicy()
	policy.MaxRetries = cfg.MaxRetries
	return policy
}
