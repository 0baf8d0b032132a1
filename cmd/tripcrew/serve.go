package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/tripcrew/agent/guardrails"
	"github.com/BaSui01/tripcrew/api/handlers"
	"github.com/BaSui01/tripcrew/config"
	"github.com/BaSui01/tripcrew/configs"
	"github.com/BaSui01/tripcrew/internal/metrics"
	"github.com/BaSui01/tripcrew/internal/server"
	"github.com/BaSui01/tripcrew/internal/telemetry"
	"github.com/BaSui01/tripcrew/types"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web planner and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.HTTPPort = port
			}
			logger := initLogger(cfg.Log)
			defer logger.Sync()

			logger.Info("Starting tripcrew",
				zap.String("version", Version),
				zap.String("build_time", BuildTime),
				zap.String("git_commit", GitCommit),
			)

			otelProviders, err := telemetry.Init(cmd.Context(), cfg.Telemetry, Version, logger)
			if err != nil {
				logger.Warn("failed to initialize telemetry", zap.Error(err))
			}

			collector := metrics.NewCollector("tripcrew", logger)
			a, err := newApp(cmd.Context(), cfg, logger, appOptions{metrics: collector})
			if err != nil {
				return err
			}

			s := NewServer(cfg, a, collector, logger)
			err = s.Run(cmd.Context())

			a.close()
			if otelProviders != nil {
				if shutdownErr := otelProviders.Shutdown(context.Background()); shutdownErr != nil {
					logger.Warn("telemetry shutdown failed", zap.Error(shutdownErr))
				}
			}
			logger.Info("tripcrew stopped")
			return err
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "HTTP port (overrides server.http_port)")
	return cmd
}

// =============================================================================
// 🖥️ Server
// =============================================================================

// Server 组装 HTTP 路由、Metrics 端口与定义文件热加载
type Server struct {
	cfg    *config.Config
	app    *app
	logger *zap.Logger

	httpManager    *server.Manager
	metricsManager *server.Manager

	healthHandler    *handlers.HealthHandler
	planHandler      *handlers.PlanHandler
	itineraryHandler *handlers.ItineraryHandler

	metricsCollector *metrics.Collector
	watcher          *config.FileWatcher
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config, a *app, collector *metrics.Collector, logger *zap.Logger) *Server {
	s := &Server{
		cfg:              cfg,
		app:              a,
		logger:           logger,
		metricsCollector: collector,
	}
	s.initHandlers()
	return s
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

func (s *Server) initHandlers() {
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	if s.app.pool != nil {
		s.healthHandler.RegisterCheck(handlers.NewDatabaseHealthCheck("database", s.app.pool.Ping))
	}
	if s.app.cache != nil {
		s.healthHandler.RegisterCheck(handlers.NewRedisHealthCheck("redis", s.app.cache.Ping))
	}
	s.healthHandler.RegisterCheck(handlers.NewProviderHealthCheck(s.app.provider))

	s.planHandler = handlers.NewPlanHandler(s.app.planner, s.logger).
		WithOriginPatterns(originHosts(s.cfg.Server.CORSAllowedOrigins)).
		WithInputGuard(guardrails.NewCityGuard())
	if s.app.history != nil {
		s.itineraryHandler = handlers.NewItineraryHandler(s.app.history, s.logger)
	}
}

// Handler 返回带中间件链的路由
func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()

	// 页面与静态资源
	mux.Handle("/", handlers.IndexHandler())
	mux.Handle("/static/", handlers.StaticHandler())

	// 规划
	mux.HandleFunc("/api/plan", s.planHandler.HandlePlan)
	mux.HandleFunc("/plan", s.planHandler.HandlePlan)
	mux.HandleFunc("GET /api/plan/stream", s.planHandler.HandleStream)

	// 历史
	if s.itineraryHandler != nil {
		mux.HandleFunc("GET /api/itineraries", s.itineraryHandler.HandleList)
		mux.HandleFunc("GET /api/itineraries/{id}", s.itineraryHandler.HandleGet)
	} else {
		disabled := func(w http.ResponseWriter, r *http.Request) {
			handlers.WriteError(w, types.NewError(types.ErrServiceUnavailable, "itinerary history is not enabled"), nil)
		}
		mux.HandleFunc("GET /api/itineraries", disabled)
		mux.HandleFunc("GET /api/itineraries/{id}", disabled)
	}

	// 健康检查
	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealth)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/readyz", s.healthHandler.HandleReady)
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		OTelTracing(),
	}
	if s.metricsCollector != nil {
		middlewares = append(middlewares, MetricsMiddleware(s.metricsCollector))
	}
	middlewares = append(middlewares,
		RequestLogger(s.logger),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RateLimiter(ctx, s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
		Auth(AuthConfig{
			APIKeys:      s.cfg.Server.APIKeys,
			JWTSecret:    s.cfg.Server.JWTSecret,
			JWTIssuer:    s.cfg.Server.JWTIssuer,
			SkipPaths:    []string{"/", "/health", "/healthz", "/ready", "/readyz", "/version"},
			SkipPrefixes: []string{"/static/"},
		}, s.logger),
	)
	return Chain(mux, middlewares...)
}

// =============================================================================
// 🚀 运行与关闭
// =============================================================================

// Run 启动 Metrics 端口与定义文件监听，然后阻塞在 HTTP 服务上直到 ctx 结束
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := s.startMetricsServer(); err != nil {
		return err
	}
	defer s.stopMetricsServer()

	if err := s.startDefinitionsWatcher(ctx); err != nil {
		s.logger.Warn("definitions watcher disabled", zap.Error(err))
	}
	defer s.stopDefinitionsWatcher()

	s.httpManager = server.NewManager(s.Handler(ctx), server.APIConfig(s.cfg.Server), s.logger)
	s.logger.Info("HTTP server starting", zap.Int("port", s.cfg.Server.HTTPPort))
	return s.httpManager.Run(ctx)
}

func (s *Server) startMetricsServer() error {
	if s.cfg.Server.MetricsPort == 0 || s.metricsCollector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s.metricsManager = server.NewManager(mux, server.MetricsConfig(s.cfg.Server), s.logger)
	if err := s.metricsManager.Start(); err != nil {
		return err
	}
	s.logger.Info("Metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

func (s *Server) stopMetricsServer() {
	if s.metricsManager == nil {
		return
	}
	if err := s.metricsManager.Shutdown(context.Background()); err != nil {
		s.logger.Error("Metrics server shutdown error", zap.Error(err))
	}
}

// startDefinitionsWatcher 监听 agents/tasks 文件，变更后重新加载并替换 planner 的定义
func (s *Server) startDefinitionsWatcher(ctx context.Context) error {
	crew := s.cfg.Crew
	if !crew.WatchDefinitions {
		return nil
	}
	var paths []string
	for _, p := range []string{crew.AgentsPath, crew.TasksPath} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return errors.New("watch_definitions needs agents_path or tasks_path")
	}

	w, err := config.NewFileWatcher(paths, config.WithWatcherLogger(s.logger))
	if err != nil {
		return err
	}
	w.OnChange(func(events []config.FileEvent) {
		s.reloadDefinitions()
	})
	if err := w.Start(ctx); err != nil {
		return err
	}
	s.watcher = w
	return nil
}

func (s *Server) reloadDefinitions() {
	defs, err := configs.Load(s.cfg.Crew)
	if err != nil {
		s.logger.Error("failed to reload crew definitions, keeping previous", zap.Error(err))
		return
	}
	if err := s.app.planner.Reload(defs); err != nil {
		s.logger.Error("rejected crew definitions, keeping previous", zap.Error(err))
		return
	}
	s.logger.Info("crew definitions reloaded", zap.String("source", defs.Source))
}

func (s *Server) stopDefinitionsWatcher() {
	if s.watcher != nil {
		s.watcher.Stop()
	}
}

// originHosts 把 CORS 来源转换为 WebSocket 的 host 模式
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			hosts = append(hosts, u.Host)
			continue
		}
		hosts = append(hosts, o)
	}
	return hosts
}
