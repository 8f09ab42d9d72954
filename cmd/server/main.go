package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sqlroute-go/internal/ai"
	"sqlroute-go/internal/config"
	"sqlroute-go/internal/database"
	"sqlroute-go/internal/handler"
	"sqlroute-go/internal/metrics"
	"sqlroute-go/internal/routing"
	"sqlroute-go/internal/service"
)

func main() {
	// 初始化日志
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting SQLRoute Server",
		zap.String("version", "0.1.0"),
		zap.String("go_version", runtime.Version()))

	// 加载环境变量
	if err := config.LoadEnv(".env"); err != nil {
		logger.Warn("Failed to load .env file", zap.Error(err))
	}

	// 初始化配置，缺失的API密钥在启动期即致命
	modelConfig, err := config.LoadModelConfigFromEnv()
	if err != nil {
		logger.Fatal("Failed to load LLM configuration", zap.Error(err))
	}
	encoderConfig, err := config.LoadEncoderConfigFromEnv()
	if err != nil {
		logger.Fatal("Failed to load encoder configuration", zap.Error(err))
	}
	dbConfig := config.LoadSQLiteConfigFromEnv()

	// 初始化数据库管理器并验证数据库文件可用
	dbManager, err := database.NewManager(dbConfig, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database manager", zap.Error(err))
	}
	if err := dbManager.HealthCheck(context.Background()); err != nil {
		logger.Fatal("Database health check failed", zap.Error(err))
	}
	logger.Info("Database connection verified", zap.String("path", dbConfig.Path))

	// 初始化Prometheus指标
	prometheusMetrics := metrics.NewPrometheusMetrics(metrics.DefaultMetricsConfig(), logger)

	// 初始化NL2SQL流水线
	introspector := service.NewSchemaIntrospector(dbManager, logger)
	executor := service.NewSQLExecutorWithConfig(dbManager, &service.SQLExecutorConfig{
		QueryTimeout: dbManager.QueryTimeout(),
	}, logger)
	llmClient, err := ai.NewLLMClient(modelConfig, logger)
	if err != nil {
		logger.Fatal("Failed to initialize LLM client", zap.Error(err))
	}
	nl2sqlService, err := service.NewNL2SQLService(introspector, executor, llmClient, prometheusMetrics, logger)
	if err != nil {
		logger.Fatal("Failed to initialize NL2SQL service", zap.Error(err))
	}

	// 初始化语义路由器并同步路由索引
	encoder, err := routing.NewOpenAIEncoder(encoderConfig, logger)
	if err != nil {
		logger.Fatal("Failed to initialize embedding encoder", zap.Error(err))
	}
	semanticRouter, err := routing.NewSemanticRouter(
		routing.DefaultRouterConfig(routing.DefaultRoutes()), encoder, logger)
	if err != nil {
		logger.Fatal("Failed to initialize semantic router", zap.Error(err))
	}
	if err := semanticRouter.Sync(context.Background()); err != nil {
		logger.Fatal("Failed to sync route index", zap.Error(err))
	}
	logger.Info("Semantic router synced")

	// 初始化处理器
	nl2sqlHandler := handler.NewNL2SQLHandler(nl2sqlService, logger)
	routeHandler := handler.NewRouteHandler(semanticRouter, prometheusMetrics, logger)
	healthHandler := handler.NewHealthHandler(dbManager, config.DefaultAppInfo(), logger)

	// 初始化Gin路由器
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	handler.SetupRoutes(engine, &handler.RouterConfig{
		NL2SQLHandler: nl2sqlHandler,
		RouteHandler:  routeHandler,
		HealthHandler: healthHandler,
		Metrics:       prometheusMetrics,
	})

	// 启动HTTP服务器
	addr := ":8080"
	if port := os.Getenv("SERVER_PORT"); port != "" {
		addr = ":" + port
	}
	server := &http.Server{
		Addr:         addr,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exited")
}
