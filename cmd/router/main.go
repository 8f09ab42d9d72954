// router 批量分类查询并输出路由分配报告
package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"

	"sqlroute-go/internal/config"
	"sqlroute-go/internal/routing"
)

func main() {
	queriesPath := flag.String("queries", "queries.json", "输入查询文件路径")
	reportPath := flag.String("report", "report.json", "输出报告文件路径")
	threshold := flag.Float64("threshold", routing.DefaultScoreThreshold, "相似度阈值")
	syncMode := flag.String("sync", string(routing.SyncLocal), "路由索引同步模式: local或none")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := config.LoadEnv(".env"); err != nil {
		logger.Warn("Failed to load .env file", zap.Error(err))
	}

	// 缺失的API密钥在启动期即致命
	encoderConfig, err := config.LoadEncoderConfigFromEnv()
	if err != nil {
		logger.Fatal("Failed to load encoder configuration", zap.Error(err))
	}

	// 缺失的输入文件同样是启动期致命错误，不做部分执行
	records, err := routing.ReadQueries(*queriesPath)
	if err != nil {
		logger.Fatal("Failed to load queries", zap.Error(err))
	}

	encoder, err := routing.NewOpenAIEncoder(encoderConfig, logger)
	if err != nil {
		logger.Fatal("Failed to initialize embedding encoder", zap.Error(err))
	}

	routerConfig := routing.DefaultRouterConfig(routing.DefaultRoutes())
	routerConfig.ScoreThreshold = *threshold
	routerConfig.SyncMode = routing.SyncMode(*syncMode)

	semanticRouter, err := routing.NewSemanticRouter(routerConfig, encoder, logger)
	if err != nil {
		logger.Fatal("Failed to initialize semantic router", zap.Error(err))
	}

	ctx := context.Background()
	if err := semanticRouter.Sync(ctx); err != nil {
		logger.Fatal("Failed to sync route index", zap.Error(err))
	}

	classifier := routing.NewBatchClassifier(semanticRouter, logger)
	report, err := classifier.ClassifyAll(ctx, records)
	if err != nil {
		logger.Fatal("Batch classification aborted", zap.Error(err))
	}

	if err := routing.WriteReport(*reportPath, report); err != nil {
		logger.Fatal("Failed to write report", zap.Error(err))
	}

	logger.Info("Report written",
		zap.String("path", *reportPath),
		zap.Int("record_count", len(report)))
}
