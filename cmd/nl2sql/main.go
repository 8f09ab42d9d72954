// nl2sql 将自然语言问题转换为SQL并在本地SQLite数据库上执行
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"go.uber.org/zap"

	"sqlroute-go/internal/ai"
	"sqlroute-go/internal/config"
	"sqlroute-go/internal/database"
	"sqlroute-go/internal/service"
)

func main() {
	dbPath := flag.String("db", "data/data.db", "SQLite数据库文件路径")
	tableName := flag.String("table", "countries_data", "目标表名")
	question := flag.String("query", "How many habitants does Egypt have?", "自然语言查询")
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
	modelConfig, err := config.LoadModelConfigFromEnv()
	if err != nil {
		logger.Fatal("Failed to load LLM configuration", zap.Error(err))
	}

	dbConfig := config.DefaultSQLiteConfig()
	dbConfig.Path = *dbPath

	dbManager, err := database.NewManager(dbConfig, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database manager", zap.Error(err))
	}

	introspector := service.NewSchemaIntrospector(dbManager, logger)
	executor := service.NewSQLExecutor(dbManager, logger)
	llmClient, err := ai.NewLLMClient(modelConfig, logger)
	if err != nil {
		logger.Fatal("Failed to initialize LLM client", zap.Error(err))
	}

	nl2sqlService, err := service.NewNL2SQLService(introspector, executor, llmClient, nil, logger)
	if err != nil {
		logger.Fatal("Failed to initialize NL2SQL service", zap.Error(err))
	}

	result, err := nl2sqlService.ConvertAndRun(context.Background(), *tableName, *question)
	if err != nil {
		logger.Fatal("NL2SQL pipeline failed", zap.Error(err))
	}

	printResult(result)
}

// printResult 打印流水线结果
// 模型回复格式错误和SQL执行失败都是该请求的终态，按退出码区分
func printResult(result *service.ConvertResult) {
	if !result.SQLPresent {
		fmt.Printf("Could not extract a SQL query from the model reply: %s\n", result.ParseError)
		os.Exit(1)
	}

	fmt.Printf("Generated SQL: %s\n", result.SQL)

	if result.Result == nil || result.Result.Status != service.QueryStatusSuccess {
		if result.Result != nil {
			fmt.Printf("SQL execution failed: %s\n", result.Result.Error)
		}
		os.Exit(1)
	}

	fmt.Println("SQL Query Result:")
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)

	header := make(table.Row, len(result.Result.Columns))
	for i, name := range result.Result.Columns {
		header[i] = name
	}
	t.AppendHeader(header)

	for _, row := range result.Result.Rows {
		t.AppendRow(table.Row(row))
	}
	t.Render()
}
