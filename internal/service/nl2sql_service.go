// NL2SQL服务提供自然语言到SQL的完整流水线编排
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sqlroute-go/internal/ai"
	"sqlroute-go/internal/metrics"
)

// SQLGenerator 语言模型边界
// *ai.LLMClient是默认实现
type SQLGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// NL2SQLService NL2SQL流水线编排器
// 顺序执行：Schema探测 → 提示词构建 → LLM调用 → 回复解析 → SQL执行
type NL2SQLService struct {
	introspector *SchemaIntrospector        // Schema探测器
	executor     *SQLExecutor               // SQL执行器
	llmClient    SQLGenerator               // LLM客户端
	prompts      *ai.PromptBuilder          // 提示词构建器
	metrics      *metrics.PrometheusMetrics // 业务指标，可为nil
	logger       *zap.Logger                // 日志器
}

// ConvertResult NL2SQL流水线结果
type ConvertResult struct {
	Table          string       `json:"table"`                 // 目标表名
	Question       string       `json:"question"`              // 自然语言查询
	SQL            string       `json:"sql,omitempty"`         // 解析出的SQL，解析失败时为空
	SQLPresent     bool         `json:"sql_present"`           // 回复中是否解析出了SQL
	ParseError     string       `json:"parse_error,omitempty"` // 回复格式错误详情
	RawReply       string       `json:"-"`                     // 模型原始回复
	Result         *QueryResult `json:"result,omitempty"`      // SQL执行结果
	ProcessingTime int64        `json:"processing_time_ms"`    // 总处理时间(毫秒)
}

// NewNL2SQLService 创建NL2SQL服务
func NewNL2SQLService(
	introspector *SchemaIntrospector,
	executor *SQLExecutor,
	llmClient SQLGenerator,
	pm *metrics.PrometheusMetrics,
	logger *zap.Logger,
) (*NL2SQLService, error) {
	if introspector == nil {
		return nil, fmt.Errorf("Schema探测器不能为空")
	}
	if executor == nil {
		return nil, fmt.Errorf("SQL执行器不能为空")
	}
	if llmClient == nil {
		return nil, fmt.Errorf("LLM客户端不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &NL2SQLService{
		introspector: introspector,
		executor:     executor,
		llmClient:    llmClient,
		prompts:      ai.NewPromptBuilder(),
		metrics:      pm,
		logger:       logger,
	}, nil
}

// ConvertAndRun 执行完整的NL2SQL流水线
// Schema探测失败降级为空上下文继续；传输层错误直接返回；
// 回复格式错误是可恢复状态：跳过执行，结果中SQLPresent=false；
// 解析出的SQL恰好执行一次，执行失败不重试、不修改解析结果
func (s *NL2SQLService) ConvertAndRun(ctx context.Context, tableName, question string) (*ConvertResult, error) {
	start := time.Now()

	result := &ConvertResult{
		Table:    tableName,
		Question: question,
	}

	// 1. Schema探测，失败时降级为空上下文
	columns, err := s.introspector.ListColumns(ctx, tableName)
	if err != nil {
		s.logger.Warn("schema lookup failed, continuing with empty schema context",
			zap.String("table", tableName),
			zap.Error(err))
		columns = nil
	}

	sample, err := s.introspector.TableSample(ctx, tableName)
	if err != nil {
		s.logger.Warn("table sample failed, continuing without sample",
			zap.String("table", tableName),
			zap.Error(err))
		sample = nil
	}

	// 2. 构建提示词
	prompt, err := s.prompts.Build(
		tableName,
		FormatColumnInfo(columns),
		FormatTableSample(sample),
		question,
	)
	if err != nil {
		return nil, fmt.Errorf("构建提示词失败: %w", err)
	}

	// 3. 调用LLM，传输层错误属于独立失败类别，直接向上传播
	llmStart := time.Now()
	rawReply, err := s.llmClient.Generate(ctx, prompt)
	if err != nil {
		s.metrics.RecordLLMRequest("error", time.Since(llmStart))
		return nil, err
	}
	s.metrics.RecordLLMRequest("success", time.Since(llmStart))
	result.RawReply = rawReply

	// 4. 严格解析回复
	parsed := ai.ParseSQLReply(rawReply)
	if !parsed.OK() {
		s.logger.Warn("model reply is not a valid NL2SQL response",
			zap.String("raw_reply", rawReply),
			zap.Error(parsed.Err))
		result.ParseError = parsed.Err.Error()
		result.ProcessingTime = time.Since(start).Milliseconds()
		return result, nil
	}

	result.SQL = parsed.SQL
	result.SQLPresent = true

	// 5. 执行SQL，恰好一次，失败即终态
	execStart := time.Now()
	queryResult, err := s.executor.Execute(ctx, parsed.SQL)
	if err != nil {
		s.metrics.RecordSQLExecution(QueryStatusError, time.Since(execStart))
		// 执行失败是该请求的终态，结果中保留错误状态供上层呈现
		result.Result = queryResult
		result.ProcessingTime = time.Since(start).Milliseconds()
		return result, nil
	}
	s.metrics.RecordSQLExecution(QueryStatusSuccess, time.Since(execStart))

	result.Result = queryResult
	result.ProcessingTime = time.Since(start).Milliseconds()

	s.logger.Info("NL2SQL pipeline completed",
		zap.String("table", tableName),
		zap.Int("row_count", queryResult.RowCount),
		zap.Int64("processing_time_ms", result.ProcessingTime))

	return result, nil
}
