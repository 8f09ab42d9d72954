package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// 查询执行状态
const (
	QueryStatusSuccess = "success"
	QueryStatusError   = "error"
)

// SQLExecutor SQL执行器
// 在作用域连接上执行模型生成的SQL，支持超时控制和行数上限
type SQLExecutor struct {
	conns        ConnectionProvider // 连接提供者
	logger       *zap.Logger        // 日志器
	queryTimeout time.Duration      // 查询超时时间
	maxRows      int                // 最大返回行数
}

// SQLExecutorConfig SQL执行器配置
type SQLExecutorConfig struct {
	QueryTimeout time.Duration `json:"query_timeout"` // 查询超时时间，默认30秒
	MaxRows      int           `json:"max_rows"`      // 最大返回行数，默认1000行
}

// QueryResult SQL查询结果
// 空行集是合法结果（零条匹配），与执行失败严格区分
type QueryResult struct {
	Columns       []string `json:"columns"`         // 列名
	Rows          [][]any  `json:"rows"`            // 数据行
	RowCount      int      `json:"row_count"`       // 行数
	ExecutionTime int64    `json:"execution_time"`  // 执行时间(毫秒)
	Status        string   `json:"status"`          // 执行状态
	Error         string   `json:"error,omitempty"` // 错误信息
}

// NewSQLExecutor 创建SQL执行器
func NewSQLExecutor(conns ConnectionProvider, logger *zap.Logger) *SQLExecutor {
	return NewSQLExecutorWithConfig(conns, nil, logger)
}

// NewSQLExecutorWithConfig 使用自定义配置创建SQL执行器
func NewSQLExecutorWithConfig(conns ConnectionProvider, config *SQLExecutorConfig, logger *zap.Logger) *SQLExecutor {
	if config == nil {
		config = &SQLExecutorConfig{}
	}
	if config.QueryTimeout <= 0 {
		config.QueryTimeout = 30 * time.Second
	}
	if config.MaxRows <= 0 {
		config.MaxRows = 1000
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SQLExecutor{
		conns:        conns,
		logger:       logger,
		queryTimeout: config.QueryTimeout,
		maxRows:      config.MaxRows,
	}
}

// Execute 执行SQL查询并收集全部结果行
// 执行失败（语法错误、对象缺失、类型不匹配）是该请求的终态：
// 记录日志、返回错误状态的结果，不重试
func (e *SQLExecutor) Execute(ctx context.Context, sqlText string) (*QueryResult, error) {
	start := time.Now()

	e.logger.Info("executing SQL query", zap.String("sql", sqlText))

	queryCtx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	var result *QueryResult
	err := e.conns.WithConn(queryCtx, func(db *sql.DB) error {
		rows, err := db.QueryContext(queryCtx, sqlText)
		if err != nil {
			return err
		}
		defer rows.Close()

		collected, err := e.collectRows(rows)
		if err != nil {
			return err
		}
		result = collected
		return nil
	})
	if err != nil {
		e.logger.Error("SQL execution failed",
			zap.String("sql", sqlText),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return &QueryResult{
			Status:        QueryStatusError,
			Error:         err.Error(),
			ExecutionTime: time.Since(start).Milliseconds(),
		}, fmt.Errorf("SQL执行失败: %w", err)
	}

	result.Status = QueryStatusSuccess
	result.ExecutionTime = time.Since(start).Milliseconds()

	e.logger.Info("SQL query completed",
		zap.Int("row_count", result.RowCount),
		zap.Int64("execution_time_ms", result.ExecutionTime))

	return result, nil
}

// collectRows 收集查询结果，行数超过上限时截断
func (e *SQLExecutor) collectRows(rows *sql.Rows) (*QueryResult, error) {
	columnNames, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("读取结果列名失败: %w", err)
	}

	result := &QueryResult{
		Columns: columnNames,
		Rows:    [][]any{},
	}

	for rows.Next() {
		if result.RowCount >= e.maxRows {
			e.logger.Warn("result truncated at row limit", zap.Int("max_rows", e.maxRows))
			break
		}

		values := make([]any, len(columnNames))
		pointers := make([]any, len(columnNames))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("扫描结果行失败: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}

		result.Rows = append(result.Rows, values)
		result.RowCount++
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历结果集失败: %w", err)
	}

	return result, nil
}
