package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ConnectionProvider 作用域连接提供者
// 实现方负责在fn返回后关闭连接，调用方不得保留*sql.DB引用
type ConnectionProvider interface {
	WithConn(ctx context.Context, fn func(db *sql.DB) error) error
}

// ColumnDescriptor 表列元数据
// 由introspection产生，仅用于提示词渲染，不做持久化
type ColumnDescriptor struct {
	ColumnID int    `json:"column_id"` // 列序号，从0开始严格递增
	Name     string `json:"name"`      // 列名
	Type     string `json:"type"`      // 声明的SQL类型
}

// SchemaIntrospector 数据库Schema探测器
// 通过PRAGMA table_info探测目标表的列元数据，并抓取有界的行样本
type SchemaIntrospector struct {
	conns       ConnectionProvider // 连接提供者
	logger      *zap.Logger        // 日志器
	sampleLimit int                // 样本行数上限
}

// NewSchemaIntrospector 创建Schema探测器
func NewSchemaIntrospector(conns ConnectionProvider, logger *zap.Logger) *SchemaIntrospector {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SchemaIntrospector{
		conns:       conns,
		logger:      logger,
		sampleLimit: 3,
	}
}

// ListColumns 返回目标表的列描述，按表的原生列顺序排列
// 表不存在和零列表都返回空切片和nil错误，两者只能靠上下文区分；
// 查找机制本身失败（文件无法打开、语句非法）时返回非nil错误
func (si *SchemaIntrospector) ListColumns(ctx context.Context, tableName string) ([]ColumnDescriptor, error) {
	var columns []ColumnDescriptor

	err := si.conns.WithConn(ctx, func(db *sql.DB) error {
		query := fmt.Sprintf("PRAGMA table_info(%s)", quoteLiteral(tableName))

		rows, err := db.QueryContext(ctx, query)
		if err != nil {
			return fmt.Errorf("执行table_info查询失败: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				cid          int
				name, ctype  string
				notNull      int
				defaultValue sql.NullString
				pk           int
			)
			if err := rows.Scan(&cid, &name, &ctype, &notNull, &defaultValue, &pk); err != nil {
				return fmt.Errorf("扫描列元数据失败: %w", err)
			}
			columns = append(columns, ColumnDescriptor{
				ColumnID: cid,
				Name:     name,
				Type:     ctype,
			})
		}

		return rows.Err()
	})
	if err != nil {
		si.logger.Error("schema introspection failed",
			zap.String("table", tableName),
			zap.Error(err))
		return nil, err
	}

	si.logger.Debug("schema introspection completed",
		zap.String("table", tableName),
		zap.Int("column_count", len(columns)))

	return columns, nil
}

// TableSample 返回目标表的前若干行，最多sampleLimit行
// 每行是按列序排列的值元组；表为空时返回空切片
func (si *SchemaIntrospector) TableSample(ctx context.Context, tableName string) ([][]any, error) {
	var sample [][]any

	err := si.conns.WithConn(ctx, func(db *sql.DB) error {
		query := fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoteIdentifier(tableName), si.sampleLimit)

		rows, err := db.QueryContext(ctx, query)
		if err != nil {
			return fmt.Errorf("抓取表样本失败: %w", err)
		}
		defer rows.Close()

		columnNames, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("读取样本列名失败: %w", err)
		}

		for rows.Next() {
			values := make([]any, len(columnNames))
			pointers := make([]any, len(columnNames))
			for i := range values {
				pointers[i] = &values[i]
			}
			if err := rows.Scan(pointers...); err != nil {
				return fmt.Errorf("扫描样本行失败: %w", err)
			}
			for i, v := range values {
				if b, ok := v.([]byte); ok {
					values[i] = string(b)
				}
			}
			sample = append(sample, values)
		}

		return rows.Err()
	})
	if err != nil {
		si.logger.Error("table sample failed",
			zap.String("table", tableName),
			zap.Error(err))
		return nil, err
	}

	return sample, nil
}

// FormatColumnInfo 将列描述渲染为提示词用的JSON文本
func FormatColumnInfo(columns []ColumnDescriptor) string {
	if len(columns) == 0 {
		return "[]"
	}

	data, err := json.Marshal(columns)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// FormatTableSample 将样本行渲染为提示词用的文本
func FormatTableSample(sample [][]any) string {
	if len(sample) == 0 {
		return "[]"
	}

	var builder strings.Builder
	builder.WriteString("[")
	for i, row := range sample {
		if i > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString("(")
		for j, v := range row {
			if j > 0 {
				builder.WriteString(", ")
			}
			switch value := v.(type) {
			case string:
				builder.WriteString(fmt.Sprintf("%q", value))
			case nil:
				builder.WriteString("NULL")
			default:
				builder.WriteString(fmt.Sprintf("%v", value))
			}
		}
		builder.WriteString(")")
	}
	builder.WriteString("]")
	return builder.String()
}

// quoteLiteral 将字符串包装为SQL单引号字面量，内嵌单引号加倍转义
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// quoteIdentifier 将标识符包装为SQL双引号形式，内嵌双引号加倍转义
func quoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
