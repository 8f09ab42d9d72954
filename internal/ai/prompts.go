// Package ai 提供NL2SQL提示词构建、LLM调用和响应解析能力
package ai

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"
)

// NL2SQL固定提示词模板
// 要求模型先查阅database info部分，并且只返回{"sql_query": ...}形状的JSON对象
const NL2SQLPromptTemplate = `You are a software engineer specialized in converting natural language query to SQL query. Follow closely the provided instructions.

# Instructions
- Always look up closely to the 'database info' section before converting the natural language query into a SQL query
- Always follow the provided output format
- ONLY include the SQL query to the user in your response

# Database info
<column_info table_name="{{.TableName}}">
Info about the columns of the table:
{{.ColumnInfo}}
</column_info>

<table_sample table_name="{{.TableName}}">
The first three rows of the table:
{{.TableSample}}
</table_sample>

# Output format
Always provide the response according to the following output format:
{"sql_query": <sql_query>}

# Natural language query
{{.NLQuery}}
`

// PromptBuilder NL2SQL提示词构建器
// 纯函数语义：相同输入必然产生相同的提示词字符串
type PromptBuilder struct {
	template prompts.PromptTemplate
}

// NewPromptBuilder 创建提示词构建器
func NewPromptBuilder() *PromptBuilder {
	template := prompts.NewPromptTemplate(
		NL2SQLPromptTemplate,
		[]string{"TableName", "ColumnInfo", "TableSample", "NLQuery"},
	)

	return &PromptBuilder{template: template}
}

// Build 渲染NL2SQL提示词
// columnInfo和tableSample是已渲染好的文本描述，由调用方从introspection结果生成
func (b *PromptBuilder) Build(tableName, columnInfo, tableSample, nlQuery string) (string, error) {
	if strings.TrimSpace(nlQuery) == "" {
		return "", fmt.Errorf("自然语言查询不能为空")
	}
	if strings.TrimSpace(tableName) == "" {
		return "", fmt.Errorf("表名不能为空")
	}

	prompt, err := b.template.Format(map[string]any{
		"TableName":   tableName,
		"ColumnInfo":  columnInfo,
		"TableSample": tableSample,
		"NLQuery":     nlQuery,
	})
	if err != nil {
		return "", fmt.Errorf("提示词格式化失败: %w", err)
	}

	return prompt, nil
}
