// 模型回复解析
// 模型的原始回复是不可信文本，必须经过严格的JSON解码才能得到SQL语句

package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SQLParseResult 模型回复的解析结果
// 解析失败是可恢复状态：SQL为空、Err记录失败原因，原始回复保留用于排查
type SQLParseResult struct {
	SQL string // 解析出的SQL语句，解析失败时为空
	Raw string // 模型原始回复
	Err error  // 解析失败原因，成功时为nil
}

// OK 判断解析是否成功，只有成功时才允许执行SQL
func (r SQLParseResult) OK() bool {
	return r.Err == nil
}

// ParseSQLReply 严格解析模型回复
// 回复必须是形如{"sql_query": "<string>"}的JSON对象；
// 非法JSON、缺少sql_query键或值为空都归为格式错误，不会抛出异常也不会重试
func ParseSQLReply(raw string) SQLParseResult {
	var payload struct {
		SQLQuery *string `json:"sql_query"`
	}

	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return SQLParseResult{
			Raw: raw,
			Err: fmt.Errorf("模型回复不是合法JSON: %w", err),
		}
	}

	if payload.SQLQuery == nil {
		return SQLParseResult{
			Raw: raw,
			Err: fmt.Errorf("模型回复缺少sql_query键"),
		}
	}

	sqlText := strings.TrimSpace(*payload.SQLQuery)
	if sqlText == "" {
		return SQLParseResult{
			Raw: raw,
			Err: fmt.Errorf("模型回复的sql_query为空"),
		}
	}

	return SQLParseResult{SQL: sqlText, Raw: raw}
}
