// NL2SQL流水线编排测试
package service

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubGenerator 测试用LLM客户端，返回固定回复或固定错误
type stubGenerator struct {
	reply string
	err   error
	calls int
}

func (s *stubGenerator) Generate(_ context.Context, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

// newPipeline 组装一条由sqlmock支撑的测试流水线
func newPipeline(t *testing.T, generator *stubGenerator) (*NL2SQLService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	conns := &stubConnProvider{db: db}
	svc, err := NewNL2SQLService(
		NewSchemaIntrospector(conns, zap.NewNop()),
		NewSQLExecutor(conns, zap.NewNop()),
		generator,
		nil,
		zap.NewNop(),
	)
	require.NoError(t, err)

	return svc, mock
}

// expectIntrospection 声明探测阶段的两个查询
func expectIntrospection(mock sqlmock.Sqlmock, table string) {
	mock.ExpectQuery(regexp.QuoteMeta(fmt.Sprintf("PRAGMA table_info('%s')", table))).
		WillReturnRows(sqlmock.NewRows([]string{"cid", "name", "type", "notnull", "dflt_value", "pk"}).
			AddRow(0, "country", "TEXT", 0, nil, 0).
			AddRow(1, "population", "INTEGER", 0, nil, 0))
	mock.ExpectQuery(regexp.QuoteMeta(fmt.Sprintf(`SELECT * FROM "%s" LIMIT 3`, table))).
		WillReturnRows(sqlmock.NewRows([]string{"country", "population"}).
			AddRow("Egypt", 104000000))
}

// TestNL2SQLService_ConvertAndRun 测试成功路径
func TestNL2SQLService_ConvertAndRun(t *testing.T) {
	generator := &stubGenerator{reply: `{"sql_query": "SELECT population FROM countries_data WHERE country = 'Egypt'"}`}
	svc, mock := newPipeline(t, generator)

	expectIntrospection(mock, "countries_data")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT population FROM countries_data WHERE country = 'Egypt'")).
		WillReturnRows(sqlmock.NewRows([]string{"population"}).AddRow(104000000))

	result, err := svc.ConvertAndRun(context.Background(), "countries_data", "How many habitants does Egypt have?")
	require.NoError(t, err)

	assert.True(t, result.SQLPresent)
	assert.Equal(t, "SELECT population FROM countries_data WHERE country = 'Egypt'", result.SQL)
	require.NotNil(t, result.Result)
	assert.Equal(t, QueryStatusSuccess, result.Result.Status)
	assert.Equal(t, 1, result.Result.RowCount)
	assert.Equal(t, 1, generator.calls, "SQL生成只调用一次")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestNL2SQLService_MalformedReply 回复格式错误时跳过执行
func TestNL2SQLService_MalformedReply(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{name: "not_json", reply: "I cannot answer that"},
		{name: "missing_key", reply: `{"query": "SELECT 1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator := &stubGenerator{reply: tt.reply}
			svc, mock := newPipeline(t, generator)

			// 探测之后不应再有任何SQL执行
			expectIntrospection(mock, "countries_data")

			result, err := svc.ConvertAndRun(context.Background(), "countries_data", "How many habitants does Egypt have?")
			require.NoError(t, err, "格式错误是可恢复状态，不是错误")

			assert.False(t, result.SQLPresent)
			assert.Empty(t, result.SQL)
			assert.NotEmpty(t, result.ParseError)
			assert.Nil(t, result.Result, "执行必须被跳过")
			assert.NoError(t, mock.ExpectationsWereMet(), "不允许有执行阶段的查询")
		})
	}
}

// TestNL2SQLService_TransportError 传输层错误直接向上传播
func TestNL2SQLService_TransportError(t *testing.T) {
	generator := &stubGenerator{err: fmt.Errorf("LLM调用失败: 401 unauthorized")}
	svc, mock := newPipeline(t, generator)

	expectIntrospection(mock, "countries_data")

	result, err := svc.ConvertAndRun(context.Background(), "countries_data", "How many habitants does Egypt have?")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestNL2SQLService_DegradedSchema 探测失败降级为空上下文继续
func TestNL2SQLService_DegradedSchema(t *testing.T) {
	generator := &stubGenerator{reply: `{"sql_query": "SELECT 1"}`}
	svc, mock := newPipeline(t, generator)

	mock.ExpectQuery(regexp.QuoteMeta("PRAGMA table_info('countries_data')")).
		WillReturnError(fmt.Errorf("database is locked"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "countries_data" LIMIT 3`)).
		WillReturnError(fmt.Errorf("database is locked"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1")).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	result, err := svc.ConvertAndRun(context.Background(), "countries_data", "How many habitants does Egypt have?")
	require.NoError(t, err)

	assert.True(t, result.SQLPresent)
	require.NotNil(t, result.Result)
	assert.Equal(t, QueryStatusSuccess, result.Result.Status)
}

// TestNL2SQLService_ExecutionFailure 执行失败是终态，不影响解析结果
func TestNL2SQLService_ExecutionFailure(t *testing.T) {
	generator := &stubGenerator{reply: `{"sql_query": "SELECT * FROM missing_table"}`}
	svc, mock := newPipeline(t, generator)

	expectIntrospection(mock, "countries_data")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM missing_table")).
		WillReturnError(fmt.Errorf("no such table: missing_table"))

	result, err := svc.ConvertAndRun(context.Background(), "countries_data", "How many habitants does Egypt have?")
	require.NoError(t, err, "执行失败是该请求的终态，流水线本身不报错")

	assert.True(t, result.SQLPresent, "执行失败不修改解析结果")
	assert.Equal(t, "SELECT * FROM missing_table", result.SQL)
	require.NotNil(t, result.Result)
	assert.Equal(t, QueryStatusError, result.Result.Status)
	assert.NoError(t, mock.ExpectationsWereMet(), "SQL恰好执行一次，不重试")
}
