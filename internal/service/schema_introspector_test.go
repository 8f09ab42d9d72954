// Schema探测器测试
package service

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubConnProvider 测试用连接提供者，复用同一个*sql.DB
type stubConnProvider struct {
	db *sql.DB
}

func (s *stubConnProvider) WithConn(_ context.Context, fn func(db *sql.DB) error) error {
	return fn(s.db)
}

// failingConnProvider 连接获取阶段即失败的提供者
type failingConnProvider struct{}

func (f *failingConnProvider) WithConn(_ context.Context, _ func(db *sql.DB) error) error {
	return fmt.Errorf("打开数据库文件失败: no such file")
}

// tableInfoRows PRAGMA table_info的结果列
func tableInfoRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"cid", "name", "type", "notnull", "dflt_value", "pk"})
}

// TestSchemaIntrospector_ListColumns 测试列元数据探测
func TestSchemaIntrospector_ListColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("PRAGMA table_info('cars_data')")).
		WillReturnRows(tableInfoRows().
			AddRow(0, "model", "TEXT", 1, nil, 0).
			AddRow(1, "horsepower", "INTEGER", 0, nil, 0).
			AddRow(2, "fuel_consumption", "REAL", 0, nil, 0))

	introspector := NewSchemaIntrospector(&stubConnProvider{db: db}, zap.NewNop())

	columns, err := introspector.ListColumns(context.Background(), "cars_data")
	require.NoError(t, err)
	require.Len(t, columns, 3)

	// column_id从0开始严格递增，保持表的原生列顺序
	for i, column := range columns {
		assert.Equal(t, i, column.ColumnID)
	}
	assert.Equal(t, "model", columns[0].Name)
	assert.Equal(t, "TEXT", columns[0].Type)
	assert.Equal(t, "horsepower", columns[1].Name)
	assert.Equal(t, "fuel_consumption", columns[2].Name)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestSchemaIntrospector_ListColumns_MissingTable 表不存在时返回空切片
func TestSchemaIntrospector_ListColumns_MissingTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// SQLite对不存在的表返回零行，而不是错误
	mock.ExpectQuery(regexp.QuoteMeta("PRAGMA table_info('no_such_table')")).
		WillReturnRows(tableInfoRows())

	introspector := NewSchemaIntrospector(&stubConnProvider{db: db}, zap.NewNop())

	columns, err := introspector.ListColumns(context.Background(), "no_such_table")
	require.NoError(t, err)
	assert.Empty(t, columns)
}

// TestSchemaIntrospector_ListColumns_ConnectionError 查找机制失败时返回错误
func TestSchemaIntrospector_ListColumns_ConnectionError(t *testing.T) {
	introspector := NewSchemaIntrospector(&failingConnProvider{}, zap.NewNop())

	columns, err := introspector.ListColumns(context.Background(), "cars_data")
	require.Error(t, err)
	assert.Nil(t, columns)
}

// TestSchemaIntrospector_TableSample 测试行样本抓取
func TestSchemaIntrospector_TableSample(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "cars_data" LIMIT 3`)).
		WillReturnRows(sqlmock.NewRows([]string{"model", "horsepower"}).
			AddRow("Vortex X1", 450).
			AddRow("Avalon S", 320))

	introspector := NewSchemaIntrospector(&stubConnProvider{db: db}, zap.NewNop())

	sample, err := introspector.TableSample(context.Background(), "cars_data")
	require.NoError(t, err)
	require.Len(t, sample, 2)
	assert.Equal(t, "Vortex X1", sample[0][0])
	assert.Equal(t, "Avalon S", sample[1][0])
}

// TestSchemaIntrospector_TableSample_EmptyTable 空表返回空样本
func TestSchemaIntrospector_TableSample_EmptyTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "empty_table" LIMIT 3`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	introspector := NewSchemaIntrospector(&stubConnProvider{db: db}, zap.NewNop())

	sample, err := introspector.TableSample(context.Background(), "empty_table")
	require.NoError(t, err)
	assert.Empty(t, sample)
}

// TestFormatColumnInfo 测试列描述的提示词渲染
func TestFormatColumnInfo(t *testing.T) {
	columns := []ColumnDescriptor{
		{ColumnID: 0, Name: "country", Type: "TEXT"},
		{ColumnID: 1, Name: "population", Type: "INTEGER"},
	}

	rendered := FormatColumnInfo(columns)
	assert.Contains(t, rendered, `"column_id":0`)
	assert.Contains(t, rendered, `"name":"country"`)
	assert.Contains(t, rendered, `"type":"INTEGER"`)

	assert.Equal(t, "[]", FormatColumnInfo(nil))
}

// TestFormatTableSample 测试样本行的提示词渲染
func TestFormatTableSample(t *testing.T) {
	sample := [][]any{
		{"Italy", int64(59000000), nil},
		{"Egypt", int64(104000000), 3.14},
	}

	rendered := FormatTableSample(sample)
	assert.Equal(t, `[("Italy", 59000000, NULL), ("Egypt", 104000000, 3.14)]`, rendered)

	assert.Equal(t, "[]", FormatTableSample(nil))
}
