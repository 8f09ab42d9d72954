package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"go.uber.org/zap"
)

// QueryRecord 批量分类的输入记录
type QueryRecord struct {
	Query    string `json:"query"`    // 待分类的查询
	Category string `json:"category"` // 外部给定的真实类别标签
}

// RouteAssignment 单条查询的路由分配结果
// Route为nil表示没有路由达到相似度阈值
type RouteAssignment struct {
	Query    string  `json:"query"`    // 查询原文
	Category string  `json:"category"` // 真实类别标签
	Route    *string `json:"route"`    // 命中的路由名称，未命中为null
}

// BatchClassifier 批量分类器
// 逐条将查询送入语义路由器，输出顺序与输入严格一致
type BatchClassifier struct {
	router       *SemanticRouter // 语义路由器
	logger       *zap.Logger     // 日志器
	showProgress bool            // 是否渲染进度条
}

// NewBatchClassifier 创建批量分类器
func NewBatchClassifier(router *SemanticRouter, logger *zap.Logger) *BatchClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BatchClassifier{
		router:       router,
		logger:       logger,
		showProgress: true,
	}
}

// SetShowProgress 设置是否渲染进度条，测试和非终端环境下关闭
func (c *BatchClassifier) SetShowProgress(show bool) {
	c.showProgress = show
}

// ClassifyAll 对全部输入记录做路由分类
// 单条路由调用失败即中止整个批次并报告失败位置，不写入哨兵结果
func (c *BatchClassifier) ClassifyAll(ctx context.Context, records []QueryRecord) ([]RouteAssignment, error) {
	report := make([]RouteAssignment, 0, len(records))

	var tracker *progress.Tracker
	if c.showProgress && len(records) > 0 {
		pw := progress.NewWriter()
		pw.SetOutputWriter(os.Stderr)
		pw.SetAutoStop(true)
		pw.SetUpdateFrequency(100 * time.Millisecond)
		go pw.Render()
		defer pw.Stop()

		tracker = &progress.Tracker{
			Message: "Processing questions",
			Total:   int64(len(records)),
			Units:   progress.UnitsDefault,
		}
		pw.AppendTracker(tracker)
	}

	for i, record := range records {
		match, err := c.router.Classify(ctx, record.Query)
		if err != nil {
			if tracker != nil {
				tracker.MarkAsErrored()
			}
			return nil, fmt.Errorf("第%d条查询分类失败 (%q): %w", i, record.Query, err)
		}

		assignment := RouteAssignment{
			Query:    record.Query,
			Category: record.Category,
		}
		if match != nil {
			name := match.Name
			assignment.Route = &name
		}
		report = append(report, assignment)

		if tracker != nil {
			tracker.Increment(1)
		}
	}

	if tracker != nil {
		tracker.MarkAsDone()
	}

	c.logger.Info("batch classification completed",
		zap.Int("record_count", len(records)))

	return report, nil
}

// ReadQueries 从JSON文件加载输入记录
func ReadQueries(path string) ([]QueryRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取查询文件失败: %w", err)
	}

	var records []QueryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("解析查询文件失败: %w", err)
	}

	return records, nil
}

// WriteReport 将分类报告写入JSON文件
func WriteReport(path string, report []RouteAssignment) error {
	data, err := json.MarshalIndent(report, "", "    ")
	if err != nil {
		return fmt.Errorf("序列化报告失败: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入报告文件失败: %w", err)
	}

	return nil
}

// ReadReport 从JSON文件加载分类报告
func ReadReport(path string) ([]RouteAssignment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取报告文件失败: %w", err)
	}

	var report []RouteAssignment
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("解析报告文件失败: %w", err)
	}

	return report, nil
}
