package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"go.uber.org/zap"
)

// SyncMode 路由索引同步模式
type SyncMode string

const (
	// SyncNone 不重新嵌入，直接加载已持久化的本地索引
	SyncNone SyncMode = "none"
	// SyncLocal 从本地路由定义重新嵌入全部utterance并持久化索引
	SyncLocal SyncMode = "local"
)

// DefaultScoreThreshold 默认相似度阈值
const DefaultScoreThreshold = 0.16

// Route 一组带标签的示例语句
// 配置时定义，运行期不可变
type Route struct {
	Name       string   `json:"name"`       // 路由名称
	Utterances []string `json:"utterances"` // 示例语句
}

// RouteMatch 路由匹配结果
type RouteMatch struct {
	Name  string  `json:"name"`  // 命中的路由名称
	Score float64 `json:"score"` // 余弦相似度得分
}

// RouterConfig 语义路由器配置
type RouterConfig struct {
	Routes         []Route  `json:"routes"`          // 路由定义
	ScoreThreshold float64  `json:"score_threshold"` // 最低可接受的相似度
	SyncMode       SyncMode `json:"sync_mode"`       // 索引同步模式
	IndexPath      string   `json:"index_path"`      // 本地索引文件路径
}

// DefaultRouterConfig 创建默认路由器配置
func DefaultRouterConfig(routes []Route) *RouterConfig {
	return &RouterConfig{
		Routes:         routes,
		ScoreThreshold: DefaultScoreThreshold,
		SyncMode:       SyncLocal,
		IndexPath:      "route_index.json",
	}
}

// SemanticRouter 语义路由器
// 每个路由由其全部utterance嵌入向量的均值代表；
// 新查询嵌入后与各路由代表向量比较余弦相似度，取最高且不低于阈值者
type SemanticRouter struct {
	routes    []Route     // 路由定义，保持声明顺序
	vectors   [][]float32 // 各路由的代表向量，与routes平行
	threshold float64     // 相似度阈值
	encoder   Encoder     // 嵌入边界
	syncMode  SyncMode    // 同步模式
	indexPath string      // 索引文件路径
	synced    bool        // 是否已完成同步
	logger    *zap.Logger // 日志器
}

// routeIndex 持久化的路由索引
type routeIndex struct {
	SyncedAt time.Time          `json:"synced_at"`
	Entries  []routeIndexEntry  `json:"entries"`
}

// routeIndexEntry 单个路由的索引条目
type routeIndexEntry struct {
	Name           string    `json:"name"`
	UtteranceCount int       `json:"utterance_count"`
	Vector         []float32 `json:"vector"`
}

// NewSemanticRouter 创建语义路由器
func NewSemanticRouter(routerConfig *RouterConfig, encoder Encoder, logger *zap.Logger) (*SemanticRouter, error) {
	if routerConfig == nil {
		return nil, fmt.Errorf("路由器配置不能为空")
	}
	if encoder == nil {
		return nil, fmt.Errorf("编码器不能为空")
	}
	if len(routerConfig.Routes) == 0 {
		return nil, fmt.Errorf("路由定义不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	seen := make(map[string]bool, len(routerConfig.Routes))
	for _, route := range routerConfig.Routes {
		if route.Name == "" {
			return nil, fmt.Errorf("路由名称不能为空")
		}
		if seen[route.Name] {
			return nil, fmt.Errorf("路由名称重复: %s", route.Name)
		}
		if len(route.Utterances) == 0 {
			return nil, fmt.Errorf("路由%s没有示例语句", route.Name)
		}
		seen[route.Name] = true
	}

	threshold := routerConfig.ScoreThreshold
	if threshold <= 0 {
		threshold = DefaultScoreThreshold
	}

	syncMode := routerConfig.SyncMode
	if syncMode == "" {
		syncMode = SyncLocal
	}

	return &SemanticRouter{
		routes:    routerConfig.Routes,
		threshold: threshold,
		encoder:   encoder,
		syncMode:  syncMode,
		indexPath: routerConfig.IndexPath,
		logger:    logger,
	}, nil
}

// Sync 同步路由索引，属于配置阶段，必须在Classify之前调用
// SyncLocal模式下嵌入全部utterance、计算均值向量并持久化；
// SyncNone模式下从索引文件加载既有向量，不触发任何嵌入调用。
// 同步完成后路由向量不再变化
func (r *SemanticRouter) Sync(ctx context.Context) error {
	if r.synced {
		return fmt.Errorf("路由索引已同步，运行期不允许重复同步")
	}

	switch r.syncMode {
	case SyncLocal:
		if err := r.syncFromDefinitions(ctx); err != nil {
			return err
		}
	case SyncNone:
		if err := r.loadIndex(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("未知的同步模式: %s", r.syncMode)
	}

	r.synced = true
	return nil
}

// syncFromDefinitions 从本地路由定义重建索引
func (r *SemanticRouter) syncFromDefinitions(ctx context.Context) error {
	r.vectors = make([][]float32, len(r.routes))

	for i, route := range r.routes {
		embedded, err := r.encoder.EmbedBatch(ctx, route.Utterances)
		if err != nil {
			return fmt.Errorf("嵌入路由%s的示例语句失败: %w", route.Name, err)
		}
		if len(embedded) != len(route.Utterances) {
			return fmt.Errorf("路由%s的嵌入结果数量不匹配: 期望%d，实际%d",
				route.Name, len(route.Utterances), len(embedded))
		}

		r.vectors[i] = meanVector(embedded)

		r.logger.Info("route synced",
			zap.String("route", route.Name),
			zap.Int("utterance_count", len(route.Utterances)),
			zap.Int("dimensions", len(r.vectors[i])))
	}

	if r.indexPath != "" {
		if err := r.saveIndex(); err != nil {
			return fmt.Errorf("持久化路由索引失败: %w", err)
		}
	}

	return nil
}

// saveIndex 将路由索引写入本地文件
func (r *SemanticRouter) saveIndex() error {
	index := routeIndex{
		SyncedAt: time.Now().UTC(),
		Entries:  make([]routeIndexEntry, len(r.routes)),
	}
	for i, route := range r.routes {
		index.Entries[i] = routeIndexEntry{
			Name:           route.Name,
			UtteranceCount: len(route.Utterances),
			Vector:         r.vectors[i],
		}
	}

	data, err := json.Marshal(index)
	if err != nil {
		return err
	}

	return os.WriteFile(r.indexPath, data, 0o644)
}

// loadIndex 从本地文件加载路由索引
// 索引必须覆盖当前配置的全部路由，按路由名称匹配
func (r *SemanticRouter) loadIndex() error {
	data, err := os.ReadFile(r.indexPath)
	if err != nil {
		return fmt.Errorf("读取路由索引文件失败: %w", err)
	}

	var index routeIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return fmt.Errorf("解析路由索引文件失败: %w", err)
	}

	byName := make(map[string][]float32, len(index.Entries))
	for _, entry := range index.Entries {
		byName[entry.Name] = entry.Vector
	}

	r.vectors = make([][]float32, len(r.routes))
	for i, route := range r.routes {
		vector, ok := byName[route.Name]
		if !ok {
			return fmt.Errorf("路由索引缺少路由: %s", route.Name)
		}
		if len(vector) == 0 {
			return fmt.Errorf("路由%s的索引向量为空", route.Name)
		}
		r.vectors[i] = vector
	}

	r.logger.Info("route index loaded",
		zap.String("path", r.indexPath),
		zap.Time("synced_at", index.SyncedAt))

	return nil
}

// Classify 对查询做路由分类
// 返回相似度最高且不低于阈值的路由；全部低于阈值时返回(nil, nil)表示未命中。
// 相似度相等时先声明的路由获胜：遍历按声明顺序进行，仅在严格更大时替换候选
func (r *SemanticRouter) Classify(ctx context.Context, query string) (*RouteMatch, error) {
	if !r.synced {
		return nil, fmt.Errorf("路由索引未同步，请先调用Sync")
	}

	queryVector, err := r.encoder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("嵌入查询失败: %w", err)
	}

	bestIndex := -1
	bestScore := math.Inf(-1)
	for i, vector := range r.vectors {
		score := cosineSimilarity(queryVector, vector)
		if score > bestScore {
			bestIndex = i
			bestScore = score
		}
	}

	if bestIndex < 0 || bestScore < r.threshold {
		r.logger.Debug("no route above threshold",
			zap.String("query", query),
			zap.Float64("best_score", bestScore),
			zap.Float64("threshold", r.threshold))
		return nil, nil
	}

	return &RouteMatch{
		Name:  r.routes[bestIndex].Name,
		Score: bestScore,
	}, nil
}

// Threshold 返回当前相似度阈值
func (r *SemanticRouter) Threshold() float64 {
	return r.threshold
}

// meanVector 计算一组向量的均值向量
func meanVector(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}

	mean := make([]float32, len(vectors[0]))
	for _, vector := range vectors {
		for i, v := range vector {
			mean[i] += v
		}
	}
	for i := range mean {
		mean[i] /= float32(len(vectors))
	}
	return mean
}

// cosineSimilarity 计算两个向量的余弦相似度
// 维度不一致或任一向量为零向量时返回0
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
