// 语义路由器测试
package routing

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubEncoder 测试用编码器，按预置映射返回固定向量
type stubEncoder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (s *stubEncoder) Embed(_ context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	vector, ok := s.vectors[text]
	if !ok {
		return nil, fmt.Errorf("没有预置向量: %q", text)
	}
	return vector, nil
}

func (s *stubEncoder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vector, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		result = append(result, vector)
	}
	return result, nil
}

// testRouterConfig 构造带临时索引路径的路由器配置
func testRouterConfig(t *testing.T, routes []Route) *RouterConfig {
	t.Helper()

	config := DefaultRouterConfig(routes)
	config.IndexPath = filepath.Join(t.TempDir(), "route_index.json")
	return config
}

// carCountryEncoder cars路由在第一维，countries路由在第二维
func carCountryEncoder() *stubEncoder {
	return &stubEncoder{vectors: map[string][]float32{
		"car talk A":     {1, 0},
		"car talk B":     {0.9, 0.1},
		"country talk A": {0, 1},
		"country talk B": {0.1, 0.9},
		"car query":      {0.8, 0.2},
		"country query":  {0.2, 0.8},
		"noise query":    {-1, -1},
		"diagonal query": {1, 1},
	}}
}

func carCountryRoutes() []Route {
	return []Route{
		{Name: "cars", Utterances: []string{"car talk A", "car talk B"}},
		{Name: "countries", Utterances: []string{"country talk A", "country talk B"}},
	}
}

// TestSemanticRouter_Classify 测试基本分类
func TestSemanticRouter_Classify(t *testing.T) {
	router, err := NewSemanticRouter(testRouterConfig(t, carCountryRoutes()), carCountryEncoder(), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, router.Sync(context.Background()))

	tests := []struct {
		name      string
		query     string
		wantRoute string
		wantMatch bool
	}{
		{name: "car_query", query: "car query", wantRoute: "cars", wantMatch: true},
		{name: "country_query", query: "country query", wantRoute: "countries", wantMatch: true},
		{name: "below_threshold", query: "noise query", wantMatch: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, err := router.Classify(context.Background(), tt.query)
			require.NoError(t, err)

			if tt.wantMatch {
				require.NotNil(t, match)
				assert.Equal(t, tt.wantRoute, match.Name)
				assert.GreaterOrEqual(t, match.Score, router.Threshold())
			} else {
				assert.Nil(t, match, "低于阈值必须返回未命中")
			}
		})
	}
}

// TestSemanticRouter_TieBreak 相似度相等时先声明的路由获胜
func TestSemanticRouter_TieBreak(t *testing.T) {
	// diagonal query与两个路由的相似度完全相等
	router, err := NewSemanticRouter(testRouterConfig(t, carCountryRoutes()), carCountryEncoder(), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, router.Sync(context.Background()))

	for i := 0; i < 5; i++ {
		match, err := router.Classify(context.Background(), "diagonal query")
		require.NoError(t, err)
		require.NotNil(t, match)
		assert.Equal(t, "cars", match.Name, "平局时先声明的路由必须稳定获胜")
	}
}

// TestSemanticRouter_ThresholdMonotonicity 提高阈值只能把命中变为未命中
func TestSemanticRouter_ThresholdMonotonicity(t *testing.T) {
	ctx := context.Background()
	queries := []string{"car query", "country query", "diagonal query", "noise query"}

	var previousMatched map[string]bool
	for _, threshold := range []float64{0.16, 0.5, 0.9, 0.99} {
		config := testRouterConfig(t, carCountryRoutes())
		config.ScoreThreshold = threshold

		router, err := NewSemanticRouter(config, carCountryEncoder(), zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, router.Sync(ctx))

		matched := make(map[string]bool, len(queries))
		for _, query := range queries {
			match, err := router.Classify(ctx, query)
			require.NoError(t, err)
			matched[query] = match != nil
		}

		if previousMatched != nil {
			for _, query := range queries {
				if matched[query] {
					assert.True(t, previousMatched[query],
						"阈值%.2f下命中的%q在更低阈值下必须也命中", threshold, query)
				}
			}
		}
		previousMatched = matched
	}
}

// TestSemanticRouter_SyncPersistsIndex SyncLocal持久化索引，SyncNone原样加载
func TestSemanticRouter_SyncPersistsIndex(t *testing.T) {
	ctx := context.Background()
	config := testRouterConfig(t, carCountryRoutes())

	// 第一次：本地同步并持久化
	encoder := carCountryEncoder()
	router, err := NewSemanticRouter(config, encoder, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, router.Sync(ctx))
	embedCallsAfterSync := encoder.calls
	assert.Positive(t, embedCallsAfterSync)

	// 第二次：SyncNone从索引文件加载，不触发任何嵌入调用
	reloadConfig := DefaultRouterConfig(carCountryRoutes())
	reloadConfig.IndexPath = config.IndexPath
	reloadConfig.SyncMode = SyncNone

	reloadEncoder := carCountryEncoder()
	reloaded, err := NewSemanticRouter(reloadConfig, reloadEncoder, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, reloaded.Sync(ctx))
	assert.Zero(t, reloadEncoder.calls, "SyncNone不允许重新嵌入utterance")

	// 两个路由器对同一查询给出一致结果
	match, err := reloaded.Classify(ctx, "car query")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "cars", match.Name)
}

// TestSemanticRouter_ClassifyBeforeSync 未同步时分类必须报错
func TestSemanticRouter_ClassifyBeforeSync(t *testing.T) {
	router, err := NewSemanticRouter(testRouterConfig(t, carCountryRoutes()), carCountryEncoder(), zap.NewNop())
	require.NoError(t, err)

	_, err = router.Classify(context.Background(), "car query")
	assert.Error(t, err)
}

// TestSemanticRouter_EncoderError 嵌入失败向上传播
func TestSemanticRouter_EncoderError(t *testing.T) {
	encoder := carCountryEncoder()
	router, err := NewSemanticRouter(testRouterConfig(t, carCountryRoutes()), encoder, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, router.Sync(context.Background()))

	encoder.err = fmt.Errorf("embedding service unavailable")
	_, err = router.Classify(context.Background(), "car query")
	assert.Error(t, err)
}

// TestNewSemanticRouter_Validation 测试配置校验
func TestNewSemanticRouter_Validation(t *testing.T) {
	encoder := carCountryEncoder()

	tests := []struct {
		name   string
		routes []Route
	}{
		{name: "no_routes", routes: nil},
		{name: "empty_name", routes: []Route{{Name: "", Utterances: []string{"a"}}}},
		{name: "duplicate_name", routes: []Route{
			{Name: "cars", Utterances: []string{"a"}},
			{Name: "cars", Utterances: []string{"b"}},
		}},
		{name: "no_utterances", routes: []Route{{Name: "cars"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSemanticRouter(DefaultRouterConfig(tt.routes), encoder, zap.NewNop())
			assert.Error(t, err)
		})
	}
}

// TestCosineSimilarity 测试余弦相似度边界情形
func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)

	// 维度不一致和零向量都返回0
	assert.Zero(t, cosineSimilarity([]float32{1, 0}, []float32{1}))
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.Zero(t, cosineSimilarity(nil, nil))
}

// TestMeanVector 测试均值向量计算
func TestMeanVector(t *testing.T) {
	mean := meanVector([][]float32{{1, 0}, {0, 1}})
	assert.Equal(t, []float32{0.5, 0.5}, mean)

	assert.Nil(t, meanVector(nil))
}
