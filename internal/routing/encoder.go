// Package routing 提供基于文本嵌入的语义路由能力
package routing

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"sqlroute-go/internal/config"
)

// Encoder 文本嵌入边界
// 将任意字符串映射为固定维度的数值向量，任何嵌入提供商都可以替换实现
type Encoder interface {
	// Embed 嵌入单条文本
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch 批量嵌入多条文本，比逐条调用更高效
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// OpenAIEncoder 基于OpenAI嵌入API的编码器
type OpenAIEncoder struct {
	embedder *embeddings.EmbedderImpl // LangChainGo嵌入器
	limiter  *rate.Limiter            // 嵌入请求速率限制
	config   *config.EncoderConfig    // 编码器配置
	logger   *zap.Logger              // 日志器
}

// NewOpenAIEncoder 创建OpenAI编码器
func NewOpenAIEncoder(encoderConfig *config.EncoderConfig, logger *zap.Logger) (*OpenAIEncoder, error) {
	if encoderConfig == nil {
		return nil, fmt.Errorf("编码器配置不能为空")
	}
	if encoderConfig.APIKey == "" {
		return nil, fmt.Errorf("编码器API密钥不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := openai.New(
		openai.WithToken(encoderConfig.APIKey),
		openai.WithEmbeddingModel(encoderConfig.ModelName),
	)
	if err != nil {
		return nil, fmt.Errorf("创建嵌入客户端失败: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("创建嵌入器失败: %w", err)
	}

	logger.Info("embedding encoder initialized",
		zap.String("model", encoderConfig.ModelName),
		zap.Float64("requests_per_second", encoderConfig.RequestsPerSecond))

	return &OpenAIEncoder{
		embedder: embedder,
		limiter:  rate.NewLimiter(rate.Limit(encoderConfig.RequestsPerSecond), encoderConfig.Burst),
		config:   encoderConfig,
		logger:   logger,
	}, nil
}

// Embed 嵌入单条文本
func (e *OpenAIEncoder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("嵌入请求速率限制等待失败: %w", err)
	}

	vector, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.Error("embedding request failed", zap.Error(err))
		return nil, fmt.Errorf("文本嵌入失败: %w", err)
	}

	return vector, nil
}

// EmbedBatch 批量嵌入多条文本
func (e *OpenAIEncoder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("嵌入请求速率限制等待失败: %w", err)
	}

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("batch embedding request failed",
			zap.Int("text_count", len(texts)),
			zap.Error(err))
		return nil, fmt.Errorf("批量文本嵌入失败: %w", err)
	}

	return vectors, nil
}
