// LLM客户端
// 通过LangChainGo的OpenAI兼容接口访问OpenRouter托管模型

package ai

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"

	"sqlroute-go/internal/config"
)

// LLMClient NL2SQL语言模型客户端
type LLMClient struct {
	model  llms.Model          // LangChainGo模型实例
	config *config.ModelConfig // 模型配置
	logger *zap.Logger         // 日志器
}

// NewLLMClient 创建新的LLM客户端
func NewLLMClient(modelConfig *config.ModelConfig, logger *zap.Logger) (*LLMClient, error) {
	if modelConfig == nil {
		return nil, fmt.Errorf("模型配置不能为空")
	}
	if modelConfig.APIKey == "" {
		return nil, fmt.Errorf("模型API密钥不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []openai.Option{
		openai.WithToken(modelConfig.APIKey),
		openai.WithModel(modelConfig.ModelName),
		openai.WithHTTPClient(newHTTPClient(modelConfig.Timeout)),
	}

	// 可选配置
	if modelConfig.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(modelConfig.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("创建LLM客户端失败: %w", err)
	}

	logger.Info("LLM client initialized",
		zap.String("provider", modelConfig.Provider),
		zap.String("model", modelConfig.ModelName),
		zap.String("base_url", modelConfig.BaseURL))

	return &LLMClient{
		model:  model,
		config: modelConfig,
		logger: logger,
	}, nil
}

// Generate 发送单条用户消息并返回模型的原始文本回复
// 网络、认证、限流等传输层错误直接返回给调用方，不做任何重试
func (c *LLMClient) Generate(ctx context.Context, prompt string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	response, err := c.model.GenerateContent(reqCtx,
		[]llms.MessageContent{
			llms.TextParts(schema.ChatMessageTypeHuman, prompt),
		},
		llms.WithTemperature(c.config.Temperature),
		llms.WithMaxTokens(c.config.MaxTokens),
	)
	if err != nil {
		c.logger.Error("LLM request failed",
			zap.String("model", c.config.ModelName),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", fmt.Errorf("LLM调用失败: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("LLM返回空响应")
	}

	c.logger.Debug("LLM request completed",
		zap.String("model", c.config.ModelName),
		zap.Duration("elapsed", time.Since(start)))

	return response.Choices[0].Content, nil
}

// newHTTPClient 创建带连接池配置的HTTP客户端
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}
