package config

import (
	"fmt"
	"os"
	"time"
)

// ModelConfig NL2SQL语言模型配置
// 通过OpenAI兼容接口访问OpenRouter托管模型
type ModelConfig struct {
	Provider    string        `yaml:"provider"`    // 提供商标识，目前仅"openai"兼容接口
	ModelName   string        `yaml:"model_name"`  // 模型名称
	BaseURL     string        `yaml:"base_url"`    // API基础地址
	APIKey      string        `yaml:"api_key"`     // API密钥
	Temperature float64       `yaml:"temperature"` // 温度参数
	MaxTokens   int           `yaml:"max_tokens"`  // 最大令牌数
	Timeout     time.Duration `yaml:"timeout"`     // 请求超时
}

// EncoderConfig 文本嵌入编码器配置
type EncoderConfig struct {
	ModelName         string        `yaml:"model_name"`          // 嵌入模型名称
	APIKey            string        `yaml:"api_key"`             // API密钥
	RequestsPerSecond float64       `yaml:"requests_per_second"` // 嵌入请求速率上限
	Burst             int           `yaml:"burst"`               // 速率限制突发容量
	Timeout           time.Duration `yaml:"timeout"`             // 请求超时
}

// DefaultModelConfig 创建默认NL2SQL模型配置
func DefaultModelConfig() *ModelConfig {
	return &ModelConfig{
		Provider:    "openai",
		ModelName:   "meta-llama/llama-3.3-8b-instruct:free",
		BaseURL:     "https://openrouter.ai/api/v1",
		Temperature: 0.1,
		MaxTokens:   1024,
		Timeout:     30 * time.Second,
	}
}

// DefaultEncoderConfig 创建默认编码器配置
func DefaultEncoderConfig() *EncoderConfig {
	return &EncoderConfig{
		ModelName:         "text-embedding-3-small",
		RequestsPerSecond: 5,
		Burst:             5,
		Timeout:           30 * time.Second,
	}
}

// LoadModelConfigFromEnv 从环境变量加载NL2SQL模型配置
// OPENROUTER_API_KEY缺失时返回错误，由调用方决定是否致命
func LoadModelConfigFromEnv() (*ModelConfig, error) {
	config := DefaultModelConfig()

	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		config.APIKey = key
	} else {
		return nil, fmt.Errorf("OPENROUTER_API_KEY environment variable is required")
	}

	// 可选的模型配置覆盖
	if model := os.Getenv("NL2SQL_MODEL_NAME"); model != "" {
		config.ModelName = model
	}
	if baseURL := os.Getenv("OPENROUTER_BASE_URL"); baseURL != "" {
		config.BaseURL = baseURL
	}

	return config, nil
}

// LoadEncoderConfigFromEnv 从环境变量加载编码器配置
// OPENAI_API_KEY缺失时返回错误，由调用方决定是否致命
func LoadEncoderConfigFromEnv() (*EncoderConfig, error) {
	config := DefaultEncoderConfig()

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.APIKey = key
	} else {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required")
	}

	// 可选的嵌入模型覆盖
	if model := os.Getenv("EMBEDDING_MODEL_NAME"); model != "" {
		config.ModelName = model
	}

	return config, nil
}
