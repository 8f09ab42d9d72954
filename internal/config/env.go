// 环境变量配置加载器
// 基于godotenv从.env文件加载配置

package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv 从.env文件加载环境变量
// 文件不存在时仅打印警告，继续使用系统环境变量
// 已经设置的环境变量不会被.env文件覆盖
func LoadEnv(filepath string) error {
	if _, err := os.Stat(filepath); os.IsNotExist(err) {
		fmt.Printf("Warning: %s file not found, using system environment variables\n", filepath)
		return nil
	}

	if err := godotenv.Load(filepath); err != nil {
		return fmt.Errorf("failed to load %s: %w", filepath, err)
	}

	return nil
}
